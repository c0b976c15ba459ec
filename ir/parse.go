package ir

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Parse decodes a YAML or JSON document into a node tree, keeping the
// document's key order.
func Parse(d []byte) (*Node, error) {
	var v any
	if err := yaml.UnmarshalWithOptions(d, &v, yaml.UseOrderedMap()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return FromAny(v), nil
}

// ParseFile reads and parses path.
func ParseFile(path string) (*Node, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := Parse(d)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

// MarshalYAML renders y as a YAML document.
func MarshalYAML(y *Node) ([]byte, error) {
	return yaml.MarshalWithOptions(toMapSlice(y), yaml.Indent(2))
}

func toMapSlice(y *Node) any {
	if y == nil {
		return nil
	}
	switch y.Type {
	case ObjectType:
		res := make(yaml.MapSlice, len(y.Fields))
		for i, f := range y.Fields {
			res[i] = yaml.MapItem{Key: f.String, Value: toMapSlice(y.Values[i])}
		}
		return res
	case ArrayType:
		res := make([]any, len(y.Values))
		for i, v := range y.Values {
			res[i] = toMapSlice(v)
		}
		return res
	case OpaqueType:
		return nil
	default:
		return y.ToAny()
	}
}
