package ir

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"

	"github.com/goccy/go-yaml"
)

// FromAny converts a Go value into a node tree. Maps, slices and
// scalars become their data counterparts; anything else, functions
// included, becomes an opaque reference.
func FromAny(v any) *Node {
	switch x := v.(type) {
	case nil:
		return Null()
	case *Node:
		return x
	case bool:
		return FromBool(x)
	case string:
		return FromString(x)
	case int:
		return FromInt(int64(x))
	case int8:
		return FromInt(int64(x))
	case int16:
		return FromInt(int64(x))
	case int32:
		return FromInt(int64(x))
	case int64:
		return FromInt(x)
	case uint:
		return fromUint(uint64(x))
	case uint8:
		return FromInt(int64(x))
	case uint16:
		return FromInt(int64(x))
	case uint32:
		return FromInt(int64(x))
	case uint64:
		return fromUint(x)
	case float32:
		return FromFloat(float64(x))
	case float64:
		return FromFloat(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return FromInt(i)
		}
		f, err := x.Float64()
		if err != nil {
			return FromString(x.String())
		}
		return FromFloat(f)
	case []any:
		vals := make([]*Node, len(x))
		for i := range x {
			vals[i] = FromAny(x[i])
		}
		return FromSlice(vals)
	case map[string]any:
		keys := slices.Sorted(maps.Keys(x))
		kvs := make([]KeyVal, len(keys))
		for i, k := range keys {
			kvs[i] = KeyVal{Key: k, Val: FromAny(x[k])}
		}
		return FromKeyVals(kvs)
	case yaml.MapSlice:
		kvs := make([]KeyVal, len(x))
		for i, item := range x {
			kvs[i] = KeyVal{Key: keyString(item.Key), Val: FromAny(item.Value)}
		}
		return FromKeyVals(kvs)
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[keyString(k)] = v
		}
		return FromAny(m)
	default:
		return FromOpaque(v)
	}
}

func fromUint(u uint64) *Node {
	if u > 1<<63-1 {
		return FromFloat(float64(u))
	}
	return FromInt(int64(u))
}

func keyString(k any) string {
	switch x := k.(type) {
	case string:
		return x
	case nil:
		return "null"
	default:
		n := FromAny(k)
		if n.Type == NumberType || n.Type == BoolType {
			d, _ := n.MarshalJSON()
			return string(d)
		}
		return ""
	}
}

// ToAny converts y into plain Go values: map[string]any, []any, bool,
// string, int64, float64 and nil. Opaque nodes yield their referent.
func (y *Node) ToAny() any {
	if y == nil {
		return nil
	}
	switch y.Type {
	case NullType:
		return nil
	case BoolType:
		return y.Bool
	case StringType:
		return y.String
	case NumberType:
		if y.Int64 != nil {
			return *y.Int64
		}
		if y.Float64 != nil {
			return *y.Float64
		}
		return int64(0)
	case ArrayType:
		res := make([]any, len(y.Values))
		for i, v := range y.Values {
			res[i] = v.ToAny()
		}
		return res
	case ObjectType:
		res := make(map[string]any, len(y.Fields))
		for i, f := range y.Fields {
			res[f.String] = y.Values[i].ToAny()
		}
		return res
	case OpaqueType:
		return y.Ref
	}
	return nil
}

// ScalarString renders a scalar for messages and path segments.
func (y *Node) ScalarString() string {
	if y == nil {
		return "undefined"
	}
	switch y.Type {
	case StringType:
		return y.String
	case NumberType, BoolType, NullType:
		d, _ := y.MarshalJSON()
		return string(d)
	case OpaqueType:
		return "<opaque>"
	}
	return "<" + y.Type.String() + " len=" + strconv.Itoa(y.Len()) + ">"
}
