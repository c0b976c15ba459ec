package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// MarshalJSON encodes the value y represents. Opaque references have no
// data representation and encode as null.
func (y *Node) MarshalJSON() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := encodeJSON(buf, y, map[*Node]bool{}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeJSON(buf *bytes.Buffer, y *Node, inProgress map[*Node]bool) error {
	if y == nil {
		buf.WriteString("null")
		return nil
	}
	switch y.Type {
	case NullType, OpaqueType:
		buf.WriteString("null")
	case BoolType:
		buf.WriteString(strconv.FormatBool(y.Bool))
	case StringType:
		d, err := json.Marshal(y.String)
		if err != nil {
			return err
		}
		buf.Write(d)
	case NumberType:
		switch {
		case y.Int64 != nil:
			buf.WriteString(strconv.FormatInt(*y.Int64, 10))
		case y.Float64 != nil:
			f := *y.Float64
			if math.IsNaN(f) || math.IsInf(f, 0) {
				buf.WriteString("null")
				break
			}
			buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		default:
			buf.WriteString("0")
		}
	case ArrayType, ObjectType:
		if inProgress[y] {
			return fmt.Errorf("%w: cycle at %q", ErrBadFormat, y.ParentField)
		}
		inProgress[y] = true
		defer delete(inProgress, y)
		if y.Type == ArrayType {
			buf.WriteByte('[')
			for i, v := range y.Values {
				if i > 0 {
					buf.WriteByte(',')
				}
				if err := encodeJSON(buf, v, inProgress); err != nil {
					return err
				}
			}
			buf.WriteByte(']')
			return nil
		}
		buf.WriteByte('{')
		for i, f := range y.Fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			d, err := json.Marshal(f.String)
			if err != nil {
				return err
			}
			buf.Write(d)
			buf.WriteByte(':')
			if err := encodeJSON(buf, y.Values[i], inProgress); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("%w: type %s", ErrBadFormat, y.Type)
	}
	return nil
}

// UnmarshalJSON decodes a JSON value into y, keeping object key order.
func (y *Node) UnmarshalJSON(d []byte) error {
	dec := json.NewDecoder(bytes.NewReader(d))
	dec.UseNumber()
	res, err := decodeJSON(dec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	*y = *res
	for i := range y.Values {
		y.Values[i].Parent = y
	}
	for i := range y.Fields {
		y.Fields[i].Parent = y
	}
	return nil
}

func decodeJSON(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch x := tok.(type) {
	case json.Delim:
		switch x {
		case '[':
			vals := []*Node{}
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return FromSlice(vals), nil
		case '{':
			res := &Node{Type: ObjectType}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected key %v", kt)
				}
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				res.SetField(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return res, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", x)
	default:
		return FromAny(tok), nil
	}
}
