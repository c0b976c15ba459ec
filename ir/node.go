package ir

import (
	"maps"
	"slices"
	"strconv"
)

// Node is a value in a state tree.
//
// Objects keep their keys in Fields and the corresponding values in
// Values, in insertion order. Arrays only use Values. A nil *Node
// stands for an absent value.
type Node struct {
	Type        Type
	Parent      *Node
	ParentIndex int
	ParentField string
	Fields      []*Node
	Values      []*Node

	String  string
	Bool    bool
	Float64 *float64
	Int64   *int64

	// Ref holds the referent of an OpaqueType node.
	Ref any
}

func FromString(v string) *Node {
	return &Node{
		Type:   StringType,
		String: v,
	}
}

func FromInt(v int64) *Node {
	return &Node{
		Type:  NumberType,
		Int64: &v,
	}
}

func FromFloat(f float64) *Node {
	return &Node{
		Type:    NumberType,
		Float64: &f,
	}
}

func FromBool(v bool) *Node {
	return &Node{
		Type: BoolType,
		Bool: v,
	}
}

// FromOpaque wraps a value the tree treats as an opaque reference, such
// as a function or a handle.
func FromOpaque(ref any) *Node {
	return &Node{
		Type: OpaqueType,
		Ref:  ref,
	}
}

func Null() *Node {
	return &Node{Type: NullType}
}

func ToMap(node *Node) map[string]*Node {
	if node.Type != ObjectType {
		return nil
	}
	res := make(map[string]*Node, len(node.Fields))
	for i := range node.Fields {
		res[node.Fields[i].String] = node.Values[i]
	}
	return res
}

// FromMap builds an object with keys in sorted order.
func FromMap(yMap map[string]*Node) *Node {
	keys := slices.Sorted(maps.Keys(yMap))
	kvs := make([]KeyVal, len(keys))
	for i, key := range keys {
		kvs[i] = KeyVal{Key: key, Val: yMap[key]}
	}
	return FromKeyVals(kvs)
}

type KeyVal struct {
	Key string
	Val *Node
}

func FromKeyVals(kvs []KeyVal) *Node {
	res := &Node{Type: ObjectType}
	res.Fields = make([]*Node, 0, len(kvs))
	res.Values = make([]*Node, 0, len(kvs))
	for _, kv := range kvs {
		res.SetField(kv.Key, kv.Val)
	}
	return res
}

func FromSlice(ySlice []*Node) *Node {
	res := &Node{
		Type: ArrayType,
	}
	res.Values = make([]*Node, len(ySlice))
	for i, y := range ySlice {
		if y == nil {
			y = Null()
		}
		res.Values[i] = y
		adopt(res, y, i, strconv.Itoa(i))
	}
	return res
}

// Get returns the value of field in an object, or nil.
func Get(y *Node, field string) *Node {
	if y == nil || y.Type != ObjectType {
		return nil
	}
	if i := y.fieldIndex(field); i != -1 {
		return y.Values[i]
	}
	return nil
}

func (y *Node) fieldIndex(field string) int {
	for i := range y.Fields {
		if y.Fields[i].String == field {
			return i
		}
	}
	return -1
}

// SetField sets or adds field in an object.
func (y *Node) SetField(field string, v *Node) {
	if v == nil {
		v = Null()
	}
	if i := y.fieldIndex(field); i != -1 {
		y.Values[i] = v
		adopt(y, v, i, field)
		return
	}
	i := len(y.Fields)
	y.Fields = append(y.Fields, &Node{
		Type:        StringType,
		String:      field,
		Parent:      y,
		ParentIndex: i,
		ParentField: field,
	})
	y.Values = append(y.Values, v)
	adopt(y, v, i, field)
}

// MaxIndexGap is how far past the end of a list an index may be set;
// the elements in between are filled with nulls.
const MaxIndexGap = 1024

// SetIndex sets element i of an array, extending it with nulls as
// needed. It reports false, leaving y unchanged, when i is negative or
// more than MaxIndexGap past the end.
func (y *Node) SetIndex(i int, v *Node) bool {
	if !IndexInRange(i, len(y.Values)) {
		return false
	}
	if v == nil {
		v = Null()
	}
	for len(y.Values) <= i {
		n := len(y.Values)
		y.Values = append(y.Values, Null())
		adopt(y, y.Values[n], n, strconv.Itoa(n))
	}
	y.Values[i] = v
	adopt(y, v, i, strconv.Itoa(i))
	return true
}

// IndexInRange reports whether index i can be set in a list of length n.
func IndexInRange(i, n int) bool {
	return i >= 0 && i <= n+MaxIndexGap
}

func adopt(parent, child *Node, i int, field string) {
	child.Parent = parent
	child.ParentIndex = i
	child.ParentField = field
}

// Keys returns the keys of an object in order.
func (y *Node) Keys() []string {
	res := make([]string, len(y.Fields))
	for i, f := range y.Fields {
		res[i] = f.String
	}
	return res
}

// Len is the number of own keys of an object or the length of an array.
func (y *Node) Len() int {
	if y == nil {
		return 0
	}
	switch y.Type {
	case ObjectType:
		return len(y.Fields)
	case ArrayType:
		return len(y.Values)
	}
	return 0
}

// Root returns the topmost ancestor of y.
func (y *Node) Root() *Node {
	res := y
	for res.Parent != nil {
		res = res.Parent
	}
	return res
}
