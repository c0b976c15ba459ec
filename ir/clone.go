package ir

// Clone returns a deep copy of y. See DeepClone.
func (y *Node) Clone() *Node {
	return DeepClone(y)
}

// DeepClone copies a node tree. Plain containers are copied
// recursively; scalars are copied by value and opaque nodes keep their
// referent. The clone is cycle safe: a node reachable along several
// paths, including through itself, is cloned once and the copy is
// shared in the same way.
func DeepClone(y *Node) *Node {
	if y == nil {
		return nil
	}
	return cloneTo(y, map[*Node]*Node{})
}

func cloneTo(y *Node, memo map[*Node]*Node) *Node {
	if dst, ok := memo[y]; ok {
		return dst
	}
	dst := &Node{
		Type:        y.Type,
		ParentIndex: y.ParentIndex,
		ParentField: y.ParentField,
		String:      y.String,
		Bool:        y.Bool,
		Ref:         y.Ref,
	}
	memo[y] = dst
	if y.Float64 != nil {
		f := *y.Float64
		dst.Float64 = &f
	}
	if y.Int64 != nil {
		i := *y.Int64
		dst.Int64 = &i
	}
	if !y.Type.IsPlain() {
		return dst
	}
	dst.Values = make([]*Node, len(y.Values))
	for i, yv := range y.Values {
		_, seen := memo[yv]
		dv := cloneTo(yv, memo)
		if !seen {
			dv.Parent = dst
		}
		dst.Values[i] = dv
	}
	if y.Type != ObjectType {
		return dst
	}
	dst.Fields = make([]*Node, len(y.Fields))
	for i, yf := range y.Fields {
		dst.Fields[i] = &Node{
			Type:        StringType,
			String:      yf.String,
			Parent:      dst,
			ParentIndex: i,
			ParentField: yf.String,
		}
	}
	return dst
}
