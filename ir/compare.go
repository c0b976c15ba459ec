package ir

// Same reports whether a and b are the same value: the same reference
// for composites, equal values for scalars. Two absent values are the
// same. NaN is never the same as anything.
func Same(a, b *Node) bool {
	if a == b {
		return !isNaN(a)
	}
	if a == nil || b == nil {
		return false
	}
	if a.Type != b.Type || a.Type.IsComposite() {
		return false
	}
	return scalarEqual(a, b)
}

func isNaN(y *Node) bool {
	if y == nil || y.Type != NumberType || y.Float64 == nil {
		return false
	}
	f := *y.Float64
	return f != f
}

func scalarEqual(a, b *Node) bool {
	switch a.Type {
	case NullType:
		return true
	case BoolType:
		return a.Bool == b.Bool
	case StringType:
		return a.String == b.String
	case NumberType:
		if a.Int64 != nil && b.Int64 != nil {
			return *a.Int64 == *b.Int64
		}
		return number(a) == number(b)
	}
	return false
}

func number(y *Node) float64 {
	switch {
	case y.Int64 != nil:
		return float64(*y.Int64)
	case y.Float64 != nil:
		return *y.Float64
	}
	return 0
}

// Equal reports whether a and b are structurally equal. Object key
// order is ignored; opaque nodes are equal when they are the same node.
func Equal(a, b *Node) bool {
	return equal(a, b, map[[2]*Node]bool{})
}

func equal(a, b *Node, seen map[[2]*Node]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Type != b.Type {
		return false
	}
	switch a.Type {
	case OpaqueType:
		return false
	case ArrayType, ObjectType:
		k := [2]*Node{a, b}
		if seen[k] {
			return true
		}
		seen[k] = true
		if a.Len() != b.Len() {
			return false
		}
		if a.Type == ArrayType {
			for i := range a.Values {
				if !equal(a.Values[i], b.Values[i], seen) {
					return false
				}
			}
			return true
		}
		for i, f := range a.Fields {
			if !equal(a.Values[i], Get(b, f.String), seen) {
				return false
			}
		}
		return true
	default:
		return scalarEqual(a, b)
	}
}
