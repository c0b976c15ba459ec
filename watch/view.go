package watch

import (
	"github.com/signadot/setdata/ir"
)

// Traps are called by a View around every access.
type Traps struct {
	OnRead  func()
	OnWrite func()
}

// View wraps a list or map node so that reads and writes through it go
// through a table of traps. Nested lists and maps are wrapped lazily,
// the first time they are entered, and each node is wrapped at most
// once.
type View struct {
	node  *ir.Node
	traps *Traps
	cache map[*ir.Node]*View
}

// NewView wraps node, which must be a list or a map.
func NewView(node *ir.Node, traps *Traps) *View {
	return newView(node, traps, map[*ir.Node]*View{})
}

func newView(node *ir.Node, traps *Traps, cache map[*ir.Node]*View) *View {
	if v := cache[node]; v != nil {
		return v
	}
	v := &View{node: node, traps: traps, cache: cache}
	cache[node] = v
	return v
}

func (v *View) Node() *ir.Node {
	return v.node
}

func (v *View) read() {
	if v.traps != nil && v.traps.OnRead != nil {
		v.traps.OnRead()
	}
}

func (v *View) write() {
	if v.traps != nil && v.traps.OnWrite != nil {
		v.traps.OnWrite()
	}
}

// Get returns the child under seg, or nil.
func (v *View) Get(seg string) *ir.Node {
	v.read()
	return ir.Child(v.node, seg)
}

// Enter returns the view of the list or map under seg, or nil if there
// is none.
func (v *View) Enter(seg string) *View {
	c := v.Get(seg)
	if c == nil || !c.Type.IsPlain() {
		return nil
	}
	return newView(c, v.traps, v.cache)
}

// Set writes x under seg. It reports false when the wrapped node
// cannot hold seg.
func (v *View) Set(seg string, x *ir.Node) bool {
	v.write()
	return ir.SetChild(v.node, seg, x)
}

// SetPath writes x at fields below the view, creating missing or
// mismatched containers the way ir.SetFields does.
func (v *View) SetPath(fields []string, x *ir.Node) bool {
	cur := v
	for i, seg := range fields {
		if i == len(fields)-1 {
			return cur.Set(seg, x)
		}
		want := ir.ObjectType
		if ir.IsIndex(fields[i+1]) {
			want = ir.ArrayType
		}
		next := cur.Enter(seg)
		if next == nil || next.node.Type != want {
			if !cur.Set(seg, &ir.Node{Type: want}) {
				return false
			}
			next = cur.Enter(seg)
		}
		cur = next
	}
	return false
}

func (v *View) reset() {
	clear(v.cache)
	v.cache[v.node] = v
}
