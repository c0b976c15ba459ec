package setdata

import (
	"slices"
	"strings"

	"github.com/signadot/setdata/ir"
)

// PatchSet is an ordered mapping from path expression to value: the
// patch committed to a Host.
//
// Setting a path moves it to the end and drops staged paths below it,
// so applying the entries in order always yields the last value set for
// every location.
type PatchSet struct {
	keys []string
	vals map[string]*ir.Node
}

func NewPatchSet() *PatchSet {
	return &PatchSet{vals: map[string]*ir.Node{}}
}

// PatchSetOf builds a patch set from changes in sorted path order.
func PatchSetOf(changes Changes) *PatchSet {
	res := NewPatchSet()
	for _, path := range changes.Paths() {
		res.Set(path, changes[path])
	}
	return res
}

func (p *PatchSet) Set(path string, v *ir.Node) {
	if _, ok := p.vals[path]; ok {
		p.remove(path)
	}
	kept := p.keys[:0]
	for _, k := range p.keys {
		if isBelow(k, path) {
			delete(p.vals, k)
			continue
		}
		kept = append(kept, k)
	}
	p.keys = append(kept, path)
	p.vals[path] = v
}

func (p *PatchSet) remove(path string) {
	delete(p.vals, path)
	for i, k := range p.keys {
		if k == path {
			p.keys = append(p.keys[:i], p.keys[i+1:]...)
			return
		}
	}
}

// isBelow reports whether path k addresses a location inside path.
func isBelow(k, path string) bool {
	if len(k) <= len(path) || !strings.HasPrefix(k, path) {
		return false
	}
	c := k[len(path)]
	return c == '.' || c == '['
}

func (p *PatchSet) Get(path string) (*ir.Node, bool) {
	v, ok := p.vals[path]
	return v, ok
}

func (p *PatchSet) Has(path string) bool {
	_, ok := p.vals[path]
	return ok
}

func (p *PatchSet) Clear() {
	p.keys = nil
	clear(p.vals)
}

// Clone returns a copy of p sharing the staged values.
func (p *PatchSet) Clone() *PatchSet {
	res := &PatchSet{
		keys: p.Keys(),
		vals: make(map[string]*ir.Node, len(p.vals)),
	}
	for k, v := range p.vals {
		res.vals[k] = v
	}
	return res
}

func (p *PatchSet) ToMap() map[string]*ir.Node {
	res := make(map[string]*ir.Node, len(p.vals))
	for k, v := range p.vals {
		res[k] = v
	}
	return res
}

func (p *PatchSet) Len() int {
	return len(p.keys)
}

func (p *PatchSet) Keys() []string {
	res := make([]string, len(p.keys))
	copy(res, p.keys)
	return res
}

// Range calls f for each entry in order until f returns false.
func (p *PatchSet) Range(f func(path string, v *ir.Node) bool) {
	for _, k := range p.keys {
		if !f(k, p.vals[k]) {
			return
		}
	}
}

// Node returns the patch as an object keyed by path.
func (p *PatchSet) Node() *ir.Node {
	kvs := make([]ir.KeyVal, len(p.keys))
	for i, k := range p.keys {
		kvs[i] = ir.KeyVal{Key: k, Val: ir.DeepClone(p.vals[k])}
	}
	return ir.FromKeyVals(kvs)
}

func (p *PatchSet) MarshalJSON() ([]byte, error) {
	return p.Node().MarshalJSON()
}

func (p *PatchSet) UnmarshalJSON(d []byte) error {
	n := &ir.Node{}
	if err := n.UnmarshalJSON(d); err != nil {
		return err
	}
	*p = *NewPatchSet()
	for i, f := range n.Fields {
		p.Set(f.String, n.Values[i])
	}
	return nil
}

// Changes maps path expressions to proposed values.
type Changes map[string]*ir.Node

// Paths returns the paths of c in sorted order, which puts every path
// before the paths below it.
func (c Changes) Paths() []string {
	res := make([]string, 0, len(c))
	for k := range c {
		res = append(res, k)
	}
	slices.Sort(res)
	return res
}
