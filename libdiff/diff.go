package libdiff

import (
	"strconv"

	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
)

// Options select the diffing policy for one update request.
type Options struct {
	// UseOldVal lets nested lists and maps that grow keep diffing per
	// element, so already rendered entries are not resent.
	UseOldVal bool
	// UseSyncData writes staged values through to the state at once.
	UseSyncData bool
}

// Sink receives the decisions of a Differ.
type Sink interface {
	// Stage queues val at path for the next batched commit.
	Stage(path string, val *ir.Node, opts Options)
	// Native commits val at path immediately, without diffing or
	// batching.
	Native(path string, val *ir.Node)
	// Same is called for every path found unchanged.
	Same(path string, val *ir.Node)
}

// DiffFunc is the signature of Differ.Diff.
type DiffFunc func(newVal, oldVal *ir.Node, path string, opts Options, nested bool)

// Differ compares a proposed value with the current one at a path and
// reports the smallest set of leaf replacements to its Sink.
//
//   - the same scalar value, or the same composite reference, needs no
//     update. A top level field (not nested) holding the same composite
//     reference cannot be diffed at all; it is committed natively with a
//     warning.
//
//   - if either side is not a composite, or the two are composites of
//     different kinds, the new value replaces the old one.
//
//   - lists and plain maps are first compared by length (see
//     diffLength), then recursively per index from the last down to 0,
//     or per key of the new value. Keys only present in the old value
//     are left alone.
//
//   - other composites (opaque references) are replaced.
type Differ struct {
	Sink Sink
}

func New(sink Sink) *Differ {
	return &Differ{Sink: sink}
}

func (d *Differ) Diff(newVal, oldVal *ir.Node, path string, opts Options, nested bool) {
	if ir.Same(newVal, oldVal) {
		d.Sink.Same(path, newVal)
		if !nested && newVal != nil && newVal.Type.IsComposite() {
			debug.Warn("data with the same reference will not be diffed or batched; it is committed natively, avoid setting a field to a reference that is mutated in place",
				"field", path)
			d.Sink.Native(path, newVal)
		}
		return
	}
	if newVal == nil || oldVal == nil || !newVal.Type.IsComposite() || !oldVal.Type.IsComposite() {
		d.stage(path, newVal, opts, "leaf")
		return
	}
	if newVal.Type != oldVal.Type {
		d.stage(path, newVal, opts, "kind changed")
		return
	}
	switch newVal.Type {
	case ir.ArrayType:
		n := len(newVal.Values)
		if d.diffLength(n, len(oldVal.Values), path, newVal, nested, opts) {
			return
		}
		for i := n - 1; i >= 0; i-- {
			d.Diff(newVal.Values[i], ir.Child(oldVal, strconv.Itoa(i)), path+"["+strconv.Itoa(i)+"]", opts, true)
		}
	case ir.ObjectType:
		n := len(newVal.Fields)
		if d.diffLength(n, len(oldVal.Fields), path, newVal, nested, opts) {
			return
		}
		for i := n - 1; i >= 0; i-- {
			key := newVal.Fields[i].String
			d.Diff(newVal.Values[i], ir.Get(oldVal, key), path+"."+key, opts, true)
		}
	default:
		d.stage(path, newVal, opts, "opaque")
	}
}

func (d *Differ) stage(path string, val *ir.Node, opts Options, why string) {
	if debug.Diff() {
		debug.Logf("diff stage %s (%s): %s\n", path, why, val.ScalarString())
	}
	d.Sink.Stage(path, val, opts)
}

// diffLength applies the length rule shared by lists and maps and
// reports whether recursion stops at path.
//
// By default any length change replaces the whole value, and two empty
// values need nothing. With UseOldVal, and only below the top level,
// a value that grows keeps recursing; one that shrinks, or that becomes
// or stops being empty, is replaced, since recursion over the new keys
// would leave the removed ones in place.
func (d *Differ) diffLength(newLen, oldLen int, path string, newVal *ir.Node, nested bool, opts Options) bool {
	if opts.UseOldVal && nested {
		if newLen == 0 && oldLen == 0 {
			return true
		}
		if newLen == 0 || oldLen == 0 || newLen < oldLen {
			d.stage(path, newVal, opts, "length")
			return true
		}
		return false
	}
	if newLen != oldLen {
		d.stage(path, newVal, opts, "length")
		return true
	}
	return newLen == 0
}
