// Package watch fires callbacks when declared paths of a state tree
// change.
//
// A Watcher keeps, per declared path, an isolated snapshot of the root
// field of that path. Updates staged by the scheduler are mirrored into
// the snapshots through a View whose traps record the value before the
// first write of a tick and mark the path dirty. Trigger then calls the
// callback of each dirty path once with the new and old values.
package watch

import (
	"slices"

	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
)

// Callback receives the value at a watched path after and before the
// changes of one commit.
type Callback func(newVal, oldVal *ir.Node)

// Descriptor declares a watched path.
type Descriptor struct {
	Path     string
	Fields   []string
	Callback Callback
}

type watch struct {
	desc     Descriptor
	snapshot *ir.Node
	view     *View

	hasOld bool
	oldVal *ir.Node
	dirty  bool
	newVal *ir.Node
}

func (w *watch) onRead() {
	if w.hasOld {
		return
	}
	w.hasOld = true
	w.oldVal = ir.DeepClone(ir.GetFields(w.snapshot, w.desc.Fields))
}

func (w *watch) onWrite() {
	w.onRead()
	w.dirty = true
}

// related reports whether an update at fields can change the value at
// the watched path: it is the path itself, an ancestor or a descendant.
func (w *watch) related(fields []string) bool {
	return ir.IsPathPrefix(fields, w.desc.Fields) || ir.IsPathPrefix(w.desc.Fields, fields)
}

type Watcher struct {
	data    *ir.Node
	watches []*watch
	byKey   map[string][]*watch
}

// New creates a Watcher over data, declaring watches in sorted path
// order.
func New(data *ir.Node, watches map[string]Callback) *Watcher {
	w := &Watcher{data: data, byKey: map[string][]*watch{}}
	paths := make([]string, 0, len(watches))
	for p := range watches {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	for _, p := range paths {
		w.Add(p, watches[p])
	}
	return w
}

// Add declares a watch on path. Callbacks fire in the order their paths
// were added.
func (w *Watcher) Add(path string, cb Callback) {
	fields := ir.PathFields(path)
	key := fields[0]
	snapshot := ir.FromKeyVals([]ir.KeyVal{{Key: key, Val: ir.DeepClone(ir.Child(w.data, key))}})
	wt := &watch{
		desc:     Descriptor{Path: path, Fields: fields, Callback: cb},
		snapshot: snapshot,
	}
	wt.view = NewView(snapshot, &Traps{OnRead: wt.onRead, OnWrite: wt.onWrite})
	w.watches = append(w.watches, wt)
	w.byKey[key] = append(w.byKey[key], wt)
}

func (w *Watcher) Paths() []string {
	res := make([]string, len(w.watches))
	for i, wt := range w.watches {
		res[i] = wt.desc.Path
	}
	return res
}

func (w *Watcher) Descriptors() []Descriptor {
	res := make([]Descriptor, len(w.watches))
	for i, wt := range w.watches {
		res[i] = wt.desc
	}
	return res
}

// UpdateWatchedData mirrors an update at path into the snapshots of the
// watches it can affect.
func (w *Watcher) UpdateWatchedData(path string, v *ir.Node) {
	fields := ir.PathFields(path)
	for _, wt := range w.byKey[fields[0]] {
		if !wt.related(fields) {
			if debug.Watch() {
				debug.Logf("watch %s: ignore update of %s\n", wt.desc.Path, path)
			}
			continue
		}
		wt.view.SetPath(fields, ir.DeepClone(v))
		if wt.dirty {
			wt.newVal = ir.DeepClone(ir.GetFields(wt.snapshot, wt.desc.Fields))
		}
		if debug.Watch() {
			debug.Logf("watch %s: mirrored update of %s\n", wt.desc.Path, path)
		}
	}
}

// Trigger calls the callback of every watch changed since the last
// Trigger, once each, then clears the change records.
func (w *Watcher) Trigger() {
	for _, wt := range w.watches {
		if wt.dirty && wt.desc.Callback != nil {
			fire(wt)
		}
		wt.dirty, wt.hasOld = false, false
		wt.oldVal, wt.newVal = nil, nil
		wt.view.reset()
	}
}

func fire(wt *watch) {
	defer debug.Recover("watch " + wt.desc.Path)
	if debug.Watch() {
		debug.Logf("watch %s fired: %s -> %s\n", wt.desc.Path, wt.oldVal.ScalarString(), wt.newVal.ScalarString())
	}
	wt.desc.Callback(wt.newVal, wt.oldVal)
}
