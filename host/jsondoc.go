package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	jsonpatch "github.com/evanphx/json-patch"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
)

var ErrBadPatch = errors.New("bad patch")

// JSONDoc keeps the state as a JSON document and applies each commit as
// an RFC 6902 patch.
type JSONDoc struct {
	mu     sync.Mutex
	doc    []byte
	data   *ir.Node
	ticker setdata.Ticker
	err    error
}

// NewJSONDoc creates a JSONDoc from a JSON object document.
func NewJSONDoc(doc []byte, ticker setdata.Ticker) (*JSONDoc, error) {
	data := &ir.Node{}
	if err := data.UnmarshalJSON(doc); err != nil {
		return nil, err
	}
	if data.Type != ir.ObjectType {
		return nil, fmt.Errorf("%w: document is a %s, not an object", ir.ErrBadFormat, data.Type)
	}
	return &JSONDoc{doc: doc, data: data, ticker: ticker}, nil
}

// Data returns the decoded document as of the last commit.
func (j *JSONDoc) Data() *ir.Node {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.data
}

func (j *JSONDoc) Document() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.doc
}

// Err returns the error of the last commit, if it failed.
func (j *JSONDoc) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Commit applies patch. A patch that cannot be applied leaves the
// document unchanged; the error is logged and kept for Err. done runs
// either way.
func (j *JSONDoc) Commit(patch *setdata.PatchSet, done func()) {
	j.mu.Lock()
	j.err = j.apply(patch)
	if j.err != nil {
		debug.Logger().Error("json patch failed", "error", j.err)
	}
	j.mu.Unlock()
	if done == nil {
		return
	}
	if j.ticker == nil {
		done()
		return
	}
	j.ticker.NextTick(done)
}

func (j *JSONDoc) apply(patch *setdata.PatchSet) error {
	ops, err := Operations(j.data, patch)
	if err != nil {
		return err
	}
	d, err := json.Marshal(ops)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadPatch, err)
	}
	p, err := jsonpatch.DecodePatch(d)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadPatch, err)
	}
	doc, err := p.Apply(j.doc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadPatch, err)
	}
	data := &ir.Node{}
	if err := data.UnmarshalJSON(doc); err != nil {
		return err
	}
	j.doc, j.data = doc, data
	return nil
}

// Op is one RFC 6902 operation.
type Op struct {
	Op    string   `json:"op"`
	Path  string   `json:"path"`
	Value *ir.Node `json:"value"`
}

// Operations translates patch into RFC 6902 operations against data,
// which is left unchanged. Missing or mismatched containers on the way
// to a path are created the way ir.SetPath creates them: the operation
// then adds or replaces the outermost container with one holding the
// value.
func Operations(data *ir.Node, patch *setdata.PatchSet) ([]Op, error) {
	cur := ir.DeepClone(data)
	if cur == nil {
		cur = ir.FromKeyVals(nil)
	}
	var ops []Op
	var err error
	patch.Range(func(path string, v *ir.Node) bool {
		fields := ir.PathFields(path)
		if err = ir.CheckFields(cur, fields); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrBadPatch, path, err)
			return false
		}
		var op Op
		op, err = operation(cur, fields, v)
		if err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrBadPatch, path, err)
			return false
		}
		ops = append(ops, op)
		ir.SetFields(cur, fields, ir.DeepClone(v))
		return true
	})
	return ops, err
}

func operation(cur *ir.Node, fields []string, v *ir.Node) (Op, error) {
	parent := cur
	for i, seg := range fields {
		last := i == len(fields)-1
		val := v
		want := ir.ObjectType
		if !last && ir.IsIndex(fields[i+1]) {
			want = ir.ArrayType
		}
		child := ir.Child(parent, seg)
		if !last && child != nil && child.Type == want {
			parent = child
			continue
		}
		if !last {
			val = &ir.Node{Type: want}
			ir.SetFields(val, fields[i+1:], ir.DeepClone(v))
		}
		if parent.Type == ir.ArrayType {
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return Op{}, fmt.Errorf("%q is not a list index", seg)
			}
			if idx > len(parent.Values) {
				grown := ir.DeepClone(parent)
				grown.SetIndex(idx, val)
				return Op{Op: "replace", Path: ir.JSONPointer(fields[:i]), Value: grown}, nil
			}
		}
		op := "add"
		if child != nil {
			op = "replace"
		}
		return Op{Op: op, Path: ir.JSONPointer(fields[:i+1]), Value: val}, nil
	}
	return Op{}, fmt.Errorf("empty path")
}
