// Package host provides setdata.Host implementations: an in-memory state
// tree, a JSON document patched with RFC 6902 operations, and a remote
// renderer reached over JSON-RPC.
package host

import (
	"fmt"
	"sync"

	"github.com/signadot/setdata"
	"github.com/signadot/setdata/ir"
)

// Memory applies commits to an in-memory state tree and records them.
type Memory struct {
	mu      sync.Mutex
	data    *ir.Node
	ticker  setdata.Ticker
	commits []*setdata.PatchSet
}

// NewMemory creates a Memory over data. Commit completions run on
// ticker, or right away when ticker is nil.
func NewMemory(data *ir.Node, ticker setdata.Ticker) *Memory {
	if data == nil {
		data = ir.FromKeyVals(nil)
	}
	return &Memory{data: data, ticker: ticker}
}

func (m *Memory) Data() *ir.Node {
	return m.data
}

func (m *Memory) Commit(patch *setdata.PatchSet, done func()) {
	m.mu.Lock()
	m.commits = append(m.commits, patch.Clone())
	apply(m.data, patch)
	m.mu.Unlock()
	if done == nil {
		return
	}
	if m.ticker == nil {
		done()
		return
	}
	m.ticker.NextTick(done)
}

// TryCommit is Commit for patches from untrusted sources: it rejects
// the whole patch, applying nothing, if any path indexes a list out of
// range.
func (m *Memory) TryCommit(patch *setdata.PatchSet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	patch.Range(func(path string, v *ir.Node) bool {
		if err = ir.CheckFields(m.data, ir.PathFields(path)); err != nil {
			err = fmt.Errorf("%w: %s: %w", ErrBadPatch, path, err)
		}
		return err == nil
	})
	if err != nil {
		return err
	}
	m.commits = append(m.commits, patch.Clone())
	apply(m.data, patch)
	return nil
}

// Commits returns the patches committed so far.
func (m *Memory) Commits() []*setdata.PatchSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]*setdata.PatchSet, len(m.commits))
	copy(res, m.commits)
	return res
}

func apply(data *ir.Node, patch *setdata.PatchSet) {
	patch.Range(func(path string, v *ir.Node) bool {
		ir.SetPath(data, path, ir.DeepClone(v))
		return true
	})
}
