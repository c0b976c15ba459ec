package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
	"go.lsp.dev/jsonrpc2"
)

const (
	MethodSetData = "setData"
	MethodGetData = "getData"
)

var ErrUnknownInstance = errors.New("unknown instance")

type SetDataParams struct {
	Instance string            `json:"instance"`
	Patch    *setdata.PatchSet `json:"patch"`
}

type SetDataResult struct {
	// Seq is the number of commits the instance has received.
	Seq int `json:"seq"`
}

type GetDataParams struct {
	Instance string `json:"instance"`
}

// RPC is a Host whose renderer is on the other end of a JSON-RPC
// connection. Each RPC is one instance to the renderer, identified by a
// random UUID.
//
// Commits are queued without blocking and sent in order by a single
// goroutine; completions, and the local mirror of the acknowledged
// state, run on the ticker.
type RPC struct {
	conn     jsonrpc2.Conn
	ticker   setdata.Ticker
	instance string
	data     *ir.Node

	mu     sync.Mutex
	calls  []rpcCall
	closed bool
	wake   chan struct{}
	stop   sync.Once
	done   chan struct{}
}

type rpcCall struct {
	params json.RawMessage
	patch  *setdata.PatchSet
	done   func()
}

// NewRPC creates an RPC host mirroring data, which is typically the
// state the renderer was started with. Sending stops when ctx is done
// or Close is called.
func NewRPC(ctx context.Context, conn jsonrpc2.Conn, ticker setdata.Ticker, data *ir.Node) *RPC {
	if data == nil {
		data = ir.FromKeyVals(nil)
	}
	r := &RPC{
		conn:     conn,
		ticker:   ticker,
		instance: uuid.NewString(),
		data:     data,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	go r.send(ctx)
	return r
}

func (r *RPC) Instance() string {
	return r.instance
}

func (r *RPC) Data() *ir.Node {
	return r.data
}

func (r *RPC) Commit(patch *setdata.PatchSet, done func()) {
	d, err := json.Marshal(&SetDataParams{Instance: r.instance, Patch: patch})
	if err != nil {
		debug.Logger().Error("encoding setData", "instance", r.instance, "error", err)
		r.finish(done)
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.finish(done)
		return
	}
	r.calls = append(r.calls, rpcCall{params: d, patch: patch.Clone(), done: done})
	r.mu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *RPC) send(ctx context.Context) {
	defer r.drop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case <-r.done:
			return
		case <-r.wake:
		}
		r.mu.Lock()
		calls := r.calls
		r.calls = nil
		r.mu.Unlock()
		for _, call := range calls {
			r.call(ctx, call)
		}
	}
}

func (r *RPC) call(ctx context.Context, call rpcCall) {
	var res SetDataResult
	_, err := r.conn.Call(ctx, MethodSetData, call.params, &res)
	r.ticker.NextTick(func() {
		if err != nil {
			debug.Logger().Error("setData failed", "instance", r.instance, "error", err)
		} else {
			apply(r.data, call.patch)
		}
		if call.done != nil {
			call.done()
		}
	})
}

// drop completes the calls still queued once sending has stopped.
func (r *RPC) drop() {
	r.mu.Lock()
	calls := r.calls
	r.calls, r.closed = nil, true
	r.mu.Unlock()
	for _, call := range calls {
		r.finish(call.done)
	}
}

func (r *RPC) finish(done func()) {
	if done != nil {
		r.ticker.NextTick(done)
	}
}

// Fetch asks the renderer for the state of this instance.
func (r *RPC) Fetch(ctx context.Context) (*ir.Node, error) {
	res := &ir.Node{}
	if _, err := r.conn.Call(ctx, MethodGetData, &GetDataParams{Instance: r.instance}, res); err != nil {
		return nil, fmt.Errorf("getData %s: %w", r.instance, err)
	}
	return res, nil
}

// Close stops sending. Commits made after Close complete without
// reaching the renderer.
func (r *RPC) Close() {
	r.stop.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.done)
	})
}
