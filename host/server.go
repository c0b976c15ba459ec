package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/signadot/setdata"
	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
	"go.lsp.dev/jsonrpc2"
)

// Server is the renderer end of RPC: it keeps one state tree per
// instance and applies the patches it receives.
type Server struct {
	mu   sync.Mutex
	docs map[string]*Memory
	// OnCommit, if set, is called after each applied patch.
	OnCommit func(instance string, seq int, patch *setdata.PatchSet)
}

func NewServer() *Server {
	return &Server{docs: map[string]*Memory{}}
}

// SetData applies patch to the state of instance, creating it if needed,
// and returns the number of patches the instance has received. A patch
// indexing a list out of range is rejected with ErrBadPatch.
func (s *Server) SetData(instance string, patch *setdata.PatchSet) (int, error) {
	s.mu.Lock()
	doc := s.docs[instance]
	if doc == nil {
		doc = NewMemory(nil, nil)
		s.docs[instance] = doc
	}
	s.mu.Unlock()
	if err := doc.TryCommit(patch); err != nil {
		return 0, err
	}
	seq := len(doc.Commits())
	if s.OnCommit != nil {
		s.OnCommit(instance, seq, patch)
	}
	return seq, nil
}

// Document returns a copy of the state of instance.
func (s *Server) Document(instance string) (*ir.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.docs[instance]
	if doc == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstance, instance)
	}
	return ir.DeepClone(doc.Data()), nil
}

func (s *Server) Instances() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]string, 0, len(s.docs))
	for k := range s.docs {
		res = append(res, k)
	}
	return res
}

func (s *Server) Handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case MethodSetData:
			var params SetDataParams
			if err := json.Unmarshal(req.Params(), &params); err != nil || params.Patch == nil {
				if err == nil {
					err = fmt.Errorf("missing patch")
				}
				return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, fmt.Errorf("%w: %w", ErrBadPatch, err).Error()))
			}
			seq, err := s.SetData(params.Instance, params.Patch)
			if err != nil {
				return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
			}
			if debug.Flush() {
				debug.Logf("setData %s #%d: %v\n", params.Instance, seq, params.Patch)
			}
			return reply(ctx, &SetDataResult{Seq: seq}, nil)
		case MethodGetData:
			var params GetDataParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
			}
			doc, err := s.Document(params.Instance)
			if err != nil {
				return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidParams, err.Error()))
			}
			return reply(ctx, doc, nil)
		}
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// Serve handles requests on conn until it closes or ctx is done.
func (s *Server) Serve(ctx context.Context, conn jsonrpc2.Conn) error {
	conn.Go(ctx, s.Handler())
	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
		return conn.Err()
	}
}
