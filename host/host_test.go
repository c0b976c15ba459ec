package host

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/setdata"
	"github.com/signadot/setdata/ir"
	"github.com/signadot/setdata/tick"
	"go.lsp.dev/jsonrpc2"
)

func mustJSON(t *testing.T, s string) *ir.Node {
	t.Helper()
	y := &ir.Node{}
	if err := y.UnmarshalJSON([]byte(s)); err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return y
}

func render(t *testing.T, v *ir.Node) string {
	t.Helper()
	d, err := v.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	return string(d)
}

func patchOf(kvs ...ir.KeyVal) *setdata.PatchSet {
	p := setdata.NewPatchSet()
	for _, kv := range kvs {
		p.Set(kv.Key, kv.Val)
	}
	return p
}

func TestMemory(t *testing.T) {
	m := NewMemory(mustJSON(t, `{"a":{"b":1}}`), nil)
	v := ir.FromInt(2)
	p := patchOf(ir.KeyVal{Key: "a.b", Val: v}, ir.KeyVal{Key: "c[1]", Val: ir.FromString("x")})
	called := false
	m.Commit(p, func() { called = true })
	if !called {
		t.Error("done not called")
	}
	if got := render(t, m.Data()); got != `{"a":{"b":2},"c":[null,"x"]}` {
		t.Errorf("state: %s", got)
	}
	if ir.GetPath(m.Data(), "a.b") == v {
		t.Error("committed value not copied")
	}
	p.Set("z", ir.Null())
	if n := m.Commits()[0].Len(); n != 2 {
		t.Errorf("recorded commit changed with the patch: %d entries", n)
	}
}

func TestMemoryTicker(t *testing.T) {
	loop := tick.New()
	m := NewMemory(nil, loop)
	called := false
	m.Commit(patchOf(ir.KeyVal{Key: "a", Val: ir.FromInt(1)}), func() { called = true })
	if called {
		t.Fatal("done called before the tick")
	}
	loop.Drain()
	if !called {
		t.Error("done not called")
	}
}

func TestOperations(t *testing.T) {
	data := mustJSON(t, `{"a":{"b":1},"l":[1,2]}`)
	p := patchOf(
		ir.KeyVal{Key: "a.b", Val: ir.FromInt(2)},
		ir.KeyVal{Key: "a.c", Val: ir.FromInt(3)},
		ir.KeyVal{Key: "l[2]", Val: ir.FromInt(3)},
		ir.KeyVal{Key: "l[5]", Val: ir.FromInt(6)},
		ir.KeyVal{Key: "x.y[0]", Val: ir.FromBool(true)},
	)
	ops, err := Operations(data, p)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, op := range ops {
		got = append(got, op.Op+" "+op.Path+" "+render(t, op.Value))
	}
	want := []string{
		"replace /a/b 2",
		"add /a/c 3",
		"add /l/2 3",
		"replace /l [1,2,3,null,null,6]",
		`add /x {"y":[true]}`,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("operations (-want +got):\n%s", diff)
	}
	if got := render(t, data); got != `{"a":{"b":1},"l":[1,2]}` {
		t.Errorf("data changed: %s", got)
	}
}

func TestJSONDoc(t *testing.T) {
	const doc = `{"a":{"b":1},"l":[1,2]}`
	j, err := NewJSONDoc([]byte(doc), nil)
	if err != nil {
		t.Fatal(err)
	}
	mem := NewMemory(mustJSON(t, doc), nil)
	p := patchOf(
		ir.KeyVal{Key: "a.b", Val: ir.FromInt(2)},
		ir.KeyVal{Key: "l[3]", Val: ir.FromString("x")},
		ir.KeyVal{Key: "n.m", Val: mustJSON(t, `{"k":[1]}`)},
	)
	called := false
	j.Commit(p, func() { called = true })
	mem.Commit(p, nil)
	if err := j.Err(); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("done not called")
	}
	if !ir.Equal(mem.Data(), j.Data()) {
		t.Errorf("json doc %s differs from %s", j.Document(), render(t, mem.Data()))
	}
}

func TestJSONDocBadPatch(t *testing.T) {
	j, err := NewJSONDoc([]byte(`{"l":[1]}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	cyclic := ir.FromKeyVals(nil)
	cyclic.SetField("self", cyclic)
	called := false
	j.Commit(patchOf(ir.KeyVal{Key: "c", Val: cyclic}), func() { called = true })
	if !errors.Is(j.Err(), ErrBadPatch) {
		t.Errorf("got error %v, want %v", j.Err(), ErrBadPatch)
	}
	if !called {
		t.Error("done not called after a failed commit")
	}
	if got := string(j.Document()); got != `{"l":[1]}` {
		t.Errorf("document changed: %s", got)
	}
	if _, err := NewJSONDoc([]byte(`[1]`), nil); err == nil {
		t.Error("expected an error for a list document")
	}
}

func TestRPC(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a, b := net.Pipe()
	srv := NewServer()
	go srv.Serve(ctx, jsonrpc2.NewConn(jsonrpc2.NewStream(a)))

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(b))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)
	defer conn.Close()

	loop := tick.New()
	r := NewRPC(ctx, conn, loop, mustJSON(t, `{"a":1}`))
	defer r.Close()
	s := setdata.New(r, loop)

	done := make(chan struct{})
	loop.NextTick(func() {
		s.RequestUpdate(setdata.Changes{"a": ir.FromInt(2), "b.c": ir.FromInt(3)}, func() { close(done) })
	})
	go loop.Run(ctx)
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("timed out waiting for the commit")
	}

	if got := render(t, r.Data()); got != `{"a":2,"b":{"c":3}}` {
		t.Errorf("local state: %s", got)
	}
	remote, err := srv.Document(r.Instance())
	if err != nil {
		t.Fatal(err)
	}
	if got := render(t, remote); got != `{"a":2,"b":{"c":3}}` {
		t.Errorf("remote state: %s", got)
	}
	fetched, err := r.Fetch(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ir.Equal(remote, fetched) {
		t.Errorf("fetched %s", render(t, fetched))
	}

	var res ir.Node
	if _, err := conn.Call(ctx, MethodGetData, &GetDataParams{Instance: "nope"}, &res); err == nil {
		t.Error("expected an error for an unknown instance")
	}
	if _, err := conn.Call(ctx, "nope", nil, &res); err == nil {
		t.Error("expected an error for an unknown method")
	}
}

func TestServerIndexRange(t *testing.T) {
	srv := NewServer()
	p := patchOf(
		ir.KeyVal{Key: "b", Val: ir.FromInt(1)},
		ir.KeyVal{Key: "a[9999999999]", Val: ir.FromInt(1)},
	)
	_, err := srv.SetData("i", p)
	if !errors.Is(err, ErrBadPatch) || !errors.Is(err, ir.ErrIndexRange) {
		t.Fatalf("got error %v, want %v", err, ir.ErrIndexRange)
	}
	doc, err := srv.Document("i")
	if err != nil {
		t.Fatal(err)
	}
	if got := render(t, doc); got != `{}` {
		t.Errorf("rejected patch applied: %s", got)
	}
	if seq, err := srv.SetData("i", patchOf(ir.KeyVal{Key: "a[2]", Val: ir.FromInt(1)})); err != nil || seq != 1 {
		t.Errorf("got seq %d, error %v", seq, err)
	}

	if _, err := Operations(ir.FromKeyVals(nil), p); !errors.Is(err, ir.ErrIndexRange) {
		t.Errorf("operations: got error %v, want %v", err, ir.ErrIndexRange)
	}
}

func TestRPCCommitDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// nothing reads the other end, so sends stall
	a, b := net.Pipe()
	defer a.Close()
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(b))
	conn.Go(ctx, jsonrpc2.MethodNotFoundHandler)

	loop := tick.New()
	r := NewRPC(ctx, conn, loop, nil)
	const n = 1000
	committed := make(chan struct{})
	completed := 0
	go func() {
		for i := 0; i < n; i++ {
			r.Commit(patchOf(ir.KeyVal{Key: "a", Val: ir.FromInt(int64(i))}), func() { completed++ })
		}
		close(committed)
	}()
	select {
	case <-committed:
	case <-ctx.Done():
		t.Fatal("Commit blocked")
	}

	r.Close()
	conn.Close()
	for completed < n {
		if ctx.Err() != nil {
			t.Fatalf("%d of %d completions ran", completed, n)
		}
		loop.Drain()
		time.Sleep(time.Millisecond)
	}
}
