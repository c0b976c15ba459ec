package watch

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
)

func mustJSON(t *testing.T, s string) *ir.Node {
	t.Helper()
	y := &ir.Node{}
	if err := y.UnmarshalJSON([]byte(s)); err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return y
}

func render(v *ir.Node) string {
	if v == nil {
		return "undefined"
	}
	d, err := v.MarshalJSON()
	if err != nil {
		return err.Error()
	}
	return string(d)
}

type firing struct {
	Path     string
	New, Old string
}

func recordTo(fs *[]firing, path string) Callback {
	return func(newVal, oldVal *ir.Node) {
		*fs = append(*fs, firing{path, render(newVal), render(oldVal)})
	}
}

func TestSiblingIsolation(t *testing.T) {
	tests := []struct {
		name string
		path string
		val  string
		want []firing
	}{
		{
			name: "sibling",
			path: "a.c",
			val:  `5`,
		},
		{
			name: "unrelated deeper path",
			path: "a.c.d",
			val:  `5`,
		},
		{
			name: "other root key",
			path: "x",
			val:  `5`,
		},
		{
			name: "self",
			path: "a.b",
			val:  `{"d":7}`,
			want: []firing{{"a.b", `{"d":7}`, `{"d":1}`}},
		},
		{
			name: "descendant",
			path: "a.b.d",
			val:  `2`,
			want: []firing{{"a.b", `{"d":2}`, `{"d":1}`}},
		},
		{
			name: "ancestor",
			path: "a",
			val:  `{"b":{"d":3}}`,
			want: []firing{{"a.b", `{"d":3}`, `{"d":1}`}},
		},
		{
			name: "ancestor removing the path",
			path: "a",
			val:  `{}`,
			want: []firing{{"a.b", "undefined", `{"d":1}`}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := mustJSON(t, `{"a":{"b":{"d":1},"c":0},"x":0}`)
			var fs []firing
			w := New(data, map[string]Callback{"a.b": recordTo(&fs, "a.b")})
			w.UpdateWatchedData(tt.path, mustJSON(t, tt.val))
			w.Trigger()
			if diff := cmp.Diff(tt.want, fs); diff != "" {
				t.Errorf("firings (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOldValueKeptAcrossWrites(t *testing.T) {
	data := mustJSON(t, `{"a":{"n":1}}`)
	var fs []firing
	w := New(data, map[string]Callback{"a.n": recordTo(&fs, "a.n")})
	w.UpdateWatchedData("a.n", ir.FromInt(2))
	w.UpdateWatchedData("a.n", ir.FromInt(3))
	w.Trigger()
	w.Trigger()
	want := []firing{{"a.n", "3", "1"}}
	if diff := cmp.Diff(want, fs); diff != "" {
		t.Errorf("firings (-want +got):\n%s", diff)
	}

	w.UpdateWatchedData("a.n", ir.FromInt(4))
	w.Trigger()
	want = append(want, firing{"a.n", "4", "3"})
	if diff := cmp.Diff(want, fs); diff != "" {
		t.Errorf("firings (-want +got):\n%s", diff)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	data := mustJSON(t, `{"a":{"n":1}}`)
	var fs []firing
	w := New(data, map[string]Callback{"a.n": recordTo(&fs, "a.n")})
	ir.SetPath(data, "a.n", ir.FromInt(9))
	v := ir.FromInt(2)
	w.UpdateWatchedData("a.n", v)
	v.Int64 = nil
	w.Trigger()
	want := []firing{{"a.n", "2", "1"}}
	if diff := cmp.Diff(want, fs); diff != "" {
		t.Errorf("firings (-want +got):\n%s", diff)
	}
}

func TestSharedRootKey(t *testing.T) {
	data := mustJSON(t, `{"a":{"b":1,"c":1},"z":[1]}`)
	var fs []firing
	w := New(data, map[string]Callback{
		"a.b":  recordTo(&fs, "a.b"),
		"a.c":  recordTo(&fs, "a.c"),
		"z[0]": recordTo(&fs, "z[0]"),
	})
	if diff := cmp.Diff([]string{"a.b", "a.c", "z[0]"}, w.Paths()); diff != "" {
		t.Errorf("paths (-want +got):\n%s", diff)
	}
	w.UpdateWatchedData("a.c", ir.FromInt(2))
	w.UpdateWatchedData("z[0]", ir.FromInt(2))
	w.UpdateWatchedData("a.b", ir.FromInt(2))
	w.Trigger()
	want := []firing{
		{"a.b", "2", "1"},
		{"a.c", "2", "1"},
		{"z[0]", "2", "1"},
	}
	if diff := cmp.Diff(want, fs); diff != "" {
		t.Errorf("firings (-want +got):\n%s", diff)
	}
}

func TestAddOrder(t *testing.T) {
	data := mustJSON(t, `{"a":1,"b":1}`)
	var fs []firing
	w := New(data, nil)
	w.Add("b", recordTo(&fs, "b"))
	w.Add("a", recordTo(&fs, "a"))
	w.UpdateWatchedData("a", ir.FromInt(2))
	w.UpdateWatchedData("b", ir.FromInt(2))
	w.Trigger()
	var got []string
	for _, f := range fs {
		got = append(got, f.Path)
	}
	if diff := cmp.Diff([]string{"b", "a"}, got); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if d := w.Descriptors(); len(d) != 2 || d[0].Fields[0] != "b" {
		t.Errorf("descriptors: %+v", d)
	}
}

func TestCallbackPanic(t *testing.T) {
	debug.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer debug.SetLogger(nil)
	data := mustJSON(t, `{"a":1,"b":1}`)
	var fs []firing
	w := New(data, map[string]Callback{
		"a": func(_, _ *ir.Node) { panic("boom") },
		"b": recordTo(&fs, "b"),
	})
	w.UpdateWatchedData("a", ir.FromInt(2))
	w.UpdateWatchedData("b", ir.FromInt(2))
	w.Trigger()
	if len(fs) != 1 {
		t.Errorf("expected b to fire after a panicked, got %v", fs)
	}
}
