package libdiff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/setdata/ir"
)

type event struct {
	Kind string
	Path string
	Val  string
}

type recorder struct {
	events []event
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

func (r *recorder) Stage(path string, v *ir.Node, _ Options) {
	r.events = append(r.events, event{"stage", path, render(v)})
}

func (r *recorder) Native(path string, v *ir.Node) {
	r.events = append(r.events, event{"native", path, render(v)})
}

func (r *recorder) Same(path string, v *ir.Node) {
	r.events = append(r.events, event{"same", path, render(v)})
}

func (r *recorder) staged() []event {
	var res []event
	for _, e := range r.events {
		if e.Kind != "same" {
			res = append(res, e)
		}
	}
	return res
}

func mustJSON(t *testing.T, s string) *ir.Node {
	t.Helper()
	if s == "" {
		return nil
	}
	y := &ir.Node{}
	if err := y.UnmarshalJSON([]byte(s)); err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return y
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name      string
		oldVal    string
		newVal    string
		nested    bool
		useOldVal bool
		want      []event
	}{
		{
			name:   "same scalar",
			oldVal: `1`,
			newVal: `1`,
		},
		{
			name:   "changed scalar",
			oldVal: `1`,
			newVal: `2`,
			want:   []event{{"stage", "f", "2"}},
		},
		{
			name:   "absent old",
			newVal: `"x"`,
			want:   []event{{"stage", "f", `"x"`}},
		},
		{
			name:   "scalar to map",
			oldVal: `1`,
			newVal: `{"a":1}`,
			want:   []event{{"stage", "f", `{"a":1}`}},
		},
		{
			name:   "list to map",
			oldVal: `[1]`,
			newVal: `{"a":1}`,
			want:   []event{{"stage", "f", `{"a":1}`}},
		},
		{
			name:   "list shrinks",
			oldVal: `[1,2,3]`,
			newVal: `[1,2]`,
			want:   []event{{"stage", "f", `[1,2]`}},
		},
		{
			name:   "list grows",
			oldVal: `[1,2]`,
			newVal: `[1,2,3]`,
			want:   []event{{"stage", "f", `[1,2,3]`}},
		},
		{
			name:   "list same length, last to first",
			oldVal: `[1,2,3]`,
			newVal: `[9,2,8]`,
			want: []event{
				{"stage", "f[2]", "8"},
				{"stage", "f[0]", "9"},
			},
		},
		{
			name:   "empty lists",
			oldVal: `[]`,
			newVal: `[]`,
		},
		{
			name:   "map same keys",
			oldVal: `{"a":1,"b":{"c":[1,2]}}`,
			newVal: `{"a":1,"b":{"c":[1,3]}}`,
			want:   []event{{"stage", "f.b.c[1]", "3"}},
		},
		{
			name:   "map gains key",
			oldVal: `{"a":1}`,
			newVal: `{"a":1,"b":2}`,
			want:   []event{{"stage", "f", `{"a":1,"b":2}`}},
		},
		{
			name:   "map same count different keys",
			oldVal: `{"a":1,"b":2}`,
			newVal: `{"a":1,"c":3}`,
			want:   []event{{"stage", "f.c", "3"}},
		},
		{
			name:      "old values: nested list grows",
			oldVal:    `[1,2]`,
			newVal:    `[1,2,3]`,
			nested:    true,
			useOldVal: true,
			want:      []event{{"stage", "f[2]", "3"}},
		},
		{
			name:      "old values: nested list shrinks",
			oldVal:    `[1,2,3]`,
			newVal:    `[1,2]`,
			nested:    true,
			useOldVal: true,
			want:      []event{{"stage", "f", "[1,2]"}},
		},
		{
			name:      "old values: nested list becomes empty",
			oldVal:    `[1]`,
			newVal:    `[]`,
			nested:    true,
			useOldVal: true,
			want:      []event{{"stage", "f", "[]"}},
		},
		{
			name:      "old values: nested list was empty",
			oldVal:    `[]`,
			newVal:    `[1]`,
			nested:    true,
			useOldVal: true,
			want:      []event{{"stage", "f", "[1]"}},
		},
		{
			name:      "old values: same length recurses",
			oldVal:    `[1,2]`,
			newVal:    `[1,5]`,
			nested:    true,
			useOldVal: true,
			want:      []event{{"stage", "f[1]", "5"}},
		},
		{
			name:      "old values: top level grows",
			oldVal:    `[1,2]`,
			newVal:    `[1,2,3]`,
			useOldVal: true,
			want:      []event{{"stage", "f", "[1,2,3]"}},
		},
		{
			name:      "old values: nested map grows below top level",
			oldVal:    `{"m":{"a":1}}`,
			newVal:    `{"m":{"a":1,"b":2}}`,
			useOldVal: true,
			want:      []event{{"stage", "f.m.b", "2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &recorder{}
			New(r).Diff(mustJSON(t, tt.newVal), mustJSON(t, tt.oldVal), "f", Options{UseOldVal: tt.useOldVal}, tt.nested)
			if diff := cmp.Diff(tt.want, r.staged()); diff != "" {
				t.Errorf("staged mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDiffIdempotent(t *testing.T) {
	for _, s := range []string{`1`, `"s"`, `true`, `null`, `{"a":[1,{"b":2}]}`, `[[1],[2]]`} {
		t.Run(s, func(t *testing.T) {
			r := &recorder{}
			New(r).Diff(mustJSON(t, s), mustJSON(t, s), "f", Options{}, false)
			if got := r.staged(); len(got) != 0 {
				t.Errorf("expected no updates, got %v", got)
			}
		})
	}
}

func TestDiffSameReference(t *testing.T) {
	v := mustJSON(t, `{"a":1}`)

	r := &recorder{}
	New(r).Diff(v, v, "f", Options{}, false)
	want := []event{{"same", "f", `{"a":1}`}, {"native", "f", `{"a":1}`}}
	if diff := cmp.Diff(want, r.events); diff != "" {
		t.Errorf("top level (-want +got):\n%s", diff)
	}

	r = &recorder{}
	New(r).Diff(v, v, "f.g", Options{}, true)
	want = []event{{"same", "f.g", `{"a":1}`}}
	if diff := cmp.Diff(want, r.events); diff != "" {
		t.Errorf("nested (-want +got):\n%s", diff)
	}
}

func TestDiffOpaque(t *testing.T) {
	a, b := ir.FromOpaque(1), ir.FromOpaque(2)
	r := &recorder{}
	New(r).Diff(b, a, "f", Options{}, true)
	if len(r.events) != 1 || r.events[0].Kind != "stage" {
		t.Errorf("expected opaque replacement, got %v", r.events)
	}
}

func TestDescribeChange(t *testing.T) {
	tests := []struct {
		oldVal, newVal *ir.Node
		want           string
	}{
		{ir.FromString("hello x"), ir.FromString("hello y"), "hello [-x-]{+y+}"},
		{ir.FromInt(1), ir.FromInt(2), "1 -> 2"},
		{nil, ir.FromBool(true), "undefined -> true"},
	}
	for _, tt := range tests {
		if got := DescribeChange(tt.oldVal, tt.newVal); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
