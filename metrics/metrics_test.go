package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		t.Fatal(err)
	}
	c.OnCommit(3, 2, 10*time.Millisecond)
	c.OnCommit(1, 1, time.Millisecond)
	c.OnNative(4)
	c.OnDuplicate("a")
	c.OnDuplicate("b")

	tests := []struct {
		name string
		col  prometheus.Collector
		want float64
	}{
		{"commits", c.commits, 2},
		{"fields", c.fields, 4},
		{"coalesced", c.coalesced, 2},
		{"native", c.native, 1},
		{"duplicates", c.duplicates, 2},
	}
	for _, tt := range tests {
		if got := testutil.ToFloat64(tt.col); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
	if n := testutil.CollectAndCount(c.commitTimes); n != 1 {
		t.Errorf("expected 1 histogram, got %d", n)
	}
	if n, err := testutil.GatherAndCount(reg); err != nil || n != 6 {
		t.Errorf("gathered %d metrics, err %v", n, err)
	}
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatal(err)
	}
	if _, err := New(reg); err == nil {
		t.Error("expected a duplicate registration error")
	}
}
