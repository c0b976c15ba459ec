// Package metrics exports scheduler activity as prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector implements setdata.Observer.
type Collector struct {
	commits     prometheus.Counter
	fields      prometheus.Counter
	coalesced   prometheus.Counter
	native      prometheus.Counter
	duplicates  prometheus.Counter
	commitTimes prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setdata_commits_total",
			Help: "Batched commits issued to the host",
		}),
		fields: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setdata_committed_fields_total",
			Help: "Paths carried by batched commits",
		}),
		coalesced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setdata_coalesced_requests_total",
			Help: "Update requests merged into a commit with other requests",
		}),
		native: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setdata_native_commits_total",
			Help: "Commits sent without diffing or batching",
		}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "setdata_duplicate_fields_total",
			Help: "Paths skipped because the value did not change",
		}),
		commitTimes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "setdata_commit_duration_seconds",
			Help:    "Time from the last request of a batch to commit completion",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~800ms
		}),
	}
	for _, col := range []prometheus.Collector{c.commits, c.fields, c.coalesced, c.native, c.duplicates, c.commitTimes} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collector) OnCommit(fields, requests int, d time.Duration) {
	c.commits.Inc()
	c.fields.Add(float64(fields))
	if requests > 1 {
		c.coalesced.Add(float64(requests))
	}
	c.commitTimes.Observe(d.Seconds())
}

func (c *Collector) OnNative(fields int) {
	c.native.Inc()
}

func (c *Collector) OnDuplicate(path string) {
	c.duplicates.Inc()
}
