package setdata

import (
	"log/slog"
	"time"

	"github.com/signadot/setdata/debug"
	"github.com/signadot/setdata/ir"
	"github.com/signadot/setdata/libdiff"
)

// Scheduler batches update requests to a Host.
//
// Every RequestUpdate diffs the proposed changes against the state (or
// against what is already staged for the same path) and stages only the
// leaves that differ. All requests made before the next tick are
// committed together, once. When the commit completes, the completions
// of those requests run in call order, then the watcher fires.
//
// A Scheduler is not safe for concurrent use. It must be driven from
// the goroutine that runs its Ticker; completions and watch callbacks
// run there too and may issue further requests.
type Scheduler struct {
	host   Host
	ticker Ticker
	cfg    Config
	logger *slog.Logger
	differ *libdiff.Differ

	pending  *PatchSet
	queue    []func()
	requests int
	flushed  bool
	start    time.Time // latest request
	stats    Stats
}

// Stats counts scheduler activity.
type Stats struct {
	Requests      int
	Commits       int
	NativeCommits int
	Duplicates    int
	// Coalesced counts requests merged into a commit carrying more than
	// one request.
	Coalesced int
	// TimeConsuming is the total time from the last request of each
	// commit to its completion.
	TimeConsuming time.Duration
}

func New(host Host, ticker Ticker, opts ...Opt) *Scheduler {
	s := &Scheduler{
		host:    host,
		ticker:  ticker,
		pending: NewPatchSet(),
	}
	for _, opt := range opts {
		opt(&s.cfg)
	}
	s.logger = s.cfg.Logger
	if s.logger == nil {
		s.logger = debug.Logger()
	}
	s.differ = libdiff.New((*diffSink)(s))
	if s.cfg.LogNative {
		s.logger.Info("setdata scheduler installed in native mode")
	}
	return s
}

func (s *Scheduler) callConfig(opts []CallOpt) *CallConfig {
	cc := &CallConfig{}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

func (s *Scheduler) diffOptions(cc *CallConfig) libdiff.Options {
	return libdiff.Options{
		UseOldVal:   s.cfg.UseOldVal || cc.OldVal,
		UseSyncData: s.cfg.UseSyncData || cc.SyncData,
	}
}

// RequestUpdate proposes changes, keyed by path expression. done, if
// not nil, runs after the commit carrying these changes completes.
func (s *Scheduler) RequestUpdate(changes Changes, done func(), opts ...CallOpt) {
	s.start = time.Now()
	s.stats.Requests++
	cc := s.callConfig(opts)

	if s.cfg.LogNative || cc.Native {
		s.commitNative(PatchSetOf(changes), done)
		return
	}
	s.flushed = false
	if done != nil {
		s.queue = append(s.queue, done)
	}
	s.requests++
	dopts := s.diffOptions(cc)
	data := s.host.Data()
	for _, path := range changes.Paths() {
		oldVal, ok := s.pending.Get(path)
		if !ok {
			oldVal = ir.GetPath(data, path)
		}
		s.differ.Diff(changes[path], oldVal, path, dopts, false)
	}
	s.ticker.NextTick(s.performUpdate)
}

// UpdateData stages v at path without diffing and schedules a flush.
func (s *Scheduler) UpdateData(path string, v *ir.Node, opts ...CallOpt) {
	s.flushed = false
	s.updateData(path, v, s.diffOptions(s.callConfig(opts)))
	s.ticker.NextTick(s.performUpdate)
}

func (s *Scheduler) updateData(path string, v *ir.Node, opts libdiff.Options) {
	s.pending.Set(path, v)
	if opts.UseSyncData {
		ir.SetPath(s.host.Data(), path, v)
	}
	if s.cfg.Watcher != nil {
		s.cfg.Watcher.UpdateWatchedData(path, v)
	}
}

// Pending returns the patch staged for the next flush.
func (s *Scheduler) Pending() *PatchSet {
	return s.pending
}

func (s *Scheduler) Stats() Stats {
	return s.stats
}

func (s *Scheduler) commitNative(patch *PatchSet, done func()) {
	s.stats.NativeCommits++
	if s.cfg.Observer != nil {
		s.cfg.Observer.OnNative(patch.Len())
	}
	start := s.start
	s.host.Commit(patch, func() {
		if s.cfg.LogNative {
			s.recordTime(start)
		}
		if done != nil {
			runCallback("completion", done)
		}
	})
}

func (s *Scheduler) recordTime(start time.Time) time.Duration {
	d := time.Since(start)
	s.stats.TimeConsuming += d
	s.logger.Info("commit complete",
		"total", s.stats.Commits+s.stats.NativeCommits,
		"timeConsuming", s.stats.TimeConsuming)
	return d
}

// performUpdate runs once per request, on the tick after it; only the
// first run since the last request commits.
func (s *Scheduler) performUpdate() {
	if s.flushed {
		return
	}
	s.flushed = true

	if s.pending.Len() == 0 && len(s.queue) == 0 {
		s.requests = 0
		return
	}
	patch, queue, requests, start := s.pending, s.queue, s.requests, s.start
	s.pending, s.queue, s.requests = NewPatchSet(), nil, 0

	if s.cfg.LogUpdatedData {
		s.logUpdated(patch, requests)
	}
	if debug.Flush() {
		debug.Logf("flush %d fields from %d requests: %v\n", patch.Len(), requests, patch)
	}
	s.stats.Commits++
	if requests > 1 {
		s.stats.Coalesced += requests
	}
	s.host.Commit(patch, func() {
		d := time.Since(start)
		if s.cfg.LogTimeConsuming {
			d = s.recordTime(start)
		}
		if s.cfg.Observer != nil {
			s.cfg.Observer.OnCommit(patch.Len(), requests, d)
		}
		for _, done := range queue {
			runCallback("completion", done)
		}
		if s.cfg.Watcher != nil {
			s.cfg.Watcher.Trigger()
		}
	})
}

func (s *Scheduler) logUpdated(patch *PatchSet, requests int) {
	data := s.host.Data()
	s.logger.Info("merged update", "requests", requests, "fields", patch.Len())
	patch.Range(func(path string, v *ir.Node) bool {
		s.logger.Info("updated", "path", path, "change", libdiff.DescribeChange(ir.GetPath(data, path), v))
		return true
	})
}

func runCallback(op string, f func()) {
	defer debug.Recover(op)
	f()
}

// diffSink adapts a Scheduler to libdiff.Sink.
type diffSink Scheduler

func (d *diffSink) Stage(path string, v *ir.Node, opts libdiff.Options) {
	(*Scheduler)(d).updateData(path, v, opts)
}

func (d *diffSink) Native(path string, v *ir.Node) {
	s := (*Scheduler)(d)
	patch := NewPatchSet()
	patch.Set(path, v)
	s.stats.NativeCommits++
	if s.cfg.Observer != nil {
		s.cfg.Observer.OnNative(1)
	}
	s.host.Commit(patch, nil)
}

func (d *diffSink) Same(path string, v *ir.Node) {
	s := (*Scheduler)(d)
	s.stats.Duplicates++
	if s.cfg.LogDuplicateData {
		s.logger.Info("same value was found", "path", path, "value", v.ScalarString())
	}
	if s.cfg.Observer != nil {
		s.cfg.Observer.OnDuplicate(path)
	}
}
