package setdata

import (
	"time"

	"github.com/signadot/setdata/ir"
)

// Host is the rendering sink a Scheduler commits to.
type Host interface {
	// Data returns the state tree root. The scheduler only reads it,
	// except in synchronous write mode.
	Data() *ir.Node
	// Commit applies patch and calls done, if not nil, at most once when
	// the patch has been applied. Hosts may apply patches
	// asynchronously.
	Commit(patch *PatchSet, done func())
}

// Ticker defers work to the next scheduling tick.
type Ticker interface {
	// NextTick runs fn once, after the current unit of work completes,
	// on the same logical thread.
	NextTick(fn func())
}

// Watcher is the reactive layer notified of staged updates.
type Watcher interface {
	UpdateWatchedData(path string, v *ir.Node)
	Trigger()
}

// Observer receives scheduler events, for metrics.
type Observer interface {
	OnCommit(fields, requests int, d time.Duration)
	OnNative(fields int)
	OnDuplicate(path string)
}
