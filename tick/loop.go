// Package tick provides a single goroutine task queue, the scheduling
// tick of a setdata.Scheduler.
package tick

import (
	"context"
	"sync"

	"github.com/signadot/setdata/debug"
)

// Loop runs queued tasks one at a time, in the order they were queued.
// Tasks may be queued from any goroutine; they always run on the
// goroutine calling Run or Drain.
type Loop struct {
	mu    sync.Mutex
	tasks []func()
	wake  chan struct{}
}

func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// NextTick queues fn to run after the task currently running, and after
// every task queued before it.
func (l *Loop) NextTick(fn func()) {
	l.mu.Lock()
	l.tasks = append(l.tasks, fn)
	l.mu.Unlock()
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Post hands fn over from another goroutine.
func (l *Loop) Post(fn func()) {
	l.NextTick(fn)
}

func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.tasks) == 0 {
		return nil
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn
}

// Drain runs tasks, including the ones they queue, until none are left
// and returns how many ran.
func (l *Loop) Drain() int {
	n := 0
	for fn := l.pop(); fn != nil; fn = l.pop() {
		run(fn)
		n++
	}
	return n
}

// Run runs tasks as they are queued until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		l.Drain()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func run(fn func()) {
	defer debug.Recover("tick task")
	fn()
}
