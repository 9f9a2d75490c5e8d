// Package loop provides the single-threaded event loop that owns all UI and
// panel state.
//
// Every callback that touches panel state runs as a task on the loop. Blocking
// work (adapter requests) runs on its own goroutine through Async, and its
// result is posted back as a new task, so state is only ever mutated from the
// loop goroutine.
package loop

import (
	"context"
	"errors"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dshills/infopanel/internal/logging"
)

// ErrStopped is returned by Run when the loop was stopped with Stop.
var ErrStopped = errors.New("loop stopped")

// ErrAlreadyRunning is returned when Run is called twice.
var ErrAlreadyRunning = errors.New("loop already running")

// Loop runs posted tasks one at a time in FIFO order.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	stopped chan struct{}
	stop    sync.Once
	running atomic.Bool

	// pending counts Async work that has not posted its continuation yet.
	pending sync.WaitGroup

	logger *logging.Logger

	// afterTask runs after every task, e.g. to flush the screen.
	afterTask func()

	executed atomic.Uint64
	panicked atomic.Uint64
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger used to report recovered panics.
func WithLogger(l *logging.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithAfterTask installs a hook that runs on the loop after each task.
func WithAfterTask(fn func()) Option {
	return func(lp *Loop) {
		lp.afterTask = fn
	}
}

// New creates a loop. Call Run to start processing.
func New(opts ...Option) *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Post queues fn for execution on the loop. It never blocks and returns false
// if the loop has been stopped.
func (l *Loop) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	select {
	case <-l.stopped:
		return false
	default:
	}

	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Async runs work on a new goroutine. If work returns a non-nil continuation,
// the continuation is posted to the loop.
func (l *Loop) Async(work func() func()) {
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()

		var cont func()
		func() {
			defer l.recoverTask("async")
			cont = work()
		}()

		if cont != nil {
			l.Post(cont)
		}
	}()
}

// Run processes tasks until ctx is cancelled or Stop is called.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	for {
		l.drain()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stopped:
			l.drain()
			return ErrStopped
		case <-l.wake:
		}
	}
}

// RunPending executes every queued task on the calling goroutine and returns
// the number executed. Used by tests and by hosts that drive the loop
// manually.
func (l *Loop) RunPending() int {
	return l.drain()
}

// Wait blocks until all outstanding Async work has posted its continuation.
func (l *Loop) Wait() {
	l.pending.Wait()
}

// Stop makes Run return after the tasks already queued have executed.
func (l *Loop) Stop() {
	l.stop.Do(func() {
		close(l.stopped)
	})
}

// Len returns the number of queued tasks.
func (l *Loop) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stats returns the number of tasks executed and the number that panicked.
func (l *Loop) Stats() (executed, panicked uint64) {
	return l.executed.Load(), l.panicked.Load()
}

func (l *Loop) drain() int {
	n := 0
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.mu.Unlock()
			return n
		}
		task := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]
		l.mu.Unlock()

		l.execute(task)
		n++
	}
}

func (l *Loop) execute(task func()) {
	defer l.executed.Add(1)
	func() {
		defer l.recoverTask("task")
		task()
	}()

	if l.afterTask != nil {
		func() {
			defer l.recoverTask("after-task hook")
			l.afterTask()
		}()
	}
}

func (l *Loop) recoverTask(kind string) {
	if r := recover(); r != nil {
		l.panicked.Add(1)
		l.logger.Error("recovered panic in %s: %v\n%s", kind, r, debug.Stack())
	}
}
