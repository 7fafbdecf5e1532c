// Package debounce runs at most one pending action at a time. Scheduling a
// new action cancels the previous one, whether it is still waiting for its
// delay or already running.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Timer is the part of *time.Timer the Debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc arranges for f to run after d, like time.AfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Task is a handle on one scheduled action.
type Task struct {
	ctx    context.Context
	cancel context.CancelFunc
	timer  Timer

	once sync.Once
	done chan struct{}
}

// Cancel aborts the task. A task waiting for its delay never runs; a running
// task sees its context canceled.
func (t *Task) Cancel() {
	t.cancel()
	if t.timer != nil && t.timer.Stop() {
		t.finish()
	}
}

// Canceled reports whether the task has been superseded or canceled.
func (t *Task) Canceled() bool {
	return t.ctx.Err() != nil
}

// Done is closed once the action has returned or the task was canceled
// before it started.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) finish() {
	t.once.Do(func() { close(t.done) })
}

// Debouncer owns at most one pending Task.
type Debouncer struct {
	delay time.Duration
	after AfterFunc

	mu      sync.Mutex
	current *Task
}

// New returns a Debouncer waiting delay before running an action.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, after: realAfterFunc}
}

// WithAfterFunc swaps the timer source, mainly for tests.
func (d *Debouncer) WithAfterFunc(af AfterFunc) *Debouncer {
	d.after = af
	return d
}

// Delay returns the configured quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending task and arranges for fn to run once the
// delay elapses without another Schedule or Cancel. fn receives a context
// that is canceled if the task is superseded.
func (d *Debouncer) Schedule(parent context.Context, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{ctx: ctx, cancel: cancel, done: make(chan struct{})}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		d.current.Cancel()
	}
	t.timer = d.after(d.delay, func() {
		defer t.finish()
		defer d.release(t)
		if ctx.Err() != nil {
			return
		}
		fn(ctx)
	})
	d.current = t

	return t
}

// Cancel aborts the pending task, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != nil {
		d.current.Cancel()
		d.current = nil
	}
}

// Pending reports whether a task is scheduled or running.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current != nil
}

func (d *Debouncer) release(t *Task) {
	d.mu.Lock()
	if d.current == t {
		d.current = nil
	}
	d.mu.Unlock()
	t.cancel()
}
