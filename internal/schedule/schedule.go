// Package schedule runs the simulated latencies of the session core as
// cancellable tasks, and supplies the wall clock the curfew check reads.
package schedule

import (
	"sync"
	"time"
)

// Clock tells the current local time.
type Clock interface {
	Now() time.Time
}

// Scheduler runs fn once after d unless the returned task is cancelled first.
type Scheduler interface {
	Clock
	After(d time.Duration, fn func()) *Task
}

const (
	taskPending = iota
	taskRunning
	taskDone
	taskCancelled
)

// Task is a handle on a scheduled callback.
type Task struct {
	mu    sync.Mutex
	state int
	stop  func() bool
	done  chan struct{}
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

// Cancel invalidates the task. It reports true when fn will never run;
// false means fn already started or finished.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != taskPending {
		return t.state == taskCancelled
	}
	t.state = taskCancelled
	if t.stop != nil {
		t.stop()
	}
	close(t.done)
	return true
}

// Pending reports whether the task has neither run nor been cancelled.
func (t *Task) Pending() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == taskPending
}

// Done is closed once the task has run or was cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

func (t *Task) run(fn func()) {
	t.mu.Lock()
	if t.state != taskPending {
		t.mu.Unlock()
		return
	}
	t.state = taskRunning
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.state = taskDone
		t.mu.Unlock()
		close(t.done)
	}()
	fn()
}

// Timer is the production Scheduler backed by time.AfterFunc.
type Timer struct{}

func NewTimer() Timer { return Timer{} }

func (Timer) Now() time.Time { return time.Now() }

func (Timer) After(d time.Duration, fn func()) *Task {
	t := newTask()
	t.mu.Lock()
	defer t.mu.Unlock()
	timer := time.AfterFunc(d, func() { t.run(fn) })
	t.stop = timer.Stop
	return t
}
