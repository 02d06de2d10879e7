package schedule

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler whose time only moves when Advance is called.
// Due callbacks run synchronously on the caller's goroutine, in due order.
type Manual struct {
	mu    sync.Mutex
	now   time.Time
	seq   int
	queue []*manualEntry
}

type manualEntry struct {
	at   time.Time
	seq  int
	task *Task
	fn   func()
}

func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set jumps the clock without running anything. Used for curfew tests.
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = t
}

func (m *Manual) After(d time.Duration, fn func()) *Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := newTask()
	m.seq++
	m.queue = append(m.queue, &manualEntry{at: m.now.Add(d), seq: m.seq, task: t, fn: fn})
	return t
}

// Pending counts scheduled tasks that have not run or been cancelled.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.queue {
		if e.task.Pending() {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, running every task that falls due.
// Tasks scheduled by callbacks run too if they become due within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		e := m.popDue(target)
		if e == nil {
			break
		}
		e.task.run(e.fn)
	}

	m.mu.Lock()
	if m.now.Before(target) {
		m.now = target
	}
	m.mu.Unlock()
}

func (m *Manual) popDue(target time.Time) *manualEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	sort.SliceStable(m.queue, func(i, j int) bool {
		if m.queue[i].at.Equal(m.queue[j].at) {
			return m.queue[i].seq < m.queue[j].seq
		}
		return m.queue[i].at.Before(m.queue[j].at)
	})
	return m.popDueLocked(target)
}

func (m *Manual) popDueLocked(target time.Time) *manualEntry {
	for len(m.queue) > 0 {
		e := m.queue[0]
		if e.at.After(target) {
			return nil
		}
		m.queue = m.queue[1:]
		if !e.task.Pending() {
			continue
		}
		if e.at.After(m.now) {
			m.now = e.at
		}
		return e
	}
	return nil
}
