package sched

import (
	"sync"
	"time"
)

// Manual is a deterministic Scheduler driven by Advance. Time only moves when
// the caller says so, which makes timer-heavy code testable without sleeping.
// Callbacks run on the goroutine that calls Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	seq    uint64
	timers []*manualTimer
}

type manualTimer struct {
	m    *Manual
	at   time.Time
	seq  uint64
	fn   func()
	done bool
}

var _ Scheduler = (*Manual)(nil)

// NewManual returns a Manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, fn func()) Handle {
	if d < 0 {
		d = 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

func (t *manualTimer) Cancel() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	t.m.remove(t)
	return true
}

// remove must be called with mu held.
func (m *Manual) remove(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// next pops the earliest timer due at or before deadline. Timers due at the
// same instant run in the order they were scheduled.
func (m *Manual) next(deadline time.Time) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *manualTimer
	for _, t := range m.timers {
		if t.at.After(deadline) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	if best == nil {
		return nil
	}
	best.done = true
	m.remove(best)
	if best.at.After(m.now) {
		m.now = best.at
	}
	return best
}

// Advance moves the clock forward by d, running every callback that falls due,
// including callbacks scheduled by other callbacks within the window.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	deadline := m.now.Add(d)
	m.mu.Unlock()

	for {
		t := m.next(deadline)
		if t == nil {
			break
		}
		t.fn()
	}

	m.mu.Lock()
	if deadline.After(m.now) {
		m.now = deadline
	}
	m.mu.Unlock()
}

// Step runs the single earliest pending callback, moving the clock to its
// deadline. It reports false when nothing is pending.
func (m *Manual) Step() bool {
	m.mu.Lock()
	if len(m.timers) == 0 {
		m.mu.Unlock()
		return false
	}
	var deadline time.Time
	for i, t := range m.timers {
		if i == 0 || t.at.Before(deadline) {
			deadline = t.at
		}
	}
	m.mu.Unlock()

	t := m.next(deadline)
	if t == nil {
		return false
	}
	t.fn()
	return true
}

// RunUntil steps through pending callbacks until cond holds, nothing is
// pending, or limit callbacks have run. It reports whether cond held.
func (m *Manual) RunUntil(cond func() bool, limit int) bool {
	for i := 0; i < limit; i++ {
		if cond() {
			return true
		}
		if !m.Step() {
			break
		}
	}
	return cond()
}

// Pending returns the number of scheduled callbacks that have not run.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// NextIn reports how long until the earliest pending callback.
func (m *Manual) NextIn() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.timers) == 0 {
		return 0, false
	}
	earliest := m.timers[0].at
	for _, t := range m.timers[1:] {
		if t.at.Before(earliest) {
			earliest = t.at
		}
	}
	return earliest.Sub(m.now), true
}
