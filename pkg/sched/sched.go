// Package sched provides revocable timers for code that runs on a single
// logical thread. Every callback scheduled through a Scheduler runs serially
// with every other callback from the same Scheduler.
package sched

import "time"

// Handle revokes a scheduled callback.
type Handle interface {
	// Cancel stops the callback from running. It reports whether the call
	// prevented the callback; cancelling twice, or after the callback ran,
	// returns false and has no effect.
	Cancel() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Handle
	Now() time.Time
}

// Stop cancels h if it is non-nil and returns nil so callers can clear their
// reference in one statement: t.timer = sched.Stop(t.timer).
func Stop(h Handle) Handle {
	if h != nil {
		h.Cancel()
	}
	return nil
}
