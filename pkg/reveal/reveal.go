// Package reveal paces the display of a statement one character at a time,
// then holds the full text so it can be read before signalling completion.
package reveal

import (
	"time"

	"github.com/Mihir369/legal-arena-ai/pkg/sched"
)

const (
	DefaultInterval = 30 * time.Millisecond
	DefaultHold     = 2 * time.Second
)

// Stage reports where a Revealer is in its cycle.
type Stage int

const (
	StageIdle Stage = iota
	StageRevealing
	StageHolding
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageRevealing:
		return "revealing"
	case StageHolding:
		return "holding"
	case StageDone:
		return "done"
	default:
		return "idle"
	}
}

// Option configures a Revealer.
type Option func(*Revealer)

// WithInterval sets the delay between characters.
func WithInterval(d time.Duration) Option {
	return func(r *Revealer) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithHold sets how long the full text is held before completion.
func WithHold(d time.Duration) Option {
	return func(r *Revealer) {
		if d >= 0 {
			r.hold = d
		}
	}
}

// Revealer reveals one text at a time. It is not safe for concurrent use;
// all calls and callbacks happen on the scheduler's thread.
type Revealer struct {
	sched    sched.Scheduler
	interval time.Duration
	hold     time.Duration

	runes      []rune
	cursor     int
	stage      Stage
	timer      sched.Handle
	gen        uint64
	onReveal   func(string)
	onComplete func()
}

// New creates a Revealer using s for pacing.
func New(s sched.Scheduler, opts ...Option) *Revealer {
	r := &Revealer{
		sched:    s,
		interval: DefaultInterval,
		hold:     DefaultHold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start begins revealing text, replacing any reveal in progress. onReveal
// receives the visible prefix after each character; onComplete fires once,
// a hold interval after the last character. Either callback may be nil.
func (r *Revealer) Start(text string, onReveal func(string), onComplete func()) {
	r.Cancel()
	r.gen++
	r.runes = []rune(text)
	r.cursor = 0
	r.onReveal = onReveal
	r.onComplete = onComplete

	if len(r.runes) == 0 {
		r.stage = StageHolding
		r.schedule(r.hold, r.finish)
		return
	}
	r.stage = StageRevealing
	r.schedule(r.interval, r.step)
}

func (r *Revealer) schedule(d time.Duration, fn func()) {
	gen := r.gen
	r.timer = r.sched.AfterFunc(d, func() {
		if gen != r.gen {
			return
		}
		r.timer = nil
		fn()
	})
}

func (r *Revealer) step() {
	gen := r.gen
	r.cursor++
	if r.onReveal != nil {
		r.onReveal(string(r.runes[:r.cursor]))
	}
	if gen != r.gen {
		// the callback restarted or cancelled us
		return
	}
	if r.cursor >= len(r.runes) {
		r.stage = StageHolding
		r.schedule(r.hold, r.finish)
		return
	}
	r.schedule(r.interval, r.step)
}

func (r *Revealer) finish() {
	r.stage = StageDone
	cb := r.onComplete
	r.onReveal = nil
	r.onComplete = nil
	if cb != nil {
		cb()
	}
}

// Cancel abandons the current reveal. No callback fires afterwards. It reports
// whether a reveal was in progress; calling it again, or after completion,
// is harmless.
func (r *Revealer) Cancel() bool {
	r.timer = sched.Stop(r.timer)
	active := r.stage == StageRevealing || r.stage == StageHolding
	r.gen++
	r.stage = StageIdle
	r.onReveal = nil
	r.onComplete = nil
	return active
}

// Stage returns the current stage.
func (r *Revealer) Stage() Stage {
	return r.stage
}

// Visible returns the text revealed so far.
func (r *Revealer) Visible() string {
	return string(r.runes[:r.cursor])
}

// Text returns the full text being revealed.
func (r *Revealer) Text() string {
	return string(r.runes)
}
