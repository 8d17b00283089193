package narration

import (
	"strings"
	"time"

	"github.com/Mihir369/legal-arena-ai/pkg/sched"
)

const (
	DefaultWordsPerMinute = 170
	minUtterance          = 250 * time.Millisecond
)

// Simulated is a Synthesizer that produces no audio. Each utterance lasts as
// long as it would take to read aloud at the configured words per minute,
// scaled by the utterance rate. It lets headless servers and terminals keep
// narration-paced turns.
type Simulated struct {
	sched sched.Scheduler
	wpm   float64
	cur   *simUtterance
}

type simUtterance struct {
	remaining time.Duration
	resumedAt time.Time
	timer     sched.Handle
	paused    bool
	onEnd     func(error)
}

var _ Synthesizer = (*Simulated)(nil)

// NewSimulated returns a Simulated synthesizer. A non-positive wpm uses
// DefaultWordsPerMinute.
func NewSimulated(s sched.Scheduler, wpm float64) *Simulated {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	return &Simulated{sched: s, wpm: wpm}
}

// Duration is how long text takes to speak at rate.
func (s *Simulated) Duration(text string, rate float64) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	if rate <= 0 {
		rate = 1
	}
	d := time.Duration(float64(words) / (s.wpm * rate) * float64(time.Minute))
	return max(d, minUtterance)
}

func (s *Simulated) Speak(u Utterance, onStart func(), onEnd func(error)) {
	s.Cancel()
	cur := &simUtterance{
		remaining: s.Duration(u.Text, u.Rate),
		resumedAt: s.sched.Now(),
		onEnd:     onEnd,
	}
	s.cur = cur
	if onStart != nil {
		onStart()
	}
	if s.cur != cur {
		return
	}
	s.arm(cur)
}

func (s *Simulated) arm(cur *simUtterance) {
	cur.timer = s.sched.AfterFunc(cur.remaining, func() {
		if s.cur != cur {
			return
		}
		s.cur = nil
		if cur.onEnd != nil {
			cur.onEnd(nil)
		}
	})
}

func (s *Simulated) Pause() {
	cur := s.cur
	if cur == nil || cur.paused {
		return
	}
	cur.timer = sched.Stop(cur.timer)
	cur.remaining -= s.sched.Now().Sub(cur.resumedAt)
	if cur.remaining < 0 {
		cur.remaining = 0
	}
	cur.paused = true
}

func (s *Simulated) Resume() {
	cur := s.cur
	if cur == nil || !cur.paused {
		return
	}
	cur.paused = false
	cur.resumedAt = s.sched.Now()
	s.arm(cur)
}

func (s *Simulated) Cancel() {
	if s.cur == nil {
		return
	}
	s.cur.timer = sched.Stop(s.cur.timer)
	s.cur = nil
}

func (s *Simulated) Speaking() bool {
	return s.cur != nil
}

func (s *Simulated) Paused() bool {
	return s.cur != nil && s.cur.paused
}
