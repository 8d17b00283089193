// Package playback drives automatic turn advancement at an adjustable rate.
package playback

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Mihir369/legal-arena-ai/pkg/battle"
	"github.com/Mihir369/legal-arena-ai/pkg/sched"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
)

// DefaultBaseInterval is the delay between a ready turn and the next one at
// rate 1.
const DefaultBaseInterval = 4 * time.Second

// Rates are the supported playback rates.
var Rates = []float64{0.5, 1, 2, 4}

// ErrInvalidRate is returned for a rate outside Rates.
var ErrInvalidRate = errors.New("invalid playback rate")

// ValidateRate checks that rate is one of Rates.
func ValidateRate(rate float64) error {
	if !slices.Contains(Rates, rate) {
		return fmt.Errorf("%w: %v (supported: %v)", ErrInvalidRate, rate, Rates)
	}
	return nil
}

// Settings is the observable playback configuration.
type Settings struct {
	Running bool    `json:"running"`
	Rate    float64 `json:"rate"`
}

// Engine is the part of battle.Engine the clock drives.
type Engine interface {
	Start() bool
	Advance() bool
	Pause()
	Resume()
	Restart()
	Running() bool
	Stage() battle.TurnStage
	Snapshot() state.BattleState
	Subscribe(fn func(battle.Event)) func()
}

var _ Engine = (*battle.Engine)(nil)

// Clock schedules Engine.Advance baseInterval/rate after each turn becomes
// ready, while the engine is running and the battle is in progress. It must
// share the engine's thread.
type Clock struct {
	engine       Engine
	sched        sched.Scheduler
	baseInterval time.Duration
	rate         float64
	timer        sched.Handle
	unsubscribe  func()
	logger       *slog.Logger
}

// NewClock attaches a clock to engine. A non-positive baseInterval uses
// DefaultBaseInterval.
func NewClock(engine Engine, s sched.Scheduler, baseInterval time.Duration, logger *slog.Logger) *Clock {
	if baseInterval <= 0 {
		baseInterval = DefaultBaseInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Clock{
		engine:       engine,
		sched:        s,
		baseInterval: baseInterval,
		rate:         1,
		logger:       logger,
	}
	c.unsubscribe = engine.Subscribe(c.handle)
	return c
}

// Close detaches the clock and cancels any pending tick.
func (c *Clock) Close() {
	c.cancel()
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

func (c *Clock) handle(ev battle.Event) {
	switch ev.Type {
	case battle.EventTurnReady, battle.EventResumed:
		c.schedule()
	case battle.EventTurn, battle.EventPaused, battle.EventComplete, battle.EventRestarted:
		c.cancel()
	}
}

// Interval is the delay the next scheduled tick will use.
func (c *Clock) Interval() time.Duration {
	return time.Duration(float64(c.baseInterval) / c.rate)
}

func (c *Clock) schedule() {
	if c.timer != nil {
		return
	}
	if !c.engine.Running() || c.engine.Snapshot().Phase != state.PhaseInProgress {
		return
	}
	if c.engine.Stage() != battle.StageReady {
		return
	}
	d := c.Interval()
	c.logger.Debug("Next turn scheduled", "in", d, "rate", c.rate)
	c.timer = c.sched.AfterFunc(d, c.tick)
}

func (c *Clock) tick() {
	c.timer = nil
	c.engine.Advance()
}

func (c *Clock) cancel() {
	c.timer = sched.Stop(c.timer)
}

// Pending reports whether a tick is scheduled.
func (c *Clock) Pending() bool {
	return c.timer != nil
}

// Play starts the battle if it has not started, otherwise resumes it.
func (c *Clock) Play() bool {
	if c.engine.Snapshot().Phase == state.PhaseNotStarted {
		return c.engine.Start()
	}
	c.engine.Resume()
	return c.engine.Running()
}

// Pause stops automatic advancement and cancels the pending tick.
func (c *Clock) Pause() {
	c.engine.Pause()
}

// Restart resets the engine, which also stops the clock.
func (c *Clock) Restart() {
	c.engine.Restart()
}

// SetRate changes the playback rate. A tick that is already scheduled keeps
// its delay; the new rate applies from the next one.
func (c *Clock) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}
	c.rate = rate
	return nil
}

// Settings returns the current playback settings.
func (c *Clock) Settings() Settings {
	return Settings{Running: c.engine.Running(), Rate: c.rate}
}
