// Package arena hosts one courtroom battle on its own event loop and exposes
// it to concurrent callers such as HTTP handlers.
package arena

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/Mihir369/legal-arena-ai/internal/config"
	"github.com/Mihir369/legal-arena-ai/internal/logger"
	"github.com/Mihir369/legal-arena-ai/internal/services/events"
	"github.com/Mihir369/legal-arena-ai/pkg/battle"
	"github.com/Mihir369/legal-arena-ai/pkg/narration"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/sched"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

const (
	outboxSize     = 64
	publishTimeout = 2 * time.Second
)

// ErrPreconditionNotMet is returned when a control action is not allowed in
// the current state. Nothing changes when it is returned.
var ErrPreconditionNotMet = errors.New("precondition not met")

// Publisher receives every battle and narration transition.
type Publisher interface {
	Publish(ctx context.Context, battleID uuid.UUID, eventType events.EventType, data any) error
	SaveSnapshot(ctx context.Context, battleID uuid.UUID, data any) error
}

// Config configures an Arena.
type Config struct {
	Script               *script.Script
	Seed                 uint64
	PlaybackBaseInterval time.Duration
	PlaybackRate         float64
	RevealInterval       time.Duration
	RevealHold           time.Duration
	Narration            narration.Settings
	WordsPerMinute       int
}

// ConfigFrom builds an arena Config from the service configuration.
func ConfigFrom(cfg *config.Config, s *script.Script) Config {
	return Config{
		Script:               s,
		Seed:                 cfg.BattleSeed,
		PlaybackBaseInterval: cfg.PlaybackBaseInterval,
		PlaybackRate:         cfg.PlaybackRate,
		RevealInterval:       cfg.RevealInterval,
		RevealHold:           cfg.RevealHold,
		Narration:            cfg.NarrationSettings(),
		WordsPerMinute:       cfg.NarrationWPM,
	}
}

type update struct {
	eventType events.EventType
	view      View
}

// Arena owns a battle engine, its playback clock and its narration channel.
// All three live on one sched.Loop; every exported method is safe for
// concurrent use.
type Arena struct {
	id        uuid.UUID
	loop      *sched.Loop
	engine    *battle.Engine
	clock     *playback.Clock
	narration *narration.Channel
	logger    *slog.Logger

	pub    Publisher
	outbox chan update

	running atomic.Bool
}

// New builds an arena. pub may be nil. Nothing moves until Run is called.
func New(cfg Config, pub Publisher, log *slog.Logger) (*Arena, error) {
	if log == nil {
		log = slog.Default()
	}
	loop := sched.NewLoop(log)

	synth := narration.NewSimulated(loop, float64(cfg.WordsPerMinute))
	channel := narration.NewChannel(synth, log)
	if err := channel.UpdateSettings(cfg.Narration); err != nil {
		return nil, err
	}

	engine, err := battle.New(battle.Options{
		Script:         cfg.Script,
		Scheduler:      loop,
		Rand:           battle.NewRand(cfg.Seed),
		Narrator:       channel,
		RevealInterval: cfg.RevealInterval,
		RevealHold:     cfg.RevealHold,
		Logger:         log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create battle: %w", err)
	}

	clock := playback.NewClock(engine, loop, cfg.PlaybackBaseInterval, log)
	if cfg.PlaybackRate != 0 {
		if err := clock.SetRate(cfg.PlaybackRate); err != nil {
			return nil, err
		}
	}

	a := &Arena{
		id:        engine.ID(),
		loop:      loop,
		engine:    engine,
		clock:     clock,
		narration: channel,
		logger:    logger.WithBattleID(log, engine.ID().String()),
		pub:       pub,
	}
	if pub != nil {
		a.outbox = make(chan update, outboxSize)
	}
	engine.Subscribe(a.onBattleEvent)
	channel.Observe(a.onNarrationEvent)
	return a, nil
}

// ID identifies the battle.
func (a *Arena) ID() uuid.UUID { return a.id }

// Run drives the battle until ctx is cancelled or Close is called. It may
// only be called once.
func (a *Arena) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return errors.New("arena: already running")
	}

	var wg sync.WaitGroup
	pubCtx, cancel := context.WithCancel(context.Background())
	if a.pub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.publishLoop(pubCtx)
		}()
	}

	a.logger.Info("Arena running", "script", a.engine.Script().Name)
	err := a.loop.Run(ctx)
	cancel()
	wg.Wait()
	a.logger.Info("Arena stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the arena.
func (a *Arena) Close() {
	a.loop.Close()
}

func (a *Arena) onBattleEvent(ev battle.Event) {
	// reveal ticks are per character; clients poll the view for them
	if ev.Type == battle.EventReveal {
		return
	}
	a.enqueue(events.EventType(ev.Type))
}

func (a *Arena) onNarrationEvent(ev narration.Event) {
	a.enqueue(events.EventType(ev.Type))
}

func (a *Arena) enqueue(t events.EventType) {
	if a.outbox == nil {
		return
	}
	select {
	case a.outbox <- update{eventType: t, view: a.view()}:
	default:
		a.logger.Warn("Event outbox full, dropping event", "event_type", t)
	}
}

// publishLoop runs off the loop goroutine so Redis latency never delays a turn.
func (a *Arena) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case u := <-a.outbox:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := a.pub.Publish(pctx, a.id, u.eventType, u.view); err != nil {
				a.logger.Warn("Failed to publish battle event", "event_type", u.eventType, "error", err)
			}
			if err := a.pub.SaveSnapshot(pctx, a.id, u.view); err != nil {
				a.logger.Warn("Failed to save battle snapshot", "error", err)
			}
			cancel()
		}
	}
}

func (a *Arena) view() View {
	return buildView(a.engine, a.clock, a.narration)
}

// do runs fn on the loop and returns the view right after it.
func (a *Arena) do(ctx context.Context, fn func() error) (View, error) {
	var (
		v     View
		opErr error
	)
	err := a.loop.Call(ctx, func() {
		if fn != nil {
			opErr = fn()
		}
		v = a.view()
	})
	if err != nil {
		return View{}, err
	}
	return v, opErr
}

func precondition(reason string) error {
	return fmt.Errorf("%w: %s", ErrPreconditionNotMet, reason)
}

// View returns the current view.
func (a *Arena) View(ctx context.Context) (View, error) {
	return a.do(ctx, nil)
}

// Upload opens the upload gate. The document content is not inspected.
func (a *Arena) Upload(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		a.engine.SetDocumentUploaded(true)
		return nil
	})
}

// Start begins the battle.
func (a *Arena) Start(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		if a.engine.Start() {
			return nil
		}
		return a.startBlocked()
	})
}

func (a *Arena) startBlocked() error {
	if !a.engine.DocumentUploaded() {
		return precondition("upload a case document first")
	}
	return precondition("battle already started")
}

// Play starts the battle, or resumes it if it has started.
func (a *Arena) Play(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		if a.clock.Play() {
			return nil
		}
		if a.engine.Snapshot().Phase == state.PhaseNotStarted {
			return a.startBlocked()
		}
		return nil
	})
}

// Advance moves to the next turn immediately.
func (a *Arena) Advance(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		if !a.engine.Advance() {
			return precondition("battle is not in progress and running")
		}
		return nil
	})
}

// Pause stops automatic advancement.
func (a *Arena) Pause(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		a.clock.Pause()
		return nil
	})
}

// Resume allows automatic advancement again.
func (a *Arena) Resume(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		a.engine.Resume()
		return nil
	})
}

// Restart returns the battle to its initial state.
func (a *Arena) Restart(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		a.clock.Restart()
		return nil
	})
}

// Replay narrates the current statement again.
func (a *Arena) Replay(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		if !a.engine.Replay() {
			return precondition("nothing to replay")
		}
		return nil
	})
}

// SetRate changes the playback rate.
func (a *Arena) SetRate(ctx context.Context, rate float64) (View, error) {
	return a.do(ctx, func() error {
		return a.clock.SetRate(rate)
	})
}

// PatchNarration applies patch to the current narration settings. Reading
// and writing happen in one loop call, so concurrent patches of different
// fields all survive.
func (a *Arena) PatchNarration(ctx context.Context, patch func(narration.Settings) narration.Settings) (View, error) {
	return a.do(ctx, func() error {
		return a.narration.UpdateSettings(patch(a.narration.Settings()))
	})
}

// PauseNarration pauses the voice only.
func (a *Arena) PauseNarration(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		a.engine.PauseNarration()
		return nil
	})
}

// ResumeNarration resumes a paused voice.
func (a *Arena) ResumeNarration(ctx context.Context) (View, error) {
	return a.do(ctx, func() error {
		a.engine.ResumeNarration()
		return nil
	})
}

// Transcript returns the statements delivered so far and a header naming
// the speakers.
func (a *Arena) Transcript(ctx context.Context) (transcript.Header, []transcript.Entry, error) {
	var (
		h       transcript.Header
		entries []transcript.Entry
	)
	err := a.loop.Call(ctx, func() {
		s := a.engine.Script()
		h = transcript.Header{
			Title: s.Name,
			Case:  s.Case,
			Speakers: map[script.Party]string{
				script.PartyProsecution: s.CounselFor(script.PartyProsecution).Name,
				script.PartyDefense:     s.CounselFor(script.PartyDefense).Name,
				script.PartyModerator:   s.CounselFor(script.PartyModerator).Name,
			},
		}
		entries = a.engine.Transcript()
	})
	return h, entries, err
}
