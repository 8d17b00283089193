// Package battle runs a scripted courtroom debate: it alternates counsel
// statements, moves confidence scores, paces each turn through text reveal
// and narration, and decides the outcome when the moderator closes.
//
// An Engine is not safe for concurrent use. Every method and every callback
// it schedules must run on the thread that drives its Scheduler.
package battle

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Mihir369/legal-arena-ai/pkg/actor"
	"github.com/Mihir369/legal-arena-ai/pkg/reveal"
	"github.com/Mihir369/legal-arena-ai/pkg/sched"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
	"github.com/Mihir369/legal-arena-ai/pkg/transcript"
)

// Confidence swings are (r - swingCenter) * swingScale + counsel bias, so a
// uniform r in [0,1) moves a side between -8 and +12 before bias.
const (
	swingCenter = 0.4
	swingScale  = 20.0
)

// ErrNoScheduler is returned by New when Options.Scheduler is nil.
var ErrNoScheduler = errors.New("battle: scheduler is required")

// Narrator speaks statements. Speak returns 0 when nothing will be spoken;
// otherwise onDone runs once when the utterance ends or fails, unless a
// later Speak supersedes it.
type Narrator interface {
	Speak(text string, party script.Party, onDone func(error)) uint64
	Pause()
	Resume()
	Stop()
}

// Options configure an Engine.
type Options struct {
	Script         *script.Script
	Scheduler      sched.Scheduler
	Rand           Rand     // nil uses a crypto-seeded source
	Narrator       Narrator // nil runs silently
	RevealInterval time.Duration
	RevealHold     time.Duration
	Logger         *slog.Logger
}

// Engine owns the state of one battle.
type Engine struct {
	id       uuid.UUID
	script   *script.Script
	sched    sched.Scheduler
	rand     Rand
	narrator Narrator
	revealer *reveal.Revealer
	counsel  map[script.Party]*actor.Counsel
	logger   *slog.Logger

	state    state.BattleState
	running  bool
	uploaded bool

	stage         TurnStage
	turn          uint64
	revealed      string
	revealDone    bool
	narrationDone bool

	transcript []transcript.Entry
	observers  []observer
	nextObs    int
}

// New validates the script and builds an engine in the NotStarted phase.
func New(opts Options) (*Engine, error) {
	if err := opts.Script.Validate(); err != nil {
		return nil, err
	}
	if opts.Scheduler == nil {
		return nil, ErrNoScheduler
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = NewRand(0)
	}

	counsel := make(map[script.Party]*actor.Counsel, 2)
	for _, p := range []script.Party{script.PartyProsecution, script.PartyDefense} {
		c, err := actor.NewCounsel(string(p), opts.Script.CounselFor(p))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s counsel: %w", p, err)
		}
		counsel[p] = c
	}

	var revealOpts []reveal.Option
	if opts.RevealInterval > 0 {
		revealOpts = append(revealOpts, reveal.WithInterval(opts.RevealInterval))
	}
	if opts.RevealHold > 0 {
		revealOpts = append(revealOpts, reveal.WithHold(opts.RevealHold))
	}

	e := &Engine{
		id:       uuid.New(),
		script:   opts.Script,
		sched:    opts.Scheduler,
		rand:     opts.Rand,
		narrator: opts.Narrator,
		revealer: reveal.New(opts.Scheduler, revealOpts...),
		counsel:  counsel,
		state:    state.New(),
		stage:    StageIdle,
	}
	e.logger = opts.Logger.With("battle_id", e.id.String())
	return e, nil
}

// ID identifies the engine for its whole lifetime, across restarts.
func (e *Engine) ID() uuid.UUID { return e.id }

// Script returns the script the engine was built with.
func (e *Engine) Script() *script.Script { return e.script }

// Counsel returns the runtime counsel for a side.
func (e *Engine) Counsel(p script.Party) *actor.Counsel { return e.counsel[p] }

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() state.BattleState { return e.state }

// Running reports whether automatic advancement is allowed.
func (e *Engine) Running() bool { return e.running }

// Stage returns the lifecycle stage of the current turn.
func (e *Engine) Stage() TurnStage { return e.stage }

// Revealed returns the part of the current statement revealed so far.
func (e *Engine) Revealed() string { return e.revealed }

// DocumentUploaded reports the state of the upload gate.
func (e *Engine) DocumentUploaded() bool { return e.uploaded }

// SetDocumentUploaded opens or closes the gate Start requires. The document
// itself is never inspected.
func (e *Engine) SetDocumentUploaded(uploaded bool) {
	if e.uploaded == uploaded {
		return
	}
	e.uploaded = uploaded
	e.logger.Info("Document upload gate changed", "uploaded", uploaded)
	e.emit(EventDocumentUploaded)
}

// Transcript returns every statement delivered since the last restart.
func (e *Engine) Transcript() []transcript.Entry {
	return append([]transcript.Entry(nil), e.transcript...)
}

// Start opens the battle with the first prosecution statement and sets the
// engine running. It reports false, changing nothing, if the battle has
// already started or the upload gate is closed.
func (e *Engine) Start() bool {
	if e.state.Phase != state.PhaseNotStarted {
		e.logger.Debug("Start ignored", "reason", "already started", "phase", e.state.Phase)
		return false
	}
	if !e.uploaded {
		e.logger.Debug("Start ignored", "reason", "document not uploaded")
		return false
	}

	first, _ := e.script.Statement(script.PartyProsecution, 0)
	e.state.Phase = state.PhaseInProgress
	e.state.ActiveParty = script.PartyProsecution
	e.state.CurrentStatement = first
	e.state.TurnIndex = 0
	e.state.Round = 1
	e.running = true

	e.logger.Info("Battle started", "script", e.script.Name, "rounds", e.script.Rounds())
	e.emit(EventStarted)
	e.beginTurn()
	return true
}

// Advance moves to the next turn. It reports false, changing nothing, unless
// the battle is in progress and running. Past the last statement the
// moderator closes the battle and the outcome is decided.
func (e *Engine) Advance() bool {
	if e.state.Phase != state.PhaseInProgress || !e.running {
		return false
	}

	next := e.state.ActiveParty.Opponent()
	idx := e.state.TurnIndex
	if next == script.PartyProsecution {
		idx++
	}
	stmt, ok := e.script.Statement(next, idx)
	if !ok {
		e.complete()
		return true
	}

	e.state.ActiveParty = next
	e.state.TurnIndex = idx
	e.state.CurrentStatement = stmt
	if next == script.PartyProsecution {
		e.state.Round++
	}
	progress := min(100, float64(idx)/float64(e.script.Rounds())*100)
	e.state.Progress = max(e.state.Progress, progress)
	e.state.ProsecutionConfidence = state.Clamp(e.state.ProsecutionConfidence + e.swing(script.PartyProsecution))
	e.state.DefenseConfidence = state.Clamp(e.state.DefenseConfidence + e.swing(script.PartyDefense))

	e.logger.Debug("Turn advanced",
		"party", next,
		"index", idx,
		"round", e.state.Round,
		"prosecution_confidence", e.state.ProsecutionConfidence,
		"defense_confidence", e.state.DefenseConfidence)
	e.beginTurn()
	return true
}

func (e *Engine) swing(p script.Party) float64 {
	return (e.rand.Float64()-swingCenter)*swingScale + e.counsel[p].Bias()
}

func (e *Engine) complete() {
	e.state.ActiveParty = script.PartyModerator
	e.state.CurrentStatement = e.script.ClosingStatement()
	e.state.Phase = state.PhaseComplete
	e.state.Progress = 100
	e.state.Outcome = e.state.DecideOutcome()

	e.logger.Info("Battle complete",
		"outcome", e.state.Outcome,
		"prosecution_confidence", e.state.ProsecutionConfidence,
		"defense_confidence", e.state.DefenseConfidence)
	e.beginTurn()
	e.emit(EventComplete)
}

// Pause stops automatic advancement. Only the running flag changes.
func (e *Engine) Pause() {
	if !e.running {
		return
	}
	e.running = false
	e.emit(EventPaused)
}

// Resume allows automatic advancement again.
func (e *Engine) Resume() {
	if e.running {
		return
	}
	e.running = true
	e.emit(EventResumed)
}

// Restart discards the battle and returns to the freshly built state. The
// current reveal and narration are cancelled, the engine stops running and
// the transcript is cleared. The upload gate is kept.
func (e *Engine) Restart() {
	e.turn++
	e.revealer.Cancel()
	if e.narrator != nil {
		e.narrator.Stop()
	}
	e.state = state.New()
	e.running = false
	e.stage = StageIdle
	e.revealed = ""
	e.revealDone = false
	e.narrationDone = false
	e.transcript = nil

	e.logger.Info("Battle restarted")
	e.emit(EventRestarted)
}

// Replay narrates the current statement again. While the turn is still
// in flight, the turn waits for the replay to finish.
func (e *Engine) Replay() bool {
	if e.narrator == nil || e.stage == StageIdle {
		return false
	}
	stmt := e.state.CurrentStatement
	if e.stage == StageReady {
		return e.narrator.Speak(stmt.Text, stmt.Party, nil) != 0
	}
	e.narrationDone = false
	if e.narrator.Speak(stmt.Text, stmt.Party, e.narrationCallback(e.turn)) == 0 {
		e.narrationDone = true
		e.checkReady()
		return false
	}
	return true
}

// PauseNarration pauses the voice without affecting turn advancement.
func (e *Engine) PauseNarration() {
	if e.narrator != nil {
		e.narrator.Pause()
	}
}

// ResumeNarration resumes a paused voice.
func (e *Engine) ResumeNarration() {
	if e.narrator != nil {
		e.narrator.Resume()
	}
}

// beginTurn records the current statement and starts its reveal and
// narration. The turn becomes ready when both have finished.
func (e *Engine) beginTurn() {
	e.turn++
	turn := e.turn
	stmt := e.state.CurrentStatement

	e.transcript = append(e.transcript, transcript.NewEntry(stmt, e.state.Round, e.sched.Now()))
	e.stage = StageRevealing
	e.revealed = ""
	e.revealDone = false
	e.narrationDone = false
	e.emit(EventTurn)
	if turn != e.turn {
		return
	}

	if e.narrator == nil || e.narrator.Speak(stmt.Text, stmt.Party, e.narrationCallback(turn)) == 0 {
		e.narrationDone = true
	}
	if turn != e.turn {
		return
	}

	e.revealer.Start(stmt.Text,
		func(visible string) { e.onReveal(turn, visible) },
		func() { e.onRevealComplete(turn) },
	)
}

func (e *Engine) narrationCallback(turn uint64) func(error) {
	return func(err error) {
		if turn != e.turn {
			return
		}
		if err != nil {
			e.logger.Warn("Narration failed, continuing without voice", "error", err)
		}
		e.narrationDone = true
		e.checkReady()
	}
}

func (e *Engine) onReveal(turn uint64, visible string) {
	if turn != e.turn {
		return
	}
	e.revealed = visible
	if visible == e.revealer.Text() {
		e.stage = StageHolding
	}
	e.emitEvent(Event{Type: EventReveal, Revealed: visible})
}

func (e *Engine) onRevealComplete(turn uint64) {
	if turn != e.turn {
		return
	}
	e.revealDone = true
	if e.stage == StageRevealing {
		e.stage = StageHolding
	}
	e.checkReady()
}

func (e *Engine) checkReady() {
	if e.stage != StageRevealing && e.stage != StageHolding {
		return
	}
	if !e.revealDone || !e.narrationDone {
		return
	}
	e.stage = StageReady
	e.emit(EventTurnReady)
}
