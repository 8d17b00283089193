package battle

import "github.com/Mihir369/legal-arena-ai/pkg/state"

// EventType identifies an engine transition.
type EventType string

const (
	EventDocumentUploaded EventType = "battle.document_uploaded"
	EventStarted          EventType = "battle.started"
	EventTurn             EventType = "battle.turn"
	EventReveal           EventType = "battle.reveal"
	EventTurnReady        EventType = "battle.turn_ready"
	EventPaused           EventType = "battle.paused"
	EventResumed          EventType = "battle.resumed"
	EventComplete         EventType = "battle.complete"
	EventRestarted        EventType = "battle.restarted"
)

// Event is delivered to observers synchronously, on the engine's thread,
// after the state change it describes.
type Event struct {
	Type     EventType
	State    state.BattleState
	Stage    TurnStage
	Running  bool
	Revealed string // visible text, for EventReveal
}

// TurnStage is the lifecycle of the current turn. A turn is ready only when
// its text has been fully revealed and held, and its narration has ended,
// failed or was never started.
type TurnStage string

const (
	StageIdle      TurnStage = "idle"
	StageRevealing TurnStage = "revealing"
	StageHolding   TurnStage = "holding"
	StageReady     TurnStage = "ready"
)

type observer struct {
	id int
	fn func(Event)
}

// Subscribe registers fn for every engine event and returns a function that
// removes it. Observers must not block.
func (e *Engine) Subscribe(fn func(Event)) func() {
	id := e.nextObs
	e.nextObs++
	e.observers = append(e.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range e.observers {
			if o.id == id {
				e.observers = append(e.observers[:i], e.observers[i+1:]...)
				return
			}
		}
	}
}

func (e *Engine) emit(t EventType) {
	e.emitEvent(Event{Type: t})
}

func (e *Engine) emitEvent(ev Event) {
	ev.State = e.state
	ev.Stage = e.stage
	ev.Running = e.running
	for _, o := range e.observers {
		o.fn(ev)
	}
}
