package state

import (
	"errors"
	"fmt"

	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

// Phase is the coarse lifecycle of a battle. It only moves forward:
// NotStarted -> InProgress -> Complete. Only a restart goes back.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseInProgress Phase = "in_progress"
	PhaseComplete   Phase = "complete"
)

// Outcome is decided when the moderator closes the battle.
type Outcome string

const (
	OutcomeNone            Outcome = ""
	OutcomeProsecutionWins Outcome = "prosecution_wins"
	OutcomeDefenseWins     Outcome = "defense_wins"
)

// Winner returns the winning party, or PartyNone before a verdict.
func (o Outcome) Winner() script.Party {
	switch o {
	case OutcomeProsecutionWins:
		return script.PartyProsecution
	case OutcomeDefenseWins:
		return script.PartyDefense
	default:
		return script.PartyNone
	}
}

const (
	MinConfidence     = 0.0
	MaxConfidence     = 100.0
	InitialConfidence = 50.0
)

// BattleState is the complete, value-only state of a battle. Copies are
// independent snapshots.
type BattleState struct {
	Phase                 Phase            `json:"phase"`
	ActiveParty           script.Party     `json:"active_party"`
	ProsecutionConfidence float64          `json:"prosecution_confidence"`
	DefenseConfidence     float64          `json:"defense_confidence"`
	Progress              float64          `json:"progress"`   // 0-100
	TurnIndex             int              `json:"turn_index"` // script index of the current statement
	Round                 int              `json:"round"`
	CurrentStatement      script.Statement `json:"current_statement"`
	Outcome               Outcome          `json:"outcome"`
}

// New returns the state of a freshly constructed battle.
func New() BattleState {
	return BattleState{
		Phase:                 PhaseNotStarted,
		ActiveParty:           script.PartyNone,
		ProsecutionConfidence: InitialConfidence,
		DefenseConfidence:     InitialConfidence,
	}
}

// Confidence returns the confidence score for a counsel party.
func (s BattleState) Confidence(p script.Party) float64 {
	switch p {
	case script.PartyProsecution:
		return s.ProsecutionConfidence
	case script.PartyDefense:
		return s.DefenseConfidence
	default:
		return 0
	}
}

// DecideOutcome compares the two confidence scores. Strictly higher
// prosecution confidence wins; a tie goes to the defense.
func (s BattleState) DecideOutcome() Outcome {
	if s.ProsecutionConfidence > s.DefenseConfidence {
		return OutcomeProsecutionWins
	}
	return OutcomeDefenseWins
}

// Validate checks the structural invariants of a state.
func (s BattleState) Validate() error {
	var errs []error
	for _, c := range []struct {
		name  string
		value float64
	}{
		{"prosecution confidence", s.ProsecutionConfidence},
		{"defense confidence", s.DefenseConfidence},
		{"progress", s.Progress},
	} {
		if c.value < MinConfidence || c.value > MaxConfidence {
			errs = append(errs, fmt.Errorf("%s %.2f outside [0,100]", c.name, c.value))
		}
	}

	switch s.Phase {
	case PhaseNotStarted:
		if s.Outcome != OutcomeNone {
			errs = append(errs, errors.New("outcome set before battle started"))
		}
	case PhaseInProgress:
		if !s.ActiveParty.IsCounsel() {
			errs = append(errs, fmt.Errorf("active party %q while in progress", s.ActiveParty))
		}
		if s.Outcome != OutcomeNone {
			errs = append(errs, errors.New("outcome set while in progress"))
		}
	case PhaseComplete:
		if s.Outcome == OutcomeNone {
			errs = append(errs, errors.New("complete without outcome"))
		}
		if s.Progress != 100 {
			errs = append(errs, fmt.Errorf("complete with progress %.2f", s.Progress))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown phase %q", s.Phase))
	}
	return errors.Join(errs...)
}

// Clamp bounds v to [0,100].
func Clamp(v float64) float64 {
	return min(max(v, MinConfidence), MaxConfidence)
}
