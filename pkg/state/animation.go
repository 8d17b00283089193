package state

import "github.com/Mihir369/legal-arena-ai/pkg/script"

// Animation is the per-character presentation state derived from a snapshot.
type Animation string

const (
	AnimationIdle        Animation = "idle"
	AnimationSpeaking    Animation = "speaking"
	AnimationObjecting   Animation = "objecting"
	AnimationThinking    Animation = "thinking"
	AnimationCelebrating Animation = "celebrating"
)

// AnimationFor derives how party should be drawn. The active counsel speaks
// (or objects, when the statement is tagged as an objection); the moderator
// speaks while delivering the closing line; the winner celebrates once the
// battle is complete; everyone else thinks while the battle runs.
func (s BattleState) AnimationFor(party script.Party) Animation {
	if party == script.PartyNone {
		return AnimationIdle
	}
	if party == s.ActiveParty {
		switch {
		case s.Phase == PhaseInProgress && s.CurrentStatement.IsObjection:
			return AnimationObjecting
		case s.Phase == PhaseInProgress:
			return AnimationSpeaking
		case s.Phase == PhaseComplete && party == script.PartyModerator:
			return AnimationSpeaking
		}
	}
	if s.Phase == PhaseComplete && party == s.Outcome.Winner() {
		return AnimationCelebrating
	}
	if s.Phase == PhaseInProgress {
		return AnimationThinking
	}
	return AnimationIdle
}

// ConfidenceLabel describes a confidence score for display.
func ConfidenceLabel(v float64) string {
	switch {
	case v < 30:
		return "Struggling"
	case v < 70:
		return "Building Case"
	case v < 90:
		return "Strong Position"
	default:
		return "Commanding Lead"
	}
}
