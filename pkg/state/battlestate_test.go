package state

import (
	"testing"

	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

func TestNew(t *testing.T) {
	s := New()
	if s.Phase != PhaseNotStarted {
		t.Errorf("Phase = %q, want %q", s.Phase, PhaseNotStarted)
	}
	if s.ProsecutionConfidence != 50 || s.DefenseConfidence != 50 {
		t.Errorf("confidence = %v/%v, want 50/50", s.ProsecutionConfidence, s.DefenseConfidence)
	}
	if s.Round != 0 || s.Progress != 0 || s.Outcome != OutcomeNone {
		t.Errorf("unexpected initial state: %+v", s)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() on initial state = %v", err)
	}
}

func TestDecideOutcome(t *testing.T) {
	tests := []struct {
		name        string
		prosecution float64
		defense     float64
		want        Outcome
	}{
		{"prosecution ahead", 71, 70, OutcomeProsecutionWins},
		{"defense ahead", 40, 80, OutcomeDefenseWins},
		{"tie goes to defense", 55, 55, OutcomeDefenseWins},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.ProsecutionConfidence = tt.prosecution
			s.DefenseConfidence = tt.defense
			if got := s.DecideOutcome(); got != tt.want {
				t.Errorf("DecideOutcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*BattleState)
		wantErr bool
	}{
		{"initial", func(*BattleState) {}, false},
		{"confidence too high", func(s *BattleState) { s.ProsecutionConfidence = 100.5 }, true},
		{"confidence negative", func(s *BattleState) { s.DefenseConfidence = -1 }, true},
		{"in progress without speaker", func(s *BattleState) { s.Phase = PhaseInProgress }, true},
		{"in progress with speaker", func(s *BattleState) {
			s.Phase = PhaseInProgress
			s.ActiveParty = script.PartyDefense
		}, false},
		{"outcome while in progress", func(s *BattleState) {
			s.Phase = PhaseInProgress
			s.ActiveParty = script.PartyDefense
			s.Outcome = OutcomeDefenseWins
		}, true},
		{"complete without outcome", func(s *BattleState) {
			s.Phase = PhaseComplete
			s.Progress = 100
		}, true},
		{"complete", func(s *BattleState) {
			s.Phase = PhaseComplete
			s.Progress = 100
			s.Outcome = OutcomeProsecutionWins
		}, false},
		{"unknown phase", func(s *BattleState) { s.Phase = "adjourned" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			tt.mutate(&s)
			err := s.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	for _, tc := range []struct{ in, want float64 }{
		{-3, 0}, {0, 0}, {42.5, 42.5}, {100, 100}, {117, 100},
	} {
		if got := Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAnimationFor(t *testing.T) {
	inProgress := func(active script.Party, objection bool) BattleState {
		s := New()
		s.Phase = PhaseInProgress
		s.ActiveParty = active
		s.CurrentStatement = script.Statement{Text: "...", Party: active, IsObjection: objection}
		return s
	}
	complete := New()
	complete.Phase = PhaseComplete
	complete.Progress = 100
	complete.ActiveParty = script.PartyModerator
	complete.Outcome = OutcomeProsecutionWins

	tests := []struct {
		name  string
		state BattleState
		party script.Party
		want  Animation
	}{
		{"not started", New(), script.PartyProsecution, AnimationIdle},
		{"active speaker", inProgress(script.PartyProsecution, false), script.PartyProsecution, AnimationSpeaking},
		{"active objecting", inProgress(script.PartyProsecution, true), script.PartyProsecution, AnimationObjecting},
		{"opponent thinks", inProgress(script.PartyProsecution, true), script.PartyDefense, AnimationThinking},
		{"moderator thinks", inProgress(script.PartyDefense, false), script.PartyModerator, AnimationThinking},
		{"winner celebrates", complete, script.PartyProsecution, AnimationCelebrating},
		{"loser idles", complete, script.PartyDefense, AnimationIdle},
		{"moderator delivers closing", complete, script.PartyModerator, AnimationSpeaking},
		{"none is idle", inProgress(script.PartyDefense, false), script.PartyNone, AnimationIdle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.AnimationFor(tt.party); got != tt.want {
				t.Errorf("AnimationFor(%s) = %q, want %q", tt.party, got, tt.want)
			}
		})
	}
}

func TestConfidenceLabel(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{0, "Struggling"},
		{29.9, "Struggling"},
		{30, "Building Case"},
		{69.9, "Building Case"},
		{70, "Strong Position"},
		{89.9, "Strong Position"},
		{90, "Commanding Lead"},
		{100, "Commanding Lead"},
	}
	for _, tt := range tests {
		if got := ConfidenceLabel(tt.value); got != tt.want {
			t.Errorf("ConfidenceLabel(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}
