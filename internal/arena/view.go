package arena

import (
	"github.com/Mihir369/legal-arena-ai/pkg/battle"
	"github.com/Mihir369/legal-arena-ai/pkg/narration"
	"github.com/Mihir369/legal-arena-ai/pkg/playback"
	"github.com/Mihir369/legal-arena-ai/pkg/script"
	"github.com/Mihir369/legal-arena-ai/pkg/state"
)

// View is everything a client needs to draw the courtroom.
type View struct {
	BattleID         string            `json:"battle_id"`
	Title            string            `json:"title"`
	Case             string            `json:"case,omitempty"`
	Rounds           int               `json:"rounds"`
	State            state.BattleState `json:"state"`
	Stage            battle.TurnStage  `json:"stage"`
	Revealed         string            `json:"revealed"`
	DocumentUploaded bool              `json:"document_uploaded"`
	Prosecution      CounselView       `json:"prosecution"`
	Defense          CounselView       `json:"defense"`
	Moderator        SpeakerView       `json:"moderator"`
	Playback         playback.Settings `json:"playback"`
	Narration        NarrationView     `json:"narration"`
}

// SpeakerView is one character on screen.
type SpeakerView struct {
	Party     script.Party    `json:"party"`
	Name      string          `json:"name"`
	Title     string          `json:"title,omitempty"`
	Animation state.Animation `json:"animation"`
}

// CounselView adds the confidence meter and exhibits to a counsel.
type CounselView struct {
	SpeakerView
	Confidence      float64           `json:"confidence"`
	ConfidenceLabel string            `json:"confidence_label"`
	Evidence        []script.Evidence `json:"evidence,omitempty"`
}

type NarrationView struct {
	Supported bool               `json:"supported"`
	Settings  narration.Settings `json:"settings"`
	State     narration.State    `json:"state"`
}

// Speaker returns the view of party, or false for PartyNone.
func (v View) Speaker(party script.Party) (SpeakerView, bool) {
	switch party {
	case script.PartyProsecution:
		return v.Prosecution.SpeakerView, true
	case script.PartyDefense:
		return v.Defense.SpeakerView, true
	case script.PartyModerator:
		return v.Moderator, true
	default:
		return SpeakerView{}, false
	}
}

func buildView(e *battle.Engine, c *playback.Clock, ch *narration.Channel) View {
	s := e.Script()
	snap := e.Snapshot()

	v := View{
		BattleID:         e.ID().String(),
		Title:            s.Name,
		Case:             s.Case,
		Rounds:           s.Rounds(),
		State:            snap,
		Stage:            e.Stage(),
		Revealed:         e.Revealed(),
		DocumentUploaded: e.DocumentUploaded(),
		Prosecution:      counselView(e, snap, script.PartyProsecution),
		Defense:          counselView(e, snap, script.PartyDefense),
		Moderator:        speakerView(s.CounselFor(script.PartyModerator).Name, "", snap, script.PartyModerator),
		Playback:         c.Settings(),
		Narration: NarrationView{
			Supported: ch.Supported(),
			Settings:  ch.Settings(),
			State:     ch.State(),
		},
	}
	return v
}

func counselView(e *battle.Engine, snap state.BattleState, party script.Party) CounselView {
	spec := e.Script().CounselFor(party)
	if c := e.Counsel(party); c != nil {
		spec = c.Spec
	}
	confidence := snap.Confidence(party)
	return CounselView{
		SpeakerView:     speakerView(spec.Name, spec.Title, snap, party),
		Confidence:      confidence,
		ConfidenceLabel: state.ConfidenceLabel(confidence),
		Evidence:        e.Script().EvidenceFor(party),
	}
}

func speakerView(name, title string, snap state.BattleState, party script.Party) SpeakerView {
	return SpeakerView{
		Party:     party,
		Name:      name,
		Title:     title,
		Animation: snap.AnimationFor(party),
	}
}
