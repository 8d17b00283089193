// Package narration speaks statements aloud through a pluggable synthesizer
// and reports when each utterance starts and ends.
package narration

import (
	"errors"
	"log/slog"

	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

// ErrUnavailable means no synthesizer is attached; narration is silent.
var ErrUnavailable = errors.New("narration unavailable")

// Utterance is a single request to the synthesizer.
type Utterance struct {
	ID     uint64       `json:"id"`
	Text   string       `json:"text"`
	Party  script.Party `json:"party"`
	Pitch  float64      `json:"pitch"`
	Rate   float64      `json:"rate"`
	Volume float64      `json:"volume"`
}

// Synthesizer is the text-to-speech capability behind a Channel. onStart and
// onEnd must be invoked on the same thread that drives the Channel. After
// Cancel, the synthesizer should stop calling back for the cancelled
// utterance; the Channel ignores stale callbacks either way.
type Synthesizer interface {
	Speak(u Utterance, onStart func(), onEnd func(err error))
	Pause()
	Resume()
	Cancel()
	Speaking() bool
	Paused() bool
}

// EventType is a narration transition.
type EventType string

const (
	EventStarted EventType = "narration.started"
	EventEnded   EventType = "narration.ended"
	EventErrored EventType = "narration.errored"
)

// Event reports a transition of the active utterance.
type Event struct {
	Type        EventType
	UtteranceID uint64
	Text        string
	Party       script.Party
	Err         error
}

// State is the observable speaking state. Ended and errored utterances both
// leave the zero State.
type State struct {
	Speaking bool         `json:"speaking"`
	Speaker  script.Party `json:"speaker"`
	Text     string       `json:"text,omitempty"`
}

// Channel narrates at most one utterance at a time. It is not safe for
// concurrent use.
type Channel struct {
	synth    Synthesizer
	settings Settings
	logger   *slog.Logger

	state       State
	nextID      uint64
	active      uint64
	activeParty script.Party
	onDone      func(error)
	observers   []observer
	nextObs     int
}

type observer struct {
	id int
	fn func(Event)
}

// NewChannel wraps synth. A nil synth yields a channel that reports
// Supported() == false and ignores every call.
func NewChannel(synth Synthesizer, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		synth:    synth,
		settings: DefaultSettings(),
		logger:   logger,
	}
}

// Supported reports whether a synthesizer is attached.
func (c *Channel) Supported() bool {
	return c.synth != nil
}

// Err returns ErrUnavailable when no synthesizer is attached.
func (c *Channel) Err() error {
	if c.synth == nil {
		return ErrUnavailable
	}
	return nil
}

// Settings returns the current settings.
func (c *Channel) Settings() Settings {
	return c.settings
}

// UpdateSettings validates and applies s. Disabling narration stops the
// active utterance. New volume and rate apply from the next utterance.
func (c *Channel) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	wasEnabled := c.settings.Enabled
	c.settings = s
	if wasEnabled && !s.Enabled {
		c.Stop()
	}
	return nil
}

// State returns the current speaking state.
func (c *Channel) State() State {
	return c.state
}

// Observe registers fn for every transition and returns a function that
// removes it.
func (c *Channel) Observe(fn func(Event)) func() {
	id := c.nextObs
	c.nextObs++
	c.observers = append(c.observers, observer{id: id, fn: fn})
	return func() {
		for i, o := range c.observers {
			if o.id == id {
				c.observers = append(c.observers[:i], c.observers[i+1:]...)
				return
			}
		}
	}
}

// Speak narrates text in party's voice, first silencing any active utterance
// without reporting its end. onDone, if non-nil, runs once when this
// utterance ends, errors or is stopped; it does not run if another Speak
// supersedes it. Speak returns the utterance ID, or 0 when nothing will be
// spoken (unsupported, disabled or empty text).
func (c *Channel) Speak(text string, party script.Party, onDone func(error)) uint64 {
	if c.synth == nil || !c.settings.Enabled || text == "" {
		return 0
	}

	if c.active != 0 {
		c.synth.Cancel()
		c.active = 0
		c.activeParty = script.PartyNone
		c.onDone = nil
		c.state = State{}
	}

	c.nextID++
	id := c.nextID
	c.active = id
	c.activeParty = party
	c.onDone = onDone

	profile := ProfileFor(party)
	u := Utterance{
		ID:     id,
		Text:   text,
		Party:  party,
		Pitch:  profile.Pitch,
		Rate:   c.settings.Rate * profile.RateFactor,
		Volume: c.settings.Volume,
	}

	c.logger.Debug("Speaking utterance", "utterance_id", id, "party", party, "rate", u.Rate)
	c.synth.Speak(u,
		func() { c.started(id, text, party) },
		func(err error) { c.ended(id, err) },
	)
	return id
}

func (c *Channel) started(id uint64, text string, party script.Party) {
	if id != c.active {
		return
	}
	c.state = State{Speaking: true, Speaker: party, Text: text}
	c.emit(Event{Type: EventStarted, UtteranceID: id, Text: text, Party: party})
}

func (c *Channel) ended(id uint64, err error) {
	if id != c.active {
		return
	}
	party := c.activeParty
	done := c.onDone
	c.active = 0
	c.activeParty = script.PartyNone
	c.onDone = nil
	c.state = State{}

	ev := Event{Type: EventEnded, UtteranceID: id, Party: party}
	if err != nil {
		c.logger.Warn("Narration failed", "utterance_id", id, "error", err)
		ev.Type = EventErrored
		ev.Err = err
	}
	c.emit(ev)
	if done != nil {
		done(err)
	}
}

// Pause pauses the active utterance. It does nothing unless the synthesizer
// is speaking and not already paused.
func (c *Channel) Pause() {
	if c.synth == nil || !c.synth.Speaking() || c.synth.Paused() {
		return
	}
	c.synth.Pause()
}

// Resume resumes a paused utterance. It does nothing unless the synthesizer
// is paused.
func (c *Channel) Resume() {
	if c.synth == nil || !c.synth.Paused() {
		return
	}
	c.synth.Resume()
}

// Stop silences the active utterance and reports it as ended.
func (c *Channel) Stop() {
	if c.synth == nil {
		return
	}
	c.synth.Cancel()
	if c.active != 0 {
		c.ended(c.active, nil)
	}
}

func (c *Channel) emit(ev Event) {
	for _, o := range c.observers {
		o.fn(ev)
	}
}
