package narration

import (
	"errors"
	"fmt"

	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

// Profile is the static voice used for a party.
type Profile struct {
	Pitch      float64 `json:"pitch"`
	RateFactor float64 `json:"rate_factor"` // multiplied by Settings.Rate
}

var profiles = map[script.Party]Profile{
	script.PartyProsecution: {Pitch: 0.9, RateFactor: 1.0},
	script.PartyDefense:     {Pitch: 1.2, RateFactor: 1.1},
	script.PartyModerator:   {Pitch: 0.8, RateFactor: 0.9},
}

// ProfileFor returns the voice profile of party. Unknown parties get a
// neutral voice.
func ProfileFor(party script.Party) Profile {
	if p, ok := profiles[party]; ok {
		return p
	}
	return Profile{Pitch: 1.0, RateFactor: 1.0}
}

// ErrInvalidSettings is wrapped by Settings.Validate failures.
var ErrInvalidSettings = errors.New("invalid narration settings")

// Settings control narration for every party.
type Settings struct {
	Enabled bool    `json:"enabled"`
	Volume  float64 `json:"volume"` // 0-1
	Rate    float64 `json:"rate"`   // base speaking rate, 1 is normal
}

// DefaultSettings returns narration enabled at 80% volume and normal rate.
func DefaultSettings() Settings {
	return Settings{Enabled: true, Volume: 0.8, Rate: 1.0}
}

func (s Settings) Validate() error {
	if s.Volume < 0 || s.Volume > 1 {
		return fmt.Errorf("%w: volume %.2f outside [0,1]", ErrInvalidSettings, s.Volume)
	}
	if s.Rate <= 0 {
		return fmt.Errorf("%w: rate %.2f must be positive", ErrInvalidSettings, s.Rate)
	}
	return nil
}
