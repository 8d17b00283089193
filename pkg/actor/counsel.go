package actor

import (
	"fmt"
	"maps"

	"github.com/jwebster45206/d20"
)

const (
	// AttrPersuasion is the attribute that biases confidence swings.
	AttrPersuasion = "persuasion"

	counselHP = 100
	counselAC = 10

	minBias = -1
	maxBias = 3
)

// CounselSpec is the serializable profile of a counsel, as written in a script.
type CounselSpec struct {
	Name       string         `json:"name" yaml:"name"`
	Title      string         `json:"title,omitempty" yaml:"title,omitempty"`
	Attributes map[string]int `json:"attributes,omitempty" yaml:"attributes,omitempty"` // d20-style scores, 10 is average
}

// Counsel is the runtime representation of a counsel.
type Counsel struct {
	Spec  CounselSpec
	Actor *d20.Actor // Built at runtime from CounselSpec
}

// NewCounsel builds a Counsel and its d20.Actor from a spec.
func NewCounsel(id string, spec CounselSpec) (*Counsel, error) {
	if id == "" {
		return nil, fmt.Errorf("counsel id cannot be empty")
	}

	attrs := map[string]int{AttrPersuasion: 10}
	maps.Copy(attrs, spec.Attributes)

	a, err := d20.NewActor(id).
		WithHP(counselHP).
		WithAC(counselAC).
		WithAttributes(attrs).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	return &Counsel{Spec: spec, Actor: a}, nil
}

// Modifier converts an attribute score into a d20 ability modifier,
// floor((score-10)/2). Unknown attributes have no modifier.
func (c *Counsel) Modifier(attr string) int {
	if c == nil || c.Actor == nil {
		return 0
	}
	score, ok := c.Actor.Attribute(attr)
	if !ok {
		return 0
	}
	diff := score - 10
	if diff < 0 {
		return (diff - 1) / 2
	}
	return diff / 2
}

// Bias is the confidence bonus added to every swing for this counsel. It is
// bounded so the expected swing stays positive and small.
func (c *Counsel) Bias() float64 {
	return float64(min(max(c.Modifier(AttrPersuasion), minBias), maxBias))
}
