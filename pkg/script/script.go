package script

import (
	"fmt"

	"github.com/Mihir369/legal-arena-ai/pkg/actor"
)

// DefaultClosing is used by the embedded script when the moderator rules.
const DefaultClosing = "After careful deliberation, I have reached my verdict..."

// Statement is one scripted line. Objection is set when the script is written
// so renderers never need to inspect the text.
type Statement struct {
	Text        string `json:"text" yaml:"text"`
	Party       Party  `json:"party,omitempty" yaml:"party,omitempty"`
	IsObjection bool   `json:"objection,omitempty" yaml:"objection,omitempty"`
}

// IsZero reports whether the statement is empty.
func (s Statement) IsZero() bool {
	return s.Text == "" && s.Party == PartyNone && !s.IsObjection
}

// Script is the immutable turn script for a battle: one ordered sequence of
// statements per side and a closing line for the moderator.
type Script struct {
	Name        string                      `json:"name" yaml:"name"`
	Case        string                      `json:"case,omitempty" yaml:"case,omitempty"` // short description of the dispute
	Prosecution []Statement                 `json:"prosecution" yaml:"prosecution"`
	Defense     []Statement                 `json:"defense" yaml:"defense"`
	Closing     string                      `json:"closing" yaml:"closing"`
	Counsel     map[Party]actor.CounselSpec `json:"counsel,omitempty" yaml:"counsel,omitempty"`
	Evidence    []Evidence                  `json:"evidence,omitempty" yaml:"evidence,omitempty"`
}

// New builds and validates a script from plain statement lists.
func New(name string, prosecution, defense []Statement, closing string) (*Script, error) {
	s := &Script{
		Name:        name,
		Prosecution: append([]Statement(nil), prosecution...),
		Defense:     append([]Statement(nil), defense...),
		Closing:     closing,
	}
	s.normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// normalize fills in party tags left empty by script authors.
func (s *Script) normalize() {
	for i := range s.Prosecution {
		if s.Prosecution[i].Party == PartyNone {
			s.Prosecution[i].Party = PartyProsecution
		}
	}
	for i := range s.Defense {
		if s.Defense[i].Party == PartyNone {
			s.Defense[i].Party = PartyDefense
		}
	}
}

// Validate checks that the script can drive a battle from start to verdict.
// All problems are reported together in a *ConfigurationError.
func (s *Script) Validate() error {
	cerr := &ConfigurationError{}
	if s == nil {
		cerr.empty = true
		cerr.add("script is nil")
		return cerr
	}

	if len(s.Prosecution) == 0 {
		cerr.empty = true
		cerr.add("prosecution has no statements")
	}
	if len(s.Defense) == 0 {
		cerr.empty = true
		cerr.add("defense has no statements")
	}
	if !cerr.empty {
		// Defense[i] answers Prosecution[i]; prosecution may get one extra
		// rebuttal before the moderator closes.
		p, d := len(s.Prosecution), len(s.Defense)
		if d != p && d != p-1 {
			cerr.add(fmt.Sprintf("side lengths %d/%d are unbalanced: defense must have as many statements as prosecution or one fewer", p, d))
		}
	}
	validateStatements(cerr, PartyProsecution, s.Prosecution)
	validateStatements(cerr, PartyDefense, s.Defense)

	if s.Closing == "" {
		cerr.add("closing line is empty")
	}

	for party := range s.Counsel {
		if !party.IsCounsel() {
			cerr.add(fmt.Sprintf("counsel entry for %q is not a counsel party", party))
		}
	}

	seen := make(map[string]bool, len(s.Evidence))
	for i, e := range s.Evidence {
		if e.ID == "" {
			cerr.add(fmt.Sprintf("evidence[%d] has no id", i))
		} else if seen[e.ID] {
			cerr.add(fmt.Sprintf("evidence id %q is duplicated", e.ID))
		}
		seen[e.ID] = true
		if !e.Type.valid() {
			cerr.add(fmt.Sprintf("evidence %q has unknown type %q", e.ID, e.Type))
		}
		if !e.Party.IsCounsel() {
			cerr.add(fmt.Sprintf("evidence %q belongs to %q, want prosecution or defense", e.ID, e.Party))
		}
		if e.Strength < MinEvidenceStrength || e.Strength > MaxEvidenceStrength {
			cerr.add(fmt.Sprintf("evidence %q strength %d is outside %d-%d", e.ID, e.Strength, MinEvidenceStrength, MaxEvidenceStrength))
		}
	}

	return cerr.orNil()
}

func validateStatements(cerr *ConfigurationError, party Party, stmts []Statement) {
	for i, st := range stmts {
		if st.Text == "" {
			cerr.add(fmt.Sprintf("%s[%d] has no text", party, i))
		}
		if st.Party != party {
			cerr.add(fmt.Sprintf("%s[%d] is tagged %q", party, i, st.Party))
		}
	}
}

// Rounds is the number of prosecution statements, which bounds battle length.
func (s *Script) Rounds() int {
	return len(s.Prosecution)
}

// Statement looks up the i-th statement for a counsel party.
func (s *Script) Statement(party Party, i int) (Statement, bool) {
	var seq []Statement
	switch party {
	case PartyProsecution:
		seq = s.Prosecution
	case PartyDefense:
		seq = s.Defense
	default:
		return Statement{}, false
	}
	if i < 0 || i >= len(seq) {
		return Statement{}, false
	}
	return seq[i], true
}

// ClosingStatement returns the moderator's closing line as a statement.
func (s *Script) ClosingStatement() Statement {
	return Statement{Text: s.Closing, Party: PartyModerator}
}

// EvidenceFor returns the exhibits belonging to party, in script order.
func (s *Script) EvidenceFor(party Party) []Evidence {
	var out []Evidence
	for _, e := range s.Evidence {
		if e.Party == party {
			out = append(out, e)
		}
	}
	return out
}

// CounselFor returns the counsel profile for party, falling back to a
// generic name when the script does not define one.
func (s *Script) CounselFor(party Party) actor.CounselSpec {
	if spec, ok := s.Counsel[party]; ok {
		if spec.Name == "" {
			spec.Name = defaultCounselName(party)
		}
		return spec
	}
	return actor.CounselSpec{Name: defaultCounselName(party)}
}

func defaultCounselName(party Party) string {
	switch party {
	case PartyProsecution:
		return "Prosecution"
	case PartyDefense:
		return "Defense"
	case PartyModerator:
		return "The Court"
	default:
		return ""
	}
}
