package script

// EvidenceType classifies an exhibit.
type EvidenceType string

const (
	EvidenceDocument  EvidenceType = "document"
	EvidencePrecedent EvidenceType = "precedent"
	EvidenceTestimony EvidenceType = "testimony"
)

const (
	MinEvidenceStrength = 1
	MaxEvidenceStrength = 5
)

// Evidence is an exhibit shown alongside a side's arguments. It has no effect
// on scoring; renderers display it next to the counsel it belongs to.
type Evidence struct {
	ID       string       `json:"id" yaml:"id"`
	Title    string       `json:"title" yaml:"title"`
	Type     EvidenceType `json:"type" yaml:"type"`
	Party    Party        `json:"party" yaml:"party"`
	Strength int          `json:"strength" yaml:"strength"` // 1-5
}

func (t EvidenceType) valid() bool {
	switch t {
	case EvidenceDocument, EvidencePrecedent, EvidenceTestimony:
		return true
	}
	return false
}
