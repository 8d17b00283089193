package script

import "strings"

// Party identifies a participant in a battle.
type Party string

const (
	PartyNone        Party = ""
	PartyProsecution Party = "prosecution"
	PartyDefense     Party = "defense"
	PartyModerator   Party = "moderator"
)

// IsCounsel reports whether the party argues a side (prosecution or defense).
func (p Party) IsCounsel() bool {
	return p == PartyProsecution || p == PartyDefense
}

// Valid reports whether p is one of the known parties, excluding PartyNone.
func (p Party) Valid() bool {
	return p.IsCounsel() || p == PartyModerator
}

// Opponent returns the opposing counsel. Non-counsel parties have no opponent.
func (p Party) Opponent() Party {
	switch p {
	case PartyProsecution:
		return PartyDefense
	case PartyDefense:
		return PartyProsecution
	default:
		return PartyNone
	}
}

func (p Party) String() string {
	if p == PartyNone {
		return "none"
	}
	return string(p)
}

// ParseParty converts user input into a Party, ignoring case and
// surrounding space. Unknown values return PartyNone.
func ParseParty(s string) Party {
	p := Party(strings.ToLower(strings.TrimSpace(s)))
	if p == "judge" {
		return PartyModerator
	}
	if !p.Valid() {
		return PartyNone
	}
	return p
}
