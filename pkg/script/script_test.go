package script

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stmts(texts ...string) []Statement {
	out := make([]Statement, len(texts))
	for i, t := range texts {
		out[i] = Statement{Text: t}
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name        string
		prosecution []Statement
		defense     []Statement
		closing     string
		wantErr     error
		wantProblem string
	}{
		{
			name:        "equal lengths",
			prosecution: stmts("p1", "p2"),
			defense:     stmts("d1", "d2"),
			closing:     "verdict",
		},
		{
			name:        "prosecution one longer",
			prosecution: stmts("p1", "p2"),
			defense:     stmts("d1"),
			closing:     "verdict",
		},
		{
			name:        "empty prosecution",
			prosecution: nil,
			defense:     stmts("d1"),
			closing:     "verdict",
			wantErr:     ErrEmptyScript,
			wantProblem: "prosecution has no statements",
		},
		{
			name:        "empty defense",
			prosecution: stmts("p1"),
			defense:     nil,
			closing:     "verdict",
			wantErr:     ErrEmptyScript,
			wantProblem: "defense has no statements",
		},
		{
			name:        "defense longer",
			prosecution: stmts("p1"),
			defense:     stmts("d1", "d2"),
			closing:     "verdict",
			wantErr:     ErrInvalidScript,
			wantProblem: "unbalanced",
		},
		{
			name:        "missing closing",
			prosecution: stmts("p1"),
			defense:     stmts("d1"),
			wantErr:     ErrInvalidScript,
			wantProblem: "closing line is empty",
		},
		{
			name:        "blank statement",
			prosecution: stmts("p1", ""),
			defense:     stmts("d1", "d2"),
			closing:     "verdict",
			wantErr:     ErrInvalidScript,
			wantProblem: "prosecution[1] has no text",
		},
		{
			name:        "mis-tagged statement",
			prosecution: []Statement{{Text: "p1", Party: PartyDefense}},
			defense:     stmts("d1"),
			closing:     "verdict",
			wantErr:     ErrInvalidScript,
			wantProblem: `prosecution[0] is tagged "defense"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.name, tt.prosecution, tt.defense, tt.closing)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, len(tt.prosecution), s.Rounds())
				for _, st := range s.Prosecution {
					assert.Equal(t, PartyProsecution, st.Party)
				}
				for _, st := range s.Defense {
					assert.Equal(t, PartyDefense, st.Party)
				}
				return
			}

			require.Error(t, err)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, ErrInvalidScript)

			var cerr *ConfigurationError
			require.True(t, errors.As(err, &cerr))
			assert.Contains(t, cerr.Error(), tt.wantProblem)
		})
	}
}

func TestNew_DoesNotAliasInput(t *testing.T) {
	p := stmts("p1")
	s, err := New("alias", p, stmts("d1"), "verdict")
	require.NoError(t, err)

	p[0].Text = "changed"
	assert.Equal(t, "p1", s.Prosecution[0].Text)
}

func TestValidate_Evidence(t *testing.T) {
	s := &Script{
		Prosecution: stmts("p1"),
		Defense:     stmts("d1"),
		Closing:     "verdict",
		Evidence: []Evidence{
			{ID: "1", Title: "Contract", Type: EvidenceDocument, Party: PartyProsecution, Strength: 4},
			{ID: "1", Title: "Duplicate", Type: EvidenceDocument, Party: PartyDefense, Strength: 2},
			{ID: "3", Title: "Too strong", Type: EvidencePrecedent, Party: PartyDefense, Strength: 6},
			{ID: "4", Title: "Bad type", Type: "rumor", Party: PartyDefense, Strength: 2},
			{ID: "5", Title: "Judge's own", Type: EvidenceTestimony, Party: PartyModerator, Strength: 2},
		},
	}
	s.normalize()

	err := s.Validate()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmptyScript)

	var cerr *ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Len(t, cerr.Problems, 4)
	msg := err.Error()
	assert.Contains(t, msg, `evidence id "1" is duplicated`)
	assert.Contains(t, msg, `evidence "3" strength 6`)
	assert.Contains(t, msg, `unknown type "rumor"`)
	assert.Contains(t, msg, `evidence "5" belongs to "moderator"`)
}

func TestValidate_Nil(t *testing.T) {
	var s *Script
	err := s.Validate()
	assert.ErrorIs(t, err, ErrEmptyScript)
}

func TestScript_Statement(t *testing.T) {
	s, err := New("lookup", stmts("p1", "p2"), stmts("d1"), "verdict")
	require.NoError(t, err)

	tests := []struct {
		party  Party
		index  int
		want   string
		wantOK bool
	}{
		{PartyProsecution, 0, "p1", true},
		{PartyProsecution, 1, "p2", true},
		{PartyProsecution, 2, "", false},
		{PartyDefense, 0, "d1", true},
		{PartyDefense, 1, "", false},
		{PartyDefense, -1, "", false},
		{PartyModerator, 0, "", false},
	}
	for _, tt := range tests {
		got, ok := s.Statement(tt.party, tt.index)
		assert.Equal(t, tt.wantOK, ok, "%s[%d]", tt.party, tt.index)
		assert.Equal(t, tt.want, got.Text, "%s[%d]", tt.party, tt.index)
	}

	closing := s.ClosingStatement()
	assert.Equal(t, PartyModerator, closing.Party)
	assert.Equal(t, "verdict", closing.Text)
}

func TestDefault(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "The Cold Shower Dispute", s.Name)
	assert.Len(t, s.Prosecution, 7)
	assert.Len(t, s.Defense, 6)
	assert.Equal(t, DefaultClosing, s.Closing)

	objections := 0
	for _, st := range s.Prosecution {
		if st.IsObjection {
			objections++
		}
	}
	assert.Equal(t, 1, objections)

	assert.Equal(t, "Arjun Sharma", s.CounselFor(PartyProsecution).Name)
	assert.Equal(t, "Priya Singh", s.CounselFor(PartyDefense).Name)
	assert.Equal(t, "The Court", s.CounselFor(PartyModerator).Name)

	assert.Len(t, s.EvidenceFor(PartyProsecution), 3)
	assert.Len(t, s.EvidenceFor(PartyDefense), 3)
	assert.Empty(t, s.EvidenceFor(PartyModerator))
}

func TestParse(t *testing.T) {
	jsonScript := `{
		"name": "Tiny",
		"prosecution": [{"text": "Objection!", "objection": true}],
		"defense": [{"text": "Overruled, surely."}],
		"closing": "Sustained."
	}`
	yamlScript := `
name: Tiny
prosecution:
  - text: "Objection!"
    objection: true
defense:
  - text: "Overruled, surely."
closing: Sustained.
`

	for _, tc := range []struct {
		format Format
		data   string
	}{
		{FormatJSON, jsonScript},
		{FormatYAML, yamlScript},
	} {
		t.Run(string(tc.format), func(t *testing.T) {
			s, err := Parse([]byte(tc.data), tc.format)
			require.NoError(t, err)
			assert.Equal(t, "Tiny", s.Name)
			require.Len(t, s.Prosecution, 1)
			assert.True(t, s.Prosecution[0].IsObjection)
			assert.Equal(t, PartyProsecution, s.Prosecution[0].Party)
			assert.Equal(t, PartyDefense, s.Defense[0].Party)
		})
	}
}

func TestParse_StrictFields(t *testing.T) {
	_, err := Parse([]byte(`{"name":"x","prosecution":[],"defense":[],"closing":"c","judge":[]}`), FormatJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "judge")

	_, err = Parse([]byte("name: x\nwitnesses: []\n"), FormatYAML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "witnesses")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "tiny.yml")
	require.NoError(t, os.WriteFile(good, []byte("prosecution: [{text: a}]\ndefense: [{text: b}]\nclosing: c\n"), 0o644))
	s, err := Load(good)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Rounds())

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"prosecution":[],"defense":[],"closing":"c"}`), 0o644))
	_, err = Load(empty)
	assert.ErrorIs(t, err, ErrEmptyScript)
	assert.True(t, strings.Contains(err.Error(), "empty.json"))

	_, err = Load(filepath.Join(dir, "script.txt"))
	assert.ErrorContains(t, err, "unsupported script extension")

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOrDefault(t *testing.T) {
	s, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 7, s.Rounds())
}

func TestParseParty(t *testing.T) {
	tests := []struct {
		input string
		want  Party
	}{
		{"prosecution", PartyProsecution},
		{"defense", PartyDefense},
		{" Defense ", PartyDefense},
		{"MODERATOR", PartyModerator},
		{"judge", PartyModerator},
		{"jury", PartyNone},
		{"", PartyNone},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseParty(tt.input))
		})
	}

	assert.True(t, PartyModerator.Valid())
	assert.False(t, PartyNone.Valid())
	assert.Equal(t, PartyDefense, PartyProsecution.Opponent())
	assert.Equal(t, PartyNone, PartyModerator.Opponent())
	assert.Equal(t, "none", PartyNone.String())
}
