// Package transcript records every statement made during a battle and
// renders the record for export.
package transcript

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Mihir369/legal-arena-ai/pkg/script"
)

// Entry is one statement as it was delivered.
type Entry struct {
	ID          uuid.UUID    `json:"id"`
	Party       script.Party `json:"party"`
	Text        string       `json:"text"`
	Round       int          `json:"round"`
	IsObjection bool         `json:"objection,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// NewEntry creates an entry for stmt delivered at ts.
func NewEntry(stmt script.Statement, round int, ts time.Time) Entry {
	return Entry{
		ID:          uuid.New(),
		Party:       stmt.Party,
		Text:        stmt.Text,
		Round:       round,
		IsObjection: stmt.IsObjection,
		Timestamp:   ts,
	}
}

// Format selects an export rendering.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts a format name, defaulting to text when s is empty.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown transcript format %q", s)
	}
}

// ContentType is the MIME type of a rendered format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Extension is the file extension for a rendered format, with the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// Header describes the battle a transcript belongs to.
type Header struct {
	Title    string                  `json:"title"`
	Case     string                  `json:"case,omitempty"`
	Speakers map[script.Party]string `json:"speakers,omitempty"` // display names by party
}

// Write renders entries in format f.
func Write(w io.Writer, f Format, h Header, entries []Entry) error {
	switch f {
	case FormatText:
		return writeText(w, h, entries)
	case FormatMarkdown:
		return writeMarkdown(w, h, entries)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Header
			Entries []Entry `json:"entries"`
		}{h, entries})
	default:
		return fmt.Errorf("unknown transcript format %q", f)
	}
}

// SpeakerName is the display name of party: the name from h when known,
// otherwise the title-cased party.
func (h Header) SpeakerName(party script.Party) string {
	if name := h.Speakers[party]; name != "" {
		return name
	}
	return cases.Title(language.English).String(party.String())
}

func writeText(w io.Writer, h Header, entries []Entry) error {
	var b strings.Builder
	if h.Title != "" {
		b.WriteString(strings.ToUpper(h.Title) + "\n")
	}
	if h.Case != "" {
		b.WriteString(h.Case + "\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "[%s] Round %d - %s: %s\n",
			e.Timestamp.Format(time.TimeOnly), e.Round, h.SpeakerName(e.Party), e.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdown(w io.Writer, h Header, entries []Entry) error {
	var b strings.Builder
	title := h.Title
	if title == "" {
		title = "Battle Transcript"
	}
	b.WriteString("# " + title + "\n\n")
	if h.Case != "" {
		b.WriteString("> " + h.Case + "\n\n")
	}

	section := ""
	for _, e := range entries {
		heading := fmt.Sprintf("## Round %d", e.Round)
		if e.Party == script.PartyModerator {
			heading = "## Ruling"
		}
		if heading != section {
			section = heading
			b.WriteString(heading + "\n\n")
		}
		marker := ""
		if e.IsObjection {
			marker = " _(objection)_"
		}
		fmt.Fprintf(&b, "**%s**%s (%s): %s\n\n",
			h.SpeakerName(e.Party), marker, e.Timestamp.Format(time.TimeOnly), e.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
