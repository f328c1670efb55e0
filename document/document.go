/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package document holds the persisted scoreboard state: an ordered list of
// players, serialized as one indented JSON array.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Position is a committed pixel offset of a card, relative to the board.
type Position struct {
	Left float64
	Top  float64
}

// Player is a single scored entity on the board.
type Player struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Score int       `json:"score"`
	Color *string   `json:"color"`
	Pos   *Position `json:"pos"`
}

// Document is the complete persisted state.
type Document []Player

type wirePosition struct {
	Left json.RawMessage `json:"left"`
	Top  json.RawMessage `json:"top"`
}

// MarshalJSON writes positions as CSS pixel strings, the format stored by
// the browser client.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Left string `json:"left"`
		Top  string `json:"top"`
	}{
		Left: pixels(p.Left),
		Top:  pixels(p.Top),
	})
}

func (p *Position) UnmarshalJSON(data []byte) error {
	var w wirePosition
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	left, err := parsePixels(w.Left)
	if err != nil {
		return fmt.Errorf("pos.left: %w", err)
	}

	top, err := parsePixels(w.Top)
	if err != nil {
		return fmt.Errorf("pos.top: %w", err)
	}

	p.Left, p.Top = left, top

	return nil
}

// UnmarshalJSON is lenient per field: a score that is not a number reads
// as 0, a color that is not a string and a position that does not parse
// read as nil. Only a value that is not a JSON object is an error.
func (p *Player) UnmarshalJSON(data []byte) error {
	var w struct {
		ID    json.RawMessage `json:"id"`
		Name  json.RawMessage `json:"name"`
		Score json.RawMessage `json:"score"`
		Color json.RawMessage `json:"color"`
		Pos   json.RawMessage `json:"pos"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	score, err := parseScore(w.Score)
	if err != nil {
		score = 0
	}

	*p = Player{
		ID:    identifier(w.ID),
		Name:  text(w.Name),
		Score: score,
		Color: optionalText(w.Color),
		Pos:   optionalPosition(w.Pos),
	}

	return nil
}

func text(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}

	return s
}

// identifier also accepts numeric ids, keeping their literal form.
func identifier(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)

	var f float64
	if len(raw) > 0 && (raw[0] == '-' || raw[0] >= '0' && raw[0] <= '9') && json.Unmarshal(raw, &f) == nil {
		return string(raw)
	}

	return text(raw)
}

func optionalText(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return nil
	}

	s := text(raw)

	return &s
}

func optionalPosition(raw json.RawMessage) *Position {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var pos Position
	if err := pos.UnmarshalJSON(raw); err != nil {
		return nil
	}

	return &pos
}

func pixels(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

func parsePixels(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, fmt.Errorf("missing value")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}

		s = strings.TrimSuffix(strings.TrimSpace(s), "px")

		return strconv.ParseFloat(s, 64)
	}

	var f float64
	err := json.Unmarshal(raw, &f)

	return f, err
}

func parseScore(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		if strings.TrimSpace(s) == "" {
			return 0, nil
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("score: %w", err)
		}

		return int(f), nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, fmt.Errorf("score: %w", err)
	}

	return int(f), nil
}

// Encode serializes the document as 2-space indented JSON. A nil document
// encodes as an empty array.
func (d Document) Encode() ([]byte, error) {
	if d == nil {
		d = Document{}
	}

	return json.MarshalIndent(d, "", "  ")
}

// Decode parses a stored document. It fails unless data is a JSON array of
// objects; damaged fields inside a player are tolerated.
func Decode(data []byte) (Document, error) {
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}

	if d == nil {
		d = Document{}
	}

	return d, nil
}

// Parse is the lenient form of Decode: content that is not a JSON array
// yields an empty document, entries that are not objects are skipped, and
// the result is sanitized.
func Parse(data []byte) Document {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return Document{}
	}

	d := make(Document, 0, len(entries))
	for _, raw := range entries {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}

		var p Player
		if err := json.Unmarshal(raw, &p); err != nil {
			continue
		}
		d = append(d, p)
	}

	return d.Sanitize()
}

// Sanitize returns a copy that satisfies the document invariants: unique
// non-empty ids, normalized names, non-negative scores, palette colors only.
func (d Document) Sanitize() Document {
	out := make(Document, 0, len(d))
	seen := make(map[string]bool, len(d))

	for _, p := range d {
		if p.ID == "" || seen[p.ID] {
			p.ID = NewID()
		}
		seen[p.ID] = true

		p.Name = NormalizeName(p.Name)

		if p.Score < 0 {
			p.Score = 0
		}

		if p.Color != nil && !ValidColor(*p.Color) {
			p.Color = nil
		}

		if p.Pos != nil {
			pos := *p.Pos
			p.Pos = &pos
		}

		out = append(out, p)
	}

	return out
}

// Clone deep-copies the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}

	out := make(Document, len(d))
	for i, p := range d {
		if p.Color != nil {
			c := *p.Color
			p.Color = &c
		}
		if p.Pos != nil {
			pos := *p.Pos
			p.Pos = &pos
		}
		out[i] = p
	}

	return out
}

// Index returns the position of the player with the given id, or -1.
func (d Document) Index(id string) int {
	for i := range d {
		if d[i].ID == id {
			return i
		}
	}

	return -1
}

// HasName reports whether a player with the given normalized name exists.
func (d Document) HasName(name string) bool {
	for i := range d {
		if d[i].Name == name {
			return true
		}
	}

	return false
}

func NewID() string {
	return uuid.NewString()
}

// NormalizeName trims, collapses inner whitespace and upper-cases.
func NormalizeName(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ParseNames splits bulk text on newlines and commas and returns the
// normalized, non-empty names in input order.
func ParseNames(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == ','
	})

	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := NormalizeName(part); name != "" {
			names = append(names, name)
		}
	}

	return names
}
