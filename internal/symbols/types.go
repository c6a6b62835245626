// Package symbols holds the structural data model shared by the indexer, the call
// graph and the history log, plus the heuristic extractor that produces it.
package symbols

import (
	"sort"
	"time"
	"unicode/utf8"
)

// Kind classifies a Symbol.
type Kind string

const (
	KindFile     Kind = "file"
	KindClass    Kind = "class"
	KindMethod   Kind = "method"
	KindFunction Kind = "function"
	KindProperty Kind = "property"
	KindVariable Kind = "variable"
	KindUnknown  Kind = "unknown"
)

// IsCallable reports whether symbols of this kind can be call targets.
func (k Kind) IsCallable() bool {
	return k == KindFunction || k == KindMethod
}

// Position is a 1-based line and column. Columns count runes.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Before reports whether p sorts strictly before o.
func (p Position) Before(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// Range spans Start to End. End is the position just past the last character.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether p lies within r, inclusive at both ends.
func (r Range) Contains(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// ContainsRange reports whether o lies entirely within r.
func (r Range) ContainsRange(o Range) bool {
	return r.Contains(o.Start) && r.Contains(o.End)
}

// Metrics are optional size and complexity measurements for a symbol.
type Metrics struct {
	LinesOfCode int  `json:"linesOfCode"`
	Complexity  *int `json:"complexity,omitempty"`
}

// Symbol is a structural unit extracted from one file.
type Symbol struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Kind           Kind     `json:"kind"`
	FileID         string   `json:"fileId"`
	Range          Range    `json:"range"`
	SelectionRange Range    `json:"selectionRange"`
	ContainerID    string   `json:"containerId,omitempty"`
	Summary        string   `json:"summary,omitempty"`
	Metrics        *Metrics `json:"metrics,omitempty"`
}

// SnapshotRef pins a snapshot by file and version.
type SnapshotRef struct {
	FileID  string `json:"fileId"`
	Version int    `json:"version"`
}

// Snapshot is the extraction result for one file at one content version.
// It is never modified after it is published.
type Snapshot struct {
	FileID     string    `json:"fileId"`
	Version    int       `json:"version"`
	LanguageID string    `json:"languageId"`
	Symbols    []Symbol  `json:"symbols"`
	CreatedAt  time.Time `json:"createdAt"`

	text       string
	lineStarts []int
	byID       map[string]int
}

// NewSnapshot builds a snapshot over text. syms must already be in document order
// with the File symbol first.
func NewSnapshot(fileID string, version int, languageID, text string, syms []Symbol, createdAt time.Time) *Snapshot {
	s := &Snapshot{
		FileID:     fileID,
		Version:    version,
		LanguageID: languageID,
		Symbols:    syms,
		CreatedAt:  createdAt,
		text:       text,
		lineStarts: lineStarts(text),
		byID:       make(map[string]int, len(syms)),
	}
	for i, sym := range syms {
		s.byID[sym.ID] = i
	}
	return s
}

// Ref returns the snapshot's file and version.
func (s *Snapshot) Ref() SnapshotRef {
	return SnapshotRef{FileID: s.FileID, Version: s.Version}
}

// Text returns the source the snapshot was extracted from.
func (s *Snapshot) Text() string {
	return s.text
}

// File returns the synthetic File symbol.
func (s *Snapshot) File() Symbol {
	return s.Symbols[0]
}

// Lookup returns the symbol with the given id.
func (s *Snapshot) Lookup(id string) (Symbol, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Symbol{}, false
	}
	return s.Symbols[i], true
}

// PositionAt converts a byte offset in Text into a Position.
// Offsets past the end clamp to the end of the document.
func (s *Snapshot) PositionAt(offset int) Position {
	return positionAt(s.text, s.lineStarts, offset)
}

// Innermost returns the innermost non-File symbol whose range contains p,
// falling back to the File symbol.
func (s *Snapshot) Innermost(p Position) Symbol {
	best := -1
	for i := 1; i < len(s.Symbols); i++ {
		r := s.Symbols[i].Range
		if !r.Contains(p) {
			continue
		}
		if best < 0 || s.Symbols[best].Range.ContainsRange(r) {
			best = i
		}
	}
	if best < 0 {
		return s.Symbols[0]
	}
	return s.Symbols[best]
}

func lineStarts(text string) []int {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func positionAt(text string, starts []int, offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(text) {
		offset = len(text)
	}
	line := sort.Search(len(starts), func(i int) bool { return starts[i] > offset }) - 1
	return Position{
		Line:   line + 1,
		Column: utf8.RuneCountInString(text[starts[line]:offset]) + 1,
	}
}

// EdgeKind classifies an Edge.
type EdgeKind string

const (
	EdgeCall   EdgeKind = "call"
	EdgeImport EdgeKind = "import"
	EdgeExport EdgeKind = "export"
)

// Edge is a directed relationship between two symbol ids.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}
