package symbols

import (
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	identPattern   = `[A-Za-z_$][A-Za-z0-9_$]*`
	maxSummaryLen  = 120
	fileSymbolKey  = "#file"
	fileSymbolLine = 1
)

var (
	classRe    = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(` + identPattern + `)`)
	functionRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(` + identPattern + `)\s*(?:<[^>]*>)?\s*\(`)
	methodRe   = regexp.MustCompile(`^\s*(?:(?:public|private|protected|static|async|readonly|override|abstract)\s+)*\*?\s*(#?` + identPattern + `)\s*(?:<[^>]*>)?\s*\(`)
)

// notMethods are identifiers that look like `name(` at the start of a line but
// introduce statements or expressions, not declarations.
var notMethods = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "new": true, "typeof": true, "await": true,
	"super": true, "do": true, "else": true, "with": true, "throw": true,
	"delete": true, "void": true, "yield": true, "import": true, "export": true,
	"case": true, "in": true, "of": true, "instanceof": true,
}

// Extract scans text line by line and returns a snapshot of its symbols.
//
// The scan tracks one enclosing class. A class line opens it and a blank line or
// the line holding the class's closing brace ends it. Function lines never change
// it. Any other `name(` line inside an open class becomes a Method of that class.
func Extract(fileID string, version int, languageID, text string, now time.Time) *Snapshot {
	starts := lineStarts(text)
	lines := strings.Split(text, "\n")

	syms := make([]Symbol, 0, 16)
	syms = append(syms, fileSymbol(fileID, text, lines))

	type openClass struct {
		index   int // into syms
		id      string
		endLine int // 0 when the body brace was not found
	}
	var class *openClass

	for i, raw := range lines {
		line := strings.TrimSuffix(raw, "\r")
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			class = nil
			continue
		}
		if class != nil && class.endLine > 0 && lineNo > class.endLine {
			class = nil
		}

		if m := classRe.FindStringSubmatchIndex(line); m != nil {
			sym := declare(fileID, text, starts, i, line, m[2], m[3], KindClass, "")
			syms = append(syms, sym)
			class = &openClass{index: len(syms) - 1, id: sym.ID}
			if sym.Range != sym.SelectionRange {
				class.endLine = sym.Range.End.Line
			}
			continue
		}

		if m := functionRe.FindStringSubmatchIndex(line); m != nil {
			syms = append(syms, declare(fileID, text, starts, i, line, m[2], m[3], KindFunction, ""))
			continue
		}

		if class == nil || strings.HasSuffix(trimmed, ";") {
			continue
		}
		m := methodRe.FindStringSubmatchIndex(line)
		if m == nil || notMethods[line[m[2]:m[3]]] {
			continue
		}
		method := declare(fileID, text, starts, i, line, m[2], m[3], KindMethod, class.id)
		syms = append(syms, method)
		widen(&syms[class.index].Range, method.Range)
	}

	return NewSnapshot(fileID, version, languageID, text, syms, now)
}

func fileSymbol(fileID, text string, lines []string) Symbol {
	last := strings.TrimSuffix(lines[len(lines)-1], "\r")
	loc := 0
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			loc++
		}
	}
	whole := Range{
		Start: Position{Line: 1, Column: 1},
		End:   Position{Line: len(lines), Column: utf8.RuneCountInString(last) + 1},
	}
	return Symbol{
		ID:             ID(fileID, fileSymbolKey, fileSymbolLine),
		Name:           path.Base(fileID),
		Kind:           KindFile,
		FileID:         fileID,
		Range:          whole,
		SelectionRange: Range{Start: whole.Start, End: whole.Start},
		Summary:        path.Base(fileID),
		Metrics:        &Metrics{LinesOfCode: loc},
	}
}

// declare builds a symbol for the identifier at line[nameStart:nameEnd], where
// lineIdx is the 0-based line index.
func declare(fileID, text string, starts []int, lineIdx int, line string, nameStart, nameEnd int, kind Kind, containerID string) Symbol {
	name := line[nameStart:nameEnd]
	lineNo := lineIdx + 1

	sel := Range{
		Start: Position{Line: lineNo, Column: utf8.RuneCountInString(line[:nameStart]) + 1},
		End:   Position{Line: lineNo, Column: utf8.RuneCountInString(line[:nameEnd]) + 1},
	}

	full := sel
	if open := bodyStart(text, starts[lineIdx]+nameEnd); open >= 0 {
		if closeIdx := matchBrace(text, open); closeIdx >= 0 {
			full.End = positionAt(text, starts, closeIdx+1)
		}
	}

	key := name
	if containerID != "" {
		key = name + "@" + containerID
	}

	sym := Symbol{
		ID:             ID(fileID, key, lineNo),
		Name:           name,
		Kind:           kind,
		FileID:         fileID,
		Range:          full,
		SelectionRange: sel,
		ContainerID:    containerID,
		Summary:        summarize(line),
	}
	if kind.IsCallable() {
		sym.Metrics = &Metrics{LinesOfCode: full.End.Line - full.Start.Line + 1}
	}
	return sym
}

func widen(r *Range, o Range) {
	if o.Start.Before(r.Start) {
		r.Start = o.Start
	}
	if r.End.Before(o.End) {
		r.End = o.End
	}
}

func summarize(line string) string {
	s := strings.TrimSpace(line)
	if utf8.RuneCountInString(s) <= maxSummaryLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxSummaryLen-1]) + "…"
}
