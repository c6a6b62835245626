package callgraph

import (
	"regexp"

	"symtrail/internal/symbols"
)

// callEdges scans snap's text for `name(` occurrences of every callable name.
// Each occurrence yields an edge from the innermost enclosing symbol to every
// callable of that name. Declarations are not calls and duplicate pairs are
// dropped. The result is never nil.
func (b *Builder) callEdges(snap *symbols.Snapshot) []symbols.Edge {
	edges := []symbols.Edge{}

	var names []string
	byName := make(map[string][]symbols.Symbol)
	for _, s := range snap.Symbols {
		if !s.Kind.IsCallable() {
			continue
		}
		if _, ok := byName[s.Name]; !ok {
			names = append(names, s.Name)
		}
		byName[s.Name] = append(byName[s.Name], s)
	}
	if len(names) == 0 {
		return edges
	}

	text := snap.Text()
	seen := make(map[symbols.Edge]bool)
	for _, name := range names {
		targets := byName[name]
		for _, m := range b.pattern(name).FindAllStringSubmatchIndex(text, -1) {
			pos := snap.PositionAt(m[2])
			if isDeclaration(targets, pos) {
				continue
			}
			from := snap.Innermost(pos)
			for _, to := range targets {
				e := symbols.Edge{From: from.ID, To: to.ID, Kind: symbols.EdgeCall}
				if seen[e] {
					continue
				}
				seen[e] = true
				edges = append(edges, e)
			}
		}
	}
	return edges
}

func isDeclaration(candidates []symbols.Symbol, p symbols.Position) bool {
	for _, c := range candidates {
		if c.SelectionRange.Start == p {
			return true
		}
	}
	return false
}

// pattern returns the cached call pattern for name. The identifier is capture
// group 1 and must not be preceded by another identifier character.
func (b *Builder) pattern(name string) *regexp.Regexp {
	if re, ok := b.patterns.Get(name); ok {
		return re
	}
	re := regexp.MustCompile(`(?:^|[^A-Za-z0-9_$#])(` + regexp.QuoteMeta(name) + `)\s*\(`)
	b.patterns.Add(name, re)
	return re
}
