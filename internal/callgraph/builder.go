// Package callgraph maintains intra-file call edges derived from indexer
// snapshots by a name-based call heuristic.
package callgraph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"symtrail/internal/events"
	"symtrail/internal/indexer"
	"symtrail/internal/slogutil"
	"symtrail/internal/symbols"
)

var tracer = otel.Tracer("symtrail.callgraph")

// patternCacheSize bounds the number of compiled per-name call patterns.
const patternCacheSize = 512

// Source is the part of the indexer the builder depends on.
type Source interface {
	Snapshot(fileID string) (*symbols.Snapshot, bool)
	OnSnapshotUpdated(fn func(indexer.SnapshotUpdate)) func()
	OnDocumentClosed(fn func(fileID string)) func()
}

// Stats summarizes the graph.
type Stats struct {
	Files int `json:"files"`
	Edges int `json:"edges"`
}

// Builder rebuilds a file's call edges on every snapshot update.
//
// Each file owns the edges computed from its snapshot. A rebuild deletes the
// file's previous edges from every index and inserts the new set under one
// write lock, so readers never see a mix of two passes.
//
// Thread Safety: Builder is safe for concurrent use.
type Builder struct {
	src      Source
	logger   *slog.Logger
	patterns *lru.Cache[string, *regexp.Regexp]
	compute  func(*symbols.Snapshot) []symbols.Edge

	mu      sync.RWMutex
	byFile  map[string][]symbols.Edge
	callers map[string][]symbols.Edge // by Edge.To
	callees map[string][]symbols.Edge // by Edge.From

	updated *events.Registry[string]
	unsubs  []func()
}

// New creates a builder subscribed to src.
func New(src Source, logger *slog.Logger) *Builder {
	logger = slogutil.OrDiscard(logger)
	patterns, err := lru.New[string, *regexp.Regexp](patternCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(err)
	}
	b := &Builder{
		src:      src,
		logger:   logger,
		patterns: patterns,
		byFile:   make(map[string][]symbols.Edge),
		callers:  make(map[string][]symbols.Edge),
		callees:  make(map[string][]symbols.Edge),
		updated:  events.NewRegistry[string]("callgraph.graphUpdated", logger),
	}
	b.compute = b.callEdges
	b.unsubs = []func(){
		src.OnSnapshotUpdated(b.handleSnapshot),
		src.OnDocumentClosed(b.handleClosed),
	}
	return b
}

// OnGraphUpdated subscribes fn to edge-set replacements.
func (b *Builder) OnGraphUpdated(fn func(fileID string)) func() {
	return b.updated.Subscribe(fn)
}

// Callers returns edges whose target is symbolID.
func (b *Builder) Callers(symbolID string) []symbols.Edge {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]symbols.Edge(nil), b.callers[symbolID]...)
}

// Callees returns edges whose source is symbolID.
func (b *Builder) Callees(symbolID string) []symbols.Edge {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]symbols.Edge(nil), b.callees[symbolID]...)
}

// EdgesForFile returns the edges computed from fileID's current snapshot.
func (b *Builder) EdgesForFile(fileID string) []symbols.Edge {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]symbols.Edge(nil), b.byFile[fileID]...)
}

// ExportedSymbols returns every top-level, non-File symbol of fileID.
func (b *Builder) ExportedSymbols(fileID string) []symbols.Symbol {
	snap, ok := b.src.Snapshot(fileID)
	if !ok {
		return nil
	}
	var out []symbols.Symbol
	for _, s := range snap.Symbols[1:] {
		if s.ContainerID == "" {
			out = append(out, s)
		}
	}
	return out
}

// ImportsOfFile is always empty; imports are not resolved across files.
func (b *Builder) ImportsOfFile(fileID string) []string {
	return []string{}
}

// Stats returns the file and edge counts.
func (b *Builder) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := Stats{Files: len(b.byFile)}
	for _, edges := range b.byFile {
		st.Edges += len(edges)
	}
	return st
}

// Close unsubscribes from the indexer. The graph stays readable.
func (b *Builder) Close() {
	b.mu.Lock()
	unsubs := b.unsubs
	b.unsubs = nil
	b.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (b *Builder) handleSnapshot(u indexer.SnapshotUpdate) {
	_, span := tracer.Start(context.Background(), "Builder.Rebuild",
		trace.WithAttributes(
			attribute.String("callgraph.file", u.FileID),
			attribute.Int("callgraph.version", u.Snapshot.Version),
		),
	)
	defer span.End()

	edges, err := b.safeCompute(u.Snapshot)
	if err != nil {
		span.SetAttributes(attribute.Bool("callgraph.success", false))
		b.logger.Warn("Call graph rebuild failed, keeping previous edges",
			"file", u.FileID,
			"version", u.Snapshot.Version,
			"error", err.Error(),
		)
		return
	}
	span.SetAttributes(
		attribute.Bool("callgraph.success", true),
		attribute.Int("callgraph.edges", len(edges)),
	)

	b.replace(u.FileID, edges)
	b.logger.Debug("Call graph updated", "file", u.FileID, "edges", len(edges))
	b.updated.Publish(u.FileID)
}

func (b *Builder) handleClosed(fileID string) {
	b.mu.RLock()
	_, had := b.byFile[fileID]
	b.mu.RUnlock()
	if !had {
		return
	}
	b.replace(fileID, nil)
	b.updated.Publish(fileID)
}

func (b *Builder) safeCompute(snap *symbols.Snapshot) (edges []symbols.Edge, err error) {
	defer func() {
		if r := recover(); r != nil {
			edges = nil
			err = fmt.Errorf("edge computation panicked: %v", r)
		}
	}()
	return b.compute(snap), nil
}

// replace swaps fileID's edge set. A nil set forgets the file.
func (b *Builder) replace(fileID string, edges []symbols.Edge) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if old := b.byFile[fileID]; len(old) > 0 {
		stale := make(map[symbols.Edge]bool, len(old))
		for _, e := range old {
			stale[e] = true
		}
		for _, e := range old {
			b.callers[e.To] = without(b.callers[e.To], stale)
			if len(b.callers[e.To]) == 0 {
				delete(b.callers, e.To)
			}
			b.callees[e.From] = without(b.callees[e.From], stale)
			if len(b.callees[e.From]) == 0 {
				delete(b.callees, e.From)
			}
		}
	}

	if edges == nil {
		delete(b.byFile, fileID)
		return
	}
	b.byFile[fileID] = edges
	for _, e := range edges {
		b.callers[e.To] = append(b.callers[e.To], e)
		b.callees[e.From] = append(b.callees[e.From], e)
	}
}

func without(edges []symbols.Edge, drop map[symbols.Edge]bool) []symbols.Edge {
	out := edges[:0:0]
	for _, e := range edges {
		if !drop[e] {
			out = append(out, e)
		}
	}
	return out
}
