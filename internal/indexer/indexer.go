// Package indexer keeps one symbol snapshot per open TypeScript/JavaScript
// document, recomputed on a debounce after content changes.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"symtrail/internal/complexity"
	"symtrail/internal/events"
	"symtrail/internal/slogutil"
	"symtrail/internal/symbols"
	"symtrail/internal/textbuf"
	"symtrail/internal/watcher"
)

// SnapshotUpdate is published after a pass replaces a file's snapshot.
// Previous is nil on the first snapshot of a file.
type SnapshotUpdate struct {
	FileID   string
	Snapshot *symbols.Snapshot
	Previous *symbols.Snapshot
}

// Outcome classifies a finished pass.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"      // snapshot replaced and published
	OutcomeSkipped Outcome = "skipped" // same version, or over the size ceiling
	OutcomeStale   Outcome = "stale"   // buffer version older than the snapshot
	OutcomeFailed  Outcome = "failed"  // extraction panicked; previous snapshot kept
)

// PassResult describes one pass, for metrics.
type PassResult struct {
	FileID   string
	Version  int
	Outcome  Outcome
	Forced   bool
	Duration time.Duration
}

type extractFunc func(fileID string, version int, languageID, text string, now time.Time) *symbols.Snapshot

// Indexer is the structure indexer. It observes a textbuf.Buffer and publishes
// a SnapshotUpdate for every pass that produces a new snapshot.
//
// Thread Safety: Indexer is safe for concurrent use. Passes are serialized, so
// subscribers see one file's snapshots in the order they were produced.
type Indexer struct {
	buf       textbuf.Buffer
	opts      Options
	logger    *slog.Logger
	languages map[string]bool
	analyzer  *complexity.Analyzer
	extract   extractFunc
	now       func() time.Time

	timers *watcher.Group
	runMu  sync.Mutex

	mu        sync.RWMutex
	snapshots map[string]*symbols.Snapshot
	tracked   map[string]bool
	closed    bool

	updated    *events.Registry[SnapshotUpdate]
	docsClosed *events.Registry[string]
	passes     *events.Registry[PassResult]
	unsubs     []func()
}

// New creates an indexer over buf and indexes every supported document that is
// already open.
func New(buf textbuf.Buffer, opts Options, logger *slog.Logger) *Indexer {
	logger = slogutil.OrDiscard(logger)
	langs := make(map[string]bool, len(opts.Languages))
	for _, l := range opts.Languages {
		langs[l] = true
	}

	i := &Indexer{
		buf:        buf,
		opts:       opts,
		logger:     logger,
		languages:  langs,
		extract:    symbols.Extract,
		now:        time.Now,
		timers:     watcher.NewGroup(opts.Debounce),
		snapshots:  make(map[string]*symbols.Snapshot),
		tracked:    make(map[string]bool),
		updated:    events.NewRegistry[SnapshotUpdate]("indexer.snapshotUpdated", logger),
		docsClosed: events.NewRegistry[string]("indexer.documentClosed", logger),
		passes:     events.NewRegistry[PassResult]("indexer.pass", logger),
	}
	if opts.Complexity && complexity.IsAvailable() {
		i.analyzer = complexity.NewAnalyzer()
	}

	i.unsubs = append(i.unsubs,
		buf.OnDocumentAdded(i.handleAdded),
		buf.OnDocumentContentChanged(i.handleChanged),
		buf.OnDocumentRemoved(i.handleRemoved),
	)

	for _, id := range buf.Documents() {
		i.handleAdded(id)
	}
	return i
}

// OnSnapshotUpdated subscribes fn to snapshot replacements.
//
// Handlers of OnSnapshotUpdated, OnDocumentClosed and OnPass run
// synchronously while passes are serialized, so one file's updates arrive in
// version order. A handler may read the indexer (Snapshot, SymbolAt, Tracked)
// but must not call Recompute or Flush, or close a buffer document, on the
// calling goroutine: those wait for the pass that is delivering to it. Hand
// such work to another goroutine.
func (i *Indexer) OnSnapshotUpdated(fn func(SnapshotUpdate)) func() {
	return i.updated.Subscribe(fn)
}

// OnDocumentClosed subscribes fn to tracked documents being removed.
func (i *Indexer) OnDocumentClosed(fn func(fileID string)) func() {
	return i.docsClosed.Subscribe(fn)
}

// OnPass subscribes fn to the outcome of every pass, published or not.
func (i *Indexer) OnPass(fn func(PassResult)) func() {
	return i.passes.Subscribe(fn)
}

// Snapshot returns the latest snapshot for fileID.
func (i *Indexer) Snapshot(fileID string) (*symbols.Snapshot, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	s, ok := i.snapshots[fileID]
	return s, ok
}

// SymbolAt returns the innermost declaration whose range contains p, or the
// File symbol when p is in the document but outside every declaration.
func (i *Indexer) SymbolAt(fileID string, p symbols.Position) (*symbols.Symbol, bool) {
	s, ok := i.Snapshot(fileID)
	if !ok {
		return nil, false
	}
	if !s.File().Range.Contains(p) {
		return nil, false
	}
	sym := s.Innermost(p)
	return &sym, true
}

// Tracked returns the sorted ids of documents in a supported language.
func (i *Indexer) Tracked() []string {
	i.mu.RLock()
	ids := make([]string, 0, len(i.tracked))
	for id := range i.tracked {
		ids = append(ids, id)
	}
	i.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Recompute runs a pass for fileID now, even if the version has not changed.
// It reports whether a snapshot was published.
func (i *Indexer) Recompute(fileID string) bool {
	if !i.isTracked(fileID) {
		return false
	}
	i.timers.Cancel(fileID)
	return i.run(fileID, true)
}

// Flush runs every pending debounced pass now.
func (i *Indexer) Flush() {
	i.timers.FlushAll()
}

// Close cancels pending passes and stops observing the buffer. Snapshots stay
// readable.
func (i *Indexer) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	unsubs := i.unsubs
	i.unsubs = nil
	i.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	i.timers.Stop()
}

func (i *Indexer) isTracked(fileID string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tracked[fileID] && !i.closed
}

func (i *Indexer) supported(fileID string) bool {
	doc, ok := i.buf.Document(fileID)
	return ok && i.languages[doc.LanguageID]
}

// handleAdded starts tracking a supported document and indexes it without
// waiting for the debounce.
func (i *Indexer) handleAdded(fileID string) {
	if !i.supported(fileID) {
		i.logger.Debug("Ignoring unsupported document", "file", fileID)
		return
	}
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.tracked[fileID] = true
	i.mu.Unlock()

	i.run(fileID, false)
}

func (i *Indexer) handleChanged(fileID string) {
	if !i.isTracked(fileID) {
		// a buffer may report content before (or instead of) an add
		i.handleAdded(fileID)
		return
	}
	i.timers.Trigger(fileID, func() { i.run(fileID, false) })
}

func (i *Indexer) handleRemoved(fileID string) {
	i.timers.Cancel(fileID)

	i.runMu.Lock()
	i.mu.Lock()
	wasTracked := i.tracked[fileID]
	delete(i.tracked, fileID)
	delete(i.snapshots, fileID)
	i.mu.Unlock()
	if wasTracked {
		i.logger.Debug("Document closed", "file", fileID)
		i.docsClosed.Publish(fileID)
	}
	i.runMu.Unlock()
}

// run executes one pass. Unforced passes skip a version the current snapshot
// already covers.
func (i *Indexer) run(fileID string, forced bool) bool {
	i.runMu.Lock()
	defer i.runMu.Unlock()

	if !i.isTracked(fileID) {
		return false
	}
	doc, ok := i.buf.Document(fileID)
	if !ok {
		return false
	}

	start := i.now()
	_, span := startPassSpan(context.Background(), fileID, doc.Version, forced)
	defer span.End()

	snap, outcome := i.pass(doc, forced)
	setPassSpanResult(span, outcome, snapshotLen(snap))

	if outcome == OutcomeOK {
		i.mu.Lock()
		prev := i.snapshots[fileID]
		i.snapshots[fileID] = snap
		i.mu.Unlock()

		i.logger.Debug("Snapshot updated",
			"file", fileID,
			"version", snap.Version,
			"symbols", len(snap.Symbols),
		)
		i.updated.Publish(SnapshotUpdate{FileID: fileID, Snapshot: snap, Previous: prev})
	}

	i.passes.Publish(PassResult{
		FileID:   fileID,
		Version:  doc.Version,
		Outcome:  outcome,
		Forced:   forced,
		Duration: i.now().Sub(start),
	})
	return outcome == OutcomeOK
}

func (i *Indexer) pass(doc textbuf.Document, forced bool) (*symbols.Snapshot, Outcome) {
	if i.opts.MaxFileBytes > 0 && len(doc.Content) > i.opts.MaxFileBytes {
		i.logger.Debug("Skipping oversized document",
			"file", doc.FileID,
			"bytes", len(doc.Content),
			"maxBytes", i.opts.MaxFileBytes,
		)
		return nil, OutcomeSkipped
	}

	if !forced {
		if cur, ok := i.Snapshot(doc.FileID); ok {
			switch {
			case doc.Version == cur.Version:
				return nil, OutcomeSkipped
			case doc.Version < cur.Version:
				i.logger.Debug("Skipping stale version",
					"file", doc.FileID,
					"version", doc.Version,
					"current", cur.Version,
				)
				return nil, OutcomeStale
			}
		}
	}

	snap, err := i.safeExtract(doc)
	if err != nil {
		i.logger.Warn("Extraction failed, keeping previous snapshot",
			"file", doc.FileID,
			"version", doc.Version,
			"error", err.Error(),
		)
		return nil, OutcomeFailed
	}
	i.enrich(snap)
	return snap, OutcomeOK
}

func (i *Indexer) safeExtract(doc textbuf.Document) (snap *symbols.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			snap = nil
			err = fmt.Errorf("extraction panicked: %v", r)
		}
	}()
	snap = i.extract(doc.FileID, doc.Version, doc.LanguageID, doc.Content, i.now())
	if snap == nil || len(snap.Symbols) == 0 {
		return nil, fmt.Errorf("extraction returned no file symbol")
	}
	return snap, nil
}

// enrich copies per-function cyclomatic complexity onto callable symbols that
// start on the same line. Failures leave Complexity unset.
func (i *Indexer) enrich(snap *symbols.Snapshot) {
	if i.analyzer == nil {
		return
	}
	lang, ok := complexity.LanguageFromID(snap.LanguageID)
	if !ok {
		return
	}
	fc, err := i.analyzer.AnalyzeSource(context.Background(), snap.FileID, []byte(snap.Text()), lang)
	if err != nil || fc.Error != "" {
		i.logger.Debug("Complexity unavailable", "file", snap.FileID)
		return
	}
	byLine := fc.ByStartLine()
	for k := range snap.Symbols {
		sym := &snap.Symbols[k]
		if !sym.Kind.IsCallable() {
			continue
		}
		c, ok := byLine[sym.SelectionRange.Start.Line]
		if !ok {
			continue
		}
		m := symbols.Metrics{Complexity: &c}
		if sym.Metrics != nil {
			m.LinesOfCode = sym.Metrics.LinesOfCode
		}
		sym.Metrics = &m
	}
}

func snapshotLen(s *symbols.Snapshot) int {
	if s == nil {
		return 0
	}
	return len(s.Symbols)
}
