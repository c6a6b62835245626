// Package engine wires the text buffer, the structure indexer and its two
// subscribers together, along with the optional metrics and sqlite sinks.
package engine

import (
	"log/slog"

	"symtrail/internal/callgraph"
	"symtrail/internal/config"
	"symtrail/internal/history"
	"symtrail/internal/indexer"
	"symtrail/internal/metrics"
	"symtrail/internal/slogutil"
	"symtrail/internal/storage"
	"symtrail/internal/symbols"
	"symtrail/internal/textbuf"
)

// Options configures an Engine.
type Options struct {
	Index indexer.Options
	// HistoryDB, when set, mirrors every recorded event into this sqlite file.
	HistoryDB string
	// Metrics feeds the Prometheus collectors in internal/metrics.
	Metrics bool
}

// OptionsFromConfig builds Options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Index:     indexer.OptionsFromConfig(cfg.Index),
		HistoryDB: cfg.History.DatabasePath,
		Metrics:   cfg.Telemetry.MetricsAddr != "",
	}
}

// Engine owns one in-memory buffer and the components observing it.
type Engine struct {
	Buffer  *textbuf.Memory
	Indexer *indexer.Indexer
	Graph   *callgraph.Builder
	History *history.Recorder

	logger *slog.Logger
	db     *storage.DB
	store  *storage.HistoryStore
	unsubs []func()
}

// New builds an engine. It fails only when the history database cannot be opened.
func New(opts Options, logger *slog.Logger) (*Engine, error) {
	logger = slogutil.OrDiscard(logger)

	buf := textbuf.NewMemory()
	ix := indexer.New(buf, opts.Index, logger.With("component", "indexer"))
	e := &Engine{
		Buffer:  buf,
		Indexer: ix,
		Graph:   callgraph.New(ix, logger.With("component", "callgraph")),
		History: history.New(ix, logger.With("component", "history")),
		logger:  logger,
	}

	if opts.HistoryDB != "" {
		db, err := storage.Open(opts.HistoryDB, logger.With("component", "storage"))
		if err != nil {
			e.closeComponents()
			return nil, err
		}
		e.db = db
		e.store = storage.NewHistoryStore(db, e.History.Session())
		e.unsubs = append(e.unsubs, e.History.OnEventRecorded(e.mirror))
	}

	if opts.Metrics {
		e.unsubs = append(e.unsubs,
			ix.OnPass(func(r indexer.PassResult) {
				metrics.RecordIndexPass(string(r.Outcome), r.Duration)
			}),
			e.Graph.OnGraphUpdated(func(string) {
				metrics.RecordGraphRebuild(e.Graph.Stats().Edges)
			}),
			e.History.OnEventRecorded(func(ev history.Event) {
				metrics.RecordHistoryEvent(string(ev.Kind))
			}),
		)
	}

	return e, nil
}

// Store returns the sqlite mirror, or nil when none is configured.
func (e *Engine) Store() *storage.HistoryStore {
	return e.store
}

func (e *Engine) mirror(ev history.Event) {
	if err := e.store.Append(ev); err != nil {
		e.logger.Warn("Failed to mirror history event",
			"id", ev.ID,
			"file", ev.FileID,
			"error", err.Error(),
		)
	}
}

// Open opens fileID in the buffer, or replaces its content if already open.
func (e *Engine) Open(fileID, languageID, content string) {
	e.Buffer.Open(fileID, languageID, content)
}

// Update replaces the content of an open document.
func (e *Engine) Update(fileID, content string) bool {
	return e.Buffer.Update(fileID, content)
}

// CloseDocument closes fileID in the buffer.
func (e *Engine) CloseDocument(fileID string) bool {
	return e.Buffer.Close(fileID)
}

// Flush runs every pending debounced pass now.
func (e *Engine) Flush() {
	e.Indexer.Flush()
}

// Snapshots returns the current snapshot of every tracked file, by file id.
func (e *Engine) Snapshots() []*symbols.Snapshot {
	var out []*symbols.Snapshot
	for _, id := range e.Indexer.Tracked() {
		if snap, ok := e.Indexer.Snapshot(id); ok {
			out = append(out, snap)
		}
	}
	return out
}

// Edges returns the call edges of every tracked file.
func (e *Engine) Edges() []symbols.Edge {
	var out []symbols.Edge
	for _, snap := range e.Snapshots() {
		out = append(out, e.Graph.EdgesForFile(snap.FileID)...)
	}
	return out
}

// Close stops observation and closes the history database.
func (e *Engine) Close() error {
	for _, u := range e.unsubs {
		u()
	}
	e.unsubs = nil
	e.closeComponents()
	if e.db != nil {
		return e.db.Close()
	}
	return nil
}

func (e *Engine) closeComponents() {
	e.History.Close()
	e.Graph.Close()
	e.Indexer.Close()
}
