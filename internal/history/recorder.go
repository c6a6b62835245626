// Package history records symbol-level change events by diffing consecutive
// snapshots of each file.
package history

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"symtrail/internal/events"
	"symtrail/internal/indexer"
	"symtrail/internal/slogutil"
	"symtrail/internal/symbols"
)

// Kind classifies an Event.
type Kind string

const (
	KindAdded   Kind = "symbol_added"
	KindRemoved Kind = "symbol_removed"
	KindChanged Kind = "symbol_changed"
)

// Event is one recorded symbol change. SnapshotRef points at the snapshot that
// introduced the change.
type Event struct {
	ID          uint64              `json:"id"`
	FileID      string              `json:"fileId"`
	SymbolID    string              `json:"symbolId"`
	Kind        Kind                `json:"kind"`
	Timestamp   time.Time           `json:"timestamp"`
	Summary     string              `json:"summary"`
	SnapshotRef symbols.SnapshotRef `json:"snapshotRef"`
}

// Source is the part of the indexer the recorder depends on.
type Source interface {
	Snapshot(fileID string) (*symbols.Snapshot, bool)
	OnSnapshotUpdated(fn func(indexer.SnapshotUpdate)) func()
	OnDocumentClosed(fn func(fileID string)) func()
}

// Recorder keeps an append-only, in-memory event log for one session.
//
// The first snapshot of a file is its baseline and records nothing. Closing a
// file forgets its baseline but keeps its events.
//
// Thread Safety: Recorder is safe for concurrent use.
type Recorder struct {
	src     Source
	logger  *slog.Logger
	session string
	now     func() time.Time

	mu       sync.RWMutex
	nextID   uint64
	log      []Event
	byFile   map[string][]int // indexes into log
	previous map[string]*symbols.Snapshot

	recorded *events.Registry[Event]
	unsubs   []func()
}

// New creates a recorder subscribed to src.
func New(src Source, logger *slog.Logger) *Recorder {
	logger = slogutil.OrDiscard(logger)
	r := &Recorder{
		src:      src,
		logger:   logger,
		session:  uuid.NewString(),
		now:      time.Now,
		byFile:   make(map[string][]int),
		previous: make(map[string]*symbols.Snapshot),
		recorded: events.NewRegistry[Event]("history.eventRecorded", logger),
	}
	r.unsubs = []func(){
		src.OnSnapshotUpdated(r.handleSnapshot),
		src.OnDocumentClosed(r.handleClosed),
	}
	return r
}

// Session returns the recorder's unique session id.
func (r *Recorder) Session() string {
	return r.session
}

// OnEventRecorded subscribes fn to new events.
func (r *Recorder) OnEventRecorded(fn func(Event)) func() {
	return r.recorded.Subscribe(fn)
}

// EventsForFile returns fileID's events in the order they were recorded.
func (r *Recorder) EventsForFile(fileID string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.byFile[fileID]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.log[i])
	}
	return out
}

// EventsForSymbol returns every event for symbolID across all files.
func (r *Recorder) EventsForSymbol(symbolID string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.log {
		if e.SymbolID == symbolID {
			out = append(out, e)
		}
	}
	return out
}

// All returns the whole log in order.
func (r *Recorder) All() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.log...)
}

// SnapshotAt returns the current snapshot of the event's file. Old snapshot
// bodies are not retained, so this may be newer than the event.
func (r *Recorder) SnapshotAt(e Event) (*symbols.Snapshot, bool) {
	return r.src.Snapshot(e.SnapshotRef.FileID)
}

// Close unsubscribes from the indexer. The log stays readable.
func (r *Recorder) Close() {
	r.mu.Lock()
	unsubs := r.unsubs
	r.unsubs = nil
	r.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}

func (r *Recorder) handleSnapshot(u indexer.SnapshotUpdate) {
	r.mu.Lock()
	prev := r.previous[u.FileID]
	r.previous[u.FileID] = u.Snapshot
	if prev == nil {
		r.mu.Unlock()
		r.logger.Debug("History baseline", "file", u.FileID, "version", u.Snapshot.Version)
		return
	}

	ts := r.now()
	changes := diff(prev, u.Snapshot)
	recorded := make([]Event, 0, len(changes))
	for _, c := range changes {
		r.nextID++
		e := Event{
			ID:          r.nextID,
			FileID:      u.FileID,
			SymbolID:    c.symbolID,
			Kind:        c.kind,
			Timestamp:   ts,
			Summary:     c.summary,
			SnapshotRef: u.Snapshot.Ref(),
		}
		r.byFile[u.FileID] = append(r.byFile[u.FileID], len(r.log))
		r.log = append(r.log, e)
		recorded = append(recorded, e)
	}
	r.mu.Unlock()

	if len(recorded) > 0 {
		r.logger.Debug("History events recorded",
			"file", u.FileID,
			"version", u.Snapshot.Version,
			"count", len(recorded),
		)
	}
	for _, e := range recorded {
		r.recorded.Publish(e)
	}
}

func (r *Recorder) handleClosed(fileID string) {
	r.mu.Lock()
	delete(r.previous, fileID)
	r.mu.Unlock()
}

type change struct {
	symbolID string
	kind     Kind
	summary  string
}

// diff lists removals in prev order, then additions and changes in next
// order. A removed and an added symbol are one rename, reported as a change
// of the new id, when they are the only unmatched symbols of their kind on a
// line and neither identity survives on the other side. A symbol that only
// moved lines is a removal plus an addition.
func diff(prev, next *symbols.Snapshot) []change {
	inPrev := make(map[string]symbols.Symbol, len(prev.Symbols))
	for _, s := range prev.Symbols {
		inPrev[s.ID] = s
	}
	inNext := make(map[string]symbols.Symbol, len(next.Symbols))
	for _, s := range next.Symbols {
		inNext[s.ID] = s
	}

	type slot struct {
		kind symbols.Kind
		line int
	}
	slotOf := func(s symbols.Symbol) slot { return slot{s.Kind, s.SelectionRange.Start.Line} }

	removed := make(map[slot][]symbols.Symbol)
	for _, s := range prev.Symbols {
		if _, ok := inNext[s.ID]; !ok && s.Kind != symbols.KindFile {
			removed[slotOf(s)] = append(removed[slotOf(s)], s)
		}
	}
	added := make(map[slot][]symbols.Symbol)
	for _, s := range next.Symbols {
		if _, ok := inPrev[s.ID]; !ok && s.Kind != symbols.KindFile {
			added[slotOf(s)] = append(added[slotOf(s)], s)
		}
	}

	prevNames, nextNames := identities(prev), identities(next)
	renamedFrom := make(map[string]symbols.Symbol) // new id -> old symbol
	renamedOld := make(map[string]bool)
	for k, olds := range removed {
		news := added[k]
		if len(olds) != 1 || len(news) != 1 {
			continue
		}
		old, cur := olds[0], news[0]
		if nextNames[identityOf(old)] || prevNames[identityOf(cur)] {
			continue
		}
		renamedFrom[cur.ID] = old
		renamedOld[old.ID] = true
	}

	var changes []change
	for _, s := range prev.Symbols {
		if _, ok := inNext[s.ID]; ok || renamedOld[s.ID] {
			continue
		}
		changes = append(changes, change{
			symbolID: s.ID,
			kind:     KindRemoved,
			summary:  fmt.Sprintf("removed %s %q", s.Kind, s.Name),
		})
	}

	for _, s := range next.Symbols {
		if old, ok := renamedFrom[s.ID]; ok {
			changes = append(changes, change{
				symbolID: s.ID,
				kind:     KindChanged,
				summary:  renameSummary(s.Kind, old.Name, s.Name),
			})
			continue
		}
		old, ok := inPrev[s.ID]
		switch {
		case !ok:
			changes = append(changes, change{
				symbolID: s.ID,
				kind:     KindAdded,
				summary:  fmt.Sprintf("added %s %q", s.Kind, s.Name),
			})
		case old.Name != s.Name:
			changes = append(changes, change{
				symbolID: s.ID,
				kind:     KindChanged,
				summary:  renameSummary(s.Kind, old.Name, s.Name),
			})
		}
	}
	return changes
}

// identity is what a declaration is called, regardless of where it sits.
type identity struct {
	kind      symbols.Kind
	name      string
	container string
}

func identityOf(s symbols.Symbol) identity {
	return identity{s.Kind, s.Name, s.ContainerID}
}

func identities(snap *symbols.Snapshot) map[identity]bool {
	out := make(map[identity]bool, len(snap.Symbols))
	for _, s := range snap.Symbols {
		out[identityOf(s)] = true
	}
	return out
}

func renameSummary(kind symbols.Kind, from, to string) string {
	if from == to {
		// same name, new id: the container was renamed
		return fmt.Sprintf("%s %q moved to a renamed container", kind, to)
	}
	return fmt.Sprintf("renamed %s %q to %q", kind, from, to)
}
