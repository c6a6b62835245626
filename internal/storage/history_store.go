package storage

import (
	"database/sql"
	"time"

	"symtrail/internal/errors"
	"symtrail/internal/history"
	"symtrail/internal/symbols"
)

// HistoryStore mirrors the events of one recorder session into history_events.
// It is write-through only; the recorder never reads it back.
type HistoryStore struct {
	db      *DB
	session string
}

// NewHistoryStore returns a store writing rows tagged with session.
func NewHistoryStore(db *DB, session string) *HistoryStore {
	return &HistoryStore{db: db, session: session}
}

// Session returns the session id rows are tagged with.
func (s *HistoryStore) Session() string {
	return s.session
}

// Append inserts e. Re-appending the same event id is a no-op.
func (s *HistoryStore) Append(e history.Event) error {
	return s.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT OR IGNORE INTO history_events
				(session, event_id, file_id, symbol_id, kind, recorded_at, summary, snapshot_version)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, s.session, int64(e.ID), e.FileID, e.SymbolID, string(e.Kind),
			e.Timestamp.UnixNano(), e.Summary, e.SnapshotRef.Version)
		if err != nil {
			return errors.Wrap(errors.StorageError, err, "failed to append history event %d", e.ID)
		}
		return nil
	})
}

// EventsForFile returns this session's events for fileID in id order.
func (s *HistoryStore) EventsForFile(fileID string) ([]history.Event, error) {
	rows, err := s.db.conn.Query(`
		SELECT event_id, file_id, symbol_id, kind, recorded_at, summary, snapshot_version
		FROM history_events
		WHERE session = ? AND file_id = ?
		ORDER BY event_id
	`, s.session, fileID)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, err, "failed to query history for %s", fileID)
	}
	defer rows.Close()

	var out []history.Event
	for rows.Next() {
		var (
			id      int64
			kind    string
			ts      int64
			version int
			e       history.Event
		)
		if err := rows.Scan(&id, &e.FileID, &e.SymbolID, &kind, &ts, &e.Summary, &version); err != nil {
			return nil, errors.Wrap(errors.StorageError, err, "failed to scan history row")
		}
		e.ID = uint64(id)
		e.Kind = history.Kind(kind)
		e.Timestamp = time.Unix(0, ts).UTC()
		e.SnapshotRef = symbols.SnapshotRef{FileID: e.FileID, Version: version}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.StorageError, err, "failed to read history rows")
	}
	return out, nil
}

// Count returns the number of rows written by this session.
func (s *HistoryStore) Count() (int, error) {
	var n int
	err := s.db.conn.QueryRow(`SELECT COUNT(*) FROM history_events WHERE session = ?`, s.session).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(errors.StorageError, err, "failed to count history events")
	}
	return n, nil
}

// Sessions lists every session recorded in the database, oldest first.
func (s *HistoryStore) Sessions() ([]string, error) {
	rows, err := s.db.conn.Query(`
		SELECT session FROM history_events
		GROUP BY session
		ORDER BY MIN(recorded_at)
	`)
	if err != nil {
		return nil, errors.Wrap(errors.StorageError, err, "failed to list sessions")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(errors.StorageError, err, "failed to scan session")
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
