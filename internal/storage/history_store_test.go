package storage

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"symtrail/internal/history"
	"symtrail/internal/symbols"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func event(id uint64, file, sym string, kind history.Kind, version int) history.Event {
	return history.Event{
		ID:          id,
		FileID:      file,
		SymbolID:    sym,
		Kind:        kind,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, int(id), 0, time.UTC),
		Summary:     string(kind) + " " + sym,
		SnapshotRef: symbols.SnapshotRef{FileID: file, Version: version},
	}
}

func TestOpen_CreatesSchema(t *testing.T) {
	db := openTestDB(t)

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("getSchemaVersion() error = %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := NewHistoryStore(db, "s1").Append(event(1, "a.ts", "x", history.KindAdded, 2)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	db.Close()

	db, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	n, err := NewHistoryStore(db, "s1").Count()
	if err != nil || n != 1 {
		t.Errorf("Count() after reopen = %d, %v, want 1", n, err)
	}
}

func TestHistoryStore_AppendAndQuery(t *testing.T) {
	store := NewHistoryStore(openTestDB(t), "session-a")

	want := []history.Event{
		event(1, "a.ts", "a.ts#function:foo@1", history.KindAdded, 2),
		event(3, "a.ts", "a.ts#function:bar@4", history.KindChanged, 3),
	}
	other := event(2, "b.ts", "b.ts#class:Z@1", history.KindRemoved, 5)

	for _, e := range []history.Event{want[0], other, want[1]} {
		if err := store.Append(e); err != nil {
			t.Fatalf("Append(%d) error = %v", e.ID, err)
		}
	}

	got, err := store.EventsForFile("a.ts")
	if err != nil {
		t.Fatalf("EventsForFile() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EventsForFile() = %+v, want %+v", got, want)
	}

	if n, _ := store.Count(); n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestHistoryStore_DuplicateIgnored(t *testing.T) {
	store := NewHistoryStore(openTestDB(t), "s")
	e := event(7, "a.ts", "x", history.KindAdded, 1)

	for i := 0; i < 2; i++ {
		if err := store.Append(e); err != nil {
			t.Fatalf("Append() #%d error = %v", i, err)
		}
	}
	if n, _ := store.Count(); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestHistoryStore_SessionsIsolated(t *testing.T) {
	db := openTestDB(t)
	first := NewHistoryStore(db, "first")
	second := NewHistoryStore(db, "second")

	if err := first.Append(event(1, "a.ts", "x", history.KindAdded, 2)); err != nil {
		t.Fatal(err)
	}
	// same event id, different session
	if err := second.Append(event(1, "a.ts", "y", history.KindAdded, 2)); err != nil {
		t.Fatal(err)
	}

	got, _ := second.EventsForFile("a.ts")
	if len(got) != 1 || got[0].SymbolID != "y" {
		t.Errorf("second.EventsForFile() = %+v, want only y", got)
	}

	sessions, err := first.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 {
		t.Errorf("Sessions() = %v, want 2 entries", sessions)
	}
}
