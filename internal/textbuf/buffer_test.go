package textbuf

import (
	"reflect"
	"testing"

	"symtrail/internal/symbols"
)

func TestMemory_Lifecycle(t *testing.T) {
	m := NewMemory()

	var log []string
	m.OnDocumentAdded(func(id string) { log = append(log, "added:"+id) })
	m.OnDocumentContentChanged(func(id string) { log = append(log, "changed:"+id) })
	m.OnDocumentRemoved(func(id string) { log = append(log, "removed:"+id) })

	m.Open("a.ts", "typescript", "let a")
	if !m.Update("a.ts", "let b") {
		t.Fatal("Update(open doc) = false")
	}
	if m.Update("missing.ts", "x") {
		t.Error("Update(missing) = true")
	}
	doc, ok := m.Document("a.ts")
	if !ok {
		t.Fatal("Document(a.ts) not found")
	}
	if doc.Version != 2 || doc.Content != "let b" || doc.LanguageID != "typescript" {
		t.Errorf("Document = %+v", doc)
	}
	if !m.Close("a.ts") {
		t.Error("Close(open doc) = false")
	}
	if m.Close("a.ts") {
		t.Error("second Close = true")
	}
	if _, ok := m.Document("a.ts"); ok {
		t.Error("closed document still visible")
	}

	want := []string{"added:a.ts", "changed:a.ts", "removed:a.ts"}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("notifications = %v, want %v", log, want)
	}
}

func TestMemory_ReopenBumpsVersion(t *testing.T) {
	m := NewMemory()
	changed := 0
	m.OnDocumentContentChanged(func(string) { changed++ })

	m.Open("a.ts", "typescript", "v1")
	m.Open("a.ts", "typescript", "v2")

	doc, _ := m.Document("a.ts")
	if doc.Version != 2 {
		t.Errorf("Version = %d, want 2", doc.Version)
	}
	if changed != 1 {
		t.Errorf("changed notifications = %d, want 1", changed)
	}
}

func TestMemory_ReopenUnchanged(t *testing.T) {
	tests := []struct {
		name        string
		languageID  string
		content     string
		wantVersion int
		wantChanged int
	}{
		{"same content and language", "typescript", "v1", 1, 0},
		{"new content", "typescript", "v2", 2, 1},
		{"new language", "javascript", "v1", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			changed := 0
			m.OnDocumentContentChanged(func(string) { changed++ })

			m.Open("a.ts", "typescript", "v1")
			m.Open("a.ts", tt.languageID, tt.content)

			doc, _ := m.Document("a.ts")
			if doc.Version != tt.wantVersion {
				t.Errorf("Version = %d, want %d", doc.Version, tt.wantVersion)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed notifications = %d, want %d", changed, tt.wantChanged)
			}
		})
	}
}

func TestMemory_Documents(t *testing.T) {
	m := NewMemory()
	m.Open("b.ts", "typescript", "")
	m.Open("a.js", "javascript", "")

	if got := m.Documents(); !reflect.DeepEqual(got, []string{"a.js", "b.ts"}) {
		t.Errorf("Documents() = %v", got)
	}
}

func TestMemory_PositionAt(t *testing.T) {
	m := NewMemory()
	m.Open("a.ts", "typescript", "ab\nçd")

	tests := []struct {
		offset int
		want   symbols.Position
	}{
		{0, symbols.Position{Line: 1, Column: 1}},
		{2, symbols.Position{Line: 1, Column: 3}},
		{3, symbols.Position{Line: 2, Column: 1}},
		{5, symbols.Position{Line: 2, Column: 2}},
		{100, symbols.Position{Line: 2, Column: 3}},
	}
	for _, tt := range tests {
		got, ok := m.PositionAt("a.ts", tt.offset)
		if !ok || got != tt.want {
			t.Errorf("PositionAt(%d) = %+v, %v, want %+v", tt.offset, got, ok, tt.want)
		}
	}
	if _, ok := m.PositionAt("missing.ts", 0); ok {
		t.Error("PositionAt(missing) should fail")
	}
}
