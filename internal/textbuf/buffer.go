// Package textbuf defines the document source the indexer reads from and an
// in-memory implementation of it.
package textbuf

import (
	"sort"
	"sync"
	"unicode/utf8"

	"symtrail/internal/events"
	"symtrail/internal/symbols"
)

// Document is the current state of one open file.
type Document struct {
	FileID     string
	LanguageID string
	Content    string
	Version    int
}

// Buffer exposes open documents and their change notifications.
type Buffer interface {
	// Document returns the current content of fileID.
	Document(fileID string) (Document, bool)
	// Documents returns the ids of all open documents.
	Documents() []string
	// PositionAt converts a byte offset in fileID's content to a position.
	PositionAt(fileID string, offset int) (symbols.Position, bool)

	OnDocumentAdded(fn func(fileID string)) func()
	OnDocumentRemoved(fn func(fileID string)) func()
	OnDocumentContentChanged(fn func(fileID string)) func()
}

// Memory is a Buffer backed by a map. Listeners run synchronously on the calling
// goroutine after the buffer's lock is released.
//
// Thread Safety: Memory is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]*Document

	added   *events.Registry[string]
	removed *events.Registry[string]
	changed *events.Registry[string]
}

var _ Buffer = (*Memory)(nil)

// NewMemory creates an empty buffer.
func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]*Document),
		added:   events.NewRegistry[string]("textbuf.added", nil),
		removed: events.NewRegistry[string]("textbuf.removed", nil),
		changed: events.NewRegistry[string]("textbuf.changed", nil),
	}
}

// Open adds a document at version 1. Opening an already open document replaces
// its content like Update does, unless content and language are unchanged.
func (m *Memory) Open(fileID, languageID, content string) {
	m.mu.Lock()
	if doc, ok := m.docs[fileID]; ok {
		if doc.LanguageID == languageID && doc.Content == content {
			m.mu.Unlock()
			return
		}
		doc.LanguageID = languageID
		doc.Content = content
		doc.Version++
		m.mu.Unlock()
		m.changed.Publish(fileID)
		return
	}
	m.docs[fileID] = &Document{FileID: fileID, LanguageID: languageID, Content: content, Version: 1}
	m.mu.Unlock()
	m.added.Publish(fileID)
}

// Update replaces the content of an open document and bumps its version.
// It reports false if the document is not open.
func (m *Memory) Update(fileID, content string) bool {
	m.mu.Lock()
	doc, ok := m.docs[fileID]
	if ok {
		doc.Content = content
		doc.Version++
	}
	m.mu.Unlock()
	if ok {
		m.changed.Publish(fileID)
	}
	return ok
}

// Close removes a document. It reports false if it was not open.
func (m *Memory) Close(fileID string) bool {
	m.mu.Lock()
	_, ok := m.docs[fileID]
	delete(m.docs, fileID)
	m.mu.Unlock()
	if ok {
		m.removed.Publish(fileID)
	}
	return ok
}

func (m *Memory) Document(fileID string) (Document, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[fileID]
	if !ok {
		return Document{}, false
	}
	return *doc, true
}

func (m *Memory) Documents() []string {
	m.mu.RLock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (m *Memory) PositionAt(fileID string, offset int) (symbols.Position, bool) {
	doc, ok := m.Document(fileID)
	if !ok {
		return symbols.Position{}, false
	}
	content := doc.Content
	if offset < 0 {
		offset = 0
	}
	if offset > len(content) {
		offset = len(content)
	}
	pos := symbols.Position{Line: 1, Column: 1}
	lineStart := 0
	for i := 0; i < offset; i++ {
		if content[i] == '\n' {
			pos.Line++
			lineStart = i + 1
		}
	}
	pos.Column = utf8.RuneCountInString(content[lineStart:offset]) + 1
	return pos, true
}

func (m *Memory) OnDocumentAdded(fn func(string)) func() { return m.added.Subscribe(fn) }

func (m *Memory) OnDocumentRemoved(fn func(string)) func() { return m.removed.Subscribe(fn) }

func (m *Memory) OnDocumentContentChanged(fn func(string)) func() { return m.changed.Subscribe(fn) }
