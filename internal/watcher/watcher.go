// Package watcher provides debouncing and filesystem watching for source trees.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"symtrail/internal/slogutil"
)

// Op is what happened to a path.
type Op int

const (
	OpWrite Op = iota
	OpCreate
	OpRemove
	OpRename
)

// String returns a string representation of the op
func (o Op) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpCreate:
		return "create"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one filesystem change to a watched source file.
type Change struct {
	Path string
	Op   Op
	Time time.Time
}

// Handler receives batches of changes. Each path appears at most once per batch.
type Handler func(changes []Change)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
	Extensions     []string `json:"extensions" mapstructure:"extensions"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs:     100,
		IgnorePatterns: []string{"node_modules", ".git", "dist", "build", "*.min.js", "*.d.ts"},
		Extensions:     []string{".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs", ".mts", ".cts"},
	}
}

// Watcher watches a directory tree with fsnotify and reports changes to files
// with a watched extension. New directories are picked up as they appear.
type Watcher struct {
	config  Config
	root    string
	logger  *slog.Logger
	handler Handler

	*Filter

	fsw   *fsnotify.Watcher
	batch *BatchDebouncer

	mu       sync.RWMutex
	watching bool
	dirs     int
	stopOnce sync.Once
	done     chan struct{}
	errLog   rate.Sometimes
	wg       sync.WaitGroup
}

// New creates a watcher for root. Start begins delivery.
func New(root string, config Config, logger *slog.Logger, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		config:  config,
		root:    root,
		logger:  slogutil.OrDiscard(logger),
		handler: handler,
		Filter:  NewFilter(root, config),
		fsw:     fsw,
		done:    make(chan struct{}),
		errLog:  rate.Sometimes{First: 1, Interval: time.Second},
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.deliver)
	return w, nil
}

// Start adds the tree under root and processes events until ctx is done or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return nil
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	w.logger.Info("Watching directory",
		"root", w.root,
		"dirs", w.dirCount(),
		"debounceMs", w.config.DebounceMs,
	)

	w.wg.Add(1)
	go w.processEvents(ctx)
	return nil
}

// Stop stops watching and emits any queued changes.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
		w.wg.Wait()
		w.batch.Flush()

		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		w.logger.Info("File watcher stopped", "root", w.root)
	})
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.mu.Lock()
		w.dirs++
		w.mu.Unlock()
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// overflow errors arrive in bursts
			w.errLog.Do(func() {
				w.logger.Warn("File watcher error", "error", err.Error())
			})
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.IsIgnored(ev.Name) {
		return
	}
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("Cannot watch new directory", "path", ev.Name, "error", err.Error())
			}
			return
		}
	}
	if !w.Watches(ev.Name) {
		return
	}
	if ev.Op == fsnotify.Chmod {
		return
	}
	w.batch.Add(Change{Path: ev.Name, Op: convertOp(ev.Op), Time: time.Now()})
}

func (w *Watcher) deliver(changes []Change) {
	w.logger.Debug("File changes detected", "root", w.root, "count", len(changes))
	if w.handler != nil {
		w.handler(changes)
	}
}

func convertOp(op fsnotify.Op) Op {
	switch {
	case op.Has(fsnotify.Remove):
		return OpRemove
	case op.Has(fsnotify.Rename):
		return OpRename
	case op.Has(fsnotify.Create):
		return OpCreate
	default:
		return OpWrite
	}
}

func (w *Watcher) dirCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dirs
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return map[string]interface{}{
		"root":           w.root,
		"watching":       w.watching,
		"watchedDirs":    w.dirs,
		"debounceMs":     w.config.DebounceMs,
		"ignorePatterns": len(w.config.IgnorePatterns),
		"queued":         w.batch.Len(),
	}
}
