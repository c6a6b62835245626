package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer delays execution until a quiet period has passed. Each Trigger
// replaces the pending function and restarts the quiet period.
type Debouncer struct {
	delay   time.Duration
	timer   *time.Timer
	mu      sync.Mutex
	pending func()
	gen     uint64 // bumped on every Trigger/Cancel/Flush so stale timers do nothing
}

// NewDebouncer creates a new debouncer with the specified delay
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay: delay,
	}
}

// Trigger schedules or resets the debounced function
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending = fn
	d.gen++
	gen := d.gen

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()
			return
		}
		fn := d.pending
		d.pending = nil
		d.timer = nil
		d.mu.Unlock()

		if fn != nil {
			fn()
		}
	})
}

// Cancel cancels any pending execution
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
}

// Flush immediately executes any pending function
func (d *Debouncer) Flush() {
	d.mu.Lock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Group holds one Debouncer per key, all with the same delay.
type Group struct {
	delay time.Duration

	mu      sync.Mutex
	byKey   map[string]*Debouncer
	stopped bool
}

// NewGroup creates an empty group.
func NewGroup(delay time.Duration) *Group {
	return &Group{delay: delay, byKey: make(map[string]*Debouncer)}
}

// Trigger schedules fn for key, resetting any pending run for that key.
// It does nothing after Stop.
func (g *Group) Trigger(key string, fn func()) {
	g.mu.Lock()
	if g.stopped {
		g.mu.Unlock()
		return
	}
	d, ok := g.byKey[key]
	if !ok {
		d = NewDebouncer(g.delay)
		g.byKey[key] = d
	}
	g.mu.Unlock()

	d.Trigger(fn)
}

// Cancel drops any pending run for key and forgets the key.
func (g *Group) Cancel(key string) {
	g.mu.Lock()
	d, ok := g.byKey[key]
	delete(g.byKey, key)
	g.mu.Unlock()

	if ok {
		d.Cancel()
	}
}

// Flush runs key's pending function now, if there is one.
func (g *Group) Flush(key string) {
	g.mu.Lock()
	d, ok := g.byKey[key]
	g.mu.Unlock()

	if ok {
		d.Flush()
	}
}

// FlushAll runs every pending function now, in key order.
func (g *Group) FlushAll() {
	for _, key := range g.Keys() {
		g.Flush(key)
	}
}

// Keys returns the sorted keys that currently have a debouncer.
func (g *Group) Keys() []string {
	g.mu.Lock()
	keys := make([]string, 0, len(g.byKey))
	for k := range g.byKey {
		keys = append(keys, k)
	}
	g.mu.Unlock()
	sort.Strings(keys)
	return keys
}

// Pending reports whether key has a function waiting to run.
func (g *Group) Pending(key string) bool {
	g.mu.Lock()
	d, ok := g.byKey[key]
	g.mu.Unlock()
	return ok && d.Pending()
}

// Stop cancels everything and rejects further triggers.
func (g *Group) Stop() {
	g.mu.Lock()
	g.stopped = true
	all := g.byKey
	g.byKey = make(map[string]*Debouncer)
	g.mu.Unlock()

	for _, d := range all {
		d.Cancel()
	}
}

// BatchDebouncer collects changes and emits them as one batch once the quiet
// period passes.
type BatchDebouncer struct {
	delay   time.Duration
	timer   *time.Timer
	mu      sync.Mutex
	changes []Change
	emit    func([]Change)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Change)) *BatchDebouncer {
	return &BatchDebouncer{delay: delay, emit: emit}
}

// Add queues a change and restarts the quiet period.
func (b *BatchDebouncer) Add(c Change) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.changes = append(b.changes, c)
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	batch := b.changes
	b.changes = nil
	b.timer = nil
	b.mu.Unlock()

	if len(batch) > 0 && b.emit != nil {
		b.emit(dedupe(batch))
	}
}

// Cancel drops any queued changes.
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.changes = nil
}

// Flush emits queued changes now.
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// Len returns the number of queued changes.
func (b *BatchDebouncer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.changes)
}

// dedupe keeps the last change per path, in first-seen order.
func dedupe(changes []Change) []Change {
	seen := make(map[string]int, len(changes))
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if i, ok := seen[c.Path]; ok {
			out[i] = c
			continue
		}
		seen[c.Path] = len(out)
		out = append(out, c)
	}
	return out
}
