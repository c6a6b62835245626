package watcher

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDebouncer(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	if d == nil {
		t.Fatal("NewDebouncer() returned nil")
	}
	if d.delay != 100*time.Millisecond {
		t.Errorf("delay = %v, want 100ms", d.delay)
	}
}

func TestDebouncerTrigger(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called int32
	var last int32
	for i := 0; i < 5; i++ {
		i := int32(i)
		d.Trigger(func() {
			atomic.AddInt32(&called, 1)
			atomic.StoreInt32(&last, i)
		})
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if n := atomic.LoadInt32(&called); n != 1 {
		t.Errorf("Function should be called once, got %d", n)
	}
	if l := atomic.LoadInt32(&last); l != 4 {
		t.Errorf("last trigger should win, ran trigger %d", l)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called int32
	d.Trigger(func() { atomic.StoreInt32(&called, 1) })
	d.Cancel()

	time.Sleep(100 * time.Millisecond)

	if atomic.LoadInt32(&called) != 0 {
		t.Error("Function should not be called after cancel")
	}
	if d.Pending() {
		t.Error("Pending() should be false after cancel")
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(500 * time.Millisecond)

	called := 0
	d.Trigger(func() { called++ })
	if !d.Pending() {
		t.Error("Pending() should be true after trigger")
	}

	d.Flush()
	if called != 1 {
		t.Errorf("called = %d after flush, want 1", called)
	}

	// the original timer must not fire again
	time.Sleep(10 * time.Millisecond)
	d.Flush()
	if called != 1 {
		t.Errorf("called = %d after second flush, want 1", called)
	}
}

func TestDebouncerNoPending(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	d.Flush()  // Should not panic
	d.Cancel() // Should not panic
	if d.Pending() {
		t.Error("Pending() should be false")
	}
}

func TestGroup_KeysAreIndependent(t *testing.T) {
	g := NewGroup(30 * time.Millisecond)

	var mu sync.Mutex
	runs := map[string]int{}
	record := func(key string) func() {
		return func() {
			mu.Lock()
			runs[key]++
			mu.Unlock()
		}
	}

	for i := 0; i < 3; i++ {
		g.Trigger("a.ts", record("a.ts"))
		g.Trigger("b.ts", record("b.ts"))
	}

	time.Sleep(120 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if runs["a.ts"] != 1 || runs["b.ts"] != 1 {
		t.Errorf("runs = %v, want one run per key", runs)
	}
}

func TestGroup_CancelAndFlush(t *testing.T) {
	g := NewGroup(time.Hour)

	ran := map[string]bool{}
	g.Trigger("a.ts", func() { ran["a.ts"] = true })
	g.Trigger("b.ts", func() { ran["b.ts"] = true })
	g.Trigger("c.ts", func() { ran["c.ts"] = true })

	if !g.Pending("a.ts") {
		t.Error("Pending(a.ts) should be true")
	}
	g.Cancel("b.ts")
	if got := g.Keys(); !reflect.DeepEqual(got, []string{"a.ts", "c.ts"}) {
		t.Errorf("Keys() = %v", got)
	}

	g.FlushAll()
	if !ran["a.ts"] || ran["b.ts"] || !ran["c.ts"] {
		t.Errorf("ran = %v, want a.ts and c.ts only", ran)
	}
	if g.Pending("a.ts") {
		t.Error("Pending(a.ts) should be false after flush")
	}
}

func TestGroup_Stop(t *testing.T) {
	g := NewGroup(20 * time.Millisecond)

	var called int32
	g.Trigger("a.ts", func() { atomic.AddInt32(&called, 1) })
	g.Stop()
	g.Trigger("a.ts", func() { atomic.AddInt32(&called, 1) })

	time.Sleep(60 * time.Millisecond)
	if n := atomic.LoadInt32(&called); n != 0 {
		t.Errorf("called = %d after Stop, want 0", n)
	}
	if len(g.Keys()) != 0 {
		t.Errorf("Keys() = %v after Stop, want none", g.Keys())
	}
}

func TestBatchDebouncer_Coalesces(t *testing.T) {
	var mu sync.Mutex
	var batches [][]Change
	b := NewBatchDebouncer(30*time.Millisecond, func(c []Change) {
		mu.Lock()
		batches = append(batches, c)
		mu.Unlock()
	})

	b.Add(Change{Path: "a.ts", Op: OpCreate})
	b.Add(Change{Path: "b.ts", Op: OpWrite})
	b.Add(Change{Path: "a.ts", Op: OpWrite})
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(batches))
	}
	want := []Change{{Path: "a.ts", Op: OpWrite}, {Path: "b.ts", Op: OpWrite}}
	if !reflect.DeepEqual(batches[0], want) {
		t.Errorf("batch = %+v, want %+v", batches[0], want)
	}
}

func TestBatchDebouncer_CancelAndFlush(t *testing.T) {
	emitted := 0
	b := NewBatchDebouncer(time.Hour, func([]Change) { emitted++ })

	b.Add(Change{Path: "a.ts"})
	b.Cancel()
	b.Flush()
	if emitted != 0 {
		t.Errorf("emitted = %d after cancel, want 0", emitted)
	}

	b.Add(Change{Path: "a.ts"})
	b.Flush()
	if emitted != 1 {
		t.Errorf("emitted = %d after flush, want 1", emitted)
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d after flush, want 0", b.Len())
	}
}
