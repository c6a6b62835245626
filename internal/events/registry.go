// Package events provides a typed observer registry.
package events

import (
	"log/slog"
	"sync"

	"symtrail/internal/slogutil"
)

// Registry broadcasts values of type T to subscribers.
// Delivery is synchronous and follows registration order.
//
// Thread Safety: Registry is safe for concurrent use.
type Registry[T any] struct {
	name   string
	logger *slog.Logger

	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[T]
}

type subscription[T any] struct {
	id uint64
	fn func(T)
}

// NewRegistry creates a registry. name identifies it in panic logs.
func NewRegistry[T any](name string, logger *slog.Logger) *Registry[T] {
	return &Registry[T]{name: name, logger: slogutil.OrDiscard(logger)}
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is harmless.
func (r *Registry[T]) Subscribe(fn func(T)) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subs = append(r.subs, subscription[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(id) })
	}
}

func (r *Registry[T]) remove(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s.id == id {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber. Subscribers added or removed
// during delivery take effect on the next Publish. A panicking subscriber is
// logged and skipped.
func (r *Registry[T]) Publish(v T) {
	r.mu.RLock()
	subs := make([]subscription[T], len(r.subs))
	copy(subs, r.subs)
	r.mu.RUnlock()

	for _, s := range subs {
		r.invoke(s, v)
	}
}

func (r *Registry[T]) invoke(s subscription[T], v T) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("event subscriber panicked",
				"registry", r.name,
				"subscription", s.id,
				"panic", p,
			)
		}
	}()
	s.fn(v)
}

// Len returns the number of subscribers.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
