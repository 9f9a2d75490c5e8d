package event

import (
	"sync"
)

// Emitter delivers values of type T to registered listeners.
//
// Listeners are called synchronously in the emitting goroutine, in the order
// they subscribed. A listener cancelled during an Emit is not called for the
// remainder of that Emit.
type Emitter[T any] struct {
	mu        sync.RWMutex
	listeners []*listener[T]
}

type listener[T any] struct {
	sub *subscription
	fn  func(T)
}

// Subscribe registers fn and returns a handle that releases it.
func (e *Emitter[T]) Subscribe(fn func(T)) Subscription {
	l := &listener[T]{fn: fn}
	l.sub = newSubscription(func() { e.remove(l) })

	e.mu.Lock()
	e.listeners = append(e.listeners, l)
	e.mu.Unlock()

	return l.sub
}

// Emit calls every active listener with v.
func (e *Emitter[T]) Emit(v T) {
	e.mu.RLock()
	snapshot := make([]*listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.RUnlock()

	for _, l := range snapshot {
		if !l.sub.IsActive() {
			continue
		}
		l.fn(v)
	}
}

// Count returns the number of registered listeners.
func (e *Emitter[T]) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}

// Clear cancels every listener.
func (e *Emitter[T]) Clear() {
	e.mu.RLock()
	snapshot := make([]*listener[T], len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.RUnlock()

	for _, l := range snapshot {
		l.sub.Cancel()
	}
}

func (e *Emitter[T]) remove(target *listener[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, l := range e.listeners {
		if l == target {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Signal is an Emitter for zero-argument notifications. Listeners re-poll
// whatever state they care about when notified.
type Signal struct {
	e Emitter[struct{}]
}

// Subscribe registers fn to run on every Fire.
func (s *Signal) Subscribe(fn func()) Subscription {
	return s.e.Subscribe(func(struct{}) { fn() })
}

// Fire notifies every listener.
func (s *Signal) Fire() {
	s.e.Emit(struct{}{})
}

// Count returns the number of registered listeners.
func (s *Signal) Count() int {
	return s.e.Count()
}
