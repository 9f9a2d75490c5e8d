package event

import (
	"errors"
	"sync"
)

// ErrScopeClosed is returned when a subscription is added to a closed scope.
var ErrScopeClosed = errors.New("scope is closed")

// Scope owns a set of subscriptions that share a lifetime.
//
// Subscriptions added to a Scope are released together by Close. Close is
// idempotent. Adding to a closed Scope cancels the subscription immediately.
type Scope struct {
	mu     sync.Mutex
	subs   []Subscription
	closed bool
}

// NewScope creates an empty open scope.
func NewScope() *Scope {
	return &Scope{}
}

// Add takes ownership of sub.
func (s *Scope) Add(sub Subscription) error {
	if sub == nil {
		return nil
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Cancel()
		return ErrScopeClosed
	}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return nil
}

// Len returns the number of subscriptions owned by the scope.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases every owned subscription in reverse acquisition order.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].Cancel()
	}
}
