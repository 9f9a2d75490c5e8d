package event

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// SubscriptionState represents the state of a subscription.
type SubscriptionState int32

const (
	// SubscriptionStateActive means the subscription is receiving notifications.
	SubscriptionStateActive SubscriptionState = iota

	// SubscriptionStateCancelled means the subscription has been permanently released.
	SubscriptionStateCancelled
)

// String returns a human-readable state name.
func (s SubscriptionState) String() string {
	switch s {
	case SubscriptionStateActive:
		return "active"
	case SubscriptionStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Subscription is a handle to a registered listener.
//
// Cancel releases the listener. It is safe to call more than once; only the
// first call has any effect.
type Subscription interface {
	// ID returns the unique subscription identifier.
	ID() string

	// State returns the current subscription state.
	State() SubscriptionState

	// IsActive returns true if the subscription still receives notifications.
	IsActive() bool

	// Cancel permanently releases the subscription.
	Cancel()
}

// subscription is the internal implementation of Subscription.
type subscription struct {
	id       string
	state    atomic.Int32
	onCancel func()
}

func newSubscription(onCancel func()) *subscription {
	s := &subscription{
		id:       uuid.New().String(),
		onCancel: onCancel,
	}
	s.state.Store(int32(SubscriptionStateActive))
	return s
}

// ID returns the subscription ID.
func (s *subscription) ID() string {
	return s.id
}

// State returns the current subscription state.
func (s *subscription) State() SubscriptionState {
	return SubscriptionState(s.state.Load())
}

// IsActive returns true if the subscription is active.
func (s *subscription) IsActive() bool {
	return s.State() == SubscriptionStateActive
}

// Cancel releases the subscription once.
func (s *subscription) Cancel() {
	if !s.state.CompareAndSwap(int32(SubscriptionStateActive), int32(SubscriptionStateCancelled)) {
		return
	}
	if s.onCancel != nil {
		s.onCancel()
	}
}

// FuncSubscription wraps a release function as a Subscription.
// The function runs at most once.
func FuncSubscription(release func()) Subscription {
	return newSubscription(release)
}
