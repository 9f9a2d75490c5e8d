package panel

import (
	"github.com/dshills/infopanel/internal/debug"
	"github.com/dshills/infopanel/internal/event"
)

type transition int

const (
	transitionNone transition = iota
	transitionStart
	transitionEnd
	// transitionReplace ends the tracked session and starts a different one.
	transitionReplace
)

func (t transition) String() string {
	switch t {
	case transitionNone:
		return "none"
	case transitionStart:
		return "start"
	case transitionEnd:
		return "end"
	case transitionReplace:
		return "replace"
	default:
		return "unknown"
	}
}

// sessionHandle is the tracked session. Its scope owns every
// session-lifetime subscription.
type sessionHandle struct {
	session debug.Session
	scope   *event.Scope

	// generation numbers info requests; only the newest may apply.
	generation uint64
}

// sessionTracker follows which session, if any, the panel is bound to.
type sessionTracker struct {
	handle *sessionHandle
}

// decide classifies a state change. A live session that is not stopped
// counts as no session.
func (t *sessionTracker) decide(state debug.State, live debug.Session) transition {
	if state != debug.StateStopped {
		live = nil
	}

	switch {
	case t.handle == nil && live == nil:
		return transitionNone
	case t.handle == nil:
		return transitionStart
	case live == nil:
		return transitionEnd
	case t.handle.session.ID() != live.ID():
		return transitionReplace
	default:
		return transitionNone
	}
}

// start binds live and acquires its subscriptions through subscribe.
func (t *sessionTracker) start(live debug.Session, subscribe func(*sessionHandle) event.Subscription) *sessionHandle {
	h := &sessionHandle{
		session: live,
		scope:   event.NewScope(),
	}
	t.handle = h
	_ = h.scope.Add(subscribe(h))
	return h
}

// end releases the tracked session, if any. Safe to call repeatedly.
func (t *sessionTracker) end() {
	if t.handle == nil {
		return
	}
	t.handle.scope.Close()
	t.handle = nil
}

func (t *sessionTracker) current() *sessionHandle {
	return t.handle
}
