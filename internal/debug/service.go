package debug

import (
	"context"
	"encoding/json"

	"github.com/dshills/infopanel/internal/event"
)

// State is the aggregate state of the debugger.
type State int

const (
	// StateInactive means no session is running.
	StateInactive State = iota
	// StateInitializing means a session is connecting to its adapter.
	StateInitializing
	// StateRunning means the debuggee is executing.
	StateRunning
	// StateStopped means the debuggee is paused.
	StateStopped
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case StateInactive:
		return "Inactive"
	case StateInitializing:
		return "Initializing"
	case StateRunning:
		return "Running"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StackFrame identifies one frame of a paused thread.
type StackFrame struct {
	ID     int
	Name   string
	Path   string
	Line   int
	Column int
}

// Session is one live connection to a debug adapter.
type Session interface {
	// ID uniquely identifies the session for its lifetime.
	ID() string

	// Name is a human-readable label.
	Name() string

	// Custom sends an adapter-specific request and returns the response body.
	Custom(ctx context.Context, command string, args any) (json.RawMessage, error)

	// OnEvent subscribes to adapter events with the given name.
	OnEvent(name string, fn func(body json.RawMessage)) event.Subscription
}

// ViewModel holds UI-facing selection state.
type ViewModel interface {
	// FocusedStackFrame returns the focused frame or nil.
	FocusedStackFrame() *StackFrame

	// OnFocusedStackFrameUpdated notifies after the focused frame changes.
	OnFocusedStackFrameUpdated(fn func()) event.Subscription
}

// Service is the debugger as seen by views. Notifications carry no payload;
// listeners re-poll State, ActiveSession and the view model.
type Service interface {
	State() State
	ActiveSession() Session
	ViewModel() ViewModel
	OnStateChanged(fn func()) event.Subscription
}
