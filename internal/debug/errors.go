package debug

import "errors"

var (
	// ErrSessionActive is returned by Start while another session is live.
	ErrSessionActive = errors.New("debug session already active")

	// ErrNoSession is returned by control requests when no session is live.
	ErrNoSession = errors.New("no active debug session")

	// ErrNotStopped is returned by stepping requests while the debuggee runs.
	ErrNotStopped = errors.New("debuggee is not stopped")

	// ErrUnknownRequest is returned for a start request other than launch or attach.
	ErrUnknownRequest = errors.New("unknown start request")
)
