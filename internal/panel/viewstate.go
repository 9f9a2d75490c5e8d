package panel

import (
	"github.com/dshills/infopanel/internal/debug"
)

// ViewState is an immutable snapshot of what the panel shows. The projector
// replaces it wholesale; nothing mutates a published snapshot.
type ViewState struct {
	State debug.State

	// Frame is the focused frame, if any.
	Frame *FrameRef

	// Paused is set only while a session is tracked and stopped.
	Paused *Paused
}

// FrameRef refers to a frame of the live session by id. It is a lookup key,
// not a copy of the session's frame.
type FrameRef struct {
	ID   int
	Name string
}

// Paused holds the values that only make sense while the debuggee is paused.
type Paused struct {
	Location *Location
	Hover    *string
}

// Location is the current source position reported by the adapter.
type Location struct {
	File string
	Line int
}

func frameRef(f *debug.StackFrame) *FrameRef {
	if f == nil {
		return nil
	}
	return &FrameRef{ID: f.ID, Name: f.Name}
}

func (v ViewState) withFrame(f *FrameRef) ViewState {
	v.Frame = f
	return v
}

// withLocation returns v with loc applied. It is a no-op unless v is paused.
func (v ViewState) withLocation(loc *Location) ViewState {
	if v.Paused == nil {
		return v
	}
	p := *v.Paused
	p.Location = loc
	v.Paused = &p
	return v
}

// withHover returns v with hover applied. It is a no-op unless v is paused.
func (v ViewState) withHover(hover *string) ViewState {
	if v.Paused == nil {
		return v
	}
	p := *v.Paused
	p.Hover = hover
	v.Paused = &p
	return v
}

// Location returns the current location or nil.
func (v ViewState) Location() *Location {
	if v.Paused == nil {
		return nil
	}
	return v.Paused.Location
}

// Hover returns the hover value or nil.
func (v ViewState) Hover() *string {
	if v.Paused == nil {
		return nil
	}
	return v.Paused.Hover
}
