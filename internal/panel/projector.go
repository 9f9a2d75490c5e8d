package panel

import (
	"context"
	"encoding/json"

	"github.com/dshills/infopanel/internal/dap"
	"github.com/dshills/infopanel/internal/debug"
	"github.com/dshills/infopanel/internal/event"
)

// The handlers below run on the host loop, one at a time, each ending in a
// single render.

func (p *Panel) onFocusedFrameUpdated() {
	if p.disposed {
		return
	}
	frame := p.service.ViewModel().FocusedStackFrame()
	p.publish(p.view.withFrame(frameRef(frame)))
}

func (p *Panel) onStateChanged() {
	if p.disposed {
		return
	}
	state := p.service.State()
	live := p.service.ActiveSession()

	t := p.tracker.decide(state, live)
	switch t {
	case transitionEnd:
		p.tracker.end()
	case transitionStart:
		p.tracker.start(live, p.subscribeCustom)
	case transitionReplace:
		p.tracker.end()
		p.tracker.start(live, p.subscribeCustom)
	}
	if t != transitionNone {
		p.logger.Debug("session tracking: %s (state %s)", t, state)
	}

	h := p.tracker.current()
	if h == nil {
		p.publish(ViewState{State: state})
		return
	}

	// A repeated stop of the same session keeps what it already knows until
	// the next info response arrives.
	paused := &Paused{}
	if t == transitionNone && p.view.Paused != nil {
		cp := *p.view.Paused
		paused = &cp
	}
	p.publish(ViewState{
		State:  state,
		Frame:  frameRef(p.service.ViewModel().FocusedStackFrame()),
		Paused: paused,
	})
	p.requestInfo(h)
}

func (p *Panel) subscribeCustom(h *sessionHandle) event.Subscription {
	return h.session.OnEvent(dap.EventCustom, func(body json.RawMessage) {
		p.onCustomEvent(h, body)
	})
}

func (p *Panel) onCustomEvent(h *sessionHandle, body json.RawMessage) {
	if p.disposed || p.tracker.current() != h {
		return
	}
	evt := dap.DecodeCustomEvent(body)
	p.publish(p.view.withHover(evt.HoverExpression))
}

// requestInfo asks the adapter for the current location. The response is
// applied only if h is still tracked and no newer request was issued.
func (p *Panel) requestInfo(h *sessionHandle) {
	h.generation++
	gen := h.generation
	session := h.session
	timeout := p.requestTimeout

	p.executor.Async(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		body, err := session.Custom(ctx, dap.CommandInfo, struct{}{})
		return func() {
			p.applyInfo(h, gen, body, err)
		}
	})
}

func (p *Panel) applyInfo(h *sessionHandle, gen uint64, body json.RawMessage, err error) {
	if p.disposed {
		return
	}
	if p.tracker.current() != h || h.generation != gen {
		p.logger.Debug("discarding stale %s response (generation %d)", dap.CommandInfo, gen)
		return
	}
	if err != nil {
		p.logger.Warn("%s failed: %v", dap.CommandInfo, err)
		return
	}

	info := dap.DecodeInfoResponse(body)
	var loc *Location
	if info.HasLocation() {
		loc = &Location{File: info.CurrentFile, Line: info.CurrentLine}
	}
	p.publish(p.view.withLocation(loc))
}

// publish replaces the snapshot and renders it.
func (p *Panel) publish(v ViewState) {
	if v.State != debug.StateStopped || p.tracker.current() == nil {
		v.Paused = nil
	}
	p.view = v
	p.render()
}
