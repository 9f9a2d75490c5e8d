package panel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/dshills/infopanel/internal/debug"
	"github.com/dshills/infopanel/internal/event"
)

type fakeSession struct {
	id     string
	events event.Emitter[json.RawMessage]

	infoBody json.RawMessage
	infoErr  error
	calls    []string

	subscribes int
	releases   int
}

func newFakeSession(id string) *fakeSession {
	return &fakeSession{
		id:       id,
		infoBody: json.RawMessage(`{"currentFile":"a.c","currentLine":10}`),
	}
}

func (s *fakeSession) ID() string   { return s.id }
func (s *fakeSession) Name() string { return s.id }

func (s *fakeSession) Custom(_ context.Context, command string, _ any) (json.RawMessage, error) {
	s.calls = append(s.calls, command)
	return s.infoBody, s.infoErr
}

func (s *fakeSession) OnEvent(name string, fn func(json.RawMessage)) event.Subscription {
	if name != "custom" {
		return event.FuncSubscription(func() {})
	}
	s.subscribes++
	inner := s.events.Subscribe(fn)
	return event.FuncSubscription(func() {
		s.releases++
		inner.Cancel()
	})
}

func (s *fakeSession) emit(body string) {
	s.events.Emit(json.RawMessage(body))
}

func (s *fakeSession) outstanding() int {
	return s.subscribes - s.releases
}

type fakeViewModel struct {
	focused *debug.StackFrame
	updated event.Signal
}

func (vm *fakeViewModel) FocusedStackFrame() *debug.StackFrame {
	return vm.focused
}

func (vm *fakeViewModel) OnFocusedStackFrameUpdated(fn func()) event.Subscription {
	return vm.updated.Subscribe(fn)
}

type fakeService struct {
	state   debug.State
	session debug.Session
	vm      fakeViewModel
	changed event.Signal
}

func (s *fakeService) State() debug.State           { return s.state }
func (s *fakeService) ActiveSession() debug.Session { return s.session }
func (s *fakeService) ViewModel() debug.ViewModel   { return &s.vm }
func (s *fakeService) OnStateChanged(fn func()) event.Subscription {
	return s.changed.Subscribe(fn)
}

// set changes the polled values and fires StateChanged.
func (s *fakeService) set(state debug.State, session *fakeSession) {
	s.state = state
	if session == nil {
		s.session = nil
	} else {
		s.session = session
	}
	s.changed.Fire()
}

// focus changes the focused frame and fires FocusedStackFrameUpdated.
func (s *fakeService) focus(frame *debug.StackFrame) {
	s.vm.focused = frame
	s.vm.updated.Fire()
}

// fakeExecutor queues work and runs it on demand, continuation included.
type fakeExecutor struct {
	work []func() func()
}

func (e *fakeExecutor) Async(work func() func()) {
	e.work = append(e.work, work)
}

func (e *fakeExecutor) pending() int {
	return len(e.work)
}

// run completes the i-th pending request.
func (e *fakeExecutor) run(i int) {
	w := e.work[i]
	e.work = append(e.work[:i:i], e.work[i+1:]...)
	if cont := w(); cont != nil {
		cont()
	}
}

func (e *fakeExecutor) runAll() {
	for len(e.work) > 0 {
		e.run(0)
	}
}

type fakeSettings struct {
	values   map[string]any
	storeErr error
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]any)}
}

func (s *fakeSettings) Lookup(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *fakeSettings) Store(key string, value any) error {
	if s.storeErr != nil {
		return s.storeErr
	}
	s.values[key] = value
	return nil
}

type fakeContainer struct {
	header    string
	content   string
	writes    int
	collapsed bool
}

func (c *fakeContainer) SetHeader(label string) { c.header = label }

func (c *fakeContainer) SetContent(text string) {
	c.content = text
	c.writes++
}

func (c *fakeContainer) Collapsed() bool { return c.collapsed }

var errAdapter = errors.New("adapter went away")
