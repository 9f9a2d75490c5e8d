package debug

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/dshills/infopanel/internal/dap"
	"github.com/dshills/infopanel/internal/event"
)

// Poster queues work on the single-threaded loop.
type Poster interface {
	Post(fn func()) bool
	Async(work func() func())
}

// AdapterSession is a Session backed by a DAP client.
type AdapterSession struct {
	id     string
	name   string
	client *dap.Client
	post   func(fn func()) bool

	// threadID is the last stopped thread; only read and written on the loop.
	threadID int
}

// NewAdapterSession wraps client. Events delivered through OnEvent are
// posted with post before reaching the subscriber.
func NewAdapterSession(name string, client *dap.Client, post func(fn func()) bool) *AdapterSession {
	return &AdapterSession{
		id:     uuid.New().String(),
		name:   name,
		client: client,
		post:   post,
	}
}

// ID returns the session identifier.
func (s *AdapterSession) ID() string {
	return s.id
}

// Name returns the session label.
func (s *AdapterSession) Name() string {
	return s.name
}

// Client returns the underlying DAP client.
func (s *AdapterSession) Client() *dap.Client {
	return s.client
}

// ThreadID returns the thread of the last stop.
func (s *AdapterSession) ThreadID() int {
	return s.threadID
}

// Custom sends an adapter-specific request. It blocks; call it off the loop.
func (s *AdapterSession) Custom(ctx context.Context, command string, args any) (json.RawMessage, error) {
	return s.client.Custom(ctx, command, args)
}

// OnEvent subscribes to adapter events named name. fn runs on the loop and is
// not called once the subscription is cancelled, even if the event was
// already queued.
func (s *AdapterSession) OnEvent(name string, fn func(body json.RawMessage)) event.Subscription {
	var sub event.Subscription
	sub = s.client.On(name, func(evt dap.Event) {
		body := evt.Body
		s.post(func() {
			if sub.IsActive() {
				fn(body)
			}
		})
	})
	return sub
}
