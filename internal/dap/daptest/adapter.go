// Package daptest provides an in-memory debug adapter for tests.
package daptest

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"sync"

	godap "github.com/google/go-dap"

	"github.com/dshills/infopanel/internal/dap"
)

// Handler answers one request. A non-nil error produces a failed response
// whose message is the error text.
type Handler func(args json.RawMessage) (any, error)

// Adapter is a scripted debug adapter on one end of a net.Pipe.
type Adapter struct {
	conn   net.Conn
	client *dap.Client

	writeMu sync.Mutex
	seq     int

	mu       sync.Mutex
	handlers map[string]Handler
	requests []dap.Request
	held     map[string]chan struct{}

	done chan struct{}
}

// New starts an adapter and returns it with a client connected to it.
// Requests without a handler succeed with an empty body.
func New() *Adapter {
	server, clientConn := net.Pipe()
	a := &Adapter{
		conn:     server,
		handlers: make(map[string]Handler),
		held:     make(map[string]chan struct{}),
		done:     make(chan struct{}),
	}
	a.client = dap.NewClient(dap.NewRawTransport(clientConn))
	go a.serve()
	return a
}

// Client returns the client connected to the adapter.
func (a *Adapter) Client() *dap.Client {
	return a.client
}

// Handle installs the handler for command.
func (a *Adapter) Handle(command string, h Handler) {
	a.mu.Lock()
	a.handlers[command] = h
	a.mu.Unlock()
}

// Respond installs a handler that always returns body.
func (a *Adapter) Respond(command string, body any) {
	a.Handle(command, func(json.RawMessage) (any, error) { return body, nil })
}

// Fail installs a handler that always fails with message.
func (a *Adapter) Fail(command, message string) {
	a.Handle(command, func(json.RawMessage) (any, error) { return nil, errors.New(message) })
}

// Hold delays responses to command until the returned function is called.
func (a *Adapter) Hold(command string) (release func()) {
	ch := make(chan struct{})
	a.mu.Lock()
	a.held[command] = ch
	a.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { close(ch) })
	}
}

// Requests returns the commands received so far, in order.
func (a *Adapter) Requests() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]string, len(a.requests))
	for i, req := range a.requests {
		out[i] = req.Command
	}
	return out
}

// Arguments returns the raw arguments of every request for command.
func (a *Adapter) Arguments(command string) []json.RawMessage {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []json.RawMessage
	for _, req := range a.requests {
		if req.Command == command {
			out = append(out, req.Arguments)
		}
	}
	return out
}

// Count returns how many requests for command were received.
func (a *Adapter) Count(command string) int {
	return len(a.Arguments(command))
}

// Emit sends an event to the client.
func (a *Adapter) Emit(name string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return a.write(func(seq int) any {
		return dap.Event{
			ProtocolMessage: dap.ProtocolMessage{Seq: seq, Type: dap.TypeEvent},
			Event:           name,
			Body:            raw,
		}
	})
}

// Close drops the connection as a crashing adapter would.
func (a *Adapter) Close() error {
	err := a.conn.Close()
	<-a.done
	return err
}

func (a *Adapter) serve() {
	defer close(a.done)

	reader := bufio.NewReader(a.conn)
	for {
		content, err := godap.ReadBaseMessage(reader)
		if err != nil {
			return
		}
		var req dap.Request
		if err := json.Unmarshal(content, &req); err != nil {
			continue
		}

		a.mu.Lock()
		a.requests = append(a.requests, req)
		handler := a.handlers[req.Command]
		held := a.held[req.Command]
		a.mu.Unlock()

		if held != nil {
			go func() {
				<-held
				a.answer(req, handler)
			}()
			continue
		}
		a.answer(req, handler)
	}
}

func (a *Adapter) answer(req dap.Request, handler Handler) {
	var (
		body any
		err  error
	)
	if handler != nil {
		body, err = handler(req.Arguments)
	}

	resp := dap.Response{
		RequestSeq: req.Seq,
		Success:    err == nil,
		Command:    req.Command,
	}
	if err != nil {
		resp.Message = err.Error()
	} else if body != nil {
		resp.Body, err = json.Marshal(body)
		if err != nil {
			resp.Success = false
			resp.Message = err.Error()
		}
	}

	_ = a.write(func(seq int) any {
		resp.ProtocolMessage = dap.ProtocolMessage{Seq: seq, Type: dap.TypeResponse}
		return resp
	})
}

func (a *Adapter) write(build func(seq int) any) error {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	a.seq++
	content, err := json.Marshal(build(a.seq))
	if err != nil {
		return err
	}
	return godap.WriteBaseMessage(a.conn, content)
}
