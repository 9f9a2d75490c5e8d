package dap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	godap "github.com/google/go-dap"

	"github.com/dshills/infopanel/internal/event"
)

// ErrClientClosed is returned for requests issued after Close.
var ErrClientClosed = errors.New("dap client closed")

// Client is a DAP client that communicates with a debug adapter.
//
// Events are delivered on the client's receive goroutine. Subscribers that
// own single-threaded state must hop to their own loop.
type Client struct {
	transport Transport
	seq       atomic.Int64
	pending   map[int]*pendingRequest
	pendingMu sync.Mutex
	events    map[string]*event.Emitter[Event]
	eventsMu  sync.Mutex
	done      chan struct{}
	closeOnce sync.Once
	err       error
	errMu     sync.RWMutex
}

// pendingRequest tracks a request awaiting its response.
type pendingRequest struct {
	done      chan struct{}
	closeOnce sync.Once
	response  *Response
	err       error
}

func (p *pendingRequest) close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

// NewClient creates a client and starts reading from transport.
func NewClient(transport Transport) *Client {
	c := &Client{
		transport: transport,
		pending:   make(map[int]*pendingRequest),
		events:    make(map[string]*event.Emitter[Event]),
		done:      make(chan struct{}),
	}
	go c.receiveLoop()
	return c
}

// Close closes the client and the underlying transport.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	c.failPending(ErrClientClosed)
	return c.transport.Close()
}

// Done is closed when the client is closed or the connection fails.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Error returns the error that stopped the receive loop, if any.
func (c *Client) Error() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.err
}

func (c *Client) receiveLoop() {
	for {
		content, err := c.transport.Receive()
		if err != nil {
			select {
			case <-c.done:
				return
			default:
			}

			c.errMu.Lock()
			c.err = err
			c.errMu.Unlock()

			c.closeOnce.Do(func() {
				close(c.done)
			})
			c.failPending(err)
			return
		}

		select {
		case <-c.done:
			return
		default:
		}

		c.handleMessage(content)
	}
}

func (c *Client) failPending(err error) {
	c.pendingMu.Lock()
	for _, req := range c.pending {
		req.err = err
		req.close()
	}
	c.pending = make(map[int]*pendingRequest)
	c.pendingMu.Unlock()
}

// register records a pending request unless the client is already done.
// Checking under pendingMu orders it against failPending, which runs after
// done is closed.
func (c *Client) register(seq int, p *pendingRequest) error {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()

	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	c.pending[seq] = p
	return nil
}

func (c *Client) handleMessage(content []byte) {
	var base ProtocolMessage
	if err := json.Unmarshal(content, &base); err != nil {
		return
	}

	switch base.Type {
	case TypeResponse:
		c.handleResponse(content)
	case TypeEvent:
		c.handleEvent(content)
	}
}

func (c *Client) handleResponse(content []byte) {
	var resp Response
	if err := json.Unmarshal(content, &resp); err != nil {
		return
	}

	c.pendingMu.Lock()
	req, ok := c.pending[resp.RequestSeq]
	if ok {
		delete(c.pending, resp.RequestSeq)
	}
	c.pendingMu.Unlock()

	if ok {
		req.response = &resp
		req.close()
	}
}

func (c *Client) handleEvent(content []byte) {
	var evt Event
	if err := json.Unmarshal(content, &evt); err != nil {
		return
	}

	c.eventsMu.Lock()
	emitter := c.events[evt.Event]
	c.eventsMu.Unlock()

	if emitter != nil {
		emitter.Emit(evt)
	}
}

// On subscribes to events with the given name.
func (c *Client) On(name string, fn func(Event)) event.Subscription {
	c.eventsMu.Lock()
	emitter, ok := c.events[name]
	if !ok {
		emitter = &event.Emitter[Event]{}
		c.events[name] = emitter
	}
	c.eventsMu.Unlock()

	return emitter.Subscribe(fn)
}

// OnInitialized subscribes to the initialized event.
func (c *Client) OnInitialized(fn func()) event.Subscription {
	return c.On(EventInitialized, func(Event) { fn() })
}

// OnStopped subscribes to the stopped event.
func (c *Client) OnStopped(fn func(godap.StoppedEventBody)) event.Subscription {
	return c.On(EventStopped, func(evt Event) {
		var body godap.StoppedEventBody
		if err := json.Unmarshal(evt.Body, &body); err == nil {
			fn(body)
		}
	})
}

// OnContinued subscribes to the continued event.
func (c *Client) OnContinued(fn func(godap.ContinuedEventBody)) event.Subscription {
	return c.On(EventContinued, func(evt Event) {
		var body godap.ContinuedEventBody
		if err := json.Unmarshal(evt.Body, &body); err == nil {
			fn(body)
		}
	})
}

// OnExited subscribes to the exited event.
func (c *Client) OnExited(fn func(godap.ExitedEventBody)) event.Subscription {
	return c.On(EventExited, func(evt Event) {
		var body godap.ExitedEventBody
		if err := json.Unmarshal(evt.Body, &body); err == nil {
			fn(body)
		}
	})
}

// OnTerminated subscribes to the terminated event. The body is ignored.
func (c *Client) OnTerminated(fn func()) event.Subscription {
	return c.On(EventTerminated, func(Event) { fn() })
}

// OnOutput subscribes to the output event.
func (c *Client) OnOutput(fn func(godap.OutputEventBody)) event.Subscription {
	return c.On(EventOutput, func(evt Event) {
		var body godap.OutputEventBody
		if err := json.Unmarshal(evt.Body, &body); err == nil {
			fn(body)
		}
	})
}

// sendRequest sends a request and waits for the response.
func (c *Client) sendRequest(ctx context.Context, command string, args any) (*Response, error) {
	select {
	case <-c.done:
		return nil, ErrClientClosed
	default:
	}

	seq := int(c.seq.Add(1))

	var argsJSON json.RawMessage
	if args != nil {
		var err error
		argsJSON, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("marshal arguments: %w", err)
		}
	}

	req := Request{
		ProtocolMessage: ProtocolMessage{
			Seq:  seq,
			Type: TypeRequest,
		},
		Command:   command,
		Arguments: argsJSON,
	}

	content, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	pending := &pendingRequest{
		done: make(chan struct{}),
	}

	if err := c.register(seq, pending); err != nil {
		return nil, err
	}

	if err := c.transport.Send(content); err != nil {
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.pendingMu.Lock()
		delete(c.pending, seq)
		c.pendingMu.Unlock()
		return nil, ctx.Err()
	case <-pending.done:
		if pending.err != nil {
			return nil, pending.err
		}
		return pending.response, nil
	}
}

// call sends a request, checks success and decodes the body into out when
// out is non-nil. An absent body leaves out at its zero value.
func (c *Client) call(ctx context.Context, command string, args any, out any) error {
	resp, err := c.sendRequest(ctx, command, args)
	if err != nil {
		return err
	}

	if !resp.Success {
		return fmt.Errorf("%s failed: %s", command, resp.Message)
	}

	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", command, err)
	}
	return nil
}

// Initialize sends the initialize request.
func (c *Client) Initialize(ctx context.Context, args godap.InitializeRequestArguments) (*godap.Capabilities, error) {
	var caps godap.Capabilities
	if err := c.call(ctx, "initialize", args, &caps); err != nil {
		return nil, err
	}
	return &caps, nil
}

// ConfigurationDone sends the configurationDone request.
func (c *Client) ConfigurationDone(ctx context.Context) error {
	return c.call(ctx, "configurationDone", nil, nil)
}

// Launch sends the launch request with adapter-specific arguments.
func (c *Client) Launch(ctx context.Context, args any) error {
	return c.call(ctx, "launch", args, nil)
}

// Attach sends the attach request with adapter-specific arguments.
func (c *Client) Attach(ctx context.Context, args any) error {
	return c.call(ctx, "attach", args, nil)
}

// Disconnect sends the disconnect request.
func (c *Client) Disconnect(ctx context.Context, args godap.DisconnectArguments) error {
	return c.call(ctx, "disconnect", args, nil)
}

// SetBreakpoints sends the setBreakpoints request.
func (c *Client) SetBreakpoints(ctx context.Context, args godap.SetBreakpointsArguments) ([]godap.Breakpoint, error) {
	var body godap.SetBreakpointsResponseBody
	if err := c.call(ctx, "setBreakpoints", args, &body); err != nil {
		return nil, err
	}
	return body.Breakpoints, nil
}

// Continue sends the continue request.
func (c *Client) Continue(ctx context.Context, args godap.ContinueArguments) error {
	return c.call(ctx, "continue", args, nil)
}

// Next sends the next (step over) request.
func (c *Client) Next(ctx context.Context, args godap.NextArguments) error {
	return c.call(ctx, "next", args, nil)
}

// StepIn sends the stepIn request.
func (c *Client) StepIn(ctx context.Context, args godap.StepInArguments) error {
	return c.call(ctx, "stepIn", args, nil)
}

// StepOut sends the stepOut request.
func (c *Client) StepOut(ctx context.Context, args godap.StepOutArguments) error {
	return c.call(ctx, "stepOut", args, nil)
}

// Pause sends the pause request.
func (c *Client) Pause(ctx context.Context, args godap.PauseArguments) error {
	return c.call(ctx, "pause", args, nil)
}

// Threads sends the threads request.
func (c *Client) Threads(ctx context.Context) ([]godap.Thread, error) {
	var body godap.ThreadsResponseBody
	if err := c.call(ctx, "threads", nil, &body); err != nil {
		return nil, err
	}
	return body.Threads, nil
}

// StackTrace sends the stackTrace request.
func (c *Client) StackTrace(ctx context.Context, args godap.StackTraceArguments) (*godap.StackTraceResponseBody, error) {
	var body godap.StackTraceResponseBody
	if err := c.call(ctx, "stackTrace", args, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

// Custom sends an adapter-specific request and returns its raw body.
func (c *Client) Custom(ctx context.Context, command string, args any) (json.RawMessage, error) {
	resp, err := c.sendRequest(ctx, command, args)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("%s failed: %s", command, resp.Message)
	}

	return resp.Body, nil
}
