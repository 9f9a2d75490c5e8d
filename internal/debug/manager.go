package debug

import (
	"context"
	"fmt"
	"sync"
	"time"

	godap "github.com/google/go-dap"

	"github.com/dshills/infopanel/internal/dap"
	"github.com/dshills/infopanel/internal/event"
	"github.com/dshills/infopanel/internal/logging"
)

// DefaultRequestTimeout bounds each adapter request issued by the Manager.
const DefaultRequestTimeout = 10 * time.Second

// Start requests understood by the adapter.
const (
	RequestLaunch = "launch"
	RequestAttach = "attach"
)

// Breakpoint is a source breakpoint installed before configurationDone.
type Breakpoint struct {
	Path      string
	Line      int
	Condition string
}

// StartOptions configures the handshake with a new adapter.
type StartOptions struct {
	// AdapterID is sent in the initialize request.
	AdapterID string

	// ClientName is sent in the initialize request.
	ClientName string

	// Request is RequestLaunch or RequestAttach.
	Request string

	// Arguments are passed through as the launch/attach arguments.
	Arguments map[string]any

	Breakpoints []Breakpoint

	// RequestTimeout bounds each request; zero means DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Manager is the Service backed by a DAP client. All state is owned by the
// loop: adapter events are posted before they are applied, and blocking
// requests run through Poster.Async.
type Manager struct {
	loop   Poster
	logger *logging.Logger

	state        State
	session      *AdapterSession
	sessionSubs  *event.Scope
	capabilities *godap.Capabilities
	timeout      time.Duration

	vm           viewModel
	stateChanged event.Signal

	// epoch invalidates in-flight stack fetches when execution resumes.
	epoch uint64
}

// NewManager creates an inactive Manager.
func NewManager(loop Poster, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		loop:    loop,
		logger:  logger.WithComponent("debug"),
		timeout: DefaultRequestTimeout,
	}
}

// State returns the aggregate debugger state.
func (m *Manager) State() State {
	return m.state
}

// ActiveSession returns the live session or nil.
func (m *Manager) ActiveSession() Session {
	if m.session == nil {
		return nil
	}
	return m.session
}

// Session returns the live adapter session or nil.
func (m *Manager) Session() *AdapterSession {
	return m.session
}

// Capabilities returns what the adapter reported in initialize, if known.
func (m *Manager) Capabilities() *godap.Capabilities {
	return m.capabilities
}

// ViewModel returns the focus model.
func (m *Manager) ViewModel() ViewModel {
	return &m.vm
}

// OnStateChanged subscribes to state changes.
func (m *Manager) OnStateChanged(fn func()) event.Subscription {
	return m.stateChanged.Subscribe(fn)
}

// Start begins a session on client and runs the initialize, launch or
// attach, setBreakpoints, configurationDone handshake in the background.
// Must be called on the loop.
func (m *Manager) Start(name string, client *dap.Client, opts StartOptions) (*AdapterSession, error) {
	if m.session != nil {
		return nil, ErrSessionActive
	}
	switch opts.Request {
	case "":
		opts.Request = RequestLaunch
	case RequestLaunch, RequestAttach:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, opts.Request)
	}
	if opts.RequestTimeout > 0 {
		m.timeout = opts.RequestTimeout
	}

	ses := NewAdapterSession(name, client, m.loop.Post)
	m.session = ses
	m.sessionSubs = event.NewScope()
	m.capabilities = nil
	m.bind(ses)

	m.logger.Info("session %s started (%s)", name, opts.Request)
	m.setState(StateInitializing)

	m.loop.Async(func() func() {
		caps, err := m.handshake(client, opts)
		return func() {
			if m.session != ses {
				return
			}
			if err != nil {
				m.logger.Error("session %s: %v", name, err)
				m.endSession()
				return
			}
			m.capabilities = caps
			// A stop on entry may already have moved past Initializing.
			if m.state == StateInitializing {
				m.setState(StateRunning)
			}
		}
	})

	go func() {
		<-client.Done()
		m.loop.Post(func() {
			if m.session == ses {
				if err := client.Error(); err != nil {
					m.logger.Warn("session %s: adapter connection lost: %v", name, err)
				}
				m.endSession()
			}
		})
	}()

	return ses, nil
}

func (m *Manager) handshake(client *dap.Client, opts StartOptions) (*godap.Capabilities, error) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout*4)
	defer cancel()

	initialized := make(chan struct{})
	var once sync.Once
	sub := client.OnInitialized(func() {
		once.Do(func() { close(initialized) })
	})
	defer sub.Cancel()

	caps, err := client.Initialize(ctx, godap.InitializeRequestArguments{
		ClientID:        "infopanel",
		ClientName:      opts.ClientName,
		AdapterID:       opts.AdapterID,
		LinesStartAt1:   true,
		ColumnsStartAt1: true,
		PathFormat:      "path",
	})
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}

	args := opts.Arguments
	if args == nil {
		args = map[string]any{}
	}
	launched := make(chan error, 1)
	go func() {
		if opts.Request == RequestAttach {
			launched <- client.Attach(ctx, args)
		} else {
			launched <- client.Launch(ctx, args)
		}
	}()

	// Some adapters answer launch only after configurationDone, so
	// configuration starts on the initialized event or the launch
	// response, whichever comes first.
	waitLaunch := true
	select {
	case <-initialized:
	case err := <-launched:
		waitLaunch = false
		if err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Request, err)
		}
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", opts.Request, ctx.Err())
	}

	for _, group := range groupBreakpoints(opts.Breakpoints) {
		bps, err := client.SetBreakpoints(ctx, group)
		if err != nil {
			return nil, fmt.Errorf("set breakpoints in %s: %w", group.Source.Path, err)
		}
		for _, bp := range bps {
			if !bp.Verified {
				m.logger.Warn("breakpoint %s:%d not verified: %s", group.Source.Path, bp.Line, bp.Message)
			}
		}
	}

	if err := client.ConfigurationDone(ctx); err != nil {
		return nil, fmt.Errorf("configurationDone: %w", err)
	}

	if waitLaunch {
		if err := <-launched; err != nil {
			return nil, fmt.Errorf("%s: %w", opts.Request, err)
		}
	}
	return caps, nil
}

// groupBreakpoints builds one setBreakpoints request per file, in the order
// files first appear.
func groupBreakpoints(bps []Breakpoint) []godap.SetBreakpointsArguments {
	var out []godap.SetBreakpointsArguments
	index := make(map[string]int)
	for _, bp := range bps {
		i, ok := index[bp.Path]
		if !ok {
			i = len(out)
			index[bp.Path] = i
			out = append(out, godap.SetBreakpointsArguments{
				Source: godap.Source{Path: bp.Path},
			})
		}
		out[i].Breakpoints = append(out[i].Breakpoints, godap.SourceBreakpoint{
			Line:      bp.Line,
			Condition: bp.Condition,
		})
	}
	return out
}

// bind routes the client's lifecycle events onto the loop.
func (m *Manager) bind(ses *AdapterSession) {
	client := ses.client
	post := func(fn func()) {
		m.loop.Post(func() {
			if m.session == ses {
				fn()
			}
		})
	}

	subs := []event.Subscription{
		client.OnStopped(func(body godap.StoppedEventBody) {
			post(func() { m.onStopped(ses, body) })
		}),
		client.OnContinued(func(body godap.ContinuedEventBody) {
			post(m.onContinued)
		}),
		client.OnExited(func(body godap.ExitedEventBody) {
			post(func() {
				m.logger.Info("session %s: debuggee exited with code %d", ses.name, body.ExitCode)
			})
		}),
		client.OnTerminated(func() {
			post(m.endSession)
		}),
		client.OnOutput(func(body godap.OutputEventBody) {
			post(func() {
				m.logger.Debug("[%s] %s", body.Category, body.Output)
			})
		}),
	}
	for _, sub := range subs {
		_ = m.sessionSubs.Add(sub)
	}
}

func (m *Manager) onStopped(ses *AdapterSession, body godap.StoppedEventBody) {
	m.epoch++
	epoch := m.epoch
	threadID := body.ThreadId
	if threadID == 0 {
		threadID = ses.threadID
	}
	m.logger.Debug("stopped: reason=%s thread=%d", body.Reason, threadID)

	timeout := m.timeout
	m.loop.Async(func() func() {
		frame, tid, err := fetchTopFrame(ses.client, threadID, timeout)
		return func() {
			if m.session != ses || m.epoch != epoch {
				return
			}
			if err != nil {
				m.logger.Warn("stack trace: %v", err)
			}
			if tid != 0 {
				ses.threadID = tid
			}
			m.vm.setFocusedStackFrame(frame)
			// Every stop is announced, including one that arrives while
			// already stopped, so listeners refresh what they show.
			m.notifyState(StateStopped)
		}
	})
}

// fetchTopFrame returns the top frame of threadID, picking the first thread
// when the adapter did not name one.
func fetchTopFrame(client *dap.Client, threadID int, timeout time.Duration) (*StackFrame, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if threadID == 0 {
		threads, err := client.Threads(ctx)
		if err != nil {
			return nil, 0, fmt.Errorf("threads: %w", err)
		}
		if len(threads) == 0 {
			return nil, 0, nil
		}
		threadID = threads[0].Id
	}

	trace, err := client.StackTrace(ctx, godap.StackTraceArguments{
		ThreadId: threadID,
		Levels:   1,
	})
	if err != nil {
		return nil, threadID, err
	}
	if len(trace.StackFrames) == 0 {
		return nil, threadID, nil
	}

	top := trace.StackFrames[0]
	frame := &StackFrame{
		ID:     top.Id,
		Name:   top.Name,
		Line:   top.Line,
		Column: top.Column,
	}
	if top.Source != nil {
		frame.Path = top.Source.Path
	}
	return frame, threadID, nil
}

func (m *Manager) onContinued() {
	m.resume()
}

// resume moves to Running and drops the focused frame.
func (m *Manager) resume() {
	m.epoch++
	if m.vm.focused != nil {
		m.vm.setFocusedStackFrame(nil)
	}
	if m.state != StateRunning {
		m.setState(StateRunning)
	}
}

func (m *Manager) endSession() {
	if m.session == nil {
		return
	}
	m.logger.Info("session %s ended", m.session.name)

	m.sessionSubs.Close()
	m.sessionSubs = nil
	m.session = nil
	m.capabilities = nil
	m.epoch++

	if m.vm.focused != nil {
		m.vm.setFocusedStackFrame(nil)
	}
	m.setState(StateInactive)
}

func (m *Manager) setState(s State) {
	if m.state == s {
		return
	}
	m.notifyState(s)
}

// notifyState sets s and fires StateChanged even when s is unchanged.
func (m *Manager) notifyState(s State) {
	if m.state != s {
		m.logger.Debug("state %s -> %s", m.state, s)
	}
	m.state = s
	m.stateChanged.Fire()
}

// Continue resumes the stopped thread.
func (m *Manager) Continue() error {
	return m.step("continue", func(ctx context.Context, c *dap.Client, tid int) error {
		return c.Continue(ctx, godap.ContinueArguments{ThreadId: tid})
	})
}

// Next steps over on the stopped thread.
func (m *Manager) Next() error {
	return m.step("next", func(ctx context.Context, c *dap.Client, tid int) error {
		return c.Next(ctx, godap.NextArguments{ThreadId: tid})
	})
}

// StepIn steps into on the stopped thread.
func (m *Manager) StepIn() error {
	return m.step("stepIn", func(ctx context.Context, c *dap.Client, tid int) error {
		return c.StepIn(ctx, godap.StepInArguments{ThreadId: tid})
	})
}

// StepOut steps out on the stopped thread.
func (m *Manager) StepOut() error {
	return m.step("stepOut", func(ctx context.Context, c *dap.Client, tid int) error {
		return c.StepOut(ctx, godap.StepOutArguments{ThreadId: tid})
	})
}

// step resumes optimistically so a stop racing the response is never
// overwritten.
func (m *Manager) step(command string, send func(context.Context, *dap.Client, int) error) error {
	ses := m.session
	if ses == nil {
		return ErrNoSession
	}
	if m.state != StateStopped {
		return ErrNotStopped
	}
	tid := ses.threadID
	m.resume()
	m.request(ses, command, func(ctx context.Context) error {
		return send(ctx, ses.client, tid)
	})
	return nil
}

// Pause asks the adapter to suspend the running thread.
func (m *Manager) Pause() error {
	ses := m.session
	if ses == nil {
		return ErrNoSession
	}
	if m.state != StateRunning {
		return nil
	}
	tid := ses.threadID
	m.request(ses, "pause", func(ctx context.Context) error {
		return ses.client.Pause(ctx, godap.PauseArguments{ThreadId: tid})
	})
	return nil
}

func (m *Manager) request(ses *AdapterSession, command string, send func(ctx context.Context) error) {
	timeout := m.timeout
	m.loop.Async(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := send(ctx); err != nil {
			return func() {
				if m.session == ses {
					m.logger.Warn("%s: %v", command, err)
				}
			}
		}
		return nil
	})
}

// Disconnect ends the live session, asking the adapter to terminate the
// debuggee when terminate is set, and closes the client. It blocks until the
// adapter acknowledges or ctx expires. Must be called on the loop.
func (m *Manager) Disconnect(ctx context.Context, terminate bool) error {
	ses := m.session
	if ses == nil {
		return nil
	}
	m.endSession()

	err := ses.client.Disconnect(ctx, godap.DisconnectArguments{TerminateDebuggee: terminate})
	if cerr := ses.client.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	return nil
}
