// Package panel implements the debugger information panel.
//
// The panel mirrors the debug service: execution state, focused frame, the
// current source location reported by the adapter's infoRequest, and the
// hover expression pushed by the adapter's custom event. Every notification
// is folded into an immutable ViewState, which is rendered as text into the
// host's container.
//
// All methods and callbacks must run on the host loop. The only blocking
// call, the info request, goes through Executor.Async and its result is
// applied back on the loop.
package panel

import (
	"errors"
	"fmt"
	"time"

	"github.com/dshills/infopanel/internal/debug"
	"github.com/dshills/infopanel/internal/event"
	"github.com/dshills/infopanel/internal/logging"
)

const (
	// DefaultLabel is the header label.
	DefaultLabel = "Information"

	// DefaultMinimumSize is the minimum body height in lines.
	DefaultMinimumSize = 2

	// DefaultRequestTimeout bounds one info request.
	DefaultRequestTimeout = 5 * time.Second
)

// ErrMissingDependency is returned by New when a required dependency is nil.
var ErrMissingDependency = errors.New("panel: missing dependency")

// Container is the host region the panel draws into.
type Container interface {
	SetHeader(label string)
	SetContent(text string)
	Collapsed() bool
}

// Executor runs blocking work off the loop and posts the returned
// continuation back onto it.
type Executor interface {
	Async(work func() func())
}

// Deps are the collaborators of a Panel.
type Deps struct {
	Service  debug.Service
	Settings Settings
	Executor Executor
	Logger   *logging.Logger

	// Label defaults to DefaultLabel.
	Label string

	// MinimumSize defaults to DefaultMinimumSize.
	MinimumSize int

	// RequestTimeout defaults to DefaultRequestTimeout.
	RequestTimeout time.Duration
}

// Options describe how the host should create the panel's container.
type Options struct {
	Label       string
	MinimumSize int
	Collapsed   bool
}

// Panel is the information view.
type Panel struct {
	service        debug.Service
	settings       Settings
	executor       Executor
	logger         *logging.Logger
	requestTimeout time.Duration
	options        Options

	scope   *event.Scope
	tracker sessionTracker

	view      ViewState
	container Container
	content   string
	renders   int
	disposed  bool
}

// New creates a panel and subscribes it to the service. The initial
// collapsed state is read from the settings store.
func New(d Deps) (*Panel, error) {
	switch {
	case d.Service == nil:
		return nil, fmt.Errorf("%w: service", ErrMissingDependency)
	case d.Settings == nil:
		return nil, fmt.Errorf("%w: settings", ErrMissingDependency)
	case d.Executor == nil:
		return nil, fmt.Errorf("%w: executor", ErrMissingDependency)
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if d.Label == "" {
		d.Label = DefaultLabel
	}
	if d.MinimumSize <= 0 {
		d.MinimumSize = DefaultMinimumSize
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = DefaultRequestTimeout
	}

	p := &Panel{
		service:        d.Service,
		settings:       d.Settings,
		executor:       d.Executor,
		logger:         d.Logger.WithComponent("panel"),
		requestTimeout: d.RequestTimeout,
		options: Options{
			Label:       d.Label,
			MinimumSize: d.MinimumSize,
			Collapsed:   loadCollapsed(d.Settings),
		},
		scope: event.NewScope(),
		view:  ViewState{State: d.Service.State()},
	}

	_ = p.scope.Add(d.Service.ViewModel().OnFocusedStackFrameUpdated(p.onFocusedFrameUpdated))
	_ = p.scope.Add(d.Service.OnStateChanged(p.onStateChanged))
	return p, nil
}

// Options returns how the host should create the container.
func (p *Panel) Options() Options {
	return p.options
}

// Mount attaches the panel to its container and renders the current state.
func (p *Panel) Mount(c Container) {
	p.container = c
	c.SetHeader(p.options.Label)
	p.render()
}

// Snapshot returns the current view state.
func (p *Panel) Snapshot() ViewState {
	return p.view
}

// Content returns the most recently rendered text.
func (p *Panel) Content() string {
	return p.content
}

// Renders returns how many times the panel has rendered.
func (p *Panel) Renders() int {
	return p.renders
}

func (p *Panel) render() {
	p.content = Render(p.view)
	p.renders++
	if p.container != nil {
		p.container.SetContent(p.content)
	}
}

// Shutdown persists the collapsed state. The host calls it before teardown.
func (p *Panel) Shutdown() error {
	collapsed := p.options.Collapsed
	if p.container != nil {
		collapsed = p.container.Collapsed()
	}
	return saveCollapsed(p.settings, collapsed)
}

// Dispose releases every subscription. Safe to call more than once.
func (p *Panel) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	p.tracker.end()
	p.scope.Close()
}
