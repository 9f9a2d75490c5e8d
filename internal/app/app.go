// Package app assembles the information panel host: configuration,
// logging, the event loop, the debug manager, the panel and the terminal.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/infopanel/internal/config"
	"github.com/dshills/infopanel/internal/dap"
	"github.com/dshills/infopanel/internal/debug"
	"github.com/dshills/infopanel/internal/event"
	"github.com/dshills/infopanel/internal/logging"
	"github.com/dshills/infopanel/internal/loop"
	"github.com/dshills/infopanel/internal/panel"
	"github.com/dshills/infopanel/internal/settings"
	"github.com/dshills/infopanel/internal/ui"
)

// ShutdownTimeout bounds the disconnect request sent on exit.
const ShutdownTimeout = 2 * time.Second

// Options configures a new Application.
type Options struct {
	// ConfigPath is the TOML configuration file. Empty uses defaults and
	// the environment only.
	ConfigPath string

	// LogLevel overrides the configured level when set.
	LogLevel string

	// LogOutput overrides the configured log destination.
	LogOutput io.Writer

	// Screen replaces the terminal, e.g. with a simulation screen.
	Screen tcell.Screen

	// Client is used instead of connecting to the configured adapter.
	Client *dap.Client
}

// Application hosts the information panel in a terminal.
type Application struct {
	opts Options
	cfg  *config.Config

	logger  *logging.Logger
	logFile *os.File

	loop     *loop.Loop
	settings *settings.Store
	debug    *debug.Manager
	panel    *panel.Panel
	widget   *ui.Collapsible
	screen   *ui.Screen
	watcher  *config.Watcher
	scope    *event.Scope

	// Owned by the loop.
	dirty    bool
	message  string
	stopping bool
	exitErr  error

	running      atomic.Bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New loads the configuration and assembles the application. Nothing is
// drawn and no adapter is contacted until Run.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, NewComponentError("config", "load", err)
	}
	if opts.LogLevel != "" {
		if !logging.ValidLevel(opts.LogLevel) {
			return nil, fmt.Errorf("%w: unknown log level %q", ErrInitialization, opts.LogLevel)
		}
		cfg.Logging.Level = opts.LogLevel
	}

	a := &Application{opts: opts, cfg: cfg, scope: event.NewScope()}
	if err := a.bootstrap(); err != nil {
		a.closeLog()
		return nil, err
	}
	return a, nil
}

func (a *Application) bootstrap() error {
	if err := a.initLogging(); err != nil {
		return err
	}

	a.loop = loop.New(loop.WithLogger(a.logger), loop.WithAfterTask(a.flush))

	store, err := settings.Open(a.cfg.Settings.Path)
	if err != nil {
		return NewComponentError("settings", "open", err)
	}
	a.settings = store

	a.debug = debug.NewManager(a.loop, a.logger)

	p, err := panel.New(panel.Deps{
		Service:        a.debug,
		Settings:       a.settings,
		Executor:       a.loop,
		Logger:         a.logger,
		Label:          a.cfg.Panel.Label,
		MinimumSize:    a.cfg.Panel.MinimumSize,
		RequestTimeout: a.cfg.RequestTimeout(),
	})
	if err != nil {
		return NewComponentError("panel", "create", err)
	}
	a.panel = p

	popts := p.Options()
	initial := ui.Expanded
	if popts.Collapsed {
		initial = ui.Collapsed
	}
	a.widget = ui.NewCollapsible(ui.Options{
		Label:        popts.Label,
		MinimumSize:  popts.MinimumSize,
		InitialState: initial,
	})
	_ = a.scope.Add(a.widget.OnChange(a.invalidate))
	_ = a.scope.Add(a.debug.OnStateChanged(a.invalidate))
	p.Mount(a.widget)

	if a.opts.Screen != nil {
		a.screen = ui.NewScreen(a.opts.Screen)
	} else {
		s, err := ui.NewTerminalScreen()
		if err != nil {
			return NewComponentError("screen", "create", err)
		}
		a.screen = s
	}
	return nil
}

func (a *Application) initLogging() error {
	out := a.opts.LogOutput
	if out == nil {
		// The terminal belongs to the panel, so logs go to a file or nowhere.
		out = io.Discard
		if path := a.cfg.Logging.File; path != "" {
			f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return NewComponentError("logging", "open "+path, err)
			}
			a.logFile = f
			out = f
		}
	}
	cfg := logging.DefaultConfig()
	cfg.Level = logging.ParseLevel(a.cfg.Logging.Level)
	cfg.Output = out
	a.logger = logging.New(cfg)
	return nil
}

// Config returns the configuration the application started with.
func (a *Application) Config() *config.Config {
	return a.cfg
}

// Run draws the panel, connects to the adapter and processes events until
// the user quits or ctx is cancelled. A user quit returns ErrQuit.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	if err := a.screen.Init(); err != nil {
		_ = a.Shutdown()
		return NewComponentError("screen", "init", err)
	}

	a.dirty = true
	a.loop.Post(a.startAdapter)
	a.startWatcher()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.screen.PollEvents(func(ev tcell.Event) {
			a.loop.Post(func() { a.handleEvent(ev) })
		})
	}()

	err := a.loop.Run(ctx)

	// Cancelled from outside: the loop has exited, so tearing down here
	// does not race with any task.
	_ = a.Shutdown()
	a.screen.Fini()
	wg.Wait()

	if errors.Is(err, loop.ErrStopped) {
		return a.exitErr
	}
	return err
}

// Shutdown persists the panel state and releases everything in order:
// panel hook, settings save, panel dispose, adapter disconnect, loop stop.
// Only the first call has an effect. While Run is active it must be called
// on the loop.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.stopping = true
		var errs []error

		if err := a.panel.Shutdown(); err != nil {
			errs = append(errs, NewComponentError("panel", "shutdown", err))
		}
		if err := a.settings.Save(); err != nil {
			errs = append(errs, NewComponentError("settings", "save", err))
		}
		a.panel.Dispose()

		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		terminate := a.cfg.Adapter.Request != debug.RequestAttach
		if err := a.debug.Disconnect(ctx, terminate); err != nil {
			errs = append(errs, NewComponentError("adapter", "disconnect", err))
		}
		cancel()

		if a.watcher != nil {
			if err := a.watcher.Close(); err != nil && !errors.Is(err, config.ErrWatcherClosed) {
				errs = append(errs, NewComponentError("config", "close watcher", err))
			}
		}
		a.scope.Close()
		a.loop.Stop()

		for _, err := range errs {
			a.logger.Error("shutdown: %v", err)
		}
		a.shutdownErr = errors.Join(errs...)
		a.closeLog()
	})
	return a.shutdownErr
}

// quit shuts down from a loop task and records the exit reason.
func (a *Application) quit(reason error) {
	if a.exitErr == nil {
		a.exitErr = reason
	}
	if err := a.Shutdown(); err != nil {
		a.exitErr = errors.Join(a.exitErr, err)
	}
}

func (a *Application) closeLog() {
	if a.logFile != nil {
		_ = a.logFile.Close()
		a.logFile = nil
	}
}

func (a *Application) invalidate() {
	a.dirty = true
}

// flush redraws after any task that changed what is on screen.
func (a *Application) flush() {
	if !a.dirty || a.stopping {
		return
	}
	a.dirty = false
	a.screen.Draw(a.widget, a.statusLine())
}

// setMessage shows msg in the status line until the next key.
func (a *Application) setMessage(msg string) {
	if a.message != msg {
		a.message = msg
		a.dirty = true
	}
}

func (a *Application) startWatcher() {
	if a.opts.ConfigPath == "" {
		return
	}
	w, err := config.NewWatcher(a.opts.ConfigPath, func(cfg *config.Config, err error) {
		a.loop.Post(func() { a.applyConfig(cfg, err) })
	}, config.WithErrorHandler(func(err error) {
		a.loop.Post(func() { a.logger.Warn("config watcher: %v", err) })
	}))
	if err != nil {
		a.logger.Warn("not watching %s: %v", a.opts.ConfigPath, err)
		return
	}
	a.watcher = w
}

// applyConfig takes the settings that can change without a restart.
// Adapter settings apply to the next run.
func (a *Application) applyConfig(cfg *config.Config, err error) {
	if a.stopping {
		return
	}
	if err != nil {
		a.logger.Warn("config reload: %v", err)
		a.setMessage("config: " + err.Error())
		return
	}
	if a.opts.LogLevel == "" {
		a.logger.SetLevel(logging.ParseLevel(cfg.Logging.Level))
	}
	a.logger.Info("configuration reloaded from %s", a.opts.ConfigPath)
	a.setMessage("configuration reloaded")
}
