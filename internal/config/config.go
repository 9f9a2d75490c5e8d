// Package config loads the infopanel configuration.
//
// Configuration comes from three places, later ones winning:
//
//  1. Built-in defaults (Default)
//  2. A TOML file (Load)
//  3. INFOPANEL_* environment variables (ApplyEnv)
//
// A Watcher reloads the file when it changes on disk.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dshills/infopanel/internal/logging"
)

// Config is the complete configuration.
type Config struct {
	Adapter     AdapterConfig      `toml:"adapter"`
	Panel       PanelConfig        `toml:"panel"`
	Logging     LoggingConfig      `toml:"logging"`
	Settings    SettingsConfig     `toml:"settings"`
	Breakpoints []BreakpointConfig `toml:"breakpoints"`
}

// AdapterConfig describes how to reach the debug adapter. Command and
// Address are mutually exclusive; with neither set the panel runs without a
// session.
type AdapterConfig struct {
	// ID is sent as adapterID in the initialize request.
	ID string `toml:"id"`

	// Command starts the adapter and speaks DAP over its stdio.
	Command string   `toml:"command"`
	Args    []string `toml:"args"`

	// Address is host:port of an adapter listening on TCP.
	Address string `toml:"address"`

	// Request is "launch" or "attach".
	Request string `toml:"request"`

	// Arguments are passed through as the launch or attach arguments.
	Arguments map[string]any `toml:"arguments"`

	// RequestTimeout is a Go duration string bounding each request.
	RequestTimeout string `toml:"request_timeout"`
}

// PanelConfig configures the information panel.
type PanelConfig struct {
	Label       string `toml:"label"`
	MinimumSize int    `toml:"minimum_size"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level string `toml:"level"`

	// File receives log output. Empty means stderr is discarded while the
	// terminal UI owns the screen.
	File string `toml:"file"`
}

// SettingsConfig locates the persistent settings document.
type SettingsConfig struct {
	Path string `toml:"path"`
}

// BreakpointConfig is a source breakpoint installed at startup.
type BreakpointConfig struct {
	Path      string `toml:"path"`
	Line      int    `toml:"line"`
	Condition string `toml:"condition"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Adapter: AdapterConfig{
			ID:             "generic",
			Request:        "launch",
			RequestTimeout: "10s",
		},
		Panel: PanelConfig{
			Label:       "Information",
			MinimumSize: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Settings: SettingsConfig{
			Path: DefaultSettingsPath(),
		},
	}
}

// DefaultPath returns config.toml under the user config directory, or in
// the working directory if that is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(dir, "infopanel", "config.toml")
}

// DefaultSettingsPath returns settings.json under the user config directory,
// or in the working directory if that is unknown.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "settings.json"
	}
	return filepath.Join(dir, "infopanel", "settings.json")
}

// RequestTimeout returns the parsed adapter request timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Adapter.RequestTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// HasAdapter reports whether an adapter is configured.
func (c *Config) HasAdapter() bool {
	return c.Adapter.Command != "" || c.Adapter.Address != ""
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...)))
	}

	if c.Adapter.Command != "" && c.Adapter.Address != "" {
		invalid("adapter.command and adapter.address are mutually exclusive")
	}
	switch c.Adapter.Request {
	case "launch", "attach":
	default:
		invalid("adapter.request must be launch or attach, got %q", c.Adapter.Request)
	}
	if d, err := time.ParseDuration(c.Adapter.RequestTimeout); err != nil || d <= 0 {
		invalid("adapter.request_timeout must be a positive duration, got %q", c.Adapter.RequestTimeout)
	}
	if c.Panel.MinimumSize < 0 {
		invalid("panel.minimum_size must not be negative, got %d", c.Panel.MinimumSize)
	}
	if !logging.ValidLevel(c.Logging.Level) {
		invalid("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	if c.Settings.Path == "" {
		invalid("settings.path must be set")
	}
	for i, bp := range c.Breakpoints {
		if bp.Path == "" {
			invalid("breakpoints[%d].path must be set", i)
		}
		if bp.Line <= 0 {
			invalid("breakpoints[%d].line must be positive, got %d", i, bp.Line)
		}
	}

	return errors.Join(errs...)
}
