// Package logging provides leveled, structured logging for infopanel.
package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

// Level represents the severity level of a log message.
type Level int32

const (
	// LevelDebug is for detailed debugging information.
	LevelDebug Level = iota
	// LevelInfo is for general informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string into a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	switch strings.ToLower(s) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// Config configures a Logger.
type Config struct {
	// Level is the minimum level to output.
	Level Level
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Prefix is prepended to every message.
	Prefix string
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
		Prefix: "infopanel",
	}
}

// Logger writes leveled log lines. Loggers derived with With or
// WithComponent share the level of their parent, so SetLevel on the root
// applies everywhere.
type Logger struct {
	out   *log.Logger
	level *atomic.Int32
}

// New creates a Logger.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	out := log.NewWithOptions(cfg.Output, log.Options{
		Level:           log.DebugLevel,
		Prefix:          cfg.Prefix,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	})

	level := &atomic.Int32{}
	level.Store(int32(cfg.Level))

	return &Logger{out: out, level: level}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(Config{Level: LevelError + 1, Output: io.Discard})
}

// With returns a Logger that adds the given key/value pairs to every line.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{out: l.out.With(keyvals...), level: l.level}
}

// WithComponent returns a Logger tagged with a component name.
func (l *Logger) WithComponent(component string) *Logger {
	return l.With("component", component)
}

// SetLevel changes the minimum level for this logger and every logger
// derived from the same root.
func (l *Logger) SetLevel(level Level) {
	l.level.Store(int32(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() Level {
	return Level(l.level.Load())
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.Level()
}

// Debug logs a debug message. args are applied with fmt-style formatting.
func (l *Logger) Debug(msg string, args ...any) {
	if l.Enabled(LevelDebug) {
		l.out.Debugf(msg, args...)
	}
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...any) {
	if l.Enabled(LevelInfo) {
		l.out.Infof(msg, args...)
	}
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	if l.Enabled(LevelWarn) {
		l.out.Warnf(msg, args...)
	}
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	if l.Enabled(LevelError) {
		l.out.Errorf(msg, args...)
	}
}
