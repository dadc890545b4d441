package logging

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Logger is a structured logger that writes to the console.
type Logger struct {
	base *charmlog.Logger
}

// Options configures a Logger.
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// NewLogger creates a new Logger writing text at info level to stdout.
func NewLogger() *Logger {
	return New(Options{})
}

// New creates a Logger from options.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	level, err := charmlog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = charmlog.InfoLevel
	}
	base := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
		Level:           level,
	})
	if opts.JSON {
		base.SetFormatter(charmlog.JSONFormatter)
	}
	return &Logger{base: base}
}

// NewForTest creates a silent logger for tests.
func NewForTest() *Logger {
	return New(Options{Level: "error", Output: io.Discard})
}

// With returns a logger carrying the given key/value pairs.
func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{base: l.base.With(keyvals...)}
}

// Info logs an informational message.
func (l *Logger) Info(msg string, keyvals ...any) {
	l.base.Info(msg, keyvals...)
}

// Warn logs a warning.
func (l *Logger) Warn(msg string, keyvals ...any) {
	l.base.Warn(msg, keyvals...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, keyvals ...any) {
	l.base.Error(msg, keyvals...)
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, keyvals ...any) {
	l.base.Debug(msg, keyvals...)
}
