// Package logger wraps zerolog for the services in this module.
//
// Logger embeds zerolog.Logger, so the full zerolog API (Debug, Info, Err,
// ...) is available directly. Services take a *Logger; tests pass Nop().
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is a thin wrapper around zerolog.Logger.
type Logger struct {
	zerolog.Logger
}

// New builds a JSON logger writing to w (os.Stderr when nil). Every entry
// carries a "role" field and a timestamp. Unknown levels fall back to info.
func New(role, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	l := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Str("role", role).
		Timestamp().
		Logger()
	return &Logger{l}
}

// NewConsole builds a human-readable logger for interactive CLI use.
func NewConsole(role, level string, w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	return New(role, level, cw)
}

// ParseLevel maps debug/info/warn/error to zerolog levels.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// Named returns a child logger tagged with component.
func (l *Logger) Named(component string) *Logger {
	return &Logger{l.With().Str("component", component).Logger()}
}

// WithContext attaches l to ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return l.Logger.WithContext(ctx)
}

// FromContext returns the logger attached to ctx. When none is attached the
// zerolog default (disabled) logger is returned, never nil.
func FromContext(ctx context.Context) *Logger {
	return &Logger{*log.Ctx(ctx)}
}

// OrNop returns l, or Nop() when l is nil.
func OrNop(l *Logger) *Logger {
	if l == nil {
		return Nop()
	}
	return l
}
