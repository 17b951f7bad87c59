// Package logger is the logging seam of roach. Statements and queries report
// through Logger; the default discards, and WithLogger plugs in log/slog.
package logger

import (
	"context"
	"log/slog"
)

// Logger receives structured key-value records for executed statements,
// transaction events and health checks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NoopLogger drops every record.
type NoopLogger struct{}

func (*NoopLogger) Debug(string, ...any) {}
func (*NoopLogger) Info(string, ...any)  {}
func (*NoopLogger) Warn(string, ...any)  {}
func (*NoopLogger) Error(string, ...any) {}

// SlogAdapter forwards records to an slog.Logger. Every record carries
// component=roach so statement logs can be filtered out of application logs.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps l, or slog.Default() when l is nil.
func NewSlogAdapter(l *slog.Logger) *SlogAdapter {
	if l == nil {
		l = slog.Default()
	}
	return &SlogAdapter{logger: l.With(slog.String("component", "roach"))}
}

func (a *SlogAdapter) Debug(msg string, args ...any) { a.log(slog.LevelDebug, msg, args) }
func (a *SlogAdapter) Info(msg string, args ...any)  { a.log(slog.LevelInfo, msg, args) }
func (a *SlogAdapter) Warn(msg string, args ...any)  { a.log(slog.LevelWarn, msg, args) }
func (a *SlogAdapter) Error(msg string, args ...any) { a.log(slog.LevelError, msg, args) }

func (a *SlogAdapter) log(level slog.Level, msg string, args []any) {
	a.logger.Log(context.Background(), level, msg, args...)
}
