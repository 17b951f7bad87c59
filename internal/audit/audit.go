// Package audit records write statements (UPSERT, INSERT, UPDATE, DELETE) to a
// dedicated slog logger. Parameter values are never logged, only a SHA-256
// digest of them.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// Level selects which statements are audited.
type Level int

const (
	// Off disables auditing.
	Off Level = iota
	// Writes audits UPSERT, INSERT, UPDATE and DELETE.
	Writes
	// All audits every statement, reads included.
	All
)

// Event is one audited statement.
type Event struct {
	Operation    string
	Table        string
	BatchRows    int
	AffectedRows int64
	SQL          string
	Args         []any
	Duration     time.Duration
	Err          error
}

// Auditor writes audit events.
type Auditor struct {
	logger *slog.Logger
	level  Level
}

// New creates an auditor. A nil logger disables auditing.
func New(logger *slog.Logger, level Level) *Auditor {
	return &Auditor{logger: logger, level: level}
}

// Record logs e if the auditor's level covers e.Operation.
// Successful statements log at Info, failures at Warn.
func (a *Auditor) Record(ctx context.Context, e Event) {
	if a == nil || !a.covers(e.Operation) {
		return
	}

	level := slog.LevelInfo
	errText := ""
	if e.Err != nil {
		level = slog.LevelWarn
		errText = e.Err.Error()
	}

	a.logger.Log(ctx, level, "audit",
		"operation", e.Operation,
		"table", e.Table,
		"batch_rows", e.BatchRows,
		"affected_rows", e.AffectedRows,
		"sql", e.SQL,
		"params_hash", HashArgs(e.Args),
		"user", User(ctx),
		"request_id", RequestID(ctx),
		"success", e.Err == nil,
		"error", errText,
		"duration_ms", e.Duration.Milliseconds(),
	)
}

func (a *Auditor) covers(op string) bool {
	if a.logger == nil {
		return false
	}
	switch a.level {
	case Writes:
		return op == "UPSERT" || op == "INSERT" || op == "UPDATE" || op == "DELETE"
	case All:
		return true
	}
	return false
}

// HashArgs returns a hex SHA-256 digest of the argument values, or "" when
// there are none. Identical arguments hash identically.
func HashArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	h := sha256.New()
	for _, a := range args {
		_, _ = fmt.Fprintf(h, "%T:%v;", a, a)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type contextKey string

const (
	userKey      contextKey = "roach:user"
	requestIDKey contextKey = "roach:request_id"
)

// WithUser attaches the acting user to ctx for audit records.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// WithRequestID attaches a request ID to ctx for audit records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// User returns the user attached by WithUser.
func User(ctx context.Context) string {
	s, _ := ctx.Value(userKey).(string)
	return s
}

// RequestID returns the request ID attached by WithRequestID.
func RequestID(ctx context.Context) string {
	s, _ := ctx.Value(requestIDKey).(string)
	return s
}
