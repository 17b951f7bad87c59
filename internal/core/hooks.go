package core

import (
	"context"
	"time"
)

// QueryEvent describes one statement round trip, successful or not.
type QueryEvent struct {
	SQL          string
	Args         []any // unmasked
	Duration     time.Duration
	RowsAffected int64
	Error        error

	Operation string // SELECT, UPSERT, INSERT, ...
	Table     string // set for UPSERT and INSERT statements

	// Retryable is true when Error is a CockroachDB transaction retry error.
	Retryable bool
}

// QueryHook runs synchronously after every statement and query, after the
// log line and the span are written.
//
// Example:
//
//	db, _ := roach.Open("postgres", dsn,
//	    roach.WithQueryHook(func(ctx context.Context, e roach.QueryEvent) {
//	        if e.Retryable {
//	            retries.Inc()
//	        }
//	        latency.Observe(e.Operation, e.Duration)
//	    }))
type QueryHook func(ctx context.Context, event QueryEvent)

func (db *DB) invokeHook(ctx context.Context, event QueryEvent) {
	if db.queryHook != nil {
		db.queryHook(ctx, event)
	}
}
