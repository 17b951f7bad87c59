package core

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"time"

	"github.com/coregx/roach/internal/audit"
	"github.com/coregx/roach/internal/tracer"
)

// Query is a rendered read query bound to a connection.
// When tx is not nil, the query executes within that transaction.
type Query struct {
	sql    string
	params []any
	db     *DB
	tx     *sql.Tx // nil for non-transactional queries
	ctx    context.Context
}

// SQL returns the query text.
func (q *Query) SQL() string {
	return q.sql
}

// Params returns the bind values in placeholder order.
func (q *Query) Params() []any {
	return q.params
}

// WithContext sets the context the query runs with.
func (q *Query) WithContext(ctx context.Context) *Query {
	q.ctx = ctx
	return q
}

// Rendered returns the query as a RenderedQuery.
func (q *Query) Rendered() RenderedQuery {
	return RenderedQuery{SQL: q.sql, Args: q.params}
}

// prepareStatement prepares the query on the transaction, or through the
// statement cache outside one. needsClose is true for statements the cache
// does not own.
func (q *Query) prepareStatement(ctx context.Context) (stmt *sql.Stmt, needsClose bool, err error) {
	if q.tx != nil {
		stmt, err = q.tx.PrepareContext(ctx, q.sql)
		return stmt, true, err
	}
	stmt, cached, err := q.db.stmtCache.Prepare(ctx, q.db.sqlDB, q.sql)
	return stmt, !cached, err
}

// One fetches a single row into a struct. ErrNoRows is returned when the
// query matches nothing.
func (q *Query) One(dest any) error {
	return q.run(func(rows *sql.Rows) (int, error) {
		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, ErrNoRows
		}
		return 1, scanRow(rows, dest)
	})
}

// All fetches all rows into a slice of structs.
func (q *Query) All(dest any) error {
	return q.run(func(rows *sql.Rows) (int, error) {
		if err := scanRows(rows, dest); err != nil {
			return 0, err
		}
		return sliceLen(dest), nil
	})
}

// run prepares and executes the query, hands the rows to scan and records the
// outcome in the log, the tracer and the query hook.
func (q *Query) run(scan func(*sql.Rows) (int, error)) error {
	ctx := q.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := q.db.tracer.StartSpan(ctx, tracer.SpanQuery)
	defer span.End()

	start := time.Now()
	n, err := q.query(ctx, scan)
	elapsed := time.Since(start)

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:       q.sql,
		Args:      q.params,
		Duration:  elapsed,
		Error:     err,
		SQLState:  sqlState(err),
		Database:  q.db.dialect.Name(),
		Operation: tracer.DetectOperation(q.sql),
	})
	q.logResult(n, elapsed, err)
	q.db.auditor.Record(ctx, audit.Event{
		Operation: "SELECT",
		SQL:       q.sql,
		Args:      q.params,
		Duration:  elapsed,
		Err:       err,
	})
	q.db.invokeHook(ctx, QueryEvent{
		SQL:       q.sql,
		Args:      q.params,
		Duration:  elapsed,
		Error:     err,
		Operation: tracer.DetectOperation(q.sql),
		Retryable: IsRetryable(err),
	})

	return err
}

func (q *Query) query(ctx context.Context, scan func(*sql.Rows) (int, error)) (int, error) {
	stmt, needsClose, err := q.prepareStatement(ctx)
	if err != nil {
		return 0, newExecutionError("SELECT", q.sql, err)
	}
	if needsClose {
		defer func() { _ = stmt.Close() }()
	}

	rows, err := stmt.QueryContext(ctx, q.params...)
	if err != nil {
		if !needsClose && stalePlan(ctx, err) {
			q.db.stmtCache.Invalidate(q.sql)
		}
		return 0, newExecutionError("SELECT", q.sql, err)
	}
	defer func() { _ = rows.Close() }()

	return scan(rows)
}

// stalePlanSQLState is reported by CockroachDB when a prepared statement's
// plan no longer matches the schema ("cached plan must not change result type").
const stalePlanSQLState = "0A000"

// stalePlan reports whether err means the cached statement itself is unusable.
// Other callers may hold the same statement, so timeouts, cancellations and
// bad arguments must leave it in the cache.
func stalePlan(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return sqlState(err) == stalePlanSQLState
}

func (q *Query) logResult(rows int, elapsed time.Duration, err error) {
	params := q.db.sanitizer.FormatParams(q.db.sanitizer.MaskParams(q.sql, q.params))

	switch {
	case errors.Is(err, ErrNoRows):
		q.db.logger.Warn("query returned no rows",
			"sql", q.sql,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
		)
	case err != nil:
		q.db.logger.Error("query execution failed",
			"sql", q.sql,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"database", q.db.dialect.Name(),
			"error", err,
		)
	default:
		q.db.logger.Info("query executed",
			"sql", q.sql,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"rows", rows,
			"database", q.db.dialect.Name(),
		)
	}
}

func sliceLen(dest any) int {
	v := reflect.ValueOf(dest)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice {
		return 0
	}
	return v.Len()
}
