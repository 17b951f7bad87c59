// Package core provides the core database functionality including connection
// management, statement building and rendering, execution, prepared statement
// caching for reads, and result scanning for roach.
package core

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/coregx/roach/internal/audit"
	"github.com/coregx/roach/internal/cache"
	"github.com/coregx/roach/internal/dialects"
	"github.com/coregx/roach/internal/logger"
	"github.com/coregx/roach/internal/tracer"
)

// DB represents the main database connection with logging, tracing and a
// prepared statement cache for reads.
type DB struct {
	sqlDB      *sql.DB
	driverName string
	dialect    dialects.Dialect
	stmtCache  *cache.StmtCache
	logger     logger.Logger
	sanitizer  *logger.Sanitizer
	tracer     tracer.Tracer
	queryHook  QueryHook
	auditor    *audit.Auditor

	healthInterval time.Duration
	health         *healthChecker

	ctx context.Context
}

// Tx represents a database transaction.
type Tx struct {
	tx  *sql.Tx
	db  *DB
	ctx context.Context
}

// TxOptions represents transaction options including isolation level.
type TxOptions struct {
	// Isolation level for the transaction (e.g., sql.LevelSerializable)
	Isolation sql.IsolationLevel
	// ReadOnly indicates whether the transaction is read-only
	ReadOnly bool
}

// Option is a functional option for configuring DB.
type Option func(*DB)

// WithMaxOpenConns sets the maximum number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxOpenConns(n)
	}
}

// WithMaxIdleConns sets the maximum number of idle connections.
func WithMaxIdleConns(n int) Option {
	return func(db *DB) {
		db.sqlDB.SetMaxIdleConns(n)
	}
}

// WithConnMaxLifetime sets the maximum amount of time a connection may be reused.
func WithConnMaxLifetime(d time.Duration) Option {
	return func(db *DB) {
		db.sqlDB.SetConnMaxLifetime(d)
	}
}

// WithStmtCacheCapacity sets the prepared statement cache capacity.
func WithStmtCacheCapacity(capacity int) Option {
	return func(db *DB) {
		db.stmtCache = cache.NewStmtCacheWithCapacity(capacity)
	}
}

// WithLogger enables statement logging through slog.
// Parameters are masked by the configured sanitizer before logging.
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger.NewSlogAdapter(l)
	}
}

// WithTracer enables OpenTelemetry spans for every statement.
func WithTracer(t trace.Tracer) Option {
	return func(db *DB) {
		if t == nil {
			db.tracer = &tracer.NoopTracer{}
			return
		}
		db.tracer = tracer.NewOtelTracer(t)
	}
}

// WithSensitiveFields replaces the list of column names whose values are
// masked in logs.
func WithSensitiveFields(fields []string) Option {
	return func(db *DB) {
		db.sanitizer = logger.NewSanitizer(fields)
	}
}

// WithQueryHook registers a callback invoked after every statement.
func WithQueryHook(hook QueryHook) Option {
	return func(db *DB) {
		db.queryHook = hook
	}
}

// WithAuditLog records statements to a separate audit logger. Parameter
// values are replaced by a digest. level selects which statements are recorded.
func WithAuditLog(l *slog.Logger, level audit.Level) Option {
	return func(db *DB) {
		db.auditor = audit.New(l, level)
	}
}

// WithHealthCheck pings the database every interval in the background.
// The result is available through IsHealthy and LastHealthCheck.
func WithHealthCheck(interval time.Duration) Option {
	return func(db *DB) {
		db.healthInterval = interval
	}
}

// NewDB creates a new DB instance. The dialect is chosen from driverName.
func NewDB(driverName, dsn string) (*DB, error) {
	return Open(driverName, dsn)
}

// Open creates a new DB instance with options.
// driverName must name a registered dialect ("cockroachdb", "cockroach",
// "postgres", "postgresql"), otherwise ErrUnsupportedDialect is returned.
// Names without a database/sql driver of their own connect through lib/pq.
func Open(driverName, dsn string, opts ...Option) (*DB, error) {
	if _, ok := dialects.LookupDialect(driverName); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, driverName)
	}

	sqlDB, err := sql.Open(sqlDriverName(driverName), dsn)
	if err != nil {
		return nil, err
	}
	return newDB(sqlDB, driverName, opts)
}

// sqlDriverName maps a dialect name to the database/sql driver that serves it.
func sqlDriverName(name string) string {
	if slices.Contains(sql.Drivers(), name) {
		return name
	}
	return "postgres"
}

// WrapDB wraps an existing *sql.DB. dialect names the SQL dialect to render
// for; pool settings already applied to sqlDB are preserved.
func WrapDB(sqlDB *sql.DB, dialect string, opts ...Option) (*DB, error) {
	if sqlDB == nil {
		return nil, ErrNoConnection
	}
	return newDB(sqlDB, dialect, opts)
}

func newDB(sqlDB *sql.DB, driverName string, opts []Option) (*DB, error) {
	d, ok := dialects.LookupDialect(driverName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDialect, driverName)
	}

	db := &DB{
		sqlDB:      sqlDB,
		driverName: driverName,
		dialect:    d,
		stmtCache:  cache.NewStmtCache(),
		logger:     &logger.NoopLogger{},
		sanitizer:  logger.NewSanitizer(nil),
		tracer:     &tracer.NoopTracer{},
	}
	for _, opt := range opts {
		opt(db)
	}

	if db.healthInterval > 0 {
		db.health = newHealthChecker(sqlDB, db.logger, db.healthInterval)
		db.health.start()
	}
	return db, nil
}

// Close stops the health checker, releases cached statements and closes the
// underlying pool.
func (db *DB) Close() error {
	if db.health != nil {
		db.health.shutdown()
	}
	db.stmtCache.Clear()
	return db.sqlDB.Close()
}

// Unwrap returns the underlying *sql.DB.
func (db *DB) Unwrap() *sql.DB {
	return db.sqlDB
}

// Dialect returns the SQL dialect statements are rendered with.
func (db *DB) Dialect() dialects.Dialect {
	if db == nil {
		return nil
	}
	return db.dialect
}

// WithContext returns a new DB with the given context.
func (db *DB) WithContext(ctx context.Context) *DB {
	newDB := *db
	newDB.ctx = ctx
	return &newDB
}

// Builder returns a query builder for this database.
func (db *DB) Builder() *QueryBuilder {
	return &QueryBuilder{db: db, ctx: db.ctx}
}

// IsHealthy reports whether the last background ping succeeded.
// Without WithHealthCheck it always returns true.
func (db *DB) IsHealthy() bool {
	if db.health == nil {
		return true
	}
	return db.health.isHealthy()
}

// LastHealthCheck returns the time of the last background ping, or the zero
// time when health checking is disabled.
func (db *DB) LastHealthCheck() time.Time {
	if db.health == nil {
		return time.Time{}
	}
	return db.health.lastCheck()
}

// CacheStats returns prepared statement cache statistics.
func (db *DB) CacheStats() cache.Stats {
	return db.stmtCache.Stats()
}

// Begin starts a transaction with default options.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	return db.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with specified options.
func (db *DB) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	var sqlOpts *sql.TxOptions
	if opts != nil {
		sqlOpts = &sql.TxOptions{
			Isolation: opts.Isolation,
			ReadOnly:  opts.ReadOnly,
		}
	}

	tx, err := db.sqlDB.BeginTx(ctx, sqlOpts)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, db: db, ctx: ctx}, nil
}

// Transactional runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back when fn returns an error or panics.
// CockroachDB retry errors are returned to the caller unchanged; see IsRetryable.
func (db *DB) Transactional(ctx context.Context, fn func(*Tx) error) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return WrapError(err, "begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}
	return WrapError(tx.Commit(), "commit transaction")
}

// ExecContext executes a raw SQL statement with logging, tracing and hooks.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.exec(ctx, db.sqlDB, execMeta{}, RenderedQuery{SQL: query, Args: args})
}

// QueryContext executes a raw SQL query and returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.sqlDB.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a raw SQL query expected to return at most one row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.sqlDB.QueryRowContext(ctx, query, args...)
}

func (db *DB) runStatement(ctx context.Context, meta execMeta, q RenderedQuery) (sql.Result, error) {
	if db == nil {
		return nil, ErrNoConnection
	}
	return db.exec(ctx, db.sqlDB, meta, q)
}

// exec sends one statement over conn and records it in the log, the tracer
// and the query hook.
func (db *DB) exec(ctx context.Context, conn Execer, meta execMeta, q RenderedQuery) (sql.Result, error) {
	if meta.op == "" {
		meta.op = tracer.DetectOperation(q.SQL)
	}

	ctx, span := db.tracer.StartSpan(ctx, tracer.SpanExec)
	defer span.End()

	start := time.Now()
	result, err := conn.ExecContext(ctx, q.SQL, q.Args...)
	elapsed := time.Since(start)

	var rowsAffected int64
	if err == nil {
		rowsAffected, _ = result.RowsAffected()
	}

	tracer.AddQueryAttributes(span, &tracer.QueryMetadata{
		SQL:          q.SQL,
		Args:         q.Args,
		Duration:     elapsed,
		RowsAffected: rowsAffected,
		Error:        err,
		SQLState:     sqlState(err),
		Database:     db.dialect.Name(),
		Operation:    meta.op,
		Table:        meta.table,
		BatchRows:    meta.rows,
	})

	params := db.maskParams(meta, q)
	if err != nil {
		db.logger.Error("statement execution failed",
			"sql", q.SQL,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"database", db.dialect.Name(),
			"error", err,
		)
	} else {
		db.logger.Info("statement executed",
			"sql", q.SQL,
			"params", params,
			"duration_ms", elapsed.Milliseconds(),
			"rows_affected", rowsAffected,
			"database", db.dialect.Name(),
		)
	}

	db.auditor.Record(ctx, audit.Event{
		Operation:    meta.op,
		Table:        meta.table,
		BatchRows:    meta.rows,
		AffectedRows: rowsAffected,
		SQL:          q.SQL,
		Args:         q.Args,
		Duration:     elapsed,
		Err:          err,
	})
	db.invokeHook(ctx, QueryEvent{
		SQL:          q.SQL,
		Args:         q.Args,
		Duration:     elapsed,
		RowsAffected: rowsAffected,
		Error:        err,
		Operation:    meta.op,
		Table:        meta.table,
		Retryable:    IsRetryable(err),
	})

	return result, err
}

// maskParams formats arguments for logging. Statements with known argument
// columns mask per column; raw SQL falls back to pattern matching.
func (db *DB) maskParams(meta execMeta, q RenderedQuery) string {
	if meta.argColumns != nil {
		return db.sanitizer.FormatParams(db.sanitizer.MaskColumns(meta.argColumns, q.Args))
	}
	return db.sanitizer.FormatParams(db.sanitizer.MaskParams(q.SQL, q.Args))
}

// Builder returns a query builder bound to this transaction.
// Queries built with it inherit the transaction's context.
func (tx *Tx) Builder() *QueryBuilder {
	return &QueryBuilder{db: tx.db, tx: tx.tx, ctx: tx.ctx}
}

// Dialect returns the dialect of the owning DB.
func (tx *Tx) Dialect() dialects.Dialect {
	if tx == nil {
		return nil
	}
	return tx.db.Dialect()
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	return tx.tx.Commit()
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	return tx.tx.Rollback()
}

// ExecContext executes a raw SQL statement inside the transaction.
func (tx *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return tx.db.exec(ctx, tx.tx, execMeta{}, RenderedQuery{SQL: query, Args: args})
}

func (tx *Tx) runStatement(ctx context.Context, meta execMeta, q RenderedQuery) (sql.Result, error) {
	if tx == nil {
		return nil, ErrNoConnection
	}
	return tx.db.exec(ctx, tx.tx, meta, q)
}
