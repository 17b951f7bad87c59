// Package roach is a typed query builder for CockroachDB with first-class
// support for the UPSERT statement.
//
// Tables and columns are declared once with their Go value types. Rows bind
// values to columns, batches of rows become statements, and statements render
// to parameterized SQL and execute through database/sql:
//
//	var (
//	    users    = roach.NewTable("users")
//	    userID   = roach.NewColumn[int64](users, "id")
//	    userName = roach.NewColumn[string](users, "name")
//	)
//
//	batch, err := roach.NewRowBatch(
//	    roach.Row{roach.Set(userID, 1), roach.Set(userName, "Tess")},
//	    roach.Row{roach.Set(userID, 2), roach.Set(userName, "Jim")},
//	)
//	stmt, err := roach.UpsertInto(users).Values(batch)
//	n, err := stmt.Execute(ctx, db)
//	// UPSERT INTO "users" ("id", "name") VALUES ($1, $2), ($3, $4)
//
// Reads go through DB.Builder and support CockroachDB historical reads with
// AS OF SYSTEM TIME. Logging (log/slog), OpenTelemetry tracing, query hooks,
// audit logging and background health checks are configured with options.
package roach

import (
	"github.com/coregx/roach/internal/audit"
	"github.com/coregx/roach/internal/cache"
	"github.com/coregx/roach/internal/core"
	"github.com/coregx/roach/internal/dialects"
)

type (
	// DB represents the main database connection with logging, tracing and statement caching.
	DB = core.DB
	// Tx represents a database transaction.
	Tx = core.Tx
	// TxOptions represents transaction options including isolation level.
	TxOptions = core.TxOptions
	// Option is a functional option for configuring DB.
	Option = core.Option
	// Query represents a rendered read query bound to a connection.
	Query = core.Query
	// QueryBuilder constructs queries and runs statements.
	QueryBuilder = core.QueryBuilder
	// SelectQuery represents a SELECT query being built.
	SelectQuery = core.SelectQuery
	// CacheStats holds prepared statement cache metrics.
	CacheStats = cache.Stats

	// Table is a declared table and its ordered columns.
	Table = core.Table
	// ColumnRef is the type-erased view of a Column.
	ColumnRef = core.ColumnRef
	// Binding assigns a value to a column for one row.
	Binding = core.Binding
	// Row is the ordered set of bindings for one row.
	Row = core.Row
	// RowBatch is a validated, non-empty sequence of rows of the same shape.
	RowBatch = core.RowBatch

	// Statement is implemented by UPSERT and INSERT statements.
	Statement = core.Statement
	// UpsertBuilder starts an UPSERT statement.
	UpsertBuilder = core.UpsertBuilder
	// UpsertStatement is a complete UPSERT INTO ... VALUES statement.
	UpsertStatement = core.UpsertStatement
	// InsertBuilder starts an INSERT statement.
	InsertBuilder = core.InsertBuilder
	// InsertStatement is a complete INSERT INTO ... VALUES statement.
	InsertStatement = core.InsertStatement
	// RenderedQuery is SQL text plus positional parameters.
	RenderedQuery = core.RenderedQuery
	// Execer is the connection capability statements execute on.
	Execer = core.Execer

	// ExecutionError is returned when the database fails a statement.
	ExecutionError = core.ExecutionError
	// ShapeMismatchError is returned when batch rows bind different columns.
	ShapeMismatchError = core.ShapeMismatchError

	// QueryEvent describes an executed statement for hooks.
	QueryEvent = core.QueryEvent
	// QueryHook is invoked after every statement.
	QueryHook = core.QueryHook

	// Expression is a SQL fragment with bind values.
	Expression = core.Expression
	// HashExp is a column-to-value map combined with AND.
	HashExp = core.HashExp

	// Dialect renders identifiers and placeholders for one database.
	Dialect = dialects.Dialect
	// IdentifierQuoter quotes SQL identifiers.
	IdentifierQuoter = dialects.IdentifierQuoter

	// AuditLevel selects which statements WithAuditLog records.
	AuditLevel = audit.Level
)

// Column is a column of a table whose values have Go type T.
type Column[T any] = core.Column[T]

// Audit levels for WithAuditLog.
const (
	AuditOff    = audit.Off
	AuditWrites = audit.Writes
	AuditAll    = audit.All
)

// NewColumn declares a column of type T on t. Declaring a name twice panics.
func NewColumn[T any](t *Table, name string) Column[T] {
	return core.NewColumn[T](t, name)
}

// Set binds value to col. The compiler checks that value has the column's type.
func Set[T any](col Column[T], value T) Binding {
	return core.Set(col, value)
}

// SetDefault assigns the column's DEFAULT expression.
func SetDefault[T any](col Column[T]) Binding {
	return core.SetDefault(col)
}

// Re-export core functions.
var (
	Open    = core.Open
	NewDB   = core.NewDB
	WrapDB  = core.WrapDB
	Execute = core.Execute

	WithMaxOpenConns      = core.WithMaxOpenConns
	WithMaxIdleConns      = core.WithMaxIdleConns
	WithConnMaxLifetime   = core.WithConnMaxLifetime
	WithStmtCacheCapacity = core.WithStmtCacheCapacity
	WithLogger            = core.WithLogger
	WithTracer            = core.WithTracer
	WithSensitiveFields   = core.WithSensitiveFields
	WithQueryHook         = core.WithQueryHook
	WithAuditLog          = core.WithAuditLog
	WithHealthCheck       = core.WithHealthCheck

	// Schema and statements
	NewTable        = core.NewTable
	NewRowBatch     = core.NewRowBatch
	RowsFromStructs = core.RowsFromStructs
	UpsertInto      = core.UpsertInto
	InsertInto      = core.InsertInto

	// Errors
	IsRetryable = core.IsRetryable
	WrapError   = core.WrapError

	// AS OF SYSTEM TIME
	FollowerReadTimestamp       = core.FollowerReadTimestamp
	WithMinTimestamp            = core.WithMinTimestamp
	WithMinTimestampNearestOnly = core.WithMinTimestampNearestOnly
	WithMaxStaleness            = core.WithMaxStaleness
	WithMaxStalenessNearestOnly = core.WithMaxStalenessNearestOnly

	// Expression builders
	NewExp         = core.NewExp
	Eq             = core.Eq
	NotEq          = core.NotEq
	GreaterThan    = core.GreaterThan
	LessThan       = core.LessThan
	GreaterOrEqual = core.GreaterOrEqual
	LessOrEqual    = core.LessOrEqual
	In             = core.In
	NotIn          = core.NotIn
	And            = core.And
	Or             = core.Or
	Not            = core.Not

	// Audit context
	WithAuditUser      = audit.WithUser
	WithAuditRequestID = audit.WithRequestID

	// LookupDialect returns a registered dialect by driver name.
	LookupDialect = dialects.LookupDialect
)

// CockroachDB is the dialect statements render with by default.
var CockroachDB = dialects.GetDialect("cockroachdb")

// Errors returned by roach. Match them with errors.Is.
var (
	ErrEmptyBatch         = core.ErrEmptyBatch
	ErrShapeMismatch      = core.ErrShapeMismatch
	ErrNoColumns          = core.ErrNoColumns
	ErrDuplicateColumn    = core.ErrDuplicateColumn
	ErrForeignColumn      = core.ErrForeignColumn
	ErrTypeMismatch       = core.ErrTypeMismatch
	ErrInvalidRecords     = core.ErrInvalidRecords
	ErrExecution          = core.ErrExecution
	ErrNoConnection       = core.ErrNoConnection
	ErrNoRows             = core.ErrNoRows
	ErrUnsupportedDialect = core.ErrUnsupportedDialect
)
