package core

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	_ "modernc.org/sqlite"

	"github.com/coregx/roach/internal/dialects"
)

// Test schema shared by the package tests. Columns can only be declared once.
var (
	users        = NewTable("users")
	userID       = NewColumn[int64](users, "id")
	userName     = NewColumn[string](users, "name")
	userEmail    = NewColumn[*string](users, "email")
	userPassword = NewColumn[string](users, "password")

	posts     = NewTable("app.posts")
	postID    = NewColumn[int64](posts, "id")
	postTitle = NewColumn[string](posts, "title")
)

var cockroach = dialects.GetDialect("cockroachdb")

// newMockDB wraps a go-sqlmock connection that matches SQL text exactly.
func newMockDB(t *testing.T, opts ...Option) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	db, err := WrapDB(sqlDB, "cockroachdb", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// newSQLiteDB opens an in-memory SQLite database rendered with the
// CockroachDB dialect. SQLite accepts double-quoted identifiers, so
// parameterless reads work; UPSERT is rejected by the engine.
func newSQLiteDB(t *testing.T, opts ...Option) *DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db, err := WrapDB(sqlDB, "cockroachdb", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT, password TEXT)`)
	require.NoError(t, err)
	return db
}

func seedUsers(t *testing.T, db *DB) {
	t.Helper()
	_, err := db.Unwrap().Exec(`INSERT INTO users (id, name, email) VALUES (1, 'Tess', 'tess@example.com'), (2, 'Jim', NULL)`)
	require.NoError(t, err)
}

func newTestTracer(t *testing.T) (Option, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return WithTracer(tp.Tracer("roach-test")), exporter
}

func newTestLogger() (Option, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return WithLogger(l), &buf
}

func mustBatch(t *testing.T, rows ...Row) *RowBatch {
	t.Helper()
	batch, err := NewRowBatch(rows...)
	require.NoError(t, err)
	return batch
}

func ptr[T any](v T) *T { return &v }
