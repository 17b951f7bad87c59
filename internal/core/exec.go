package core

import (
	"context"
	"database/sql"

	"github.com/coregx/roach/internal/dialects"
)

// Execer is the connection capability needed to run a statement.
// *sql.DB, *sql.Tx, *sql.Conn and roach's own DB and Tx satisfy it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// dialectProvider is implemented by connections that know their SQL dialect.
type dialectProvider interface {
	Dialect() dialects.Dialect
}

// statementRunner is implemented by instrumented connections (DB, Tx). It lets
// a statement hand over what it knows about itself for logging and tracing.
type statementRunner interface {
	runStatement(ctx context.Context, meta execMeta, q RenderedQuery) (sql.Result, error)
}

// execMeta describes a statement for instrumentation.
type execMeta struct {
	op         string
	table      string
	argColumns []string // column behind every arg; nil for raw SQL
	rows       int
}

// Execute sends q over conn as exactly one statement and returns the number of
// affected rows as reported by the driver. It never retries and never opens or
// commits a transaction.
//
// Every failure is returned as *ExecutionError tagged with op.
func Execute(ctx context.Context, conn Execer, op string, q RenderedQuery) (int64, error) {
	return execute(ctx, conn, execMeta{op: op}, q)
}

func execute(ctx context.Context, conn Execer, meta execMeta, q RenderedQuery) (int64, error) {
	if conn == nil {
		return 0, newExecutionError(meta.op, q.SQL, ErrNoConnection)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return 0, newExecutionError(meta.op, q.SQL, err)
	}

	var (
		result sql.Result
		err    error
	)
	if runner, ok := conn.(statementRunner); ok {
		result, err = runner.runStatement(ctx, meta, q)
	} else {
		result, err = conn.ExecContext(ctx, q.SQL, q.Args...)
	}
	if err != nil {
		return 0, newExecutionError(meta.op, q.SQL, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, newExecutionError(meta.op, q.SQL, err)
	}
	return n, nil
}

// dialectOf returns conn's dialect, defaulting to CockroachDB.
func dialectOf(conn Execer) dialects.Dialect {
	if p, ok := conn.(dialectProvider); ok {
		if d := p.Dialect(); d != nil {
			return d
		}
	}
	return dialects.GetDialect("cockroachdb")
}
