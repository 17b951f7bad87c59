package benchmark

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"

	"github.com/coregx/roach/internal/core"
)

// discardConn accepts every statement without a database round trip.
type discardConn struct{}

func (discardConn) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	return driver.RowsAffected(len(args)), nil
}

func benchmarkUpsertExecute(b *testing.B, n int) {
	batch, err := core.NewRowBatch(makeRows(n)...)
	if err != nil {
		b.Fatalf("NewRowBatch failed: %v", err)
	}
	stmt, err := core.UpsertInto(events).Values(batch)
	if err != nil {
		b.Fatalf("Values failed: %v", err)
	}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, err := stmt.Execute(ctx, discardConn{}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkUpsertExecute_100rows measures render plus dispatch overhead.
func BenchmarkUpsertExecute_100rows(b *testing.B) { benchmarkUpsertExecute(b, 100) }

// BenchmarkUpsertExecute_1000rows measures render plus dispatch overhead.
func BenchmarkUpsertExecute_1000rows(b *testing.B) { benchmarkUpsertExecute(b, 1000) }
