package tracer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func newTestTracer(t *testing.T) (*OtelTracer, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOtelTracer(tp.Tracer("roach-test")), exporter
}

func attrMap(attrs []attribute.KeyValue) map[string]any {
	m := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		m[string(attr.Key)] = attr.Value.AsInterface()
	}
	return m
}

func TestNoopTracer(t *testing.T) {
	tracer := &NoopTracer{}
	ctx := context.Background()

	got, span := tracer.StartSpan(ctx, SpanExec)
	assert.Equal(t, ctx, got)
	assert.NotNil(t, span)

	span.SetAttributes(attribute.String("key", "value"))
	span.RecordError(errors.New("test error"))
	span.SetStatus(codes.Error, "error")
	span.End()
}

func TestOtelTracer_StartSpan(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExec)
	span.SetAttributes(attribute.String("key", "value"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, SpanExec, spans[0].Name)
	assert.Equal(t, trace.SpanKindClient, spans[0].SpanKind)
	assert.Equal(t, "value", attrMap(spans[0].Attributes)["key"])
}

func TestAddQueryAttributes_Upsert(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExec)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:          `UPSERT INTO "users" ("name") VALUES ($1), ($2)`,
		Args:         []any{"Tess", "Jim"},
		Duration:     15 * time.Millisecond,
		RowsAffected: 2,
		Database:     "cockroachdb",
		Operation:    "UPSERT",
		Table:        "users",
		BatchRows:    2,
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	attrs := attrMap(spans[0].Attributes)

	assert.Equal(t, "cockroachdb", attrs["db.system"])
	assert.Equal(t, "UPSERT", attrs["db.operation"])
	assert.Equal(t, "users", attrs["db.sql.table"])
	assert.Equal(t, int64(2), attrs["db.params"])
	assert.Equal(t, int64(2), attrs["db.batch_rows"])
	assert.Equal(t, int64(2), attrs["db.rows_affected"])
	assert.InDelta(t, 15.0, attrs["db.duration_ms"], 0.1)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
}

func TestAddQueryAttributes_WithError(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExec)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:       `UPSERT INTO "users" ("name") VALUES ($1)`,
		Args:      []any{"Tess"},
		Error:     errors.New("connection refused"),
		Database:  "cockroachdb",
		Operation: "UPSERT",
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "connection refused", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)

	attrs := attrMap(spans[0].Attributes)
	assert.NotContains(t, attrs, "db.rows_affected")
	assert.NotContains(t, attrs, "db.sql.table")
	assert.NotContains(t, attrs, "db.response.status_code")
}

func TestAddQueryAttributes_SQLState(t *testing.T) {
	tracer, exporter := newTestTracer(t)

	_, span := tracer.StartSpan(context.Background(), SpanExec)
	AddQueryAttributes(span, &QueryMetadata{
		SQL:       `UPSERT INTO "users" ("name") VALUES ($1)`,
		Error:     errors.New("restart transaction"),
		SQLState:  "40001",
		Database:  "cockroachdb",
		Operation: "UPSERT",
	})
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "40001", attrMap(spans[0].Attributes)["db.response.status_code"])
}

func TestDetectOperation(t *testing.T) {
	tests := []struct {
		sql  string
		want string
	}{
		{sql: `SELECT * FROM "users"`, want: "SELECT"},
		{sql: "  \n  select 1", want: "SELECT"},
		{sql: "WITH x AS (SELECT 1) SELECT * FROM x", want: "SELECT"},
		{sql: `UPSERT INTO "users" ("name") VALUES ($1)`, want: "UPSERT"},
		{sql: `upsert into t (a) values ($1)`, want: "UPSERT"},
		{sql: "UPSERT\nINTO t (a) VALUES ($1)", want: "UPSERT"},
		{sql: "SELECTED", want: "UNKNOWN"},
		{sql: `INSERT INTO "users" ("name") VALUES ($1)`, want: "INSERT"},
		{sql: `UPDATE "users" SET "name" = $1`, want: "UPDATE"},
		{sql: `DELETE FROM "users"`, want: "DELETE"},
		{sql: "CREATE TABLE t (id INT)", want: "UNKNOWN"},
		{sql: "", want: "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want+"/"+tt.sql, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectOperation(tt.sql))
		})
	}
}
