// Package tracer connects roach statements to OpenTelemetry. Each round trip
// becomes one client span carrying database semantic-convention attributes.
package tracer

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names emitted by roach.
const (
	SpanExec  = "roach.exec"
	SpanQuery = "roach.query"
)

// Tracer starts spans. The default is NoopTracer; WithTracer installs an
// OtelTracer.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// Span is the subset of a tracing span roach writes to.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	RecordError(err error)
	SetStatus(code codes.Code, description string)
	End()
}

// NoopTracer records nothing and leaves the context untouched.
type NoopTracer struct{}

func (*NoopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetAttributes(...attribute.KeyValue) {}
func (noopSpan) RecordError(error)                   {}
func (noopSpan) SetStatus(codes.Code, string)        {}
func (noopSpan) End()                                {}

// OtelTracer starts client spans on an OpenTelemetry tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer adapts t. t must not be nil.
func NewOtelTracer(t trace.Tracer) *OtelTracer {
	return &OtelTracer{tracer: t}
}

func (t *OtelTracer) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, otelSpan{Span: span}
}

// otelSpan narrows trace.Span's variadic RecordError to the Span interface.
type otelSpan struct {
	trace.Span
}

func (s otelSpan) RecordError(err error) {
	s.Span.RecordError(err)
}

func (s otelSpan) End() {
	s.Span.End()
}

// QueryMetadata describes one statement round trip.
type QueryMetadata struct {
	SQL          string
	Args         []any
	Duration     time.Duration
	RowsAffected int64
	Error        error
	SQLState     string // driver-reported SQLSTATE, empty on success

	Database  string // dialect name
	Operation string // UPSERT, INSERT, SELECT, ...
	Table     string
	BatchRows int // VALUES tuples sent
}

// AddQueryAttributes writes meta onto span following the OpenTelemetry
// database conventions (https://opentelemetry.io/docs/specs/semconv/database/)
// and marks the span failed when meta.Error is set.
func AddQueryAttributes(span Span, meta *QueryMetadata) {
	attrs := make([]attribute.KeyValue, 0, 9)
	attrs = append(attrs,
		attribute.String("db.system", meta.Database),
		attribute.String("db.statement", meta.SQL),
		attribute.String("db.operation", meta.Operation),
		attribute.Int("db.params", len(meta.Args)),
		attribute.Float64("db.duration_ms", float64(meta.Duration.Microseconds())/1000),
	)
	if meta.Table != "" {
		attrs = append(attrs, attribute.String("db.sql.table", meta.Table))
	}
	if meta.BatchRows > 0 {
		attrs = append(attrs, attribute.Int("db.batch_rows", meta.BatchRows))
	}
	if meta.RowsAffected > 0 {
		attrs = append(attrs, attribute.Int64("db.rows_affected", meta.RowsAffected))
	}
	if meta.SQLState != "" {
		attrs = append(attrs, attribute.String("db.response.status_code", meta.SQLState))
	}
	span.SetAttributes(attrs...)

	if meta.Error == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(meta.Error)
	span.SetStatus(codes.Error, meta.Error.Error())
}

var operations = map[string]string{
	"SELECT": "SELECT",
	"WITH":   "SELECT",
	"UPSERT": "UPSERT",
	"INSERT": "INSERT",
	"UPDATE": "UPDATE",
	"DELETE": "DELETE",
}

// DetectOperation classifies a statement by its first keyword: SELECT
// (including WITH), UPSERT, INSERT, UPDATE, DELETE or UNKNOWN.
func DetectOperation(sql string) string {
	word, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	word, _, _ = strings.Cut(word, "\n")
	if op, ok := operations[strings.ToUpper(word)]; ok {
		return op
	}
	return "UNKNOWN"
}
