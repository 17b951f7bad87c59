package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoopLogger(t *testing.T) {
	logger := &NoopLogger{}

	// Should not panic
	logger.Debug("upsert executed", "rows_affected", 2)
	logger.Info("upsert executed")
	logger.Warn("upsert executed")
	logger.Error("upsert failed", "error", "boom")
}

func TestSlogAdapter_Levels(t *testing.T) {
	tests := []struct {
		name      string
		logFunc   func(Logger, string, ...any)
		wantLevel string
	}{
		{name: "debug", logFunc: func(l Logger, m string, a ...any) { l.Debug(m, a...) }, wantLevel: "DEBUG"},
		{name: "info", logFunc: func(l Logger, m string, a ...any) { l.Info(m, a...) }, wantLevel: "INFO"},
		{name: "warn", logFunc: func(l Logger, m string, a ...any) { l.Warn(m, a...) }, wantLevel: "WARN"},
		{name: "error", logFunc: func(l Logger, m string, a ...any) { l.Error(m, a...) }, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			handler := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
			logger := NewSlogAdapter(slog.New(handler))

			tt.logFunc(logger, "statement executed", "table", "users")

			output := buf.String()
			assert.Contains(t, output, "level="+tt.wantLevel)
			assert.Contains(t, output, `msg="statement executed"`)
			assert.Contains(t, output, "table=users")
			assert.Contains(t, output, "component=roach")
		})
	}
}

func TestSlogAdapterJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := NewSlogAdapter(slog.New(handler))

	logger.Info("statement executed",
		"sql", `UPSERT INTO "users" ("name") VALUES ($1)`,
		"rows_affected", 1)

	output := buf.String()
	assert.Contains(t, output, `"msg":"statement executed"`)
	assert.Contains(t, output, `"rows_affected":1`)
	assert.Contains(t, output, `UPSERT INTO`)
}

func TestNewSlogAdapter_NilFallsBackToDefault(t *testing.T) {
	logger := NewSlogAdapter(nil)
	assert.NotNil(t, logger)
	assert.NotPanics(t, func() { logger.Debug("ignored") })
}

func BenchmarkSlogAdapter(b *testing.B) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewTextHandler(&buf, nil)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		logger.Info("statement executed",
			"sql", `UPSERT INTO "users" ("name") VALUES ($1)`,
			"duration_ms", 15,
			"rows_affected", 1)
	}
}
