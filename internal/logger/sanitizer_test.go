package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_MaskColumns(t *testing.T) {
	s := NewSanitizer(nil)

	tests := []struct {
		name    string
		columns []string
		params  []interface{}
		want    []interface{}
	}{
		{
			name:    "no sensitive columns",
			columns: []string{"id", "name"},
			params:  []interface{}{1, "Tess", 2, "Jim"},
			want:    []interface{}{1, "Tess", 2, "Jim"},
		},
		{
			name:    "password masked in every row",
			columns: []string{"name", "password"},
			params:  []interface{}{"Tess", "hunter2", "Jim", "letmein"},
			want:    []interface{}{"Tess", "***REDACTED***", "Jim", "***REDACTED***"},
		},
		{
			name:    "case insensitive",
			columns: []string{"API_KEY"},
			params:  []interface{}{"sk_live"},
			want:    []interface{}{"***REDACTED***"},
		},
		{
			name:    "no columns",
			columns: nil,
			params:  []interface{}{"x"},
			want:    []interface{}{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.MaskColumns(tt.columns, tt.params))
		})
	}
}

func TestSanitizer_MaskColumns_DoesNotMutateInput(t *testing.T) {
	s := NewSanitizer([]string{"secret"})
	params := []interface{}{"a", "b"}

	_ = s.MaskColumns([]string{"secret"}, params)

	assert.Equal(t, []interface{}{"a", "b"}, params)
}

func TestSanitizer_MaskParams(t *testing.T) {
	s := NewSanitizer(nil)

	masked := s.MaskParams(`UPDATE "users" SET "password" = $1 WHERE "id" = $2`, []interface{}{"hunter2", 1})
	assert.Equal(t, []interface{}{"***REDACTED***", "***REDACTED***"}, masked)

	plain := s.MaskParams(`SELECT * FROM "users" WHERE "id" = $1`, []interface{}{1})
	assert.Equal(t, []interface{}{1}, plain)

	assert.Empty(t, s.MaskParams("SELECT 1", nil))
}

func TestSanitizer_CustomFields(t *testing.T) {
	s := NewSanitizer([]string{"email"})

	assert.True(t, s.IsSensitive("Email"))
	assert.False(t, s.IsSensitive("password"))
}

func TestSanitizer_FormatParams(t *testing.T) {
	s := NewSanitizer(nil)

	assert.Equal(t, "[]", s.FormatParams(nil))
	assert.Equal(t, "[Tess, 42, NULL]", s.FormatParams([]interface{}{"Tess", 42, nil}))

	long := strings.Repeat("x", 150)
	out := s.FormatParams([]interface{}{long})
	assert.True(t, strings.HasSuffix(out, "...]"))
	assert.Len(t, out, 1+100+3+1)
}
