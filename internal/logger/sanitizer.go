package logger

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSensitiveFields are the column names masked when no list is configured.
var DefaultSensitiveFields = []string{
	"password", "passwd", "pwd",
	"token", "api_key", "apikey", "api_token",
	"secret", "auth", "authorization",
	"credit_card", "card_number", "cvv", "cvc",
	"ssn", "social_security",
	"private_key", "priv_key",
}

const (
	maskValue   = "***REDACTED***"
	maxValueLen = 100
)

// Sanitizer masks sensitive query parameters before they reach a log line.
type Sanitizer struct {
	fields   map[string]struct{}
	patterns []*regexp.Regexp
}

// NewSanitizer creates a sanitizer for the given column names.
// An empty list selects DefaultSensitiveFields.
func NewSanitizer(sensitiveFields []string) *Sanitizer {
	if len(sensitiveFields) == 0 {
		sensitiveFields = DefaultSensitiveFields
	}

	s := &Sanitizer{
		fields:   make(map[string]struct{}, len(sensitiveFields)),
		patterns: make([]*regexp.Regexp, 0, len(sensitiveFields)),
	}
	for _, field := range sensitiveFields {
		field = strings.ToLower(field)
		s.fields[field] = struct{}{}
		s.patterns = append(s.patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(field)+`\b`))
	}
	return s
}

// IsSensitive reports whether the column name is configured as sensitive.
func (s *Sanitizer) IsSensitive(column string) bool {
	_, ok := s.fields[strings.ToLower(column)]
	return ok
}

// MaskColumns masks parameters of a VALUES statement. params are laid out
// row-major over columns, so param i belongs to columns[i%len(columns)].
// Only the values of sensitive columns are replaced.
func (s *Sanitizer) MaskColumns(columns []string, params []interface{}) []interface{} {
	if len(columns) == 0 || len(params) == 0 {
		return params
	}

	sensitive := make([]bool, len(columns))
	found := false
	for i, col := range columns {
		sensitive[i] = s.IsSensitive(col)
		found = found || sensitive[i]
	}
	if !found {
		return params
	}

	masked := make([]interface{}, len(params))
	for i, p := range params {
		if sensitive[i%len(columns)] {
			masked[i] = maskValue
			continue
		}
		masked[i] = p
	}
	return masked
}

// MaskParams masks every parameter when the SQL text mentions a sensitive
// field. Used for free-form SQL where parameter positions are unknown.
// Original parameters are not modified.
func (s *Sanitizer) MaskParams(sql string, params []interface{}) []interface{} {
	if len(params) == 0 || !s.containsSensitivePattern(strings.ToLower(sql)) {
		return params
	}

	masked := make([]interface{}, len(params))
	for i := range masked {
		masked[i] = maskValue
	}
	return masked
}

func (s *Sanitizer) containsSensitivePattern(sql string) bool {
	for _, pattern := range s.patterns {
		if pattern.MatchString(sql) {
			return true
		}
	}
	return false
}

// FormatParams converts parameters to a safe string representation for logging.
// Sensitive values should be masked before calling this.
func (s *Sanitizer) FormatParams(params []interface{}) string {
	if len(params) == 0 {
		return "[]"
	}

	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = formatValue(p)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// formatValue truncates very long values to keep log lines bounded.
func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}

	str := fmt.Sprintf("%v", v)
	if len(str) > maxValueLen {
		return str[:maxValueLen] + "..."
	}
	return str
}
