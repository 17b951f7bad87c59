// Package dialects provides the CockroachDB SQL dialect used by roach, handling
// identifier quoting and positional placeholders.
package dialects

import (
	"strings"
	"sync"
)

// IdentifierQuoter quotes a single SQL identifier (table, column or schema name)
// so that reserved words and mixed-case names stay valid.
type IdentifierQuoter interface {
	QuoteIdentifier(string) string
}

// Dialect defines database-specific behaviors.
type Dialect interface {
	IdentifierQuoter
	// Name returns the canonical dialect name.
	Name() string
	// Placeholder returns the bind marker for the 1-based parameter index.
	Placeholder(int) string
}

var (
	mu       sync.RWMutex
	dialects = make(map[string]Dialect)
)

// RegisterDialect registers a database dialect by driver name.
func RegisterDialect(name string, d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[name] = d
}

// LookupDialect retrieves a registered dialect by driver name.
func LookupDialect(name string) (Dialect, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// GetDialect retrieves a registered dialect by driver name, panics if not found.
func GetDialect(name string) Dialect {
	if d, ok := LookupDialect(name); ok {
		return d
	}
	panic("unsupported dialect: " + name)
}

// QuoteQualified quotes a possibly schema-qualified identifier.
// Each dot-separated part is quoted separately:
//
//	users        -> "users"
//	app.users    -> "app"."users"
func QuoteQualified(q IdentifierQuoter, identifier string) string {
	if !strings.Contains(identifier, ".") {
		return q.QuoteIdentifier(strings.TrimSpace(identifier))
	}

	parts := strings.Split(identifier, ".")
	for i, part := range parts {
		parts[i] = q.QuoteIdentifier(strings.TrimSpace(part))
	}
	return strings.Join(parts, ".")
}
