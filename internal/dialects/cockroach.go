package dialects

import (
	"strconv"
	"strings"
)

// CockroachDialect implements the CockroachDB SQL dialect.
// CockroachDB speaks the PostgreSQL wire protocol, so identifiers use double
// quotes and parameters use $n markers.
type CockroachDialect struct{}

func init() {
	d := &CockroachDialect{}
	RegisterDialect("cockroach", d)
	RegisterDialect("cockroachdb", d)
	// lib/pq registers itself as "postgres"; CockroachDB clusters are reached through it.
	RegisterDialect("postgres", d)
	RegisterDialect("postgresql", d)
}

// Name returns "cockroachdb".
func (d *CockroachDialect) Name() string {
	return "cockroachdb"
}

// QuoteIdentifier quotes a CockroachDB identifier using double quotes.
func (d *CockroachDialect) QuoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Placeholder returns CockroachDB placeholder format ($1, $2, etc.).
func (d *CockroachDialect) Placeholder(index int) string {
	return "$" + strconv.Itoa(index)
}
