package core

import (
	"sort"
	"strings"

	"github.com/coregx/roach/internal/dialects"
)

// Expression is a SQL fragment with bind values, used in WHERE and
// AS OF SYSTEM TIME clauses.
//
// Build returns SQL with "?" placeholders. SelectQuery.Build renumbers them
// into the dialect's placeholders across the whole statement.
type Expression interface {
	Build(dialect dialects.Dialect) (sql string, args []any)
}

// RawExp is a raw SQL fragment with optional bind values.
//
// Example:
//
//	roach.NewExp("age > ? AND status = ?", 18, "active")
type RawExp struct {
	SQL  string
	Args []any
}

// NewExp creates a raw SQL expression. Use "?" for bind values and "??" for
// a literal "?", such as the JSONB key-exists operator.
func NewExp(sql string, args ...any) Expression {
	return &RawExp{SQL: sql, Args: args}
}

// Build returns the fragment unchanged.
func (e *RawExp) Build(_ dialects.Dialect) (string, []any) {
	return e.SQL, e.Args
}

// HashExp is a column-to-value map combined with AND.
//
//   - nil value → "column IS NULL"
//   - []any → "column IN (...)"
//   - Expression → nested, parenthesized
//
// Keys are sorted so the generated SQL is deterministic.
type HashExp map[string]any

// Build converts a HashExp into a SQL fragment.
func (e HashExp) Build(dialect dialects.Dialect) (string, []any) {
	if len(e) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		parts []string
		args  []any
	)
	for _, key := range keys {
		sql, subArgs := buildHashValue(key, e[key], dialect)
		if sql != "" {
			parts = append(parts, sql)
			args = append(args, subArgs...)
		}
	}
	return strings.Join(parts, " AND "), args
}

func buildHashValue(key string, value any, dialect dialects.Dialect) (string, []any) {
	col := dialects.QuoteQualified(dialect, key)

	switch v := value.(type) {
	case nil:
		return col + " IS NULL", nil
	case Expression:
		sql, args := v.Build(dialect)
		if sql == "" {
			return "", nil
		}
		return "(" + sql + ")", args
	case []any:
		return In(key, v...).Build(dialect)
	default:
		return col + "=?", []any{value}
	}
}

// CompareExp is a binary comparison (=, <>, >, <, >=, <=).
type CompareExp struct {
	Col      string
	Operator string
	Value    any
}

// Eq generates "column = value", or "column IS NULL" for a nil value.
func Eq(col string, value any) Expression {
	return &CompareExp{Col: col, Operator: "=", Value: value}
}

// NotEq generates "column <> value", or "column IS NOT NULL" for a nil value.
func NotEq(col string, value any) Expression {
	return &CompareExp{Col: col, Operator: "<>", Value: value}
}

// GreaterThan generates "column > value".
func GreaterThan(col string, value any) Expression {
	return &CompareExp{Col: col, Operator: ">", Value: value}
}

// LessThan generates "column < value".
func LessThan(col string, value any) Expression {
	return &CompareExp{Col: col, Operator: "<", Value: value}
}

// GreaterOrEqual generates "column >= value".
func GreaterOrEqual(col string, value any) Expression {
	return &CompareExp{Col: col, Operator: ">=", Value: value}
}

// LessOrEqual generates "column <= value".
func LessOrEqual(col string, value any) Expression {
	return &CompareExp{Col: col, Operator: "<=", Value: value}
}

// Build converts a comparison into a SQL fragment.
func (e *CompareExp) Build(dialect dialects.Dialect) (string, []any) {
	col := dialects.QuoteQualified(dialect, e.Col)

	if e.Value == nil {
		switch e.Operator {
		case "=":
			return col + " IS NULL", nil
		case "<>":
			return col + " IS NOT NULL", nil
		}
	}

	if exp, ok := e.Value.(Expression); ok {
		sql, args := exp.Build(dialect)
		return col + e.Operator + "(" + sql + ")", args
	}
	return col + e.Operator + "?", []any{e.Value}
}

// InExp is an IN or NOT IN list.
type InExp struct {
	Col    string
	Values []any
	Not    bool
}

// In generates "column IN (v1, v2, ...)". An empty list is always false.
func In(col string, values ...any) Expression {
	return &InExp{Col: col, Values: values}
}

// NotIn generates "column NOT IN (v1, v2, ...)". An empty list is always true.
func NotIn(col string, values ...any) Expression {
	return &InExp{Col: col, Values: values, Not: true}
}

// Build converts an IN list into a SQL fragment.
func (e *InExp) Build(dialect dialects.Dialect) (string, []any) {
	if len(e.Values) == 0 {
		if e.Not {
			return "", nil
		}
		return "0=1", nil
	}

	col := dialects.QuoteQualified(dialect, e.Col)

	if len(e.Values) == 1 {
		v := e.Values[0]
		switch {
		case v == nil && e.Not:
			return col + " IS NOT NULL", nil
		case v == nil:
			return col + " IS NULL", nil
		case e.Not:
			return col + "<>?", []any{v}
		default:
			return col + "=?", []any{v}
		}
	}

	placeholders := make([]string, len(e.Values))
	args := make([]any, 0, len(e.Values))
	for i, v := range e.Values {
		if v == nil {
			placeholders[i] = "NULL"
			continue
		}
		placeholders[i] = "?"
		args = append(args, v)
	}

	op := " IN ("
	if e.Not {
		op = " NOT IN ("
	}
	return col + op + strings.Join(placeholders, ", ") + ")", args
}

// AndOrExp joins expressions with AND or OR.
type AndOrExp struct {
	Exps []Expression
	Op   string
}

// And joins expressions with AND. Nil and empty expressions are skipped.
//
// Example:
//
//	roach.And(roach.Eq("status", 1), roach.GreaterThan("age", 18))
//
// Generates: ("status"=$1) AND ("age">$2)
func And(exps ...Expression) Expression {
	return &AndOrExp{Exps: exps, Op: "AND"}
}

// Or joins expressions with OR. Nil and empty expressions are skipped.
func Or(exps ...Expression) Expression {
	return &AndOrExp{Exps: exps, Op: "OR"}
}

// Build converts the combination into a SQL fragment.
func (e *AndOrExp) Build(dialect dialects.Dialect) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for _, exp := range e.Exps {
		if exp == nil {
			continue
		}
		sql, subArgs := exp.Build(dialect)
		if sql != "" {
			parts = append(parts, sql)
			args = append(args, subArgs...)
		}
	}

	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], args
	}
	return "(" + strings.Join(parts, ") "+e.Op+" (") + ")", args
}

// NotExp negates an expression.
type NotExp struct {
	Exp Expression
}

// Not generates "NOT (expression)".
func Not(exp Expression) Expression {
	return &NotExp{Exp: exp}
}

// Build converts the negation into a SQL fragment.
func (e *NotExp) Build(dialect dialects.Dialect) (string, []any) {
	if e.Exp == nil {
		return "", nil
	}
	sql, args := e.Exp.Build(dialect)
	if sql == "" {
		return "", nil
	}
	return "NOT (" + sql + ")", args
}
