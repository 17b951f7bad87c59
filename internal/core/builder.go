package core

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/coregx/roach/internal/dialects"
)

// QueryBuilder constructs queries and runs statements against a DB.
// When tx is not nil, everything executes within that transaction.
type QueryBuilder struct {
	db  *DB
	tx  *sql.Tx         // nil for non-transactional queries
	ctx context.Context // context for all queries built by this builder
}

// WithContext sets the context for all queries built by this builder.
// The context will be used for all subsequent query operations unless overridden.
func (qb *QueryBuilder) WithContext(ctx context.Context) *QueryBuilder {
	qb.ctx = ctx
	return qb
}

// Execute runs an UPSERT or INSERT statement on the builder's connection,
// inside the transaction when the builder came from Tx.Builder.
func (qb *QueryBuilder) Execute(stmt Statement) (int64, error) {
	ctx := qb.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	if qb.tx != nil {
		return stmt.Execute(ctx, &Tx{tx: qb.tx, db: qb.db, ctx: ctx})
	}
	return stmt.Execute(ctx, qb.db)
}

// Select starts a SELECT query. With no columns, all columns are selected.
func (qb *QueryBuilder) Select(cols ...string) *SelectQuery {
	return &SelectQuery{builder: qb, columns: cols}
}

// SelectQuery represents a SELECT query being built.
type SelectQuery struct {
	builder *QueryBuilder
	columns []string
	table   string
	asOf    Expression
	where   []Expression
	orderBy []string
	limit   int
	ctx     context.Context // context for this specific query
}

// WithContext sets the context for this query.
// This overrides any context set on the QueryBuilder.
func (sq *SelectQuery) WithContext(ctx context.Context) *SelectQuery {
	sq.ctx = ctx
	return sq
}

// From specifies the table to select from. Schema-qualified names are allowed.
func (sq *SelectQuery) From(table string) *SelectQuery {
	sq.table = table
	return sq
}

// FromTable is From for a declared table.
func (sq *SelectQuery) FromTable(t *Table) *SelectQuery {
	return sq.From(t.Name())
}

// AsOfSystemTime turns the query into a historical read. exp is usually one of
// FollowerReadTimestamp, WithMinTimestamp or WithMaxStaleness, or a raw
// expression such as NewExp("'-10s'").
//
// Example:
//
//	db.Builder().Select("id").From("books").
//	    AsOfSystemTime(roach.FollowerReadTimestamp()).
//	    All(&books)
//	// SELECT "id" FROM "books" AS OF SYSTEM TIME follower_read_timestamp()
func (sq *SelectQuery) AsOfSystemTime(exp Expression) *SelectQuery {
	sq.asOf = exp
	return sq
}

// Where adds a condition. Multiple conditions are combined with AND.
// Accepts either a string with "?" placeholders or an Expression.
// Write "??" for the JSONB "?" operator; "?" inside quotes is not a placeholder.
//
// Example:
//
//	Where("status = ? AND age > ?", 1, 18)
//	Where(roach.And(roach.Eq("status", 1), roach.GreaterThan("age", 18)))
//	Where("attrs ?? 'vip' AND note <> 'why?'")
func (sq *SelectQuery) Where(condition any, params ...any) *SelectQuery {
	switch cond := condition.(type) {
	case string:
		sq.where = append(sq.where, NewExp(cond, params...))
	case Expression:
		sq.where = append(sq.where, cond)
	default:
		panic("Where() expects string or Expression")
	}
	return sq
}

// OrderBy adds ORDER BY terms, e.g. "id" or "created_at DESC".
func (sq *SelectQuery) OrderBy(terms ...string) *SelectQuery {
	sq.orderBy = append(sq.orderBy, terms...)
	return sq
}

// Limit sets the maximum number of rows returned. Zero means no limit.
func (sq *SelectQuery) Limit(n int) *SelectQuery {
	sq.limit = n
	return sq
}

// Build renders the query. Bind values are numbered in the order they appear:
// AS OF SYSTEM TIME arguments first, then WHERE arguments.
func (sq *SelectQuery) Build() *Query {
	d := sq.builder.db.dialect
	r := &placeholderRenumberer{dialect: d}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList(d, sq.columns))
	sb.WriteString(" FROM ")
	sb.WriteString(dialects.QuoteQualified(d, sq.table))

	if sq.asOf != nil {
		sql, args := sq.asOf.Build(d)
		sb.WriteString(" AS OF SYSTEM TIME ")
		sb.WriteString(r.renumber(sql, args))
	}

	if where, args := And(sq.where...).Build(d); where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(r.renumber(where, args))
	}

	if len(sq.orderBy) > 0 {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(sq.orderBy, ", "))
	}
	if sq.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(sq.limit))
	}

	// Context priority: query ctx > builder ctx > nil
	ctx := sq.ctx
	if ctx == nil {
		ctx = sq.builder.ctx
	}

	return &Query{
		sql:    sb.String(),
		params: r.args,
		db:     sq.builder.db,
		tx:     sq.builder.tx,
		ctx:    ctx,
	}
}

// One scans a single row into dest.
func (sq *SelectQuery) One(dest any) error {
	return sq.Build().One(dest)
}

// All scans all rows into dest slice.
func (sq *SelectQuery) All(dest any) error {
	return sq.Build().All(dest)
}

// selectList quotes plain column names and passes anything else through.
func selectList(d dialects.Dialect, cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	out := make([]string, len(cols))
	for i, c := range cols {
		if c == "*" || strings.ContainsAny(c, "( *\"") {
			out[i] = c
			continue
		}
		out[i] = dialects.QuoteQualified(d, c)
	}
	return strings.Join(out, ", ")
}

// placeholderRenumberer rewrites "?" markers into dialect placeholders,
// numbering across every fragment of one statement. A "?" inside a quoted
// literal or identifier is left alone, and "??" renders the JSONB "?" operator.
type placeholderRenumberer struct {
	dialect dialects.Dialect
	args    []any
}

func (r *placeholderRenumberer) renumber(fragment string, args []any) string {
	var sb strings.Builder
	sb.Grow(len(fragment) + 2*len(args))
	used := 0
	var quote byte // open ' or ", 0 outside quotes
	for i := 0; i < len(fragment); i++ {
		c := fragment[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?' && i+1 < len(fragment) && fragment[i+1] == '?':
			sb.WriteByte('?')
			i++
			continue
		case c == '?' && used < len(args):
			r.args = append(r.args, args[used])
			used++
			sb.WriteString(r.dialect.Placeholder(len(r.args)))
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
