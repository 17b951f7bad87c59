package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/coregx/roach/internal/dialects"
)

// RenderedQuery is SQL text plus its positional parameters.
type RenderedQuery struct {
	SQL  string
	Args []any
}

// String returns the query in debug form: `<sql> -- binds: [a, b]`.
func (q RenderedQuery) String() string {
	parts := make([]string, len(q.Args))
	for i, a := range q.Args {
		parts[i] = fmt.Sprintf("%#v", a)
	}
	return q.SQL + " -- binds: [" + strings.Join(parts, ", ") + "]"
}

// Statement is the capability set shared by the VALUES statement builders:
// a fully validated statement that renders to SQL and executes on a connection.
type Statement interface {
	// Table returns the target table.
	Table() *Table
	// Columns returns the bound columns in rendering order.
	Columns() []ColumnRef
	// Rows returns the number of VALUES tuples.
	Rows() int
	// Render produces the SQL text and parameters for the dialect.
	Render(d dialects.Dialect) RenderedQuery
	// Execute sends the statement over conn and returns the affected row count.
	Execute(ctx context.Context, conn Execer) (int64, error)
}

// renderValues renders `<keyword> INTO <table> (<cols>) VALUES (...), (...)`.
// Placeholders are numbered row-major; DEFAULT bindings take no placeholder.
func renderValues(keyword string, table *Table, batch *RowBatch, d dialects.Dialect) RenderedQuery {
	var sb strings.Builder
	args := make([]any, 0, batch.valueCount())

	sb.WriteString(keyword)
	sb.WriteString(" INTO ")
	sb.WriteString(table.QuotedName(d))
	sb.WriteString(" (")
	for i, col := range batch.columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdentifier(col.Name()))
	}
	sb.WriteString(") VALUES ")

	for i, row := range batch.rows {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteByte('(')
		for j, b := range row {
			if j > 0 {
				sb.WriteString(", ")
			}
			if b.useDefault {
				sb.WriteString("DEFAULT")
				continue
			}
			args = append(args, b.value)
			sb.WriteString(d.Placeholder(len(args)))
		}
		sb.WriteByte(')')
	}

	return RenderedQuery{SQL: sb.String(), Args: args}
}

// checkOwnership verifies every batch column belongs to table.
func checkOwnership(table *Table, batch *RowBatch) error {
	for _, col := range batch.columns {
		if !table.owns(col) {
			return fmt.Errorf("%w: %s.%s used with %s",
				ErrForeignColumn, col.Table().Name(), col.Name(), table.Name())
		}
	}
	return nil
}

// argColumns returns the column name behind every bound argument, in the
// same order as the rendered Args.
func argColumns(batch *RowBatch) []string {
	names := make([]string, 0, batch.valueCount())
	for _, row := range batch.rows {
		for _, b := range row {
			if !b.useDefault {
				names = append(names, b.column.Name())
			}
		}
	}
	return names
}

// valuesStatement is the shared body of UPSERT and INSERT statements.
type valuesStatement struct {
	keyword string
	table   *Table
	batch   *RowBatch
}

func newValuesStatement(keyword string, table *Table, batch *RowBatch) (valuesStatement, error) {
	if batch == nil {
		return valuesStatement{}, ErrEmptyBatch
	}
	if table == nil {
		return valuesStatement{}, fmt.Errorf("%w: no target table", ErrForeignColumn)
	}
	if err := checkOwnership(table, batch); err != nil {
		return valuesStatement{}, err
	}
	return valuesStatement{keyword: keyword, table: table, batch: batch}, nil
}

// Table returns the target table.
func (s *valuesStatement) Table() *Table {
	return s.table
}

// Columns returns the bound columns in rendering order.
func (s *valuesStatement) Columns() []ColumnRef {
	return s.batch.Columns()
}

// Rows returns the number of VALUES tuples.
func (s *valuesStatement) Rows() int {
	return s.batch.Len()
}

// Render produces the SQL text and parameters for dialect d.
func (s *valuesStatement) Render(d dialects.Dialect) RenderedQuery {
	return renderValues(s.keyword, s.table, s.batch, d)
}

// Execute renders the statement with conn's dialect and sends it as a single
// round trip. Connections without a dialect get CockroachDB rendering.
func (s *valuesStatement) Execute(ctx context.Context, conn Execer) (int64, error) {
	d := dialectOf(conn)
	q := s.Render(d)
	meta := execMeta{
		op:         s.keyword,
		table:      s.table.Name(),
		argColumns: argColumns(s.batch),
		rows:       s.batch.Len(),
	}
	return execute(ctx, conn, meta, q)
}
