package core

import "github.com/coregx/roach/internal/dialects"

// InsertBuilder starts a standard INSERT statement against one table.
type InsertBuilder struct {
	table *Table
}

// InsertInto starts an INSERT statement for table.
func InsertInto(table *Table) InsertBuilder {
	return InsertBuilder{table: table}
}

// Table returns the target table.
func (b InsertBuilder) Table() *Table {
	return b.table
}

// Values attaches a row batch. Errors match UpsertBuilder.Values.
func (b InsertBuilder) Values(batch *RowBatch) (*InsertStatement, error) {
	body, err := newValuesStatement("INSERT", b.table, batch)
	if err != nil {
		return nil, err
	}
	return &InsertStatement{valuesStatement: body}, nil
}

// Records builds the batch from a slice of structs, see RowsFromStructs.
func (b InsertBuilder) Records(records any) (*InsertStatement, error) {
	batch, err := RowsFromStructs(b.table, records)
	if err != nil {
		return nil, err
	}
	return b.Values(batch)
}

// InsertStatement is a complete INSERT INTO ... VALUES statement.
type InsertStatement struct {
	valuesStatement
}

var _ Statement = (*InsertStatement)(nil)

// SQL renders the statement with the CockroachDB dialect.
func (s *InsertStatement) SQL() RenderedQuery {
	return s.Render(dialects.GetDialect("cockroachdb"))
}
