package core

import "github.com/coregx/roach/internal/dialects"

// UpsertBuilder starts a CockroachDB UPSERT statement against one table.
// It is a plain value; calling Values does not modify it.
//
// UPSERT inserts every row, or updates the bound columns of an existing row
// with the same primary key. Unbound columns take their defaults on insert and
// keep their values on update.
type UpsertBuilder struct {
	table *Table
}

// UpsertInto starts an UPSERT statement for table.
//
// Example:
//
//	batch, _ := roach.NewRowBatch(
//	    roach.Row{roach.Set(userName, "Tess")},
//	    roach.Row{roach.Set(userName, "Jim")},
//	)
//	stmt, err := roach.UpsertInto(users).Values(batch)
//	// UPSERT INTO "users" ("name") VALUES ($1), ($2)
func UpsertInto(table *Table) UpsertBuilder {
	return UpsertBuilder{table: table}
}

// Table returns the target table.
func (b UpsertBuilder) Table() *Table {
	return b.table
}

// Values attaches a row batch and returns a statement ready to render.
// A nil batch yields ErrEmptyBatch; columns of another table yield
// ErrForeignColumn.
func (b UpsertBuilder) Values(batch *RowBatch) (*UpsertStatement, error) {
	body, err := newValuesStatement("UPSERT", b.table, batch)
	if err != nil {
		return nil, err
	}
	return &UpsertStatement{valuesStatement: body}, nil
}

// Records builds the batch from a slice of structs, see RowsFromStructs.
func (b UpsertBuilder) Records(records any) (*UpsertStatement, error) {
	batch, err := RowsFromStructs(b.table, records)
	if err != nil {
		return nil, err
	}
	return b.Values(batch)
}

// UpsertStatement is a complete UPSERT INTO ... VALUES statement.
// Upserts are never routed through the prepared statement cache.
type UpsertStatement struct {
	valuesStatement
}

var _ Statement = (*UpsertStatement)(nil)

// SQL renders the statement with the CockroachDB dialect.
func (s *UpsertStatement) SQL() RenderedQuery {
	return s.Render(dialects.GetDialect("cockroachdb"))
}
