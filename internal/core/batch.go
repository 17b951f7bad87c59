package core

import "fmt"

// RowBatch is an immutable, non-empty sequence of rows that all bind the same
// columns in the same order.
type RowBatch struct {
	columns []ColumnRef
	rows    []Row
}

// NewRowBatch validates rows and builds a batch.
//
// The first row fixes the canonical column order. Every following row must
// bind exactly the same columns in exactly that order; otherwise a
// *ShapeMismatchError is returned. An empty input returns ErrEmptyBatch.
func NewRowBatch(rows ...Row) (*RowBatch, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyBatch
	}

	first := rows[0]
	if len(first) == 0 {
		return nil, ErrNoColumns
	}
	for i, b := range first {
		if b.column == nil {
			return nil, fmt.Errorf("%w: binding %d of row 0", ErrNoColumns, i)
		}
		for _, prev := range first[:i] {
			if sameColumn(prev.column, b.column) {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, b.column.Name())
			}
		}
	}

	columns := first.columns()
	copied := make([]Row, len(rows))
	for i, row := range rows {
		if i > 0 && !sameShape(columns, row) {
			return nil, &ShapeMismatchError{
				Row:  i,
				Want: columnNames(columns),
				Got:  rowColumnNames(row),
			}
		}
		copied[i] = append(Row(nil), row...)
	}

	return &RowBatch{columns: columns, rows: copied}, nil
}

func sameShape(columns []ColumnRef, row Row) bool {
	if len(row) != len(columns) {
		return false
	}
	for i, b := range row {
		if b.column == nil || !sameColumn(columns[i], b.column) {
			return false
		}
	}
	return true
}

func rowColumnNames(row Row) []string {
	names := make([]string, len(row))
	for i, b := range row {
		if b.column == nil {
			names[i] = "<nil>"
			continue
		}
		names[i] = b.column.Name()
	}
	return names
}

// Columns returns the canonical column order.
func (b *RowBatch) Columns() []ColumnRef {
	out := make([]ColumnRef, len(b.columns))
	copy(out, b.columns)
	return out
}

// Len returns the number of rows.
func (b *RowBatch) Len() int {
	return len(b.rows)
}

// valueCount is the number of bound parameters the batch renders to.
func (b *RowBatch) valueCount() int {
	n := 0
	for _, row := range b.rows {
		for _, binding := range row {
			if !binding.useDefault {
				n++
			}
		}
	}
	return n
}
