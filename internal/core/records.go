package core

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/coregx/roach/internal/util"
)

type recordSlot struct {
	column ColumnRef
	index  []int
}

// RowsFromStructs builds a batch from a slice of structs (or pointers to
// structs). Fields map to columns through `db:"name"` tags, falling back to
// the snake_case field name. Columns are bound in the table's declaration
// order; table columns without a matching field are left out of the batch.
//
// Every mapped field type must be assignable to the column type, otherwise
// ErrTypeMismatch is returned before any row is read.
//
// Example:
//
//	type User struct {
//	    ID   int64  `db:"id"`
//	    Name string `db:"name"`
//	}
//	batch, err := roach.RowsFromStructs(users, []User{{1, "Tess"}, {2, "Jim"}})
func RowsFromStructs(table *Table, records any) (*RowBatch, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", ErrInvalidRecords)
	}

	v := reflect.ValueOf(records)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, fmt.Errorf("%w: nil pointer", ErrInvalidRecords)
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidRecords, records)
	}

	elemType := v.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}

	fields, err := util.StructFields(elemType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecords, err)
	}

	plan, err := planRecord(table, util.FieldsByColumn(fields))
	if err != nil {
		return nil, err
	}

	if v.Len() == 0 {
		return nil, ErrEmptyBatch
	}

	rows := make([]Row, v.Len())
	for i := range rows {
		elem := v.Index(i)
		if isPtr {
			if elem.IsNil() {
				return nil, fmt.Errorf("%w: nil record at index %d", ErrInvalidRecords, i)
			}
			elem = elem.Elem()
		}

		row := make(Row, len(plan))
		for j, slot := range plan {
			row[j] = Binding{column: slot.column, value: elem.FieldByIndex(slot.index).Interface()}
		}
		rows[i] = row
	}

	return NewRowBatch(rows...)
}

// planRecord matches table columns to struct fields and checks their types.
func planRecord(table *Table, fields map[string]util.Field) ([]recordSlot, error) {
	plan := make([]recordSlot, 0, len(table.columns))
	for _, col := range table.columns {
		f, ok := fields[strings.ToLower(col.Name())]
		if !ok {
			continue
		}
		if !f.Type.AssignableTo(col.Type()) {
			return nil, fmt.Errorf("%w: field %s (%s) for column %s (%s)",
				ErrTypeMismatch, f.Name, f.Type, col.Name(), col.Type())
		}
		plan = append(plan, recordSlot{column: col, index: f.Index})
	}

	if len(plan) == 0 {
		return nil, fmt.Errorf("%w: no struct field matches a column of %s", ErrNoColumns, table.name)
	}
	return plan, nil
}
