package core

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	"github.com/coregx/roach/internal/util"
)

// scanTargets returns one scan destination per result column. Columns without
// a matching struct field are scanned into a throwaway value.
func scanTargets(elem reflect.Value, columns []string, fields map[string]util.Field) []any {
	dests := make([]any, len(columns))
	for i, name := range columns {
		f, ok := fields[strings.ToLower(name)]
		if !ok {
			var discard any
			dests[i] = &discard
			continue
		}
		dests[i] = elem.FieldByIndex(f.Index).Addr().Interface()
	}
	return dests
}

// scanRow scans the current row into dest, a pointer to struct.
func scanRow(rows *sql.Rows, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("scanner: dest must be pointer to struct, got %T", dest)
	}
	v = v.Elem()

	fields, err := util.StructFields(v.Type())
	if err != nil {
		return fmt.Errorf("scanner: %w", err)
	}

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("scanner: failed to get columns: %w", err)
	}

	if err := rows.Scan(scanTargets(v, columns, util.FieldsByColumn(fields))...); err != nil {
		return fmt.Errorf("scanner: scan failed: %w", err)
	}
	return nil
}

// scanRows appends every remaining row to dest, a pointer to a slice of
// structs or struct pointers.
func scanRows(rows *sql.Rows, dest any) error {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("scanner: dest must be pointer to slice, got %T", dest)
	}
	slice := v.Elem()
	if slice.Kind() != reflect.Slice {
		return fmt.Errorf("scanner: dest must be pointer to slice, got pointer to %s", slice.Kind())
	}

	elemType := slice.Type().Elem()
	isPtr := elemType.Kind() == reflect.Ptr
	if isPtr {
		elemType = elemType.Elem()
	}

	fields, err := util.StructFields(elemType)
	if err != nil {
		return fmt.Errorf("scanner: %w", err)
	}
	byColumn := util.FieldsByColumn(fields)

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("scanner: failed to get columns: %w", err)
	}

	for rows.Next() {
		elem := reflect.New(elemType).Elem()
		if err := rows.Scan(scanTargets(elem, columns, byColumn)...); err != nil {
			return fmt.Errorf("scanner: scan failed: %w", err)
		}
		if isPtr {
			slice.Set(reflect.Append(slice, elem.Addr()))
		} else {
			slice.Set(reflect.Append(slice, elem))
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("scanner: rows iteration failed: %w", err)
	}
	return nil
}
