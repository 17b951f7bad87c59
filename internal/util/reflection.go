// Package util provides the struct reflection helpers shared by record
// conversion and row scanning.
package util

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"
)

// ErrNotStruct is returned when a struct (or pointer to struct) was expected.
var ErrNotStruct = errors.New("not a struct")

// Field describes an exported struct field mapped to a database column.
type Field struct {
	Name   string       // Go field name
	Column string       // column name from db tag or snake_case field name
	Index  []int        // index path, nested for embedded structs
	Type   reflect.Type // field type
}

var fieldCache sync.Map // map[reflect.Type][]Field

// ParseDBTag returns the column name of a db tag. Options after the first
// comma are ignored, so "id,pk" maps to "id". "-" skips the field.
func ParseDBTag(tag string) string {
	column, _, _ := strings.Cut(tag, ",")
	return strings.TrimSpace(column)
}

// SnakeCase converts a Go field name to snake_case.
// Acronyms stay together: UserID -> user_id, HTTPServer -> http_server.
func SnakeCase(name string) string {
	runes := []rune(name)
	var b strings.Builder
	b.Grow(len(name) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StructFields returns the column-mapped fields of a struct type in
// declaration order. Embedded structs are flattened. Results are cached
// per type.
func StructFields(typ reflect.Type) ([]Field, error) {
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, typ)
	}

	if cached, ok := fieldCache.Load(typ); ok {
		return cached.([]Field), nil
	}

	fields := collectFields(typ, nil)
	actual, _ := fieldCache.LoadOrStore(typ, fields)
	return actual.([]Field), nil
}

func collectFields(typ reflect.Type, index []int) []Field {
	var fields []Field

	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		if !sf.IsExported() {
			continue
		}

		path := append(append([]int{}, index...), i)

		tag, hasTag := sf.Tag.Lookup("db")
		if sf.Anonymous && sf.Type.Kind() == reflect.Struct && !hasTag {
			fields = append(fields, collectFields(sf.Type, path)...)
			continue
		}

		column := SnakeCase(sf.Name)
		if hasTag {
			name := ParseDBTag(tag)
			if name == "-" {
				continue
			}
			if name != "" {
				column = name
			}
		}

		fields = append(fields, Field{
			Name:   sf.Name,
			Column: column,
			Index:  path,
			Type:   sf.Type,
		})
	}
	return fields
}

// FieldsByColumn indexes fields by lower-cased column name.
func FieldsByColumn(fields []Field) map[string]Field {
	m := make(map[string]Field, len(fields))
	for _, f := range fields {
		m[strings.ToLower(f.Column)] = f
	}
	return m
}
