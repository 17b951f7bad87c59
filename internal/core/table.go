package core

import (
	"fmt"
	"reflect"

	"github.com/coregx/roach/internal/dialects"
)

// Table identifies a target relation and its ordered list of declared columns.
// Tables are declared once, typically as package-level variables, and are
// never mutated by statements.
//
// Example:
//
//	var (
//	    users     = roach.NewTable("users")
//	    usersID   = roach.NewColumn[int64](users, "id")
//	    usersName = roach.NewColumn[string](users, "name")
//	)
type Table struct {
	name    string
	columns []ColumnRef
	byName  map[string]ColumnRef
}

// NewTable declares a table. The name may be schema-qualified ("app.users").
func NewTable(name string) *Table {
	if name == "" {
		panic("roach: table name must not be empty")
	}
	return &Table{
		name:   name,
		byName: make(map[string]ColumnRef),
	}
}

// Name returns the table name as declared.
func (t *Table) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Columns returns the declared columns in declaration order.
func (t *Table) Columns() []ColumnRef {
	out := make([]ColumnRef, len(t.columns))
	copy(out, t.columns)
	return out
}

// Column looks up a declared column by name.
func (t *Table) Column(name string) (ColumnRef, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// QuotedName renders the table name through the identifier quoter.
func (t *Table) QuotedName(q dialects.IdentifierQuoter) string {
	return dialects.QuoteQualified(q, t.name)
}

// owns reports whether c was declared on t.
func (t *Table) owns(c ColumnRef) bool {
	return c != nil && c.Table() == t
}

// ColumnRef is the type-erased view of a Column.
type ColumnRef interface {
	// Name returns the unqualified column name.
	Name() string
	// Table returns the table the column was declared on.
	Table() *Table
	// Type returns the Go value type the column accepts.
	Type() reflect.Type
}

// Column is a column of table whose values have Go type T.
// Column values are comparable; two columns are the same when they share
// table and name.
type Column[T any] struct {
	table *Table
	name  string
}

// NewColumn declares a column of type T on t and appends it to t's column
// list. Declaring the same name twice panics.
func NewColumn[T any](t *Table, name string) Column[T] {
	if t == nil {
		panic("roach: column declared on nil table")
	}
	if name == "" {
		panic(fmt.Sprintf("roach: empty column name on table %s", t.name))
	}
	if _, dup := t.byName[name]; dup {
		panic(fmt.Sprintf("roach: column %s.%s declared twice", t.name, name))
	}

	c := Column[T]{table: t, name: name}
	t.columns = append(t.columns, c)
	t.byName[name] = c
	return c
}

// Name returns the unqualified column name.
func (c Column[T]) Name() string { return c.name }

// Table returns the table the column belongs to.
func (c Column[T]) Table() *Table { return c.table }

// Type returns reflect.Type of T.
func (c Column[T]) Type() reflect.Type { return reflect.TypeFor[T]() }

func (c Column[T]) String() string { return c.table.Name() + "." + c.name }

// sameColumn compares column identity (table and name), independent of T.
func sameColumn(a, b ColumnRef) bool {
	return a.Table() == b.Table() && a.Name() == b.Name()
}

func columnNames(cols []ColumnRef) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name()
	}
	return names
}
