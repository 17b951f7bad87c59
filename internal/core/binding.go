package core

// Binding pairs one column with the value assigned to it for a single row.
type Binding struct {
	column     ColumnRef
	value      any
	useDefault bool
}

// Set binds value to col. The compiler enforces that value has the column's type.
func Set[T any](col Column[T], value T) Binding {
	return Binding{column: col, value: value}
}

// SetDefault assigns the column's DEFAULT expression instead of a bound value.
func SetDefault[T any](col Column[T]) Binding {
	return Binding{column: col, useDefault: true}
}

// Column returns the bound column.
func (b Binding) Column() ColumnRef { return b.column }

// Value returns the bound value; nil for DEFAULT bindings.
func (b Binding) Value() any { return b.value }

// IsDefault reports whether the binding assigns DEFAULT.
func (b Binding) IsDefault() bool { return b.useDefault }

// Row is the ordered set of bindings for one row.
type Row []Binding

func (r Row) columns() []ColumnRef {
	cols := make([]ColumnRef, len(r))
	for i, b := range r {
		cols[i] = b.column
	}
	return cols
}
