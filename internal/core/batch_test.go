package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRowBatch_Empty(t *testing.T) {
	batch, err := NewRowBatch()
	assert.Nil(t, batch)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestNewRowBatch_NoColumns(t *testing.T) {
	_, err := NewRowBatch(Row{})
	assert.ErrorIs(t, err, ErrNoColumns)

	_, err = NewRowBatch(Row{Binding{}})
	assert.ErrorIs(t, err, ErrNoColumns)
}

func TestNewRowBatch_DuplicateColumn(t *testing.T) {
	_, err := NewRowBatch(Row{Set(userName, "a"), Set(userName, "b")})
	assert.ErrorIs(t, err, ErrDuplicateColumn)
}

func TestNewRowBatch_Shape(t *testing.T) {
	batch, err := NewRowBatch(
		Row{Set(userID, 1), Set(userName, "Tess")},
		Row{Set(userID, 2), Set(userName, "Jim")},
		Row{Set(userID, 3), SetDefault(userName)},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, []string{"id", "name"}, columnNames(batch.Columns()))
	assert.Equal(t, 5, batch.valueCount())
}

func TestNewRowBatch_ShapeMismatch(t *testing.T) {
	tests := []struct {
		name string
		row  Row
		got  []string
	}{
		{"missing column", Row{Set(userID, 2)}, []string{"id"}},
		{"extra column", Row{Set(userID, 2), Set(userName, "x"), Set(userPassword, "p")}, []string{"id", "name", "password"}},
		{"different order", Row{Set(userName, "x"), Set(userID, 2)}, []string{"name", "id"}},
		{"different column", Row{Set(userID, 2), Set(userPassword, "p")}, []string{"id", "password"}},
		{"other table", Row{Set(postID, 2), Set(userName, "x")}, []string{"id", "name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRowBatch(
				Row{Set(userID, 1), Set(userName, "Tess")},
				Row{Set(userID, 1), Set(userName, "Tess")},
				tt.row,
			)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrShapeMismatch)

			var shapeErr *ShapeMismatchError
			require.True(t, errors.As(err, &shapeErr))
			assert.Equal(t, 2, shapeErr.Row)
			assert.Equal(t, []string{"id", "name"}, shapeErr.Want)
			assert.Equal(t, tt.got, shapeErr.Got)
		})
	}
}

func TestNewRowBatch_CopiesInput(t *testing.T) {
	row := Row{Set(userName, "Tess")}
	batch := mustBatch(t, row)

	row[0] = Set(userName, "changed")

	q := renderValues("UPSERT", users, batch, cockroach)
	assert.Equal(t, []any{"Tess"}, q.Args)
}

func TestBinding_Accessors(t *testing.T) {
	b := Set(userName, "Tess")
	assert.Equal(t, userName, b.Column())
	assert.Equal(t, "Tess", b.Value())
	assert.False(t, b.IsDefault())

	d := SetDefault(userName)
	assert.True(t, d.IsDefault())
	assert.Nil(t, d.Value())
}
