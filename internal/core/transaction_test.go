package core

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countUsers(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRowContext(context.Background(), `SELECT count(*) FROM users`).Scan(&n))
	return n
}

func TestTransactional_Commit(t *testing.T) {
	db := newSQLiteDB(t)

	err := db.Transactional(context.Background(), func(tx *Tx) error {
		_, err := tx.ExecContext(context.Background(), `INSERT INTO users (id, name) VALUES (1, 'Tess')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countUsers(t, db))
}

func TestTransactional_Rollback(t *testing.T) {
	db := newSQLiteDB(t)
	boom := errors.New("boom")

	err := db.Transactional(context.Background(), func(tx *Tx) error {
		_, err := tx.ExecContext(context.Background(), `INSERT INTO users (id, name) VALUES (1, 'Tess')`)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countUsers(t, db))
}

func TestTransactional_Panic(t *testing.T) {
	db := newSQLiteDB(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = db.Transactional(context.Background(), func(tx *Tx) error {
			_, _ = tx.ExecContext(context.Background(), `INSERT INTO users (id, name) VALUES (1, 'Tess')`)
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, countUsers(t, db))
}

func TestTx_UpsertUsesTransaction(t *testing.T) {
	var events []QueryEvent
	db, mock := newMockDB(t, WithQueryHook(func(_ context.Context, e QueryEvent) {
		events = append(events, e)
	}))

	mock.ExpectBegin()
	mock.ExpectExec(twoNamesSQL).WithArgs("Tess", "Jim").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	tx, err := db.Begin(context.Background())
	require.NoError(t, err)

	n, err := twoNames(t).Execute(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, events, 1)
	assert.Equal(t, "UPSERT", events[0].Operation)
}

func TestTx_BuilderExecute(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(twoNamesSQL).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectRollback()

	err := db.Transactional(context.Background(), func(tx *Tx) error {
		n, err := tx.Builder().Execute(twoNames(t))
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		return errors.New("abort")
	})
	assert.EqualError(t, err, "abort")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuilder_ExecuteWithoutTx(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(twoNamesSQL).WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := db.Builder().Execute(twoNames(t))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestTx_RetryErrorSurfaces(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(twoNamesSQL).WillReturnError(errors.New("driver: bad connection"))
	mock.ExpectRollback()

	err := db.Transactional(context.Background(), func(tx *Tx) error {
		_, err := twoNames(t).Execute(context.Background(), tx)
		return err
	})
	assert.ErrorIs(t, err, ErrExecution)
	assert.False(t, IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginTx_Options(t *testing.T) {
	db := newSQLiteDB(t)

	tx, err := db.BeginTx(context.Background(), &TxOptions{ReadOnly: false})
	require.NoError(t, err)
	assert.Equal(t, "cockroachdb", tx.Dialect().Name())
	require.NoError(t, tx.Rollback())
}
