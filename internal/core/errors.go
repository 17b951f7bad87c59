package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// Predefined errors returned by roach operations.
var (
	// ErrEmptyBatch is returned when a row batch has zero rows.
	ErrEmptyBatch = errors.New("row batch is empty")
	// ErrShapeMismatch is returned when rows of a batch bind different columns.
	ErrShapeMismatch = errors.New("rows bind different columns")
	// ErrNoColumns is returned when the first row of a batch binds no column.
	ErrNoColumns = errors.New("row binds no columns")
	// ErrDuplicateColumn is returned when a row binds the same column twice.
	ErrDuplicateColumn = errors.New("column bound more than once")
	// ErrForeignColumn is returned when a bound column belongs to another table.
	ErrForeignColumn = errors.New("column does not belong to target table")
	// ErrTypeMismatch is returned when a record field cannot be assigned to its column.
	ErrTypeMismatch = errors.New("value type does not match column type")
	// ErrInvalidRecords is returned when records are not a slice of structs.
	ErrInvalidRecords = errors.New("records must be a slice of structs")
	// ErrExecution matches every *ExecutionError via errors.Is.
	ErrExecution = errors.New("statement execution failed")
	// ErrNoConnection is returned when a statement is executed without a connection.
	ErrNoConnection = errors.New("no database connection")
	// ErrNoRows is returned when a query that expects rows returns no results.
	ErrNoRows = errors.New("no rows in result set")
	// ErrUnsupportedDialect is returned when an unsupported database dialect is specified.
	ErrUnsupportedDialect = errors.New("unsupported database dialect")
)

// retryableSQLState is CockroachDB's serialization failure code. Transactions
// failing with it can be retried by the caller.
const retryableSQLState = "40001"

// ShapeMismatchError reports a row whose bound columns differ from the first row.
type ShapeMismatchError struct {
	Row  int      // zero-based index of the offending row
	Want []string // canonical column names, from row 0
	Got  []string // column names bound by Row
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("roach: row %d binds (%s), want (%s)",
		e.Row, strings.Join(e.Got, ", "), strings.Join(e.Want, ", "))
}

// Unwrap makes errors.Is(err, ErrShapeMismatch) hold.
func (e *ShapeMismatchError) Unwrap() error {
	return ErrShapeMismatch
}

// ExecutionError is returned when the database rejects or fails to process a
// statement. Err is the driver error, unchanged.
type ExecutionError struct {
	Op   string // UPSERT, INSERT, SELECT, ...
	SQL  string
	Code string // SQLSTATE when the driver reports one
	Err  error
}

func (e *ExecutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("roach: %s failed (SQLSTATE %s): %v", e.Op, e.Code, e.Err)
	}
	return fmt.Sprintf("roach: %s failed: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExecution) hold for every ExecutionError.
func (e *ExecutionError) Is(target error) bool {
	return target == ErrExecution
}

// newExecutionError wraps a driver error. It never double-wraps.
func newExecutionError(op, sql string, err error) error {
	if err == nil {
		return nil
	}
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return err
	}
	return &ExecutionError{Op: op, SQL: sql, Code: sqlState(err), Err: err}
}

// sqlState extracts the SQLSTATE code from a driver error.
func sqlState(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	var coded interface{ SQLState() string }
	if errors.As(err, &coded) {
		return coded.SQLState()
	}
	return ""
}

// IsRetryable reports whether err is a CockroachDB transaction retry error.
// roach never retries on its own; callers decide.
func IsRetryable(err error) bool {
	return sqlState(err) == retryableSQLState
}

// WrapError wraps an error with additional context message.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{
		msg: message,
		err: err,
	}
}

type wrappedError struct {
	msg string
	err error
}

func (e *wrappedError) Error() string {
	return e.msg + ": " + e.err.Error()
}

func (e *wrappedError) Unwrap() error {
	return e.err
}
