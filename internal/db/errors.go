package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/orsinium-labs/enum"
)

// ErrorKind classifies every failure surfaced by this package.
type ErrorKind enum.Member[string]

var (
	// ErrKindConnection means a connection could not be established.
	ErrKindConnection = ErrorKind{Value: "connection"}
	// ErrKindConnectionLost means an established connection became
	// unusable mid-use.
	ErrKindConnectionLost = ErrorKind{Value: "connection_lost"}
	// ErrKindTranslation means the neutral SQL used a directive the
	// translator does not recognize for the selected backend.
	ErrKindTranslation = ErrorKind{Value: "translation"}
	// ErrKindStatement means the statement itself failed: malformed SQL, a
	// parameter type mismatch, or a constraint violation.
	ErrKindStatement = ErrorKind{Value: "statement"}
	// ErrKindPoolExhausted means a client/server session could not be
	// checked out of the connection pool before the configured timeout.
	ErrKindPoolExhausted = ErrorKind{Value: "pool_exhausted"}

	// ErrorKinds is the set of valid error kinds.
	ErrorKinds = enum.New(
		ErrKindConnection,
		ErrKindConnectionLost,
		ErrKindTranslation,
		ErrKindStatement,
		ErrKindPoolExhausted,
	)
)

// Error is the error type returned by this package. Kind is always one of
// ErrorKinds. Retryable marks transient statement failures, such as a busy
// embedded database file, that a caller may retry.
type Error struct {
	Kind      ErrorKind
	Retryable bool
	err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Value, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

// KindOf returns the ErrorKind of err if it was produced by this package.
func KindOf(err error) (ErrorKind, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Kind, true
	}
	return ErrorKind{}, false
}

// IsRetryable reports whether err is a transient failure worth retrying.
func IsRetryable(err error) bool {
	var dbErr *Error
	return errors.As(err, &dbErr) && dbErr.Retryable
}

// classifyStatement maps a driver error from statement execution into the
// package taxonomy.
func classifyStatement(err error) error {
	if err == nil {
		return nil
	}
	if lost := asConnectionLost(err); lost != nil {
		return lost
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		// A busy or locked database file means another writer holds the
		// file lock; callers may retry.
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return &Error{Kind: ErrKindStatement, Retryable: true, err: err}
		}
		return newError(ErrKindStatement, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "53300": // too_many_connections
			return &Error{Kind: ErrKindPoolExhausted, Retryable: true, err: err}
		case pqErr.Code.Class() == "08": // connection exceptions
			return newError(ErrKindConnectionLost, err)
		}
		return newError(ErrKindStatement, err)
	}

	return newError(ErrKindStatement, err)
}

// asConnectionLost returns a connection-lost Error if err indicates the
// underlying connection became unusable, nil otherwise.
func asConnectionLost(err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn):
		return newError(ErrKindConnectionLost, err)
	case errors.As(err, &netErr):
		return newError(ErrKindConnectionLost, err)
	}
	return nil
}

// isUniqueViolation reports whether err is a uniqueness constraint
// violation, the single failure InsertOrIgnore converts into a null
// identity instead of propagating.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}

	return false
}
