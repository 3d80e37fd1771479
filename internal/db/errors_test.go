package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatement(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, classifyStatement(nil))
	})

	t.Run("sqlite busy is a retryable statement error", func(t *testing.T) {
		err := classifyStatement(sqlite3.Error{Code: sqlite3.ErrBusy})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindStatement, kind)
		assert.True(t, IsRetryable(err))
	})

	t.Run("sqlite locked is a retryable statement error", func(t *testing.T) {
		err := classifyStatement(sqlite3.Error{Code: sqlite3.ErrLocked})
		assert.True(t, IsRetryable(err))
	})

	t.Run("sqlite constraint is a plain statement error", func(t *testing.T) {
		err := classifyStatement(sqlite3.Error{
			Code:         sqlite3.ErrConstraint,
			ExtendedCode: sqlite3.ErrConstraintUnique,
		})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindStatement, kind)
		assert.False(t, IsRetryable(err))
	})

	t.Run("postgres connection exception is connection lost", func(t *testing.T) {
		err := classifyStatement(&pq.Error{Code: "08006"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindConnectionLost, kind)
	})

	t.Run("postgres too many connections is pool exhausted", func(t *testing.T) {
		err := classifyStatement(&pq.Error{Code: "53300"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindPoolExhausted, kind)
	})

	t.Run("postgres syntax error is a statement error", func(t *testing.T) {
		err := classifyStatement(&pq.Error{Code: "42601"})
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindStatement, kind)
	})

	t.Run("bad connection is connection lost", func(t *testing.T) {
		err := classifyStatement(fmt.Errorf("exec: %w", driver.ErrBadConn))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindConnectionLost, kind)
	})

	t.Run("unknown error falls back to statement error", func(t *testing.T) {
		err := classifyStatement(errors.New("mystery"))
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.Equal(t, ErrKindStatement, kind)
	})
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintUnique,
	}))
	assert.True(t, isUniqueViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintPrimaryKey,
	}))
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))

	assert.False(t, isUniqueViolation(sqlite3.Error{
		Code:         sqlite3.ErrConstraint,
		ExtendedCode: sqlite3.ErrConstraintNotNull,
	}))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23502"}))
	assert.False(t, isUniqueViolation(errors.New("mystery")))

	// Classification wraps the driver error, detection still works.
	classified := classifyStatement(&pq.Error{Code: "23505"})
	assert.True(t, isUniqueViolation(classified))
}

func TestErrorFormatting(t *testing.T) {
	err := newError(ErrKindTranslation, errors.New("unknown directive"))
	assert.Equal(t, "translation: unknown directive", err.Error())

	wrapped := fmt.Errorf("failed to run statement: %w", err)
	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrKindTranslation, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestEveryClassifiedKindIsAMember(t *testing.T) {
	samples := []error{
		classifyStatement(sqlite3.Error{Code: sqlite3.ErrBusy}),
		classifyStatement(&pq.Error{Code: "08006"}),
		classifyStatement(&pq.Error{Code: "53300"}),
		classifyStatement(driver.ErrBadConn),
		classifyStatement(errors.New("mystery")),
		newError(ErrKindConnection, errors.New("boom")),
		newError(ErrKindTranslation, errors.New("boom")),
	}

	for _, err := range samples {
		kind, ok := KindOf(err)
		require.True(t, ok)
		assert.True(t, ErrorKinds.Contains(kind), "kind %q is not a member", kind.Value)
	}
}
