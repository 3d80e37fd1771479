package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/foiaio/foiadb/internal/log"
)

// Session wraps one checked-out physical connection and owns the current
// transaction state for a single logical unit of work. A session must not
// be shared across concurrent units of work; each one opens its own.
//
// The transaction starts lazily on the first statement and ends with Commit
// or Rollback. Close releases the connection and is safe to call multiple
// times; an active transaction still open at close time is rolled back.
type Session struct {
	id     string
	db     *DB
	conn   *sql.Conn
	tx     *sql.Tx
	closed bool
}

// ID returns the identifier used to correlate this session in logs.
func (s *Session) ID() string {
	return s.id
}

// InTransaction reports whether the session currently holds an open
// transaction.
func (s *Session) InTransaction() bool {
	return s.tx != nil
}

// begin lazily opens the transaction on the first statement execution.
func (s *Session) begin(ctx context.Context) error {
	if s.tx != nil {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		if lost := asConnectionLost(err); lost != nil {
			return lost
		}
		return newError(ErrKindConnection, fmt.Errorf("failed to begin transaction: %w", err))
	}
	s.tx = tx
	return nil
}

// Cursor holds the fully drained, normalized result of one Execute call.
type Cursor struct {
	rows []Row
	next int
}

// FetchOne returns the next row, and false once the cursor is exhausted.
func (c *Cursor) FetchOne() (Row, bool) {
	if c.next >= len(c.rows) {
		return Row{}, false
	}
	row := c.rows[c.next]
	c.next++
	return row, true
}

// FetchAll returns all remaining rows.
func (c *Cursor) FetchAll() []Row {
	rows := c.rows[c.next:]
	c.next = len(c.rows)
	return rows
}

// Len returns the total number of rows the cursor was created with.
func (c *Cursor) Len() int {
	return len(c.rows)
}

// Execute translates and runs a neutral SQL statement inside the session
// transaction, starting one if needed. The native result is drained into a
// Cursor before returning, so the connection is immediately reusable.
func (s *Session) Execute(ctx context.Context, query string, params ...any) (*Cursor, error) {
	translated, err := s.prepare(ctx, query, params)
	if err != nil {
		return nil, err
	}

	rows, err := s.tx.QueryContext(ctx, translated, params...)
	if err != nil {
		return nil, s.fail(err)
	}
	defer rows.Close()

	adapted, err := adaptRows(rows)
	if err != nil {
		return nil, s.fail(err)
	}

	atomic.AddInt64(&s.db.stats.Statements, 1)
	return &Cursor{rows: adapted}, nil
}

// Insert runs an insert statement and returns the generated row identity.
//
// The embedded backend reads the identity from the connection-local
// last-insert id, valid only immediately after the insert on the same
// connection. The client/server backend appends a RETURNING clause and
// reads the identity from the result instead; connection-local state is
// unreliable there. The session picks the right strategy from its backend.
func (s *Session) Insert(ctx context.Context, query string, params ...any) (int64, error) {
	id, err := s.insert(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, newError(ErrKindStatement, errors.New("insert did not produce a row identity"))
	}

	atomic.AddInt64(&s.db.stats.Inserts, 1)
	return id.Int64, nil
}

// InsertOrIgnore runs an insert that yields a null identity instead of an
// error when a uniqueness constraint would be violated. Every other failure
// still propagates; a malformed statement is not silently ignored. When the
// statement does not already carry the neutral INSERT OR IGNORE directive
// it is injected.
func (s *Session) InsertOrIgnore(ctx context.Context, query string, params ...any) (sql.NullInt64, error) {
	id, err := s.insert(ctx, ensureIgnoreDirective(query), params)
	if err != nil {
		if isUniqueViolation(err) {
			return sql.NullInt64{}, nil
		}
		return sql.NullInt64{}, err
	}

	if id.Valid {
		atomic.AddInt64(&s.db.stats.Inserts, 1)
	}
	return id, nil
}

func (s *Session) insert(ctx context.Context, query string, params []any) (sql.NullInt64, error) {
	translated, err := s.prepare(ctx, query, params)
	if err != nil {
		return sql.NullInt64{}, err
	}

	if s.db.kind == KindClientServer {
		if !returningRe.MatchString(maskLiterals(translated)) {
			translated = strings.TrimRight(translated, " \t\r\n;") + " RETURNING id"
		}

		var id int64
		err := s.tx.QueryRowContext(ctx, translated, params...).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// ON CONFLICT DO NOTHING suppressed the insert.
			return sql.NullInt64{}, nil
		}
		if err != nil {
			return sql.NullInt64{}, s.fail(err)
		}
		return sql.NullInt64{Int64: id, Valid: true}, nil
	}

	result, err := s.tx.ExecContext(ctx, translated, params...)
	if err != nil {
		return sql.NullInt64{}, s.fail(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return sql.NullInt64{}, s.fail(err)
	}
	if affected == 0 {
		// INSERT OR IGNORE hit an existing row.
		return sql.NullInt64{}, nil
	}
	id, err := result.LastInsertId()
	if err != nil {
		return sql.NullInt64{}, s.fail(err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

// prepare translates the statement, checks the parameter count against the
// placeholder count, and makes sure the transaction is open.
func (s *Session) prepare(ctx context.Context, query string, params []any) (string, error) {
	if s.closed {
		return "", newError(ErrKindConnectionLost, errors.New("session is closed"))
	}

	translated, placeholders, err := Translate(query, s.db.kind)
	if err != nil {
		return "", err
	}
	if placeholders != len(params) {
		return "", newError(ErrKindStatement, fmt.Errorf(
			"statement has %d placeholders but %d parameters were given", placeholders, len(params),
		))
	}

	if err := s.begin(ctx); err != nil {
		return "", err
	}
	return translated, nil
}

// fail classifies a statement failure. A lost connection additionally gets
// a best-effort rollback, since the transaction can no longer complete;
// failures of that rollback are swallowed because the connection is already
// unusable.
func (s *Session) fail(err error) error {
	classified := classifyStatement(err)

	var dbErr *Error
	if errors.As(classified, &dbErr) && dbErr.Kind == ErrKindConnectionLost && s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return classified
}

// Commit terminates the active transaction, transitioning the session back
// to idle. Calling it while idle is a no-op.
func (s *Session) Commit() error {
	if s.tx == nil {
		return nil
	}

	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		if lost := asConnectionLost(err); lost != nil {
			return lost
		}
		return newError(ErrKindStatement, fmt.Errorf("failed to commit transaction: %w", err))
	}

	atomic.AddInt64(&s.db.stats.Commits, 1)
	return nil
}

// Rollback terminates the active transaction without persisting it.
// Calling it while idle is a no-op. It only returns an error when the
// underlying connection has been invalidated; a rollback that fails for any
// other reason is logged and swallowed.
func (s *Session) Rollback() error {
	if s.tx == nil {
		return nil
	}

	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		if lost := asConnectionLost(err); lost != nil {
			return lost
		}
		s.db.Logger.WarnNs(log.NsDatabase, "rollback failed", log.KV{
			"session": s.id,
			"error":   err.Error(),
		})
		return nil
	}

	atomic.AddInt64(&s.db.stats.Rollbacks, 1)
	return nil
}

// Close releases the physical connection back to its pool. It is safe to
// call multiple times. An active transaction is rolled back first; logging
// that as a usage warning is up to the surrounding code, which can check
// InTransaction before closing.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
		atomic.AddInt64(&s.db.stats.Rollbacks, 1)
	}

	err := s.conn.Close()
	s.db.Logger.DebugNs(log.NsDatabase, "session closed", log.KV{
		"session": s.id,
	})
	if err != nil && !errors.Is(err, sql.ErrConnDone) {
		return newError(ErrKindConnectionLost, fmt.Errorf("failed to release connection: %w", err))
	}
	return nil
}

// ensureIgnoreDirective injects the neutral insert-if-absent directive into
// a plain INSERT statement.
func ensureIgnoreDirective(query string) string {
	masked := maskLiterals(query)
	if insertOrIgnoreRe.MatchString(masked) {
		return query
	}
	loc := insertIntoRe.FindStringIndex(masked)
	if loc == nil {
		return query
	}
	return query[:loc[0]] + "INSERT OR IGNORE INTO" + query[loc[1]:]
}
