package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foiaio/foiadb/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The stub driver below stands in for a PostgreSQL server so the
// client/server statement paths can be exercised without a network. It
// records every statement it receives and answers RETURNING queries from a
// counter, or with no rows at all when conflict mode is on.

var stubState = struct {
	mu        sync.Mutex
	queries   []string
	conflict  bool
	nextID    int64
	failNext  bool
	rollbacks int
}{}

func resetStub(conflict bool) {
	stubState.mu.Lock()
	defer stubState.mu.Unlock()
	stubState.queries = nil
	stubState.conflict = conflict
	stubState.nextID = 0
	stubState.failNext = false
	stubState.rollbacks = 0
}

// failNextQuery makes the next statement fail as if the server went away.
func failNextQuery() {
	stubState.mu.Lock()
	defer stubState.mu.Unlock()
	stubState.failNext = true
}

func stubRollbacks() int {
	stubState.mu.Lock()
	defer stubState.mu.Unlock()
	return stubState.rollbacks
}

func stubQueries() []string {
	stubState.mu.Lock()
	defer stubState.mu.Unlock()
	return append([]string(nil), stubState.queries...)
}

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) {
	return &stubConn{}, nil
}

type stubConn struct{}

func (*stubConn) Prepare(query string) (driver.Stmt, error) {
	return &stubStmt{query: query}, nil
}

func (*stubConn) Close() error { return nil }

func (*stubConn) Begin() (driver.Tx, error) {
	return stubTx{}, nil
}

type stubTx struct{}

func (stubTx) Commit() error { return nil }

func (stubTx) Rollback() error {
	stubState.mu.Lock()
	defer stubState.mu.Unlock()
	stubState.rollbacks++
	return nil
}

type stubStmt struct {
	query string
}

func (s *stubStmt) Close() error { return nil }
func (*stubStmt) NumInput() int  { return -1 }

func (s *stubStmt) Exec([]driver.Value) (driver.Result, error) {
	s.record()
	return driver.RowsAffected(1), nil
}

func (s *stubStmt) Query([]driver.Value) (driver.Rows, error) {
	s.record()

	stubState.mu.Lock()
	defer stubState.mu.Unlock()

	if stubState.failNext {
		stubState.failNext = false
		return nil, &net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")}
	}

	if strings.Contains(s.query, "RETURNING id") {
		if stubState.conflict {
			return &stubRows{columns: []string{"id"}}, nil
		}
		stubState.nextID++
		return &stubRows{
			columns: []string{"id"},
			values:  [][]driver.Value{{stubState.nextID}},
		}, nil
	}
	return &stubRows{}, nil
}

func (s *stubStmt) record() {
	stubState.mu.Lock()
	defer stubState.mu.Unlock()
	stubState.queries = append(stubState.queries, s.query)
}

type stubRows struct {
	columns []string
	values  [][]driver.Value
	next    int
}

func (r *stubRows) Columns() []string { return r.columns }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.values) {
		return io.EOF
	}
	copy(dest, r.values[r.next])
	r.next++
	return nil
}

var registerStub = sync.OnceFunc(func() {
	sql.Register("foiadb_stub", stubDriver{})
})

// newStubDB wires a DB handle in client/server mode onto the stub driver.
func newStubDB(t *testing.T, conflict bool) *DB {
	t.Helper()
	registerStub()
	resetStub(conflict)

	sqlDB, err := sql.Open("foiadb_stub", "stub")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &DB{
		Config: Config{
			Logger:      log.NewLogger(io.Discard),
			PoolTimeout: time.Second,
		},
		kind:  KindClientServer,
		sqlDB: sqlDB,
	}
}

func TestClientServerExecuteNumbersPlaceholders(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, false)

	session, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Execute(ctx,
		"SELECT * FROM requests WHERE user_id = ? AND status = ?", 7, "draft")
	require.NoError(t, err)

	queries := stubQueries()
	require.Len(t, queries, 1)
	assert.Equal(t, "SELECT * FROM requests WHERE user_id = $1 AND status = $2", queries[0])
}

func TestClientServerInsertAppendsReturning(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, false)

	session, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	id, err := session.Insert(ctx,
		"INSERT INTO users (username, email, password) VALUES (?, ?, ?)",
		"casey", "casey@example.gov", "hashed-pw")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	queries := stubQueries()
	require.Len(t, queries, 1)
	assert.True(t, strings.HasSuffix(queries[0], " RETURNING id"), "got %q", queries[0])
	assert.Contains(t, queries[0], "$1, $2, $3")
}

func TestClientServerInsertKeepsExplicitReturning(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, false)

	session, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Insert(ctx,
		"INSERT INTO users (username, email, password) VALUES (?, ?, ?) RETURNING id",
		"casey", "casey@example.gov", "hashed-pw")
	require.NoError(t, err)

	queries := stubQueries()
	require.Len(t, queries, 1)
	assert.Equal(t, 1, strings.Count(queries[0], "RETURNING id"))
}

func TestClientServerInsertOrIgnore(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, false)

	session, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	id, err := session.InsertOrIgnore(ctx,
		"INSERT INTO state_local_agencies (ori, agency_name, state_abbr) VALUES (?, ?, ?)",
		"agency-1", "Example Police Department", "IL")
	require.NoError(t, err)
	require.True(t, id.Valid)
	assert.Equal(t, int64(1), id.Int64)

	queries := stubQueries()
	require.Len(t, queries, 1)
	assert.Contains(t, queries[0], "ON CONFLICT DO NOTHING")
	assert.NotContains(t, queries[0], "INSERT OR IGNORE")
}

func TestClientServerInsertOrIgnoreConflict(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, true)

	session, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	// The suppressed insert produces no RETURNING row, which must surface
	// as a null identity rather than an error.
	id, err := session.InsertOrIgnore(ctx,
		"INSERT OR IGNORE INTO state_local_agencies (ori, agency_name, state_abbr) VALUES (?, ?, ?)",
		"agency-1", "Example Police Department", "IL")
	require.NoError(t, err)
	assert.False(t, id.Valid)
}

func TestClientServerConnectionLossRollsBackTransaction(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, false)

	session, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer session.Close()

	_, err = session.Execute(ctx, "SELECT * FROM users")
	require.NoError(t, err)
	require.True(t, session.InTransaction())

	failNextQuery()
	_, err = session.Execute(ctx, "SELECT * FROM requests")
	require.Error(t, err)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindConnectionLost, kind)

	// The dead transaction must not linger on the session.
	assert.False(t, session.InTransaction())
	assert.Equal(t, 1, stubRollbacks())
}

func TestClientServerPoolExhausted(t *testing.T) {
	ctx := context.Background()
	database := newStubDB(t, false)
	database.PoolTimeout = 50 * time.Millisecond
	database.sqlDB.SetMaxOpenConns(1)

	held, err := database.OpenSession(ctx)
	require.NoError(t, err)
	defer held.Close()

	_, err = database.OpenSession(ctx)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindPoolExhausted, kind)
	assert.True(t, IsRetryable(err))
}

func TestOpenSessionCallerDeadlineIsNotPoolExhaustion(t *testing.T) {
	database := newStubDB(t, false)
	database.PoolTimeout = time.Second
	database.sqlDB.SetMaxOpenConns(1)

	held, err := database.OpenSession(context.Background())
	require.NoError(t, err)
	defer held.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = database.OpenSession(ctx)
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, ErrKindConnection, kind)
	assert.False(t, IsRetryable(err))
}
