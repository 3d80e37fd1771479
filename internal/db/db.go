// Package db is the cross-backend database core for FOIA DB.
//
// It lets the surrounding tooling run unmodified against either an embedded
// single-file SQLite database (development) or a PostgreSQL server
// (production). The backend is selected once per process from the presence
// of a connection string; every statement is written in a neutral SQL
// dialect that Translate rewrites for the selected backend, and every
// result row comes back as a uniform Row keyed by column name.
//
// All file and network I/O is confined to this package. Callers obtain one
// Session per logical unit of work, end it with Commit or Rollback, and
// always Close it.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"sync/atomic"
	"time"

	"github.com/foiaio/foiadb/internal/log"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// FileName is the name of the embedded database file.
const FileName = "foia_io.db"

// Config represents the configuration for a DB instance.
type Config struct {
	// Logger is the shared FOIA DB logger.
	Logger log.Logger
	// DatabaseURL is the PostgreSQL connection string. Leave empty to use
	// the embedded SQLite backend.
	DatabaseURL string
	// Directory is the directory where the embedded database file is
	// stored. Only used by the embedded backend.
	Directory string
	// PoolSize caps the client/server connection pool. Only used by the
	// client/server backend.
	PoolSize int
	// PoolTimeout bounds how long a session checkout may wait for a
	// pooled client/server connection before failing.
	PoolTimeout time.Duration
}

// DB is the process-wide handle for the selected backend. It is created
// once at startup and hands out one Session per logical unit of work.
type DB struct {
	Config
	kind  Kind
	sqlDB *sql.DB
	stats Stats
}

// Stats holds counters about DB usage.
type Stats struct {
	SessionsOpened int64 `json:"sessionsOpened"`
	Statements     int64 `json:"statements"`
	Inserts        int64 `json:"inserts"`
	Commits        int64 `json:"commits"`
	Rollbacks      int64 `json:"rollbacks"`
}

// createEmbeddedDSN builds the SQLite DSN for the embedded database file.
// WAL mode keeps concurrent readers off the writer's back, and the busy
// timeout makes cross-process writer contention surface as a retryable
// error instead of an immediate failure.
func createEmbeddedDSN(dbPath string) string {
	qp := url.Values{}
	qp.Add("_foreign_keys", "true")
	qp.Add("_busy_timeout", "5000")
	qp.Add("_journal_mode", "WAL")
	qp.Add("_synchronous", "NORMAL")

	return fmt.Sprintf("file:%s?%s", dbPath, qp.Encode())
}

// NewDB selects the backend from the configuration and opens it. The
// selection happens exactly once here; everything downstream carries the
// Kind on the returned handle instead of re-reading the environment.
func NewDB(config Config) (*DB, error) {
	if !config.Logger.IsInitialized() {
		return nil, errors.New("logger is required")
	}

	kind := SelectKind(config.DatabaseURL)

	var (
		sqlDB *sql.DB
		err   error
	)
	if kind == KindClientServer {
		sqlDB, err = openClientServer(config)
	} else {
		sqlDB, err = openEmbedded(config)
	}
	if err != nil {
		return nil, err
	}

	db := &DB{
		Config: config,
		kind:   kind,
		sqlDB:  sqlDB,
	}

	config.Logger.InfoNs(log.NsDatabase, "database ready", log.KV{
		"backend": kind.Value,
	})
	return db, nil
}

func openEmbedded(config Config) (*sql.DB, error) {
	if config.Directory == "" {
		return nil, newError(ErrKindConnection, errors.New("database directory is required"))
	}
	if err := os.MkdirAll(config.Directory, 0755); err != nil {
		return nil, newError(ErrKindConnection, fmt.Errorf("failed to create database directory: %w", err))
	}

	dsn := createEmbeddedDSN(path.Join(config.Directory, FileName))
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, newError(ErrKindConnection, fmt.Errorf("failed to open embedded database: %w", err))
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, newError(ErrKindConnection, fmt.Errorf("failed to ping embedded database: %w", err))
	}

	conn.SetConnMaxIdleTime(0)
	conn.SetConnMaxLifetime(0)
	return conn, nil
}

func openClientServer(config Config) (*sql.DB, error) {
	dsn, err := validateDatabaseURL(config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, newError(ErrKindConnection, fmt.Errorf("failed to open database connection: %w", err))
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, newError(ErrKindConnection, fmt.Errorf("failed to ping database: %w", err))
	}

	poolSize := config.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}
	conn.SetMaxOpenConns(poolSize)
	conn.SetMaxIdleConns(poolSize)
	return conn, nil
}

// validateDatabaseURL accepts postgres:// and postgresql:// URLs as well as
// keyword/value connection strings.
func validateDatabaseURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", newError(ErrKindConnection, fmt.Errorf("invalid connection string: %w", err))
	}
	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return "", newError(ErrKindConnection, fmt.Errorf(
			"invalid connection string scheme %q, must be postgres or postgresql", parsed.Scheme,
		))
	}
	return raw, nil
}

// Kind returns the backend this DB was created for.
func (db *DB) Kind() Kind {
	return db.kind
}

// OpenSession checks a physical connection out of the pool and wraps it in
// a Session scoped to one logical unit of work. The caller must Close the
// session on every exit path, including error paths.
//
// For the client/server backend, checkout waits at most PoolTimeout for a
// pooled connection and then fails with a pool exhausted error.
func (db *DB) OpenSession(ctx context.Context) (*Session, error) {
	checkoutCtx := ctx
	if db.kind == KindClientServer && db.PoolTimeout > 0 {
		var cancel context.CancelFunc
		checkoutCtx, cancel = context.WithTimeout(ctx, db.PoolTimeout)
		defer cancel()
	}

	conn, err := db.sqlDB.Conn(checkoutCtx)
	if err != nil {
		// Only the pool timeout's own expiry counts as exhaustion; the
		// caller's context running out mid-checkout is the caller's failure.
		if db.kind == KindClientServer && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, &Error{Kind: ErrKindPoolExhausted, Retryable: true, err: fmt.Errorf(
				"no pooled connection became available within %s: %w", db.PoolTimeout, err,
			)}
		}
		return nil, newError(ErrKindConnection, fmt.Errorf("failed to acquire connection: %w", err))
	}

	session := &Session{
		id:   uuid.NewString(),
		db:   db,
		conn: conn,
	}

	atomic.AddInt64(&db.stats.SessionsOpened, 1)
	db.Logger.DebugNs(log.NsDatabase, "session opened", log.KV{
		"session": session.id,
	})
	return session, nil
}

// Stats returns a snapshot of the usage counters.
func (db *DB) Stats() Stats {
	return Stats{
		SessionsOpened: atomic.LoadInt64(&db.stats.SessionsOpened),
		Statements:     atomic.LoadInt64(&db.stats.Statements),
		Inserts:        atomic.LoadInt64(&db.stats.Inserts),
		Commits:        atomic.LoadInt64(&db.stats.Commits),
		Rollbacks:      atomic.LoadInt64(&db.stats.Rollbacks),
	}
}

// Close releases the underlying connection pool. Sessions still checked out
// must be closed by their owners.
func (db *DB) Close() error {
	if db.sqlDB == nil {
		return nil
	}
	if err := db.sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
