package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrVersionConflict is returned when an optimistic metrics write loses a race.
var ErrVersionConflict = errors.New("store: version conflict")

// builder renders SQLite flavoured statements. Statements run on the raw
// *sql.DB; we use ent only for query building.
var builder = entsql.Dialect(dialect.SQLite)

// Store owns the SQLite connection and provides access to repositories.
type Store struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates any missing tables.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite serializes writers anyway; a single connection keeps
	// in-memory databases coherent and avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, seq: newSequenceCounter(db)}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// MetricsRepo returns a MetricsRepo backed by this store.
func (s *Store) MetricsRepo() MetricsRepo {
	return &metricsRepo{db: s.db}
}

// ResponseRepo returns a ResponseRepo backed by this store.
func (s *Store) ResponseRepo() ResponseRepo {
	return &responseRepo{db: s.db, seq: s.seq}
}

// PoolRepo returns a PoolRepo backed by this store.
func (s *Store) PoolRepo() PoolRepo {
	return &poolRepo{db: s.db}
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db, seq: s.seq}
}

// applyPragmas configures SQLite for optimal single-node performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. PREPFORGE_DB environment variable
// 2. $XDG_DATA_HOME/prepforge/prepforge.db
// 3. ~/.local/share/prepforge/prepforge.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("PREPFORGE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "prepforge", "prepforge.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// querier is anything the ent builder can render.
type querier interface {
	Query() (string, []any)
}

func execQ(ctx context.Context, db *sql.DB, q querier) (sql.Result, error) {
	query, args := q.Query()
	return db.ExecContext(ctx, query, args...)
}

func queryQ(ctx context.Context, db *sql.DB, q querier) (*sql.Rows, error) {
	query, args := q.Query()
	return db.QueryContext(ctx, query, args...)
}

func queryRowQ(ctx context.Context, db *sql.DB, q querier) *sql.Row {
	query, args := q.Query()
	return db.QueryRowContext(ctx, query, args...)
}

// Timestamps are stored as unix nanoseconds.
func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
