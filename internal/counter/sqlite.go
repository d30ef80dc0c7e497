package counter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// busyTimeout controls how long SQLite polls a locked database before
// giving up.
const busyTimeout = 5 * time.Second

const createTableSQL = `
CREATE TABLE IF NOT EXISTS relay_counters (
	name TEXT NOT NULL PRIMARY KEY,
	value INTEGER NOT NULL DEFAULT 0
);`

// The upsert is a single statement, so each increment is atomic even with
// several processes sharing the file.
const incrementSQL = `
INSERT INTO relay_counters (name, value) VALUES (?, 1)
ON CONFLICT(name) DO UPDATE SET value = value + 1
RETURNING value;`

const selectSQL = `SELECT value FROM relay_counters WHERE name = ?;`

// SQLite persists counters in a SQLite database so they survive restarts.
type SQLite struct {
	db     *sql.DB
	prefix string
}

// OpenSQLite opens (creating if needed) the counter database at path.
func OpenSQLite(ctx context.Context, path, prefix string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite counter store requires a path")
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: could not open database at %s: %v", ErrUnavailable, path, err)
	}
	// SQLite serializes writers anyway; one connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: could not create counter table: %v", ErrUnavailable, err)
	}

	return &SQLite{db: db, prefix: prefix}, nil
}

func (s *SQLite) IncrementReceived(ctx context.Context) (uint64, error) {
	return s.increment(ctx, Received)
}

func (s *SQLite) IncrementSent(ctx context.Context) (uint64, error) {
	return s.increment(ctx, Sent)
}

func (s *SQLite) increment(ctx context.Context, name string) (uint64, error) {
	var value int64
	if err := s.db.QueryRowContext(ctx, incrementSQL, key(s.prefix, name)).Scan(&value); err != nil {
		return 0, fmt.Errorf("%w: increment %s: %v", ErrUnavailable, name, err)
	}
	return uint64(value), nil
}

func (s *SQLite) Stats(ctx context.Context) (Stats, error) {
	received, err := s.get(ctx, Received)
	if err != nil {
		return Stats{}, err
	}
	sent, err := s.get(ctx, Sent)
	if err != nil {
		return Stats{}, err
	}
	return Stats{Received: received, Sent: sent}, nil
}

func (s *SQLite) get(ctx context.Context, name string) (uint64, error) {
	var value int64
	err := s.db.QueryRowContext(ctx, selectSQL, key(s.prefix, name)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %v", ErrUnavailable, name, err)
	}
	return uint64(value), nil
}

func (s *SQLite) Name() string {
	return "sqlite"
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
