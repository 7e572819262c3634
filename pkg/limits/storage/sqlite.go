package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore implements CounterStore on SQLite. Counters survive restarts,
// which keeps windows intact across a process bounce; it remains a
// single-instance store.
type SQLiteStore struct {
	db        *sql.DB
	closeOnce sync.Once

	incrementStmt *sql.Stmt
	cleanupStmt   *sql.Stmt
}

// NewSQLiteStore opens (and if necessary creates) the counter database at
// path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}

	// WAL keeps concurrent readers off the writers' backs; a single
	// connection serialises the upsert below.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS rate_counters (
		key          TEXT PRIMARY KEY,
		count        INTEGER NOT NULL,
		window_start INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// The upsert resets the counter when the stored window has elapsed.
	// A single statement keeps read-increment-reset atomic.
	incrementStmt, err := db.Prepare(`
	INSERT INTO rate_counters (key, count, window_start, updated_at)
	VALUES (?1, 1, ?2, ?2)
	ON CONFLICT(key) DO UPDATE SET
		count        = CASE WHEN ?2 - window_start >= ?3 THEN 1 ELSE count + 1 END,
		window_start = CASE WHEN ?2 - window_start >= ?3 THEN ?2 ELSE window_start END,
		updated_at   = ?2
	RETURNING count, window_start`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare increment statement: %w", err)
	}

	cleanupStmt, err := db.Prepare(`DELETE FROM rate_counters WHERE updated_at < ?`)
	if err != nil {
		incrementStmt.Close()
		db.Close()
		return nil, fmt.Errorf("failed to prepare cleanup statement: %w", err)
	}

	return &SQLiteStore{
		db:            db,
		incrementStmt: incrementStmt,
		cleanupStmt:   cleanupStmt,
	}, nil
}

// Increment implements CounterStore.
func (s *SQLiteStore) Increment(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := time.Now()

	var (
		count      int64
		startNanos int64
	)
	err := s.incrementStmt.QueryRowContext(ctx, key, now.UnixNano(), window.Nanoseconds()).
		Scan(&count, &startNanos)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment counter for %q: %w", key, err)
	}

	return count, time.Unix(0, startNanos), nil
}

// Cleanup removes counters not touched since before cutoff.
func (s *SQLiteStore) Cleanup(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.cleanupStmt.ExecContext(ctx, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up counters: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Close releases the prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.incrementStmt.Close()
		s.cleanupStmt.Close()
		err = s.db.Close()
	})
	return err
}
