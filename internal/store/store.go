// Package store provides the on-device durable box backing the offline
// fallback: a local SQLite database holding a cache mirror of records
// that were successfully written remotely, and a queue of records still
// waiting to reach the remote store.
//
// The database runs embedded with WAL mode so a daemon sweep can read
// the queue while the app keeps writing. The two collections are kept
// in separate tables and must never be confused: cache rows are keyed
// by the remote-assigned record ID, queue rows by insertion order.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/sahayak-labs/sahayak/internal/model"
)

// ErrNotCached is returned when a cache lookup finds no entry.
var ErrNotCached = fmt.Errorf("record not in local cache")

// Store wraps the local SQLite database. The handle is explicit state
// owned by whoever opened it; there is no ambient global.
type Store struct {
	conn *sql.DB
	path string
}

// Open creates or opens the local box at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent
// reads, and the schema is created if missing (idempotent). The caller
// MUST call Close() when done.
//
// Example:
//
//	box, err := store.Open(filepath.Join(dir, "sahayak.db"))
//	if err != nil {
//	    return err
//	}
//	defer box.Close()
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	s := &Store{conn: conn, path: path}

	if _, err := s.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := s.InitSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection after checkpointing the WAL.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}

	if _, err := s.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	s.conn = nil
	return nil
}

// InitSchema creates the cache and queue tables if they don't exist.
// Safe to call multiple times.
func (s *Store) InitSchema() error {
	return s.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the schema with context support.
func (s *Store) InitSchemaContext(ctx context.Context) error {
	schema := `
	-- Mirror of records successfully written to the remote store.
	CREATE TABLE IF NOT EXISTS cache (
		id TEXT PRIMARY KEY,
		record TEXT NOT NULL,  -- JSON
		teacher_id TEXT NOT NULL,
		cached_at TEXT NOT NULL
	);

	-- Records whose remote write failed, in insertion order.
	CREATE TABLE IF NOT EXISTS queue (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		record TEXT NOT NULL,  -- JSON
		queued_for_sync INTEGER NOT NULL DEFAULT 1,
		queued_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_teacher ON cache(teacher_id);
	CREATE INDEX IF NOT EXISTS idx_queue_pending ON queue(queued_for_sync, seq);
	`

	if _, err := s.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// PutCached inserts or replaces the cache mirror entry for a record.
// The record must carry its remote-assigned ID.
func (s *Store) PutCached(rec *model.VisualAid, cachedAt time.Time) error {
	return s.PutCachedContext(context.Background(), rec, cachedAt)
}

// PutCachedContext mirrors a record with context support.
func (s *Store) PutCachedContext(ctx context.Context, rec *model.VisualAid, cachedAt time.Time) error {
	if rec.ID == "" {
		return fmt.Errorf("cannot cache record without remote id")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	query := `
	INSERT INTO cache (id, record, teacher_id, cached_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		record = excluded.record,
		teacher_id = excluded.teacher_id,
		cached_at = excluded.cached_at
	`

	_, err = s.conn.ExecContext(ctx, query,
		rec.ID, string(data), rec.TeacherID, cachedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to cache record %s: %w", rec.ID, err)
	}
	return nil
}

// GetCached returns the cache entry for a record ID, or ErrNotCached.
func (s *Store) GetCached(id string) (*model.CacheEntry, error) {
	return s.GetCachedContext(context.Background(), id)
}

// GetCachedContext reads a cache entry with context support.
func (s *Store) GetCachedContext(ctx context.Context, id string) (*model.CacheEntry, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT record, cached_at FROM cache WHERE id = ?", id)

	var data, cachedAt string
	if err := row.Scan(&data, &cachedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotCached
		}
		return nil, fmt.Errorf("failed to read cache entry %s: %w", id, err)
	}

	return scanCacheEntry(data, cachedAt)
}

// DeleteCached removes the cache entry for a record ID.
// Returns nil if the entry doesn't exist (idempotent).
func (s *Store) DeleteCached(id string) error {
	return s.DeleteCachedContext(context.Background(), id)
}

// DeleteCachedContext removes a cache entry with context support.
func (s *Store) DeleteCachedContext(ctx context.Context, id string) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM cache WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", id, err)
	}
	return nil
}

// ListCachedByTeacher returns all cached records for a teacher, newest
// mirror first. This is the read used when the remote store is down.
func (s *Store) ListCachedByTeacher(ctx context.Context, teacherID string) ([]model.CacheEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT record, cached_at FROM cache WHERE teacher_id = ? ORDER BY cached_at DESC", teacherID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache for teacher %s: %w", teacherID, err)
	}
	defer rows.Close()

	return scanCacheEntries(rows)
}

// ListCached returns every cache entry, newest mirror first.
func (s *Store) ListCached(ctx context.Context) ([]model.CacheEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT record, cached_at FROM cache ORDER BY cached_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list cache: %w", err)
	}
	defer rows.Close()

	return scanCacheEntries(rows)
}

// CachedCount returns the number of cache mirror entries.
func (s *Store) CachedCount(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

// Enqueue appends a record to the offline queue and returns its
// insertion-order key.
func (s *Store) Enqueue(rec *model.VisualAid, queuedAt time.Time) (int64, error) {
	return s.EnqueueContext(context.Background(), rec, queuedAt)
}

// EnqueueContext appends a queue entry with context support.
func (s *Store) EnqueueContext(ctx context.Context, rec *model.VisualAid, queuedAt time.Time) (int64, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal record: %w", err)
	}

	res, err := s.conn.ExecContext(ctx,
		"INSERT INTO queue (record, queued_for_sync, queued_at) VALUES (?, 1, ?)",
		string(data), queuedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue record: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read queue key: %w", err)
	}
	return seq, nil
}

// PendingQueue returns all entries still flagged for sync, in insertion
// order.
func (s *Store) PendingQueue(ctx context.Context) ([]model.QueueEntry, error) {
	rows, err := s.conn.QueryContext(ctx,
		"SELECT seq, record, queued_for_sync, queued_at FROM queue WHERE queued_for_sync = 1 ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to read queue: %w", err)
	}
	defer rows.Close()

	var entries []model.QueueEntry
	for rows.Next() {
		var (
			entry    model.QueueEntry
			data     string
			flag     int
			queuedAt string
		)
		if err := rows.Scan(&entry.Seq, &data, &flag, &queuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		if err := json.Unmarshal([]byte(data), &entry.Record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal queue entry %d: %w", entry.Seq, err)
		}
		entry.QueuedForSync = flag != 0
		if t, err := time.Parse(time.RFC3339Nano, queuedAt); err == nil {
			entry.QueuedAt = t
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue: %w", err)
	}
	return entries, nil
}

// Dequeue removes a queue entry by its insertion-order key.
// Returns nil if the entry doesn't exist (idempotent).
func (s *Store) Dequeue(ctx context.Context, seq int64) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM queue WHERE seq = ?", seq); err != nil {
		return fmt.Errorf("failed to dequeue entry %d: %w", seq, err)
	}
	return nil
}

// QueueCount returns the number of entries still flagged for sync.
func (s *Store) QueueCount(ctx context.Context) (int, error) {
	var n int
	err := s.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM queue WHERE queued_for_sync = 1").Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return n, nil
}

// scanCacheEntries collects cache rows into entries.
func scanCacheEntries(rows *sql.Rows) ([]model.CacheEntry, error) {
	var entries []model.CacheEntry
	for rows.Next() {
		var data, cachedAt string
		if err := rows.Scan(&data, &cachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache entry: %w", err)
		}
		entry, err := scanCacheEntry(data, cachedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cache: %w", err)
	}
	return entries, nil
}

func scanCacheEntry(data, cachedAt string) (*model.CacheEntry, error) {
	var entry model.CacheEntry
	if err := json.Unmarshal([]byte(data), &entry.Record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached record: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, cachedAt); err == nil {
		entry.CachedAt = t
	}
	return &entry, nil
}
