package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"fetalscan/internal/config"
)

// Key names a stored value.
type Key string

const (
	KeyDraft       Key = "current-draft"
	KeyArchive     Key = "archived-drafts"
	KeyFinal       Key = "final-reports"
	KeySettings    Key = "settings"
	KeyEditRequest Key = "edit-request"
)

// Keys lists every key in a stable order.
func Keys() []Key {
	return []Key{KeyDraft, KeyArchive, KeyFinal, KeySettings, KeyEditRequest}
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store manages persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	q    querier
	path string
	inTx bool
}

// Open initializes or connects to the database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.DatabasePath())
}

// OpenPath opens the database file at dbPath.
func OpenPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Transactions and pragmas stay on one connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, q: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil || s.inTx {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Atomically runs fn inside one transaction. fn's Repository must not be
// used after fn returns. Nested calls join the outer transaction.
func (s *Store) Atomically(ctx context.Context, fn func(Repository) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Store{db: s.db, q: tx, path: s.path, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Raw returns the stored bytes for key.
func (s *Store) Raw(ctx context.Context, key Key) ([]byte, bool, error) {
	var value string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *Store) put(ctx context.Context, key Key, value []byte) error {
	_, err := s.q.ExecContext(
		ctx,
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(key),
		string(value),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *Store) remove(ctx context.Context, key Key) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, string(key)); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// KeyUsage describes one stored value.
type KeyUsage struct {
	Key       Key    `json:"key"`
	Bytes     int64  `json:"bytes"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Health summarizes the database for status output.
type Health struct {
	Path      string     `json:"path"`
	FileBytes int64      `json:"file_bytes"`
	Keys      []KeyUsage `json:"keys"`
}

// TotalBytes sums the stored value sizes.
func (h Health) TotalBytes() int64 {
	var total int64
	for _, usage := range h.Keys {
		total += usage.Bytes
	}
	return total
}

// Health reports the on-disk size, including the WAL, and per-key value sizes.
func (s *Store) Health(ctx context.Context) (Health, error) {
	health := Health{Path: s.path}
	for _, file := range []string{s.path, s.path + "-wal"} {
		if info, err := os.Stat(file); err == nil {
			health.FileBytes += info.Size()
		}
	}

	rows, err := s.q.QueryContext(ctx, `SELECT key, LENGTH(CAST(value AS BLOB)), updated_at FROM kv_store ORDER BY key`)
	if err != nil {
		return Health{}, fmt.Errorf("query key usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key     string
			size    int64
			updated sql.NullString
		)
		if err := rows.Scan(&key, &size, &updated); err != nil {
			return Health{}, fmt.Errorf("scan key usage: %w", err)
		}
		health.Keys = append(health.Keys, KeyUsage{Key: Key(key), Bytes: size, UpdatedAt: updated.String})
	}
	return health, rows.Err()
}
