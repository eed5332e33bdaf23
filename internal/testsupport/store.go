package testsupport

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"fetalscan/internal/config"
	"fetalscan/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// SeedRaw writes value under key exactly as given, bypassing the schema
// adapter. Use it to plant legacy layouts.
func SeedRaw(t testing.TB, st *store.Store, key store.Key, value string) {
	t.Helper()

	db, err := sql.Open("sqlite", st.Path())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer db.Close()

	_, err = db.ExecContext(
		context.Background(),
		`INSERT INTO kv_store (key, value, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		string(key),
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}
