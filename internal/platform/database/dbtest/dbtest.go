// Package dbtest opens a migrated SQLite database in a temp dir for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"hooklens/internal/platform/config"
	"hooklens/internal/platform/database"
)

func Open(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		URL:            filepath.Join(t.TempDir(), "test.db"),
		MaxConnections: 1,
	})
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("Failed to migrate db: %v", err)
	}
	return db
}

// SeedUser inserts a bare user row so webhooks can reference it.
func SeedUser(t testing.TB, db *database.DB, id, email string) {
	t.Helper()

	_, err := db.Exec(`INSERT INTO users (id, email, name, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, email, "Test User", "hash", 1700000000000)
	if err != nil {
		t.Fatalf("Failed to seed user: %v", err)
	}
}
