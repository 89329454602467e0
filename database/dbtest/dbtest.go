// Package dbtest opens throwaway SQLite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ridoystarlord/redatlas/config"
	"github.com/ridoystarlord/redatlas/database"
)

// Open returns a migrated store in a temporary directory that is closed
// when the test ends.
func Open(t testing.TB) *database.DB {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver: config.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "repid.db"),
	}
	db, err := database.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}
