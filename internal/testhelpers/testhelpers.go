package testhelpers

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"schooldash/internal/adapters/sqlite"
)

// NewTestDB returns an in-memory SQLite database configured the same way as
// production. The database is automatically closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

// NewTestStore returns a migrated in-memory store.
func NewTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	db := NewTestDB(t)
	if err := sqlite.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return &sqlite.Store{DB: db}
}

// DiscardLogger drops all output.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
