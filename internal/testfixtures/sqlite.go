package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/meetsburg/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// storage instance for integration-style persistence tests.
type SQLiteHarness struct {
	Storage *sqlite.Storage

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a harness over a temporary database file that
// is migrated automatically and closed via testing cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	path := filepath.Join(dir, "meetsburg.db")

	storage, err := sqlite.Open(path, sqlite.DefaultRetryConfig())
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	if err := storage.Migrate(context.Background()); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage: storage,
		cleanup: func() {
			_ = storage.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
