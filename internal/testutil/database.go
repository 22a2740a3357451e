// Package testutil provides test helpers: an in-memory identity store and
// synthetic descriptor builders for exercising the matcher without a
// camera.
package testutil

import (
	"context"
	"testing"

	"github.com/palmpay/palmpay/internal/service"
	"github.com/palmpay/palmpay/internal/storage"
)

// TestFrames is the template length used by test databases.
const TestFrames = 5

// TestDB wraps an in-memory store for one test.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory SQLite store and registers its
// cleanup with the test.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithFrames(t, TestFrames)
}

// SetupTestDBWithFrames creates a test store enforcing a custom template
// length.
func SetupTestDBWithFrames(t *testing.T, frames int) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:", frames)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}
