package db

import (
	"context"
	"os"
	"testing"
)

// SetupTestStore returns an isolated in-memory store that is closed with the test.
func SetupTestStore(t *testing.T) *MemoryStore {
	t.Helper()
	s := NewMemoryStore()
	t.Cleanup(func() { s.Close() })
	return s
}

// SetupTestPostgres connects to TEST_DATABASE_URL and skips the test when it is unset.
func SetupTestPostgres(t *testing.T) *SQLStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	store, err := OpenPostgres(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		for _, key := range []string{KeyAuthToken, KeyPortfolio, "test-key"} {
			store.Remove(ctx, key)
		}
		store.Close()
	})
	return store
}
