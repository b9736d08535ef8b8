package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// exerciseStore runs the Store contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "test-key"); err != nil || ok {
		t.Fatalf("Get on empty store = ok:%v err:%v, want miss", ok, err)
	}

	if err := s.Set(ctx, "test-key", "one"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "test-key", "two"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	v, ok, err := s.Get(ctx, "test-key")
	if err != nil || !ok || v != "two" {
		t.Fatalf("Get = %q ok:%v err:%v, want \"two\"", v, ok, err)
	}

	if err := s.Remove(ctx, "test-key"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "test-key"); err != nil {
		t.Fatalf("Remove of absent key should not fail: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "test-key"); ok {
		t.Fatalf("key still present after Remove")
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, SetupTestStore(t))
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	s.Close()
	if err := s.Set(context.Background(), KeyAuthToken, "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after Close = %v, want ErrClosed", err)
	}
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	exerciseStore(t, NewFileStore(path))
}

func TestFileStorePersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	ctx := context.Background()

	if err := NewFileStore(path).Set(ctx, KeyPortfolio, `[{"coinId":"bitcoin"}]`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	v, ok, err := NewFileStore(path).Get(ctx, KeyPortfolio)
	if err != nil || !ok {
		t.Fatalf("Get from fresh instance: ok:%v err:%v", ok, err)
	}
	if v != `[{"coinId":"bitcoin"}]` {
		t.Fatalf("unexpected value %q", v)
	}
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, _, err := NewFileStore(path).Get(context.Background(), KeyAuthToken); err == nil {
		t.Fatalf("expected error reading corrupt store")
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.db")
	s, err := OpenSQLite(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	exerciseStore(t, SetupTestPostgres(t))
}

func TestOpenSpecs(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		spec string
		want string
	}{
		{"memory", "*db.MemoryStore"},
		{"file:" + filepath.Join(dir, "a.json"), "*db.FileStore"},
		{filepath.Join(dir, "b.json"), "*db.FileStore"},
		{"sqlite:" + filepath.Join(dir, "c.db"), "*db.SQLStore"},
	}

	for _, tt := range tests {
		s, err := Open(context.Background(), tt.spec)
		if err != nil {
			t.Fatalf("Open(%q): %v", tt.spec, err)
		}
		var got string
		switch s.(type) {
		case *MemoryStore:
			got = "*db.MemoryStore"
		case *FileStore:
			got = "*db.FileStore"
		case *SQLStore:
			got = "*db.SQLStore"
		}
		if got != tt.want {
			t.Errorf("Open(%q) = %s, want %s", tt.spec, got, tt.want)
		}
		s.Close()
	}
}

func TestParseSpecPathsWithColon(t *testing.T) {
	tests := []struct {
		spec    string
		backend string
		arg     string
	}{
		{`C:\data\store.json`, BackendFile, `C:\data\store.json`},
		{"./a:b.json", BackendFile, "./a:b.json"},
		{"/var/lib/tracker/x:y.json", BackendFile, "/var/lib/tracker/x:y.json"},
		{"SQLite:tracker.db", BackendSQLite, "tracker.db"},
		{"redis:localhost:6379", "redis", "localhost:6379"},
	}

	for _, tt := range tests {
		backend, arg := parseSpec(tt.spec)
		if backend != tt.backend || arg != tt.arg {
			t.Errorf("parseSpec(%q) = (%q, %q), want (%q, %q)", tt.spec, backend, arg, tt.backend, tt.arg)
		}
	}
}

func TestOpenUnsupportedBackend(t *testing.T) {
	if _, err := Open(context.Background(), "redis:localhost:6379"); err == nil {
		t.Fatalf("expected error for unsupported backend")
	}
}
