package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

// newTestDB opens a fresh database file under t.TempDir(). A file is used
// instead of ":memory:" because every pooled connection to ":memory:" would
// see its own empty database.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")

	first, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New() first open: %v", err)
	}
	first.Close()

	second, err := New(context.Background(), path)
	if err != nil {
		t.Fatalf("New() second open: %v", err)
	}
	defer second.Close()

	if err := second.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 100},
		{-5, 100},
		{1, 1},
		{100, 100},
		{101, 100},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
