// Package dbtest opens throwaway SQLite stores for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lixing-Zhang/kart-challenge/backoffice/internal/database"
)

// Open returns a migrated provider backed by a SQLite file in t.TempDir().
// The provider is closed when the test finishes.
func Open(t testing.TB) *database.Provider {
	t.Helper()

	ctx := context.Background()
	p, err := database.Open(ctx, database.Options{
		Driver:       "sqlite",
		URL:          filepath.Join(t.TempDir(), "backoffice.db"),
		QueryTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })

	if err := p.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return p
}

// Exec runs a fixture statement and fails the test on error.
func Exec(t testing.TB, p *database.Provider, query string, args ...any) {
	t.Helper()
	if _, err := p.ExecContext(context.Background(), query, args...); err != nil {
		t.Fatalf("fixture %q: %v", query, err)
	}
}

// Count returns the single integer produced by query.
func Count(t testing.TB, p *database.Provider, query string, args ...any) int {
	t.Helper()
	var n int
	if err := p.QueryRowContext(context.Background(), query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}
