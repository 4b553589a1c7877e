package reaper

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bleepstore/bleepstore/internal/secretengine"
	"github.com/bleepstore/bleepstore/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "secrets.db")
	s, err := store.NewSQLiteStore(dbPath, "test-passphrase")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

// TestSweepHardDeletesExpiredSecrets exercises spec.md §8 invariant 6: a
// secret scheduled for deletion is hard-deleted once its deletion date has
// elapsed, and left untouched before then.
func TestSweepHardDeletesExpiredSecrets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	e := secretengine.New(s)

	now := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	e.Now = func() time.Time { return now }

	if _, err := e.CreateSecret(ctx, secretengine.CreateSecretInput{
		Name: "db/password", SecretString: ptr("s3cret"),
	}); err != nil {
		t.Fatalf("CreateSecret() error = %v", err)
	}
	if _, err := e.DeleteSecret(ctx, secretengine.DeleteSecretInput{
		SecretId: "db/password", RecoveryWindowInDays: ptr(int64(7)),
	}); err != nil {
		t.Fatalf("DeleteSecret() error = %v", err)
	}

	r := New(s)

	r.Now = func() time.Time { return now }
	r.sweep(ctx)
	if _, err := e.DescribeSecret(ctx, secretengine.DescribeSecretInput{SecretId: "db/password"}); err != nil {
		t.Fatalf("secret was reaped before its deletion date: %v", err)
	}

	r.Now = func() time.Time { return now.AddDate(0, 0, 8) }
	r.sweep(ctx)
	if _, err := e.DescribeSecret(ctx, secretengine.DescribeSecretInput{SecretId: "db/password"}); err == nil {
		t.Fatalf("expired secret survived the sweep")
	}
}

func TestSweepNoopWhenNothingExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	r := New(s)
	r.sweep(ctx) // must not panic or error on an empty store
}
