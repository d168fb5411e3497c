package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("PETMATCH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PETMATCH_TEST_POSTGRES_DSN not set")
	}
	db, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestStorageRepo(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewStorageRepo(db, "test-"+uuid.NewString())
	other := NewStorageRepo(db, "test-"+uuid.NewString())

	if _, ok, err := repo.Get(ctx, "userToken"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	if err := repo.Set(ctx, "userToken", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := repo.Set(ctx, "userToken", "def"); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}
	v, ok, err := repo.Get(ctx, "userToken")
	if err != nil || !ok || v != "def" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}

	// Other namespace sees nothing
	if _, ok, _ := other.Get(ctx, "userToken"); ok {
		t.Error("expected key to be invisible in another namespace")
	}

	if err := repo.Delete(ctx, "userToken"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx, "userToken"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if _, ok, _ := repo.Get(ctx, "userToken"); ok {
		t.Error("expected key to be gone")
	}
}
