package redisstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T, prefix string) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = rdb.Close()
		mr.Close()
	})
	return NewStore(rdb, prefix), mr
}

func TestStore_GetSetDelete(t *testing.T) {
	store, mr := newTestStore(t, "petmatch")
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "userRole"); err != nil || ok {
		t.Fatalf("Get missing: ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "userRole", "admin"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got, _ := mr.Get("petmatch:userRole"); got != "admin" {
		t.Fatalf("expected namespaced key, got %q", got)
	}
	if ttl := mr.TTL("petmatch:userRole"); ttl != 0 {
		t.Errorf("expected no expiry, got %v", ttl)
	}

	v, ok, err := store.Get(ctx, "userRole")
	if err != nil || !ok || v != "admin" {
		t.Fatalf("Get: v=%q ok=%v err=%v", v, ok, err)
	}

	if err := store.Delete(ctx, "userRole"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, "userRole"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
	if mr.Exists("petmatch:userRole") {
		t.Error("expected key to be removed")
	}
}

func TestStore_Unavailable(t *testing.T) {
	store, mr := newTestStore(t, "")
	mr.Close()

	_, _, err := store.Get(context.Background(), "userToken")
	if !errors.Is(err, ErrRedisUnavailable) {
		t.Fatalf("expected ErrRedisUnavailable, got %v", err)
	}
}
