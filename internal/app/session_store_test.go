package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"petmatch/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_NewIsLoadingAndEmpty(t *testing.T) {
	store := NewSessionStore(newMockKV(nil))

	st := store.Snapshot()
	assert.True(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
	assert.True(t, store.Loading())
}

func TestSessionStore_RehydrateRestoresSession(t *testing.T) {
	kv := newMockKV(map[string]string{
		KeyToken:  "abc",
		KeyRole:   "ong_protetor",
		KeyUserID: "7",
	})
	store := NewSessionStore(kv)

	store.Rehydrate(context.Background())

	want := domain.State{Session: domain.Session{
		Token: "abc", Role: domain.RoleShelter, UserID: 7, HasUserID: true,
	}}
	if diff := cmp.Diff(want, store.Snapshot()); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, store.HasRole(domain.RoleShelter))
	assert.False(t, store.HasRole(domain.RoleAdmin))
}

func TestSessionStore_RehydrateEmptyStorage(t *testing.T) {
	store := NewSessionStore(newMockKV(nil))
	store.Rehydrate(context.Background())

	st := store.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
}

func TestSessionStore_RehydrateCorruptUserID(t *testing.T) {
	kv := newMockKV(map[string]string{
		KeyToken:  "abc",
		KeyRole:   "usuario",
		KeyUserID: "seven",
	})
	store := NewSessionStore(kv)

	require.NotPanics(t, func() { store.Rehydrate(context.Background()) })

	st := store.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
	assert.Equal(t, domain.RoleNone, st.Role)
	assert.False(t, st.HasUserID)
	assert.Empty(t, kv.snapshot())
}

func TestSessionStore_RehydrateCorruptRole(t *testing.T) {
	kv := newMockKV(map[string]string{
		KeyToken: "abc",
		KeyRole:  "superuser",
	})
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, kv.snapshot())
}

func TestSessionStore_RehydrateOrphanedRoleIsCleared(t *testing.T) {
	kv := newMockKV(map[string]string{KeyRole: "admin", KeyUserID: "1"})
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	assert.False(t, store.IsAuthenticated())
	assert.False(t, store.HasRole(domain.RoleAdmin))
	assert.Empty(t, kv.snapshot())
}

func TestSessionStore_RehydrateTokenOnly(t *testing.T) {
	store := NewSessionStore(newMockKV(map[string]string{KeyToken: "abc"}))
	store.Rehydrate(context.Background())

	st := store.Snapshot()
	assert.True(t, st.IsAuthenticated())
	assert.Equal(t, domain.RoleNone, st.Role)
	assert.False(t, st.HasUserID)
}

func TestSessionStore_RehydrateStorageError(t *testing.T) {
	kv := newMockKV(map[string]string{KeyToken: "abc"})
	kv.getFn = func(key string) (string, bool, error) {
		return "", false, errors.New("storage unavailable")
	}
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	st := store.Snapshot()
	assert.False(t, st.Loading)
	assert.False(t, st.IsAuthenticated())
}

func TestSessionStore_RehydrateIsIdempotent(t *testing.T) {
	kv := newMockKV(map[string]string{KeyToken: "abc", KeyRole: "admin", KeyUserID: "1"})
	store := NewSessionStore(kv)

	store.Rehydrate(context.Background())
	first := store.Snapshot()

	// A second read must not observe storage changed behind the store's back.
	kv.getFn = func(key string) (string, bool, error) {
		t.Fatalf("storage read on second Rehydrate (key %s)", key)
		return "", false, nil
	}
	store.Rehydrate(context.Background())

	if diff := cmp.Diff(first, store.Snapshot()); diff != "" {
		t.Fatalf("second Rehydrate changed state (-first +second):\n%s", diff)
	}
}

func TestSessionStore_RehydrateDiscardsExpiredToken(t *testing.T) {
	kv := newMockKV(map[string]string{KeyToken: "old", KeyRole: "usuario", KeyUserID: "3"})
	expired := func(string) (time.Time, bool) { return time.Now().Add(-time.Minute), true }
	store := NewSessionStore(kv, WithExpiryCheck(expired))

	store.Rehydrate(context.Background())

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, kv.snapshot())
}

func TestSessionStore_RehydrateKeepsUnexpiredToken(t *testing.T) {
	kv := newMockKV(map[string]string{KeyToken: "fresh", KeyRole: "usuario", KeyUserID: "3"})
	valid := func(string) (time.Time, bool) { return time.Now().Add(time.Hour), true }
	store := NewSessionStore(kv, WithExpiryCheck(valid))

	store.Rehydrate(context.Background())

	assert.True(t, store.HasRole(domain.RoleUser))
}

func TestSessionStore_LoginPersistsAllFields(t *testing.T) {
	kv := newMockKV(nil)
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	require.NoError(t, store.Login(context.Background(), "tok", domain.RoleUser, 42))

	want := map[string]string{KeyToken: "tok", KeyRole: "usuario", KeyUserID: "42"}
	if diff := cmp.Diff(want, kv.snapshot()); diff != "" {
		t.Fatalf("storage mismatch (-want +got):\n%s", diff)
	}
	token, ok := store.Token()
	assert.True(t, ok)
	assert.Equal(t, "tok", token)
	assert.True(t, store.IsAuthenticated())
}

func TestSessionStore_LoginThenReloadObservesSameSession(t *testing.T) {
	kv := newMockKV(nil)
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())
	require.NoError(t, store.Login(context.Background(), "tok", domain.RoleAdmin, 9))

	reloaded := NewSessionStore(kv)
	reloaded.Rehydrate(context.Background())

	if diff := cmp.Diff(store.Snapshot(), reloaded.Snapshot()); diff != "" {
		t.Fatalf("reloaded state mismatch (-before +after):\n%s", diff)
	}
}

func TestSessionStore_LoginRejectsMisuse(t *testing.T) {
	store := NewSessionStore(newMockKV(nil))

	assert.ErrorIs(t, store.Login(context.Background(), "", domain.RoleUser, 1), ErrEmptyToken)
	assert.ErrorIs(t, store.Login(context.Background(), "tok", domain.RoleNone, 1), ErrUnknownRole)
	assert.ErrorIs(t, store.Login(context.Background(), "tok", domain.Role(99), 1), ErrUnknownRole)
	assert.False(t, store.IsAuthenticated())
}

func TestSessionStore_LoginStorageFailureSignsOut(t *testing.T) {
	kv := newMockKV(nil)
	kv.setFn = func(key, value string) error {
		if key == KeyUserID {
			return errors.New("disk full")
		}
		return nil
	}
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	require.NoError(t, store.Login(context.Background(), "tok", domain.RoleUser, 1))

	assert.False(t, store.IsAuthenticated())
	assert.Empty(t, kv.snapshot())
}

func TestSessionStore_LoginLogoutClearsStorage(t *testing.T) {
	kv := newMockKV(nil)
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	require.NoError(t, store.Login(context.Background(), "xyz", domain.RoleAdmin, 1))
	store.Logout(context.Background())

	assert.Empty(t, kv.snapshot())
	st := store.Snapshot()
	assert.False(t, st.IsAuthenticated())
	assert.Equal(t, domain.RoleNone, st.Role)
	assert.False(t, st.HasUserID)
}

func TestSessionStore_LogoutIsIdempotent(t *testing.T) {
	store := NewSessionStore(newMockKV(nil))
	store.Rehydrate(context.Background())

	store.Logout(context.Background())
	store.Logout(context.Background())

	assert.False(t, store.IsAuthenticated())
}

func TestSessionStore_LogoutSwallowsStorageErrors(t *testing.T) {
	kv := newMockKV(map[string]string{KeyToken: "abc"})
	kv.delFn = func(string) error { return errors.New("read-only") }
	store := NewSessionStore(kv)
	store.Rehydrate(context.Background())

	require.NotPanics(t, func() { store.Logout(context.Background()) })
	assert.False(t, store.IsAuthenticated())
}

func TestSessionStore_AuthenticatedMatchesToken(t *testing.T) {
	kv := newMockKV(nil)
	store := NewSessionStore(kv)
	ctx := context.Background()

	check := func() {
		st := store.Snapshot()
		_, hasToken := store.Token()
		assert.Equal(t, hasToken, st.IsAuthenticated())
		if !st.IsAuthenticated() {
			assert.Equal(t, domain.RoleNone, st.Role)
			assert.False(t, st.HasUserID)
		}
	}

	check()
	store.Rehydrate(ctx)
	check()
	require.NoError(t, store.Login(ctx, "a", domain.RoleUser, 1))
	check()
	require.NoError(t, store.Login(ctx, "b", domain.RoleShelter, 2))
	check()
	store.Logout(ctx)
	check()
}

func TestSessionStore_ConcurrentMutationsStayConsistent(t *testing.T) {
	kv := newMockKV(nil)
	store := NewSessionStore(kv)
	ctx := context.Background()
	store.Rehydrate(ctx)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(id int64) {
			defer wg.Done()
			_ = store.Login(ctx, "tok", domain.RoleShelter, id)
		}(int64(i))
		go func() {
			defer wg.Done()
			store.Logout(ctx)
		}()
	}
	wg.Wait()

	st := store.Snapshot()
	stored := kv.snapshot()
	if st.IsAuthenticated() {
		assert.Equal(t, st.Token, stored[KeyToken])
		assert.Equal(t, "ong_protetor", stored[KeyRole])
		assert.Len(t, stored, 3)
	} else {
		assert.Empty(t, stored)
	}
}
