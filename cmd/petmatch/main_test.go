package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"petmatch/internal/app"
	"petmatch/internal/config"
	"petmatch/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sqliteConfig(t *testing.T) config.Config {
	t.Helper()
	c := config.Default()
	c.Storage.Driver = config.DriverSQLite
	c.Storage.Path = filepath.Join(t.TempDir(), "session.db")
	return c
}

func TestOpenStorage_UnknownDriver(t *testing.T) {
	_, _, err := openStorage(context.Background(), config.StorageConfig{Driver: "etcd"})
	assert.Error(t, err)
}

func TestOpenStorage_Memory(t *testing.T) {
	kv, closer, err := openStorage(context.Background(), config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), "k", "v"))
	assert.NoError(t, closer.Close())
}

func TestSessionCommands_SQLite(t *testing.T) {
	ctx := context.Background()
	c := sqliteConfig(t)
	log := zap.NewNop()

	var out bytes.Buffer
	require.NoError(t, printSession(ctx, &out, c, log))
	assert.Equal(t, "not signed in\n", out.String())

	store, closer, err := newSessionStore(ctx, c, log)
	require.NoError(t, err)
	store.Rehydrate(ctx)
	require.NoError(t, store.Login(ctx, "secret-token", domain.RoleShelter, 7))
	require.NoError(t, closer.Close())

	out.Reset()
	require.NoError(t, printSession(ctx, &out, c, log))
	assert.Equal(t, "signed in\nrole: ong_protetor\nuser id: 7\n", out.String())
	assert.NotContains(t, out.String(), "secret-token")

	out.Reset()
	require.NoError(t, logout(ctx, &out, c, log))
	assert.Equal(t, "signed out\n", out.String())

	out.Reset()
	require.NoError(t, printSession(ctx, &out, c, log))
	assert.Equal(t, "not signed in\n", out.String())
}

func TestNewSessionStore_DiscardsExpired(t *testing.T) {
	ctx := context.Background()
	c := sqliteConfig(t)
	c.DiscardExpired = true

	kv, closer, err := openStorage(ctx, c.Storage)
	require.NoError(t, err)
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": 1}).SignedString([]byte("k"))
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, app.KeyToken, expired))
	require.NoError(t, kv.Set(ctx, app.KeyRole, "admin"))
	require.NoError(t, kv.Set(ctx, app.KeyUserID, "1"))
	require.NoError(t, closer.Close())

	store, closer, err := newSessionStore(ctx, c, zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = closer.Close() }()
	store.Rehydrate(ctx)
	assert.False(t, store.IsAuthenticated())
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("warn", false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))

	l, err = newLogger("warn", true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zap.DebugLevel))

	_, err = newLogger("loud", false)
	assert.Error(t, err)
}
