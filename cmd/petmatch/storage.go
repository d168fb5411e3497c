package main

import (
	"context"
	"fmt"
	"io"

	"petmatch/internal/adapter/backend"
	"petmatch/internal/adapter/memory"
	"petmatch/internal/adapter/postgres"
	"petmatch/internal/adapter/redisstore"
	"petmatch/internal/adapter/sqlite"
	"petmatch/internal/app"
	"petmatch/internal/config"
	"petmatch/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// openStorage opens the configured durable storage. The returned closer
// releases it.
func openStorage(ctx context.Context, sc config.StorageConfig) (domain.KeyValueStore, io.Closer, error) {
	switch sc.Driver {
	case config.DriverMemory:
		return memory.New(), nopCloser{}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, sc.Path)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, sc.DSN)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewStorageRepo(db, sc.Namespace), db, nil
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{Addr: sc.Addr, Password: sc.Password})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("%w: %v", redisstore.ErrRedisUnavailable, err)
		}
		return redisstore.NewStore(client, "petmatch:"+sc.Namespace), client, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// newSessionStore opens storage and builds the session store over it. The
// store is not yet rehydrated.
func newSessionStore(ctx context.Context, c config.Config, log *zap.Logger) (*app.SessionStore, io.Closer, error) {
	kv, closer, err := openStorage(ctx, c.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s storage: %w", c.Storage.Driver, err)
	}
	opts := []app.StoreOption{
		app.WithLogger(log),
		app.WithStorageTimeout(c.Storage.Timeout),
	}
	if c.DiscardExpired {
		opts = append(opts, app.WithExpiryCheck(backend.TokenExpiry))
	}
	return app.NewSessionStore(kv, opts...), closer, nil
}
