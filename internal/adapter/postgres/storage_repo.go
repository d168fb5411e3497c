package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"petmatch/internal/domain"
)

// StorageRepo implements domain.KeyValueStore for one client profile.
type StorageRepo struct {
	db        *DB
	namespace string
}

var _ domain.KeyValueStore = (*StorageRepo)(nil)

// NewStorageRepo scopes the storage table to namespace. Profiles sharing a
// database never see each other's keys.
func NewStorageRepo(db *DB, namespace string) *StorageRepo {
	return &StorageRepo{db: db, namespace: namespace}
}

// Get retrieves the value stored under key.
func (r *StorageRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := r.db.sql.QueryRowContext(ctx,
		"SELECT value FROM client_storage WHERE namespace = $1 AND key = $2",
		r.namespace, key,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key, replacing any previous value.
func (r *StorageRepo) Set(ctx context.Context, key, value string) error {
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO client_storage (namespace, key, value, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		r.namespace, key, value, time.Now(),
	)
	return err
}

// Delete removes key.
func (r *StorageRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.sql.ExecContext(ctx,
		"DELETE FROM client_storage WHERE namespace = $1 AND key = $2",
		r.namespace, key,
	)
	return err
}
