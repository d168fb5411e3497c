// Package memory implements an in-memory key/value storage for development and testing.
package memory

import (
	"context"
	"sync"

	"petmatch/internal/domain"
)

// DB implements an in-memory key/value storage. Its contents do not survive
// the process, so a session kept here is lost on restart.
type DB struct {
	mu   sync.Mutex
	data map[string]string
}

// New creates a new in-memory storage.
func New() *DB {
	return &DB{
		data: make(map[string]string),
	}
}

// Ensure interfaces are met.
var _ domain.KeyValueStore = (*DB)(nil)

// Get returns the value stored under key.
func (db *DB) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	v, ok := db.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (db *DB) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	db.data[key] = value
	return nil
}

// Delete removes key. Missing keys are ignored.
func (db *DB) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.data, key)
	return nil
}

// Len returns the number of stored keys.
func (db *DB) Len() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.data)
}
