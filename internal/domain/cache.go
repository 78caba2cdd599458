package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by a BlobStore when no entry exists for a key.
var ErrNotFound = errors.New("blob not found")

// CacheEntry is one stored blob. UpdatedAt is the time of the last successful write.
type CacheEntry struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

// BlobStore is a key to (bytes, updatedAt) store with prefix deletion.
// Implementations must be safe for concurrent use and must never move
// UpdatedAt backwards for a key.
type BlobStore interface {
	// Get returns ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) (CacheEntry, error)

	// Put upserts the value and stamps the current time.
	Put(ctx context.Context, key string, value []byte) error

	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Ping reports whether the backing storage is usable.
	Ping(ctx context.Context) error
	Close() error
}
