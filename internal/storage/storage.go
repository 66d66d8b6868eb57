// Package storage defines the durable key-value store used for cached
// historical series and persisted application settings, with SQLite,
// Redis, and in-memory implementations.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key does not exist or has expired.
var ErrNotFound = errors.New("storage: key not found")

// ErrQuotaExceeded is returned by a store that cannot accept more data.
// Callers may evict and retry.
var ErrQuotaExceeded = errors.New("storage: quota exceeded")

// Entry is a stored value with its expiry. A zero ExpiresAt means the
// entry never expires.
type Entry struct {
	Value     []byte
	ExpiresAt time.Time
}

// Expired reports whether the entry is past its expiry at time now.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store is the durable key-value interface. Implementations must be
// safe for concurrent use.
type Store interface {
	// Get returns the entry for key, or ErrNotFound. Implementations
	// lazily delete expired entries on read.
	Get(ctx context.Context, key string) (Entry, error)

	// Set stores value under key with the given TTL (0 = no expiry).
	// Returns ErrQuotaExceeded when the store is full.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key with the given prefix and returns
	// the number removed.
	DeletePrefix(ctx context.Context, prefix string) (int, error)

	// Close releases underlying resources.
	Close() error
}
