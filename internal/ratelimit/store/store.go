// Package store provides counter storage backends for rate limiting.
//
// The default memory store keeps counters in-process, which is the
// documented scope of a single-instance deployment. The redis store
// backs the same interface with a shared external store so
// multi-instance deployments can share counters without changing any
// call sites.
package store

import (
	"context"
	"time"
)

// Store is the capability interface for rate-limit counters.
type Store interface {
	// Get retrieves the counter for the given key.
	Get(ctx context.Context, key string) (int64, error)

	// Set stores a counter with an expiration. A zero expiration
	// means no expiry.
	Set(ctx context.Context, key string, value int64, expiration time.Duration) error

	// IncrementWithExpiry atomically increments the counter and sets
	// the expiration when the key is new.
	IncrementWithExpiry(ctx context.Context, key string, delta int64, expiration time.Duration) (int64, error)

	// Delete removes the key.
	Delete(ctx context.Context, key string) error

	// Close releases store resources.
	Close() error
}

// ErrKeyNotFound is returned when a key is not present in the store.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return "key not found: " + e.Key
}

// IsKeyNotFound reports whether err is a key-not-found error.
func IsKeyNotFound(err error) bool {
	_, ok := err.(*ErrKeyNotFound)
	return ok
}
