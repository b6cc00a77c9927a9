package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Store is a TTL-bound key-value store. Implementations must be safe for
// concurrent use; failures must never be required for pipeline correctness.
type Store interface {
	// Get retrieves a value, returning ErrMiss when the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable
	Ping(ctx context.Context) error

	// Close releases the store's resources
	Close() error
}
