package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process store backed by go-cache
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store with the given default TTL
func NewMemoryStore(defaultTTL, cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(defaultTTL, cleanupInterval),
	}
}

// Get retrieves a value, returning ErrMiss when absent or expired
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if val, found := s.cache.Get(key); found {
		if b, ok := val.([]byte); ok {
			return b, nil
		}
	}
	return nil, ErrMiss
}

// Set stores a value with the given TTL
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.cache.Set(key, value, ttl)
	return nil
}

// Delete removes a key
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Ping always succeeds for an in-process store
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close flushes all entries
func (s *MemoryStore) Close() error {
	s.cache.Flush()
	return nil
}
