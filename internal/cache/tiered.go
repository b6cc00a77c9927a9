package cache

import (
	"context"
	"errors"
	"time"
)

// TieredStore layers a fast local store in front of a shared one.
// Reads promote shared hits into the local layer.
type TieredStore struct {
	local  Store
	remote Store
}

// NewTieredStore creates a tiered store from a local and a remote layer
func NewTieredStore(local, remote Store) *TieredStore {
	return &TieredStore{
		local:  local,
		remote: remote,
	}
}

// Get checks the local layer first, then the remote one
func (s *TieredStore) Get(ctx context.Context, key string) ([]byte, error) {
	if val, err := s.local.Get(ctx, key); err == nil {
		return val, nil
	}

	val, err := s.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	// Promote to the local layer with its default TTL
	_ = s.local.Set(ctx, key, val, 0)

	return val, nil
}

// Set stores the value in both layers
func (s *TieredStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.local.Set(ctx, key, value, ttl); err != nil {
		return err
	}
	return s.remote.Set(ctx, key, value, ttl)
}

// Delete removes the key from both layers
func (s *TieredStore) Delete(ctx context.Context, key string) error {
	localErr := s.local.Delete(ctx, key)
	remoteErr := s.remote.Delete(ctx, key)
	return errors.Join(localErr, remoteErr)
}

// Ping reports the shared layer's health, which defines availability
func (s *TieredStore) Ping(ctx context.Context) error {
	return s.remote.Ping(ctx)
}

// Close closes both layers
func (s *TieredStore) Close() error {
	localErr := s.local.Close()
	remoteErr := s.remote.Close()
	return errors.Join(localErr, remoteErr)
}
