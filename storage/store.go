package storage

import "context"

// Store is a durable namespaced key-value store holding opaque JSON blobs.
// Get returns (nil, nil) when the key is absent so callers can substitute
// their own empty defaults.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
