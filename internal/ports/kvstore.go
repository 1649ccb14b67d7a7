package ports

import "context"

// KVStore is the key-value byte store the history log is persisted in.
type KVStore interface {
	// Get returns the value stored under key.
	// MUST return (nil, nil) if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the underlying connection, if any.
	Close() error
}
