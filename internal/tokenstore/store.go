package tokenstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent, expired, or already consumed.
var ErrNotFound = errors.New("token not found")

// Store is a durable key-value mapping from opaque token strings to small
// payloads with per-key expiry. Implementations must make Take atomic: two
// concurrent Takes of the same key see exactly one success, the loser gets
// ErrNotFound.
type Store interface {
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Take reads and deletes the key as a single-use claim.
	Take(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
