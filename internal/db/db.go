// Package db defines the key-value storage contract used by the embedding
// cache, with a Redis implementation under redis/.
package db

import (
	"context"
	"time"
)

// Store is the key-value storage contract.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Ping(ctx context.Context) error
	WaitForReady(ctx context.Context, timeout time.Duration) error
	Close()
}
