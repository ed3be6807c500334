// Package cache contains a key-value cache interface with per-key TTL.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache ...
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}
