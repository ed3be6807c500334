// Package redis is implementation of cache interface backed by redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Decentr-net/animenexus/internal/cache"
)

const keyPrefix = "animenexus:"

type rds struct {
	client redis.UniversalClient
}

// New creates new instance of redis cache.
func New(client redis.UniversalClient) cache.Cache {
	return rds{
		client: client,
	}
}

func (r rds) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrMiss
		}
		return nil, fmt.Errorf("failed to get: %w", err)
	}

	return v, nil
}

func (r rds) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set: %w", err)
	}

	return nil
}

func (r rds) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

func (r rds) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
