package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache stores responses in Redis so multiple generator processes
// share one response cache.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache creates a cache over an existing Redis client. The
// prefix namespaces this application's keys; empty means no prefix.
func NewRedisCache(client redis.UniversalClient, prefix string) (*RedisCache, error) {
	if client == nil {
		return nil, ErrNilCache
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get retrieves a value. Returns (nil, false) on miss or any transport
// error; a flaky cache must never fail a generation.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

// Set stores a value with the given TTL. TTL=0 means no caching.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := ValidateKey(key); err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, value, ttl).Err()
}

// Delete removes a value. Idempotent - no error on miss.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	err := c.client.Del(ctx, c.prefix+key).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// Ensure RedisCache implements Cache
var _ Cache = (*RedisCache)(nil)
