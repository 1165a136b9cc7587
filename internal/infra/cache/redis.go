package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a JSON-encoding cache on top of go-redis. Redis failures are
// logged and reported as misses so callers fall through to the source.
type Redis[T any] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a Redis-backed cache whose keys are namespaced by prefix.
func NewRedis[T any](client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// NewRedisClient parses a redis:// URL and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c *Redis[T]) key(k string) string {
	return c.prefix + ":" + k
}

// Get retrieves and decodes a value.
func (c *Redis[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("redis value undecodable", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

// Set encodes and stores a value with the configured TTL.
func (c *Redis[T]) Set(ctx context.Context, key string, value T) {
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("redis value unencodable", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
	}
}

// Delete removes a value.
func (c *Redis[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn("redis delete failed", zap.String("key", key), zap.Error(err))
	}
}
