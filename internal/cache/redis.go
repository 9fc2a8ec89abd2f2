package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"dompet/internal/log"
)

// RedisCache shares cached payloads across API instances. Values are JSON.
// Failures degrade to cache misses and are logged.
type RedisCache[T any] struct {
	client    redis.UniversalClient
	namespace string
	ttl       time.Duration
	logger    *log.Logger
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisCache[T any](client redis.UniversalClient, namespace string, ttl time.Duration, logger *log.Logger) *RedisCache[T] {
	return &RedisCache[T]{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger.WithComponent(log.ComponentCache),
	}
}

func (c *RedisCache[T]) key(k string) string {
	return c.namespace + ":" + k
}

func (c *RedisCache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WarnContext(ctx, "Redis GET failed", "key", key, "error", err)
		}
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.WarnContext(ctx, "Discarding undecodable cache entry", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

func (c *RedisCache[T]) Set(ctx context.Context, key string, data T) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.WarnContext(ctx, "Cannot encode cache entry", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.key(key), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis SET failed", "key", key, "error", err)
	}
}

func (c *RedisCache[T]) DeletePrefix(ctx context.Context, prefix string) {
	iter := c.client.Scan(ctx, 0, c.key(prefix)+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis SCAN failed", "prefix", prefix, "error", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.WarnContext(ctx, "Redis DEL failed", "prefix", prefix, "error", err)
	}
}
