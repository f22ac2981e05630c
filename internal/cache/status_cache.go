// Package cache keeps recently read order statuses in Redis so that status
// polling does not hit the database on every request.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"claudygod/internal/models"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "order_status:"

// RedisClient is the subset of *redis.Client used by the cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStatusCache stores order statuses under "order_status:<orderId>".
type RedisStatusCache struct {
	client RedisClient
	ttl    time.Duration
}

// Options holds Redis connection details.
type Options struct {
	Addr     string
	Password string
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, opts Options) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}

// NewRedisStatusCache creates a new RedisStatusCache.
func NewRedisStatusCache(client RedisClient, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{client: client, ttl: ttl}
}

// Get returns the cached status. ok is false on a miss.
func (c *RedisStatusCache) Get(ctx context.Context, orderID string) (models.OrderStatus, bool, error) {
	val, err := c.client.Get(ctx, keyPrefix+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached status of %s: %w", orderID, err)
	}
	return models.OrderStatus(val), true, nil
}

// Set caches status for the configured TTL.
func (c *RedisStatusCache) Set(ctx context.Context, orderID string, status models.OrderStatus) error {
	if err := c.client.Set(ctx, keyPrefix+orderID, string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache status of %s: %w", orderID, err)
	}
	return nil
}
