// Package cache keeps short-lived JSON values in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ContextKey holds the odds and scraped picks rendered into chat prompts.
const ContextKey = "wagergenie:chat:context"

// Cache stores JSON values with a TTL.
type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// ConnectRedis opens a client and checks it with PING.
func ConnectRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Redis is a Cache backed by a Redis client.
type Redis struct {
	r   *redis.Client
	ttl time.Duration
}

// NewRedis returns a Redis cache whose entries expire after ttl.
func NewRedis(r *redis.Client, ttl time.Duration) *Redis {
	return &Redis{r: r, ttl: ttl}
}

func (c *Redis) Get(ctx context.Context, key string, dst any) (bool, error) {
	b, err := c.r.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(b, dst)
}

func (c *Redis) Set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.r.Set(ctx, key, b, c.ttl).Err()
}

func (c *Redis) Delete(ctx context.Context, key string) error {
	return c.r.Del(ctx, key).Err()
}

// Nop never stores anything. It is used when Redis is not configured.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Delete(context.Context, string) error           { return nil }
