package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// L2Cache is the shared Redis tier. Tags are stored as reverse-index
// sets so tag invalidation is one SMEMBERS plus a batched DEL.
type L2Cache struct {
	client *redis.Client
}

// NewL2Cache creates the Redis tier from a redis URL
func NewL2Cache(url string) (*L2Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &L2Cache{client: redis.NewClient(opts)}, nil
}

// NewL2CacheFromClient wraps an existing client, used by tests
func NewL2CacheFromClient(client *redis.Client) *L2Cache {
	return &L2Cache{client: client}
}

func tagSetKey(tag string) string { return "cachetag:" + tag }

// Get returns the value and its remaining TTL, or nil on miss
func (c *L2Cache) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	pipe := c.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("redis get failed: %w", err)
	}
	return []byte(getCmd.Val()), ttlCmd.Val(), nil
}

// Set stores a value with TTL and registers it under its tags
func (c *L2Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	pipe := c.client.Pipeline()
	pipe.Set(ctx, key, value, ttl)
	for _, tag := range tags {
		pipe.SAdd(ctx, tagSetKey(tag), key)
		// Tag sets outlive their newest member slightly so invalidation
		// still sees expired keys
		pipe.Expire(ctx, tagSetKey(tag), ttl+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Delete removes a single key
func (c *L2Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

// InvalidateByTags removes every key registered under any of the tags
func (c *L2Cache) InvalidateByTags(ctx context.Context, tags []string) (int, error) {
	removed := 0
	for _, tag := range tags {
		keys, err := c.client.SMembers(ctx, tagSetKey(tag)).Result()
		if err != nil {
			return removed, fmt.Errorf("redis tag lookup failed: %w", err)
		}
		if len(keys) > 0 {
			deleted, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis tag delete failed: %w", err)
			}
			removed += int(deleted)
		}
		if err := c.client.Del(ctx, tagSetKey(tag)).Err(); err != nil {
			return removed, fmt.Errorf("redis tag cleanup failed: %w", err)
		}
	}
	return removed, nil
}

// HealthCheck pings the Redis server
func (c *L2Cache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client
func (c *L2Cache) Close() error {
	return c.client.Close()
}
