package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/pkg/types"
)

// RedisLimiter is a shared fixed-window counter, one INCR per request
// keyed by tenant and window start. Redis failures fail open so a cache
// outage never blocks traffic.
type RedisLimiter struct {
	client *redis.Client
	config *config.RateLimitConfig
	logger logging.Logger
}

// NewRedisLimiter creates the shared limiter from a redis URL
func NewRedisLimiter(url string, cfg *config.RateLimitConfig, logger logging.Logger) (*RedisLimiter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisLimiter{
		client: redis.NewClient(opts),
		config: cfg,
		logger: logger.WithComponent("ratelimit"),
	}, nil
}

// NewRedisLimiterFromClient wraps an existing client, used by tests
func NewRedisLimiterFromClient(client *redis.Client, cfg *config.RateLimitConfig, logger logging.Logger) *RedisLimiter {
	return &RedisLimiter{client: client, config: cfg, logger: logger.WithComponent("ratelimit")}
}

// Allow increments the tenant's window counter and compares against
// the tier allowance
func (l *RedisLimiter) Allow(ctx context.Context, tenantID string, tier types.SubscriptionTier) (*Decision, error) {
	requests, window := limitFor(l.config, tier)
	now := time.Now().UTC()
	windowStart := now.Truncate(window)
	key := fmt.Sprintf("ratelimit:%s:%d", tenantID, windowStart.Unix())

	pipe := l.client.Pipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.WarnContext(ctx, "rate limit counter unavailable, admitting request",
			"tenant_id", tenantID, "error", err.Error())
		return &Decision{Allowed: true, Limit: requests, Remaining: requests}, nil
	}

	count := int(incrCmd.Val())
	if count > requests {
		return &Decision{
			Allowed:    false,
			Limit:      requests,
			Remaining:  0,
			RetryAfter: windowStart.Add(window).Sub(now),
		}, nil
	}
	return &Decision{
		Allowed:   true,
		Limit:     requests,
		Remaining: requests - count,
	}, nil
}

// Close releases the client
func (l *RedisLimiter) Close() error {
	return l.client.Close()
}
