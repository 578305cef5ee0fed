package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/pkg/types"
)

func TestLimitFor(t *testing.T) {
	requests, window := limitFor(nil, types.TierFree)
	assert.Equal(t, 100, requests)
	assert.Equal(t, time.Hour, window)

	requests, _ = limitFor(nil, types.TierEnterprise)
	assert.Equal(t, 50000, requests)

	// Unknown tier falls back to FREE
	requests, _ = limitFor(nil, types.SubscriptionTier("TRIAL"))
	assert.Equal(t, 100, requests)

	// Config override wins
	override := &config.RateLimitConfig{Requests: 7, Window: time.Minute}
	requests, window = limitFor(override, types.TierEnterprise)
	assert.Equal(t, 7, requests)
	assert.Equal(t, time.Minute, window)
}

func TestLocalLimiter_BurstThenReject(t *testing.T) {
	limiter := NewLocalLimiter(&config.RateLimitConfig{Requests: 3, Window: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		decision, err := limiter.Allow(ctx, "t1", types.TierFree)
		require.NoError(t, err)
		assert.True(t, decision.Allowed, "request %d within burst", i)
	}

	decision, err := limiter.Allow(ctx, "t1", types.TierFree)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))
}

func TestLocalLimiter_TenantsIndependent(t *testing.T) {
	limiter := NewLocalLimiter(&config.RateLimitConfig{Requests: 1, Window: time.Hour})
	ctx := context.Background()

	decision, err := limiter.Allow(ctx, "t1", types.TierFree)
	require.NoError(t, err)
	require.True(t, decision.Allowed)

	decision, err = limiter.Allow(ctx, "t1", types.TierFree)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)

	decision, err = limiter.Allow(ctx, "t2", types.TierFree)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "a saturated tenant must not affect others")
}

func TestLocalLimiter_TierAllowances(t *testing.T) {
	limiter := NewLocalLimiter(nil)
	ctx := context.Background()

	decision, err := limiter.Allow(ctx, "t1", types.TierProfessional)
	require.NoError(t, err)
	assert.Equal(t, 5000, decision.Limit)
}

func TestRedisLimiter_FixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiterFromClient(client,
		&config.RateLimitConfig{Requests: 2, Window: time.Minute}, logging.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		decision, err := limiter.Allow(ctx, "t1", types.TierFree)
		require.NoError(t, err)
		assert.True(t, decision.Allowed)
	}

	decision, err := limiter.Allow(ctx, "t1", types.TierFree)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Greater(t, decision.RetryAfter, time.Duration(0))

	// Other tenants keep their own window
	decision, err = limiter.Allow(ctx, "t2", types.TierFree)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestRedisLimiter_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiterFromClient(client,
		&config.RateLimitConfig{Requests: 1, Window: time.Minute}, logging.NewNop())
	ctx := context.Background()

	mr.Close()
	decision, err := limiter.Allow(ctx, "t1", types.TierFree)
	require.NoError(t, err)
	assert.True(t, decision.Allowed, "backend outage must not reject traffic")
}

func TestRedisLimiter_CounterKeysPerWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := NewRedisLimiterFromClient(client,
		&config.RateLimitConfig{Requests: 10, Window: time.Minute}, logging.NewNop())
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "t1", types.TierFree)
	require.NoError(t, err)

	windowStart := time.Now().UTC().Truncate(time.Minute)
	key := fmt.Sprintf("ratelimit:t1:%d", windowStart.Unix())
	value, err := client.Get(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "1", value)
}
