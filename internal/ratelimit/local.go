package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"planforge/internal/config"
	"planforge/pkg/types"
)

// idleEvictAfter bounds how long an inactive tenant bucket is kept
const idleEvictAfter = 2 * time.Hour

type bucket struct {
	limiter  *rate.Limiter
	requests int
	lastSeen time.Time
}

// LocalLimiter keeps one token bucket per tenant in process memory.
// The bucket refills continuously at limit/window and bursts up to the
// full window allowance.
type LocalLimiter struct {
	config *config.RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLocalLimiter creates the in-process limiter
func NewLocalLimiter(cfg *config.RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		config:  cfg,
		buckets: make(map[string]*bucket),
	}
}

// Allow consumes one token from the tenant's bucket
func (l *LocalLimiter) Allow(_ context.Context, tenantID string, tier types.SubscriptionTier) (*Decision, error) {
	requests, window := limitFor(l.config, tier)
	now := time.Now()

	l.mu.Lock()
	b, ok := l.buckets[tenantID]
	if !ok || b.requests != requests {
		b = &bucket{
			limiter:  rate.NewLimiter(rate.Limit(float64(requests)/window.Seconds()), requests),
			requests: requests,
		}
		l.buckets[tenantID] = b
	}
	b.lastSeen = now
	l.evictIdleLocked(now)
	l.mu.Unlock()

	if b.limiter.Allow() {
		return &Decision{
			Allowed:   true,
			Limit:     requests,
			Remaining: int(b.limiter.Tokens()),
		}, nil
	}

	reservation := b.limiter.Reserve()
	retryAfter := reservation.Delay()
	reservation.Cancel()
	return &Decision{
		Allowed:    false,
		Limit:      requests,
		Remaining:  0,
		RetryAfter: retryAfter,
	}, nil
}

func (l *LocalLimiter) evictIdleLocked(now time.Time) {
	for tenantID, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleEvictAfter {
			delete(l.buckets, tenantID)
		}
	}
}
