// Package ratelimit admits or rejects tenant requests before any
// quota or provider work happens. The local limiter is a per-tenant
// token bucket; when Redis is configured a shared fixed-window counter
// keeps replicas in agreement.
package ratelimit

import (
	"context"
	"time"

	"planforge/internal/config"
	"planforge/pkg/types"
)

// Decision is the admission outcome for a single request
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Limiter admits requests per tenant
type Limiter interface {
	Allow(ctx context.Context, tenantID string, tier types.SubscriptionTier) (*Decision, error)
}

// tierRequests is the hourly request allowance per subscription tier
var tierRequests = map[types.SubscriptionTier]int{
	types.TierFree:         100,
	types.TierStarter:      1000,
	types.TierProfessional: 5000,
	types.TierEnterprise:   50000,
}

const defaultWindow = time.Hour

// limitFor resolves the effective requests/window pair, honoring the
// configuration override when present
func limitFor(cfg *config.RateLimitConfig, tier types.SubscriptionTier) (int, time.Duration) {
	if cfg != nil && cfg.Requests > 0 {
		window := cfg.Window
		if window <= 0 {
			window = defaultWindow
		}
		return cfg.Requests, window
	}
	requests, ok := tierRequests[tier]
	if !ok {
		requests = tierRequests[types.TierFree]
	}
	return requests, defaultWindow
}
