package cache

import (
	"context"
	"time"

	"planforge/internal/config"
	"planforge/internal/logging"
)

// ResultCache is the interface the coordinator caches results behind
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string)
	Delete(ctx context.Context, key string)
	InvalidateByTags(ctx context.Context, tags []string) int
}

// TieredCache composes L1 and an optional L2 behind ResultCache.
// Reads check L1 first; L2 hits repopulate L1 with a bounded TTL.
// Writes go through to both tiers. L2 failures degrade to L1-only
// behavior rather than failing the request.
type TieredCache struct {
	l1     *L1Cache
	l2     *L2Cache // nil when Redis is not configured
	config *config.CacheConfig
	logger logging.Logger
}

// NewTieredCache creates the composed cache. l2 may be nil.
func NewTieredCache(l1 *L1Cache, l2 *L2Cache, cfg *config.CacheConfig, logger logging.Logger) *TieredCache {
	return &TieredCache{
		l1:     l1,
		l2:     l2,
		config: cfg,
		logger: logger.WithComponent("cache"),
	}
}

// Get checks L1 then L2
func (t *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if value := t.l1.Get(key); value != nil {
		return value, true
	}
	if t.l2 == nil {
		return nil, false
	}

	value, remaining, err := t.l2.Get(ctx, key)
	if err != nil {
		t.logger.WarnContext(ctx, "L2 read failed, serving miss", "error", err.Error())
		return nil, false
	}
	if len(value) == 0 {
		return nil, false
	}

	// Populate L1 with the remaining TTL, bounded so a long-lived L2
	// entry cannot pin L1 space for hours
	ttl := remaining
	if ttl <= 0 || ttl > t.config.L1PopulateTTL {
		ttl = t.config.L1PopulateTTL
	}
	t.l1.Set(key, value, ttl, nil)
	return value, true
}

// Set writes through both tiers
func (t *TieredCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) {
	if ttl <= 0 {
		ttl = t.config.DefaultTTL
	}
	t.l1.Set(key, value, ttl, tags)
	if t.l2 != nil {
		if err := t.l2.Set(ctx, key, value, ttl, tags); err != nil {
			t.logger.WarnContext(ctx, "L2 write failed, entry is L1-only", "error", err.Error())
		}
	}
}

// Delete removes a key from both tiers
func (t *TieredCache) Delete(ctx context.Context, key string) {
	t.l1.Delete(key)
	if t.l2 != nil {
		if err := t.l2.Delete(ctx, key); err != nil {
			t.logger.WarnContext(ctx, "L2 delete failed", "error", err.Error())
		}
	}
}

// InvalidateByTags removes tagged entries from both tiers and returns
// the count removed from the authoritative tier
func (t *TieredCache) InvalidateByTags(ctx context.Context, tags []string) int {
	removed := t.l1.InvalidateByTags(tags)
	if t.l2 != nil {
		l2removed, err := t.l2.InvalidateByTags(ctx, tags)
		if err != nil {
			t.logger.WarnContext(ctx, "L2 tag invalidation failed", "error", err.Error())
		} else if l2removed > removed {
			removed = l2removed
		}
	}
	return removed
}

// L1Stats exposes the in-process tier statistics
func (t *TieredCache) L1Stats() Stats {
	return t.l1.Stats()
}

// HealthCheck verifies the L2 connection when configured
func (t *TieredCache) HealthCheck(ctx context.Context) error {
	if t.l2 == nil {
		return nil
	}
	return t.l2.HealthCheck(ctx)
}
