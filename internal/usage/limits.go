// Package usage keeps the append-only usage ledger in SQLite, enforces
// per-tier quotas and reports remaining allowances per tenant.
package usage

import (
	"planforge/pkg/types"
)

// Unlimited marks a category without a cap for a tier
const Unlimited int64 = -1

// tierLimits is the per-tier quota table. Monthly categories reset on
// UTC calendar months; api_calls_hourly resets every UTC hour.
var tierLimits = map[types.SubscriptionTier]map[types.UsageCategory]int64{
	types.TierFree: {
		types.UsageAIRequests:        50,
		types.UsageLayoutGenerations: 10,
		types.UsageDocumentUploads:   5,
		types.UsageProjectCreations:  2,
		types.UsageAPICallsHourly:    100,
	},
	types.TierStarter: {
		types.UsageAIRequests:        500,
		types.UsageLayoutGenerations: 100,
		types.UsageDocumentUploads:   50,
		types.UsageProjectCreations:  10,
		types.UsageAPICallsHourly:    1000,
	},
	types.TierProfessional: {
		types.UsageAIRequests:        5000,
		types.UsageLayoutGenerations: 1000,
		types.UsageDocumentUploads:   500,
		types.UsageProjectCreations:  100,
		types.UsageAPICallsHourly:    5000,
	},
	types.TierEnterprise: {
		types.UsageAIRequests:        Unlimited,
		types.UsageLayoutGenerations: Unlimited,
		types.UsageDocumentUploads:   Unlimited,
		types.UsageProjectCreations:  Unlimited,
		types.UsageAPICallsHourly:    50000,
	},
}

// LimitFor returns the quota for a tier and category. Unknown tiers get
// the FREE limits.
func LimitFor(tier types.SubscriptionTier, category types.UsageCategory) int64 {
	limits, ok := tierLimits[tier]
	if !ok {
		limits = tierLimits[types.TierFree]
	}
	limit, ok := limits[category]
	if !ok {
		return Unlimited
	}
	return limit
}
