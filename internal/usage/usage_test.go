package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/logging"
	"planforge/pkg/types"
)

func newTestAccountant(t *testing.T) *Accountant {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "usage.db")
	accountant, err := NewAccountant(dsn, logging.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = accountant.Close() })
	return accountant
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, int64(50), LimitFor(types.TierFree, types.UsageAIRequests))
	assert.Equal(t, int64(5000), LimitFor(types.TierProfessional, types.UsageAIRequests))
	assert.Equal(t, Unlimited, LimitFor(types.TierEnterprise, types.UsageAIRequests))
	assert.Equal(t, int64(50000), LimitFor(types.TierEnterprise, types.UsageAPICallsHourly))

	// Unknown tiers fall back to FREE limits
	assert.Equal(t, int64(50), LimitFor(types.SubscriptionTier("TRIAL"), types.UsageAIRequests))
}

func TestAccountant_CheckAllowedAndRecord(t *testing.T) {
	accountant := newTestAccountant(t)
	ctx := context.Background()

	decision, err := accountant.CheckAllowed(ctx, "t1", types.TierFree, types.UsageProjectCreations, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(2), decision.Remaining)

	for i := 0; i < 2; i++ {
		require.NoError(t, accountant.Record(ctx, &types.UsageRecord{
			TenantID: "t1",
			Category: types.UsageProjectCreations,
			Units:    1,
			Success:  true,
		}))
	}

	decision, err = accountant.CheckAllowed(ctx, "t1", types.TierFree, types.UsageProjectCreations, 1)
	require.NoError(t, err)
	assert.False(t, decision.Allowed, "FREE tier allows 2 project creations")
	assert.Equal(t, int64(0), decision.Remaining)
	assert.Contains(t, decision.Reason, "quota exhausted")
}

func TestAccountant_FailedRecordsDoNotConsume(t *testing.T) {
	accountant := newTestAccountant(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, accountant.Record(ctx, &types.UsageRecord{
			TenantID: "t1",
			Category: types.UsageAIRequests,
			Units:    1,
			Success:  false,
		}))
	}

	decision, err := accountant.CheckAllowed(ctx, "t1", types.TierFree, types.UsageAIRequests, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(50), decision.Remaining, "failed records must not count")
}

func TestAccountant_UnlimitedTier(t *testing.T) {
	accountant := newTestAccountant(t)
	ctx := context.Background()

	decision, err := accountant.CheckAllowed(ctx, "t1", types.TierEnterprise, types.UsageAIRequests, 1_000_000)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, Unlimited, decision.Remaining)
}

func TestAccountant_TenantsIsolated(t *testing.T) {
	accountant := newTestAccountant(t)
	ctx := context.Background()

	require.NoError(t, accountant.Record(ctx, &types.UsageRecord{
		TenantID: "t1",
		Category: types.UsageDocumentUploads,
		Units:    5,
		Success:  true,
	}))

	decision, err := accountant.CheckAllowed(ctx, "t2", types.TierFree, types.UsageDocumentUploads, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(5), decision.Remaining)
}

func TestAccountant_HourlyPeriodExcludesOldRecords(t *testing.T) {
	accountant := newTestAccountant(t)
	ctx := context.Background()

	// A record from two hours ago is outside the current hourly window
	require.NoError(t, accountant.Record(ctx, &types.UsageRecord{
		TenantID:  "t1",
		Category:  types.UsageAPICallsHourly,
		Units:     99,
		Success:   true,
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
	}))
	require.NoError(t, accountant.Record(ctx, &types.UsageRecord{
		TenantID: "t1",
		Category: types.UsageAPICallsHourly,
		Units:    3,
		Success:  true,
	}))

	decision, err := accountant.CheckAllowed(ctx, "t1", types.TierFree, types.UsageAPICallsHourly, 1)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(97), decision.Remaining)
}

func TestAccountant_Remaining(t *testing.T) {
	accountant := newTestAccountant(t)
	ctx := context.Background()

	require.NoError(t, accountant.Record(ctx, &types.UsageRecord{
		TenantID: "t1",
		Category: types.UsageAIRequests,
		Units:    10,
		Success:  true,
	}))

	remaining, err := accountant.Remaining(ctx, "t1", types.TierFree)
	require.NoError(t, err)
	assert.Equal(t, int64(40), remaining[types.UsageAIRequests])
	assert.Equal(t, int64(10), remaining[types.UsageLayoutGenerations])
	assert.Equal(t, int64(5), remaining[types.UsageDocumentUploads])
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2026, 8, 26, 14, 37, 12, 0, time.UTC)

	monthly := periodStart(types.UsageAIRequests, now)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), monthly)

	hourly := periodStart(types.UsageAPICallsHourly, now)
	assert.Equal(t, time.Date(2026, 8, 26, 14, 0, 0, 0, time.UTC), hourly)
}
