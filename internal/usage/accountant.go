package usage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	// SQLite driver for the usage ledger
	_ "github.com/mattn/go-sqlite3"

	"planforge/internal/apperrors"
	"planforge/internal/logging"
	"planforge/pkg/types"
)

// aggregateStaleness bounds how old a cached consumption sum may be
const aggregateStaleness = 5 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id      TEXT    NOT NULL,
	category       TEXT    NOT NULL,
	units          INTEGER NOT NULL,
	success        INTEGER NOT NULL,
	correlation_id TEXT,
	created_at     TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_tenant_category_time
	ON usage_records (tenant_id, category, created_at);
`

// Accountant is the usage ledger and quota checker
type Accountant struct {
	db     *sql.DB
	logger logging.Logger

	mu       sync.Mutex
	aggCache map[aggKey]aggEntry
}

type aggKey struct {
	tenantID string
	category types.UsageCategory
}

type aggEntry struct {
	consumed  int64
	fetchedAt time.Time
	period    time.Time
}

// NewAccountant opens the ledger database and ensures the schema
func NewAccountant(databaseURL string, logger logging.Logger) (*Accountant, error) {
	db, err := sql.Open("sqlite3", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	// SQLite serializes writes; a single connection avoids lock churn
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create usage schema: %w", err)
	}

	return &Accountant{
		db:       db,
		logger:   logger.WithComponent("usage"),
		aggCache: make(map[aggKey]aggEntry),
	}, nil
}

// periodStart returns the start of the current billing period in UTC:
// the calendar month, or the hour for hourly categories
func periodStart(category types.UsageCategory, now time.Time) time.Time {
	now = now.UTC()
	if category == types.UsageAPICallsHourly {
		return now.Truncate(time.Hour)
	}
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// CheckAllowed performs the quota pre-check. It is advisory: the
// ledger remains append-only and slight overshoot under concurrency is
// accepted.
func (a *Accountant) CheckAllowed(ctx context.Context, tenantID string, tier types.SubscriptionTier, category types.UsageCategory, units int64) (*types.QuotaDecision, error) {
	limit := LimitFor(tier, category)
	if limit == Unlimited {
		return &types.QuotaDecision{Allowed: true, Remaining: Unlimited, Limit: Unlimited}, nil
	}

	consumed, err := a.consumed(ctx, tenantID, category)
	if err != nil {
		return nil, err
	}

	remaining := limit - consumed
	if remaining < 0 {
		remaining = 0
	}
	if consumed+units > limit {
		return &types.QuotaDecision{
			Allowed:   false,
			Reason:    fmt.Sprintf("%s quota exhausted for tier %s", category, tier),
			Remaining: remaining,
			Limit:     limit,
		}, nil
	}
	return &types.QuotaDecision{Allowed: true, Remaining: remaining, Limit: limit}, nil
}

// Record appends a ledger entry. Failed operations are recorded with
// success=false and do not consume quota.
func (a *Accountant) Record(ctx context.Context, record *types.UsageRecord) error {
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := a.db.ExecContext(ctx,
		`INSERT INTO usage_records (tenant_id, category, units, success, correlation_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		record.TenantID, string(record.Category), record.Units, record.Success,
		record.CorrelationID, record.CreatedAt.UTC(),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "failed to record usage", err)
	}

	// Successful consumption moves the aggregate; bump the cached sum
	// instead of waiting out the staleness window
	if record.Success {
		a.mu.Lock()
		key := aggKey{tenantID: record.TenantID, category: record.Category}
		if entry, ok := a.aggCache[key]; ok {
			entry.consumed += record.Units
			a.aggCache[key] = entry
		}
		a.mu.Unlock()
	}
	return nil
}

// Remaining reports the remaining allowance for every category
func (a *Accountant) Remaining(ctx context.Context, tenantID string, tier types.SubscriptionTier) (map[types.UsageCategory]int64, error) {
	categories := []types.UsageCategory{
		types.UsageAIRequests,
		types.UsageLayoutGenerations,
		types.UsageDocumentUploads,
		types.UsageProjectCreations,
		types.UsageAPICallsHourly,
	}

	out := make(map[types.UsageCategory]int64, len(categories))
	for _, category := range categories {
		limit := LimitFor(tier, category)
		if limit == Unlimited {
			out[category] = Unlimited
			continue
		}
		consumed, err := a.consumed(ctx, tenantID, category)
		if err != nil {
			return nil, err
		}
		remaining := limit - consumed
		if remaining < 0 {
			remaining = 0
		}
		out[category] = remaining
	}
	return out, nil
}

// consumed returns the successful unit sum for the current period,
// served from the per-tenant aggregate cache when fresh enough
func (a *Accountant) consumed(ctx context.Context, tenantID string, category types.UsageCategory) (int64, error) {
	now := time.Now()
	period := periodStart(category, now)
	key := aggKey{tenantID: tenantID, category: category}

	a.mu.Lock()
	entry, ok := a.aggCache[key]
	a.mu.Unlock()
	if ok && entry.period.Equal(period) && now.Sub(entry.fetchedAt) < aggregateStaleness {
		return entry.consumed, nil
	}

	var consumed sql.NullInt64
	err := a.db.QueryRowContext(ctx,
		`SELECT SUM(units) FROM usage_records
		 WHERE tenant_id = ? AND category = ? AND success = 1 AND created_at >= ?`,
		tenantID, string(category), period,
	).Scan(&consumed)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, "failed to read usage", err)
	}

	a.mu.Lock()
	a.aggCache[key] = aggEntry{consumed: consumed.Int64, fetchedAt: now, period: period}
	a.mu.Unlock()
	return consumed.Int64, nil
}

// HealthCheck pings the database
func (a *Accountant) HealthCheck(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

// Close closes the ledger database
func (a *Accountant) Close() error {
	return a.db.Close()
}
