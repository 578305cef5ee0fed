// Package orchestrator coordinates the full lifetime of an AI command:
// admission, quota, cache lookup, model selection, prompt assembly,
// provider dispatch, output validation and fallback generation.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"planforge/internal/apperrors"
	"planforge/internal/cache"
	"planforge/internal/config"
	"planforge/internal/correlation"
	"planforge/internal/fallbackgen"
	"planforge/internal/logging"
	"planforge/internal/prompt"
	"planforge/internal/providers"
	"planforge/internal/ratelimit"
	"planforge/internal/validation"
	"planforge/pkg/types"
)

// fallbackModelName appears as ModelUsed when deterministic generation
// produced the artifact
const fallbackModelName = "fallback-generator"

// Retriever is the document retrieval dependency, optional at wiring
type Retriever interface {
	Query(ctx context.Context, query string, topK int, filters *types.SearchFilters) ([]types.SearchHit, error)
}

// UsageAccountant is the quota dependency
type UsageAccountant interface {
	CheckAllowed(ctx context.Context, tenantID string, tier types.SubscriptionTier, category types.UsageCategory, units int64) (*types.QuotaDecision, error)
	Record(ctx context.Context, record *types.UsageRecord) error
}

// Coordinator owns command processing end to end
type Coordinator struct {
	dispatcher *providers.Dispatcher
	assembler  *prompt.Assembler
	regions    *prompt.Regions
	retriever  Retriever // nil when no vector index is wired
	validator  *validation.Validator
	fallback   *fallbackgen.Generator
	cache      cache.ResultCache
	usage      UsageAccountant
	limiter    ratelimit.Limiter
	retrieval  *config.RetrievalConfig
	cacheCfg   *config.CacheConfig
	logger     logging.Logger
}

// NewCoordinator wires the coordinator. retriever may be nil.
func NewCoordinator(
	dispatcher *providers.Dispatcher,
	assembler *prompt.Assembler,
	regions *prompt.Regions,
	retriever Retriever,
	validator *validation.Validator,
	fallback *fallbackgen.Generator,
	resultCache cache.ResultCache,
	accountant UsageAccountant,
	limiter ratelimit.Limiter,
	cfg *config.Config,
	logger logging.Logger,
) *Coordinator {
	return &Coordinator{
		dispatcher: dispatcher,
		assembler:  assembler,
		regions:    regions,
		retriever:  retriever,
		validator:  validator,
		fallback:   fallback,
		cache:      resultCache,
		usage:      accountant,
		limiter:    limiter,
		retrieval:  &cfg.Retrieval,
		cacheCfg:   &cfg.Cache,
		logger:     logger.WithComponent("orchestrator"),
	}
}

// ProcessCommand runs a command to its terminal result. Errors are
// returned only for admission failures (validation, rate limit, quota)
// and caller cancellation; provider and validation trouble degrades to
// the deterministic fallback instead.
func (c *Coordinator) ProcessCommand(ctx context.Context, cmd *types.AICommand) (*types.AICommandResult, error) {
	started := time.Now()

	if err := validateCommand(cmd); err != nil {
		return nil, err
	}
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = correlation.NewID(correlation.DefaultPrefix)
	}
	if cmd.CreatedAt.IsZero() {
		cmd.CreatedAt = time.Now().UTC()
	}
	ctx = correlation.WithID(ctx, cmd.CorrelationID)

	if err := c.admit(ctx, cmd); err != nil {
		return nil, err
	}

	if result := c.cachedResult(ctx, cmd); result != nil {
		result.ProcessingMS = time.Since(started).Milliseconds()
		c.storeResult(ctx, result)
		c.recordUsage(ctx, cmd, true, 1)
		return result, nil
	}

	result, err := c.execute(ctx, cmd)
	if err != nil {
		// Only caller cancellation surfaces here; everything else fell
		// back. A canceled command is recorded but consumes no quota.
		c.recordUsage(ctx, cmd, false, 0)
		return nil, err
	}

	result.ProcessingMS = time.Since(started).Milliseconds()
	c.storeResult(ctx, result)
	if !result.FallbackUsed && result.Status == types.StatusCompleted {
		c.cacheResult(ctx, cmd, result)
	}
	c.recordUsage(ctx, cmd, result.Status == types.StatusCompleted, 1)

	c.logger.InfoContext(ctx, "command processed",
		"task_type", string(cmd.TaskType),
		"status", string(result.Status),
		"provider", result.ProviderUsed,
		"model", result.ModelUsed,
		"fallback_used", result.FallbackUsed,
		"confidence", result.Confidence,
		"processing_ms", result.ProcessingMS,
	)
	return result, nil
}

// GetResult returns a previously computed result by correlation id
func (c *Coordinator) GetResult(ctx context.Context, correlationID string) (*types.AICommandResult, error) {
	raw, ok := c.cache.Get(ctx, cache.ResultKey(correlationID))
	if !ok {
		return nil, apperrors.New(apperrors.CodeNotFound, "no result for correlation id").
			WithCorrelationID(correlationID)
	}
	var result types.AICommandResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, "stored result is corrupt", err)
	}
	return &result, nil
}

func validateCommand(cmd *types.AICommand) error {
	if cmd.TenantID == "" {
		return apperrors.Validation("tenant_id", "must not be empty")
	}
	if !cmd.TaskType.IsValid() {
		return apperrors.Validation("task_type", "unknown task type")
	}
	if cmd.PromptText == "" && cmd.TaskType != types.TaskValidate {
		return apperrors.Validation("prompt", "must not be empty")
	}
	if cmd.Complexity == "" {
		cmd.Complexity = types.ComplexityMedium
	}
	if cmd.Tier == "" {
		cmd.Tier = types.TierFree
	}
	return nil
}

// admit runs the rate limit and quota pre-checks
func (c *Coordinator) admit(ctx context.Context, cmd *types.AICommand) error {
	decision, err := c.limiter.Allow(ctx, cmd.TenantID, cmd.Tier)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, "rate limiter failed", err)
	}
	if !decision.Allowed {
		return apperrors.New(apperrors.CodeRateLimited, "tenant request rate exceeded").
			WithRetryAfter(decision.RetryAfter).
			WithContext("limit", decision.Limit)
	}

	for _, category := range usageCategories(cmd.TaskType) {
		quota, err := c.usage.CheckAllowed(ctx, cmd.TenantID, cmd.Tier, category, 1)
		if err != nil {
			return err
		}
		if !quota.Allowed {
			return apperrors.New(apperrors.CodeQuotaExceeded, quota.Reason).
				WithContext("category", string(category)).
				WithContext("limit", quota.Limit)
		}
	}
	return nil
}

// usageCategories lists the quota buckets a command draws from
func usageCategories(task types.TaskType) []types.UsageCategory {
	categories := []types.UsageCategory{types.UsageAIRequests}
	if task == types.TaskLayout {
		categories = append(categories, types.UsageLayoutGenerations)
	}
	return categories
}

// cachedResult returns a rebound cached result, or nil on miss
func (c *Coordinator) cachedResult(ctx context.Context, cmd *types.AICommand) *types.AICommandResult {
	raw, ok := c.cache.Get(ctx, cache.CommandKey(cmd))
	if !ok {
		return nil
	}
	var result types.AICommandResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.WarnContext(ctx, "dropping corrupt cache entry", "error", err.Error())
		c.cache.Delete(ctx, cache.CommandKey(cmd))
		return nil
	}
	// The cached payload belongs to whichever request computed it; the
	// response must carry this request's correlation id
	result.CorrelationID = cmd.CorrelationID
	c.logger.DebugContext(ctx, "cache hit", "task_type", string(cmd.TaskType))
	return &result
}

// execute runs selection, retrieval, assembly, dispatch and validation
func (c *Coordinator) execute(ctx context.Context, cmd *types.AICommand) (*types.AICommandResult, error) {
	selection, err := c.dispatcher.Choose(cmd)
	if err != nil {
		return c.fallbackResult(ctx, cmd, "no provider available for command"), nil
	}

	hits := c.retrieve(ctx, cmd)

	assembled, err := c.assembler.Assemble(cmd, hits, selection.Provider)
	if err != nil {
		if apperrors.IsInputError(err) {
			return nil, err
		}
		return c.fallbackResult(ctx, cmd, "prompt assembly failed"), nil
	}

	resp, err := c.dispatcher.Invoke(ctx, selection, &providers.InvokeRequest{
		System: assembled.System,
		Prompt: assembled.User,
	}, cmd.Complexity)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Wrap(apperrors.CodeNetworkTimeout, "command canceled", ctx.Err())
		}
		reason := "provider invocation failed"
		if errors.Is(err, providers.ErrProviderUnavailable) {
			reason = "provider unavailable"
		}
		return c.fallbackResult(ctx, cmd, reason), nil
	}

	profile := c.regions.Resolve(assembled.Region)
	artifact, report := c.validator.Validate(resp.ContentText, cmd, profile)
	if !report.IsValid {
		c.logger.WarnContext(ctx, "model output rejected",
			"provider", selection.Provider,
			"model", selection.Model,
			"errors", len(report.Errors),
		)
		result := c.fallbackResult(ctx, cmd, validationReason(report))
		result.ValidationReport = report
		return result, nil
	}

	confidence := report.ConfidenceScore
	return &types.AICommandResult{
		CorrelationID:       cmd.CorrelationID,
		Status:              types.StatusCompleted,
		Artifact:            artifact,
		Confidence:          confidence,
		RequiresHumanReview: confidence < c.validator.ReviewThreshold(),
		ModelUsed:           selection.Model,
		ProviderUsed:        selection.Provider,
		Warnings:            report.Warnings,
		ValidationReport:    report,
		TokensIn:            resp.TokensIn,
		TokensOut:           resp.TokensOut,
	}, nil
}

// validationReason names the failed validation stage so fallback
// warnings tell the caller what was wrong with the model output
func validationReason(report *types.ValidationReport) string {
	switch report.Stage {
	case types.StageExtraction:
		return "AI output invalid JSON"
	case types.StageSchema:
		return "AI output failed schema validation"
	default:
		return "AI output violated domain rules"
	}
}

// retrieve queries the document index; failures degrade to no passages
func (c *Coordinator) retrieve(ctx context.Context, cmd *types.AICommand) []types.SearchHit {
	if c.retriever == nil {
		return nil
	}
	filters := &types.SearchFilters{}
	if cmd.Language != "" {
		filters.Language = cmd.Language
	}
	hits, err := c.retriever.Query(ctx, cmd.PromptText, c.retrieval.TopK, filters)
	if err != nil {
		c.logger.WarnContext(ctx, "retrieval failed, assembling without passages", "error", err.Error())
		return nil
	}
	return hits
}

// fallbackResult produces the deterministic degraded result. Fallback
// output always requires human review.
func (c *Coordinator) fallbackResult(ctx context.Context, cmd *types.AICommand, reason string) *types.AICommandResult {
	artifact, confidence := c.fallback.Generate(cmd, reason)

	c.logger.WarnContext(ctx, "serving fallback result",
		"task_type", string(cmd.TaskType),
		"reason", reason,
	)
	return &types.AICommandResult{
		CorrelationID:       cmd.CorrelationID,
		Status:              types.StatusCompleted,
		Artifact:            artifact,
		Confidence:          confidence,
		RequiresHumanReview: true,
		ModelUsed:           fallbackModelName,
		FallbackUsed:        true,
		FallbackReason:      reason,
		Warnings:            []string{reason + "; using rule-based fallback"},
	}
}

// storeResult persists the result under its correlation id for GetResult
func (c *Coordinator) storeResult(ctx context.Context, result *types.AICommandResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to encode result", "error", err.Error())
		return
	}
	c.cache.Set(ctx, cache.ResultKey(result.CorrelationID), raw, c.cacheCfg.DefaultTTL, nil)
}

// cacheResult stores the shareable entry keyed by command semantics
func (c *Coordinator) cacheResult(ctx context.Context, cmd *types.AICommand, result *types.AICommandResult) {
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	tags := []string{cache.TenantTag(cmd.TenantID), cache.TierTag(cmd.Tier)}
	c.cache.Set(ctx, cache.CommandKey(cmd), raw, c.cacheCfg.DefaultTTL, tags)
}

func (c *Coordinator) recordUsage(ctx context.Context, cmd *types.AICommand, success bool, units int64) {
	for _, category := range usageCategories(cmd.TaskType) {
		record := &types.UsageRecord{
			TenantID:      cmd.TenantID,
			Category:      category,
			Units:         units,
			Success:       success,
			CorrelationID: cmd.CorrelationID,
		}
		if err := c.usage.Record(ctx, record); err != nil {
			c.logger.ErrorContext(ctx, "failed to record usage",
				"category", string(category), "error", err.Error())
		}
	}
}
