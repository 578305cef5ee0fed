// Package types defines the shared domain types for the planforge
// orchestration service: AI commands and results, structured artifacts,
// document chunks, workflow projects and usage records.
package types

import (
	"time"
)

// TaskType identifies the kind of structured artifact a command produces
type TaskType string

const (
	TaskLayout   TaskType = "layout"
	TaskRoom     TaskType = "room"
	TaskValidate TaskType = "validate"
	TaskAnalyze  TaskType = "analyze"
	TaskCustom   TaskType = "custom"
)

// IsValid reports whether the task type is one of the known values
func (t TaskType) IsValid() bool {
	switch t {
	case TaskLayout, TaskRoom, TaskValidate, TaskAnalyze, TaskCustom:
		return true
	default:
		return false
	}
}

// Complexity classifies how demanding a command is for model selection
// and timeout budgeting
type Complexity string

const (
	ComplexitySimple Complexity = "simple"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// SubscriptionTier controls per-category quotas and model access
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "FREE"
	TierStarter      SubscriptionTier = "STARTER"
	TierProfessional SubscriptionTier = "PROFESSIONAL"
	TierEnterprise   SubscriptionTier = "ENTERPRISE"
)

// CommandStatus is the terminal status of a processed command
type CommandStatus string

const (
	StatusCompleted CommandStatus = "completed"
	StatusFailed    CommandStatus = "failed"
)

// AICommand is a single orchestration request. The coordinator owns its
// lifetime from admission to the terminal result.
type AICommand struct {
	CorrelationID string                 `json:"correlation_id"`
	TenantID      string                 `json:"tenant_id"`
	Tier          SubscriptionTier       `json:"subscription_tier"`
	TaskType      TaskType               `json:"task_type"`
	Locale        string                 `json:"locale"`
	PromptText    string                 `json:"prompt"`
	Context       map[string]interface{} `json:"context,omitempty"`
	Complexity    Complexity             `json:"complexity"`
	FileFormat    string                 `json:"file_format,omitempty"`
	Language      string                 `json:"language,omitempty"`
	// PreferredProvider is an optional user override, honored only when
	// the provider is compatible with the tenant's tier.
	PreferredProvider string    `json:"preferred_provider,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ValidationStage identifies the check that rejected model output
type ValidationStage string

const (
	StageExtraction ValidationStage = "extraction"
	StageSchema     ValidationStage = "schema"
	StageDomain     ValidationStage = "domain_rules"
)

// ValidationReport is the outcome of structural, schema and domain-rule
// validation of model output. Errors reject the output; warnings travel
// with the result. Stage is set when the output was rejected.
type ValidationReport struct {
	Errors          []string        `json:"errors"`
	Warnings        []string        `json:"warnings"`
	IsValid         bool            `json:"is_valid"`
	Stage           ValidationStage `json:"stage,omitempty"`
	ConfidenceScore float64         `json:"confidence_score"`
}

// AICommandResult is the terminal result of a command.
//
// Invariants: FallbackUsed implies RequiresHumanReview, and any confidence
// below the configured review threshold implies RequiresHumanReview.
type AICommandResult struct {
	CorrelationID       string            `json:"correlation_id"`
	Status              CommandStatus     `json:"status"`
	Artifact            interface{}       `json:"artifact,omitempty"`
	Confidence          float64           `json:"confidence"`
	RequiresHumanReview bool              `json:"requires_human_review"`
	ModelUsed           string            `json:"model_used,omitempty"`
	ProviderUsed        string            `json:"provider_used,omitempty"`
	FallbackUsed        bool              `json:"fallback_used"`
	FallbackReason      string            `json:"fallback_reason,omitempty"`
	Warnings            []string          `json:"warnings,omitempty"`
	ValidationReport    *ValidationReport `json:"validation_report,omitempty"`
	ProcessingMS        int64             `json:"processing_ms"`
	TokensIn            int               `json:"tokens_in,omitempty"`
	TokensOut           int               `json:"tokens_out,omitempty"`
}
