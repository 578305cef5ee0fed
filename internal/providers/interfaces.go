// Package providers dispatches prompts to AI model backends with
// deterministic model selection, timeouts, retry and circuit breaking.
package providers

import (
	"context"

	"planforge/pkg/types"
)

// Model classes referenced by the selection table
const (
	ClassPremiumComplex = "premium-complex"
	ClassRegionalLite   = "regional-lite"
)

// InvokeRequest is a provider-agnostic generation request
type InvokeRequest struct {
	System      string
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float64
}

// RawResponse is the unvalidated provider output
type RawResponse struct {
	ContentText  string `json:"content_text"`
	TokensIn     int    `json:"tokens_in"`
	TokensOut    int    `json:"tokens_out"`
	FinishReason string `json:"finish_reason"`
	RawLatencyMS int64  `json:"raw_latency_ms"`
}

// Provider is one AI backend
type Provider interface {
	// Name is the stable provider identifier
	Name() string

	// Models lists the model ids this provider serves
	Models() []string

	// SupportsTier reports whether a subscription tier may use this provider
	SupportsTier(tier types.SubscriptionTier) bool

	// Invoke executes a generation call. It honors ctx cancellation and
	// returns a typed error on failure.
	Invoke(ctx context.Context, req *InvokeRequest) (*RawResponse, error)
}

// Selection is the outcome of model selection for one command
type Selection struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Class    string `json:"class"`
	Reason   string `json:"reason"`
}
