package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"planforge/internal/apperrors"
	"planforge/internal/retry"
	"planforge/pkg/types"
)

// OpenAICompatProvider speaks the OpenAI chat completions wire format,
// used for the premium-complex model family
type OpenAICompatProvider struct {
	name       string
	baseURL    string
	token      string
	models     []string
	httpClient *http.Client
}

// NewOpenAICompatProvider creates a chat-completions provider
func NewOpenAICompatProvider(name, baseURL, token string, models []string) *OpenAICompatProvider {
	return &OpenAICompatProvider{
		name:    name,
		baseURL: baseURL,
		token:   token,
		models:  models,
		// Per-call deadlines come from the dispatcher context
		httpClient: &http.Client{},
	}
}

func (p *OpenAICompatProvider) Name() string     { return p.name }
func (p *OpenAICompatProvider) Models() []string { return p.models }

// SupportsTier: the premium family is paid-tier only
func (p *OpenAICompatProvider) SupportsTier(tier types.SubscriptionTier) bool {
	return tier != types.TierFree
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Invoke executes a chat completion call
func (p *OpenAICompatProvider) Invoke(ctx context.Context, req *InvokeRequest) (*RawResponse, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.token)
	}

	start := time.Now()
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retry.TemporaryError{Err: apperrors.Wrap(apperrors.CodeNetworkFailure,
			fmt.Sprintf("provider %s request failed", p.name), err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, &retry.TemporaryError{Err: fmt.Errorf("failed to read provider response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(p.name, resp, body)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOutputInvalid,
			fmt.Sprintf("provider %s returned malformed JSON", p.name), err)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperrors.New(apperrors.CodeOutputInvalid,
			fmt.Sprintf("provider %s returned no choices", p.name))
	}

	return &RawResponse{
		ContentText:  parsed.Choices[0].Message.Content,
		TokensIn:     parsed.Usage.PromptTokens,
		TokensOut:    parsed.Usage.CompletionTokens,
		FinishReason: parsed.Choices[0].FinishReason,
		RawLatencyMS: time.Since(start).Milliseconds(),
	}, nil
}

// statusToError maps HTTP failures to retryable or permanent errors.
// 5xx and 429 are transient; other 4xx are permanent.
func statusToError(provider string, resp *http.Response, body []byte) error {
	msg := fmt.Sprintf("provider %s returned status %d", provider, resp.StatusCode)
	var parsed chatResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
		msg = fmt.Sprintf("%s: %s", msg, parsed.Error.Message)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		after := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			after, _ = strconv.Atoi(v)
		}
		return &retry.RetryAfterError{
			Err:   apperrors.New(apperrors.CodeRateLimited, msg),
			After: time.Duration(after) * time.Second,
		}
	case resp.StatusCode >= 500:
		return &retry.TemporaryError{Err: apperrors.New(apperrors.CodeModelUnavailable, msg)}
	default:
		return &retry.PermanentError{Err: apperrors.New(apperrors.CodeModelUnavailable, msg)}
	}
}
