package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"planforge/internal/apperrors"
	"planforge/internal/config"
	"planforge/internal/retry"
)

// RemoteEmbedder calls an OpenAI-compatible /embeddings endpoint
type RemoteEmbedder struct {
	config     *config.EmbeddingConfig
	httpClient *http.Client
}

// NewRemoteEmbedder creates a remote embedding client
func NewRemoteEmbedder(cfg *config.EmbeddingConfig) *RemoteEmbedder {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RemoteEmbedder{
		config:     cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// GenerateEmbedding generates an embedding for a single text
func (r *RemoteEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}
	vectors, err := r.GenerateBatchEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// GenerateBatchEmbeddings generates embeddings for multiple texts in one call
func (r *RemoteEmbedder) GenerateBatchEmbeddings(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	payload, err := json.Marshal(embeddingRequest{
		Input:      texts,
		Model:      r.config.Model,
		Dimensions: r.config.Dimension,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.BaseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retry.TemporaryError{Err: apperrors.Wrap(apperrors.CodeNetworkTimeout, "embedding request failed", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &retry.TemporaryError{Err: fmt.Errorf("failed to read embedding response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, r.statusError(resp, body)
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors, expected %d", len(parsed.Data), len(texts))
	}

	// The API may return vectors out of order
	vectors := make([][]float64, len(texts))
	for _, item := range parsed.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding response index %d out of range", item.Index)
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// statusError maps HTTP failures to retryable or permanent errors
func (r *RemoteEmbedder) statusError(resp *http.Response, body []byte) error {
	var parsed embeddingResponse
	msg := fmt.Sprintf("embedding API returned status %d", resp.StatusCode)
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
		return &retry.PermanentError{Err: apperrors.New(apperrors.CodeOutputInvalid, msg)}
	}
}

// GetDimension returns the configured embedding dimension
func (r *RemoteEmbedder) GetDimension() int { return r.config.Dimension }

// GetModel returns the remote model name
func (r *RemoteEmbedder) GetModel() string { return r.config.Model }

// HealthCheck probes the endpoint with a minimal request
func (r *RemoteEmbedder) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := r.GenerateEmbedding(ctx, "health check")
	return err
}
