package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"planforge/internal/apperrors"
	"planforge/internal/retry"
	"planforge/pkg/types"
)

// VertexProvider calls a Vertex-style generateContent endpoint, used
// for the regional-lite model family
type VertexProvider struct {
	name       string
	baseURL    string
	projectID  string
	location   string
	token      string
	models     []string
	httpClient *http.Client
}

// NewVertexProvider creates a Vertex-style provider. When baseURL is
// empty the standard regional endpoint is derived from the location.
func NewVertexProvider(name, baseURL, projectID, location, token string, models []string) *VertexProvider {
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com/v1", location)
	}
	return &VertexProvider{
		name:       name,
		baseURL:    baseURL,
		projectID:  projectID,
		location:   location,
		token:      token,
		models:     models,
		httpClient: &http.Client{},
	}
}

func (p *VertexProvider) Name() string     { return p.name }
func (p *VertexProvider) Models() []string { return p.models }

// SupportsTier: the lite family is available on every tier
func (p *VertexProvider) SupportsTier(types.SubscriptionTier) bool { return true }

type vertexRequest struct {
	Contents []vertexContent `json:"contents"`
	SystemInstruction *vertexContent `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
		Temperature     float64 `json:"temperature,omitempty"`
	} `json:"generationConfig"`
}

type vertexContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []vertexPart `json:"parts"`
}

type vertexPart struct {
	Text string `json:"text"`
}

type vertexResponse struct {
	Candidates []struct {
		Content      vertexContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Invoke executes a generateContent call
func (p *VertexProvider) Invoke(ctx context.Context, req *InvokeRequest) (*RawResponse, error) {
	var body vertexRequest
	if req.System != "" {
		body.SystemInstruction = &vertexContent{Parts: []vertexPart{{Text: req.System}}}
	}
	body.Contents = []vertexContent{{Role: "user", Parts: []vertexPart{{Text: req.Prompt}}}}
	body.GenerationConfig.MaxOutputTokens = req.MaxTokens
	body.GenerationConfig.Temperature = req.Temperature

	payload, err := json.Marshal(&body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vertex request: %w", err)
	}

	url := fmt.Sprintf("%s/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		p.baseURL, p.projectID, p.location, req.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build vertex request: %w", err)
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

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, &retry.TemporaryError{Err: fmt.Errorf("failed to read provider response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusToError(p.name, resp, raw)
	}

	var parsed vertexResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeOutputInvalid,
			fmt.Sprintf("provider %s returned malformed JSON", p.name), err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, apperrors.New(apperrors.CodeOutputInvalid,
			fmt.Sprintf("provider %s returned no candidates", p.name))
	}

	text := ""
	for _, part := range parsed.Candidates[0].Content.Parts {
		text += part.Text
	}

	return &RawResponse{
		ContentText:  text,
		TokensIn:     parsed.UsageMetadata.PromptTokenCount,
		TokensOut:    parsed.UsageMetadata.CandidatesTokenCount,
		FinishReason: parsed.Candidates[0].FinishReason,
		RawLatencyMS: time.Since(start).Milliseconds(),
	}, nil
}
