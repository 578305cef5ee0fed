package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/internal/retry"
	"planforge/pkg/types"
)

func newTestRegistry() (*Registry, *MockProvider, *MockProvider) {
	premium := NewMockProvider("premium", "premium-large")
	lite := NewMockProvider("lite", "lite-small")
	registry := NewRegistry()
	registry.Register(premium, ClassPremiumComplex, "premium-large")
	registry.Register(lite, ClassRegionalLite, "lite-small")
	return registry, premium, lite
}

func TestChoose_SelectionTable(t *testing.T) {
	registry, _, _ := newTestRegistry()

	tests := []struct {
		name     string
		cmd      types.AICommand
		provider string
		model    string
	}{
		{
			name:     "analyze always premium",
			cmd:      types.AICommand{TaskType: types.TaskAnalyze, Complexity: types.ComplexitySimple},
			provider: "premium", model: "premium-large",
		},
		{
			name: "turkish building code goes regional",
			cmd: types.AICommand{
				TaskType: types.TaskLayout, Language: "tr",
				Context: map[string]interface{}{"document_type": "building_code"},
			},
			provider: "lite", model: "lite-small",
		},
		{
			name:     "cad format forces premium",
			cmd:      types.AICommand{TaskType: types.TaskLayout, FileFormat: "dwg", Complexity: types.ComplexitySimple},
			provider: "premium", model: "premium-large",
		},
		{
			name:     "high complexity forces premium",
			cmd:      types.AICommand{TaskType: types.TaskLayout, Complexity: types.ComplexityHigh},
			provider: "premium", model: "premium-large",
		},
		{
			name:     "simple goes regional for cost",
			cmd:      types.AICommand{TaskType: types.TaskLayout, Complexity: types.ComplexitySimple},
			provider: "lite", model: "lite-small",
		},
		{
			name:     "custom task goes regional",
			cmd:      types.AICommand{TaskType: types.TaskCustom, Complexity: types.ComplexityMedium},
			provider: "lite", model: "lite-small",
		},
		{
			name: "preferred provider honored when tier compatible",
			cmd: types.AICommand{
				TaskType: types.TaskLayout, Complexity: types.ComplexityMedium,
				Tier: types.TierProfessional, PreferredProvider: "lite",
			},
			provider: "lite", model: "lite-small",
		},
		{
			name:     "default is premium",
			cmd:      types.AICommand{TaskType: types.TaskLayout, Complexity: types.ComplexityMedium},
			provider: "premium", model: "premium-large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := registry.Choose(&tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, sel.Provider)
			assert.Equal(t, tt.model, sel.Model)

			// Determinism: same input, same selection
			again, err := registry.Choose(&tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, sel, again)
		})
	}
}

func testProvidersConfig() *config.ProvidersConfig {
	return &config.ProvidersConfig{
		ReviewThreshold:      0.7,
		TimeoutMediumSeconds: 5,
		TimeoutHighSeconds:   10,
		MaxAttempts:          3,
		BackoffBaseMS:        1,
		BackoffCapMS:         5,
		BreakerThreshold:     5,
		BreakerWindowSeconds: 60,
		BreakerCooldownSecs:  30,
	}
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	registry, premium, _ := newTestRegistry()
	premium.QueueError(&retry.TemporaryError{Err: errors.New("connection reset")})
	premium.QueueError(&retry.TemporaryError{Err: errors.New("connection reset")})

	dispatcher := NewDispatcher(registry, testProvidersConfig(), logging.NewNop())

	sel, err := registry.ForClass(ClassPremiumComplex)
	require.NoError(t, err)

	resp, err := dispatcher.Invoke(context.Background(), sel, &InvokeRequest{Prompt: "p"}, types.ComplexityMedium)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ContentText)
	assert.Equal(t, 3, premium.Calls())
}

func TestDispatcher_PermanentErrorNotRetried(t *testing.T) {
	registry, premium, _ := newTestRegistry()
	premium.QueueError(&retry.PermanentError{Err: errors.New("bad request")})

	dispatcher := NewDispatcher(registry, testProvidersConfig(), logging.NewNop())
	sel, _ := registry.ForClass(ClassPremiumComplex)

	_, err := dispatcher.Invoke(context.Background(), sel, &InvokeRequest{Prompt: "p"}, types.ComplexityMedium)
	require.Error(t, err)
	assert.Equal(t, 1, premium.Calls())
}

func TestDispatcher_CircuitOpensAfterThreshold(t *testing.T) {
	registry, premium, _ := newTestRegistry()
	cfg := testProvidersConfig()
	cfg.MaxAttempts = 1
	dispatcher := NewDispatcher(registry, cfg, logging.NewNop())
	sel, _ := registry.ForClass(ClassPremiumComplex)

	for i := 0; i < cfg.BreakerThreshold; i++ {
		premium.QueueError(&retry.TemporaryError{Err: errors.New("boom")})
		_, err := dispatcher.Invoke(context.Background(), sel, &InvokeRequest{Prompt: "p"}, types.ComplexityMedium)
		require.Error(t, err)
	}

	// Breaker is now open: the provider must not be called again
	callsBefore := premium.Calls()
	_, err := dispatcher.Invoke(context.Background(), sel, &InvokeRequest{Prompt: "p"}, types.ComplexityMedium)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Equal(t, callsBefore, premium.Calls())
}

func TestDispatcher_Cancellation(t *testing.T) {
	registry, premium, _ := newTestRegistry()
	premium.SetDelay(5 * time.Second)

	dispatcher := NewDispatcher(registry, testProvidersConfig(), logging.NewNop())
	sel, _ := registry.ForClass(ClassPremiumComplex)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := dispatcher.Invoke(ctx, sel, &InvokeRequest{Prompt: "p"}, types.ComplexityMedium)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation must abort the in-flight call")
}

func TestOpenAICompatProvider_Invoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"choices":[{"message":{"role":"assistant","content":"{\"confidence\":0.9}"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":12,"completion_tokens":7}
		}`))
	}))
	defer server.Close()

	provider := NewOpenAICompatProvider("premium", server.URL, "tok", []string{"m1"})
	resp, err := provider.Invoke(context.Background(), &InvokeRequest{
		System: "system", Prompt: "prompt", Model: "m1",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"confidence":0.9}`, resp.ContentText)
	assert.Equal(t, 12, resp.TokensIn)
	assert.Equal(t, 7, resp.TokensOut)
	assert.Equal(t, "stop", resp.FinishReason)
}

func TestVertexProvider_Invoke(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/projects/proj/locations/loc/publishers/google/models/lite-small:generateContent")
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[{"text":"{\"confidence\":"},{"text":"0.8}"}]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":20,"candidatesTokenCount":9}
		}`))
	}))
	defer server.Close()

	provider := NewVertexProvider("lite", server.URL, "proj", "loc", "tok", []string{"lite-small"})
	resp, err := provider.Invoke(context.Background(), &InvokeRequest{Prompt: "p", Model: "lite-small"})
	require.NoError(t, err)
	assert.Equal(t, `{"confidence":0.8}`, resp.ContentText)
	assert.Equal(t, 20, resp.TokensIn)
}

func TestStatusToError_Mapping(t *testing.T) {
	mk := func(status int, headers map[string]string) *http.Response {
		resp := &http.Response{StatusCode: status, Header: http.Header{}}
		for k, v := range headers {
			resp.Header.Set(k, v)
		}
		return resp
	}

	t.Run("429 carries retry-after", func(t *testing.T) {
		err := statusToError("p", mk(429, map[string]string{"Retry-After": "2"}), nil)
		var ra *retry.RetryAfterError
		require.ErrorAs(t, err, &ra)
		assert.Equal(t, 2*time.Second, ra.After)
	})

	t.Run("5xx is temporary", func(t *testing.T) {
		err := statusToError("p", mk(503, nil), nil)
		var te *retry.TemporaryError
		assert.ErrorAs(t, err, &te)
	})

	t.Run("4xx is permanent", func(t *testing.T) {
		err := statusToError("p", mk(400, nil), nil)
		var pe *retry.PermanentError
		assert.ErrorAs(t, err, &pe)
	})
}
