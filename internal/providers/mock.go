package providers

import (
	"context"
	"sync"
	"time"

	"planforge/pkg/types"
)

// MockProvider is a scriptable in-process provider used in tests and
// local development without credentials
type MockProvider struct {
	name   string
	models []string

	mu        sync.Mutex
	responses []mockResult
	calls     int
	delay     time.Duration
}

type mockResult struct {
	resp *RawResponse
	err  error
}

// NewMockProvider creates a mock provider
func NewMockProvider(name string, models ...string) *MockProvider {
	if len(models) == 0 {
		models = []string{"mock-model"}
	}
	return &MockProvider{name: name, models: models}
}

// QueueResponse scripts the next successful response
func (m *MockProvider) QueueResponse(resp *RawResponse) {
	m.mu.Lock()
	m.responses = append(m.responses, mockResult{resp: resp})
	m.mu.Unlock()
}

// QueueError scripts the next failure
func (m *MockProvider) QueueError(err error) {
	m.mu.Lock()
	m.responses = append(m.responses, mockResult{err: err})
	m.mu.Unlock()
}

// SetDelay makes every call block, for cancellation tests
func (m *MockProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	m.delay = d
	m.mu.Unlock()
}

// Calls returns how many times Invoke ran
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *MockProvider) Name() string                            { return m.name }
func (m *MockProvider) Models() []string                        { return m.models }
func (m *MockProvider) SupportsTier(types.SubscriptionTier) bool { return true }

// Invoke returns the next scripted result, or a canned valid layout
// response when nothing is scripted
func (m *MockProvider) Invoke(ctx context.Context, req *InvokeRequest) (*RawResponse, error) {
	m.mu.Lock()
	m.calls++
	delay := m.delay
	var next *mockResult
	if len(m.responses) > 0 {
		next = &m.responses[0]
		m.responses = m.responses[1:]
	}
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if next != nil {
		if next.err != nil {
			return nil, next.err
		}
		return next.resp, nil
	}

	return &RawResponse{
		ContentText:  `{"rooms":[],"walls":[],"doors":[],"windows":[],"confidence":0.9}`,
		TokensIn:     100,
		TokensOut:    50,
		FinishReason: "stop",
		RawLatencyMS: 1,
	}, nil
}
