package providers

import (
	"context"
	"errors"
	"sync"
	"time"

	"planforge/internal/apperrors"
	"planforge/internal/circuitbreaker"
	"planforge/internal/config"
	"planforge/internal/logging"
	"planforge/internal/retry"
	"planforge/pkg/types"
)

// ErrProviderUnavailable signals that the selected provider cannot be
// called right now; the coordinator treats it as a fallback trigger
var ErrProviderUnavailable = errors.New("provider unavailable")

// Dispatcher executes provider calls with timeout, retry and per
// (provider, model) circuit breaking
type Dispatcher struct {
	registry *Registry
	config   *config.ProvidersConfig
	logger   logging.Logger

	mu       sync.Mutex
	breakers map[string]*circuitbreaker.CircuitBreaker
}

// NewDispatcher creates a dispatcher over a provider registry
func NewDispatcher(registry *Registry, cfg *config.ProvidersConfig, logger logging.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		config:   cfg,
		logger:   logger.WithComponent("providers.dispatcher"),
		breakers: make(map[string]*circuitbreaker.CircuitBreaker),
	}
}

// Choose delegates deterministic model selection to the registry
func (d *Dispatcher) Choose(cmd *types.AICommand) (Selection, error) {
	return d.registry.Choose(cmd)
}

// Invoke calls the selected provider. The total call, including
// retries, is bounded by the complexity timeout. A rejected call due to
// an open breaker returns ErrProviderUnavailable.
func (d *Dispatcher) Invoke(ctx context.Context, sel Selection, req *InvokeRequest, complexity types.Complexity) (*RawResponse, error) {
	provider, err := d.registry.Get(sel.Provider)
	if err != nil {
		return nil, err
	}
	req.Model = sel.Model

	ctx, cancel := context.WithTimeout(ctx, d.timeoutFor(complexity))
	defer cancel()

	breaker := d.breakerFor(sel)
	retrier := retry.New(&retry.Config{
		MaxAttempts:  d.config.MaxAttempts,
		InitialDelay: time.Duration(d.config.BackoffBaseMS) * time.Millisecond,
		MaxDelay:     time.Duration(d.config.BackoffCapMS) * time.Millisecond,
		Multiplier:   2.0,
		FullJitter:   true,
		RetryIf:      retry.DefaultRetryIf,
	})

	var resp *RawResponse
	result := retrier.Do(ctx, func(ctx context.Context) error {
		return breaker.Execute(ctx, func(ctx context.Context) error {
			var err error
			resp, err = provider.Invoke(ctx, req)
			return err
		})
	})

	if result.Err != nil {
		if errors.Is(result.Err, circuitbreaker.ErrCircuitOpen) ||
			errors.Is(result.Err, circuitbreaker.ErrTooManyProbes) {
			d.logger.WarnContext(ctx, "circuit open, short-circuiting",
				"provider", sel.Provider, "model", sel.Model)
			return nil, errors.Join(ErrProviderUnavailable,
				apperrors.New(apperrors.CodeModelUnavailable, "provider circuit open"))
		}
		d.logger.WarnContext(ctx, "provider invocation failed",
			"provider", sel.Provider,
			"model", sel.Model,
			"attempts", result.Attempts,
			"error", result.Err.Error(),
		)
		return nil, result.Err
	}

	d.logger.DebugContext(ctx, "provider invocation succeeded",
		"provider", sel.Provider,
		"model", sel.Model,
		"attempts", result.Attempts,
		"latency_ms", resp.RawLatencyMS,
	)
	return resp, nil
}

// timeoutFor maps complexity to the total call budget
func (d *Dispatcher) timeoutFor(complexity types.Complexity) time.Duration {
	if complexity == types.ComplexityHigh {
		return time.Duration(d.config.TimeoutHighSeconds) * time.Second
	}
	return time.Duration(d.config.TimeoutMediumSeconds) * time.Second
}

// breakerFor returns the circuit breaker keyed by provider and model
func (d *Dispatcher) breakerFor(sel Selection) *circuitbreaker.CircuitBreaker {
	key := sel.Provider + "/" + sel.Model
	d.mu.Lock()
	defer d.mu.Unlock()
	if cb, ok := d.breakers[key]; ok {
		return cb
	}
	cb := circuitbreaker.New(&circuitbreaker.Config{
		FailureThreshold: d.config.BreakerThreshold,
		FailureWindow:    time.Duration(d.config.BreakerWindowSeconds) * time.Second,
		SuccessThreshold: 1,
		Cooldown:         time.Duration(d.config.BreakerCooldownSecs) * time.Second,
		MaxProbes:        1,
		OnStateChange: func(from, to circuitbreaker.State) {
			d.logger.Warn("circuit state change",
				"provider", sel.Provider, "model", sel.Model,
				"from", from.String(), "to", to.String())
		},
	})
	d.breakers[key] = cb
	return cb
}

// BreakerStats exposes per (provider, model) breaker statistics
func (d *Dispatcher) BreakerStats() map[string]circuitbreaker.Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	stats := make(map[string]circuitbreaker.Stats, len(d.breakers))
	for key, cb := range d.breakers {
		stats[key] = cb.GetStats()
	}
	return stats
}
