// Package circuitbreaker provides a circuit breaker with a windowed
// failure count and single-probe half-open state.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	// FailureThreshold is the number of consecutive failures within
	// FailureWindow before opening the circuit
	FailureThreshold int
	// FailureWindow bounds how long consecutive failures accumulate;
	// a failure outside the window restarts the count
	FailureWindow time.Duration
	// SuccessThreshold is the number of successes in half-open state
	// before closing
	SuccessThreshold int
	// Cooldown is how long the circuit stays open before admitting probes
	Cooldown time.Duration
	// MaxProbes limits concurrent requests in half-open state
	MaxProbes int
	// OnStateChange is called when the circuit state changes
	OnStateChange func(from, to State)
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		FailureWindow:    60 * time.Second,
		SuccessThreshold: 1,
		Cooldown:         30 * time.Second,
		MaxProbes:        1,
	}
}

// Errors
var (
	ErrCircuitOpen   = errors.New("circuit breaker is open")
	ErrTooManyProbes = errors.New("too many concurrent probes in half-open state")
)

// CircuitBreaker implements the circuit breaker pattern with atomic state
type CircuitBreaker struct {
	config *Config

	state           int32 // atomic State
	lastFailureTime int64 // unix nano
	openedAt        int64 // unix nano

	consecutiveFailures  int32
	consecutiveSuccesses int32
	halfOpenProbes       int32

	totalRequests   int64
	totalFailures   int64
	totalSuccesses  int64
	totalRejections int64
}

// New creates a new circuit breaker
func New(config *Config) *CircuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = 1
	}
	return &CircuitBreaker{
		config: config,
		state:  int32(StateClosed),
	}
}

// Execute runs the given function with circuit breaker protection
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.canExecute(); err != nil {
		atomic.AddInt64(&cb.totalRejections, 1)
		return err
	}

	atomic.AddInt64(&cb.totalRequests, 1)
	err := fn(ctx)
	cb.recordResult(err)
	return err
}

// canExecute checks whether a request may proceed
func (cb *CircuitBreaker) canExecute() error {
	switch cb.getState() {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.cooldownElapsed() {
			cb.transitionTo(StateHalfOpen)
			return cb.admitProbe()
		}
		return ErrCircuitOpen

	case StateHalfOpen:
		return cb.admitProbe()

	default:
		return fmt.Errorf("unknown circuit breaker state")
	}
}

func (cb *CircuitBreaker) admitProbe() error {
	current := atomic.AddInt32(&cb.halfOpenProbes, 1)
	if current > int32(cb.config.MaxProbes) {
		atomic.AddInt32(&cb.halfOpenProbes, -1)
		return ErrTooManyProbes
	}
	return nil
}

func (cb *CircuitBreaker) recordResult(err error) {
	state := cb.getState()

	if err != nil {
		cb.recordFailure()
	} else {
		cb.recordSuccess()
	}

	if state == StateHalfOpen {
		atomic.AddInt32(&cb.halfOpenProbes, -1)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	atomic.AddInt64(&cb.totalSuccesses, 1)

	switch cb.getState() {
	case StateClosed:
		atomic.StoreInt32(&cb.consecutiveFailures, 0)
	case StateHalfOpen:
		successes := atomic.AddInt32(&cb.consecutiveSuccesses, 1)
		if successes >= int32(cb.config.SuccessThreshold) {
			cb.transitionTo(StateClosed)
		}
	case StateOpen:
		// State transitions out of open only via cooldown
	}
}

func (cb *CircuitBreaker) recordFailure() {
	atomic.AddInt64(&cb.totalFailures, 1)

	now := time.Now().UnixNano()
	last := atomic.SwapInt64(&cb.lastFailureTime, now)

	switch cb.getState() {
	case StateClosed:
		// Failures only count as consecutive within the window
		if cb.config.FailureWindow > 0 && last > 0 &&
			now-last > int64(cb.config.FailureWindow) {
			atomic.StoreInt32(&cb.consecutiveFailures, 0)
		}
		failures := atomic.AddInt32(&cb.consecutiveFailures, 1)
		if failures >= int32(cb.config.FailureThreshold) {
			cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		// Any failed probe reopens the circuit
		cb.transitionTo(StateOpen)
	case StateOpen:
	}
}

func (cb *CircuitBreaker) cooldownElapsed() bool {
	openedAt := atomic.LoadInt64(&cb.openedAt)
	if openedAt == 0 {
		return true
	}
	return time.Since(time.Unix(0, openedAt)) >= cb.config.Cooldown
}

func (cb *CircuitBreaker) transitionTo(newState State) {
	oldState := State(atomic.SwapInt32(&cb.state, int32(newState)))
	if oldState == newState {
		return
	}

	switch newState {
	case StateClosed:
		atomic.StoreInt32(&cb.consecutiveFailures, 0)
		atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
	case StateOpen:
		atomic.StoreInt64(&cb.openedAt, time.Now().UnixNano())
		atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
	case StateHalfOpen:
		atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
		atomic.StoreInt32(&cb.halfOpenProbes, 0)
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, newState)
	}
}

func (cb *CircuitBreaker) getState() State {
	return State(atomic.LoadInt32(&cb.state))
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() State {
	return cb.getState()
}

// Stats holds circuit breaker statistics
type Stats struct {
	State           State
	TotalRequests   int64
	TotalFailures   int64
	TotalSuccesses  int64
	TotalRejections int64
	FailureRate     float64
}

// GetStats returns current statistics
func (cb *CircuitBreaker) GetStats() Stats {
	requests := atomic.LoadInt64(&cb.totalRequests)
	failures := atomic.LoadInt64(&cb.totalFailures)

	var failureRate float64
	if requests > 0 {
		failureRate = float64(failures) / float64(requests)
	}

	return Stats{
		State:           cb.getState(),
		TotalRequests:   requests,
		TotalFailures:   failures,
		TotalSuccesses:  atomic.LoadInt64(&cb.totalSuccesses),
		TotalRejections: atomic.LoadInt64(&cb.totalRejections),
		FailureRate:     failureRate,
	}
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.consecutiveFailures, 0)
	atomic.StoreInt32(&cb.consecutiveSuccesses, 0)
	atomic.StoreInt32(&cb.halfOpenProbes, 0)
	atomic.StoreInt64(&cb.lastFailureTime, 0)
	atomic.StoreInt64(&cb.openedAt, 0)
}
