// Package resilience guards calls to external annotation backends with a
// circuit breaker, jittered exponential retry and a per-call timeout.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the phase of a circuit breaker.
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

// CircuitBreakerConfig controls failure thresholds and recovery timing.
// OnStateChange, if set, is called with the lock held after every
// transition and must not call back into the breaker.
type CircuitBreakerConfig struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	HalfOpenMaxRequests int
	OnStateChange       func(name string, to State)
}

func defaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold:    5,
		ResetTimeout:        30 * time.Second,
		HalfOpenMaxRequests: 1,
	}
}

// CircuitBreaker opens after FailureThreshold consecutive failures. Once
// ResetTimeout has elapsed it lets up to HalfOpenMaxRequests probes through;
// a successful probe closes it again, a failed one reopens it.
type CircuitBreaker struct {
	name   string
	cfg    CircuitBreakerConfig
	logger *slog.Logger
	now    func() time.Time

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	openedAt            time.Time
	halfOpenRequests    int
}

// NewCircuitBreaker fills zero config values with defaults.
func NewCircuitBreaker(name string, cfg CircuitBreakerConfig) *CircuitBreaker {
	defaults := defaultCBConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = defaults.ResetTimeout
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = defaults.HalfOpenMaxRequests
	}
	return &CircuitBreaker{
		name:   name,
		cfg:    cfg,
		state:  StateClosed,
		now:    time.Now,
		logger: slog.Default().With("component", "circuit-breaker", "name", name),
	}
}

func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn if the circuit allows it and records the outcome. Errors
// for which ignore returns true count as successes; a nil ignore counts
// every error.
func (cb *CircuitBreaker) Execute(fn func() error, ignore func(error) bool) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	cb.afterRequest(err != nil && (ignore == nil || !ignore(err)))
	return err
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.state {
	case StateOpen:
		elapsed := cb.now().Sub(cb.openedAt)
		if elapsed < cb.cfg.ResetTimeout {
			return fmt.Errorf("%w: %s (retry after %v)", ErrCircuitOpen, cb.name, cb.cfg.ResetTimeout-elapsed)
		}
		cb.transition(StateHalfOpen)
		cb.halfOpenRequests = 1
		return nil
	case StateHalfOpen:
		if cb.halfOpenRequests >= cb.cfg.HalfOpenMaxRequests {
			return fmt.Errorf("%w: %s (half-open probe limit reached)", ErrCircuitOpen, cb.name)
		}
		cb.halfOpenRequests++
	}
	return nil
}

func (cb *CircuitBreaker) afterRequest(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if !failed {
		cb.consecutiveFailures = 0
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		return
	}
	cb.consecutiveFailures++
	switch cb.state {
	case StateClosed:
		if cb.consecutiveFailures >= cb.cfg.FailureThreshold {
			cb.open()
		}
	case StateHalfOpen:
		cb.open()
	}
}

func (cb *CircuitBreaker) open() {
	cb.openedAt = cb.now()
	cb.logger.Warn("circuit opened", "consecutive_failures", cb.consecutiveFailures, "threshold", cb.cfg.FailureThreshold)
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	cb.logger.Info("circuit state change", "from", cb.state, "to", to)
	cb.state = to
	if to != StateHalfOpen {
		cb.halfOpenRequests = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.name, to)
	}
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.consecutiveFailures = 0
	cb.transition(StateClosed)
}
