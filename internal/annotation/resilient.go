package annotation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/svannot/internal/variant"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/svannot/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/resilience"
)

// Resilient bounds every lookup of next with a timeout, retries transient
// failures and stops calling next while its circuit breaker is open.
type Resilient struct {
	next    Annotator
	backend string
	timeout time.Duration
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
}

func NewResilient(next Annotator, backend string, cfg config.AnnotationConfig, m *metrics.Metrics) *Resilient {
	return &Resilient{
		next:    next,
		backend: backend,
		timeout: cfg.Timeout,
		retry: resilience.RetryConfig{
			MaxAttempts: cfg.MaxAttempts,
			Retryable:   transient,
		},
		breaker: resilience.NewCircuitBreaker(backend, resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.FailureThreshold,
			ResetTimeout:     cfg.ResetTimeout,
			OnStateChange: func(name string, to resilience.State) {
				m.SetBreakerState(name, int(to))
			},
		}),
		metrics: m,
	}
}

// Breaker exposes the circuit breaker for health reporting.
func (r *Resilient) Breaker() *resilience.CircuitBreaker { return r.breaker }

func (r *Resilient) ClinVar(ctx context.Context, v *variant.Candidate) ([]variant.Significance, error) {
	var out []variant.Significance
	err := r.call(ctx, KindClinVar, func(ctx context.Context) error {
		var err error
		out, err = r.next.ClinVar(ctx, v)
		return err
	})
	return out, err
}

func (r *Resilient) Consequences(ctx context.Context, v *variant.Candidate) ([]variant.Consequence, error) {
	var out []variant.Consequence
	err := r.call(ctx, KindConsequence, func(ctx context.Context) error {
		var err error
		out, err = r.next.Consequences(ctx, v)
		return err
	})
	return out, err
}

func (r *Resilient) call(ctx context.Context, kind string, fn func(ctx context.Context) error) error {
	start := time.Now()
	name := r.backend + "." + kind
	err := resilience.Retry(ctx, name, r.retry, func() error {
		return r.breaker.Execute(func() error {
			return resilience.WithTimeout(ctx, r.timeout, name, fn)
		}, callerGaveUp(ctx))
	})
	r.metrics.ObserveLookup(r.backend, kind, time.Since(start), err)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen):
		return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", apperrors.ErrTimeout, err)
	default:
		return err
	}
}

// transient reports whether another attempt could succeed.
func transient(err error) bool {
	return !errors.Is(err, resilience.ErrCircuitOpen) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, apperrors.ErrInvalidInput)
}

// callerGaveUp keeps cancellations of the caller from tripping the breaker.
func callerGaveUp(ctx context.Context) func(error) bool {
	return func(error) bool { return ctx.Err() != nil }
}
