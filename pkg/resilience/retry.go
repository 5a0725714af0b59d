package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// RetryConfig is an exponential backoff schedule. Zero fields take the
// defaults of 3 attempts starting at 100ms, doubling up to 10s with 10%
// jitter. Retryable, if set, decides whether an error is worth another
// attempt; by default every error is.
type RetryConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
	Retryable      func(error) bool
}

func (cfg RetryConfig) withDefaults() RetryConfig {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	if cfg.JitterFraction <= 0 || cfg.JitterFraction >= 1 {
		cfg.JitterFraction = 0.1
	}
	return cfg
}

// delay is the pause after the given failed attempt, counting from 1.
func (cfg RetryConfig) delay(attempt int) time.Duration {
	d := float64(cfg.InitialDelay)
	for i := 1; i < attempt && d < float64(cfg.MaxDelay); i++ {
		d *= cfg.Multiplier
	}
	d *= 1 + cfg.JitterFraction*(2*rand.Float64()-1)
	return min(time.Duration(d), cfg.MaxDelay)
}

// Retry calls fn until it succeeds or returns a non-retryable error, ctx is
// done or the attempts run out. The last error of fn is wrapped in the
// result.
func Retry(ctx context.Context, name string, cfg RetryConfig, fn func() error) error {
	cfg = cfg.withDefaults()
	var log *slog.Logger
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if log != nil {
				log.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if cfg.Retryable != nil && !cfg.Retryable(err) {
			return err
		}
		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%s abandoned after attempt %d: %w", name, attempt, ctx.Err())
		}

		wait := cfg.delay(attempt)
		if log == nil {
			log = slog.Default().With("component", "retry", "operation", name)
		}
		log.Warn("attempt failed", "attempt", attempt, "max_attempts", cfg.MaxAttempts, "next_delay", wait, "error", err)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s abandoned during backoff: %w", name, ctx.Err())
		}
	}
}
