package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn under a deadline of timeout and waits for it; fn must
// honour its context. When the deadline, not the caller, ended the call the
// error wraps context.DeadlineExceeded whatever fn returned. A timeout of
// zero or less runs fn with ctx unchanged.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := fn(callCtx)
	switch {
	case err == nil:
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s: caller gave up: %w", name, ctx.Err())
	case errors.Is(callCtx.Err(), context.DeadlineExceeded):
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: no answer within %v: %w", name, timeout, err)
		}
		return fmt.Errorf("%s: no answer within %v: %w (%v)", name, timeout, context.DeadlineExceeded, err)
	default:
		return err
	}
}
