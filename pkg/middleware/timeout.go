package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/logger"
)

// Timeout answers 504 when the handler has written nothing within timeout.
// The handler sees the deadline through its request context; its writes
// after the 504 fail with http.ErrHandlerTimeout.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			done := make(chan struct{})
			tw := &timeoutWriter{ResponseWriter: w}
			go func() {
				next.ServeHTTP(tw, r.WithContext(ctx))
				close(done)
			}()
			select {
			case <-done:
			case <-ctx.Done():
				if tw.expire() {
					logger.FromContext(r.Context()).Warn("request timed out", "method", r.Method, "path", r.URL.Path, "timeout", timeout)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					_, _ = w.Write([]byte(`{"error":"request timeout"}` + "\n"))
				}
			}
		})
	}
}

type timeoutWriter struct {
	http.ResponseWriter
	mu       sync.Mutex
	written  bool
	timedOut bool
}

// expire marks the writer timed out unless the handler already started the
// response.
func (tw *timeoutWriter) expire() bool {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.written {
		return false
	}
	tw.timedOut = true
	return true
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return
	}
	tw.written = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	tw.written = true
	return tw.ResponseWriter.Write(b)
}
