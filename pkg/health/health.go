// Package health runs registered dependency checks concurrently and serves
// the aggregate as liveness and readiness probes. Besides plain ping checks
// it reports loaded database bundles and annotator circuit breakers.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/resilience"
)

// Status represents the health state of a component or the system overall.
type Status string

const (
	StatusUp       Status = "up"
	StatusDown     Status = "down"
	StatusDegraded Status = "degraded"
)

// Check is a function that probes a single dependency and returns its status.
type Check func(ctx context.Context) ComponentHealth

// ComponentHealth holds the result of a single component check.
type ComponentHealth struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Report is the aggregated result of all component checks.
type Report struct {
	Status     Status                     `json:"status"`
	Components map[string]ComponentHealth `json:"components"`
	Timestamp  string                     `json:"timestamp"`
}

// Checker manages registered health checks and runs them concurrently.
type Checker struct {
	checks map[string]Check
	mu     sync.RWMutex
	logger *slog.Logger
}

// NewChecker creates an empty Checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]Check),
		logger: slog.Default().With("component", "health"),
	}
}

// Register adds a named health check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Run executes all registered checks concurrently and returns an aggregated
// Report. The overall status is the worst status among all components.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()
	report := Report{
		Status:     StatusUp,
		Components: make(map[string]ComponentHealth, len(checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, check := range checks {
		wg.Go(func() {
			start := time.Now()
			result := check(ctx)
			result.Latency = time.Since(start).Round(time.Millisecond).String()
			mu.Lock()
			report.Components[name] = result
			mu.Unlock()
		})
	}
	wg.Wait()
	for name, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
			c.logger.Warn("component down", "name", name, "message", comp.Message)
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// PingCheck reports down when ping fails.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) ComponentHealth {
		if err := ping(ctx); err != nil {
			return ComponentHealth{Status: StatusDown, Message: err.Error()}
		}
		return ComponentHealth{Status: StatusUp}
	}
}

// BreakerCheck reports an open circuit as down and a half-open one as
// degraded.
func BreakerCheck(cb *resilience.CircuitBreaker) Check {
	return func(context.Context) ComponentHealth {
		switch st := cb.State(); st {
		case resilience.StateOpen:
			return ComponentHealth{Status: StatusDown, Message: "circuit " + st.String()}
		case resilience.StateHalfOpen:
			return ComponentHealth{Status: StatusDegraded, Message: "circuit " + st.String()}
		default:
			return ComponentHealth{Status: StatusUp}
		}
	}
}

// RecordsCheck reports a database bundle up once it holds records.
func RecordsCheck(count func() int) Check {
	return func(context.Context) ComponentHealth {
		n := count()
		if n == 0 {
			return ComponentHealth{Status: StatusDegraded, Message: "no records loaded"}
		}
		return ComponentHealth{Status: StatusUp, Message: fmt.Sprintf("%d records", n)}
	}
}

// LiveHandler always answers 200 while the process serves requests.
func (c *Checker) LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
		})
	}
}

// ReadyHandler answers 200 only while every component is up.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		report := c.Run(ctx)
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUp {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
