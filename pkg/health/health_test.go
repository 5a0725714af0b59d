package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/svannot/pkg/resilience"
)

func up(context.Context) ComponentHealth { return ComponentHealth{Status: StatusUp} }

func TestRunAggregatesWorstStatus(t *testing.T) {
	c := NewChecker()
	c.Register("bundles", up)
	assert.Equal(t, StatusUp, c.Run(context.Background()).Status)

	c.Register("genes", RecordsCheck(func() int { return 0 }))
	assert.Equal(t, StatusDegraded, c.Run(context.Background()).Status)

	c.Register("postgres", PingCheck(func(context.Context) error { return errors.New("refused") }))
	report := c.Run(context.Background())
	assert.Equal(t, StatusDown, report.Status)
	assert.Equal(t, "refused", report.Components["postgres"].Message)
	assert.Len(t, report.Components, 3)
}

func TestBreakerCheck(t *testing.T) {
	cb := resilience.NewCircuitBreaker("annotator", resilience.CircuitBreakerConfig{FailureThreshold: 1})
	check := BreakerCheck(cb)
	assert.Equal(t, StatusUp, check(context.Background()).Status)

	_ = cb.Execute(func() error { return errors.New("boom") }, nil)
	assert.Equal(t, StatusDown, check(context.Background()).Status)
}

func TestRecordsCheck(t *testing.T) {
	got := RecordsCheck(func() int { return 42 })(context.Background())
	assert.Equal(t, StatusUp, got.Status)
	assert.Equal(t, "42 records", got.Message)
}

func TestHandlers(t *testing.T) {
	c := NewChecker()
	c.Register("bundles", up)

	rec := httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, StatusUp, report.Status)

	c.Register("redis", PingCheck(func(context.Context) error { return errors.New("timeout") }))
	rec = httptest.NewRecorder()
	c.ReadyHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	c.LiveHandler()(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alive")
}
