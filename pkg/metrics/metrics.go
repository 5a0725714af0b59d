// Package metrics defines the Prometheus collectors of the annotation engine
// and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	BundleLoadDuration   *prometheus.HistogramVec
	BundleRecords        *prometheus.GaugeVec
	OverlapQueriesTotal  *prometheus.CounterVec
	FilterVerdictsTotal  *prometheus.CounterVec
	VariantsTotal        *prometheus.CounterVec
	AnnotatorLookups     *prometheus.CounterVec
	AnnotatorLatency     *prometheus.HistogramVec
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	CircuitBreakerState  *prometheus.GaugeVec
}

// New creates the collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the collectors and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		BundleLoadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svannot_bundle_load_seconds",
				Help:    "Time to load and index one database bundle.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"bundle"},
		),
		BundleRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "svannot_bundle_records",
				Help: "Number of records indexed per database bundle.",
			},
			[]string{"bundle"},
		),
		OverlapQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svannot_overlap_queries_total",
				Help: "Overlap queries per bundle and outcome (hit, miss, skipped).",
			},
			[]string{"bundle", "outcome"},
		),
		FilterVerdictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svannot_filter_verdicts_total",
				Help: "Filter evaluations by filter and result.",
			},
			[]string{"filter", "result"},
		),
		VariantsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svannot_variants_total",
				Help: "Candidate variants by final verdict (pass, fail, error).",
			},
			[]string{"verdict"},
		),
		AnnotatorLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "svannot_annotator_lookups_total",
				Help: "Annotation lookups by backend, kind and result.",
			},
			[]string{"backend", "kind", "result"},
		),
		AnnotatorLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "svannot_annotator_latency_seconds",
				Help:    "Annotation lookup latency in seconds.",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
			},
			[]string{"backend"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "svannot_annotation_cache_hits_total",
				Help: "Total number of annotation cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "svannot_annotation_cache_misses_total",
				Help: "Total number of annotation cache misses.",
			},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.BundleLoadDuration,
		m.BundleRecords,
		m.OverlapQueriesTotal,
		m.FilterVerdictsTotal,
		m.VariantsTotal,
		m.AnnotatorLookups,
		m.AnnotatorLatency,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CircuitBreakerState,
	)

	return m
}

func (m *Metrics) ObserveBundleLoad(bundle string, d time.Duration, records int) {
	if m == nil {
		return
	}
	m.BundleLoadDuration.WithLabelValues(bundle).Observe(d.Seconds())
	m.BundleRecords.WithLabelValues(bundle).Set(float64(records))
}

// ObserveOverlap counts one overlap query. A query that short-circuits
// before touching a store is counted as skipped.
func (m *Metrics) ObserveOverlap(bundle string, hits int, skipped bool) {
	if m == nil {
		return
	}
	outcome := "miss"
	switch {
	case skipped:
		outcome = "skipped"
	case hits > 0:
		outcome = "hit"
	}
	m.OverlapQueriesTotal.WithLabelValues(bundle, outcome).Inc()
}

func (m *Metrics) ObserveFilter(filter string, pass bool) {
	if m == nil {
		return
	}
	m.FilterVerdictsTotal.WithLabelValues(filter, passLabel(pass)).Inc()
}

func (m *Metrics) ObserveVariant(verdict string) {
	if m == nil {
		return
	}
	m.VariantsTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObserveLookup(backend, kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AnnotatorLookups.WithLabelValues(backend, kind, result).Inc()
	m.AnnotatorLatency.WithLabelValues(backend).Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.CacheHitsTotal.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.CacheMissesTotal.Inc()
	}
}

func (m *Metrics) SetBreakerState(name string, state int) {
	if m != nil {
		m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	}
}

func passLabel(pass bool) string {
	if pass {
		return "pass"
	}
	return "fail"
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
