// Package metrics exposes Prometheus instruments for conflict detection and
// resolution.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeConflict  = "conflict"
	OutcomeClear     = "clear"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
	OutcomeDisagreed = "disagreed"
	OutcomeAgreed    = "agreed"
)

// Metrics groups the collectors registered for one server
type Metrics struct {
	registry       *prometheus.Registry
	detections     *prometheus.CounterVec
	resolutions    *prometheus.CounterVec
	crosschecks    *prometheus.CounterVec
	resolveLatency prometheus.Histogram
	requests       *prometheus.CounterVec
}

// New creates and registers collectors on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "powershare_detections_total",
			Help: "Mechanical conflict detections by outcome.",
		}, []string{"outcome"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "powershare_resolutions_total",
			Help: "Resolution requests to the generation service by outcome.",
		}, []string{"outcome"}),
		crosschecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "powershare_crosschecks_total",
			Help: "Comparisons of the service verdict with the mechanical detector.",
		}, []string{"outcome"}),
		resolveLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "powershare_resolve_duration_seconds",
			Help:    "Latency of resolution round trips.",
			Buckets: prometheus.DefBuckets,
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "powershare_http_requests_total",
			Help: "HTTP requests by route pattern and status code.",
		}, []string{"route", "method", "code"}),
	}

	m.registry.MustRegister(m.detections, m.resolutions, m.crosschecks, m.resolveLatency, m.requests)
	return m
}

// ObserveDetection counts one detection run
func (m *Metrics) ObserveDetection(conflicts int) {
	outcome := OutcomeClear
	if conflicts > 0 {
		outcome = OutcomeConflict
	}
	m.detections.WithLabelValues(outcome).Inc()
}

// ObserveResolution counts one resolution round trip and its latency
func (m *Metrics) ObserveResolution(outcome string, took time.Duration) {
	m.resolutions.WithLabelValues(outcome).Inc()
	m.resolveLatency.Observe(took.Seconds())
}

// ObserveCrosscheck counts whether the service agreed with the detector
func (m *Metrics) ObserveCrosscheck(agrees bool) {
	outcome := OutcomeAgreed
	if !agrees {
		outcome = OutcomeDisagreed
	}
	m.crosschecks.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts requests by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
