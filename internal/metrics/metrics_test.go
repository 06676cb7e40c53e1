package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveDetection(0)
	m.ObserveDetection(2)
	m.ObserveDetection(1)
	m.ObserveResolution(OutcomeError, 10*time.Millisecond)
	m.ObserveCrosscheck(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.detections.WithLabelValues(OutcomeConflict)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.detections.WithLabelValues(OutcomeClear)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.resolutions.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.crosschecks.WithLabelValues(OutcomeDisagreed)))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/intervals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/intervals/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/intervals/def", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/intervals/{id}", http.MethodGet, "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "powershare_http_requests_total")
}
