package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineRecorderCounts(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	rec := reg.Engine()

	rec.ExecutionEnrolled("welcome-sequence")
	rec.ExecutionEnrolled("welcome-sequence")
	rec.StepExecuted("message", "success", 12*time.Millisecond)
	rec.StepExecuted("delay", "success", time.Millisecond)
	rec.ExecutionFinished("completed")
	rec.SweepObserved(4, 2, 1, 1, 50*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(reg.enrollmentsTotal.WithLabelValues("welcome-sequence")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.stepsTotal.WithLabelValues("message", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.executionsFinished.WithLabelValues("completed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.sweepRunsTotal))
	assert.Equal(t, float64(4), testutil.ToFloat64(reg.sweepDue))
	assert.Equal(t, float64(2), testutil.ToFloat64(reg.sweepAdvanced))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.sweepSkipped))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.sweepFailed))
}

func TestMiddlewareLabelsRoutePattern(t *testing.T) {
	reg := NewRegistry(DefaultConfig())

	router := chi.NewRouter()
	router.Use(reg.Middleware)
	router.Get("/workflows/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/workflows/abc", "/workflows/def", "/missing"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/workflows/{id}", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(reg.httpRequestsTotal.WithLabelValues("GET", "/missing", "404")))
	assert.Equal(t, float64(0), testutil.ToFloat64(reg.httpActiveRequests))
}

func TestHandlerExposesMetrics(t *testing.T) {
	reg := NewRegistry(DefaultConfig())
	reg.Engine().ExecutionFinished("failed")

	rr := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `automation_engine_executions_finished_total{status="failed"} 1`)
}
