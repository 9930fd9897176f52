package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry manages all Prometheus metrics for the automation service.
type Registry struct {
	config   Config
	registry *prometheus.Registry

	// Engine metrics
	enrollmentsTotal   *prometheus.CounterVec
	executionsFinished *prometheus.CounterVec
	stepsTotal         *prometheus.CounterVec
	stepDuration       *prometheus.HistogramVec

	// Sweep metrics
	sweepRunsTotal prometheus.Counter
	sweepDue       prometheus.Counter
	sweepAdvanced  prometheus.Counter
	sweepSkipped   prometheus.Counter
	sweepFailed    prometheus.Counter
	sweepDuration  prometheus.Histogram

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpActiveRequests  prometheus.Gauge
}

// NewRegistry creates a metrics registry with the given configuration.
func NewRegistry(config Config) *Registry {
	reg := prometheus.NewRegistry()
	r := &Registry{config: config, registry: reg}

	r.registerEngineMetrics()
	r.registerSweepMetrics()
	r.registerHTTPMetrics()

	if config.EnableProcessMetrics {
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if config.EnableRuntimeMetrics {
		reg.MustRegister(collectors.NewGoCollector())
	}
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.registry
}

func (r *Registry) registerEngineMetrics() {
	ns := r.config.Namespace

	r.enrollmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "engine",
			Name:      "enrollments_total",
			Help:      "Subjects enrolled into workflows",
		},
		[]string{"workflow_id"},
	)
	r.executionsFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "engine",
			Name:      "executions_finished_total",
			Help:      "Executions reaching a terminal status",
		},
		[]string{"status"},
	)
	r.stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: "engine",
			Name:      "steps_total",
			Help:      "Step executions by type and logged status",
		},
		[]string{"type", "status"},
	)
	r.stepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Subsystem: "engine",
			Name:      "step_duration_seconds",
			Help:      "Step execution duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	r.registry.MustRegister(r.enrollmentsTotal, r.executionsFinished, r.stepsTotal, r.stepDuration)
}

func (r *Registry) registerSweepMetrics() {
	ns := r.config.Namespace

	r.sweepRunsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "sweep", Name: "runs_total",
		Help: "Sweep passes executed",
	})
	r.sweepDue = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "sweep", Name: "due_total",
		Help: "Due executions picked up by sweeps",
	})
	r.sweepAdvanced = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "sweep", Name: "advanced_total",
		Help: "Executions advanced by sweeps",
	})
	r.sweepSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "sweep", Name: "skipped_total",
		Help: "Sweep claims lost to a concurrent caller",
	})
	r.sweepFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Subsystem: "sweep", Name: "failed_total",
		Help: "Sweep advances that returned an error",
	})
	r.sweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Subsystem: "sweep", Name: "duration_seconds",
		Help:    "Sweep pass duration in seconds",
		Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
	})

	r.registry.MustRegister(r.sweepRunsTotal, r.sweepDue, r.sweepAdvanced, r.sweepSkipped, r.sweepFailed, r.sweepDuration)
}

func (r *Registry) registerHTTPMetrics() {
	ns := r.config.Namespace

	r.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: ns, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests processed",
		},
		[]string{"method", "path", "status"},
	)
	r.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "path"},
	)
	r.httpActiveRequests = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Subsystem: "http", Name: "active_requests",
		Help: "HTTP requests currently in flight",
	})

	r.registry.MustRegister(r.httpRequestsTotal, r.httpRequestDuration, r.httpActiveRequests)
}
