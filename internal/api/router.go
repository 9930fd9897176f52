// Package api provides the HTTP API for the automation service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lumabook/automation/internal/api/handlers"
)

// RouterConfig holds optional middleware and extra routes for the router.
type RouterConfig struct {
	// RequestLogger replaces chi's default logger when set.
	RequestLogger func(http.Handler) http.Handler
	// Metrics instruments every request when set.
	Metrics func(http.Handler) http.Handler
	// MetricsHandler serves GET /metrics when set.
	MetricsHandler http.Handler
}

// NewRouter creates a chi router with all routes and default middleware.
func NewRouter(h *handlers.Handler) chi.Router {
	return NewRouterWithConfig(h, RouterConfig{})
}

// NewRouterWithConfig creates a chi router with the given extras wired in.
func NewRouterWithConfig(h *handlers.Handler, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if cfg.RequestLogger != nil {
		r.Use(cfg.RequestLogger)
	} else {
		r.Use(middleware.Logger)
	}
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Liveness)
	r.Get("/health/ready", h.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	r.Route("/workflows", func(r chi.Router) {
		r.Post("/", h.CreateWorkflow)
		r.Get("/", h.ListWorkflows)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetWorkflow)
			r.Get("/stats", h.GetWorkflowStats)
			r.Post("/activate", h.ActivateWorkflow)
			r.Post("/deactivate", h.DeactivateWorkflow)
			r.Post("/enroll", h.EnrollSubject)
		})
	})

	r.Post("/triggers/{trigger}", h.TriggerEvent)

	r.Route("/executions", func(r chi.Router) {
		r.Get("/", h.ListExecutions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetExecution)
			r.Post("/advance", h.AdvanceExecution)
			r.Post("/cancel", h.CancelExecution)
			r.Post("/pause", h.PauseExecution)
			r.Post("/resume", h.ResumeExecution)
			r.Get("/tasks", h.ListExecutionTasks)
			r.Get("/deliveries", h.ListExecutionDeliveries)
		})
	})

	r.Post("/sweep", h.Sweep)

	return r
}
