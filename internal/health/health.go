// Package health aggregates component health checks behind one registry.
// MongoDB and Redis register as critical checks; anything critical failing
// flips readiness.
package health

import (
	"context"
	"sync"
	"time"
)

// Status of a component or the whole service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Severity decides whether a failing check affects readiness.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status   Status        `json:"status"`
	Message  string        `json:"message,omitempty"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Response is the aggregate health report.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version,omitempty"`
	Uptime    string                 `json:"uptime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker is one component's health probe.
type Checker interface {
	Name() string
	Severity() Severity
	Check(ctx context.Context) CheckResult
}

const checkTimeout = 5 * time.Second

// Registry runs registered checks and aggregates status.
type Registry struct {
	mu        sync.RWMutex
	checkers  []Checker
	startTime time.Time
	version   string
}

// NewRegistry creates a health registry.
func NewRegistry(version string) *Registry {
	return &Registry{startTime: time.Now(), version: version}
}

// Register adds a checker.
func (r *Registry) Register(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, c)
}

// Liveness always reports healthy; it only fails if the process is gone.
func (r *Registry) Liveness(ctx context.Context) Response {
	return Response{
		Status:    StatusHealthy,
		Timestamp: time.Now(),
		Version:   r.version,
		Uptime:    time.Since(r.startTime).String(),
	}
}

// Readiness runs critical checks only.
func (r *Registry) Readiness(ctx context.Context) Response {
	return r.run(ctx, true)
}

// Health runs every registered check.
func (r *Registry) Health(ctx context.Context) Response {
	return r.run(ctx, false)
}

func (r *Registry) run(ctx context.Context, criticalOnly bool) Response {
	r.mu.RLock()
	checkers := make([]Checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		checks  = make(map[string]CheckResult)
		overall = StatusHealthy
	)

	for _, checker := range checkers {
		if criticalOnly && checker.Severity() != SeverityCritical {
			continue
		}

		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()

			start := time.Now()
			result := c.Check(ctx)
			result.Duration = time.Since(start)

			mu.Lock()
			defer mu.Unlock()
			checks[c.Name()] = result

			if result.Status == StatusUnhealthy {
				if c.Severity() == SeverityCritical {
					overall = StatusUnhealthy
				} else if overall == StatusHealthy {
					overall = StatusDegraded
				}
			}
		}(checker)
	}
	wg.Wait()

	return Response{
		Status:    overall,
		Timestamp: time.Now(),
		Version:   r.version,
		Uptime:    time.Since(r.startTime).String(),
		Checks:    checks,
	}
}
