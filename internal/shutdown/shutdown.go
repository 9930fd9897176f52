// Package shutdown coordinates graceful teardown of the automation service.
// Components register hooks with a priority; on a shutdown signal the manager
// runs hooks in descending priority order, hooks of equal priority in
// parallel, each bounded by a timeout.
package shutdown

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"
)

// Standard priorities. Higher runs earlier: stop taking work before
// releasing the resources that work depends on.
const (
	PriorityHTTPServer = 90
	PriorityScheduler  = 80
	PriorityDatabase   = 70
	PriorityCache      = 60
	PriorityMetrics    = 50
)

// HookFunc performs one component's shutdown. The context is cancelled when
// the per-hook timeout expires.
type HookFunc func(ctx context.Context) error

// Hook is a named shutdown step.
type Hook struct {
	Name     string
	Priority int
	Fn       HookFunc
}

// Config bounds how long shutdown may take.
type Config struct {
	OverallTimeout time.Duration
	PerHookTimeout time.Duration
}

// DefaultConfig returns the default shutdown timing.
func DefaultConfig() Config {
	return Config{
		OverallTimeout: 30 * time.Second,
		PerHookTimeout: 10 * time.Second,
	}
}

// Validate fills zero values with defaults.
func (c *Config) Validate() {
	if c.OverallTimeout <= 0 {
		c.OverallTimeout = 30 * time.Second
	}
	if c.PerHookTimeout <= 0 {
		c.PerHookTimeout = 10 * time.Second
	}
}

// Manager collects hooks and runs them once on shutdown.
type Manager struct {
	config Config
	logger *slog.Logger

	mu    sync.Mutex
	hooks []Hook

	once sync.Once
	done chan struct{}

	errMu  sync.Mutex
	errors []error
}

// NewManager creates a shutdown manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	cfg.Validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config: cfg,
		logger: logger.With("component", "shutdown"),
		done:   make(chan struct{}),
	}
}

// Register adds a shutdown hook.
func (m *Manager) Register(hook Hook) {
	m.mu.Lock()
	m.hooks = append(m.hooks, hook)
	m.mu.Unlock()
	m.logger.Debug("registered shutdown hook", "name", hook.Name, "priority", hook.Priority)
}

// RegisterFunc adds a shutdown hook from its parts.
func (m *Manager) RegisterFunc(name string, priority int, fn HookFunc) {
	m.Register(Hook{Name: name, Priority: priority, Fn: fn})
}

// ListenForSignals triggers Shutdown on SIGTERM, SIGINT or SIGQUIT.
// The returned channel closes when shutdown completes.
func (m *Manager) ListenForSignals() <-chan struct{} {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		sig := <-sigs
		signal.Stop(sigs)
		m.logger.Info("received shutdown signal", "signal", sig.String())
		m.Shutdown()
	}()

	return m.done
}

// Shutdown runs all hooks. Safe to call more than once; only the first call
// does the work, later callers block until it finishes.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.OverallTimeout)
		defer cancel()

		m.mu.Lock()
		hooks := make([]Hook, len(m.hooks))
		copy(hooks, m.hooks)
		m.mu.Unlock()

		m.logger.Info("starting graceful shutdown",
			"timeout", m.config.OverallTimeout,
			"hooks", len(hooks))

		sort.SliceStable(hooks, func(i, j int) bool {
			return hooks[i].Priority > hooks[j].Priority
		})

		for start := 0; start < len(hooks); {
			end := start
			for end < len(hooks) && hooks[end].Priority == hooks[start].Priority {
				end++
			}
			m.runGroup(ctx, hooks[start:end])
			start = end

			if ctx.Err() != nil {
				m.logger.Warn("shutdown timeout exceeded, remaining hooks skipped",
					"skipped", len(hooks)-start)
				m.addError(fmt.Errorf("overall shutdown timeout exceeded"))
				break
			}
		}

		m.logger.Info("graceful shutdown complete", "errors", len(m.Errors()))
		close(m.done)
	})
	<-m.done
}

func (m *Manager) runGroup(ctx context.Context, group []Hook) {
	var wg sync.WaitGroup
	for _, hook := range group {
		wg.Add(1)
		go func(h Hook) {
			defer wg.Done()
			m.runHook(ctx, h)
		}(hook)
	}
	wg.Wait()
}

func (m *Manager) runHook(ctx context.Context, hook Hook) {
	start := time.Now()

	err := runWithTimeout(ctx, m.config.PerHookTimeout, hook.Name, hook.Fn)
	elapsed := time.Since(start)

	if err != nil {
		m.logger.Error("shutdown hook failed", "name", hook.Name, "error", err, "duration", elapsed)
		m.addError(fmt.Errorf("hook %s: %w", hook.Name, err))
		return
	}
	m.logger.Info("shutdown hook completed", "name", hook.Name, "duration", elapsed)
}

// runWithTimeout bounds a hook and converts panics into errors so one broken
// component cannot abort the rest of the teardown.
func runWithTimeout(ctx context.Context, timeout time.Duration, name string, fn HookFunc) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("hook %s panicked: %v", name, r)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("hook %s timed out after %v", name, timeout)
		}
		return ctx.Err()
	}
}

func (m *Manager) addError(err error) {
	m.errMu.Lock()
	m.errors = append(m.errors, err)
	m.errMu.Unlock()
}

// Errors returns all errors collected during shutdown.
func (m *Manager) Errors() []error {
	m.errMu.Lock()
	defer m.errMu.Unlock()
	out := make([]error, len(m.errors))
	copy(out, m.errors)
	return out
}

// Done returns a channel closed when shutdown completes.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
