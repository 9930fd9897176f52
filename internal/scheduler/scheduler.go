package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/lumabook/automation/internal/workflow"
)

// TaskSweepDue is the asynq task type for the periodic sweep.
const TaskSweepDue = "sweep:due"

// Sweeper is the slice of the engine the scheduler drives.
type Sweeper interface {
	Sweep(ctx context.Context) (workflow.SweepResult, error)
}

// Manager owns the asynq server processing sweep tasks and the asynq
// scheduler that enqueues them on an interval. Redis makes the periodic
// trigger survive process restarts and keeps multiple instances from each
// running their own timer.
type Manager struct {
	config    Config
	sweeper   Sweeper
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *slog.Logger
}

// NewManager creates a scheduler manager around the engine.
func NewManager(cfg Config, sweeper Sweeper, logger *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{cfg.Queue: 1},
		ShutdownTimeout: cfg.ShutdownTimeout,
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
			if err != nil {
				logger.Error("failed to enqueue periodic task", "error", err)
			}
		},
	})

	m := &Manager{
		config:    cfg,
		sweeper:   sweeper,
		server:    server,
		scheduler: scheduler,
		mux:       asynq.NewServeMux(),
		logger:    logger,
	}
	m.mux.HandleFunc(TaskSweepDue, m.handleSweep)

	return m, nil
}

// Start registers the periodic sweep and begins processing. Non-blocking.
func (m *Manager) Start() error {
	spec := fmt.Sprintf("@every %s", m.config.SweepInterval)

	entryID, err := m.scheduler.Register(spec, asynq.NewTask(TaskSweepDue, nil),
		asynq.Queue(m.config.Queue),
		asynq.MaxRetry(0),
		asynq.Timeout(m.config.SweepTimeout),
		// A sweep already in the queue makes a second one redundant.
		asynq.Unique(m.config.SweepInterval),
	)
	if err != nil {
		return fmt.Errorf("register sweep task: %w", err)
	}

	if err := m.server.Start(m.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	if err := m.scheduler.Start(); err != nil {
		m.server.Shutdown()
		return fmt.Errorf("start asynq scheduler: %w", err)
	}

	m.logger.Info("scheduler started",
		"interval", m.config.SweepInterval,
		"entry_id", entryID)
	return nil
}

// Stop shuts down the scheduler first so nothing new is enqueued, then the
// server, which finishes in-flight tasks within the shutdown timeout.
func (m *Manager) Stop() {
	m.scheduler.Shutdown()
	m.server.Shutdown()
	m.logger.Info("scheduler stopped")
}

// handleSweep runs one sweep pass.
func (m *Manager) handleSweep(ctx context.Context, _ *asynq.Task) error {
	result, err := m.sweeper.Sweep(ctx)
	if err != nil {
		m.logger.Error("sweep failed", "error", err)
		return err
	}

	if result.Failed > 0 {
		m.logger.Warn("sweep finished with failures",
			"due", result.Due, "advanced", result.Advanced,
			"skipped", result.Skipped, "failed", result.Failed)
	}
	return nil
}
