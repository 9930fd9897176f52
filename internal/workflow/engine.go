package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lumabook/automation/internal/clock"
	"github.com/lumabook/automation/internal/event"
	"github.com/lumabook/automation/internal/notification"
	"github.com/lumabook/automation/pkg/integration"
)

// Engine runs workflow executions. An execution is advanced by exactly one
// caller at a time: the engine claims it through the version token before the
// first side effect, and every save is conditional on that token. A second
// caller racing on the same execution gets ErrVersionConflict and backs off.
type Engine struct {
	config  Config
	stores  *Stores
	sender  notification.Sender
	events  event.Dispatcher
	clock   clock.Clock
	metrics Recorder
	logger  *slog.Logger
	runner  *stepRunner
}

// NewEngine creates an engine. Events, clk, metrics, and logger may be nil,
// in which case no-op or default implementations are used.
func NewEngine(config Config, stores *Stores, sender notification.Sender, events event.Dispatcher, clk clock.Clock, metrics Recorder, logger *slog.Logger) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if events == nil {
		events = event.NewNoOpDispatcher()
	}
	if clk == nil {
		clk = clock.System()
	}
	if metrics == nil {
		metrics = NopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "engine"))

	return &Engine{
		config:  config,
		stores:  stores,
		sender:  sender,
		events:  events,
		clock:   clk,
		metrics: metrics,
		logger:  logger,
		runner: &stepRunner{
			subjects:   stores.Subjects,
			tasks:      stores.Tasks,
			deliveries: stores.Deliveries,
			sender:     sender,
			clock:      clk,
			retryer:    integration.NewRetryer(config.Retry),
			timeout:    config.StepTimeout,
			logger:     logger,
		},
	}, nil
}

// Enroll creates an execution of the given workflow for the subject and, if
// the workflow is active, immediately advances it. Enrolling into an
// inactive workflow persists the execution without running any steps; it
// becomes eligible once the workflow is reactivated and the execution is
// advanced again.
func (e *Engine) Enroll(ctx context.Context, workflowID, subjectID, subjectContact string) (*Execution, error) {
	def, err := e.stores.Workflows.Get(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}
	if len(def.Steps) == 0 {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, ErrNoSteps)
	}

	existing, err := e.stores.Executions.ListBySubject(ctx, subjectID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list executions for subject %s: %w", subjectID, err)
	}
	for i := range existing {
		if existing[i].WorkflowID == workflowID && !existing[i].Status.Terminal() {
			return nil, fmt.Errorf("workflow %s, subject %s: %w", workflowID, subjectID, ErrAlreadyEnrolled)
		}
	}

	now := e.clock.Now()
	exec := &Execution{
		ID:             uuid.NewString(),
		WorkflowID:     workflowID,
		SubjectID:      subjectID,
		SubjectContact: subjectContact,
		Status:         StatusActive,
		StartedAt:      now,
		ExecutionLog:   []LogEntry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.stores.Executions.Create(ctx, exec); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}
	if err := e.stores.Workflows.ApplyEnrolled(ctx, workflowID); err != nil {
		e.logger.Warn("enrollment stats update failed",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()))
	}

	e.metrics.ExecutionEnrolled(workflowID)
	e.events.Dispatch(ctx, event.NewEvent(event.EventExecutionEnrolled, map[string]any{
		"execution_id": exec.ID,
		"workflow_id":  workflowID,
		"subject_id":   subjectID,
	}))
	e.logger.Info("subject enrolled",
		slog.String("execution_id", exec.ID),
		slog.String("workflow_id", workflowID),
		slog.String("subject_id", subjectID))

	if !def.IsActive {
		return exec, nil
	}
	return e.Advance(ctx, exec.ID)
}

// EnrollByTrigger enrolls the subject into every active workflow attached to
// the trigger. Workflows the subject is already enrolled in are skipped. One
// workflow failing to enroll never blocks the rest; the failures come back
// joined alongside the executions that did start.
func (e *Engine) EnrollByTrigger(ctx context.Context, trigger TriggerType, subjectID, subjectContact string) ([]*Execution, error) {
	defs, err := e.stores.Workflows.ListActiveByTrigger(ctx, trigger)
	if err != nil {
		return nil, fmt.Errorf("list workflows for trigger %s: %w", trigger, err)
	}

	var execs []*Execution
	var errs []error
	for i := range defs {
		exec, err := e.Enroll(ctx, defs[i].ID, subjectID, subjectContact)
		if err != nil {
			if errors.Is(err, ErrAlreadyEnrolled) {
				continue
			}
			e.logger.Warn("trigger enrollment failed",
				slog.String("workflow_id", defs[i].ID),
				slog.String("subject_id", subjectID),
				slog.String("error", err.Error()))
			errs = append(errs, err)
			continue
		}
		execs = append(execs, exec)
	}
	return execs, errors.Join(errs...)
}

// Advance runs the execution forward until it suspends, completes, or fails.
// Calls on executions that are terminal, paused, attached to an inactive
// workflow, or not yet due are no-ops returning the current state.
func (e *Engine) Advance(ctx context.Context, executionID string) (*Execution, error) {
	exec, err := e.stores.Executions.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}
	if exec.Status != StatusActive {
		return exec, nil
	}

	def, err := e.stores.Workflows.Get(ctx, exec.WorkflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", exec.WorkflowID, err)
	}
	if !def.IsActive {
		return exec, nil
	}
	if exec.NextExecutionTime != nil && e.clock.Now().Before(*exec.NextExecutionTime) {
		return exec, nil
	}

	// Claim before the first side effect. Losing the race here means another
	// caller owns this execution; nothing was sent twice.
	if err := e.stores.Executions.Claim(ctx, exec.ID, exec.Version); err != nil {
		return nil, fmt.Errorf("claim execution %s: %w", exec.ID, err)
	}
	exec.Version++
	exec.NextExecutionTime = nil

	jumps := 0
	for {
		if exec.CurrentStepIndex >= len(def.Steps) {
			return e.finish(ctx, exec, StatusCompleted, "")
		}

		step := &def.Steps[exec.CurrentStepIndex]
		started := e.clock.Now()
		out := e.runner.run(ctx, step, exec)
		e.record(exec, step, started, out)
		e.metrics.StepExecuted(string(step.Type), string(exec.ExecutionLog[len(exec.ExecutionLog)-1].Status), e.clock.Now().Sub(started))
		e.events.Dispatch(ctx, event.NewEvent(event.EventStepExecuted, map[string]any{
			"execution_id": exec.ID,
			"step_id":      step.ID,
			"step_type":    string(step.Type),
		}))

		switch {
		case out.Err != nil:
			e.logger.Error("step failed",
				slog.String("execution_id", exec.ID),
				slog.String("step_id", step.ID),
				slog.String("error", out.Err.Error()))
			return e.finish(ctx, exec, StatusFailed, out.Err.Error())

		case out.Complete:
			return e.finish(ctx, exec, StatusCompleted, out.Reason)

		case out.JumpToStepID != "":
			idx := def.StepByID(out.JumpToStepID)
			if idx < 0 {
				return e.finish(ctx, exec, StatusFailed,
					fmt.Sprintf("else target %q does not exist", out.JumpToStepID))
			}
			jumps++
			if jumps > e.config.MaxJumps {
				return e.finish(ctx, exec, StatusFailed, "jump limit exceeded")
			}
			exec.CurrentStepIndex = idx
			if err := e.save(ctx, exec); err != nil {
				return nil, err
			}

		case out.ResumeAt != nil:
			exec.CurrentStepIndex++
			exec.NextExecutionTime = out.ResumeAt
			if err := e.save(ctx, exec); err != nil {
				return nil, err
			}
			e.events.Dispatch(ctx, event.NewEvent(event.EventExecutionSuspended, map[string]any{
				"execution_id": exec.ID,
				"resume_at":    out.ResumeAt.Format(time.RFC3339),
			}))
			e.logger.Info("execution suspended",
				slog.String("execution_id", exec.ID),
				slog.Time("resume_at", *out.ResumeAt))
			return exec, nil

		default:
			exec.CurrentStepIndex++
			if err := e.save(ctx, exec); err != nil {
				return nil, err
			}
		}
	}
}

// record appends the step outcome to the execution's audit log.
func (e *Engine) record(exec *Execution, step *StepDefinition, started time.Time, out Outcome) {
	entry := LogEntry{
		StepID:     step.ID,
		StepType:   step.Type,
		ExecutedAt: started,
		Status:     LogSuccess,
		Result:     out.Result,
		Attempts:   out.Attempts,
	}
	if out.Err != nil {
		entry.Status = LogFailed
		entry.Error = out.Err.Error()
	} else if skipped, ok := out.Result["skipped"].(bool); ok && skipped {
		entry.Status = LogSkipped
	}
	exec.ExecutionLog = append(exec.ExecutionLog, entry)
}

// finish moves the execution to a terminal status, persists it, and applies
// the stats transition. Completion increments completed and releases an
// active slot; failure releases nothing, leaving the workflow's active count
// to the operator who resolves the failure.
func (e *Engine) finish(ctx context.Context, exec *Execution, status ExecutionStatus, reason string) (*Execution, error) {
	now := e.clock.Now()
	exec.Status = status
	exec.NextExecutionTime = nil
	if status == StatusCompleted {
		exec.CompletedAt = &now
	}
	if err := e.save(ctx, exec); err != nil {
		return nil, err
	}

	eventType := event.EventExecutionFailed
	if status == StatusCompleted {
		eventType = event.EventExecutionCompleted
		if err := e.stores.Workflows.ApplyCompleted(ctx, exec.WorkflowID); err != nil {
			e.logger.Warn("completion stats update failed",
				slog.String("workflow_id", exec.WorkflowID),
				slog.String("error", err.Error()))
		}
	}

	e.metrics.ExecutionFinished(string(status))
	payload := map[string]any{
		"execution_id": exec.ID,
		"workflow_id":  exec.WorkflowID,
	}
	if reason != "" {
		payload["reason"] = reason
	}
	e.events.Dispatch(ctx, event.NewEvent(eventType, payload))
	e.logger.Info("execution finished",
		slog.String("execution_id", exec.ID),
		slog.String("status", string(status)),
		slog.String("reason", reason))
	return exec, nil
}

// Cancel moves an execution to the cancelled terminal status and releases
// its active slot in the workflow stats.
func (e *Engine) Cancel(ctx context.Context, executionID string) (*Execution, error) {
	exec, err := e.stores.Executions.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}
	if exec.Status.Terminal() {
		return nil, fmt.Errorf("execution %s: %w", executionID, ErrTerminal)
	}

	if err := e.stores.Executions.Claim(ctx, exec.ID, exec.Version); err != nil {
		return nil, fmt.Errorf("claim execution %s: %w", exec.ID, err)
	}
	exec.Version++
	exec.Status = StatusCancelled
	exec.NextExecutionTime = nil
	if err := e.save(ctx, exec); err != nil {
		return nil, err
	}

	if err := e.stores.Workflows.ApplyCancelled(ctx, exec.WorkflowID); err != nil {
		e.logger.Warn("cancellation stats update failed",
			slog.String("workflow_id", exec.WorkflowID),
			slog.String("error", err.Error()))
	}

	e.metrics.ExecutionFinished(string(StatusCancelled))
	e.events.Dispatch(ctx, event.NewEvent(event.EventExecutionCancelled, map[string]any{
		"execution_id": exec.ID,
		"workflow_id":  exec.WorkflowID,
	}))
	return exec, nil
}

// Pause freezes an active execution. The sweep skips paused executions; the
// suspension clock state is preserved so Resume picks up where it left off.
func (e *Engine) Pause(ctx context.Context, executionID string) (*Execution, error) {
	exec, err := e.stores.Executions.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}
	if exec.Status != StatusActive {
		return nil, fmt.Errorf("execution %s is %s: %w", executionID, exec.Status, ErrTerminal)
	}

	if err := e.stores.Executions.Claim(ctx, exec.ID, exec.Version); err != nil {
		return nil, fmt.Errorf("claim execution %s: %w", exec.ID, err)
	}
	exec.Version++
	exec.Status = StatusPaused
	if err := e.save(ctx, exec); err != nil {
		return nil, err
	}
	return exec, nil
}

// Resume reactivates a paused execution and advances it if it is due.
func (e *Engine) Resume(ctx context.Context, executionID string) (*Execution, error) {
	exec, err := e.stores.Executions.Get(ctx, executionID)
	if err != nil {
		return nil, fmt.Errorf("load execution %s: %w", executionID, err)
	}
	if exec.Status != StatusPaused {
		return nil, fmt.Errorf("execution %s is %s, not paused", executionID, exec.Status)
	}

	if err := e.stores.Executions.Claim(ctx, exec.ID, exec.Version); err != nil {
		return nil, fmt.Errorf("claim execution %s: %w", exec.ID, err)
	}
	exec.Version++
	exec.Status = StatusActive
	if err := e.save(ctx, exec); err != nil {
		return nil, err
	}
	return e.Advance(ctx, executionID)
}

// save persists the execution with a fresh UpdatedAt.
func (e *Engine) save(ctx context.Context, exec *Execution) error {
	exec.UpdatedAt = e.clock.Now()
	if err := e.stores.Executions.Save(ctx, exec); err != nil {
		return fmt.Errorf("save execution %s: %w", exec.ID, err)
	}
	return nil
}
