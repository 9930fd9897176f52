package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumabook/automation/internal/clock"
	"github.com/lumabook/automation/internal/notification"
	"github.com/lumabook/automation/pkg/integration"
)

// Outcome is the result of executing one step. Exactly one of the
// progression fields is meaningful: ResumeAt suspends, Complete terminates
// with a reason, JumpToStepID redirects the cursor, and Advance moves to the
// next step.
type Outcome struct {
	Success      bool
	Advance      bool
	ResumeAt     *time.Time
	JumpToStepID string
	Complete     bool
	Reason       string
	Result       map[string]any
	Attempts     int
	Err          error
}

// stepRunner executes individual steps. Each executor is total: missing data
// resolves to a logged skip rather than a failure, so one malformed step
// cannot leave the execution in an ambiguous state.
type stepRunner struct {
	subjects   SubjectStore
	tasks      TaskStore
	deliveries DeliveryStore
	sender     notification.Sender
	clock      clock.Clock
	retryer    *integration.Retryer
	timeout    time.Duration
	logger     *slog.Logger
}

// run dispatches the step to its executor. The switch is exhaustive over the
// closed set of step kinds; an unknown kind is a definition error and fails
// the execution rather than stalling it.
func (r *stepRunner) run(ctx context.Context, step *StepDefinition, exec *Execution) Outcome {
	switch step.Type {
	case StepMessage:
		return r.runMessage(ctx, step, exec)
	case StepDelay:
		return r.runDelay(step)
	case StepCondition:
		return r.runCondition(ctx, step, exec)
	case StepTag:
		return r.runTag(ctx, step, exec)
	case StepTask:
		return r.runTask(ctx, step, exec)
	default:
		return Outcome{Err: fmt.Errorf("unknown step type %q", step.Type)}
	}
}

// runMessage resolves the recipient, dispatches through the sender with
// bounded retry, and records the attempt in the delivery log. A missing
// recipient is a skip, not a failure.
func (r *stepRunner) runMessage(ctx context.Context, step *StepDefinition, exec *Execution) Outcome {
	msg := step.Message

	var recipient string
	switch msg.Channel {
	case ChannelEmail:
		recipient = exec.SubjectContact
	case ChannelSMS:
		subject, err := r.subjects.Get(ctx, exec.SubjectID)
		if err == nil {
			recipient = subject.Phone
		}
	}

	if recipient == "" {
		r.logger.Warn("message step skipped: no recipient",
			slog.String("execution_id", exec.ID),
			slog.String("channel", string(msg.Channel)))
		return Outcome{
			Success: true,
			Advance: true,
			Result: map[string]any{
				"skipped": true,
				"warning": fmt.Sprintf("no %s contact for subject", msg.Channel),
			},
		}
	}

	attempts, sendErr := r.retryer.Do(ctx, func(ctx context.Context) error {
		return integration.WithTimeout(ctx, r.timeout, func(ctx context.Context) error {
			if msg.Channel == ChannelSMS {
				return r.sender.SendSMS(ctx, recipient, msg.Content)
			}
			return r.sender.SendEmail(ctx, recipient, msg.Subject, msg.Content)
		})
	})

	entry := &DeliveryLog{
		ID:          uuid.NewString(),
		ExecutionID: exec.ID,
		StepID:      step.ID,
		Channel:     msg.Channel,
		Recipient:   recipient,
		Subject:     msg.Subject,
		Body:        msg.Content,
		Status:      DeliverySent,
		SentAt:      r.clock.Now(),
	}
	if sendErr != nil {
		entry.Status = DeliveryFailed
		entry.Error = sendErr.Error()
	}
	if err := r.deliveries.Create(ctx, entry); err != nil {
		r.logger.Warn("delivery log write failed", slog.String("error", err.Error()))
	}

	if sendErr != nil {
		return Outcome{Attempts: attempts, Err: fmt.Errorf("send %s: %w", msg.Channel, sendErr)}
	}

	return Outcome{
		Success:  true,
		Advance:  true,
		Attempts: attempts,
		Result: map[string]any{
			"channel":   string(msg.Channel),
			"recipient": recipient,
		},
	}
}

// runDelay computes the resume time. The delay step itself is done; the
// following step is what the resume time gates.
func (r *stepRunner) runDelay(step *StepDefinition) Outcome {
	resumeAt := r.clock.Now().Add(step.Delay.Duration())
	return Outcome{
		Success:  true,
		Advance:  true,
		ResumeAt: &resumeAt,
		Result: map[string]any{
			"resume_at": resumeAt,
		},
	}
}

// runCondition compares a subject attribute against the configured value.
// A missing subject or attribute is a data gap, not a verdict: the step is
// skipped with a warning and the execution advances. A present-but-false
// comparison gates progression: jump to the else target when one is
// configured, otherwise complete the execution with a condition_not_met
// reason.
func (r *stepRunner) runCondition(ctx context.Context, step *StepDefinition, exec *Execution) Outcome {
	cond := step.Condition

	var actual string
	var present bool
	subject, err := r.subjects.Get(ctx, exec.SubjectID)
	if err == nil {
		actual, present = subject.Attribute(cond.Field)
	}

	if !present {
		r.logger.Warn("condition step skipped: attribute missing",
			slog.String("execution_id", exec.ID),
			slog.String("field", cond.Field))
		return Outcome{
			Success: true,
			Advance: true,
			Result: map[string]any{
				"skipped": true,
				"warning": fmt.Sprintf("subject attribute %q not set", cond.Field),
			},
		}
	}

	matched := compare(cond.Operator, actual, cond.Value)

	result := map[string]any{
		"field":   cond.Field,
		"matched": matched,
	}

	if matched {
		return Outcome{Success: true, Advance: true, Result: result}
	}
	if cond.ElseStepID != "" {
		result["else_step"] = cond.ElseStepID
		return Outcome{Success: true, JumpToStepID: cond.ElseStepID, Result: result}
	}
	result["reason"] = "condition_not_met"
	return Outcome{Success: true, Complete: true, Reason: "condition_not_met", Result: result}
}

// compare applies a condition operator. Numeric operators on non-numeric
// operands yield false rather than an error.
func compare(op ConditionOperator, actual, expected string) bool {
	switch op {
	case OpEquals:
		return actual == expected
	case OpNotEquals:
		return actual != expected
	case OpContains:
		return strings.Contains(actual, expected)
	case OpGreaterThan, OpLessThan:
		a, errA := strconv.ParseFloat(actual, 64)
		b, errB := strconv.ParseFloat(expected, 64)
		if errA != nil || errB != nil {
			return false
		}
		if op == OpGreaterThan {
			return a > b
		}
		return a < b
	}
	return false
}

// runTag merges the step's labels into the subject's tag set. A missing
// subject is a skip.
func (r *stepRunner) runTag(ctx context.Context, step *StepDefinition, exec *Execution) Outcome {
	err := r.subjects.AddTags(ctx, exec.SubjectID, step.Tag.Tags)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Outcome{
				Success: true,
				Advance: true,
				Result: map[string]any{
					"skipped": true,
					"warning": "subject not found",
				},
			}
		}
		return Outcome{Err: fmt.Errorf("add tags: %w", err)}
	}

	return Outcome{
		Success: true,
		Advance: true,
		Result:  map[string]any{"tags": step.Tag.Tags},
	}
}

// runTask creates a task record for a human.
func (r *stepRunner) runTask(ctx context.Context, step *StepDefinition, exec *Execution) Outcome {
	task := &Task{
		ID:          uuid.NewString(),
		Description: step.Task.Description,
		Assignee:    step.Task.Assignee,
		SubjectID:   exec.SubjectID,
		WorkflowID:  exec.WorkflowID,
		ExecutionID: exec.ID,
		StepID:      step.ID,
		Status:      TaskPending,
		CreatedAt:   r.clock.Now(),
	}

	err := integration.WithTimeout(ctx, r.timeout, func(ctx context.Context) error {
		return r.tasks.Create(ctx, task)
	})
	if err != nil {
		return Outcome{Err: fmt.Errorf("create task: %w", err)}
	}

	return Outcome{
		Success: true,
		Advance: true,
		Result: map[string]any{
			"task_id":  task.ID,
			"assignee": task.Assignee,
		},
	}
}
