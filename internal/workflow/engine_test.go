package workflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumabook/automation/internal/clock"
	"github.com/lumabook/automation/internal/notification"
	"github.com/lumabook/automation/internal/workflow"
	"github.com/lumabook/automation/internal/workflow/repository"
)

var testStart = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	engine *workflow.Engine
	stores *workflow.Stores
	sender *notification.RecordingSender
	clock  *clock.Fake
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	stores := repository.MemoryStores()
	sender := notification.NewRecordingSender()
	fake := clock.NewFake(testStart)

	cfg := workflow.DefaultConfig()
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := workflow.NewEngine(cfg, stores, sender, nil, fake, nil, logger)
	require.NoError(t, err)

	return &harness{engine: engine, stores: stores, sender: sender, clock: fake}
}

func (h *harness) mustCreateWorkflow(t *testing.T, def *workflow.WorkflowDefinition) {
	t.Helper()
	require.NoError(t, workflow.ValidateDefinition(def))
	require.NoError(t, h.stores.Workflows.Create(context.Background(), def))
}

func (h *harness) mustPutSubject(t *testing.T, subject *workflow.Subject) {
	t.Helper()
	require.NoError(t, h.stores.Subjects.Put(context.Background(), subject))
}

func emailStep(id, subject, content string) workflow.StepDefinition {
	return workflow.StepDefinition{
		ID:   id,
		Type: workflow.StepMessage,
		Message: &workflow.MessageStep{
			Channel: workflow.ChannelEmail,
			Subject: subject,
			Content: content,
		},
	}
}

func delayStep(id string, amount int, unit workflow.DelayUnit) workflow.StepDefinition {
	return workflow.StepDefinition{
		ID:    id,
		Type:  workflow.StepDelay,
		Delay: &workflow.DelayStep{Amount: amount, Unit: unit},
	}
}

func conditionStep(id, field string, op workflow.ConditionOperator, value, elseID string) workflow.StepDefinition {
	return workflow.StepDefinition{
		ID:   id,
		Type: workflow.StepCondition,
		Condition: &workflow.ConditionStep{
			Field:      field,
			Operator:   op,
			Value:      value,
			ElseStepID: elseID,
		},
	}
}

func tagStep(id string, tags ...string) workflow.StepDefinition {
	return workflow.StepDefinition{
		ID:   id,
		Type: workflow.StepTag,
		Tag:  &workflow.TagStep{Tags: tags},
	}
}

func taskStep(id, description, assignee string) workflow.StepDefinition {
	return workflow.StepDefinition{
		ID:   id,
		Type: workflow.StepTask,
		Task: &workflow.TaskStep{Description: description, Assignee: assignee},
	}
}

func onboarding(steps ...workflow.StepDefinition) *workflow.WorkflowDefinition {
	return &workflow.WorkflowDefinition{
		ID:       "wf-onboarding",
		Name:     "Onboarding",
		Trigger:  workflow.TriggerNewSubject,
		IsActive: true,
		Steps:    steps,
	}
}

func TestEnrollRunsUntilDelayAndSuspends(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		emailStep("welcome", "Welcome!", "Hi there"),
		delayStep("wait", 2, workflow.UnitDays),
		emailStep("follow-up", "Checking in", "Still there?"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	// The welcome email went out immediately, then the delay suspended the
	// execution pointing at the follow-up.
	require.Len(t, h.sender.SentEmails(), 1)
	assert.Equal(t, "ada@example.com", h.sender.SentEmails()[0].To)
	assert.Equal(t, "Welcome!", h.sender.SentEmails()[0].Subject)

	assert.Equal(t, workflow.StatusActive, exec.Status)
	assert.Equal(t, 2, exec.CurrentStepIndex)
	require.NotNil(t, exec.NextExecutionTime)
	assert.Equal(t, testStart.Add(48*time.Hour), *exec.NextExecutionTime)
	assert.True(t, exec.Suspended())

	require.Len(t, exec.ExecutionLog, 2)
	assert.Equal(t, "welcome", exec.ExecutionLog[0].StepID)
	assert.Equal(t, workflow.LogSuccess, exec.ExecutionLog[0].Status)
	assert.Equal(t, "wait", exec.ExecutionLog[1].StepID)

	stats := h.workflowStats(t, "wf-onboarding")
	assert.Equal(t, int64(1), stats.TotalEnrolled)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(0), stats.Completed)
}

func TestSweepResumesDueExecutionAndCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		emailStep("welcome", "Welcome!", "Hi there"),
		delayStep("wait", 2, workflow.UnitDays),
		emailStep("follow-up", "Checking in", "Still there?"),
	))
	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	// A sweep before the resume time is a no-op.
	h.clock.Advance(24 * time.Hour)
	result, err := h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.SweepResult{}, result)
	require.Len(t, h.sender.SentEmails(), 1)

	// At exactly the resume time the execution is due.
	h.clock.Advance(24 * time.Hour)
	result, err = h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.SweepResult{Due: 1, Advanced: 1}, result)

	require.Len(t, h.sender.SentEmails(), 2)
	assert.Equal(t, "Checking in", h.sender.SentEmails()[1].Subject)

	done, err := h.stores.Executions.Get(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, done.Status)
	require.NotNil(t, done.CompletedAt)
	assert.Nil(t, done.NextExecutionTime)

	stats := h.workflowStats(t, "wf-onboarding")
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(0), stats.Active)

	// Nothing left for the next sweep.
	result, err = h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Due)
}

func TestConditionFalseWithoutElseCompletes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustPutSubject(t, &workflow.Subject{
		ID:         "sub-1",
		Email:      "ada@example.com",
		Attributes: map[string]string{"plan": "basic"},
	})
	h.mustCreateWorkflow(t, onboarding(
		conditionStep("check-plan", "plan", workflow.OpEquals, "premium", ""),
		emailStep("premium-offer", "Upgrade perks", "Enjoy"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, exec.Status)
	assert.Empty(t, h.sender.SentEmails())

	require.Len(t, exec.ExecutionLog, 1)
	assert.Equal(t, "condition_not_met", exec.ExecutionLog[0].Result["reason"])

	stats := h.workflowStats(t, "wf-onboarding")
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, int64(0), stats.Active)
}

func TestConditionFalseJumpsToElseTarget(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustPutSubject(t, &workflow.Subject{
		ID:         "sub-1",
		Email:      "ada@example.com",
		Attributes: map[string]string{"plan": "basic"},
	})
	h.mustCreateWorkflow(t, onboarding(
		conditionStep("check-plan", "plan", workflow.OpEquals, "premium", "basic-offer"),
		emailStep("premium-offer", "Upgrade perks", "Enjoy"),
		emailStep("basic-offer", "Try premium", "Upgrade today"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, exec.Status)
	require.Len(t, h.sender.SentEmails(), 1)
	assert.Equal(t, "Try premium", h.sender.SentEmails()[0].Subject)
}

func TestConditionMissingAttributeSkipsAndAdvances(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// No "plan" attribute at all. That is missing data, not a false
	// comparison; the step is skipped and the sequence continues.
	h.mustPutSubject(t, &workflow.Subject{ID: "sub-1", Email: "ada@example.com"})
	h.mustCreateWorkflow(t, onboarding(
		conditionStep("check-plan", "plan", workflow.OpEquals, "premium", ""),
		emailStep("premium-offer", "Upgrade perks", "Enjoy"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, exec.Status)
	require.Len(t, h.sender.SentEmails(), 1)
	assert.Equal(t, "Upgrade perks", h.sender.SentEmails()[0].Subject)

	require.Len(t, exec.ExecutionLog, 2)
	assert.Equal(t, workflow.LogSkipped, exec.ExecutionLog[0].Status)
	assert.NotContains(t, exec.ExecutionLog[0].Result, "reason")
}

func TestConditionTrueContinuesInOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustPutSubject(t, &workflow.Subject{
		ID:         "sub-1",
		Email:      "ada@example.com",
		Attributes: map[string]string{"visits": "12"},
	})
	h.mustCreateWorkflow(t, onboarding(
		conditionStep("frequent", "visits", workflow.OpGreaterThan, "10", ""),
		tagStep("mark-loyal", "loyal"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, exec.Status)

	subject, err := h.stores.Subjects.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Contains(t, subject.Tags, "loyal")
}

func TestMessageFailureFailsExecutionAfterRetries(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.sender.FailEmail = errors.New("provider down")
	h.mustCreateWorkflow(t, onboarding(
		emailStep("welcome", "Welcome!", "Hi there"),
		tagStep("mark", "welcomed"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusFailed, exec.Status)
	assert.Equal(t, 0, exec.CurrentStepIndex)
	require.Len(t, exec.ExecutionLog, 1)
	assert.Equal(t, workflow.LogFailed, exec.ExecutionLog[0].Status)
	assert.Equal(t, 3, exec.ExecutionLog[0].Attempts)
	assert.Contains(t, exec.ExecutionLog[0].Error, "provider down")

	// The attempt is in the delivery log even though it failed.
	deliveries, err := h.stores.Deliveries.ListByExecution(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, workflow.DeliveryFailed, deliveries[0].Status)

	// Failure does not count as a completion.
	stats := h.workflowStats(t, "wf-onboarding")
	assert.Equal(t, int64(0), stats.Completed)
}

func TestMessageWithoutRecipientIsSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// SMS step, subject has no phone.
	h.mustPutSubject(t, &workflow.Subject{ID: "sub-1", Email: "ada@example.com"})
	h.mustCreateWorkflow(t, onboarding(
		workflow.StepDefinition{
			ID:   "sms-reminder",
			Type: workflow.StepMessage,
			Message: &workflow.MessageStep{
				Channel: workflow.ChannelSMS,
				Content: "See you soon",
			},
		},
		tagStep("mark", "reminded"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusCompleted, exec.Status)
	assert.Equal(t, workflow.LogSkipped, exec.ExecutionLog[0].Status)
	assert.Empty(t, h.sender.SentSMS())
}

func TestTaskStepCreatesTask(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		taskStep("call", "Call the client", "front-desk"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, exec.Status)

	tasks, err := h.stores.Tasks.ListByExecution(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Call the client", tasks[0].Description)
	assert.Equal(t, "front-desk", tasks[0].Assignee)
	assert.Equal(t, workflow.TaskPending, tasks[0].Status)
}

func TestEnrollUnknownWorkflow(t *testing.T) {
	h := newHarness(t)

	_, err := h.engine.Enroll(context.Background(), "missing", "sub-1", "ada@example.com")
	assert.ErrorIs(t, err, workflow.ErrNotFound)
}

func TestEnrollTwiceRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		delayStep("wait", 1, workflow.UnitDays),
	))

	_, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	_, err = h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	assert.ErrorIs(t, err, workflow.ErrAlreadyEnrolled)
}

func TestEnrollIntoInactiveWorkflowDefersExecution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	def := onboarding(emailStep("welcome", "Welcome!", "Hi there"))
	def.IsActive = false
	h.mustCreateWorkflow(t, def)

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	assert.Equal(t, workflow.StatusActive, exec.Status)
	assert.Equal(t, 0, exec.CurrentStepIndex)
	assert.Empty(t, h.sender.SentEmails())

	// Reactivating and advancing picks it up.
	require.NoError(t, h.stores.Workflows.SetActive(ctx, "wf-onboarding", true))
	exec, err = h.engine.Advance(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, exec.Status)
	assert.Len(t, h.sender.SentEmails(), 1)
}

func TestEnrollByTriggerMatchesActiveWorkflowsOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// wf-a suspends on its delay so the execution is still active when the
	// trigger fires again.
	a := onboarding(tagStep("mark-a", "a"), delayStep("wait-a", 1, workflow.UnitDays))
	a.ID, a.Name = "wf-a", "A"
	h.mustCreateWorkflow(t, a)

	b := onboarding(tagStep("mark-b", "b"))
	b.ID, b.Name = "wf-b", "B"
	b.IsActive = false
	h.mustCreateWorkflow(t, b)

	c := onboarding(tagStep("mark-c", "c"))
	c.ID, c.Name, c.Trigger = "wf-c", "C", workflow.TriggerNoShow
	h.mustCreateWorkflow(t, c)

	h.mustPutSubject(t, &workflow.Subject{ID: "sub-1", Email: "ada@example.com"})

	execs, err := h.engine.EnrollByTrigger(ctx, workflow.TriggerNewSubject, "sub-1", "ada@example.com")
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, "wf-a", execs[0].WorkflowID)
	assert.Equal(t, workflow.StatusActive, execs[0].Status)

	// Re-triggering does not double-enroll into still-active executions.
	again, err := h.engine.EnrollByTrigger(ctx, workflow.TriggerNewSubject, "sub-1", "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestEnrollByTriggerContinuesPastFailingWorkflow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// An empty definition cannot enroll; the next workflow on the trigger
	// still must.
	broken := &workflow.WorkflowDefinition{
		ID:       "wf-broken",
		Name:     "Broken",
		Trigger:  workflow.TriggerNewSubject,
		IsActive: true,
		Steps:    []workflow.StepDefinition{},
	}
	require.NoError(t, h.stores.Workflows.Create(ctx, broken))

	good := onboarding(tagStep("mark", "welcomed"))
	good.ID, good.Name = "wf-good", "Good"
	h.mustCreateWorkflow(t, good)

	h.mustPutSubject(t, &workflow.Subject{ID: "sub-1", Email: "ada@example.com"})

	execs, err := h.engine.EnrollByTrigger(ctx, workflow.TriggerNewSubject, "sub-1", "ada@example.com")
	require.ErrorIs(t, err, workflow.ErrNoSteps)
	require.Len(t, execs, 1)
	assert.Equal(t, "wf-good", execs[0].WorkflowID)

	subject, err := h.stores.Subjects.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.Contains(t, subject.Tags, "welcomed")
}

func TestCancelReleasesActiveSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		delayStep("wait", 1, workflow.UnitWeeks),
	))
	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	cancelled, err := h.engine.Cancel(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCancelled, cancelled.Status)

	stats := h.workflowStats(t, "wf-onboarding")
	assert.Equal(t, int64(1), stats.TotalEnrolled)
	assert.Equal(t, int64(0), stats.Active)
	assert.Equal(t, int64(0), stats.Completed)

	// Cancelled is terminal.
	_, err = h.engine.Cancel(ctx, exec.ID)
	assert.ErrorIs(t, err, workflow.ErrTerminal)

	// And the sweep never resurrects it.
	h.clock.Advance(14 * 24 * time.Hour)
	result, err := h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Due)
}

func TestPauseAndResume(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		delayStep("wait", 1, workflow.UnitHours),
		emailStep("follow-up", "Checking in", "Hello"),
	))
	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	_, err = h.engine.Pause(ctx, exec.ID)
	require.NoError(t, err)

	// Due but paused: the sweep leaves it alone.
	h.clock.Advance(2 * time.Hour)
	result, err := h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Due)
	assert.Empty(t, h.sender.SentEmails())

	resumed, err := h.engine.Resume(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, resumed.Status)
	assert.Len(t, h.sender.SentEmails(), 1)
}

func TestClaimConflictAbortsAdvance(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		delayStep("wait", 1, workflow.UnitHours),
		emailStep("follow-up", "Checking in", "Hello"),
	))
	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)
	h.clock.Advance(time.Hour)

	// A competing writer claims the execution first; a second claim against
	// the same version loses.
	require.NoError(t, h.stores.Executions.Claim(ctx, exec.ID, exec.Version))
	err = h.stores.Executions.Claim(ctx, exec.ID, exec.Version)
	assert.ErrorIs(t, err, workflow.ErrVersionConflict)

	// Save with a stale version is rejected the same way.
	stale := *exec
	err = h.stores.Executions.Save(ctx, &stale)
	assert.ErrorIs(t, err, workflow.ErrVersionConflict)
}

func TestElseJumpCycleFailsExecution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustPutSubject(t, &workflow.Subject{
		ID:         "sub-1",
		Attributes: map[string]string{"plan": "basic"},
	})
	// Two conditions whose else targets point at each other.
	h.mustCreateWorkflow(t, onboarding(
		conditionStep("a", "plan", workflow.OpEquals, "premium", "b"),
		conditionStep("b", "plan", workflow.OpEquals, "gold", "a"),
	))

	exec, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusFailed, exec.Status)
}

func TestSweepBatchSizeCapsOnePass(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		delayStep("wait", 1, workflow.UnitMinutes),
	))

	other := onboarding(delayStep("wait", 1, workflow.UnitMinutes))
	other.ID, other.Name = "wf-other", "Other"
	h.mustCreateWorkflow(t, other)

	third := onboarding(delayStep("wait", 1, workflow.UnitMinutes))
	third.ID, third.Name = "wf-third", "Third"
	h.mustCreateWorkflow(t, third)

	for _, wf := range []string{"wf-onboarding", "wf-other", "wf-third"} {
		_, err := h.engine.Enroll(ctx, wf, "sub-1", "ada@example.com")
		require.NoError(t, err)
	}

	small := workflow.DefaultConfig()
	small.SweepBatchSize = 2
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := workflow.NewEngine(small, h.stores, h.sender, nil, h.clock, nil, logger)
	require.NoError(t, err)

	h.clock.Advance(time.Minute)
	result, err := engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.SweepResult{Due: 2, Advanced: 2}, result)

	result, err = engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.SweepResult{Due: 1, Advanced: 1}, result)
}

// conflictingExecutions loses the claim race a fixed number of times before
// delegating to the real store.
type conflictingExecutions struct {
	workflow.ExecutionStore
	conflicts int
}

func (s *conflictingExecutions) Claim(ctx context.Context, id string, version int64) error {
	if s.conflicts > 0 {
		s.conflicts--
		return workflow.ErrVersionConflict
	}
	return s.ExecutionStore.Claim(ctx, id, version)
}

func TestSweepCountsLostClaimsAsSkipped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(
		delayStep("wait", 1, workflow.UnitMinutes),
		emailStep("follow-up", "Checking in", "Hello"),
	))
	_, err := h.engine.Enroll(ctx, "wf-onboarding", "sub-1", "ada@example.com")
	require.NoError(t, err)

	h.stores.Executions = &conflictingExecutions{ExecutionStore: h.stores.Executions, conflicts: 1}

	// A lost claim is contention, not breakage.
	h.clock.Advance(time.Minute)
	result, err := h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.SweepResult{Due: 1, Skipped: 1}, result)
	assert.Empty(t, h.sender.SentEmails())

	// The winner here never advanced, so the next sweep picks it up.
	result, err = h.engine.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, workflow.SweepResult{Due: 1, Advanced: 1}, result)
	assert.Len(t, h.sender.SentEmails(), 1)
}

func TestActiveCountNeverGoesNegative(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.mustCreateWorkflow(t, onboarding(tagStep("mark", "done")))

	// Apply a completion and a cancellation against a workflow with no
	// active executions.
	require.NoError(t, h.stores.Workflows.ApplyCompleted(ctx, "wf-onboarding"))
	require.NoError(t, h.stores.Workflows.ApplyCancelled(ctx, "wf-onboarding"))

	stats := h.workflowStats(t, "wf-onboarding")
	assert.Equal(t, int64(0), stats.Active)
}

func (h *harness) workflowStats(t *testing.T, id string) workflow.WorkflowStats {
	t.Helper()
	def, err := h.stores.Workflows.Get(context.Background(), id)
	require.NoError(t, err)
	return def.Stats
}
