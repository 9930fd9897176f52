package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumabook/automation/internal/database/mongodb"
	"github.com/lumabook/automation/internal/workflow"
	"github.com/lumabook/automation/internal/workflow/repository"
)

func setupMongoStores(t *testing.T) *workflow.Stores {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := mongodb.SetupTestContainer(t)
	client := tc.NewTestClient(t, "automation_test")

	require.NoError(t, repository.EnsureIndexes(context.Background(), client.Database()))
	return repository.MongoStores(client.Database())
}

func TestMongoWorkflowStoreStatsTransitions(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()

	def := &workflow.WorkflowDefinition{
		ID:       "wf-1",
		Name:     "Onboarding",
		Trigger:  workflow.TriggerNewSubject,
		IsActive: true,
		Steps: []workflow.StepDefinition{
			{ID: "mark", Type: workflow.StepTag, Tag: &workflow.TagStep{Tags: []string{"new"}}},
		},
	}
	require.NoError(t, stores.Workflows.Create(ctx, def))

	require.NoError(t, stores.Workflows.ApplyEnrolled(ctx, "wf-1"))
	require.NoError(t, stores.Workflows.ApplyEnrolled(ctx, "wf-1"))
	require.NoError(t, stores.Workflows.ApplyCompleted(ctx, "wf-1"))
	require.NoError(t, stores.Workflows.ApplyCancelled(ctx, "wf-1"))
	// Extra decrements must not push active below zero.
	require.NoError(t, stores.Workflows.ApplyCancelled(ctx, "wf-1"))
	require.NoError(t, stores.Workflows.ApplyCompleted(ctx, "wf-1"))

	got, err := stores.Workflows.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Stats.TotalEnrolled)
	assert.Equal(t, int64(2), got.Stats.Completed)
	assert.Equal(t, int64(0), got.Stats.Active)

	// Upsert with fresh steps keeps the counters.
	def.Steps = append(def.Steps, workflow.StepDefinition{
		ID: "extra", Type: workflow.StepTag, Tag: &workflow.TagStep{Tags: []string{"x"}},
	})
	require.NoError(t, stores.Workflows.Upsert(ctx, def))
	got, err = stores.Workflows.Get(ctx, "wf-1")
	require.NoError(t, err)
	assert.Len(t, got.Steps, 2)
	assert.Equal(t, int64(2), got.Stats.TotalEnrolled)
}

func TestMongoExecutionStoreClaimAndSave(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	exec := &workflow.Execution{
		ID:         "exec-1",
		WorkflowID: "wf-1",
		SubjectID:  "sub-1",
		Status:     workflow.StatusActive,
		StartedAt:  now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, stores.Executions.Create(ctx, exec))

	require.NoError(t, stores.Executions.Claim(ctx, "exec-1", 0))
	err := stores.Executions.Claim(ctx, "exec-1", 0)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	exec.Version = 1
	exec.CurrentStepIndex = 1
	require.NoError(t, stores.Executions.Save(ctx, exec))
	assert.Equal(t, int64(2), exec.Version)

	stale := *exec
	stale.Version = 1
	err = stores.Executions.Save(ctx, &stale)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	got, err := stores.Executions.Get(ctx, "exec-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentStepIndex)
	assert.Equal(t, int64(2), got.Version)
}

func TestMongoExecutionStoreListDue(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	for _, tc := range []struct {
		id     string
		status workflow.ExecutionStatus
		next   *time.Time
	}{
		{"due", workflow.StatusActive, &past},
		{"not-due", workflow.StatusActive, &future},
		{"paused", workflow.StatusPaused, &past},
		{"running", workflow.StatusActive, nil},
	} {
		exec := &workflow.Execution{
			ID:                tc.id,
			WorkflowID:        "wf-1",
			SubjectID:         "sub-" + tc.id,
			Status:            tc.status,
			StartedAt:         past,
			NextExecutionTime: tc.next,
			CreatedAt:         past,
			UpdatedAt:         past,
		}
		require.NoError(t, stores.Executions.Create(ctx, exec))
	}

	due, err := stores.Executions.ListDue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "due", due[0].ID)
}

func TestMongoSubjectStoreAddTags(t *testing.T) {
	stores := setupMongoStores(t)
	ctx := context.Background()

	require.NoError(t, stores.Subjects.Put(ctx, &workflow.Subject{
		ID:    "sub-1",
		Email: "ada@example.com",
		Tags:  []string{"lead"},
	}))

	require.NoError(t, stores.Subjects.AddTags(ctx, "sub-1", []string{"lead", "vip"}))

	got, err := stores.Subjects.Get(ctx, "sub-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lead", "vip"}, got.Tags)

	err = stores.Subjects.AddTags(ctx, "missing", []string{"x"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
