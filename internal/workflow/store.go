package workflow

import (
	"context"
	"time"
)

// Store interfaces are defined here, on the consumer side, and implemented
// by the repository package (MongoDB and in-memory).

// WorkflowStore stores workflow definitions. Definitions are read-only to
// the engine apart from the stats counters, which are mutated through the
// Apply* methods only.
type WorkflowStore interface {
	Create(ctx context.Context, def *WorkflowDefinition) error
	Upsert(ctx context.Context, def *WorkflowDefinition) error
	Get(ctx context.Context, id string) (*WorkflowDefinition, error)
	List(ctx context.Context) ([]WorkflowDefinition, error)
	// ListActiveByTrigger returns every active definition whose trigger matches.
	ListActiveByTrigger(ctx context.Context, trigger TriggerType) ([]WorkflowDefinition, error)
	SetActive(ctx context.Context, id string, active bool) error

	// ApplyEnrolled atomically increments totalEnrolled and active.
	ApplyEnrolled(ctx context.Context, id string) error
	// ApplyCompleted atomically increments completed and decrements active,
	// never below zero.
	ApplyCompleted(ctx context.Context, id string) error
	// ApplyCancelled atomically decrements active, never below zero.
	ApplyCancelled(ctx context.Context, id string) error
}

// ExecutionStore stores executions. All mutations after Create are guarded
// by the execution's Version field: Claim and Save are conditional updates
// that fail when another caller got there first.
type ExecutionStore interface {
	Create(ctx context.Context, exec *Execution) error
	Get(ctx context.Context, id string) (*Execution, error)
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]Execution, error)
	ListByWorkflow(ctx context.Context, workflowID string, limit, offset int) ([]Execution, error)
	ListByStatus(ctx context.Context, status ExecutionStatus, limit, offset int) ([]Execution, error)
	// ListDue returns active executions whose nextExecutionTime is at or
	// before now, oldest first, capped at limit.
	ListDue(ctx context.Context, now time.Time, limit int) ([]Execution, error)

	// Claim bumps the version from the given value, establishing this caller
	// as the single writer.
	Claim(ctx context.Context, id string, version int64) error
	// Save persists the execution conditional on exec.Version matching the
	// stored document, then increments exec.Version in place.
	Save(ctx context.Context, exec *Execution) error
}

// SubjectStore reads client records. The engine writes nothing except tag
// merges.
type SubjectStore interface {
	Get(ctx context.Context, id string) (*Subject, error)
	Put(ctx context.Context, subject *Subject) error
	// AddTags merges tags into the subject's tag set without duplicates.
	AddTags(ctx context.Context, id string, tags []string) error
}

// TaskStore stores tasks produced by task steps.
type TaskStore interface {
	Create(ctx context.Context, task *Task) error
	ListByExecution(ctx context.Context, executionID string) ([]Task, error)
	ListByAssignee(ctx context.Context, assignee string) ([]Task, error)
}

// DeliveryStore stores outbound message attempts.
type DeliveryStore interface {
	Create(ctx context.Context, entry *DeliveryLog) error
	ListByExecution(ctx context.Context, executionID string) ([]DeliveryLog, error)
}

// Stores bundles every store the engine needs.
type Stores struct {
	Workflows  WorkflowStore
	Executions ExecutionStore
	Subjects   SubjectStore
	Tasks      TaskStore
	Deliveries DeliveryStore
}
