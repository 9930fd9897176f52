// Package workflow implements the automation engine: persisted workflow
// definitions, durable executions, step executors, enrollment, and the
// scheduler sweep that resumes suspended executions.
package workflow

import (
	"time"
)

// TriggerType identifies the business event a workflow is attached to.
// Triggers are informational to the engine; it only executes steps once a
// subject is enrolled.
type TriggerType string

const (
	TriggerNewSubject       TriggerType = "new_subject"
	TriggerBookingCreated   TriggerType = "booking_created"
	TriggerBookingCompleted TriggerType = "booking_completed"
	TriggerNoShow           TriggerType = "no_show"
	TriggerManual           TriggerType = "manual"
	TriggerBirthday         TriggerType = "birthday"
	TriggerFollowUp         TriggerType = "follow_up"
)

// ValidTrigger reports whether t is a known trigger tag.
func ValidTrigger(t TriggerType) bool {
	switch t {
	case TriggerNewSubject, TriggerBookingCreated, TriggerBookingCompleted,
		TriggerNoShow, TriggerManual, TriggerBirthday, TriggerFollowUp:
		return true
	}
	return false
}

// WorkflowStats holds aggregate counters for a definition. Mutated only by
// the stats aggregator, never by the execution state machine.
type WorkflowStats struct {
	TotalEnrolled int64 `bson:"totalEnrolled" json:"total_enrolled"`
	Completed     int64 `bson:"completed"     json:"completed"`
	Active        int64 `bson:"active"        json:"active"`
}

// WorkflowDefinition is a named multi-step sequence. The engine treats
// definitions as read-only input except for the Stats block.
type WorkflowDefinition struct {
	ID          string           `bson:"_id"         json:"id"`
	Name        string           `bson:"name"        json:"name"`
	Description string           `bson:"description" json:"description"`
	Trigger     TriggerType      `bson:"trigger"     json:"trigger"`
	IsActive    bool             `bson:"isActive"    json:"is_active"`
	Steps       []StepDefinition `bson:"steps"       json:"steps"`
	Stats       WorkflowStats    `bson:"stats"       json:"stats"`
	CreatedAt   time.Time        `bson:"createdAt"   json:"created_at"`
	UpdatedAt   time.Time        `bson:"updatedAt"   json:"updated_at"`
}

// StepByID returns the 0-based index of the step with the given ID, or -1.
func (w *WorkflowDefinition) StepByID(stepID string) int {
	for i := range w.Steps {
		if w.Steps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// ExecutionStatus is the lifecycle state of an Execution.
type ExecutionStatus string

const (
	StatusActive    ExecutionStatus = "active"
	StatusCompleted ExecutionStatus = "completed"
	StatusPaused    ExecutionStatus = "paused"
	StatusFailed    ExecutionStatus = "failed"
	StatusCancelled ExecutionStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Execution is one enrollment of a subject into a workflow. It is the durable
// continuation: CurrentStepIndex, Status, and NextExecutionTime are all the
// state needed to resume after a process restart.
type Execution struct {
	ID               string          `bson:"_id"              json:"id"`
	WorkflowID       string          `bson:"workflowId"       json:"workflow_id"`
	SubjectID        string          `bson:"subjectId"        json:"subject_id"`
	SubjectContact   string          `bson:"subjectContact"   json:"subject_contact"`
	CurrentStepIndex int             `bson:"currentStepIndex" json:"current_step_index"`
	Status           ExecutionStatus `bson:"status"           json:"status"`
	StartedAt        time.Time       `bson:"startedAt"        json:"started_at"`
	CompletedAt      *time.Time      `bson:"completedAt,omitempty"       json:"completed_at,omitempty"`
	NextExecutionTime *time.Time     `bson:"nextExecutionTime,omitempty" json:"next_execution_time,omitempty"`
	ExecutionLog     []LogEntry      `bson:"executionLog"     json:"execution_log"`

	// Version is the optimistic-concurrency token. Every persisted mutation
	// is conditional on the stored version matching, so two callers can
	// never advance the same execution simultaneously.
	Version int64 `bson:"version" json:"version"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Suspended reports whether the execution is waiting for a resume time.
func (e *Execution) Suspended() bool {
	return e.Status == StatusActive && e.NextExecutionTime != nil
}

// DueAt reports whether a suspended execution is due to resume at now.
func (e *Execution) DueAt(now time.Time) bool {
	return e.NextExecutionTime == nil || !now.Before(*e.NextExecutionTime)
}

// LogStatus is the recorded outcome of one step attempt.
type LogStatus string

const (
	LogSuccess LogStatus = "success"
	LogFailed  LogStatus = "failed"
	LogSkipped LogStatus = "skipped"
)

// LogEntry is one record in an execution's append-only audit log. The log is
// never consulted for resumption; it exists for audit and debugging.
type LogEntry struct {
	StepID     string         `bson:"stepId"     json:"step_id"`
	StepType   StepType       `bson:"stepType"   json:"step_type"`
	ExecutedAt time.Time      `bson:"executedAt" json:"executed_at"`
	Status     LogStatus      `bson:"status"     json:"status"`
	Result     map[string]any `bson:"result,omitempty" json:"result,omitempty"`
	Error      string         `bson:"error,omitempty"  json:"error,omitempty"`
	Attempts   int            `bson:"attempts,omitempty" json:"attempts,omitempty"`
}

// Subject is a client record. The engine reads subjects for condition and
// message steps and writes only their tag set.
type Subject struct {
	ID         string            `bson:"_id"        json:"id"`
	Email      string            `bson:"email"      json:"email"`
	Phone      string            `bson:"phone"      json:"phone"`
	Tags       []string          `bson:"tags"       json:"tags"`
	Attributes map[string]string `bson:"attributes" json:"attributes"`
	CreatedAt  time.Time         `bson:"createdAt"  json:"created_at"`
	UpdatedAt  time.Time         `bson:"updatedAt"  json:"updated_at"`
}

// Attribute resolves a subject attribute by name, falling back to the
// well-known contact fields.
func (s *Subject) Attribute(field string) (string, bool) {
	switch field {
	case "email":
		return s.Email, s.Email != ""
	case "phone":
		return s.Phone, s.Phone != ""
	}
	v, ok := s.Attributes[field]
	return v, ok
}

// TaskStatus is the state of a human task produced by a task step.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskCompleted TaskStatus = "completed"
)

// Task is a record for a human, created by a task step.
type Task struct {
	ID          string     `bson:"_id"         json:"id"`
	Description string     `bson:"description" json:"description"`
	Assignee    string     `bson:"assignee"    json:"assignee"`
	SubjectID   string     `bson:"subjectId"   json:"subject_id"`
	WorkflowID  string     `bson:"workflowId"  json:"workflow_id"`
	ExecutionID string     `bson:"executionId" json:"execution_id"`
	StepID      string     `bson:"stepId"      json:"step_id"`
	Status      TaskStatus `bson:"status"      json:"status"`
	CreatedAt   time.Time  `bson:"createdAt"   json:"created_at"`
}

// DeliveryStatus is the recorded outcome of a message dispatch attempt.
type DeliveryStatus string

const (
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

// DeliveryLog records a single outbound message attempt. Dispatch is
// fire-and-forget; the attempt is logged regardless of downstream delivery.
type DeliveryLog struct {
	ID          string         `bson:"_id"         json:"id"`
	ExecutionID string         `bson:"executionId" json:"execution_id"`
	StepID      string         `bson:"stepId"      json:"step_id"`
	Channel     MessageChannel `bson:"channel"     json:"channel"`
	Recipient   string         `bson:"recipient"   json:"recipient"`
	Subject     string         `bson:"subject,omitempty" json:"subject,omitempty"`
	Body        string         `bson:"body"        json:"body"`
	Status      DeliveryStatus `bson:"status"      json:"status"`
	Error       string         `bson:"error,omitempty" json:"error,omitempty"`
	SentAt      time.Time      `bson:"sentAt"      json:"sent_at"`
}
