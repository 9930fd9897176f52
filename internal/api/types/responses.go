package types

import (
	"github.com/lumabook/automation/internal/workflow"
)

// ErrorResponse is the error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// ListResponse wraps paginated list results.
type ListResponse[T any] struct {
	Items  []T `json:"items"`
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NewListResponse builds a list envelope.
func NewListResponse[T any](items []T, limit, offset int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items), Limit: limit, Offset: offset}
}

// EnrollResponse reports a single enrollment.
type EnrollResponse struct {
	ExecutionID string `json:"execution_id"`
	WorkflowID  string `json:"workflow_id"`
	Status      string `json:"status"`
}

// TriggerResponse reports the enrollments a business event produced.
type TriggerResponse struct {
	Trigger  string           `json:"trigger"`
	Enrolled []EnrollResponse `json:"enrolled"`
}

// StatsResponse exposes a workflow's aggregate counters.
type StatsResponse struct {
	WorkflowID    string `json:"workflow_id"`
	TotalEnrolled int64  `json:"total_enrolled"`
	Completed     int64  `json:"completed"`
	Active        int64  `json:"active"`
}

// StatsFromDefinition builds a stats response from a definition.
func StatsFromDefinition(def *workflow.WorkflowDefinition) StatsResponse {
	return StatsResponse{
		WorkflowID:    def.ID,
		TotalEnrolled: def.Stats.TotalEnrolled,
		Completed:     def.Stats.Completed,
		Active:        def.Stats.Active,
	}
}

// EnrollFromExecution builds an enroll response from an execution.
func EnrollFromExecution(exec *workflow.Execution) EnrollResponse {
	return EnrollResponse{
		ExecutionID: exec.ID,
		WorkflowID:  exec.WorkflowID,
		Status:      string(exec.Status),
	}
}
