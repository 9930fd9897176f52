// Package types defines API request and response types.
package types

import (
	"fmt"

	"github.com/lumabook/automation/internal/workflow"
)

// CreateWorkflowRequest creates a workflow definition from JSON. Step
// payloads use the definition's own wire shape; steps without an ID get a
// positional one assigned.
type CreateWorkflowRequest struct {
	ID          string                    `json:"id" validate:"omitempty,min=1,max=100"`
	Name        string                    `json:"name" validate:"required,min=1,max=255"`
	Description string                    `json:"description" validate:"omitempty,max=1000"`
	Trigger     string                    `json:"trigger" validate:"required"`
	IsActive    *bool                     `json:"is_active"`
	Steps       []workflow.StepDefinition `json:"steps" validate:"required,min=1"`
}

// ToDefinition converts the request into a definition, filling defaults.
// Structural validation stays with workflow.ValidateDefinition.
func (r *CreateWorkflowRequest) ToDefinition() *workflow.WorkflowDefinition {
	def := &workflow.WorkflowDefinition{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     workflow.TriggerType(r.Trigger),
		IsActive:    true,
		Steps:       r.Steps,
	}
	if def.ID == "" {
		def.ID = def.Name
	}
	if r.IsActive != nil {
		def.IsActive = *r.IsActive
	}
	for i := range def.Steps {
		if def.Steps[i].ID == "" {
			def.Steps[i].ID = fmt.Sprintf("step-%d", i+1)
		}
	}
	return def
}

// EnrollRequest enrolls a subject into one workflow.
type EnrollRequest struct {
	SubjectID string `json:"subject_id" validate:"required,min=1,max=100"`
	Contact   string `json:"contact" validate:"omitempty,max=320"`
}

// TriggerRequest fires a business event for a subject.
type TriggerRequest struct {
	SubjectID string `json:"subject_id" validate:"required,min=1,max=100"`
	Contact   string `json:"contact" validate:"omitempty,max=320"`
}

// DefaultLimit is the default page size for list endpoints.
const DefaultLimit = 20

// DefaultMaxLimit caps the page size for list endpoints.
const DefaultMaxLimit = 100
