package workflow

import "errors"

// Errors shared across the engine and its persistence layer. The repository
// package aliases ErrNotFound so both sides of the boundary agree on the
// sentinel.
var (
	ErrNotFound         = errors.New("record not found")
	ErrVersionConflict  = errors.New("version conflict")
	ErrWorkflowInactive = errors.New("workflow is not active")
	ErrNoSteps          = errors.New("workflow has no steps")
	ErrAlreadyEnrolled  = errors.New("subject already enrolled in workflow")
	ErrTerminal         = errors.New("execution is in a terminal state")
	ErrDuplicateID      = errors.New("duplicate id")
)
