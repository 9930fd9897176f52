// Package repository provides MongoDB and in-memory implementations of the
// engine's store interfaces.
package repository

import (
	"github.com/lumabook/automation/internal/workflow"
)

// Common errors returned by repository operations. These alias the engine's
// sentinels so callers on either side of the boundary can errors.Is against
// whichever package they already import.
var (
	ErrNotFound        = workflow.ErrNotFound
	ErrVersionConflict = workflow.ErrVersionConflict
	ErrDuplicateID     = workflow.ErrDuplicateID
)
