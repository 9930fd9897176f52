package workflow

import (
	"fmt"
	"time"

	"github.com/lumabook/automation/pkg/integration"
)

// Config holds the engine's tunables.
type Config struct {
	// StepTimeout bounds a single collaborator call (send, task create).
	StepTimeout time.Duration

	// Retry governs message delivery attempts.
	Retry integration.RetryConfig

	// SweepBatchSize caps how many due executions one sweep pass picks up.
	SweepBatchSize int

	// MaxJumps caps condition else-jumps within one advance, so a definition
	// whose else targets form a cycle fails instead of spinning.
	MaxJumps int
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		StepTimeout:    10 * time.Second,
		Retry:          integration.DefaultRetryConfig(),
		SweepBatchSize: 100,
		MaxJumps:       20,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.StepTimeout <= 0 {
		return fmt.Errorf("step timeout must be positive, got %s", c.StepTimeout)
	}
	if c.SweepBatchSize <= 0 {
		return fmt.Errorf("sweep batch size must be positive, got %d", c.SweepBatchSize)
	}
	if c.MaxJumps <= 0 {
		return fmt.Errorf("max jumps must be positive, got %d", c.MaxJumps)
	}
	return nil
}
