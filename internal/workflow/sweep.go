package workflow

import (
	"context"
	"errors"
	"log/slog"
)

// SweepResult summarizes one sweep pass.
type SweepResult struct {
	// Due is how many suspended executions the pass picked up.
	Due int `json:"due"`
	// Advanced is how many of them were advanced.
	Advanced int `json:"advanced"`
	// Skipped is how many claims were lost to a concurrent caller. The winner
	// advanced the execution, so nothing is stuck; a high count means sweep
	// contention, not breakage.
	Skipped int `json:"skipped"`
	// Failed is how many advances returned a genuine error.
	Failed int `json:"failed"`
}

// Sweep advances every due execution, at most SweepBatchSize of them. One
// execution failing to advance never blocks the rest of the batch.
func (e *Engine) Sweep(ctx context.Context) (SweepResult, error) {
	started := e.clock.Now()

	due, err := e.stores.Executions.ListDue(ctx, started, e.config.SweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Due: len(due)}
	for i := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if _, err := e.Advance(ctx, due[i].ID); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				// Another sweeper or an API call got there first.
				result.Skipped++
				e.logger.Debug("sweep claim lost",
					slog.String("execution_id", due[i].ID))
				continue
			}
			result.Failed++
			e.logger.Error("sweep advance failed",
				slog.String("execution_id", due[i].ID),
				slog.String("error", err.Error()))
			continue
		}
		result.Advanced++
	}

	elapsed := e.clock.Now().Sub(started)
	e.metrics.SweepObserved(result.Due, result.Advanced, result.Skipped, result.Failed, elapsed)
	if result.Due > 0 {
		e.logger.Info("sweep completed",
			slog.Int("due", result.Due),
			slog.Int("advanced", result.Advanced),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed),
			slog.Duration("elapsed", elapsed))
	}
	return result, nil
}
