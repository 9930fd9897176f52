// Package integration provides resilience wrappers (retry, timeout) and HTTP
// clients for the external messaging providers.
package integration

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first one).
	// Default: 3
	MaxAttempts int

	// BaseDelay is the initial delay between retries.
	// Default: 100ms
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier is the factor by which the delay increases.
	// Default: 2.0
	Multiplier float64

	// Jitter adds randomness to delays to prevent thundering herd.
	// Value between 0 and 1 (e.g., 0.25 = ±25%).
	Jitter float64

	// RetryIf determines whether an error should be retried. If nil, every
	// error is retried.
	RetryIf func(err error) bool
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.25,
	}
}

// Retryer executes functions with exponential backoff.
type Retryer struct {
	config RetryConfig
	logger *slog.Logger
}

// NewRetryer creates a new retryer with the given configuration.
func NewRetryer(config RetryConfig) *Retryer {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.BaseDelay <= 0 {
		config.BaseDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 30 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Jitter < 0 || config.Jitter > 1 {
		config.Jitter = 0.25
	}

	return &Retryer{
		config: config,
		logger: slog.Default().With("component", "retryer"),
	}
}

// Do executes fn until it succeeds, the attempts are exhausted, or the
// context is cancelled. Returns the last error together with the attempt
// count so callers can surface it.
func (r *Retryer) Do(ctx context.Context, fn func(context.Context) error) (int, error) {
	var lastErr error
	delay := r.config.BaseDelay

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}
		if r.config.RetryIf != nil && !r.config.RetryIf(err) {
			return attempt, err
		}
		if attempt >= r.config.MaxAttempts {
			break
		}

		wait := r.applyJitter(delay)
		r.logger.Debug("retrying after failure",
			slog.Int("attempt", attempt),
			slog.Duration("delay", wait),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * r.config.Multiplier)
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	return r.config.MaxAttempts, lastErr
}

// applyJitter randomizes the delay by ±Jitter percent.
func (r *Retryer) applyJitter(delay time.Duration) time.Duration {
	if r.config.Jitter <= 0 {
		return delay
	}
	span := float64(delay) * r.config.Jitter
	offset := (rand.Float64()*2 - 1) * span
	jittered := time.Duration(float64(delay) + offset)
	if jittered < 0 {
		return 0
	}
	return jittered
}
