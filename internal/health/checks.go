package health

import (
	"context"
	"fmt"
	"time"
)

// Pinger is any dependency reachable through a ping. The MongoDB client and
// the cache backends both satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a bare ping function into a Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// PingChecker probes a Pinger with a bounded timeout.
type PingChecker struct {
	name     string
	target   Pinger
	timeout  time.Duration
	severity Severity
}

// NewPingChecker creates a checker for the named dependency.
func NewPingChecker(name string, target Pinger, severity Severity) *PingChecker {
	return &PingChecker{
		name:     name,
		target:   target,
		timeout:  time.Second,
		severity: severity,
	}
}

func (c *PingChecker) Name() string       { return c.name }
func (c *PingChecker) Severity() Severity { return c.severity }

func (c *PingChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.target.Ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("%s ping failed: %v", c.name, err),
		}
	}
	return CheckResult{Status: StatusHealthy}
}
