// Package scheduler runs the periodic due-execution sweep over asynq.
package scheduler

import (
	"fmt"
	"time"
)

// Config holds scheduler and Redis connection settings.
type Config struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// Queue is the asynq queue the sweep task runs on.
	Queue string `yaml:"queue"`

	// Concurrency bounds parallel task processing. The sweep itself is a
	// single task; concurrency only matters if more task types are added.
	Concurrency int `yaml:"concurrency"`

	// SweepInterval is how often the periodic sweep fires.
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// SweepTimeout bounds one sweep pass.
	SweepTimeout time.Duration `yaml:"sweep_timeout"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		RedisAddr:       "localhost:6379",
		Queue:           "default",
		Concurrency:     4,
		SweepInterval:   time.Minute,
		SweepTimeout:    5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.RedisAddr == "" {
		return fmt.Errorf("scheduler: redis addr is required")
	}
	if c.Queue == "" {
		return fmt.Errorf("scheduler: queue is required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("scheduler: concurrency must be positive")
	}
	if c.SweepInterval < time.Second {
		return fmt.Errorf("scheduler: sweep interval must be at least 1s")
	}
	if c.SweepTimeout <= 0 {
		return fmt.Errorf("scheduler: sweep timeout must be positive")
	}
	return nil
}
