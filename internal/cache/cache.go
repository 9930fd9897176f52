// Package cache provides Redis and in-memory caching for workflow
// definitions, which are read on every advance but change rarely.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned when a key is not found in the cache.
var ErrCacheMiss = errors.New("cache miss")

// Cache is the backend interface. Both backends store opaque bytes; the
// JSON helpers are the only codec the engine uses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error

	// DeletePattern removes every key matching the glob pattern.
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
	Health(ctx context.Context) error
	Stats() Stats
}

// Stats holds cache hit counters.
type Stats struct {
	Hits   int64
	Misses int64
	Keys   int64
}

// Config holds cache configuration.
type Config struct {
	// Type is the cache backend type: "redis" or "memory".
	Type string

	// Redis settings.
	URL          string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int

	DefaultTTL time.Duration
	Prefix     string

	// Memory backend: maximum number of items (0 = unlimited).
	MaxItems int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Type:         "memory",
		DefaultTTL:   5 * time.Minute,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		MaxItems:     10000,
		Prefix:       "automation",
	}
}

// New creates a cache instance based on configuration.
func New(cfg Config) (Cache, error) {
	switch cfg.Type {
	case "redis":
		return NewRedisCache(cfg)
	case "memory", "":
		return NewMemoryCache(cfg), nil
	default:
		return nil, errors.New("unsupported cache type: " + cfg.Type)
	}
}
