package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache implements Cache on a Redis server.
type RedisCache struct {
	client *redis.Client
	config Config
	hits   int64
	misses int64
}

// NewRedisCache creates a Redis-backed cache.
func NewRedisCache(cfg Config) (*RedisCache, error) {
	var client *redis.Client

	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		if cfg.MinIdleConns > 0 {
			opts.MinIdleConns = cfg.MinIdleConns
		}
		if cfg.MaxRetries > 0 {
			opts.MaxRetries = cfg.MaxRetries
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:         "localhost:6379",
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
		})
	}

	return &RedisCache{client: client, config: cfg}, nil
}

func (c *RedisCache) prefixKey(key string) string {
	if c.config.Prefix != "" {
		return c.config.Prefix + ":" + key
	}
	return key
}

// Get retrieves a value from the cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.prefixKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&c.misses, 1)
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	atomic.AddInt64(&c.hits, 1)
	return data, nil
}

// Set stores a value in the cache with the given TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}
	if err := c.client.Set(ctx, c.prefixKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a key from the cache.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefixKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// GetJSON retrieves and unmarshals a JSON value from the cache.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("json unmarshal: %w", err)
	}
	return nil
}

// SetJSON marshals and stores a value as JSON in the cache.
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// DeletePattern deletes all keys matching the pattern.
func (c *RedisCache) DeletePattern(ctx context.Context, pattern string) error {
	prefixed := c.prefixKey(pattern)

	var cursor uint64
	var allKeys []string
	for {
		keys, next, err := c.client.Scan(ctx, cursor, prefixed, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		allKeys = append(allKeys, keys...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(allKeys) > 0 {
		if err := c.client.Del(ctx, allKeys...).Err(); err != nil {
			return fmt.Errorf("redis delete pattern: %w", err)
		}
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

// Health checks if Redis is reachable.
func (c *RedisCache) Health(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check: %w", err)
	}
	return nil
}

// Stats returns cache statistics.
func (c *RedisCache) Stats() Stats {
	var keys int64
	if size, err := c.client.DBSize(context.Background()).Result(); err == nil {
		keys = size
	}
	return Stats{
		Hits:   atomic.LoadInt64(&c.hits),
		Misses: atomic.LoadInt64(&c.misses),
		Keys:   keys,
	}
}
