package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"
	"time"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

func (i *memoryItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// MemoryCache implements Cache with a mutex-guarded map. Used in tests and
// in single-process deployments that run without Redis.
type MemoryCache struct {
	mu     sync.RWMutex
	items  map[string]*memoryItem
	config Config
	hits   int64
	misses int64
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(cfg Config) *MemoryCache {
	return &MemoryCache{
		items:  make(map[string]*memoryItem),
		config: cfg,
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || item.expired(time.Now()) {
		if ok {
			delete(c.items, key)
		}
		c.misses++
		return nil, ErrCacheMiss
	}
	c.hits++

	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set stores a value in the cache with the given TTL.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.config.DefaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.config.MaxItems > 0 && len(c.items) >= c.config.MaxItems {
		c.evictOneLocked()
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	item := &memoryItem{value: stored}
	if ttl > 0 {
		item.expiresAt = time.Now().Add(ttl)
	}
	c.items[key] = item
	return nil
}

// evictOneLocked drops the entry closest to expiry.
func (c *MemoryCache) evictOneLocked() {
	var victim string
	var soonest time.Time
	for key, item := range c.items {
		if victim == "" || (!item.expiresAt.IsZero() && item.expiresAt.Before(soonest)) {
			victim = key
			soonest = item.expiresAt
		}
	}
	if victim != "" {
		delete(c.items, victim)
	}
}

// Delete removes a key from the cache.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// GetJSON retrieves and unmarshals a JSON value from the cache.
func (c *MemoryCache) GetJSON(ctx context.Context, key string, dest any) error {
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
func (c *MemoryCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	return c.Set(ctx, key, data, ttl)
}

// DeletePattern deletes all keys matching the glob pattern.
func (c *MemoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if ok, _ := path.Match(pattern, key); ok {
			delete(c.items, key)
		}
	}
	return nil
}

// Close releases the cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*memoryItem)
	return nil
}

// Health always succeeds for the memory backend.
func (c *MemoryCache) Health(_ context.Context) error {
	return nil
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:   c.hits,
		Misses: c.misses,
		Keys:   int64(len(c.items)),
	}
}
