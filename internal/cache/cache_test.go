package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache(DefaultConfig())
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Keys)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(DefaultConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheJSONRoundTrip(t *testing.T) {
	c := NewMemoryCache(DefaultConfig())
	ctx := context.Background()

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, c.SetJSON(ctx, "k", payload{Name: "onboarding", Count: 3}, 0))

	var got payload
	require.NoError(t, c.GetJSON(ctx, "k", &got))
	assert.Equal(t, payload{Name: "onboarding", Count: 3}, got)
}

func TestMemoryCacheDeletePattern(t *testing.T) {
	c := NewMemoryCache(DefaultConfig())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "workflow:a", []byte("1"), 0))
	require.NoError(t, c.Set(ctx, "workflow:b", []byte("2"), 0))
	require.NoError(t, c.Set(ctx, "other:c", []byte("3"), 0))

	require.NoError(t, c.DeletePattern(ctx, "workflow:*"))

	_, err := c.Get(ctx, "workflow:a")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "other:c")
	assert.NoError(t, err)
}

func TestMemoryCacheMaxItemsEviction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxItems = 2
	c := NewMemoryCache(cfg)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	assert.Equal(t, int64(2), c.Stats().Keys)
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(Config{Type: "memcached"})
	assert.Error(t, err)
}
