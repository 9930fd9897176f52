package shutdown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(cfg Config) *Manager {
	return NewManager(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestShutdownRunsHooksByDescendingPriority(t *testing.T) {
	m := testManager(DefaultConfig())

	var mu sync.Mutex
	var order []string
	record := func(name string) HookFunc {
		return func(ctx context.Context) error {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
			return nil
		}
	}

	m.RegisterFunc("cache", PriorityCache, record("cache"))
	m.RegisterFunc("http", PriorityHTTPServer, record("http"))
	m.RegisterFunc("db", PriorityDatabase, record("db"))

	m.Shutdown()

	assert.Equal(t, []string{"http", "db", "cache"}, order)
	assert.Empty(t, m.Errors())
}

func TestShutdownEqualPriorityRunsInParallel(t *testing.T) {
	m := testManager(DefaultConfig())

	var running atomic.Int32
	var peak atomic.Int32
	hook := func(ctx context.Context) error {
		n := running.Add(1)
		if n > peak.Load() {
			peak.Store(n)
		}
		time.Sleep(20 * time.Millisecond)
		running.Add(-1)
		return nil
	}

	m.RegisterFunc("a", PriorityDatabase, hook)
	m.RegisterFunc("b", PriorityDatabase, hook)

	m.Shutdown()

	assert.Equal(t, int32(2), peak.Load())
}

func TestShutdownCollectsHookErrors(t *testing.T) {
	m := testManager(DefaultConfig())

	boom := errors.New("connection refused")
	m.RegisterFunc("bad", PriorityDatabase, func(ctx context.Context) error { return boom })
	m.RegisterFunc("good", PriorityCache, func(ctx context.Context) error { return nil })

	m.Shutdown()

	errs := m.Errors()
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], boom)
}

func TestShutdownHookTimeout(t *testing.T) {
	m := testManager(Config{OverallTimeout: time.Second, PerHookTimeout: 20 * time.Millisecond})

	m.RegisterFunc("stuck", PriorityDatabase, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(time.Second)
		return nil
	})

	start := time.Now()
	m.Shutdown()

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	require.Len(t, m.Errors(), 1)
	assert.Contains(t, m.Errors()[0].Error(), "timed out")
}

func TestShutdownRecoversPanickingHook(t *testing.T) {
	m := testManager(DefaultConfig())

	m.RegisterFunc("panics", PriorityCache, func(ctx context.Context) error {
		panic("nil map write")
	})

	m.Shutdown()

	require.Len(t, m.Errors(), 1)
	assert.Contains(t, m.Errors()[0].Error(), "panicked")
}

func TestShutdownIsIdempotent(t *testing.T) {
	m := testManager(DefaultConfig())

	var calls atomic.Int32
	m.RegisterFunc("once", PriorityCache, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})

	m.Shutdown()
	m.Shutdown()

	assert.Equal(t, int32(1), calls.Load())
	select {
	case <-m.Done():
	default:
		t.Fatal("done channel not closed")
	}
}
