package shutdown

import (
	"context"
	"net/http"
	"time"
)

// stoppable matches the scheduler manager, which stops synchronously.
type stoppable interface {
	Stop()
}

// contextCloser matches the MongoDB client.
type contextCloser interface {
	Close(ctx context.Context) error
}

// closer matches the cache and other plain-close resources.
type closer interface {
	Close() error
}

// HTTPServerHook drains and stops an HTTP server.
func HTTPServerHook(server *http.Server, drainTimeout time.Duration) Hook {
	return Hook{
		Name:     "http-server",
		Priority: PriorityHTTPServer,
		Fn: func(ctx context.Context) error {
			server.SetKeepAlivesEnabled(false)
			ctx, cancel := context.WithTimeout(ctx, drainTimeout)
			defer cancel()
			return server.Shutdown(ctx)
		},
	}
}

// SchedulerHook stops the periodic sweep scheduler.
func SchedulerHook(s stoppable) Hook {
	return Hook{
		Name:     "scheduler",
		Priority: PriorityScheduler,
		Fn: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	}
}

// DatabaseHook closes the MongoDB client.
func DatabaseHook(db contextCloser) Hook {
	return Hook{
		Name:     "mongodb",
		Priority: PriorityDatabase,
		Fn:       db.Close,
	}
}

// CacheHook closes the cache backend.
func CacheHook(c closer) Hook {
	return Hook{
		Name:     "cache",
		Priority: PriorityCache,
		Fn: func(ctx context.Context) error {
			return c.Close()
		},
	}
}
