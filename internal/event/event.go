// Package event provides an in-process event dispatcher for engine
// lifecycle events.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EventType represents the type of an event.
type EventType string

// Execution lifecycle events.
const (
	EventExecutionEnrolled  EventType = "execution.enrolled"
	EventStepExecuted       EventType = "execution.step_executed"
	EventExecutionSuspended EventType = "execution.suspended"
	EventExecutionCompleted EventType = "execution.completed"
	EventExecutionFailed    EventType = "execution.failed"
	EventExecutionCancelled EventType = "execution.cancelled"
	EventMessageSent        EventType = "message.sent"
	EventTaskCreated        EventType = "task.created"
)

// Event represents an engine event.
type Event struct {
	Type      EventType
	Payload   map[string]any
	Timestamp time.Time
}

// NewEvent creates a new event with the current timestamp.
func NewEvent(eventType EventType, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// Handler is a function that handles an event.
type Handler func(ctx context.Context, event Event) error

// Dispatcher dispatches events to registered handlers.
type Dispatcher interface {
	// Dispatch sends an event to all handlers registered for its type.
	// Handler errors are logged, never propagated.
	Dispatch(ctx context.Context, event Event)

	// Subscribe registers a handler for the given event type.
	Subscribe(eventType EventType, handler Handler)
}

type dispatcher struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   *slog.Logger
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(logger *slog.Logger) Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &dispatcher{
		handlers: make(map[EventType][]Handler),
		logger:   logger.With(slog.String("component", "event")),
	}
}

func (d *dispatcher) Dispatch(ctx context.Context, event Event) {
	d.mu.RLock()
	handlers := d.handlers[event.Type]
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			d.logger.Warn("event handler failed",
				slog.String("type", string(event.Type)),
				slog.String("error", err.Error()))
		}
	}
}

func (d *dispatcher) Subscribe(eventType EventType, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// NoOpDispatcher discards all events. Useful in tests.
type NoOpDispatcher struct{}

// NewNoOpDispatcher creates a dispatcher that does nothing.
func NewNoOpDispatcher() Dispatcher {
	return &NoOpDispatcher{}
}

// Dispatch does nothing.
func (d *NoOpDispatcher) Dispatch(_ context.Context, _ Event) {}

// Subscribe does nothing.
func (d *NoOpDispatcher) Subscribe(_ EventType, _ Handler) {}
