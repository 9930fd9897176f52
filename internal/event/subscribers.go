package event

import (
	"context"
	"log/slog"
)

// allTypes lists every event type the engine emits.
var allTypes = []EventType{
	EventExecutionEnrolled,
	EventStepExecuted,
	EventExecutionSuspended,
	EventExecutionCompleted,
	EventExecutionFailed,
	EventExecutionCancelled,
	EventMessageSent,
	EventTaskCreated,
}

// RegisterLogging subscribes a handler that writes every engine event to the
// given logger. Failures log at warn, everything else at debug.
func RegisterLogging(d Dispatcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	handler := func(_ context.Context, ev Event) error {
		attrs := make([]any, 0, 2*len(ev.Payload)+2)
		attrs = append(attrs, slog.String("type", string(ev.Type)))
		for key, value := range ev.Payload {
			attrs = append(attrs, slog.Any(key, value))
		}
		if ev.Type == EventExecutionFailed {
			logger.Warn("engine event", attrs...)
		} else {
			logger.Debug("engine event", attrs...)
		}
		return nil
	}
	for _, eventType := range allTypes {
		d.Subscribe(eventType, handler)
	}
}
