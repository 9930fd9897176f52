package event

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCallsSubscribersInOrder(t *testing.T) {
	d := NewDispatcher(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	var order []string
	d.Subscribe(EventExecutionEnrolled, func(_ context.Context, _ Event) error {
		order = append(order, "first")
		return nil
	})
	d.Subscribe(EventExecutionEnrolled, func(_ context.Context, _ Event) error {
		order = append(order, "second")
		return nil
	})
	d.Subscribe(EventExecutionCompleted, func(_ context.Context, _ Event) error {
		order = append(order, "other")
		return nil
	})

	d.Dispatch(context.Background(), NewEvent(EventExecutionEnrolled, nil))

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatchLogsHandlerErrors(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(slog.New(slog.NewTextHandler(&buf, nil)))

	d.Subscribe(EventMessageSent, func(_ context.Context, _ Event) error {
		return errors.New("handler boom")
	})

	d.Dispatch(context.Background(), NewEvent(EventMessageSent, map[string]any{"channel": "email"}))

	assert.Contains(t, buf.String(), "event handler failed")
	assert.Contains(t, buf.String(), "handler boom")
}

func TestRegisterLoggingCoversAllEventTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	d := NewDispatcher(logger)
	RegisterLogging(d, logger)

	for _, eventType := range allTypes {
		d.Dispatch(context.Background(), NewEvent(eventType, map[string]any{"execution_id": "e1"}))
	}

	out := buf.String()
	for _, eventType := range allTypes {
		assert.Contains(t, out, string(eventType))
	}
	require.Contains(t, out, "execution_id=e1")
}

func TestRegisterLoggingFailureLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	d := NewDispatcher(logger)
	RegisterLogging(d, logger)

	d.Dispatch(context.Background(), NewEvent(EventExecutionFailed, map[string]any{"reason": "step error"}))
	d.Dispatch(context.Background(), NewEvent(EventExecutionCompleted, nil))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, string(EventExecutionFailed))
	assert.NotContains(t, out, string(EventExecutionCompleted))
}

func TestNoOpDispatcherIgnoresEverything(t *testing.T) {
	d := NewNoOpDispatcher()

	called := false
	d.Subscribe(EventTaskCreated, func(_ context.Context, _ Event) error {
		called = true
		return nil
	})
	d.Dispatch(context.Background(), NewEvent(EventTaskCreated, nil))

	assert.False(t, called)
}
