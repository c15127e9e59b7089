package events

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryEventEmitter(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("emit event with no handlers", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(logger)
		event, err := NewJobRequest("photo_processing", map[string]string{"photo_id": "x"})
		require.NoError(t, err)

		assert.NoError(t, emitter.EmitEvent(context.Background(), event))
	})

	t.Run("emit event with successful handlers", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(logger)
		handler1 := &MockEventHandler{}
		handler2 := &MockEventHandler{}
		emitter.RegisterHandler(handler1)
		emitter.RegisterHandler(handler2)

		event, err := NewJobRequest("photo_processing", map[string]string{"photo_id": "x"})
		require.NoError(t, err)

		require.NoError(t, emitter.EmitEvent(context.Background(), event))
		assert.Equal(t, 1, handler1.HandledCount)
		assert.Equal(t, 1, handler2.HandledCount)
		assert.Equal(t, event, handler2.LastEvent)
	})

	t.Run("failing handler does not stop delivery", func(t *testing.T) {
		t.Parallel()

		emitter := NewInMemoryEventEmitter(logger)
		failingHandler := &MockEventHandler{HandlerError: errors.New("handler error")}
		successHandler := &MockEventHandler{}
		emitter.RegisterHandler(failingHandler)
		emitter.RegisterHandler(successHandler)

		event, err := NewJobRequest("photo_processing", nil)
		require.NoError(t, err)

		err = emitter.EmitEvent(context.Background(), event)
		assert.EqualError(t, err, "handler error")
		assert.Equal(t, 1, failingHandler.HandledCount)
		assert.Equal(t, 1, successHandler.HandledCount)
	})
}

func TestInMemoryEventEmitterRoutesByJobType(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	photoHandler := &MockEventHandler{}
	allHandler := &MockEventHandler{}
	emitter.RegisterHandler(photoHandler, "photo_processing")
	emitter.RegisterHandler(allHandler)

	photoEvent, err := NewJobRequest("photo_processing", nil)
	require.NoError(t, err)
	otherEvent, err := NewJobRequest("thumbnail", nil)
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), photoEvent))
	require.NoError(t, emitter.EmitEvent(context.Background(), otherEvent))

	assert.Equal(t, 1, photoHandler.HandledCount)
	assert.Equal(t, photoEvent, photoHandler.LastEvent)
	assert.Equal(t, 2, allHandler.HandledCount)
}

func TestInMemoryEventEmitterJoinsHandlerErrors(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(slog.New(slog.NewTextHandler(io.Discard, nil)))
	errFirst := errors.New("queue full")
	errSecond := errors.New("queue closed")
	emitter.RegisterHandler(&MockEventHandler{HandlerError: errFirst})
	emitter.RegisterHandler(&MockEventHandler{HandlerError: errSecond})

	event, err := NewJobRequest("photo_processing", nil)
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, errFirst)
	assert.ErrorIs(t, err, errSecond)
}
