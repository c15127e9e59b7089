package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/phrazzld/measure-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelopeSubmitterFunc func(ctx context.Context, env Envelope) error

func (f envelopeSubmitterFunc) SubmitEnvelope(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

func TestEventHandlerSubmitsFirstAttempt(t *testing.T) {
	t.Parallel()

	var got Envelope
	handler := NewEventHandler(envelopeSubmitterFunc(func(ctx context.Context, env Envelope) error {
		got = env
		return nil
	}), testLogger())

	event, err := events.NewJobRequest("photo_processing", map[string]string{"photo_id": "p1"})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, "photo_processing", got.Type)
	assert.Equal(t, 1, got.Attempt)
	assert.JSONEq(t, `{"photo_id":"p1"}`, string(got.Payload))
}

func TestEventHandlerSubmitError(t *testing.T) {
	t.Parallel()

	handler := NewEventHandler(envelopeSubmitterFunc(func(ctx context.Context, env Envelope) error {
		return ErrQueueFull
	}), testLogger())

	event, err := events.NewJobRequest("photo_processing", nil)
	require.NoError(t, err)

	err = handler.HandleEvent(context.Background(), event)
	assert.True(t, errors.Is(err, ErrQueueFull))
}
