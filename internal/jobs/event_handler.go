package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/measure-api/internal/events"
)

// EventHandler implements events.EventHandler by turning job request events
// into envelopes and submitting them to the runner.
type EventHandler struct {
	runner interface {
		SubmitEnvelope(ctx context.Context, env Envelope) error
	}
	logger *slog.Logger
}

// NewEventHandler creates a handler submitting to runner.
func NewEventHandler(
	runner interface {
		SubmitEnvelope(ctx context.Context, env Envelope) error
	},
	logger *slog.Logger,
) *EventHandler {
	return &EventHandler{
		runner: runner,
		logger: logger.With("component", "job_event_handler"),
	}
}

// HandleEvent submits the job the event requests as its first attempt.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.JobRequest) error {
	env := Envelope{
		ID:      event.ID,
		Type:    event.Type,
		Payload: event.Payload,
		Attempt: 1,
	}

	if err := h.runner.SubmitEnvelope(ctx, env); err != nil {
		h.logger.Error("failed to submit job",
			"error", err,
			"event_id", event.ID,
			"job_type", event.Type)
		return fmt.Errorf("failed to submit job for event %s: %w", event.ID, err)
	}

	h.logger.Debug("job submitted", "event_id", event.ID, "job_type", event.Type)
	return nil
}

var _ events.EventHandler = (*EventHandler)(nil)
