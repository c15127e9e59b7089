package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/events"
)

// Dispatcher requests processing for photos through the event emitter.
type Dispatcher struct {
	emitter events.EventEmitter
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(emitter events.EventEmitter) *Dispatcher {
	return &Dispatcher{emitter: emitter}
}

// ProcessPhoto requests the first processing attempt for photoID. The
// request is fire-and-forget; processing happens on a runner worker.
func (d *Dispatcher) ProcessPhoto(ctx context.Context, photoID uuid.UUID) error {
	event, err := events.NewJobRequest(JobTypePhotoProcessing, Payload{PhotoID: photoID})
	if err != nil {
		return err
	}
	if err := d.emitter.EmitEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to request processing of photo %s: %w", photoID, err)
	}
	return nil
}
