package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobRequest asks for a background job of Type to run with Payload.
type JobRequest struct {
	// ID is a unique identifier for this request, reused as the job ID
	ID uuid.UUID `json:"id"`

	// Type names the job that should be created
	Type string `json:"type"`

	// Payload contains the job-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the request was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the request payload into v.
func (e *JobRequest) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewJobRequest creates a JobRequest with the specified type and payload.
func NewJobRequest(jobType string, payload interface{}) (*JobRequest, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request payload: %w", jobType, err)
	}

	return &JobRequest{
		ID:        uuid.New(),
		Type:      jobType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler is implemented by components that act on job requests.
type EventHandler interface {
	// HandleEvent processes the given request within the provided context.
	HandleEvent(ctx context.Context, event *JobRequest) error
}

// EventEmitter is implemented by components that publish job requests.
type EventEmitter interface {
	// EmitEvent publishes the given request to all registered handlers.
	EmitEvent(ctx context.Context, event *JobRequest) error
}
