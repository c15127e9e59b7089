package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Job represents a unit of background work to be processed
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier
	Type() string

	// Payload returns the job data serialized as JSON
	Payload() []byte

	// Attempt returns the 1-based attempt number this job represents
	Attempt() int

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// Envelope is the serializable form of a job. It is what the delay scheduler
// stores and what the registry turns back into a Job.
type Envelope struct {
	ID      uuid.UUID       `json:"id"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Attempt int             `json:"attempt"`
}

// NewEnvelope creates an envelope with a fresh ID for the given attempt.
func NewEnvelope(jobType string, payload interface{}, attempt int) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s payload: %w", jobType, err)
	}
	return Envelope{
		ID:      uuid.New(),
		Type:    jobType,
		Payload: data,
		Attempt: attempt,
	}, nil
}

// EnvelopeOf captures a job as an envelope.
func EnvelopeOf(job Job) Envelope {
	return Envelope{
		ID:      job.ID(),
		Type:    job.Type(),
		Payload: json.RawMessage(job.Payload()),
		Attempt: job.Attempt(),
	}
}
