package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/jobs"
)

// JobTypePhotoProcessing identifies photo processing jobs.
const JobTypePhotoProcessing = "photo_processing"

// Payload is the serialized job input.
type Payload struct {
	PhotoID uuid.UUID `json:"photo_id"`
}

// photoProcessor is the part of Processor a job needs.
type photoProcessor interface {
	Process(ctx context.Context, photoID uuid.UUID, attempt int) (Outcome, error)
}

// PhotoProcessingJob runs one processing attempt for a photo.
type PhotoProcessingJob struct {
	id        uuid.UUID
	photoID   uuid.UUID
	attempt   int
	processor photoProcessor
}

var _ jobs.Job = (*PhotoProcessingJob)(nil)

// NewPhotoProcessingJob creates the job for attempt of photoID.
func NewPhotoProcessingJob(id, photoID uuid.UUID, attempt int, processor photoProcessor) *PhotoProcessingJob {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if attempt < 1 {
		attempt = 1
	}
	return &PhotoProcessingJob{id: id, photoID: photoID, attempt: attempt, processor: processor}
}

// ID implements jobs.Job
func (j *PhotoProcessingJob) ID() uuid.UUID { return j.id }

// Type implements jobs.Job
func (j *PhotoProcessingJob) Type() string { return JobTypePhotoProcessing }

// Attempt implements jobs.Job
func (j *PhotoProcessingJob) Attempt() int { return j.attempt }

// PhotoID returns the photo this job processes.
func (j *PhotoProcessingJob) PhotoID() uuid.UUID { return j.photoID }

// Payload implements jobs.Job
func (j *PhotoProcessingJob) Payload() []byte {
	data, _ := json.Marshal(Payload{PhotoID: j.photoID})
	return data
}

// Execute implements jobs.Job
func (j *PhotoProcessingJob) Execute(ctx context.Context) error {
	_, err := j.processor.Process(ctx, j.photoID, j.attempt)
	return err
}

// NewEnvelope returns the serialized form of attempt for photoID.
func NewEnvelope(photoID uuid.UUID, attempt int) (jobs.Envelope, error) {
	return jobs.NewEnvelope(JobTypePhotoProcessing, Payload{PhotoID: photoID}, attempt)
}

// JobFactory rebuilds photo processing jobs from envelopes.
func JobFactory(processor photoProcessor) jobs.Factory {
	return func(env jobs.Envelope) (jobs.Job, error) {
		var payload Payload
		if err := json.Unmarshal(env.Payload, &payload); err != nil {
			return nil, fmt.Errorf("invalid photo processing payload: %w", err)
		}
		if payload.PhotoID == uuid.Nil {
			return nil, fmt.Errorf("invalid photo processing payload: missing photo_id")
		}
		return NewPhotoProcessingJob(env.ID, payload.PhotoID, env.Attempt, processor), nil
	}
}

// Register installs the photo processing factory on registry.
func Register(registry *jobs.Registry, processor photoProcessor) {
	registry.Register(JobTypePhotoProcessing, JobFactory(processor))
}
