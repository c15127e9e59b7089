package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProcessingState tracks a photo through the processing pipeline.
type ProcessingState string

// Possible processing states
const (
	ProcessingStateUploaded        ProcessingState = "uploaded"
	ProcessingStateDispatched      ProcessingState = "dispatched"
	ProcessingStateSucceeded       ProcessingState = "succeeded"
	ProcessingStateFailedRetryable ProcessingState = "failed_retryable"
	ProcessingStateFailedTerminal  ProcessingState = "failed_terminal"
)

// Marker is the detected reference sheet geometry in pixel space.
type Marker struct {
	Corners    [][2]float64 `json:"corners"`
	Confidence float64      `json:"confidence,omitempty"`
}

// PhotoMetadata is the closed set of attributes the upload flow and the
// processing pipeline attach to a photo. Every field is optional.
type PhotoMetadata struct {
	PixelsPerMm       *float64   `json:"pixels_per_mm,omitempty"`
	Marker            *Marker    `json:"marker,omitempty"`
	ProcessingError   string     `json:"processing_error,omitempty"`
	SimulationMode    bool       `json:"simulation_mode,omitempty"`
	OriginalName      string     `json:"original_name,omitempty"`
	MimeType          string     `json:"mime_type,omitempty"`
	Size              int64      `json:"size,omitempty"`
	UploadedBy        string     `json:"uploaded_by,omitempty"`
	ProcessedAt       *time.Time `json:"processed_at,omitempty"`
	AnnotatedImageURL string     `json:"annotated_image_url,omitempty"`
}

// Photo is an uploaded image belonging to a task.
type Photo struct {
	ID        uuid.UUID       `json:"id"`
	TaskID    uuid.UUID       `json:"task_id"`
	Path      string          `json:"path"`
	Width     int             `json:"width"`
	Height    int             `json:"height"`
	Exif      json.RawMessage `json:"exif,omitempty"`
	Processed bool            `json:"processed"`
	State     ProcessingState `json:"processing_state"`
	Attempts  int             `json:"attempts"`
	Metadata  PhotoMetadata   `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewPhoto creates a new unprocessed Photo in state uploaded.
// Returns an error if validation fails.
func NewPhoto(taskID uuid.UUID, path string, width, height int, metadata PhotoMetadata) (*Photo, error) {
	now := time.Now().UTC()
	photo := &Photo{
		ID:        uuid.New(),
		TaskID:    taskID,
		Path:      path,
		Width:     width,
		Height:    height,
		State:     ProcessingStateUploaded,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := photo.Validate(); err != nil {
		return nil, err
	}

	return photo, nil
}

// Validate checks if the Photo has valid data.
func (p *Photo) Validate() error {
	if p.ID == uuid.Nil {
		return fmt.Errorf("%w: photo ID", ErrInvalidID)
	}

	if p.TaskID == uuid.Nil {
		return fmt.Errorf("%w: photo task ID", ErrInvalidID)
	}

	if strings.TrimSpace(p.Path) == "" {
		return fmt.Errorf("%w: photo path", ErrEmptyContent)
	}

	if p.Width < 0 || p.Height < 0 {
		return fmt.Errorf("%w: photo dimensions cannot be negative", ErrValidation)
	}

	if !isValidProcessingState(p.State) {
		return ErrInvalidProcessingState
	}

	if p.Attempts < 0 {
		return fmt.Errorf("%w: attempts cannot be negative", ErrValidation)
	}

	return nil
}

// MarkDispatched records that attempt is about to call the vision service.
func (p *Photo) MarkDispatched(attempt int) {
	p.Attempts = attempt
	p.State = ProcessingStateDispatched
	p.touch()
}

// MarkSucceeded records a detection result. A nil scale leaves any previously
// stored scale untouched.
func (p *Photo) MarkSucceeded(pixelsPerMm *float64, marker *Marker, annotatedImageURL string) {
	now := time.Now().UTC()
	if pixelsPerMm != nil {
		p.Metadata.PixelsPerMm = pixelsPerMm
	}
	if marker != nil {
		p.Metadata.Marker = marker
	}
	if annotatedImageURL != "" {
		p.Metadata.AnnotatedImageURL = annotatedImageURL
	}
	p.Metadata.ProcessingError = ""
	p.Metadata.ProcessedAt = &now
	p.Processed = true
	p.State = ProcessingStateSucceeded
	p.touch()
}

// MarkNoMarker records that the vision service answered but found no usable
// marker. The outcome is final for this upload.
func (p *Photo) MarkNoMarker(reason string) {
	now := time.Now().UTC()
	p.Metadata.ProcessingError = reason
	p.Metadata.ProcessedAt = &now
	p.Processed = true
	p.State = ProcessingStateSucceeded
	p.touch()
}

// MarkSimulated records that processing was skipped because no real vision
// backend is configured.
func (p *Photo) MarkSimulated() {
	now := time.Now().UTC()
	p.Metadata.SimulationMode = true
	p.Metadata.ProcessedAt = &now
	p.Processed = true
	p.State = ProcessingStateSucceeded
	p.touch()
}

// MarkRetryableFailure records a transient failure without marking the photo processed.
func (p *Photo) MarkRetryableFailure(reason string) {
	p.Metadata.ProcessingError = reason
	p.Processed = false
	p.State = ProcessingStateFailedRetryable
	p.touch()
}

// MarkTerminalFailure records that every attempt has been used up.
func (p *Photo) MarkTerminalFailure(reason string) {
	p.Metadata.ProcessingError = reason
	p.Processed = false
	p.State = ProcessingStateFailedTerminal
	p.touch()
}

// ResetForReprocess returns the photo to its freshly uploaded state so the
// pipeline can run again. Upload attributes and the last known scale are kept.
func (p *Photo) ResetForReprocess() {
	p.Processed = false
	p.State = ProcessingStateUploaded
	p.Attempts = 0
	p.Metadata.ProcessingError = ""
	p.Metadata.SimulationMode = false
	p.Metadata.ProcessedAt = nil
	p.touch()
}

func (p *Photo) touch() {
	p.UpdatedAt = time.Now().UTC()
}

func isValidProcessingState(state ProcessingState) bool {
	switch state {
	case ProcessingStateUploaded, ProcessingStateDispatched, ProcessingStateSucceeded,
		ProcessingStateFailedRetryable, ProcessingStateFailedTerminal:
		return true
	default:
		return false
	}
}
