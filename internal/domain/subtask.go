package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SubtaskStatus represents the progress of a subtask.
type SubtaskStatus string

// Possible subtask status values
const (
	SubtaskStatusNew        SubtaskStatus = "new"
	SubtaskStatusInProgress SubtaskStatus = "in_progress"
	SubtaskStatusDone       SubtaskStatus = "done"
)

// SubtaskUnit is the unit a subtask value is stored in.
type SubtaskUnit string

// Possible subtask units
const (
	SubtaskUnitMeter       SubtaskUnit = "m"
	SubtaskUnitSquareMeter SubtaskUnit = "m2"
)

// Subtask is a single value to be measured within a task.
type Subtask struct {
	ID        uuid.UUID       `json:"id"`
	TaskID    uuid.UUID       `json:"task_id"`
	Title     string          `json:"title"`
	Type      MeasurementType `json:"type"`
	Value     *float64        `json:"value,omitempty"`
	Unit      SubtaskUnit     `json:"unit"`
	Status    SubtaskStatus   `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewSubtask creates a new Subtask whose unit follows its type.
func NewSubtask(taskID uuid.UUID, title string, measurementType MeasurementType) (*Subtask, error) {
	now := time.Now().UTC()
	subtask := &Subtask{
		ID:        uuid.New(),
		TaskID:    taskID,
		Title:     title,
		Type:      measurementType,
		Unit:      UnitFor(measurementType),
		Status:    SubtaskStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := subtask.Validate(); err != nil {
		return nil, err
	}

	return subtask, nil
}

// Validate checks if the Subtask has valid data.
func (s *Subtask) Validate() error {
	if s.ID == uuid.Nil {
		return fmt.Errorf("%w: subtask ID", ErrInvalidID)
	}

	if s.TaskID == uuid.Nil {
		return fmt.Errorf("%w: subtask task ID", ErrInvalidID)
	}

	if !IsValidMeasurementType(s.Type) {
		return ErrInvalidMeasurementType
	}

	switch s.Status {
	case SubtaskStatusNew, SubtaskStatusInProgress:
	case SubtaskStatusDone:
		if s.Value == nil {
			return ErrSubtaskValueMissing
		}
	default:
		return ErrInvalidSubtaskStatus
	}

	return nil
}

// Complete stores value and marks the subtask done.
func (s *Subtask) Complete(value float64) {
	s.Value = &value
	s.Status = SubtaskStatusDone
	s.UpdatedAt = time.Now().UTC()
}

// FormattedValue renders the stored value with its unit, or "not measured".
func (s *Subtask) FormattedValue() string {
	if s.Value == nil {
		return "not measured"
	}
	if s.Unit == SubtaskUnitSquareMeter {
		return fmt.Sprintf("%.2f m²", *s.Value)
	}
	return fmt.Sprintf("%.2f m", *s.Value)
}

// UnitFor returns the subtask unit matching a measurement type.
func UnitFor(t MeasurementType) SubtaskUnit {
	if t == MeasurementTypeArea {
		return SubtaskUnitSquareMeter
	}
	return SubtaskUnitMeter
}
