package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/geometry"
)

// MeasurementType is the geometric kind of a measurement or subtask target.
type MeasurementType string

// Possible measurement types
const (
	MeasurementTypeLength MeasurementType = "length"
	MeasurementTypeArea   MeasurementType = "area"
)

// Processor version tags distinguishing detector output from annotations.
const (
	ProcessorVersionAuto   = "auto-1.0.0"
	ProcessorVersionManual = "manual-1.0.0"
)

// Measurement is a length or area taken on a photo. Length measurements carry
// ValueMm; area measurements carry both ValueMm2 and ValueM2.
type Measurement struct {
	ID               uuid.UUID        `json:"id"`
	TaskID           uuid.UUID        `json:"task_id"`
	PhotoID          *uuid.UUID       `json:"photo_id,omitempty"`
	SubtaskID        *uuid.UUID       `json:"subtask_id,omitempty"`
	Type             MeasurementType  `json:"type"`
	ValueMm          *float64         `json:"value_mm,omitempty"`
	ValueMm2         *float64         `json:"value_mm2,omitempty"`
	ValueM2          *float64         `json:"value_m2,omitempty"`
	Points           []geometry.Point `json:"points"`
	Confidence       float64          `json:"confidence"`
	ProcessorVersion string           `json:"processor_version"`
	MaskPath         string           `json:"mask_path,omitempty"`
	AnnotatedPath    string           `json:"annotated_path,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// Validate checks if the Measurement has valid data, including that exactly
// the value group matching its type is populated.
func (m *Measurement) Validate() error {
	if m.ID == uuid.Nil {
		return fmt.Errorf("%w: measurement ID", ErrInvalidID)
	}

	if m.TaskID == uuid.Nil {
		return fmt.Errorf("%w: measurement task ID", ErrInvalidID)
	}

	switch m.Type {
	case MeasurementTypeLength:
		if m.ValueMm == nil || m.ValueMm2 != nil || m.ValueM2 != nil {
			return fmt.Errorf("%w: length measurement requires value_mm only", ErrInvalidMeasurementValue)
		}
	case MeasurementTypeArea:
		if m.ValueMm != nil || m.ValueMm2 == nil || m.ValueM2 == nil {
			return fmt.Errorf("%w: area measurement requires value_mm2 and value_m2 only", ErrInvalidMeasurementValue)
		}
	default:
		return ErrInvalidMeasurementType
	}

	if m.Confidence < 0 || m.Confidence > 1 {
		return ErrInvalidConfidence
	}

	if m.ProcessorVersion == "" {
		return fmt.Errorf("%w: processor version", ErrEmptyContent)
	}

	return nil
}

// Revise replaces the point set and confidence, the only mutable attributes.
func (m *Measurement) Revise(points []geometry.Point, confidence *float64) error {
	if confidence != nil {
		if *confidence < 0 || *confidence > 1 {
			return ErrInvalidConfidence
		}
		m.Confidence = *confidence
	}
	if points != nil {
		m.Points = points
	}
	m.UpdatedAt = time.Now().UTC()
	return nil
}

// ValueInUnit returns the value in the unit subtasks store: meters for length,
// square meters for area. The second result is false when no value is set.
func (m *Measurement) ValueInUnit() (float64, bool) {
	switch m.Type {
	case MeasurementTypeLength:
		if m.ValueMm == nil {
			return 0, false
		}
		return geometry.MmToM(*m.ValueMm), true
	case MeasurementTypeArea:
		if m.ValueM2 == nil {
			return 0, false
		}
		return *m.ValueM2, true
	default:
		return 0, false
	}
}

// FormattedValue renders the value for display, e.g. "1.23 m" or "4.56 m²".
func (m *Measurement) FormattedValue() string {
	value, ok := m.ValueInUnit()
	if !ok {
		return ""
	}
	if m.Type == MeasurementTypeArea {
		return fmt.Sprintf("%.2f m²", value)
	}
	return fmt.Sprintf("%.2f m", value)
}

// IsValidMeasurementType reports whether t is length or area.
func IsValidMeasurementType(t MeasurementType) bool {
	return t == MeasurementTypeLength || t == MeasurementTypeArea
}
