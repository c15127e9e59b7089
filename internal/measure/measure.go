// Package measure turns point sets into measured values and builds the
// Measurement entities recorded for manual annotations and detector output.
package measure

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/scale"
)

// DefaultPreliminaryConfidence is used when the detector reports success but
// omits a confidence for a suggestion.
const DefaultPreliminaryConfidence = 0.95

// ErrIncompletePreliminary is returned when a detector suggestion carries no
// value for its type.
var ErrIncompletePreliminary = errors.New("preliminary measurement has no value")

// Values holds the populated value group of a measurement.
type Values struct {
	ValueMm  *float64
	ValueMm2 *float64
	ValueM2  *float64
}

// Explicit reports whether v already carries a complete value group for t.
// Length needs value_mm; area needs both value_mm2 and value_m2.
func (v Values) Explicit(t domain.MeasurementType) bool {
	switch t {
	case domain.MeasurementTypeLength:
		return v.ValueMm != nil
	case domain.MeasurementTypeArea:
		return v.ValueMm2 != nil && v.ValueM2 != nil
	default:
		return false
	}
}

// only strips the fields that do not belong to t.
func (v Values) only(t domain.MeasurementType) Values {
	if t == domain.MeasurementTypeLength {
		return Values{ValueMm: v.ValueMm}
	}
	return Values{ValueMm2: v.ValueMm2, ValueM2: v.ValueM2}
}

// Compute derives the value group for t from points using s.
// Length requires exactly two points; area requires at least three.
func Compute(t domain.MeasurementType, points []geometry.Point, s scale.Scale) (Values, error) {
	if err := geometry.ValidatePoints(points); err != nil {
		return Values{}, err
	}

	switch t {
	case domain.MeasurementTypeLength:
		if len(points) != 2 {
			return Values{}, fmt.Errorf("%w: length needs exactly 2 points, got %d",
				geometry.ErrInvalidGeometry, len(points))
		}
		mm, err := s.LengthMm(geometry.Distance(points[0], points[1]))
		if err != nil {
			return Values{}, err
		}
		return Values{ValueMm: &mm}, nil

	case domain.MeasurementTypeArea:
		px, err := geometry.PolygonArea(points)
		if err != nil {
			return Values{}, err
		}
		mm2, err := s.AreaMm2(px)
		if err != nil {
			return Values{}, err
		}
		m2 := geometry.SquareMmToSquareM(mm2)
		return Values{ValueMm2: &mm2, ValueM2: &m2}, nil

	default:
		return Values{}, domain.ErrInvalidMeasurementType
	}
}

// Resolve returns the explicit values when they are complete, unchanged and
// without recomputation, and otherwise computes them from points.
func Resolve(t domain.MeasurementType, points []geometry.Point, explicit Values, s scale.Scale) (Values, error) {
	if explicit.Explicit(t) {
		return explicit.only(t), nil
	}
	return Compute(t, points, s)
}

// Preliminary is a detector suggestion ready to be recorded.
type Preliminary struct {
	Type          domain.MeasurementType
	Values        Values
	Confidence    *float64
	Points        []geometry.Point
	MaskPath      string
	AnnotatedPath string
}

// BuildPreliminary creates the automatic Measurement for a detector suggestion.
// A missing area unit is derived from the other one; a missing confidence
// defaults to DefaultPreliminaryConfidence and missing points to an empty set.
func BuildPreliminary(taskID, photoID uuid.UUID, p Preliminary) (*domain.Measurement, error) {
	if !domain.IsValidMeasurementType(p.Type) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidMeasurementType, p.Type)
	}

	values := p.Values.only(p.Type)
	if p.Type == domain.MeasurementTypeArea {
		switch {
		case values.ValueMm2 != nil && values.ValueM2 == nil:
			m2 := geometry.SquareMmToSquareM(*values.ValueMm2)
			values.ValueM2 = &m2
		case values.ValueM2 != nil && values.ValueMm2 == nil:
			mm2 := *values.ValueM2 * 1_000_000
			values.ValueMm2 = &mm2
		}
	}
	if !values.Explicit(p.Type) {
		return nil, ErrIncompletePreliminary
	}

	confidence := DefaultPreliminaryConfidence
	if p.Confidence != nil {
		confidence = *p.Confidence
	}

	points := p.Points
	if points == nil {
		points = []geometry.Point{}
	}

	now := time.Now().UTC()
	m := &domain.Measurement{
		ID:               uuid.New(),
		TaskID:           taskID,
		PhotoID:          &photoID,
		Type:             p.Type,
		ValueMm:          values.ValueMm,
		ValueMm2:         values.ValueMm2,
		ValueM2:          values.ValueM2,
		Points:           points,
		Confidence:       confidence,
		ProcessorVersion: domain.ProcessorVersionAuto,
		MaskPath:         p.MaskPath,
		AnnotatedPath:    p.AnnotatedPath,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
