// Package scale resolves the pixels-per-millimeter factor a photo needs
// before any measurement on it can be converted to physical units.
package scale

import (
	"errors"
	"math"

	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
)

// ErrScaleUnavailable is returned when a photo has no usable calibration.
// It is a user-facing condition and is never retried automatically.
var ErrScaleUnavailable = errors.New("marker not detected: cannot compute scale")

// Scale is a validated, strictly positive pixels-per-millimeter factor.
type Scale struct {
	PixelsPerMm float64
}

// FromPhoto returns the scale stored on photo.
func FromPhoto(photo *domain.Photo) (Scale, error) {
	if photo == nil {
		return Scale{}, ErrScaleUnavailable
	}
	return FromMetadata(photo.Metadata)
}

// FromMetadata returns the scale recorded in metadata, or ErrScaleUnavailable
// when it is missing, non-positive or not a finite number.
func FromMetadata(metadata domain.PhotoMetadata) (Scale, error) {
	if metadata.PixelsPerMm == nil {
		return Scale{}, ErrScaleUnavailable
	}
	ppm := *metadata.PixelsPerMm
	if math.IsNaN(ppm) || math.IsInf(ppm, 0) || ppm <= 0 {
		return Scale{}, ErrScaleUnavailable
	}
	return Scale{PixelsPerMm: ppm}, nil
}

// LengthMm converts a pixel length to millimeters.
func (s Scale) LengthMm(lengthPx float64) (float64, error) {
	return geometry.PixelsToMm(lengthPx, s.PixelsPerMm)
}

// AreaMm2 converts a pixel area to square millimeters.
func (s Scale) AreaMm2(areaPx float64) (float64, error) {
	return geometry.SquarePixelsToSquareMm(areaPx, s.PixelsPerMm)
}
