package geometry

import "errors"

var (
	// ErrInvalidGeometry is returned when a point set cannot describe the
	// requested shape, e.g. a polygon with fewer than three vertices or a
	// point with a non-finite coordinate.
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrInvalidScale is returned when a pixels-per-millimeter factor is zero,
	// negative or NaN.
	ErrInvalidScale = errors.New("invalid scale")
)
