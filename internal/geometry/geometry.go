package geometry

import (
	"fmt"
	"math"
)

// Point is a coordinate in image pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p1 and p2.
func Distance(p1, p2 Point) float64 {
	return math.Hypot(p2.X-p1.X, p2.Y-p1.Y)
}

// PolygonArea returns the absolute area of the polygon described by points,
// using the shoelace formula with wrap-around from the last vertex to the
// first. Self-intersecting polygons are not corrected.
func PolygonArea(points []Point) (float64, error) {
	if len(points) < 3 {
		return 0, fmt.Errorf("%w: polygon needs at least 3 points, got %d", ErrInvalidGeometry, len(points))
	}

	var sum float64
	for i := range points {
		j := (i + 1) % len(points)
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}

	return math.Abs(sum) / 2, nil
}

// PixelsToMm converts a length in pixels to millimeters.
func PixelsToMm(valuePx, pixelsPerMm float64) (float64, error) {
	if err := checkScale(pixelsPerMm); err != nil {
		return 0, err
	}
	return valuePx / pixelsPerMm, nil
}

// SquarePixelsToSquareMm converts an area in square pixels to square millimeters.
func SquarePixelsToSquareMm(areaPx, pixelsPerMm float64) (float64, error) {
	if err := checkScale(pixelsPerMm); err != nil {
		return 0, err
	}
	return areaPx / (pixelsPerMm * pixelsPerMm), nil
}

// SquareMmToSquareM converts square millimeters to square meters.
func SquareMmToSquareM(valueMm2 float64) float64 {
	return valueMm2 / 1_000_000
}

// MmToM converts millimeters to meters.
func MmToM(valueMm float64) float64 {
	return valueMm / 1_000
}

// ValidatePoints reports ErrInvalidGeometry when any coordinate is NaN or infinite.
func ValidatePoints(points []Point) error {
	for i, p := range points {
		if !isFinite(p.X) || !isFinite(p.Y) {
			return fmt.Errorf("%w: point %d has a non-finite coordinate", ErrInvalidGeometry, i)
		}
	}
	return nil
}

func checkScale(pixelsPerMm float64) error {
	if math.IsNaN(pixelsPerMm) || pixelsPerMm <= 0 {
		return fmt.Errorf("%w: pixels per mm must be positive, got %v", ErrInvalidScale, pixelsPerMm)
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
