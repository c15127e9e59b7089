// Package geometry implements the pure numeric functions behind photo
// measurements: point distances, polygon areas and conversions between
// pixel space and metric units.
//
// The functions are deterministic and side-effect free. Non-finite inputs
// propagate through Distance and PolygonArea unchanged; callers that need to
// reject them use ValidatePoints first.
package geometry
