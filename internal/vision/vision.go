// Package vision defines the contract with the external marker detection
// service: the request sent for a photo, the analysis result it returns and
// the error taxonomy callers use to decide whether to retry.
package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
)

// ExpectMarkerA4 is the reference marker requested from the detector.
const ExpectMarkerA4 = "A4"

var (
	// ErrTransportFailure covers network errors, timeouts and non-2xx answers.
	// It is always retryable.
	ErrTransportFailure = errors.New("vision service transport failure")

	// ErrInvalidResponse is returned when a 2xx answer cannot be decoded.
	// It is treated like a transport failure by the pipeline.
	ErrInvalidResponse = errors.New("invalid vision service response")

	// ErrInvalidConfig is returned when a client is built without a usable endpoint.
	ErrInvalidConfig = errors.New("invalid vision service configuration")
)

// Analyzer submits a photo to the detection service.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*Result, error)
}

// AnalyzeRequest is one photo submitted for analysis.
type AnalyzeRequest struct {
	PhotoID      uuid.UUID
	TaskID       uuid.UUID
	Filename     string
	ContentType  string
	Image        []byte
	ExpectMarker string
}

// RequestMetadata is the JSON document sent alongside the image bytes.
type RequestMetadata struct {
	ExpectMarker string    `json:"expect_marker"`
	PhotoID      uuid.UUID `json:"photo_id"`
	TaskID       uuid.UUID `json:"task_id"`
}

// Metadata returns the metadata document for req, defaulting the marker to A4.
func (r AnalyzeRequest) Metadata() RequestMetadata {
	marker := r.ExpectMarker
	if marker == "" {
		marker = ExpectMarkerA4
	}
	return RequestMetadata{ExpectMarker: marker, PhotoID: r.PhotoID, TaskID: r.TaskID}
}

// Marker is the detected reference sheet.
type Marker struct {
	Corners     [][2]float64 `json:"corners"`
	Confidence  *float64     `json:"confidence,omitempty"`
	PixelsPerMm *float64     `json:"pixels_per_mm,omitempty"`
}

// PreliminaryMeasurement is a value suggested by the detector.
type PreliminaryMeasurement struct {
	ID         *int     `json:"id,omitempty"`
	Type       string   `json:"type"`
	ValueMm    *float64 `json:"value_mm,omitempty"`
	ValueMm2   *float64 `json:"value_mm2,omitempty"`
	ValueM2    *float64 `json:"value_m2,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Suggestion is a candidate region outlined by the detector.
type Suggestion struct {
	Type       string       `json:"type,omitempty"`
	MaskPoly   [][2]float64 `json:"mask_poly"`
	Confidence *float64     `json:"confidence,omitempty"`
}

// Suggestions maps a suggestion id to its outline. The service sends it
// either as a list, where the position is the id, or as an object keyed by id.
type Suggestions map[int]Suggestion

// UnmarshalJSON accepts both wire shapes. Object keys that are not integers
// are ignored.
func (s *Suggestions) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}

	var list []Suggestion
	if err := json.Unmarshal(data, &list); err == nil {
		out := make(Suggestions, len(list))
		for i, suggestion := range list {
			out[i] = suggestion
		}
		*s = out
		return nil
	}

	var keyed map[string]Suggestion
	if err := json.Unmarshal(data, &keyed); err != nil {
		return fmt.Errorf("suggestions must be a list or an object: %w", err)
	}
	out := make(Suggestions, len(keyed))
	for key, suggestion := range keyed {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		out[id] = suggestion
	}
	*s = out
	return nil
}

// MarshalJSON writes suggestions as an object keyed by id, in id order.
func (s Suggestions) MarshalJSON() ([]byte, error) {
	ids := make([]int, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	keyed := make(map[string]Suggestion, len(s))
	for _, id := range ids {
		keyed[strconv.Itoa(id)] = s[id]
	}
	return json.Marshal(keyed)
}

// Result is the decoded analysis response.
type Result struct {
	Success                 *bool                    `json:"success,omitempty"`
	Message                 string                   `json:"message,omitempty"`
	Marker                  *Marker                  `json:"marker,omitempty"`
	PixelsPerMm             *float64                 `json:"pixels_per_mm,omitempty"`
	PreliminaryMeasurements []PreliminaryMeasurement `json:"preliminary_measurements,omitempty"`
	Suggestions             Suggestions              `json:"suggestions,omitempty"`
	AnnotatedImageURL       string                   `json:"annotated_image_url,omitempty"`
}

// Succeeded reports the detector verdict. When the service omits the success
// flag, a detected marker with a scale counts as success.
func (r *Result) Succeeded() bool {
	if r.Success != nil {
		return *r.Success
	}
	return r.Marker != nil && r.Scale() != nil
}

// Scale returns the pixels-per-millimeter factor, preferring the top-level
// field over the one nested in the marker.
func (r *Result) Scale() *float64 {
	if r.PixelsPerMm != nil {
		return r.PixelsPerMm
	}
	if r.Marker != nil {
		return r.Marker.PixelsPerMm
	}
	return nil
}

// MarkerScale returns the scale only when it comes with the full marker
// geometry. A bare pixels_per_mm without four corners does not calibrate the
// photo.
func (r *Result) MarkerScale() *float64 {
	if r.Marker == nil || len(r.Marker.Corners) != 4 {
		return nil
	}
	return r.Scale()
}

// FailureReason returns the message explaining a failed detection.
func (r *Result) FailureReason() string {
	if r.Message != "" {
		return r.Message
	}
	return "marker not detected"
}

// PointsFor returns the outline suggested for a preliminary measurement, or
// nil when the measurement has no id or no matching suggestion.
func (r *Result) PointsFor(m PreliminaryMeasurement) [][2]float64 {
	if m.ID == nil {
		return nil
	}
	suggestion, ok := r.Suggestions[*m.ID]
	if !ok {
		return nil
	}
	return suggestion.MaskPoly
}
