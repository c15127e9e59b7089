package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/scale"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func measurementRouter(svc service.MeasurementService) http.Handler {
	h := NewMeasurementHandler(svc, nil)
	r := chi.NewRouter()
	r.Post("/api/tasks/{taskID}/photos/{photoID}/measurements", h.Submit)
	r.Get("/api/measurements/{id}", h.Get)
	r.Put("/api/measurements/{id}", h.Revise)
	r.Delete("/api/measurements/{id}", h.Delete)
	return r
}

func lengthMeasurement(taskID uuid.UUID) *domain.Measurement {
	return &domain.Measurement{
		ID:               uuid.New(),
		TaskID:           taskID,
		Type:             domain.MeasurementTypeLength,
		ValueMm:          ptr(1234),
		Points:           []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}},
		Confidence:       1,
		ProcessorVersion: domain.ProcessorVersionManual,
	}
}

func TestMeasurementHandlerSubmit(t *testing.T) {
	t.Parallel()

	taskID, photoID := uuid.New(), uuid.New()
	url := "/api/tasks/" + taskID.String() + "/photos/" + photoID.String() + "/measurements"

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		var got service.Submission
		svc := &mockMeasurementService{
			SubmitFn: func(ctx context.Context, tID, pID uuid.UUID, s service.Submission) (*service.SubmitResult, error) {
				assert.Equal(t, taskID, tID)
				assert.Equal(t, photoID, pID)
				got = s
				m := lengthMeasurement(tID)
				return &service.SubmitResult{Measurement: m, FormattedValue: m.FormattedValue()}, nil
			},
		}

		body := `{"type":"length","points":[{"x":0,"y":0},{"x":10,"y":0}],"confidence":0.8}`
		rec := httptest.NewRecorder()
		measurementRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url, strings.NewReader(body)))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, domain.MeasurementTypeLength, got.Type)
		assert.Len(t, got.Points, 2)
		require.NotNil(t, got.Confidence)
		assert.InDelta(t, 0.8, *got.Confidence, 1e-9)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "1.23 m", resp["formatted_value"])
		assert.Equal(t, "length", resp["type"])
		assert.InDelta(t, 1234, resp["value_mm"], 1e-9)
	})

	errorCases := []struct {
		name       string
		url        string
		body       string
		err        error
		wantStatus int
	}{
		{"bad task id", "/api/tasks/nope/photos/" + photoID.String() + "/measurements", `{}`, nil, http.StatusBadRequest},
		{"malformed json", url, `{"type":`, nil, http.StatusBadRequest},
		{"unknown field", url, `{"type":"length","points":[],"owner":"x"}`, nil, http.StatusBadRequest},
		{"no scale", url, `{"type":"length","points":[{"x":0,"y":0}]}`, scale.ErrScaleUnavailable, http.StatusUnprocessableEntity},
		{"ownership", url, `{"type":"length","points":[{"x":0,"y":0}]}`, service.ErrOwnershipMismatch, http.StatusForbidden},
		{"invalid geometry", url, `{"type":"area","points":[{"x":0,"y":0}]}`, geometry.ErrInvalidGeometry, http.StatusBadRequest},
		{"photo missing", url, `{"type":"length","points":[{"x":0,"y":0}]}`, store.ErrPhotoNotFound, http.StatusNotFound},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			called := false
			svc := &mockMeasurementService{
				SubmitFn: func(ctx context.Context, tID, pID uuid.UUID, s service.Submission) (*service.SubmitResult, error) {
					called = true
					return nil, tc.err
				},
			}

			rec := httptest.NewRecorder()
			measurementRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, tc.url, strings.NewReader(tc.body)))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Equal(t, tc.err != nil, called)
		})
	}

	t.Run("scale message", func(t *testing.T) {
		t.Parallel()

		svc := &mockMeasurementService{
			SubmitFn: func(ctx context.Context, tID, pID uuid.UUID, s service.Submission) (*service.SubmitResult, error) {
				return nil, scale.ErrScaleUnavailable
			},
		}
		rec := httptest.NewRecorder()
		measurementRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url,
			strings.NewReader(`{"type":"length","points":[{"x":0,"y":0}]}`)))

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "marker not detected: cannot compute scale", resp["error"])
	})
}

func TestMeasurementHandlerReadUpdateDelete(t *testing.T) {
	t.Parallel()

	m := lengthMeasurement(uuid.New())
	url := "/api/measurements/" + m.ID.String()

	svc := &mockMeasurementService{
		GetFn: func(ctx context.Context, id uuid.UUID) (*domain.Measurement, error) {
			if id != m.ID {
				return nil, store.ErrMeasurementNotFound
			}
			return m, nil
		},
		ReviseFn: func(ctx context.Context, id uuid.UUID, rev service.Revision) (*domain.Measurement, error) {
			revised := *m
			revised.Confidence = *rev.Confidence
			return &revised, nil
		},
		DeleteFn: func(ctx context.Context, id uuid.UUID) error {
			if id != m.ID {
				return store.ErrMeasurementNotFound
			}
			return nil
		},
	}
	router := measurementRouter(svc)

	t.Run("get", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"formatted_value":"1.23 m"`)
	})

	t.Run("get missing", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/measurements/"+uuid.NewString(), nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("revise", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, url, strings.NewReader(`{"confidence":0.5}`)))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"confidence":0.5`)
	})

	t.Run("delete", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, url, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("delete bad id", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/measurements/123", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
