package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhotoHandlerProcess(t *testing.T) {
	t.Parallel()

	taskID, photoID := uuid.New(), uuid.New()

	tests := []struct {
		name       string
		taskID     string
		err        error
		wantStatus int
	}{
		{"accepted", taskID.String(), nil, http.StatusAccepted},
		{"ownership", taskID.String(), service.ErrOwnershipMismatch, http.StatusForbidden},
		{"missing photo", taskID.String(), store.ErrPhotoNotFound, http.StatusNotFound},
		{"bad task id", "not-a-uuid", nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockUploadService{
				ReprocessFn: func(ctx context.Context, tID, pID uuid.UUID) (*domain.Photo, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.Photo{ID: pID, TaskID: tID, State: domain.ProcessingStateUploaded}, nil
				},
			}
			r := chi.NewRouter()
			r.Post("/api/tasks/{taskID}/photos/{photoID}/process", NewPhotoHandler(svc).Process)

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost,
				"/api/tasks/"+tt.taskID+"/photos/"+photoID.String()+"/process", nil))

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusAccepted {
				assert.Contains(t, rec.Body.String(), photoID.String())
			}
		})
	}
}
