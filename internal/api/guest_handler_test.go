package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "Zx8pQm2LrT5vNb7KcW3yHd9FgJ4sAe6U"

func guestRouter(svc service.UploadService, cfg service.UploadConfig) http.Handler {
	h := NewGuestHandler(svc, cfg, nil)
	r := chi.NewRouter()
	r.Post("/api/guest/{token}/photos", h.UploadPhotos)
	r.Get("/api/guest/{token}/check", h.CheckToken)
	return r
}

type formFile struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, url string, files []formFile, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestGuestHandlerUploadPhotos(t *testing.T) {
	t.Parallel()

	url := "/api/guest/" + testToken + "/photos"

	t.Run("created", func(t *testing.T) {
		t.Parallel()

		taskID := uuid.New()
		var gotFiles []service.UploadFile
		var gotContact service.ContactInfo
		svc := &mockUploadService{
			GuestUploadFn: func(ctx context.Context, token string, files []service.UploadFile, contact service.ContactInfo) (*service.GuestUploadResult, error) {
				assert.Equal(t, testToken, token)
				gotFiles = files
				gotContact = contact
				return &service.GuestUploadResult{TaskID: taskID, Photos: []*domain.Photo{{ID: uuid.New(), TaskID: taskID}}}, nil
			},
		}

		req := multipartRequest(t, url, []formFile{
			{formFieldPhotos, "wall.jpg", []byte("first")},
			{formFieldPhotosArray, "floor.png", []byte("second")},
		}, map[string]string{
			formFieldContactEmail: "guest@example.com",
			formFieldContactPhone: "+33 6 12 34 56 78",
		})
		rec := httptest.NewRecorder()
		guestRouter(svc, service.UploadConfig{}).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, gotFiles, 2)
		assert.Equal(t, "wall.jpg", gotFiles[0].Name)
		assert.Equal(t, []byte("first"), gotFiles[0].Data)
		assert.Equal(t, "floor.png", gotFiles[1].Name)
		assert.Equal(t, "guest@example.com", gotContact.Email)
		assert.Equal(t, "+33 6 12 34 56 78", gotContact.Phone)
		assert.Contains(t, rec.Body.String(), taskID.String())
	})

	t.Run("too many files rejected before service", func(t *testing.T) {
		t.Parallel()

		svc := &mockUploadService{
			GuestUploadFn: func(ctx context.Context, token string, files []service.UploadFile, contact service.ContactInfo) (*service.GuestUploadResult, error) {
				t.Fatal("service must not be called")
				return nil, nil
			},
		}
		files := []formFile{
			{formFieldPhotos, "1.jpg", []byte("a")},
			{formFieldPhotos, "2.jpg", []byte("b")},
			{formFieldPhotos, "3.jpg", []byte("c")},
		}
		rec := httptest.NewRecorder()
		guestRouter(svc, service.UploadConfig{MaxFiles: 2, MaxFileSize: 1024}).
			ServeHTTP(rec, multipartRequest(t, url, files, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized file", func(t *testing.T) {
		t.Parallel()

		svc := &mockUploadService{
			GuestUploadFn: func(ctx context.Context, token string, files []service.UploadFile, contact service.ContactInfo) (*service.GuestUploadResult, error) {
				t.Fatal("service must not be called")
				return nil, nil
			},
		}
		files := []formFile{{formFieldPhotos, "big.jpg", bytes.Repeat([]byte{0xff}, 200)}}
		rec := httptest.NewRecorder()
		guestRouter(svc, service.UploadConfig{MaxFiles: 2, MaxFileSize: 100}).
			ServeHTTP(rec, multipartRequest(t, url, files, nil))

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("not multipart", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		guestRouter(&mockUploadService{}, service.UploadConfig{}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString("{}")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	serviceErrors := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown token", service.ErrInvalidGuestToken, http.StatusNotFound},
		{"expired token", service.ErrGuestTokenExpired, http.StatusForbidden},
		{"unsupported type", service.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"storage failure", service.NewUploadServiceError("guest_upload", "failed to store photos", assert.AnError), http.StatusInternalServerError},
	}
	for _, tc := range serviceErrors {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			svc := &mockUploadService{
				GuestUploadFn: func(ctx context.Context, token string, files []service.UploadFile, contact service.ContactInfo) (*service.GuestUploadResult, error) {
					return nil, tc.err
				},
			}
			rec := httptest.NewRecorder()
			guestRouter(svc, service.UploadConfig{}).
				ServeHTTP(rec, multipartRequest(t, url, []formFile{{formFieldPhotos, "a.jpg", []byte("x")}}, nil))

			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestGuestHandlerCheckToken(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	expires := time.Date(2026, 10, 21, 12, 0, 0, 0, time.UTC)
	svc := &mockUploadService{
		CheckGuestTokenFn: func(ctx context.Context, token string) (*service.GuestTokenStatus, error) {
			if token != testToken {
				return nil, service.ErrInvalidGuestToken
			}
			return &service.GuestTokenStatus{TaskID: taskID, TaskTitle: "Kitchen", PhotoCount: 3, ExpiresAt: expires}, nil
		},
	}
	router := guestRouter(svc, service.UploadConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/guest/"+testToken+"/check", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"task_title":"Kitchen"`)
	assert.Contains(t, rec.Body.String(), `"photo_count":3`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/guest/unknown-token/check", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
