package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/scale"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/phrazzld/measure-api/internal/service/auth"
	"github.com/phrazzld/measure-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"expired jwt", auth.ErrExpiredToken, http.StatusUnauthorized},
		{"ownership", service.ErrOwnershipMismatch, http.StatusForbidden},
		{"expired guest link", service.ErrGuestTokenExpired, http.StatusForbidden},
		{"unknown guest link", service.ErrInvalidGuestToken, http.StatusNotFound},
		{"wrapped photo not found", fmt.Errorf("load: %w", store.ErrPhotoNotFound), http.StatusNotFound},
		{"file too large", fmt.Errorf("photo 2 (a.jpg): %w", service.ErrFileTooLarge), http.StatusRequestEntityTooLarge},
		{"unsupported media", service.ErrUnsupportedMediaType, http.StatusUnsupportedMediaType},
		{"too many files", service.ErrTooManyFiles, http.StatusBadRequest},
		{"no scale", scale.ErrScaleUnavailable, http.StatusUnprocessableEntity},
		{"geometry", geometry.ErrInvalidGeometry, http.StatusBadRequest},
		{"validation", domain.ErrValidation, http.StatusBadRequest},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "marker not detected: cannot compute scale",
		GetSafeErrorMessage(fmt.Errorf("submit: %w", scale.ErrScaleUnavailable)))
	assert.Equal(t, "Measurement not found", GetSafeErrorMessage(store.ErrMeasurementNotFound))
	assert.Equal(t, "An unexpected error occurred",
		GetSafeErrorMessage(errors.New("pq: password authentication failed for user measure")))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	type payload struct {
		Type string `validate:"required,oneof=length area"`
	}

	err := validator.New().Struct(payload{Type: "volume"})
	assert.Equal(t, "Invalid Type: invalid value", SanitizeValidationError(err))

	flattened := fmt.Errorf("%w: %v", domain.ErrValidation, err)
	assert.Equal(t, "Invalid Type: invalid value", SanitizeValidationError(flattened))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("bad")))
}
