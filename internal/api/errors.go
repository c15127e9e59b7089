package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/measure-api/internal/api/shared"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/scale"
	"github.com/phrazzld/measure-api/internal/service"
	"github.com/phrazzld/measure-api/internal/service/auth"
	"github.com/phrazzld/measure-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrOwnershipMismatch),
		errors.Is(err, service.ErrGuestTokenExpired):
		return http.StatusForbidden

	// Not found errors
	case errors.Is(err, service.ErrInvalidGuestToken),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Upload limits come before the generic validation case they wrap
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrUnsupportedMediaType):
		return http.StatusUnsupportedMediaType

	// The photo exists but has no calibration
	case errors.Is(err, scale.ErrScaleUnavailable):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidConfidence),
		errors.Is(err, domain.ErrInvalidMeasurementType),
		errors.Is(err, domain.ErrInvalidMeasurementValue),
		errors.Is(err, geometry.ErrInvalidGeometry),
		errors.Is(err, geometry.ErrInvalidScale),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid token"

	case errors.Is(err, service.ErrOwnershipMismatch):
		return "Resource does not belong to this task"
	case errors.Is(err, service.ErrGuestTokenExpired):
		return "Guest link has expired"
	case errors.Is(err, service.ErrInvalidGuestToken):
		return "Guest link not found"

	case errors.Is(err, store.ErrPhotoNotFound):
		return "Photo not found"
	case errors.Is(err, store.ErrMeasurementNotFound):
		return "Measurement not found"
	case errors.Is(err, store.ErrSubtaskNotFound):
		return "Subtask not found"
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, store.ErrNotFound):
		return "Resource not found"

	case errors.Is(err, service.ErrTooManyFiles):
		return "Too many or too few files in upload"
	case errors.Is(err, service.ErrFileTooLarge):
		return "File exceeds the maximum upload size"
	case errors.Is(err, service.ErrUnsupportedMediaType):
		return "Only JPEG and PNG images are accepted"

	case errors.Is(err, scale.ErrScaleUnavailable):
		return scale.ErrScaleUnavailable.Error()

	case errors.Is(err, geometry.ErrInvalidGeometry):
		return "Invalid points for measurement type"
	case errors.Is(err, domain.ErrInvalidConfidence):
		return "Confidence must be between 0 and 1"
	case errors.Is(err, domain.ErrInvalidMeasurementType):
		return "Measurement type must be length or area"
	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidMeasurementValue),
		errors.Is(err, geometry.ErrInvalidScale),
		errors.Is(err, store.ErrInvalidEntity):
		return SanitizeValidationError(err)

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		first := validationErrs[0]
		return fmt.Sprintf("Invalid %s: %s", first.Field(), getValidationTagMessage(first.Tag()))
	}

	errMsg := err.Error()

	// Validation errors flattened with %v keep the validator's text, e.g.
	// "Key: 'Submission.Type' Error:Field validation for 'Type' failed on the 'oneof' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the status and safe message for err. fallback
// replaces the generic message of unmapped errors.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && fallback != "" {
		message = fallback
	}

	var opts []shared.ResponseOption
	if errors.Is(err, service.ErrGuestTokenExpired) || errors.Is(err, service.ErrOwnershipMismatch) {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, status, message, err, opts...)
}
