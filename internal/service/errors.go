package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/geometry"
	"github.com/phrazzld/measure-api/internal/scale"
	"github.com/phrazzld/measure-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
//
// Error handling principles:
// 1. Service methods return sentinel errors for expected error conditions
// 2. Unexpected errors are wrapped in service-specific error types
// 3. Callers use errors.Is/errors.As to check for specific error conditions
// 4. The API layer maps service errors to appropriate HTTP status codes
var (
	// ErrOwnershipMismatch indicates a request references entities that do not
	// belong together, e.g. a photo of another task.
	// API layer should map this to HTTP 403 Forbidden.
	ErrOwnershipMismatch = errors.New("resource does not belong to the task")

	// ErrInvalidGuestToken indicates no task carries the presented guest token.
	// API layer should map this to HTTP 404 Not Found.
	ErrInvalidGuestToken = errors.New("invalid guest token")

	// ErrGuestTokenExpired indicates the guest token exists but is past its expiry.
	// API layer should map this to HTTP 403 Forbidden.
	ErrGuestTokenExpired = errors.New("guest token has expired")

	// ErrTooManyFiles indicates an upload batch is empty or above the file limit.
	ErrTooManyFiles = fmt.Errorf("%w: invalid number of photos", domain.ErrValidation)

	// ErrFileTooLarge indicates an uploaded file exceeds the size limit.
	ErrFileTooLarge = fmt.Errorf("%w: photo too large", domain.ErrValidation)

	// ErrUnsupportedMediaType indicates an uploaded file is neither JPEG nor PNG.
	ErrUnsupportedMediaType = fmt.Errorf("%w: photo must be a jpeg or png image", domain.ErrValidation)
)

// serviceError carries the fields shared by the service error types.
type serviceError struct {
	Operation string
	Message   string
	Err       error
}

// MeasurementServiceError wraps errors from the measurement service with context.
type MeasurementServiceError serviceError

// Error implements the error interface for MeasurementServiceError.
func (e *MeasurementServiceError) Error() string {
	return formatServiceError("measurement", (*serviceError)(e))
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *MeasurementServiceError) Unwrap() error {
	return e.Err
}

// NewMeasurementServiceError creates a new MeasurementServiceError.
// Expected conditions are returned unwrapped so callers can match them directly.
func NewMeasurementServiceError(operation, message string, err error) error {
	if isExpected(err) {
		return err
	}
	return &MeasurementServiceError{Operation: operation, Message: message, Err: err}
}

// UploadServiceError wraps errors from the upload service with context.
type UploadServiceError serviceError

// Error implements the error interface for UploadServiceError.
func (e *UploadServiceError) Error() string {
	return formatServiceError("upload", (*serviceError)(e))
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *UploadServiceError) Unwrap() error {
	return e.Err
}

// NewUploadServiceError creates a new UploadServiceError.
// Expected conditions are returned unwrapped so callers can match them directly.
func NewUploadServiceError(operation, message string, err error) error {
	if isExpected(err) {
		return err
	}
	return &UploadServiceError{Operation: operation, Message: message, Err: err}
}

func formatServiceError(service string, e *serviceError) string {
	if e.Err != nil {
		return fmt.Sprintf("%s service %s failed: %s: %v", service, e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s service %s failed: %s", service, e.Operation, e.Message)
}

// expectedErrors are conditions callers handle themselves.
var expectedErrors = []error{
	ErrOwnershipMismatch,
	ErrInvalidGuestToken,
	ErrGuestTokenExpired,
	domain.ErrValidation,
	domain.ErrInvalidID,
	domain.ErrInvalidConfidence,
	domain.ErrInvalidMeasurementType,
	domain.ErrInvalidMeasurementValue,
	geometry.ErrInvalidGeometry,
	geometry.ErrInvalidScale,
	scale.ErrScaleUnavailable,
	store.ErrNotFound,
}

func isExpected(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range expectedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
