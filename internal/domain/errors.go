// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidTaskStatus is returned when a task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidProcessingState is returned when a photo processing state is not valid.
	ErrInvalidProcessingState = errors.New("invalid processing state")

	// ErrInvalidMeasurementType is returned when a measurement or subtask type is
	// neither length nor area.
	ErrInvalidMeasurementType = errors.New("invalid measurement type")

	// ErrInvalidMeasurementValue is returned when the populated value fields do not
	// match the measurement type.
	ErrInvalidMeasurementValue = errors.New("invalid measurement value")

	// ErrInvalidConfidence is returned when a confidence score is outside [0, 1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")

	// ErrInvalidSubtaskStatus is returned when a subtask status is not valid.
	ErrInvalidSubtaskStatus = errors.New("invalid subtask status")

	// ErrSubtaskValueMissing is returned when a subtask is done without a value.
	ErrSubtaskValueMissing = errors.New("completed subtask must have a value")

	// ErrInvalidNotification is returned when a notification log entry is malformed.
	ErrInvalidNotification = errors.New("invalid notification log")
)
