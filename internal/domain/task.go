package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a measurement task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusNew        TaskStatus = "new"
	TaskStatusWaiting    TaskStatus = "waiting"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusClosed     TaskStatus = "closed"
)

// GuestContact is the contact information a guest leaves when uploading photos.
type GuestContact struct {
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// TaskMetadata holds the recognized optional attributes of a task.
type TaskMetadata struct {
	GuestContact *GuestContact `json:"guest_contact,omitempty"`
}

// Task is a measurement job created by an owner. Guests upload photos to it
// through a time-limited token.
type Task struct {
	ID             uuid.UUID    `json:"id"`
	OwnerID        uuid.UUID    `json:"owner_id"`
	AssigneeID     *uuid.UUID   `json:"assignee_id,omitempty"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Status         TaskStatus   `json:"status"`
	GuestToken     string       `json:"-"`
	GuestExpiresAt *time.Time   `json:"guest_expires_at,omitempty"`
	Metadata       TaskMetadata `json:"metadata"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// NewTask creates a new Task in status new.
// Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Status:      TaskStatusNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: task ID", ErrInvalidID)
	}

	if t.OwnerID == uuid.Nil {
		return fmt.Errorf("%w: task owner ID", ErrInvalidID)
	}

	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: task title", ErrEmptyContent)
	}

	if !isValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	return nil
}

// IsGuestTokenValid reports whether the task has a guest token that has not
// expired at now.
func (t *Task) IsGuestTokenValid(now time.Time) bool {
	if t.GuestToken == "" || t.GuestExpiresAt == nil {
		return false
	}
	return now.Before(*t.GuestExpiresAt)
}

// RecordGuestContact stores guest contact details on the task metadata.
// Empty contacts are ignored.
func (t *Task) RecordGuestContact(email, phone string, at time.Time) {
	if email == "" && phone == "" {
		return
	}
	t.Metadata.GuestContact = &GuestContact{
		Email:       email,
		Phone:       phone,
		SubmittedAt: at.UTC(),
	}
	t.UpdatedAt = time.Now().UTC()
}

func isValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusNew, TaskStatusWaiting, TaskStatusInProgress, TaskStatusClosed:
		return true
	default:
		return false
	}
}
