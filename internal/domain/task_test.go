package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	task, err := NewTask(ownerID, "Kitchen wall", "Measure the tiled area")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if task.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if task.Status != TaskStatusNew {
		t.Errorf("Expected status %s, got %s", TaskStatusNew, task.Status)
	}

	if _, err := NewTask(uuid.Nil, "title", ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}

	if _, err := NewTask(ownerID, "  ", ""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Expected ErrEmptyContent, got %v", err)
	}
}

func TestTaskValidateStatus(t *testing.T) {
	t.Parallel()

	task, err := NewTask(uuid.New(), "title", "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	task.Status = "archived"
	if err := task.Validate(); !errors.Is(err, ErrInvalidTaskStatus) {
		t.Errorf("Expected ErrInvalidTaskStatus, got %v", err)
	}
}

func TestTaskIsGuestTokenValid(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name    string
		token   string
		expires *time.Time
		want    bool
	}{
		{"no token", "", &future, false},
		{"no expiry", "abc", nil, false},
		{"expired", "abc", &past, false},
		{"expires exactly now", "abc", &now, false},
		{"valid", "abc", &future, true},
	}

	for _, tt := range tests {
		task := &Task{GuestToken: tt.token, GuestExpiresAt: tt.expires}
		if got := task.IsGuestTokenValid(now); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestTaskRecordGuestContact(t *testing.T) {
	t.Parallel()

	task := &Task{}
	task.RecordGuestContact("", "", time.Now())
	if task.Metadata.GuestContact != nil {
		t.Error("Expected empty contact to be ignored")
	}

	task.RecordGuestContact("guest@example.com", "", time.Now())
	if task.Metadata.GuestContact == nil || task.Metadata.GuestContact.Email != "guest@example.com" {
		t.Errorf("Expected guest contact to be recorded, got %+v", task.Metadata.GuestContact)
	}
}
