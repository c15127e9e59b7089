package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationChannel is the delivery channel recorded on a notification.
type NotificationChannel string

// Possible notification channels
const (
	NotificationChannelEmail    NotificationChannel = "email"
	NotificationChannelSMS      NotificationChannel = "sms"
	NotificationChannelWhatsApp NotificationChannel = "whatsapp"
	NotificationChannelPush     NotificationChannel = "push"
)

// NotificationStatus records whether the notification reports success or an error.
type NotificationStatus string

// Possible notification statuses
const (
	NotificationStatusSent  NotificationStatus = "sent"
	NotificationStatusError NotificationStatus = "error"
)

// NotificationPayload is the structured body of a notification log entry.
type NotificationPayload struct {
	Subject           string          `json:"subject"`
	Message           string          `json:"message"`
	PhotoID           *uuid.UUID      `json:"photo_id,omitempty"`
	MeasurementsCount int             `json:"measurements_count,omitempty"`
	Error             string          `json:"error,omitempty"`
	Data              json.RawMessage `json:"data,omitempty"`
}

// NotificationLog is an append-only audit record of a pipeline outcome.
type NotificationLog struct {
	ID      uuid.UUID           `json:"id"`
	TaskID  *uuid.UUID          `json:"task_id,omitempty"`
	Channel NotificationChannel `json:"channel"`
	Payload NotificationPayload `json:"payload"`
	SentAt  time.Time           `json:"sent_at"`
	Status  NotificationStatus  `json:"status"`
}

// NewNotificationLog creates a push notification entry stamped with the current time.
func NewNotificationLog(taskID *uuid.UUID, status NotificationStatus, payload NotificationPayload) (*NotificationLog, error) {
	entry := &NotificationLog{
		ID:      uuid.New(),
		TaskID:  taskID,
		Channel: NotificationChannelPush,
		Payload: payload,
		SentAt:  time.Now().UTC(),
		Status:  status,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the NotificationLog has valid data.
func (n *NotificationLog) Validate() error {
	if n.ID == uuid.Nil {
		return fmt.Errorf("%w: notification ID", ErrInvalidID)
	}

	switch n.Channel {
	case NotificationChannelEmail, NotificationChannelSMS, NotificationChannelWhatsApp, NotificationChannelPush:
	default:
		return fmt.Errorf("%w: unknown channel %q", ErrInvalidNotification, n.Channel)
	}

	if n.Status != NotificationStatusSent && n.Status != NotificationStatusError {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidNotification, n.Status)
	}

	if n.Payload.Message == "" {
		return fmt.Errorf("%w: message", ErrEmptyContent)
	}

	return nil
}
