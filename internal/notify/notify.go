// Package notify records pipeline outcomes in the notification log and hands
// each recorded entry to a publisher for delivery.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/platform/logger"
	"github.com/phrazzld/measure-api/internal/store"
)

// Publisher delivers a recorded notification to its audience.
type Publisher interface {
	Publish(ctx context.Context, entry *domain.NotificationLog) error
}

// LogPublisher writes notifications to the structured log. It is used when
// no message broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With("component", "log_publisher")}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(ctx context.Context, entry *domain.NotificationLog) error {
	p.logger.Info("notification",
		"notification_id", entry.ID,
		"status", entry.Status,
		"channel", entry.Channel,
		"subject", entry.Payload.Subject,
		"message", entry.Payload.Message)
	return nil
}

// Service appends notification log entries and publishes them.
type Service struct {
	store     store.NotificationLogStore
	publisher Publisher
	logger    *slog.Logger
}

// NewService creates a notification service. A nil publisher falls back to
// a LogPublisher.
func NewService(notifications store.NotificationLogStore, publisher Publisher, log *slog.Logger) *Service {
	if notifications == nil {
		panic("notification log store cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	if publisher == nil {
		publisher = NewLogPublisher(log)
	}
	return &Service{
		store:     notifications,
		publisher: publisher,
		logger:    log.With("component", "notify_service"),
	}
}

// Record stores entry and then publishes it. A publish failure is logged
// and does not fail the call; the entry stays in the log either way.
func (s *Service) Record(ctx context.Context, entry *domain.NotificationLog) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.store.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to record notification: %w", err)
	}

	if err := s.publisher.Publish(ctx, entry); err != nil {
		log.Warn("failed to publish notification",
			"notification_id", entry.ID,
			"error", err)
	}
	return nil
}

// MarkerDetected builds the entry announcing a successful detection with
// count suggested measurements. data carries the raw vision response.
func MarkerDetected(task *domain.Task, photoID uuid.UUID, count int, data json.RawMessage) (*domain.NotificationLog, error) {
	return domain.NewNotificationLog(&task.ID, domain.NotificationStatusSent, domain.NotificationPayload{
		Subject:           processedSubject(task),
		Message:           fmt.Sprintf("A4 marker detected with %d suggested measurements.", count),
		PhotoID:           &photoID,
		MeasurementsCount: count,
		Data:              data,
	})
}

// DetectionFailed builds the entry for a vision answer that reported failure.
func DetectionFailed(task *domain.Task, photoID uuid.UUID, reason string, data json.RawMessage) (*domain.NotificationLog, error) {
	return domain.NewNotificationLog(&task.ID, domain.NotificationStatusError, domain.NotificationPayload{
		Subject: processedSubject(task),
		Message: "Marker detection failed: " + reason,
		PhotoID: &photoID,
		Error:   reason,
		Data:    data,
	})
}

// ProcessingFailed builds the entry for a photo that used up every attempt.
func ProcessingFailed(taskID, photoID uuid.UUID, cause string) (*domain.NotificationLog, error) {
	return domain.NewNotificationLog(&taskID, domain.NotificationStatusError, domain.NotificationPayload{
		Subject: "Photo processing error",
		Message: "Photo processing failed after several attempts.",
		PhotoID: &photoID,
		Error:   cause,
	})
}

func processedSubject(task *domain.Task) string {
	return "Photo processed - Task: " + task.Title
}
