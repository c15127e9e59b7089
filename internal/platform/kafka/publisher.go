// Package kafka publishes notification log entries to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/measure-api/internal/domain"
	"github.com/phrazzld/measure-api/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer used by the publisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher implements notify.Publisher on a Kafka writer.
type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

var _ notify.Publisher = (*Publisher)(nil)

// NewPublisher creates a publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	writer := &kafkago.Writer{
		Addr:     kafkago.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafkago.LeastBytes{},
	}
	return newPublisher(writer, logger)
}

func newPublisher(writer messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: writer,
		logger: logger.With("component", "kafka_publisher"),
	}
}

// Publish implements notify.Publisher. Entries are keyed by task so the
// notifications of one task stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, entry *domain.NotificationLog) error {
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	key := entry.ID.String()
	if entry.TaskID != nil {
		key = entry.TaskID.String()
	}

	message := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to publish notification %s: %w", entry.ID, err)
	}

	p.logger.Debug("notification published", "notification_id", entry.ID, "key", key)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
