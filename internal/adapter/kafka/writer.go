// Package kafka publishes dashboard summary snapshots to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-dashboard/internal/config"
	"github.com/couchcryptid/covid-dashboard/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer produces summary snapshots to a Kafka topic.
// It implements pipeline.SummaryPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured summary topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaSummaryTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSummary serializes and publishes one snapshot, keyed by its ID.
func (w *Writer) PublishSummary(ctx context.Context, snapshot domain.SummarySnapshot) error {
	msg, err := serializeToMessage(snapshot)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish summary %s: %w", snapshot.ID, err)
	}
	w.logger.Debug("summary written", "topic", w.writer.Topic, "id", snapshot.ID)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a SummarySnapshot into a Kafka message.
func serializeToMessage(snapshot domain.SummarySnapshot) (kafkago.Message, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize summary snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(snapshot.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "last_updated", Value: []byte(snapshot.Summary.LastUpdated)},
			{Key: "fetched_at", Value: []byte(snapshot.FetchedAt.Format(time.RFC3339))},
		},
	}, nil
}
