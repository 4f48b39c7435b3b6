package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

// Writer produces forecast records to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured forecast topic.
// Records are keyed by CCN so every forecast of a facility lands on the same
// partition.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaForecastTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes forecast records in a single
// WriteMessages call.
func (w *Writer) LoadBatch(ctx context.Context, records []domain.ForecastRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d forecasts to %s: %w", len(msgs), w.writer.Topic, err)
	}
	w.logger.Debug("forecast batch published", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a ForecastRecord into a Kafka message.
func serializeToMessage(rec domain.ForecastRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize forecast %s: %w", rec.CCN, err)
	}
	return kafkago.Message{
		Key:   []byte(rec.CCN),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "ccn", Value: []byte(rec.CCN)},
			{Key: "interval_source", Value: []byte(rec.IntervalSource)},
			{Key: "generated_at", Value: []byte(rec.GeneratedAt.Format(time.RFC3339))},
			{Key: "snapshot_id", Value: []byte(rec.SnapshotID)},
		},
	}, nil
}
