package kafka

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	rec := domain.ForecastRecord{
		CCN:            "105001",
		Name:           "SUNRISE MANOR",
		State:          "FL",
		IntervalDays:   365,
		IntervalSource: "history",
		ReferenceDate:  time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
		ForecastDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		GeneratedAt:    now,
		SnapshotID:     "6f1c2d7e-3b8a-4c55-9d2e-0a1b2c3d4e5f",
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte("105001"), msg.Key)
	assert.Contains(t, string(msg.Value), `"interval_source":"history"`)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, kafkago.Header{Key: "ccn", Value: []byte("105001")}, msg.Headers[0])
	assert.Equal(t, kafkago.Header{Key: "interval_source", Value: []byte("history")}, msg.Headers[1])
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
	assert.Equal(t, kafkago.Header{Key: "snapshot_id", Value: []byte(rec.SnapshotID)}, msg.Headers[3])

	var roundtrip domain.ForecastRecord
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.True(t, rec.ForecastDate.Equal(roundtrip.ForecastDate))
	assert.Equal(t, rec.IntervalDays, roundtrip.IntervalDays)
}

func TestNewWriter_UsesForecastTopic(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"localhost:9092"}, KafkaForecastTopic: "facility-forecasts"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	assert.Equal(t, "facility-forecasts", w.writer.Topic)
	assert.IsType(t, &kafkago.Hash{}, w.writer.Balancer)
}

func TestLoadBatch_EmptyIsNoop(t *testing.T) {
	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaForecastTopic: "facility-forecasts"}
	w := NewWriter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer w.Close()

	require.NoError(t, w.LoadBatch(context.Background(), nil))
}
