package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("dropped")
	logger.Warn("kept", "ccn", "105001")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "105001", entry["ccn"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "debug", "TEXT").Debug("hello", "table", "roster")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "table=roster")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("bogus"))
}

func TestMetrics_RegisterOnFreshRegistry(t *testing.T) {
	m := NewMetricsForTesting()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(m.Forecasts))

	m.Forecasts.WithLabelValues("history").Inc()
	m.Forecasts.WithLabelValues("history").Inc()

	assert.InDelta(t, 2, testutil.ToFloat64(m.Forecasts.WithLabelValues("history")), 1e-9)
	assert.Len(t, m.collectors(), 15)
}
