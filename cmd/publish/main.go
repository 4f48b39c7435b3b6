// Command publish loads the configured input snapshot, forecasts the next
// survey of every facility, and writes the forecasts to Kafka or to a
// Parquet file.
//
// Usage:
//
//	go run ./cmd/publish -sink kafka
//	go run ./cmd/publish -sink parquet -out forecasts.parquet -state FL
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/facility-survey-forecast/internal/adapter/kafka"
	"github.com/couchcryptid/facility-survey-forecast/internal/adapter/nominatim"
	"github.com/couchcryptid/facility-survey-forecast/internal/adapter/parquetfile"
	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
	"github.com/couchcryptid/facility-survey-forecast/internal/pipeline"
	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

const (
	sinkKafka   = "kafka"
	sinkParquet = "parquet"
)

type sink interface {
	pipeline.BatchLoader
	Close() error
}

func main() {
	sinkName := flag.String("sink", sinkKafka, "forecast destination: kafka or parquet")
	out := flag.String("out", "forecasts.parquet", "output path for the parquet sink")
	state := flag.String("state", "", "only publish facilities in this state (code or full name)")
	flag.Parse()

	if *sinkName != sinkKafka && *sinkName != sinkParquet {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *sinkName, *out, *state, logger, metrics); err != nil {
		logger.Error("publish failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, sinkName, out, state string, logger *slog.Logger, metrics *observability.Metrics) error {
	geocoder := nominatim.FromConfig(cfg, metrics, logger)
	snap, err := service.FileLoader(service.SourcesFromConfig(cfg), geocoder, logger, metrics)(ctx)
	if err != nil {
		return err
	}

	dst, err := openSink(cfg, sinkName, out, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := dst.Close(); err != nil {
			logger.Error("sink close error", "sink", sinkName, "error", err)
		}
	}()

	cursor := pipeline.NewSnapshotCursor(snap, state)
	logger.Info("publishing forecasts", "sink", sinkName, "facilities", cursor.Len(), "state", state)

	p := pipeline.New(cursor, pipeline.NewForecaster(snap), dst, logger, metrics, cfg.BatchSize)
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}

	stats := p.Stats()
	if stats.Published == 0 && stats.Extracted > 0 {
		return errors.New("no forecasts published")
	}
	return nil
}

func openSink(cfg *config.Config, name, out string, logger *slog.Logger) (sink, error) {
	switch name {
	case sinkKafka:
		return kafkaadapter.NewWriter(cfg, logger), nil
	case sinkParquet:
		w, err := parquetfile.NewWriter(out)
		if err != nil {
			return nil, err
		}
		return w, nil
	default:
		return nil, fmt.Errorf("unknown sink %q: want %s or %s", name, sinkKafka, sinkParquet)
	}
}
