// Command geocode fills in missing roster coordinates with the Nominatim
// search API and writes the roster back out as CSV, so radius peer groups
// work without geocoding at every service start.
//
// Usage:
//
//	GEOCODER_USER_AGENT="me@example.com" go run ./cmd/geocode \
//	  -in data/provider_info.csv \
//	  -out data/provider_info_geocoded.csv
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/facility-survey-forecast/internal/adapter/nominatim"
	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/ingest"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

func main() {
	in := flag.String("in", "", "roster file to geocode (CSV or XLSX); defaults to ROSTER_FILE")
	out := flag.String("out", "", "output CSV path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *in == "" {
		*in = cfg.DataPath(cfg.RosterFile)
	}
	if *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// This command always geocodes; GEOCODER_ENABLED only gates the service.
	cfg.GeocoderEnabled = true
	geocoder := nominatim.FromConfig(cfg, metrics, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *in, *out, geocoder, logger); err != nil {
		logger.Error("geocode failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, in, out string, geocoder domain.Geocoder, logger *slog.Logger) error {
	t, err := ingest.ReadTable(in)
	if err != nil {
		return err
	}
	roster, skipped, err := ingest.Roster(t)
	if err != nil {
		return fmt.Errorf("%s: %w", in, err)
	}
	logger.Info("roster loaded", "file", in, "rows", len(roster), "skipped", skipped)

	filled, report := domain.BackfillCoordinates(ctx, roster, geocoder, logger)
	logger.Info("roster coordinates backfilled",
		"attempted", report.Attempted,
		"filled", report.Filled,
		"empty", report.Empty,
		"failed", report.Failed,
	)
	if err := ctx.Err(); err != nil {
		logger.Warn("interrupted; writing partial results", "reason", err)
	}

	updated, n, err := ingest.ApplyCoordinates(t, filled)
	if err != nil {
		return err
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := updated.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", out, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output: %w", err)
	}
	logger.Info("roster written", "file", out, "rows_updated", n)
	return nil
}
