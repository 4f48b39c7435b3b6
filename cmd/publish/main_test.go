package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/adapter/parquetfile"
	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	write("summary.csv", "Provider Name,Provider State,Survey Date\n"+
		"Sunrise Manor,FL,2022-01-03\n"+
		"Sunrise Manor,FL,2023-01-02\n"+
		"Peach Grove,GA,2023-05-01\n")
	write("roster.csv", "CMS Certification Number (CCN),Provider Name,State,County/Parish\n"+
		"105001,SUNRISE MANOR,FL,Collier\n"+
		"115001,PEACH GROVE,GA,Fulton\n")

	return &config.Config{
		DataDir:          dir,
		FacilitiesFile:   "summary.csv",
		RosterFile:       "roster.csv",
		DeficienciesGlob: "health_deficiencies*.csv",
		BatchSize:        10,
	}
}

func TestRun_ParquetSink(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(t.TempDir(), "forecasts.parquet")

	err := run(context.Background(), cfg, sinkParquet, out, "FL", discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)

	rows, err := parquet.ReadFile[parquetfile.ForecastRow](out)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "105001", rows[0].CCN)
	assert.Equal(t, "Collier", rows[0].County)
	assert.Equal(t, "2024-01-01", rows[0].ForecastDate)

	fd, err := time.Parse("2006-01-02", rows[0].ForecastDate)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, fd.Weekday())
}

func TestRun_UnknownSink(t *testing.T) {
	err := run(context.Background(), testConfig(t), "stdout", "", "", discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown sink")
}

func TestRun_MissingFacilities(t *testing.T) {
	cfg := testConfig(t)
	cfg.FacilitiesFile = "absent.csv"
	out := filepath.Join(t.TempDir(), "forecasts.parquet")

	err := run(context.Background(), cfg, sinkParquet, out, "", discardLogger(), observability.NewMetricsForTesting())
	require.Error(t, err)
	assert.NoFileExists(t, out)
}
