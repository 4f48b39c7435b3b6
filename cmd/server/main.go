package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/facility-survey-forecast/internal/adapter/http"
	"github.com/couchcryptid/facility-survey-forecast/internal/adapter/nominatim"
	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	geocoder := nominatim.FromConfig(cfg, metrics, logger)

	sources := service.SourcesFromConfig(cfg)
	store := service.NewStore(service.FileLoader(sources, geocoder, logger, metrics), logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A failed initial load leaves the service up but not ready; POST
	// /api/reload retries it.
	if _, err := store.Reload(ctx); err != nil {
		logger.Error("initial snapshot load failed", "error", err, "facilities", sources.Facilities)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, store, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
