package nominatim

import (
	"log/slog"

	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

// FromConfig builds the cached geocoder described by cfg. It returns nil
// when GEOCODER_ENABLED is not set, which disables coordinate backfill.
func FromConfig(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) domain.Geocoder {
	if !cfg.GeocoderEnabled {
		metrics.GeocodeEnabled.Set(0)
		logger.Info("nominatim geocoding disabled")
		return nil
	}
	client := NewClient(Options{
		URL:         cfg.GeocoderURL,
		UserAgent:   cfg.GeocoderUserAgent,
		Timeout:     cfg.GeocoderTimeout,
		MinInterval: cfg.GeocoderMinInterval,
	}, metrics, logger)
	metrics.GeocodeEnabled.Set(1)
	logger.Info("nominatim geocoding enabled",
		"url", cfg.GeocoderURL,
		"cache_size", cfg.GeocoderCacheSize,
		"min_interval", cfg.GeocoderMinInterval,
	)
	return NewCachedGeocoder(client, cfg.GeocoderCacheSize, metrics)
}
