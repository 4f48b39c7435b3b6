package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultGeocoderURL       = "https://nominatim.openstreetmap.org/search"
	defaultGeocoderUserAgent = "facility-survey-forecast/1.0"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Input snapshot location.
	DataDir          string
	FacilitiesFile   string
	RosterFile       string
	DeficienciesGlob string

	KafkaBrokers       []string
	KafkaForecastTopic string
	BatchSize          int

	// Nominatim geocoding configuration.
	GeocoderEnabled   bool
	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderTimeout   time.Duration
	GeocoderCacheSize int

	// GeocoderMinInterval spaces requests to honour the provider's usage policy.
	GeocoderMinInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parseDuration("GEOCODER_TIMEOUT", "20s")
	if err != nil || geocoderTimeout == 0 {
		return nil, errors.New("invalid GEOCODER_TIMEOUT")
	}

	geocoderInterval, err := parseDuration("GEOCODER_MIN_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parseBatchSize()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:          envOrDefault("DATA_DIR", "data"),
		FacilitiesFile:   envOrDefault("FACILITIES_FILE", "SurveySummaryAll.csv"),
		RosterFile:       envOrDefault("ROSTER_FILE", "provider_info.csv"),
		DeficienciesGlob: envOrDefault("DEFICIENCIES_GLOB", "health_deficiencies*.csv"),

		KafkaBrokers:       parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaForecastTopic: envOrDefault("KAFKA_FORECAST_TOPIC", "facility-forecasts"),
		BatchSize:          batchSize,

		GeocoderEnabled:   os.Getenv("GEOCODER_ENABLED") == "true",
		GeocoderURL:       envOrDefault("GEOCODER_URL", defaultGeocoderURL),
		GeocoderUserAgent: envOrDefault("GEOCODER_USER_AGENT", defaultGeocoderUserAgent),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderCacheSize: parseGeocoderCacheSize(),

		GeocoderMinInterval: geocoderInterval,
	}

	if cfg.FacilitiesFile == "" {
		return nil, errors.New("FACILITIES_FILE is required")
	}
	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaForecastTopic == "" {
		return nil, errors.New("KAFKA_FORECAST_TOPIC is required")
	}
	if cfg.GeocoderEnabled && strings.TrimSpace(cfg.GeocoderUserAgent) == "" {
		return nil, errors.New("GEOCODER_ENABLED is true but GEOCODER_USER_AGENT is empty")
	}

	return cfg, nil
}

// DataPath resolves name against DATA_DIR. Absolute names are returned as is.
func (c *Config) DataPath(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func parseBatchSize() (int, error) {
	n, err := strconv.Atoi(envOrDefault("BATCH_SIZE", "50"))
	if err != nil || n < 1 || n > 1000 {
		return 0, errors.New("invalid BATCH_SIZE: must be between 1 and 1000")
	}
	return n, nil
}

func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func parseGeocoderCacheSize() int {
	if s := os.Getenv("GEOCODER_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
