package nominatim

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

// Options configures a Client.
type Options struct {
	URL       string
	UserAgent string
	Timeout   time.Duration
	// MinInterval spaces consecutive requests. Zero disables throttling.
	MinInterval time.Duration
}

// Client implements domain.Geocoder using the Nominatim search API.
type Client struct {
	http    *resty.Client
	url     string
	limiter *rate.Limiter
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewClient creates a Nominatim geocoding client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Client {
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Client{
		http: resty.New().
			SetTimeout(opts.Timeout).
			SetRetryCount(2).
			SetRetryWaitTime(500*time.Millisecond).
			SetRetryMaxWaitTime(2*time.Second).
			SetHeader("User-Agent", opts.UserAgent).
			SetHeader("Accept", "application/json"),
		url:     opts.URL,
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// ForwardGeocode resolves a free-form address to its best match. An address
// with no match returns a zero result and no error.
func (c *Client) ForwardGeocode(ctx context.Context, address string) (domain.GeocodingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("geocode rate limit: %w", err)
	}

	var places []place
	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":              address,
			"format":         "jsonv2",
			"limit":          "1",
			"addressdetails": "0",
		}).
		SetResult(&places).
		Get(c.url)
	c.metrics.GeocodeAPIDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("forward geocode request: %w", err)
	}
	if resp.IsError() {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(places) == 0 {
		c.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		c.logger.Debug("no geocoding match", "address", address)
		return domain.GeocodingResult{}, nil
	}

	result, err := places[0].result()
	if err != nil {
		c.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return domain.GeocodingResult{}, err
	}
	c.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	return result, nil
}

// Nominatim jsonv2 response types. Coordinates arrive as strings.

type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}

func (p place) result() (domain.GeocodingResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}
	return domain.GeocodingResult{
		Lat:         lat,
		Lon:         lon,
		DisplayName: p.DisplayName,
		Importance:  p.Importance,
	}, nil
}
