package nominatim

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

func TestFromConfig_Disabled(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	geo := FromConfig(&config.Config{}, metrics, discardLogger())

	assert.Nil(t, geo)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.GeocodeEnabled), 1e-9)
}

func TestFromConfig_Enabled(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	geo := FromConfig(&config.Config{
		GeocoderEnabled:   true,
		GeocoderURL:       "http://localhost:8088/search",
		GeocoderUserAgent: "test-agent",
		GeocoderTimeout:   time.Second,
		GeocoderCacheSize: 10,
	}, metrics, discardLogger())

	require.NotNil(t, geo)
	cached, ok := geo.(*CachedGeocoder)
	require.True(t, ok)
	client, ok := cached.inner.(*Client)
	require.True(t, ok)
	assert.Equal(t, "http://localhost:8088/search", client.url)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeEnabled), 1e-9)
}
