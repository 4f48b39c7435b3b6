package nominatim

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

const (
	testUserAgent     = "facility-survey-forecast-test"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(url string, timeout time.Duration) *Client {
	c := NewClient(Options{URL: url, UserAgent: testUserAgent, Timeout: timeout},
		observability.NewMetricsForTesting(),
		discardLogger(),
	)
	c.http.SetRetryCount(0)
	return c
}

func TestClient_ForwardGeocode_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "100 MAIN ST, NAPLES, FL 34102", q.Get("q"))
		assert.Equal(t, "jsonv2", q.Get("format"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "0", q.Get("addressdetails"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"lat":"26.1420358","lon":"-81.7948103","display_name":"100 Main Street, Naples, Florida","importance":0.61}]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ForwardGeocode(context.Background(), "100 MAIN ST, NAPLES, FL 34102")
	require.NoError(t, err)

	assert.InDelta(t, 26.1420358, result.Lat, 1e-9)
	assert.InDelta(t, -81.7948103, result.Lon, 1e-9)
	assert.Equal(t, "100 Main Street, Naples, Florida", result.DisplayName)
	assert.InDelta(t, 0.61, result.Importance, 1e-9)
	assert.True(t, result.Found())
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("success")), 1e-9)
}

func TestClient_ForwardGeocode_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	result, err := c.ForwardGeocode(context.Background(), "NOWHERE")
	require.NoError(t, err)

	assert.False(t, result.Found())
	assert.Empty(t, result.DisplayName)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("empty")), 1e-9)
}

func TestClient_ForwardGeocode_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Access blocked"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 5*time.Second)
	_, err := c.ForwardGeocode(context.Background(), "100 MAIN ST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.GeocodeRequests.WithLabelValues("error")), 1e-9)
}

func TestClient_ForwardGeocode_BadCoordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = w.Write([]byte(`[{"lat":"north","lon":"-81.79"}]`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 5*time.Second).ForwardGeocode(context.Background(), "100 MAIN ST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lat")
}

func TestClient_ForwardGeocode_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 50*time.Millisecond).ForwardGeocode(context.Background(), "100 MAIN ST")
	require.Error(t, err)
}

func TestClient_ForwardGeocode_RateLimitHonoursContext(t *testing.T) {
	c := NewClient(Options{URL: "http://127.0.0.1:1", UserAgent: testUserAgent, MinInterval: time.Hour},
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	// Drain the single burst token.
	require.True(t, c.limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.ForwardGeocode(ctx, "100 MAIN ST")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
