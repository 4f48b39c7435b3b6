package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	results map[string]GeocodingResult
	err     error
	queries []string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, address string) (GeocodingResult, error) {
	m.queries = append(m.queries, address)
	if m.err != nil {
		return GeocodingResult{}, m.err
	}
	return m.results[address], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestRosterAddress(t *testing.T) {
	tests := []struct {
		name     string
		entry    RosterEntry
		expected string
	}{
		{"full address", RosterEntry{Address: "100 MAIN ST", City: "NAPLES", State: "FL", ZIP: "34102"}, "100 MAIN ST, NAPLES, FL 34102"},
		{"no zip", RosterEntry{Address: "100 MAIN ST", City: "NAPLES", State: "FL"}, "100 MAIN ST, NAPLES, FL"},
		{"street only", RosterEntry{Address: " 100 MAIN ST "}, "100 MAIN ST"},
		{"empty", RosterEntry{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, RosterAddress(tt.entry))
		})
	}
}

func TestBackfillCoordinates_NilGeocoder(t *testing.T) {
	roster := []RosterEntry{{CCN: "105001", Address: "100 MAIN ST"}}

	out, report := BackfillCoordinates(context.Background(), roster, nil, discardLogger())

	require.Len(t, out, 1)
	assert.Nil(t, out[0].Geo)
	assert.Zero(t, report.Attempted)
}

func TestBackfillCoordinates_FillsMissing(t *testing.T) {
	geo := &mockGeocoder{results: map[string]GeocodingResult{
		"100 MAIN ST, NAPLES, FL 34102": {Lat: 26.14, Lon: -81.79, DisplayName: "Naples"},
	}}
	roster := []RosterEntry{
		{CCN: "105001", Address: "100 MAIN ST", City: "NAPLES", State: "FL", ZIP: "34102"},
		{CCN: "105002", Address: "1 BAY RD", State: "FL", Attributes: Attributes{Geo: &Geo{Lat: 1, Lon: 2}}},
		{CCN: "105003"},
	}

	out, report := BackfillCoordinates(context.Background(), roster, geo, discardLogger())

	require.NotNil(t, out[0].Geo)
	assert.Equal(t, 26.14, out[0].Geo.Lat)
	assert.Equal(t, -81.79, out[0].Geo.Lon)
	assert.Equal(t, &Geo{Lat: 1, Lon: 2}, out[1].Geo, "existing coordinates are kept")
	assert.Nil(t, out[2].Geo, "no address, no lookup")
	assert.Equal(t, GeocodeReport{Attempted: 1, Filled: 1}, report)
	assert.Len(t, geo.queries, 1)
	assert.Nil(t, roster[0].Geo, "input slice is not modified")
}

func TestBackfillCoordinates_ErrorGracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("rate limited")}
	roster := []RosterEntry{
		{CCN: "105001", Address: "100 MAIN ST"},
		{CCN: "105002", Address: "200 MAIN ST"},
	}

	out, report := BackfillCoordinates(context.Background(), roster, geo, discardLogger())

	assert.Nil(t, out[0].Geo)
	assert.Nil(t, out[1].Geo)
	assert.Equal(t, 2, report.Failed, "one failure does not abort the batch")
}

func TestBackfillCoordinates_EmptyResult(t *testing.T) {
	geo := &mockGeocoder{results: map[string]GeocodingResult{}}
	roster := []RosterEntry{{CCN: "105001", Address: "NOWHERE"}}

	out, report := BackfillCoordinates(context.Background(), roster, geo, discardLogger())

	assert.Nil(t, out[0].Geo)
	assert.Equal(t, 1, report.Empty)
}
