package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/forecast"
	"github.com/couchcryptid/facility-survey-forecast/internal/ingest"
	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func testSnapshot(roster ...domain.RosterEntry) *service.Snapshot {
	tables := &ingest.Tables{
		Facilities: []domain.Facility{
			{Name: "Sunrise Manor", State: "FL", SurveyDate: day("2022-01-03")},
			{Name: "Sunrise Manor", State: "FL", SurveyDate: day("2023-01-02")},
			{Name: "Bayview", State: "FL", CCN: "105002", SurveyDate: day("2023-03-06")},
			{Name: "Ghost Home", State: "FL"},
		},
		Roster: roster,
	}
	return service.Build(context.Background(), tables, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestValidate_Passes(t *testing.T) {
	snap := testSnapshot(
		domain.RosterEntry{CCN: "105001", Name: "SUNRISE MANOR", State: "FL", Attributes: domain.Attributes{County: "Collier"}},
		domain.RosterEntry{CCN: "105002", Name: "BAYVIEW", State: "FL", Attributes: domain.Attributes{County: "Collier County"}},
	)

	phases := validate(snap)
	for _, p := range phases {
		assert.Empty(t, p.errors, p.name)
	}

	var buf bytes.Buffer
	assert.True(t, report(&buf, snap, phases))
	assert.Contains(t, buf.String(), "All validations passed.")
	assert.Contains(t, buf.String(), "4 facility rows, 2 roster entries, 0 deficiency events, 2 CCNs")
}

func TestValidateTables_DuplicateRosterCCN(t *testing.T) {
	snap := testSnapshot(
		domain.RosterEntry{CCN: "105001", Name: "SUNRISE MANOR", State: "FL"},
		domain.RosterEntry{CCN: "105001", Name: "SUNRISE MANOR EAST", State: "FL"},
	)

	p := validateTables(snap)
	require.Len(t, p.errors, 1)
	assert.Contains(t, p.errors[0], "share CCN 105001")

	var buf bytes.Buffer
	assert.False(t, report(&buf, snap, []*phase{p}))
	assert.Contains(t, buf.String(), "Validation FAILED.")
}

func TestCheckForecast(t *testing.T) {
	tests := []struct {
		name   string
		fc     forecast.Forecast
		errors int
	}{
		{
			name: "valid",
			fc: forecast.Forecast{
				Interval:      forecast.Estimate{Days: 365, Source: forecast.SourceHistory},
				ReferenceDate: day("2023-01-02"),
				Date:          day("2024-01-01"),
			},
		},
		{
			name: "not a monday",
			fc: forecast.Forecast{
				Interval:      forecast.Estimate{Days: 365, Source: forecast.SourceHistory},
				ReferenceDate: day("2023-01-02"),
				Date:          day("2024-01-02"),
			},
			errors: 1,
		},
		{
			name: "unsnapped and out of bounds",
			fc: forecast.Forecast{
				Interval:      forecast.Estimate{Days: 800, Source: forecast.SourceState},
				ReferenceDate: day("2023-01-02"),
				Date:          day("2025-03-10"),
			},
			errors: 2,
		},
		{
			name: "before reference",
			fc: forecast.Forecast{
				Interval:      forecast.Estimate{Days: 30, Source: forecast.SourceDefault},
				ReferenceDate: day("2024-01-01"),
				Date:          day("2024-01-01"),
			},
			errors: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &phase{}
			checkForecast(p, "105001", tt.fc)
			assert.Len(t, p.errors, tt.errors, p.errors)
		})
	}
}

func TestUnsnapped(t *testing.T) {
	assert.False(t, unsnapped(365))
	assert.False(t, unsnapped(548))
	assert.False(t, unsnapped(730))
	assert.False(t, unsnapped(200))
	assert.True(t, unsnapped(400))
	assert.True(t, unsnapped(560))
}
