package domain

import (
	"context"
	"log/slog"
	"strings"
)

// GeocodeReport counts the outcomes of a coordinate backfill.
type GeocodeReport struct {
	Attempted int
	Filled    int
	Empty     int
	Failed    int
}

// RosterAddress joins the street address parts of an entry into a single
// query string, e.g. "100 MAIN ST, NAPLES, FL 34102".
func RosterAddress(e RosterEntry) string {
	var parts []string
	for _, p := range []string{e.Address, e.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	tail := strings.TrimSpace(strings.TrimSpace(e.State) + " " + strings.TrimSpace(e.ZIP))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// BackfillCoordinates geocodes roster entries that have an address but no
// coordinates. Entries are returned in a new slice; failures leave the entry
// untouched (graceful degradation).
func BackfillCoordinates(ctx context.Context, roster []RosterEntry, geocoder Geocoder, logger *slog.Logger) ([]RosterEntry, GeocodeReport) {
	var report GeocodeReport
	out := make([]RosterEntry, len(roster))
	copy(out, roster)
	if geocoder == nil {
		return out, report
	}

	for i := range out {
		if out[i].Geo != nil || strings.TrimSpace(out[i].Address) == "" {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		report.Attempted++

		result, err := geocoder.ForwardGeocode(ctx, RosterAddress(out[i]))
		if err != nil {
			logger.Warn("forward geocoding failed",
				"ccn", out[i].CCN,
				"address", out[i].Address,
				"error", err,
			)
			report.Failed++
			continue
		}
		if !result.Found() {
			report.Empty++
			continue
		}
		out[i].Geo = &Geo{Lat: result.Lat, Lon: result.Lon}
		report.Filled++
	}
	return out, report
}
