package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

// isBlank treats spreadsheet placeholders as missing.
func isBlank(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nan", "none", "null", "n/a", "na", "nat":
		return true
	}
	return false
}

func parseFloat(s string) *float64 {
	if isBlank(s) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// parseInt accepts integral floats such as "4.0" as exported by spreadsheets.
func parseInt(s string) *int {
	f := parseFloat(s)
	if f == nil {
		return nil
	}
	v := int(math.Round(*f))
	return &v
}

func text(s string) string {
	if isBlank(s) {
		return ""
	}
	return strings.TrimSpace(s)
}

func attributes(b Binding, row []string) domain.Attributes {
	a := domain.Attributes{
		County:         text(b.Get(row, FieldCounty)),
		OverallRating:  parseInt(b.Get(row, FieldOverallRating)),
		CertifiedBeds:  parseInt(b.Get(row, FieldCertifiedBeds)),
		AvgResidents:   parseFloat(b.Get(row, FieldAvgResidents)),
		HealthRating:   parseInt(b.Get(row, FieldHealthRating)),
		StaffingRating: parseInt(b.Get(row, FieldStaffingRating)),
	}
	lat, lon := parseFloat(b.Get(row, FieldLatitude)), parseFloat(b.Get(row, FieldLongitude))
	if lat != nil && lon != nil {
		a.Geo = &domain.Geo{Lat: *lat, Lon: *lon}
	}
	return a
}

// Facilities converts survey summary rows. Rows without a name are skipped.
func Facilities(t *Table) ([]domain.Facility, int, error) {
	b, err := FacilitySchema.Bind(t.Header)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Facility, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		name := text(b.Get(row, FieldName))
		if name == "" {
			skipped++
			continue
		}
		f := domain.Facility{
			Name:       name,
			State:      text(b.Get(row, FieldState)),
			CCN:        identity.NormalizeCCN(b.Get(row, FieldCCN)),
			Attributes: attributes(b, row),
		}
		if d, ok := domain.ParseSurveyDate(b.Get(row, FieldSurveyDate)); ok {
			f.SurveyDate = d
		}
		out = append(out, f)
	}
	return out, skipped, nil
}

// Roster converts provider information rows. Rows without a CCN are skipped.
func Roster(t *Table) ([]domain.RosterEntry, int, error) {
	b, err := RosterSchema.Bind(t.Header)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.RosterEntry, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		ccn := identity.NormalizeCCN(b.Get(row, FieldCCN))
		if ccn == "" {
			skipped++
			continue
		}
		out = append(out, domain.RosterEntry{
			CCN:        ccn,
			Name:       text(b.Get(row, FieldName)),
			State:      text(b.Get(row, FieldState)),
			Address:    text(b.Get(row, FieldAddress)),
			City:       text(b.Get(row, FieldCity)),
			ZIP:        text(b.Get(row, FieldZIP)),
			Attributes: attributes(b, row),
		})
	}
	return out, skipped, nil
}

// Events converts deficiency rows. Rows without a CCN are skipped; rows with
// an unusable date are kept for category counts but carry a zero Date.
func Events(t *Table) ([]domain.SurveyEvent, int, error) {
	b, err := DeficiencySchema.Bind(t.Header)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.SurveyEvent, 0, len(t.Rows))
	skipped := 0
	for _, row := range t.Rows {
		ccn := identity.NormalizeCCN(b.Get(row, FieldCCN))
		if ccn == "" {
			skipped++
			continue
		}
		ev := domain.SurveyEvent{
			CCN:         ccn,
			Category:    text(b.Get(row, FieldCategory)),
			Tag:         text(b.Get(row, FieldTag)),
			Description: text(b.Get(row, FieldDescription)),
		}
		if d, ok := domain.ParseSurveyDate(b.Get(row, FieldSurveyDate)); ok {
			ev.Date = d
		}
		out = append(out, ev)
	}
	return out, skipped, nil
}
