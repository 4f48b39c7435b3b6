package domain

import "time"

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Attributes are the roster-derived values attached to a facility. Nil or
// empty fields are missing; resolution fills them from the roster and
// propagation copies them across rows of the same facility.
type Attributes struct {
	County         string   `json:"county,omitempty"`
	OverallRating  *int     `json:"overall_rating,omitempty"`
	CertifiedBeds  *int     `json:"certified_beds,omitempty"`
	AvgResidents   *float64 `json:"avg_residents,omitempty"`
	HealthRating   *int     `json:"health_inspection_rating,omitempty"`
	StaffingRating *int     `json:"staffing_rating,omitempty"`
	Geo            *Geo     `json:"geo,omitempty"`
}

// FillMissing copies every field of src into a that a does not already have.
func (a *Attributes) FillMissing(src Attributes) {
	if a.County == "" {
		a.County = src.County
	}
	if a.OverallRating == nil {
		a.OverallRating = src.OverallRating
	}
	if a.CertifiedBeds == nil {
		a.CertifiedBeds = src.CertifiedBeds
	}
	if a.AvgResidents == nil {
		a.AvgResidents = src.AvgResidents
	}
	if a.HealthRating == nil {
		a.HealthRating = src.HealthRating
	}
	if a.StaffingRating == nil {
		a.StaffingRating = src.StaffingRating
	}
	if a.Geo == nil {
		a.Geo = src.Geo
	}
}

// Facility is one row of the survey summary. A facility surveyed several
// times appears on several rows sharing the same raw (Name, State) pair.
type Facility struct {
	Name  string `json:"name"`
	State string `json:"state"`

	// CCN is empty until resolution assigns one.
	CCN string `json:"ccn,omitempty"`

	Attributes

	// SurveyDate is zero when the row carries no usable date.
	SurveyDate time.Time `json:"survey_date,omitempty"`
}

// Key returns the raw (name, state) natural key used before resolution.
func (f Facility) Key() FacilityKey {
	return FacilityKey{Name: f.Name, State: f.State}
}

// FacilityKey is the raw natural key of a survey summary row.
type FacilityKey struct {
	Name  string
	State string
}

// RosterEntry is the authoritative provider record for one CCN.
type RosterEntry struct {
	CCN     string `json:"ccn"`
	Name    string `json:"name"`
	State   string `json:"state"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	ZIP     string `json:"zip,omitempty"`

	Attributes
}

// SurveyEvent is one deficiency citation (or bare survey) for a facility.
// Category, Tag and Description are empty for events that only record a date.
type SurveyEvent struct {
	CCN         string    `json:"ccn"`
	Date        time.Time `json:"date"`
	Category    string    `json:"category,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Description string    `json:"description,omitempty"`
}

// ForecastRecord is the published form of a facility forecast.
type ForecastRecord struct {
	CCN            string    `json:"ccn"`
	Name           string    `json:"name"`
	State          string    `json:"state"`
	County         string    `json:"county,omitempty"`
	IntervalDays   int       `json:"interval_days"`
	IntervalSource string    `json:"interval_source"`
	ReferenceDate  time.Time `json:"reference_date"`
	ForecastDate   time.Time `json:"forecast_date"`
	GeneratedAt    time.Time `json:"generated_at"`
	SnapshotID     string    `json:"snapshot_id,omitempty"`
}
