// Package ingest reads the survey summary, provider roster and deficiency
// extracts from CSV or XLSX files into domain values.
package ingest

import (
	"strings"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

// Field is a canonical column name. Everything past the loader works on
// these names only.
type Field string

const (
	FieldCCN            Field = "ccn"
	FieldName           Field = "name"
	FieldState          Field = "state"
	FieldCounty         Field = "county"
	FieldAddress        Field = "address"
	FieldCity           Field = "city"
	FieldZIP            Field = "zip"
	FieldSurveyDate     Field = "survey_date"
	FieldOverallRating  Field = "overall_rating"
	FieldCertifiedBeds  Field = "certified_beds"
	FieldAvgResidents   Field = "avg_residents"
	FieldHealthRating   Field = "health_rating"
	FieldStaffingRating Field = "staffing_rating"
	FieldLatitude       Field = "latitude"
	FieldLongitude      Field = "longitude"
	FieldCategory       Field = "category"
	FieldTag            Field = "tag"
	FieldDescription    Field = "description"
)

// FieldSpec lists the header names a field may appear under, in preference
// order. Matching is case-insensitive. Fallback, when set, is consulted for
// headers no synonym matched.
type FieldSpec struct {
	Field    Field
	Synonyms []string
	Required bool
	Fallback func(lowerHeader string) bool
}

// Schema describes one input table.
type Schema struct {
	Table  string
	Fields []FieldSpec
}

// looksLikeCCN accepts headers such as "Provider CCN" or "Certification
// Number".
func looksLikeCCN(h string) bool {
	return strings.Contains(h, "ccn") || (strings.Contains(h, "certification") && strings.Contains(h, "number"))
}

var (
	ccnSpec = FieldSpec{
		Field:    FieldCCN,
		Synonyms: []string{"CMS Certification Number (CCN)", "CMS Certification Number", "CCN", "Federal Provider Number"},
		Fallback: looksLikeCCN,
	}
	nameSpec   = FieldSpec{Field: FieldName, Synonyms: []string{"Provider Name", "provider_name", "Facility Name", "facility_name", "Name"}}
	stateSpec  = FieldSpec{Field: FieldState, Synonyms: []string{"State", "Provider State", "Provider_State"}}
	countySpec = FieldSpec{Field: FieldCounty, Synonyms: []string{"County/Parish", "County", "County Name", "county_name", "Provider County Name"}}
	dateSpec   = FieldSpec{Field: FieldSurveyDate, Synonyms: []string{"Health Survey Date", "Survey Date", "Date"}}

	ratingSpecs = []FieldSpec{
		{Field: FieldOverallRating, Synonyms: []string{"Overall Rating"}},
		{Field: FieldCertifiedBeds, Synonyms: []string{"Number of Certified Beds"}},
		{Field: FieldAvgResidents, Synonyms: []string{"Average Number of Residents per Day"}},
		{Field: FieldHealthRating, Synonyms: []string{"Health Inspection Rating"}},
		{Field: FieldStaffingRating, Synonyms: []string{"Staffing Rating"}},
		{Field: FieldLatitude, Synonyms: []string{"Latitude", "lat"}},
		{Field: FieldLongitude, Synonyms: []string{"Longitude", "lng", "lon"}},
	}
)

func required(s FieldSpec) FieldSpec {
	s.Required = true
	return s
}

// FacilitySchema is the survey summary extract. CCN is optional; rows
// without one are resolved against the roster.
var FacilitySchema = Schema{
	Table: domain.TableFacilities,
	Fields: append([]FieldSpec{
		ccnSpec,
		required(nameSpec),
		required(stateSpec),
		countySpec,
		dateSpec,
	}, ratingSpecs...),
}

// RosterSchema is the provider information extract.
var RosterSchema = Schema{
	Table: domain.TableRoster,
	Fields: append([]FieldSpec{
		required(ccnSpec),
		required(nameSpec),
		required(stateSpec),
		countySpec,
		{Field: FieldAddress, Synonyms: []string{"Provider Address", "Address"}},
		{Field: FieldCity, Synonyms: []string{"City/Town", "Provider City", "City"}},
		{Field: FieldZIP, Synonyms: []string{"ZIP Code", "Provider Zip Code", "Zip"}},
	}, ratingSpecs...),
}

// DeficiencySchema is one part of the health deficiencies extract.
var DeficiencySchema = Schema{
	Table: domain.TableDeficiencies,
	Fields: []FieldSpec{
		required(ccnSpec),
		required(dateSpec),
		{Field: FieldCategory, Synonyms: []string{"Deficiency Category"}},
		{Field: FieldTag, Synonyms: []string{"Deficiency Tag Number", "Deficiency Tag"}},
		{Field: FieldDescription, Synonyms: []string{"Deficiency Description"}},
	},
}

// Binding maps canonical fields to column positions of one table.
type Binding struct {
	cols map[Field]int
}

// Bind resolves the schema against a header row. A required field that no
// header matches yields a *domain.MissingDataError.
func (s Schema) Bind(header []string) (Binding, error) {
	lower := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := lower[h]; !dup {
			lower[h] = i
		}
	}

	b := Binding{cols: make(map[Field]int, len(s.Fields))}
	for _, fs := range s.Fields {
		if i, ok := matchColumn(fs, header, lower); ok {
			b.cols[fs.Field] = i
			continue
		}
		if fs.Required {
			return Binding{}, &domain.MissingDataError{Table: s.Table, Column: fs.Synonyms[0]}
		}
	}
	return b, nil
}

func matchColumn(fs FieldSpec, header []string, lower map[string]int) (int, bool) {
	for _, syn := range fs.Synonyms {
		if i, ok := lower[strings.ToLower(syn)]; ok {
			return i, true
		}
	}
	if fs.Fallback == nil {
		return 0, false
	}
	for i, h := range header {
		if fs.Fallback(strings.ToLower(strings.TrimSpace(h))) {
			return i, true
		}
	}
	return 0, false
}

// Has reports whether the table carries the field.
func (b Binding) Has(f Field) bool {
	_, ok := b.cols[f]
	return ok
}

// Index returns the column position of f.
func (b Binding) Index(f Field) (int, bool) {
	i, ok := b.cols[f]
	return i, ok
}

// Get returns the trimmed cell for f, or "" when the column or cell is absent.
func (b Binding) Get(row []string, f Field) string {
	i, ok := b.cols[f]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
