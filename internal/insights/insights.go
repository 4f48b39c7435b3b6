// Package insights aggregates a dataset snapshot into the views served by the
// dashboard API: deficiency category trends, monthly survey volume, per
// facility survey calendars and state facility listings.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
)

// TopCategories is how many categories the trend summary sentence names.
const TopCategories = 5

// CategoryCount is the number of citations in one deficiency category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// Trends is a ranked category breakdown with a one-line summary.
type Trends struct {
	Categories []CategoryCount `json:"trends"`
	Summary    string          `json:"summary"`
}

// MonthBucket counts distinct surveys in one calendar month across all years.
type MonthBucket struct {
	Month int    `json:"month"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// MonthlyCounts is a twelve bucket survey histogram.
type MonthlyCounts struct {
	Buckets []MonthBucket `json:"buckets"`
	Count   int           `json:"count"`
}

// FacilitySummary is one facility of a state listing.
type FacilitySummary struct {
	Name  string `json:"name"`
	State string `json:"state"`
	CCN   string `json:"ccn,omitempty"`
	domain.Attributes
	Surveys    int    `json:"surveys"`
	LastSurvey string `json:"last_survey,omitempty"`
}

// PeerDates is the survey calendar of one peer facility.
type PeerDates struct {
	CCN   string   `json:"ccn"`
	Name  string   `json:"name,omitempty"`
	Dates []string `json:"dates"`
}

// Insights computes read-only views over one snapshot.
type Insights struct {
	ds      *domain.Dataset
	grouper *peers.Grouper
}

// New returns Insights over ds.
func New(ds *domain.Dataset, grouper *peers.Grouper) *Insights {
	return &Insights{ds: ds, grouper: grouper}
}

// StateDeficiencyTrends ranks deficiency categories cited at facilities in
// state.
func (in *Insights) StateDeficiencyTrends(state string) (Trends, error) {
	if err := in.ds.Require(domain.TableDeficiencies); err != nil {
		return Trends{}, err
	}
	ccns := in.grouper.FindPeersFor(peers.Subject{State: state}, peers.ModeState)
	return in.trends(ccns, fmt.Sprintf("In state %s", state)), nil
}

// CountyDeficiencyTrends ranks deficiency categories cited at roster
// facilities in one county of state.
func (in *Insights) CountyDeficiencyTrends(state, county string) (Trends, error) {
	if err := in.ds.Require(domain.TableDeficiencies); err != nil {
		return Trends{}, err
	}
	if err := in.ds.Require(domain.TableRoster); err != nil {
		return Trends{}, err
	}
	ccns := in.grouper.FindPeersFor(peers.Subject{State: state, County: county}, peers.ModeCounty)
	return in.trends(ccns, fmt.Sprintf("In %s county, %s", county, state)), nil
}

func (in *Insights) trends(ccns []string, scope string) Trends {
	counts := make(map[string]int)
	for _, ccn := range ccns {
		for _, ev := range in.ds.EventsFor(ccn) {
			if ev.Category == "" {
				continue
			}
			counts[ev.Category]++
		}
	}
	if len(counts) == 0 {
		return Trends{Categories: []CategoryCount{}}
	}

	ranked := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		ranked = append(ranked, CategoryCount{Category: c, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Category < ranked[j].Category
	})

	top := make([]string, 0, TopCategories)
	for _, c := range ranked[:min(TopCategories, len(ranked))] {
		top = append(top, fmt.Sprintf("%s (%d)", c.Category, c.Count))
	}
	return Trends{
		Categories: ranked,
		Summary:    fmt.Sprintf("%s, the most frequent deficiency categories are: %s.", scope, strings.Join(top, ", ")),
	}
}

// MonthlySurveyCounts buckets the distinct (CCN, date) surveys of a state,
// or of one county when county is non-empty, by calendar month.
func (in *Insights) MonthlySurveyCounts(state, county string) (MonthlyCounts, error) {
	if err := in.ds.Require(domain.TableDeficiencies); err != nil {
		return MonthlyCounts{}, err
	}
	subject, mode := peers.Subject{State: state}, peers.ModeState
	if strings.TrimSpace(county) != "" {
		subject.County, mode = county, peers.ModeCounty
	}

	var byMonth [12]int
	total := 0
	for _, ccn := range in.grouper.FindPeersFor(subject, mode) {
		for _, d := range in.ds.SurveyDates(ccn) {
			byMonth[d.Month()-1]++
			total++
		}
	}

	out := MonthlyCounts{Buckets: make([]MonthBucket, 12), Count: total}
	for m := range byMonth {
		out.Buckets[m] = MonthBucket{
			Month: m + 1,
			Label: time.Month(m + 1).String()[:3],
			Count: byMonth[m],
		}
	}
	return out, nil
}

// SurveyDates returns the distinct survey dates of ccn as ISO strings.
func (in *Insights) SurveyDates(ccn string) []string {
	return isoDates(in.ds.SurveyDates(ccn))
}

// PeerSurveyDates returns the survey calendar of every peer of ccn that has
// at least one survey.
func (in *Insights) PeerSurveyDates(ccn, state string, mode peers.Mode) []PeerDates {
	subject := in.grouper.SubjectFor(ccn, state)
	out := []PeerDates{}
	for _, peer := range in.grouper.FindPeersFor(subject, mode) {
		dates := in.ds.SurveyDates(peer)
		if len(dates) == 0 {
			continue
		}
		pd := PeerDates{CCN: peer, Dates: isoDates(dates)}
		if e, ok := in.ds.RosterEntryFor(peer); ok {
			pd.Name = e.Name
		}
		out = append(out, pd)
	}
	return out
}

// FacilitiesByState lists facilities of state, one entry per raw (name,
// state) pair, sorted by name.
func (in *Insights) FacilitiesByState(state string) []FacilitySummary {
	aliases := identity.StateAliases(state)
	seen := make(map[domain.FacilityKey]struct{})
	out := []FacilitySummary{}
	for _, f := range in.ds.Facilities {
		if !identity.InState(aliases, f.State) {
			continue
		}
		if _, dup := seen[f.Key()]; dup {
			continue
		}
		seen[f.Key()] = struct{}{}

		s := FacilitySummary{Name: f.Name, State: f.State, CCN: f.CCN, Attributes: f.Attributes}
		if dates := in.ds.SurveyDates(f.CCN); f.CCN != "" && len(dates) > 0 {
			s.Surveys = len(dates)
			s.LastSurvey = domain.FormatDate(dates[len(dates)-1])
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func isoDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, domain.FormatDate(d))
	}
	return out
}
