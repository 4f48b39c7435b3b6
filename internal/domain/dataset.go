package domain

import (
	"sort"
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

// Dataset is an immutable snapshot of the three input tables plus lookup
// indexes. Build it with NewDataset after resolution; never mutate the
// slices afterwards.
type Dataset struct {
	Facilities []Facility
	Roster     []RosterEntry
	Events     []SurveyEvent
	LoadedAt   time.Time

	// Absent names the optional tables that could not be loaded.
	Absent []string

	rosterByCCN     map[string]int
	facilitiesByCCN map[string][]int
	eventsByCCN     map[string][]int
	datesByCCN      map[string][]time.Time
	ccns            []string
}

// NewDataset indexes the given tables by CCN. Survey dates for a CCN are the
// union of its deficiency event dates and its survey summary row dates,
// de-duplicated on (CCN, date).
func NewDataset(facilities []Facility, roster []RosterEntry, events []SurveyEvent) *Dataset {
	d := &Dataset{
		Facilities:      facilities,
		Roster:          roster,
		Events:          events,
		LoadedAt:        Now(),
		rosterByCCN:     make(map[string]int, len(roster)),
		facilitiesByCCN: make(map[string][]int),
		eventsByCCN:     make(map[string][]int),
		datesByCCN:      make(map[string][]time.Time),
	}

	for i := range roster {
		ccn := identity.NormalizeCCN(roster[i].CCN)
		if ccn == "" {
			continue
		}
		if _, ok := d.rosterByCCN[ccn]; !ok {
			d.rosterByCCN[ccn] = i
		}
	}

	seen := make(map[string]map[time.Time]struct{})
	addDate := func(ccn string, t time.Time) {
		if t.IsZero() {
			return
		}
		set, ok := seen[ccn]
		if !ok {
			set = make(map[time.Time]struct{})
			seen[ccn] = set
		}
		if _, dup := set[t]; dup {
			return
		}
		set[t] = struct{}{}
		d.datesByCCN[ccn] = append(d.datesByCCN[ccn], t)
	}

	for i := range events {
		ccn := identity.NormalizeCCN(events[i].CCN)
		if ccn == "" {
			continue
		}
		d.eventsByCCN[ccn] = append(d.eventsByCCN[ccn], i)
		addDate(ccn, events[i].Date)
	}

	for i := range facilities {
		ccn := identity.NormalizeCCN(facilities[i].CCN)
		if ccn == "" {
			continue
		}
		if _, ok := d.facilitiesByCCN[ccn]; !ok {
			d.ccns = append(d.ccns, ccn)
		}
		d.facilitiesByCCN[ccn] = append(d.facilitiesByCCN[ccn], i)
		addDate(ccn, facilities[i].SurveyDate)
	}

	for ccn := range d.datesByCCN {
		dates := d.datesByCCN[ccn]
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	}
	sort.Strings(d.ccns)

	return d
}

// Require returns a *MissingDataError when table was not loaded.
func (d *Dataset) Require(table string) error {
	for _, t := range d.Absent {
		if t == table {
			return &MissingDataError{Table: table}
		}
	}
	return nil
}

// RosterEntryFor returns the roster entry for ccn. When several entries share
// a CCN the first one in input order wins.
func (d *Dataset) RosterEntryFor(ccn string) (RosterEntry, bool) {
	i, ok := d.rosterByCCN[identity.NormalizeCCN(ccn)]
	if !ok {
		return RosterEntry{}, false
	}
	return d.Roster[i], true
}

// FacilitiesFor returns every survey summary row resolved to ccn.
func (d *Dataset) FacilitiesFor(ccn string) []Facility {
	idx := d.facilitiesByCCN[identity.NormalizeCCN(ccn)]
	out := make([]Facility, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.Facilities[i])
	}
	return out
}

// EventsFor returns every survey event for ccn, duplicates included.
func (d *Dataset) EventsFor(ccn string) []SurveyEvent {
	idx := d.eventsByCCN[identity.NormalizeCCN(ccn)]
	out := make([]SurveyEvent, 0, len(idx))
	for _, i := range idx {
		out = append(out, d.Events[i])
	}
	return out
}

// SurveyDates returns the distinct survey dates for ccn in ascending order.
// The returned slice is shared; callers must not modify it.
func (d *Dataset) SurveyDates(ccn string) []time.Time {
	return d.datesByCCN[identity.NormalizeCCN(ccn)]
}

// CCNs returns the sorted distinct CCNs carried by resolved survey summary rows.
func (d *Dataset) CCNs() []string {
	return d.ccns
}

// LatestSurveyDate returns the most recent survey date across ccns.
func (d *Dataset) LatestSurveyDate(ccns []string) (time.Time, bool) {
	var latest time.Time
	for _, ccn := range ccns {
		dates := d.SurveyDates(ccn)
		if len(dates) == 0 {
			continue
		}
		if last := dates[len(dates)-1]; last.After(latest) {
			latest = last
		}
	}
	return latest, !latest.IsZero()
}

// LatestEventDate returns the most recent survey date in the whole snapshot.
func (d *Dataset) LatestEventDate() (time.Time, bool) {
	var latest time.Time
	for _, dates := range d.datesByCCN {
		if len(dates) == 0 {
			continue
		}
		if last := dates[len(dates)-1]; last.After(latest) {
			latest = last
		}
	}
	return latest, !latest.IsZero()
}
