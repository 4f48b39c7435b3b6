// Package peers finds facilities comparable to a subject facility by county,
// by distance, or by state.
package peers

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

// Mode selects the peer grouping rule.
type Mode string

const (
	ModeCounty Mode = "county"
	ModeRadius Mode = "radius"
	ModeState  Mode = "state"
)

const (
	// EarthRadiusMiles is the mean Earth radius used by Haversine.
	EarthRadiusMiles = 3958.8

	// RadiusMiles is the inclusive great-circle distance for radius peers.
	RadiusMiles = 60.0
)

// ParseMode validates a mode name. An empty string selects ModeCounty.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeCounty, nil
	case ModeCounty, ModeRadius, ModeState:
		return m, nil
	default:
		return "", fmt.Errorf("unknown peer mode %q", s)
	}
}

// Subject is the facility peers are grouped around. County and Geo may be
// unknown, in which case county and radius modes find nothing.
type Subject struct {
	CCN    string      `json:"ccn,omitempty"`
	Name   string      `json:"name,omitempty"`
	State  string      `json:"state,omitempty"`
	County string      `json:"county,omitempty"`
	Geo    *domain.Geo `json:"geo,omitempty"`
}

// Grouper answers peer queries against one dataset snapshot.
type Grouper struct {
	ds *domain.Dataset
}

// NewGrouper returns a Grouper over ds.
func NewGrouper(ds *domain.Dataset) *Grouper {
	return &Grouper{ds: ds}
}

// SubjectFor describes ccn from its roster entry, falling back to its survey
// summary rows for anything the roster lacks. A non-empty state overrides the
// recorded one.
func (g *Grouper) SubjectFor(ccn, state string) Subject {
	s := Subject{CCN: identity.NormalizeCCN(ccn)}
	if s.CCN != "" {
		if e, ok := g.ds.RosterEntryFor(s.CCN); ok {
			s.Name, s.State, s.County, s.Geo = e.Name, e.State, e.County, e.Geo
		}
		for _, f := range g.ds.FacilitiesFor(s.CCN) {
			if s.Name == "" {
				s.Name = f.Name
			}
			if s.State == "" {
				s.State = f.State
			}
			if s.County == "" {
				s.County = f.County
			}
			if s.Geo == nil {
				s.Geo = f.Geo
			}
		}
	}
	if strings.TrimSpace(state) != "" {
		s.State = strings.TrimSpace(state)
	}
	return s
}

// FindPeers returns the peers of ccn under mode.
func (g *Grouper) FindPeers(ccn string, mode Mode) []string {
	return g.FindPeersFor(g.SubjectFor(ccn, ""), mode)
}

// FindPeersFor returns the sorted, de-duplicated CCNs of the subject's peers.
// The subject itself is included whenever it satisfies the rule.
func (g *Grouper) FindPeersFor(s Subject, mode Mode) []string {
	aliases := identity.StateAliases(s.State)
	if len(aliases) == 0 {
		return nil
	}

	set := make(map[string]struct{})
	switch mode {
	case ModeCounty:
		county := identity.NormalizeCounty(s.County)
		if county == "" {
			return nil
		}
		for _, e := range g.ds.Roster {
			if identity.InState(aliases, e.State) && identity.NormalizeCounty(e.County) == county {
				addCCN(set, e.CCN)
			}
		}
	case ModeRadius:
		if s.Geo == nil {
			return nil
		}
		for _, e := range g.ds.Roster {
			if e.Geo == nil || !identity.InState(aliases, e.State) {
				continue
			}
			if Haversine(*s.Geo, *e.Geo) <= RadiusMiles {
				addCCN(set, e.CCN)
			}
		}
	case ModeState:
		for _, f := range g.ds.Facilities {
			if identity.InState(aliases, f.State) {
				addCCN(set, f.CCN)
			}
		}
	}

	out := make([]string, 0, len(set))
	for ccn := range set {
		out = append(out, ccn)
	}
	sort.Strings(out)
	return out
}

func addCCN(set map[string]struct{}, raw string) {
	if ccn := identity.NormalizeCCN(raw); ccn != "" {
		set[ccn] = struct{}{}
	}
}

// Haversine returns the great-circle distance between a and b in miles.
func Haversine(a, b domain.Geo) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLon := radians(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * EarthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
