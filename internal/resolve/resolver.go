package resolve

import (
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

// Report counts how each survey summary row obtained (or failed to obtain)
// its CCN.
type Report struct {
	Rows        int
	Preassigned int
	ByStrategy  map[string]int
	Propagated  int
	Unresolved  int
}

// Result is the output of Resolve.
type Result struct {
	Facilities []domain.Facility
	Report     Report
}

// Resolve assigns CCNs to facility rows and fills their attributes from the
// roster. It returns new rows; the input slice is left untouched.
//
// Rows that already carry a CCN keep it. Every other row is run through the
// strategies in order. Matched rows take any attribute they lack from the
// roster entry of their CCN. Finally all rows sharing a raw (name, state) pair
// receive the group's first non-missing CCN and attribute values, so a
// repeated facility that matched on only one row is repaired on all of them.
func Resolve(facilities []domain.Facility, idx *Index, strategies []Strategy) Result {
	out := make([]domain.Facility, len(facilities))
	copy(out, facilities)
	report := Report{Rows: len(out), ByStrategy: make(map[string]int, len(strategies))}

	for i := range out {
		f := &out[i]
		if ccn := identity.NormalizeCCN(f.CCN); ccn != "" {
			f.CCN = ccn
			report.Preassigned++
		} else if ccn, name, ok := FirstMatch(*f, idx, strategies); ok {
			f.CCN = ccn
			report.ByStrategy[name]++
		} else {
			f.CCN = ""
		}

		if f.CCN == "" {
			continue
		}
		if entry, ok := idx.Entry(f.CCN); ok {
			f.Attributes.FillMissing(entry.Attributes)
		}
	}

	report.Propagated = propagate(out)
	for i := range out {
		if out[i].CCN == "" {
			report.Unresolved++
		}
	}
	return Result{Facilities: out, Report: report}
}

type group struct {
	ccn   string
	attrs domain.Attributes
	rows  []int
}

// propagate applies the group-wise first-non-missing reduction in place and
// returns how many rows gained a CCN from it.
func propagate(rows []domain.Facility) int {
	groups := make(map[domain.FacilityKey]*group)
	var order []domain.FacilityKey
	for i := range rows {
		k := rows[i].Key()
		g, ok := groups[k]
		if !ok {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		if g.ccn == "" {
			g.ccn = rows[i].CCN
		}
		g.attrs.FillMissing(rows[i].Attributes)
		g.rows = append(g.rows, i)
	}

	gained := 0
	for _, k := range order {
		g := groups[k]
		for _, i := range g.rows {
			if rows[i].CCN == "" && g.ccn != "" {
				gained++
			}
			rows[i].CCN = g.ccn
			rows[i].Attributes = g.attrs
		}
	}
	return gained
}

// Resolver answers ad-hoc identity queries against a resolved snapshot.
type Resolver struct {
	idx        *Index
	strategies []Strategy
	known      map[domain.FacilityKey]string
}

// NewResolver remembers the CCN of every resolved row so that a query for a
// raw (name, state) pair already seen returns the propagated answer.
func NewResolver(idx *Index, resolved []domain.Facility, strategies []Strategy) *Resolver {
	known := make(map[domain.FacilityKey]string)
	for _, f := range resolved {
		if f.CCN == "" {
			continue
		}
		if _, ok := known[f.Key()]; !ok {
			known[f.Key()] = f.CCN
		}
	}
	return &Resolver{idx: idx, strategies: strategies, known: known}
}

// ResolveIdentifier returns the CCN for a raw facility name and state. An
// unmatched name returns false; that is an expected outcome, not an error.
func (r *Resolver) ResolveIdentifier(name, state string) (string, bool) {
	if ccn, ok := r.known[domain.FacilityKey{Name: name, State: state}]; ok {
		return ccn, true
	}
	ccn, _, ok := FirstMatch(domain.Facility{Name: name, State: state}, r.idx, r.strategies)
	return ccn, ok
}

// Index returns the roster index the resolver matches against.
func (r *Resolver) Index() *Index {
	return r.idx
}
