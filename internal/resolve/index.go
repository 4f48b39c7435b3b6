// Package resolve assigns roster CCNs to survey summary rows that lack one
// and propagates roster attributes across rows of the same facility.
package resolve

import (
	"strings"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

type lookupKey struct {
	name  string
	state string
}

// Index is a read-only view of the roster prepared for matching.
type Index struct {
	entries []domain.RosterEntry
	upper   []string // trimmed upper-case roster names, parallel to entries
	byKey   map[lookupKey]string
	byCCN   map[string]int
	byState map[string][]int
}

// NewIndex builds the (name variant, state) lookup from roster entries in
// input order. A key already mapped is never overwritten, so the first roster
// entry for an ambiguous name wins. Entries without a CCN are ignored.
func NewIndex(roster []domain.RosterEntry) *Index {
	idx := &Index{
		entries: roster,
		upper:   make([]string, len(roster)),
		byKey:   make(map[lookupKey]string, len(roster)*2),
		byCCN:   make(map[string]int, len(roster)),
		byState: make(map[string][]int),
	}

	for i, e := range roster {
		idx.upper[i] = strings.ToUpper(strings.TrimSpace(e.Name))
		ccn := identity.NormalizeCCN(e.CCN)
		if ccn == "" {
			continue
		}
		if _, ok := idx.byCCN[ccn]; !ok {
			idx.byCCN[ccn] = i
		}

		state := identity.NormalizeState(e.State)
		idx.byState[state] = append(idx.byState[state], i)
		for _, v := range identity.NameVariants(e.Name) {
			k := lookupKey{name: v, state: state}
			if _, taken := idx.byKey[k]; !taken {
				idx.byKey[k] = ccn
			}
		}
	}
	return idx
}

// Len returns the number of distinct lookup keys.
func (idx *Index) Len() int {
	return len(idx.byKey)
}

// Entry returns the first roster entry carrying ccn.
func (idx *Index) Entry(ccn string) (domain.RosterEntry, bool) {
	i, ok := idx.byCCN[identity.NormalizeCCN(ccn)]
	if !ok {
		return domain.RosterEntry{}, false
	}
	return idx.entries[i], true
}

func (idx *Index) lookup(variant, state string) (string, bool) {
	ccn, ok := idx.byKey[lookupKey{name: variant, state: state}]
	return ccn, ok
}

// inState returns roster positions for a normalized state in input order.
func (idx *Index) inState(state string) []int {
	return idx.byState[state]
}
