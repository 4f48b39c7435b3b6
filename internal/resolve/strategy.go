package resolve

import (
	"strings"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
)

// MaxContainmentLenDiff bounds how much longer one name may be than the other
// for a substring match to count.
const MaxContainmentLenDiff = 10

// Matcher proposes a CCN for a facility row, or reports no match.
type Matcher func(f domain.Facility, idx *Index) (string, bool)

// Strategy is a named Matcher.
type Strategy struct {
	Name  string
	Match Matcher
}

// Strategy names, also used as metric labels.
const (
	StrategyVariant     = "variant"
	StrategyExact       = "exact"
	StrategyContainment = "containment"
)

// DefaultStrategies are tried in order; the first match wins.
var DefaultStrategies = []Strategy{
	{Name: StrategyVariant, Match: MatchVariant},
	{Name: StrategyExact, Match: MatchExact},
	{Name: StrategyContainment, Match: MatchContainment},
}

// FirstMatch runs strategies in order and returns the first CCN found along
// with the name of the strategy that produced it.
func FirstMatch(f domain.Facility, idx *Index, strategies []Strategy) (ccn, strategy string, ok bool) {
	for _, s := range strategies {
		if ccn, ok := s.Match(f, idx); ok {
			return ccn, s.Name, true
		}
	}
	return "", "", false
}

// MatchVariant tries the roster lookup with each normalized name variant,
// most aggressive first.
func MatchVariant(f domain.Facility, idx *Index) (string, bool) {
	state := identity.NormalizeState(f.State)
	for _, v := range identity.NameVariants(f.Name) {
		if ccn, ok := idx.lookup(v, state); ok {
			return ccn, true
		}
	}
	return "", false
}

// MatchExact compares the trimmed upper-case name against roster names in
// the same state without any punctuation handling.
func MatchExact(f domain.Facility, idx *Index) (string, bool) {
	name := strings.ToUpper(strings.TrimSpace(f.Name))
	if name == "" {
		return "", false
	}
	for _, i := range idx.inState(identity.NormalizeState(f.State)) {
		if idx.upper[i] == name {
			return identity.NormalizeCCN(idx.entries[i].CCN), true
		}
	}
	return "", false
}

// MatchContainment accepts the first same-state roster entry whose name
// contains the facility name or is contained by it, provided the lengths
// differ by at most MaxContainmentLenDiff characters.
func MatchContainment(f domain.Facility, idx *Index) (string, bool) {
	name := strings.ToUpper(strings.TrimSpace(f.Name))
	if name == "" {
		return "", false
	}
	for _, i := range idx.inState(identity.NormalizeState(f.State)) {
		rn := idx.upper[i]
		if rn == "" {
			continue
		}
		if !strings.Contains(rn, name) && !strings.Contains(name, rn) {
			continue
		}
		if abs(len(rn)-len(name)) <= MaxContainmentLenDiff {
			return identity.NormalizeCCN(idx.entries[i].CCN), true
		}
	}
	return "", false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
