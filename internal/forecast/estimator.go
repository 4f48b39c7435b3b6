// Package forecast predicts the interval until a facility's next survey and
// turns it into a Monday-aligned calendar date.
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
)

// Interval bounds and the default used when nothing else is known.
const (
	MinIntervalDays     = 30
	MaxIntervalDays     = 730
	DefaultIntervalDays = 365
)

// Source records which tier produced an interval estimate.
type Source string

const (
	SourceHistory Source = "history"
	SourceCounty  Source = "county"
	SourceState   Source = "state"
	SourceDefault Source = "default"
)

// History exposes de-duplicated, ascending survey dates per CCN plus the
// snapshot-wide latest dates used to anchor forecasts.
type History interface {
	SurveyDates(ccn string) []time.Time
	LatestSurveyDate(ccns []string) (time.Time, bool)
	LatestEventDate() (time.Time, bool)
}

// PeerFinder resolves a subject and its peer CCNs.
type PeerFinder interface {
	SubjectFor(ccn, state string) peers.Subject
	FindPeersFor(s peers.Subject, mode peers.Mode) []string
}

// Estimate is a predicted number of days until the next survey.
type Estimate struct {
	Days   int    `json:"days"`
	Source Source `json:"source"`
}

// Estimator predicts survey intervals from history with peer fallbacks.
type Estimator struct {
	history History
	peers   PeerFinder
}

// NewEstimator returns an Estimator over the given history and peer finder.
func NewEstimator(history History, finder PeerFinder) *Estimator {
	return &Estimator{history: history, peers: finder}
}

// EstimateNextInterval predicts the days until the next survey of ccn. With
// at least two distinct survey dates the prediction comes from a lag-1 least
// squares fit over the facility's own gaps. Otherwise the median gap of the
// pooled county peer dates is used, then the state peer dates, then
// DefaultIntervalDays. The result is always in [MinIntervalDays,
// MaxIntervalDays] and snapped to the nearest 12, 18 or 24 month cycle when
// close to one.
func (e *Estimator) EstimateNextInterval(ccn, state string) Estimate {
	ccn = identity.NormalizeCCN(ccn)
	if ccn != "" {
		if g := gaps(e.history.SurveyDates(ccn)); len(g) > 0 {
			return Estimate{Days: finalize(predictFromGaps(g)), Source: SourceHistory}
		}
	}

	subject := e.peers.SubjectFor(ccn, state)
	for _, tier := range []struct {
		mode   peers.Mode
		source Source
	}{
		{peers.ModeCounty, SourceCounty},
		{peers.ModeState, SourceState},
	} {
		ccns := e.peers.FindPeersFor(subject, tier.mode)
		if len(ccns) == 0 {
			continue
		}
		if g := gaps(e.pooledDates(ccns)); len(g) > 0 {
			return Estimate{Days: finalize(median(g)), Source: tier.source}
		}
	}
	return Estimate{Days: finalize(DefaultIntervalDays), Source: SourceDefault}
}

// pooledDates merges the survey dates of every peer into one ascending,
// de-duplicated sequence.
func (e *Estimator) pooledDates(ccns []string) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, ccn := range ccns {
		for _, d := range e.history.SurveyDates(ccn) {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// gaps returns the day counts between adjacent ascending dates, each at least 1.
func gaps(dates []time.Time) []float64 {
	if len(dates) < 2 {
		return nil
	}
	out := make([]float64, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		days := math.Round(dates[i].Sub(dates[i-1]).Hours() / 24)
		out = append(out, math.Max(1, days))
	}
	return out
}

// predictFromGaps fits gap[t] = a + b*gap[t-1] by ordinary least squares and
// evaluates it at the last gap. A single gap is returned as is; a degenerate
// fit falls back to the median gap.
func predictFromGaps(g []float64) float64 {
	if len(g) == 1 {
		return g[0]
	}
	x, y := g[:len(g)-1], g[1:]
	a, b, ok := ols(x, y)
	if !ok {
		return median(g)
	}
	p := a + b*g[len(g)-1]
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return median(g)
	}
	return p
}

// ols returns intercept and slope of the least squares line through (x, y).
// It reports false when x has no variance.
func ols(x, y []float64) (a, b float64, ok bool) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0, false
	}
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n

	var sxx, sxy float64
	for i := range x {
		dx := x[i] - mx
		sxx += dx * dx
		sxy += dx * (y[i] - my)
	}
	if sxx < 1e-9 {
		return 0, 0, false
	}
	b = sxy / sxx
	return my - b*mx, b, true
}

func median(v []float64) float64 {
	s := append([]float64(nil), v...)
	sort.Float64s(s)
	n := len(s)
	if n == 0 {
		return DefaultIntervalDays
	}
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// finalize rounds half to even, clamps, and applies seasonal snapping.
func finalize(days float64) int {
	days = math.Max(MinIntervalDays, math.Min(MaxIntervalDays, days))
	return snap(int(math.RoundToEven(days)))
}

func snap(d int) int {
	switch {
	case d >= 320 && d <= 410:
		return 365
	case d >= 500 && d <= 590:
		return 548
	case d >= 680 && d <= 770:
		return 730
	}
	return d
}
