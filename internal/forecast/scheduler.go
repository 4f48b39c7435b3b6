package forecast

import (
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
)

// Reference date tiers.
const (
	ReferenceHistory  = "history"
	ReferenceState    = "state"
	ReferenceSnapshot = "snapshot"
	ReferenceToday    = "today"
)

// Forecast is the predicted next survey date for one facility.
type Forecast struct {
	CCN             string    `json:"ccn,omitempty"`
	State           string    `json:"state,omitempty"`
	Interval        Estimate  `json:"interval"`
	ReferenceDate   time.Time `json:"reference_date"`
	ReferenceSource string    `json:"reference_source"`
	Date            time.Time `json:"forecast_date"`
}

// DateString renders the forecast date as YYYY-MM-DD.
func (f Forecast) DateString() string {
	return domain.FormatDate(f.Date)
}

// Scheduler turns interval estimates into calendar dates.
type Scheduler struct {
	est *Estimator
}

// NewScheduler returns a Scheduler backed by est.
func NewScheduler(est *Estimator) *Scheduler {
	return &Scheduler{est: est}
}

// ForecastNextSurvey adds the estimated interval to a reference date and
// rounds the result to the nearest Monday. The reference date is the
// facility's last survey; failing that, the latest survey among facilities
// in its state; then the latest survey in the snapshot; then today.
func (s *Scheduler) ForecastNextSurvey(ccn, state string) Forecast {
	ccn = identity.NormalizeCCN(ccn)
	interval := s.est.EstimateNextInterval(ccn, state)
	ref, source := s.referenceDate(ccn, state)

	return Forecast{
		CCN:             ccn,
		State:           state,
		Interval:        interval,
		ReferenceDate:   ref,
		ReferenceSource: source,
		Date:            RoundToNearestMonday(ref.AddDate(0, 0, interval.Days)),
	}
}

func (s *Scheduler) referenceDate(ccn, state string) (time.Time, string) {
	if ccn != "" {
		if dates := s.est.history.SurveyDates(ccn); len(dates) > 0 {
			return dates[len(dates)-1], ReferenceHistory
		}
	}

	subject := s.est.peers.SubjectFor(ccn, state)
	if ccns := s.est.peers.FindPeersFor(subject, peers.ModeState); len(ccns) > 0 {
		if latest, ok := s.est.history.LatestSurveyDate(ccns); ok {
			return latest, ReferenceState
		}
	}
	if latest, ok := s.est.history.LatestEventDate(); ok {
		return latest, ReferenceSnapshot
	}
	return domain.Today(), ReferenceToday
}

// RoundToNearestMonday returns the Monday closest to t's calendar date. A
// date equally close to both goes to the earlier Monday.
func RoundToNearestMonday(t time.Time) time.Time {
	t = domain.TruncateDay(t)
	sinceMonday := (int(t.Weekday()) + 6) % 7
	untilMonday := (7 - sinceMonday) % 7
	if sinceMonday <= untilMonday {
		return t.AddDate(0, 0, -sinceMonday)
	}
	return t.AddDate(0, 0, untilMonday)
}
