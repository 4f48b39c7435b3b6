// Package service assembles a loaded input snapshot into the resolver, peer
// grouper, estimator and insight views, and holds the current snapshot for
// concurrent readers.
package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/forecast"
	"github.com/couchcryptid/facility-survey-forecast/internal/ingest"
	"github.com/couchcryptid/facility-survey-forecast/internal/insights"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
	"github.com/couchcryptid/facility-survey-forecast/internal/resolve"
)

// Resolution outcome labels that are not strategy names.
const (
	OutcomePreassigned = "preassigned"
	OutcomePropagated  = "propagated"
	OutcomeUnresolved  = "unresolved"
)

// Snapshot is one immutable, fully indexed view of the input data. All of
// its methods are safe for concurrent use.
type Snapshot struct {
	// ID distinguishes snapshots across reloads; it is stamped on published
	// forecasts.
	ID        string
	Dataset   *domain.Dataset
	Resolver  *resolve.Resolver
	Report    resolve.Report
	Geocode   domain.GeocodeReport
	Grouper   *peers.Grouper
	Estimator *forecast.Estimator
	Scheduler *forecast.Scheduler
	Insights  *insights.Insights
	Files     []string

	metrics *observability.Metrics
}

// Build resolves and indexes tables. Roster coordinates are backfilled first
// when geocoder is non-nil.
func Build(ctx context.Context, tables *ingest.Tables, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) *Snapshot {
	roster := tables.Roster
	var geo domain.GeocodeReport
	if geocoder != nil {
		roster, geo = domain.BackfillCoordinates(ctx, roster, geocoder, logger)
		logger.Info("roster coordinates backfilled",
			"attempted", geo.Attempted,
			"filled", geo.Filled,
			"empty", geo.Empty,
			"failed", geo.Failed,
		)
	}

	idx := resolve.NewIndex(roster)
	result := resolve.Resolve(tables.Facilities, idx, resolve.DefaultStrategies)
	logResolution(logger, result.Report, idx.Len())

	ds := domain.NewDataset(result.Facilities, roster, tables.Events)
	ds.Absent = append([]string(nil), tables.Absent...)

	grouper := peers.NewGrouper(ds)
	est := forecast.NewEstimator(ds, grouper)
	snap := &Snapshot{
		ID:        uuid.NewString(),
		Dataset:   ds,
		Resolver:  resolve.NewResolver(idx, result.Facilities, resolve.DefaultStrategies),
		Report:    result.Report,
		Geocode:   geo,
		Grouper:   grouper,
		Estimator: est,
		Scheduler: forecast.NewScheduler(est),
		Insights:  insights.New(ds, grouper),
		Files:     append([]string(nil), tables.Files...),
		metrics:   metrics,
	}
	snap.record()
	return snap
}

func logResolution(logger *slog.Logger, r resolve.Report, keys int) {
	attrs := []any{
		"roster_keys", keys,
		"rows", r.Rows,
		"preassigned", r.Preassigned,
		"propagated", r.Propagated,
		"unresolved", r.Unresolved,
	}
	for _, s := range resolve.DefaultStrategies {
		attrs = append(attrs, s.Name, r.ByStrategy[s.Name])
	}
	logger.Info("facility identities resolved", attrs...)
}

func (s *Snapshot) record() {
	if s.metrics == nil {
		return
	}
	m := s.metrics
	m.DatasetRows.WithLabelValues(domain.TableFacilities).Set(float64(len(s.Dataset.Facilities)))
	m.DatasetRows.WithLabelValues(domain.TableRoster).Set(float64(len(s.Dataset.Roster)))
	m.DatasetRows.WithLabelValues(domain.TableDeficiencies).Set(float64(len(s.Dataset.Events)))

	m.ResolutionOutcomes.WithLabelValues(OutcomePreassigned).Set(float64(s.Report.Preassigned))
	m.ResolutionOutcomes.WithLabelValues(OutcomePropagated).Set(float64(s.Report.Propagated))
	m.ResolutionOutcomes.WithLabelValues(OutcomeUnresolved).Set(float64(s.Report.Unresolved))
	for _, st := range resolve.DefaultStrategies {
		m.ResolutionOutcomes.WithLabelValues(st.Name).Set(float64(s.Report.ByStrategy[st.Name]))
	}
}

// ResolveIdentifier maps a (name, state) pair to a CCN.
func (s *Snapshot) ResolveIdentifier(name, state string) (string, bool) {
	return s.Resolver.ResolveIdentifier(name, state)
}

// FindPeers returns the peer CCNs of ccn under mode. A non-empty state
// overrides the facility's own state.
func (s *Snapshot) FindPeers(ccn, state string, mode peers.Mode) []string {
	return s.Grouper.FindPeersFor(s.Grouper.SubjectFor(ccn, state), mode)
}

// RequirePeerData reports a MissingDataError when mode groups by roster
// attributes and the roster table was not loaded. State peers only need the
// facilities table.
func (s *Snapshot) RequirePeerData(mode peers.Mode) error {
	if mode == peers.ModeState {
		return nil
	}
	return s.Dataset.Require(domain.TableRoster)
}

// EstimateNextInterval predicts the days until the next survey of ccn.
func (s *Snapshot) EstimateNextInterval(ccn, state string) forecast.Estimate {
	est := s.Estimator.EstimateNextInterval(ccn, state)
	s.countForecast(est.Source)
	return est
}

// ForecastNextSurvey predicts the Monday of the next survey of ccn.
func (s *Snapshot) ForecastNextSurvey(ccn, state string) forecast.Forecast {
	f := s.Scheduler.ForecastNextSurvey(ccn, state)
	s.countForecast(f.Interval.Source)
	return f
}

func (s *Snapshot) countForecast(src forecast.Source) {
	if s.metrics != nil {
		s.metrics.Forecasts.WithLabelValues(string(src)).Inc()
	}
}
