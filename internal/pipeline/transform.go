package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

// ErrUnresolved is returned for facilities that never obtained a CCN.
var ErrUnresolved = errors.New("facility has no CCN")

// Target is one facility to forecast.
type Target struct {
	CCN    string
	Name   string
	State  string
	County string
}

// SnapshotCursor walks the facilities of a snapshot in CCN order, followed by
// the unresolved (name, state) pairs in input order.
type SnapshotCursor struct {
	mu      sync.Mutex
	targets []Target
	pos     int
}

// NewSnapshotCursor lists the facilities of snap. A non-empty state keeps
// only facilities in that state (codes and full names both accepted).
func NewSnapshotCursor(snap *service.Snapshot, state string) *SnapshotCursor {
	var aliases map[string]struct{}
	if state != "" {
		aliases = identity.StateAliases(state)
	}
	keep := func(s string) bool {
		return aliases == nil || identity.InState(aliases, s)
	}

	var targets []Target
	for _, ccn := range snap.Dataset.CCNs() {
		s := snap.Grouper.SubjectFor(ccn, "")
		if !keep(s.State) {
			continue
		}
		targets = append(targets, Target{CCN: ccn, Name: s.Name, State: s.State, County: s.County})
	}

	seen := make(map[domain.FacilityKey]struct{})
	for _, f := range snap.Dataset.Facilities {
		if f.CCN != "" || !keep(f.State) {
			continue
		}
		if _, dup := seen[f.Key()]; dup {
			continue
		}
		seen[f.Key()] = struct{}{}
		targets = append(targets, Target{Name: f.Name, State: f.State, County: f.County})
	}
	return &SnapshotCursor{targets: targets}
}

// Len returns the total number of targets.
func (c *SnapshotCursor) Len() int {
	return len(c.targets)
}

// ExtractBatch returns the next batchSize targets, with io.EOF once the
// cursor is exhausted.
func (c *SnapshotCursor) ExtractBatch(ctx context.Context, batchSize int) ([]Target, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	end := min(c.pos+batchSize, len(c.targets))
	batch := c.targets[c.pos:end]
	c.pos = end
	if c.pos >= len(c.targets) {
		return batch, io.EOF
	}
	return batch, nil
}

// Forecaster implements Transformer with the snapshot's scheduler.
type Forecaster struct {
	snap *service.Snapshot
}

// NewForecaster creates a Forecaster over snap.
func NewForecaster(snap *service.Snapshot) *Forecaster {
	return &Forecaster{snap: snap}
}

func (f *Forecaster) Transform(_ context.Context, t Target) (domain.ForecastRecord, error) {
	if t.CCN == "" {
		return domain.ForecastRecord{}, fmt.Errorf("%s (%s): %w", t.Name, t.State, ErrUnresolved)
	}
	fc := f.snap.ForecastNextSurvey(t.CCN, t.State)
	return domain.ForecastRecord{
		CCN:            fc.CCN,
		Name:           t.Name,
		State:          t.State,
		County:         t.County,
		IntervalDays:   fc.Interval.Days,
		IntervalSource: string(fc.Interval.Source),
		ReferenceDate:  fc.ReferenceDate,
		ForecastDate:   fc.Date,
		GeneratedAt:    domain.Now().UTC(),
		SnapshotID:     f.snap.ID,
	}, nil
}
