package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/ingest"
	"github.com/couchcryptid/facility-survey-forecast/internal/observability"
)

// LoadFunc produces a fresh snapshot.
type LoadFunc func(ctx context.Context) (*Snapshot, error)

// Store holds the current snapshot. Readers never block; a reload builds a
// complete snapshot off to the side and swaps it in atomically, so in-flight
// requests keep the snapshot they started with.
type Store struct {
	current atomic.Pointer[Snapshot]
	load    LoadFunc
	reload  sync.Mutex
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore returns an empty Store that loads snapshots with load.
func NewStore(load LoadFunc, logger *slog.Logger, metrics *observability.Metrics) *Store {
	return &Store{load: load, logger: logger, metrics: metrics}
}

// SourcesFromConfig resolves the configured input files against DATA_DIR.
func SourcesFromConfig(cfg *config.Config) ingest.Sources {
	return ingest.Sources{
		Facilities:       cfg.DataPath(cfg.FacilitiesFile),
		Roster:           cfg.DataPath(cfg.RosterFile),
		DeficienciesGlob: cfg.DataPath(cfg.DeficienciesGlob),
	}
}

// FileLoader reads src and builds a snapshot from it.
func FileLoader(src ingest.Sources, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) LoadFunc {
	return func(ctx context.Context) (*Snapshot, error) {
		tables, err := ingest.Load(ctx, src, logger)
		if err != nil {
			return nil, fmt.Errorf("load snapshot: %w", err)
		}
		return Build(ctx, tables, geocoder, logger, metrics), nil
	}
}

// Current returns the active snapshot or domain.ErrNotLoaded.
func (s *Store) Current() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.ErrNotLoaded
	}
	return snap, nil
}

// Swap installs snap and returns the previous snapshot, if any.
func (s *Store) Swap(snap *Snapshot) *Snapshot {
	return s.current.Swap(snap)
}

// Reload builds a new snapshot and swaps it in. On failure the previous
// snapshot stays active. Concurrent reloads are serialized.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	s.reload.Lock()
	defer s.reload.Unlock()

	start := time.Now()
	snap, err := s.load(ctx)
	if s.metrics != nil {
		s.metrics.ReloadDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		s.count("error")
		s.logger.Error("snapshot reload failed", "error", err)
		return nil, err
	}

	s.Swap(snap)
	s.count("success")
	s.logger.Info("snapshot loaded",
		"snapshot_id", snap.ID,
		"facilities", len(snap.Dataset.Facilities),
		"roster", len(snap.Dataset.Roster),
		"events", len(snap.Dataset.Events),
		"absent", snap.Dataset.Absent,
		"duration", time.Since(start),
	)
	return snap, nil
}

func (s *Store) count(outcome string) {
	if s.metrics != nil {
		s.metrics.Reloads.WithLabelValues(outcome).Inc()
	}
}

// CheckReadiness reports whether a snapshot has been loaded.
func (s *Store) CheckReadiness(_ context.Context) error {
	_, err := s.Current()
	return err
}
