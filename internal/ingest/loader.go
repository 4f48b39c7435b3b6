package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
)

// Sources locates the input files. Roster and DeficienciesGlob are optional.
type Sources struct {
	Facilities       string
	Roster           string
	DeficienciesGlob string
}

// Tables is the decoded content of one load.
type Tables struct {
	Facilities []domain.Facility
	Roster     []domain.RosterEntry
	Events     []domain.SurveyEvent

	// Absent lists optional tables that were missing or unreadable.
	Absent []string
	Files  []string
}

// Load reads every source. A missing or malformed survey summary is fatal;
// the roster and deficiency tables degrade to absent with a warning.
// Deficiency part files matched by the glob are read in lexical order and
// concatenated.
func Load(ctx context.Context, src Sources, logger *slog.Logger) (*Tables, error) {
	tables := &Tables{}

	t, err := readRequired(src.Facilities)
	if err != nil {
		return nil, err
	}
	facilities, skipped, err := Facilities(t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Facilities, err)
	}
	tables.Facilities = facilities
	tables.Files = append(tables.Files, src.Facilities)
	logger.Info("table loaded", "table", domain.TableFacilities, "file", src.Facilities, "rows", len(facilities), "skipped", skipped)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if roster, ok := loadRoster(src.Roster, logger); ok {
		tables.Roster = roster
		tables.Files = append(tables.Files, src.Roster)
	} else {
		tables.Absent = append(tables.Absent, domain.TableRoster)
	}

	parts, err := deficiencyParts(src.DeficienciesGlob)
	if err != nil {
		logger.Warn("invalid deficiencies pattern", "pattern", src.DeficienciesGlob, "error", err)
	}
	if len(parts) == 0 {
		logger.Warn("no deficiency files found; trends and survey histories will be unavailable", "pattern", src.DeficienciesGlob)
		tables.Absent = append(tables.Absent, domain.TableDeficiencies)
		return tables, nil
	}

	loaded := 0
	for _, path := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events, skipped, err := readEvents(path)
		if err != nil {
			logger.Warn("skipping deficiency file", "file", path, "error", err)
			continue
		}
		tables.Events = append(tables.Events, events...)
		tables.Files = append(tables.Files, path)
		loaded++
		logger.Info("table loaded", "table", domain.TableDeficiencies, "file", path, "rows", len(events), "skipped", skipped)
	}
	if loaded == 0 {
		tables.Absent = append(tables.Absent, domain.TableDeficiencies)
	}
	return tables, nil
}

func readRequired(path string) (*Table, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, &domain.MissingDataError{Table: domain.TableFacilities}
	}
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("read facilities: %w", err)
	}
	return t, nil
}

func loadRoster(path string, logger *slog.Logger) ([]domain.RosterEntry, bool) {
	if path == "" {
		return nil, false
	}
	t, err := ReadTable(path)
	if err != nil {
		logger.Warn("roster unavailable; CCN matching disabled", "file", path, "error", err)
		return nil, false
	}
	roster, skipped, err := Roster(t)
	if err != nil {
		logger.Warn("roster unusable; CCN matching disabled", "file", path, "error", err)
		return nil, false
	}
	logger.Info("table loaded", "table", domain.TableRoster, "file", path, "rows", len(roster), "skipped", skipped)
	return roster, true
}

func readEvents(path string) ([]domain.SurveyEvent, int, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, 0, err
	}
	return Events(t)
}

func deficiencyParts(pattern string) ([]string, error) {
	if pattern == "" {
		return nil, nil
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
