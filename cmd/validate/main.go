// Command validate loads the configured input snapshot and checks it end to
// end: input tables, identity resolution consistency, forecast bounds, and
// peer group membership. It exits non-zero when any phase fails.
//
// Usage:
//
//	DATA_DIR=data go run ./cmd/validate -today 2024-03-04
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/facility-survey-forecast/internal/config"
	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/forecast"
	"github.com/couchcryptid/facility-survey-forecast/internal/identity"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	today := flag.String("today", "", "pin the clock to this date (YYYY-MM-DD) for reproducible forecasts")
	verbose := flag.Bool("v", false, "log table loading")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	if *today != "" {
		t, err := time.Parse(domain.DateLayout, *today)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -today: %v\n", err)
			os.Exit(1)
		}
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if *verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	snap, err := service.FileLoader(service.SourcesFromConfig(cfg), nil, logger, nil)(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}

	if !report(os.Stdout, snap, validate(snap)) {
		os.Exit(1)
	}
}

func validate(snap *service.Snapshot) []*phase {
	return []*phase{
		validateTables(snap),
		validateResolution(snap),
		validateForecasts(snap),
		validatePeers(snap),
	}
}

func report(w io.Writer, snap *service.Snapshot, phases []*phase) bool {
	fmt.Fprintln(w, "=== Facility Survey Snapshot Validation ===")
	fmt.Fprintln(w)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	ds := snap.Dataset
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d facility rows, %d roster entries, %d deficiency events, %d CCNs\n",
		len(ds.Facilities), len(ds.Roster), len(ds.Events), len(ds.CCNs()))
	if len(ds.Absent) > 0 {
		fmt.Fprintf(w, "Absent tables: %v\n", ds.Absent)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return true
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return false
}

// ── Phase 1: Input Tables ──

func validateTables(snap *service.Snapshot) *phase {
	p := &phase{name: "Phase 1: Input Tables"}
	ds := snap.Dataset

	if len(ds.Facilities) == 0 {
		p.errorf("facilities table has no rows")
	}
	for i, f := range ds.Facilities {
		if f.Name == "" || f.State == "" {
			p.errorf("facility row %d: missing name or state", i)
		}
		if !f.SurveyDate.IsZero() && (f.SurveyDate.Before(domain.MinSurveyDate) || f.SurveyDate.After(domain.MaxSurveyDate)) {
			p.errorf("facility row %d (%s): survey date %s outside plausible range", i, f.Name, domain.FormatDate(f.SurveyDate))
		}
	}

	seen := make(map[string]int, len(ds.Roster))
	for i, e := range ds.Roster {
		if prev, dup := seen[e.CCN]; dup {
			p.errorf("roster rows %d and %d share CCN %s", prev, i, e.CCN)
			continue
		}
		seen[e.CCN] = i
	}
	return p
}

// ── Phase 2: Resolution Consistency ──
// Every row of a raw (name, state) pair must carry the same CCN, and ad-hoc
// resolution must agree with the batch result.

func validateResolution(snap *service.Snapshot) *phase {
	p := &phase{name: "Phase 2: Resolution Consistency"}
	r := snap.Report

	matched := 0
	for _, n := range r.ByStrategy {
		matched += n
	}
	if total := r.Preassigned + matched + r.Propagated + r.Unresolved; total != r.Rows {
		p.errorf("report: preassigned %d + matched %d + propagated %d + unresolved %d = %d, want %d rows",
			r.Preassigned, matched, r.Propagated, r.Unresolved, total, r.Rows)
	}

	byKey := make(map[domain.FacilityKey]string)
	for _, f := range snap.Dataset.Facilities {
		k := f.Key()
		if ccn, ok := byKey[k]; ok {
			if ccn != f.CCN {
				p.errorf("%s (%s): rows disagree on CCN: %q vs %q", k.Name, k.State, ccn, f.CCN)
			}
			continue
		}
		byKey[k] = f.CCN

		got, ok := snap.ResolveIdentifier(k.Name, k.State)
		switch {
		case f.CCN != "" && (!ok || got != f.CCN):
			p.errorf("%s (%s): resolved %q ad hoc, %q in batch", k.Name, k.State, got, f.CCN)
		case f.CCN == "" && ok:
			p.errorf("%s (%s): unresolved in batch but resolves ad hoc to %q", k.Name, k.State, got)
		}
	}
	return p
}

// ── Phase 3: Forecast Bounds ──

func validateForecasts(snap *service.Snapshot) *phase {
	p := &phase{name: "Phase 3: Forecast Bounds"}
	for _, ccn := range snap.Dataset.CCNs() {
		fc := snap.Scheduler.ForecastNextSurvey(ccn, "")
		checkForecast(p, ccn, fc)
	}
	return p
}

func checkForecast(p *phase, ccn string, fc forecast.Forecast) {
	days := fc.Interval.Days
	if days < forecast.MinIntervalDays || days > forecast.MaxIntervalDays {
		p.errorf("%s: interval %d days outside [%d, %d]", ccn, days, forecast.MinIntervalDays, forecast.MaxIntervalDays)
	}
	if unsnapped(days) {
		p.errorf("%s: interval %d days falls in a seasonal window but was not snapped", ccn, days)
	}
	if fc.Date.Weekday() != time.Monday {
		p.errorf("%s: forecast date %s is a %s", ccn, fc.DateString(), fc.Date.Weekday())
	}
	if !fc.Date.After(fc.ReferenceDate) {
		p.errorf("%s: forecast date %s not after reference %s", ccn, fc.DateString(), domain.FormatDate(fc.ReferenceDate))
	}
}

// unsnapped reports an interval inside one of the annual, 18-month or
// biennial windows that is not the window's canonical value.
func unsnapped(days int) bool {
	switch {
	case days >= 320 && days <= 410:
		return days != 365
	case days >= 500 && days <= 590:
		return days != 548
	case days >= 680:
		return days != 730
	}
	return false
}

// ── Phase 4: Peer Groups ──

func validatePeers(snap *service.Snapshot) *phase {
	p := &phase{name: "Phase 4: Peer Groups"}
	for _, ccn := range snap.Dataset.CCNs() {
		subject := snap.Grouper.SubjectFor(ccn, "")
		aliases := identity.StateAliases(subject.State)
		for _, peer := range snap.FindPeers(ccn, "", peers.ModeState) {
			if s := snap.Grouper.SubjectFor(peer, ""); !identity.InState(aliases, s.State) {
				p.errorf("%s (%s): state peer %s is in %s", ccn, subject.State, peer, s.State)
			}
		}
		if subject.County == "" {
			continue
		}
		county := identity.NormalizeCounty(subject.County)
		for _, peer := range snap.FindPeers(ccn, "", peers.ModeCounty) {
			if s := snap.Grouper.SubjectFor(peer, ""); identity.NormalizeCounty(s.County) != county {
				p.errorf("%s (%s): county peer %s is in %s", ccn, subject.County, peer, s.County)
			}
		}
	}
	return p
}
