package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/facility-survey-forecast/internal/domain"
	"github.com/couchcryptid/facility-survey-forecast/internal/forecast"
	"github.com/couchcryptid/facility-survey-forecast/internal/insights"
	"github.com/couchcryptid/facility-survey-forecast/internal/peers"
	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusResponse struct {
	SnapshotID   string         `json:"snapshot_id"`
	LoadedAt     string         `json:"loaded_at"`
	Facilities   int            `json:"facilities"`
	Roster       int            `json:"roster"`
	RosterKeys   int            `json:"roster_keys"`
	Events       int            `json:"events"`
	Absent       []string       `json:"absent"`
	Files        []string       `json:"files"`
	Resolution   map[string]int `json:"resolution"`
	GeocodeFills int            `json:"geocode_fills"`
}

type resolveResponse struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	CCN     string `json:"ccn,omitempty"`
	Matched bool   `json:"matched"`
}

type peersResponse struct {
	CCN   string   `json:"ccn"`
	Mode  string   `json:"mode"`
	Peers []string `json:"peers"`
	Count int      `json:"count"`
}

type intervalResponse struct {
	CCN string `json:"ccn"`
	forecast.Estimate
}

type forecastRequest struct {
	State string `json:"state"`
	CCN   string `json:"ccn"`
}

type forecastResponse struct {
	CCN             string `json:"ccn,omitempty"`
	State           string `json:"state,omitempty"`
	ForecastDate    string `json:"forecast_date"`
	IntervalDays    int    `json:"interval_days"`
	IntervalSource  string `json:"interval_source"`
	ReferenceDate   string `json:"reference_date"`
	ReferenceSource string `json:"reference_source"`
}

type datesResponse struct {
	CCN   string   `json:"ccn"`
	Dates []string `json:"dates"`
}

// snapshot writes an error response and returns nil when nothing is loaded.
func (s *Server) snapshot(w http.ResponseWriter) *service.Snapshot {
	snap, err := s.store.Current()
	if err != nil {
		s.writeError(w, err)
		return nil
	}
	return snap
}

// writeError reports missing data verbatim and hides anything else behind a
// generic message. Both are 500s.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if domain.IsMissingData(err) {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ds := snap.Dataset
	resolution := map[string]int{
		service.OutcomePreassigned: snap.Report.Preassigned,
		service.OutcomePropagated:  snap.Report.Propagated,
		service.OutcomeUnresolved:  snap.Report.Unresolved,
	}
	for name, n := range snap.Report.ByStrategy {
		resolution[name] = n
	}
	writeJSON(w, http.StatusOK, statusResponse{
		SnapshotID:   snap.ID,
		LoadedAt:     ds.LoadedAt.UTC().Format(time.RFC3339),
		Facilities:   len(ds.Facilities),
		Roster:       len(ds.Roster),
		RosterKeys:   snap.Resolver.Index().Len(),
		Events:       len(ds.Events),
		Absent:       nonNil(ds.Absent),
		Files:        nonNil(snap.Files),
		Resolution:   resolution,
		GeocodeFills: snap.Geocode.Filled,
	})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	state := strings.TrimSpace(r.URL.Query().Get("state"))
	if name == "" || state == "" {
		badRequest(w, "name and state are required")
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ccn, ok := snap.ResolveIdentifier(name, state)
	writeJSON(w, http.StatusOK, resolveResponse{Name: name, State: state, CCN: ccn, Matched: ok})
}

func parseMode(w http.ResponseWriter, r *http.Request) (peers.Mode, bool) {
	mode, err := peers.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		badRequest(w, err.Error())
		return "", false
	}
	return mode, true
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	if err := snap.RequirePeerData(mode); err != nil {
		s.writeError(w, err)
		return
	}
	ccn := r.PathValue("ccn")
	list := nonNil(snap.FindPeers(ccn, r.URL.Query().Get("state"), mode))
	writeJSON(w, http.StatusOK, peersResponse{CCN: ccn, Mode: string(mode), Peers: list, Count: len(list)})
}

func (s *Server) handlePeerSurveyDates(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(w, r)
	if !ok {
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	if err := snap.RequirePeerData(mode); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Insights.PeerSurveyDates(r.PathValue("ccn"), r.URL.Query().Get("state"), mode))
}

func (s *Server) handleInterval(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ccn := r.PathValue("ccn")
	est := snap.EstimateNextInterval(ccn, r.URL.Query().Get("state"))
	writeJSON(w, http.StatusOK, intervalResponse{CCN: ccn, Estimate: est})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	var req forecastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.CCN) == "" && strings.TrimSpace(req.State) == "" {
		badRequest(w, "ccn or state is required")
		return
	}
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	f := snap.ForecastNextSurvey(req.CCN, req.State)
	s.logger.Debug("forecast computed",
		"ccn", f.CCN,
		"state", f.State,
		"interval_days", f.Interval.Days,
		"interval_source", f.Interval.Source,
		"reference_source", f.ReferenceSource,
	)
	writeJSON(w, http.StatusOK, forecastResponse{
		CCN:             f.CCN,
		State:           f.State,
		ForecastDate:    f.DateString(),
		IntervalDays:    f.Interval.Days,
		IntervalSource:  string(f.Interval.Source),
		ReferenceDate:   domain.FormatDate(f.ReferenceDate),
		ReferenceSource: f.ReferenceSource,
	})
}

func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	writeJSON(w, http.StatusOK, snap.Insights.FacilitiesByState(r.PathValue("state")))
}

func (s *Server) handleSurveyDates(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	ccn := r.PathValue("ccn")
	writeJSON(w, http.StatusOK, datesResponse{CCN: ccn, Dates: snap.Insights.SurveyDates(ccn)})
}

func (s *Server) handleDeficiencyTrends(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	state := r.PathValue("state")
	county := strings.TrimSpace(r.URL.Query().Get("county"))

	var (
		trends insights.Trends
		err    error
	)
	if county != "" {
		trends, err = snap.Insights.CountyDeficiencyTrends(state, county)
	} else {
		trends, err = snap.Insights.StateDeficiencyTrends(state)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trends)
}

func (s *Server) handleMonthlySurveys(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	counts, err := snap.Insights.MonthlySurveyCounts(r.PathValue("state"), r.URL.Query().Get("county"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Reload(r.Context())
	if err != nil {
		if domain.IsMissingData(err) {
			s.writeError(w, err)
			return
		}
		s.logger.Error("reload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "reload failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "reloaded",
		"snapshot_id": snap.ID,
		"facilities":  len(snap.Dataset.Facilities),
		"roster":      len(snap.Dataset.Roster),
		"events":      len(snap.Dataset.Events),
		"absent":      nonNil(snap.Dataset.Absent),
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
