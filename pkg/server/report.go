package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/report"
	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/sosodev/duration"
)

// fleetSummary is the dashboard's top-level view of the served report.
type fleetSummary struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Params      types.AvailabilityParams `json:"params"`
	Batteries   int                      `json:"batteries"`
	Months      int                      `json:"months"`
	Failures    []types.BatteryFailure   `json:"failures,omitempty"`
}

func summarize(rep types.FleetReport) fleetSummary {
	return fleetSummary{
		GeneratedAt: rep.GeneratedAt,
		Params:      rep.Params,
		Batteries:   len(rep.Batteries),
		Months:      len(rep.Combined),
		Failures:    rep.Failures,
	}
}

func (s *Server) handleFleet(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(summarize(rep)); err != nil {
		panic(http.ErrAbortHandler)
	}
}

type batterySummary struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	SourceFile string `json:"sourceFile"`
	// Months is the length of the battery's monthly span.
	Months int `json:"months"`
}

type batteriesResponse struct {
	Batteries []batterySummary       `json:"batteries"`
	Failures  []types.BatteryFailure `json:"failures,omitempty"`
}

func (s *Server) handleListBatteries(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	resp := batteriesResponse{
		Batteries: make([]batterySummary, len(rep.Batteries)),
		Failures:  rep.Failures,
	}
	for i, b := range rep.Batteries {
		resp.Batteries[i] = batterySummary{
			ID:         b.ID,
			Label:      b.Label,
			SourceFile: b.SourceFile,
			Months:     len(b.Availability),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(http.ErrAbortHandler)
	}
}

type batteryAvailabilityResponse struct {
	ID             string              `json:"id"`
	Label          string              `json:"label"`
	ExcludeHighSOE bool                `json:"excludeHighSOE"`
	Series         types.MonthlySeries `json:"series"`
}

func (s *Server) handleBatteryAvailability(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	b, ok := rep.Battery(r.PathValue("id"))
	if !ok {
		writeJSONError(w, "battery not found", http.StatusNotFound)
		return
	}

	excl, err := parseBoolParam(r, "excludeHighSOE", false)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	series := b.Availability
	if excl {
		series = b.AvailabilityExclHighSOE
	}

	since, hasPeriod, err := parsePeriod(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if hasPeriod {
		series = series.Since(since)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(batteryAvailabilityResponse{
		ID:             b.ID,
		Label:          b.Label,
		ExcludeHighSOE: excl,
		Series:         series,
	}); err != nil {
		panic(http.ErrAbortHandler)
	}
}

type combinedAvailabilityResponse struct {
	Params types.AvailabilityParams `json:"params"`
	Series types.MonthlySeries      `json:"series"`
}

func (s *Server) handleCombinedAvailability(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	series := rep.Combined
	since, hasPeriod, err := parsePeriod(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if hasPeriod {
		series = series.Since(since)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(combinedAvailabilityResponse{
		Params: rep.Params,
		Series: series,
	}); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	// default to the exclusion mode the report was generated with
	excl, err := parseBoolParam(r, "excludeHighSOE", rep.Params.ExcludeHighSOE)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(report.BuildHeatmap(rep, excl)); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleSOEDistribution(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(rep.SOEDistribution); err != nil {
		panic(http.ErrAbortHandler)
	}
}

type batterySOEResponse struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	SOE   types.BoxStats `json:"soe"`
}

func (s *Server) handleSOEBoxes(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.currentReport()
	if !ok {
		writeJSONError(w, "no fleet report available yet", http.StatusServiceUnavailable)
		return
	}

	resp := make([]batterySOEResponse, len(rep.Batteries))
	for i, b := range rep.Batteries {
		resp[i] = batterySOEResponse{ID: b.ID, Label: b.Label, SOE: b.SOE}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "private, max-age=60")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func parseBoolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %s", name, raw)
	}
	return v, nil
}

// parsePeriod reads the ISO8601 period query param (e.g. P6M) and
// returns the earliest month of the trailing window it describes. The
// second return is false when no period was given.
func parsePeriod(r *http.Request) (types.Month, bool, error) {
	raw := r.URL.Query().Get("period")
	if raw == "" {
		return types.Month{}, false, nil
	}
	d, err := duration.Parse(raw)
	if err != nil {
		return types.Month{}, false, fmt.Errorf("invalid period: %v", err)
	}
	cutoff := time.Now().UTC().Add(-d.ToTimeDuration())
	return types.MonthOf(cutoff), true, nil
}
