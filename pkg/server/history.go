package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// reportSummary is one persisted analysis run in the history view. The
// full per-battery series are only served for the current report; the
// history is for trending the headline numbers.
type reportSummary struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Params      types.AvailabilityParams `json:"params"`
	Batteries   int                      `json:"batteries"`
	Failures    int                      `json:"failures"`
	// Latest is the most recent combined point with a defined value.
	Latest *float64 `json:"latest"`
}

func (s *Server) handleHistoryReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start, end, err := parseTimeRange(r)
	if err != nil {
		writeJSONError(w, "invalid time range: "+err.Error(), http.StatusBadRequest)
		return
	}

	reports, err := s.storage.GetFleetReports(ctx, start, end)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get report history", slog.Any("error", err))
		writeJSONError(w, "failed to get report history", http.StatusInternalServerError)
		return
	}

	summaries := make([]reportSummary, len(reports))
	for i, rep := range reports {
		summaries[i] = reportSummary{
			GeneratedAt: rep.GeneratedAt,
			Params:      rep.Params,
			Batteries:   len(rep.Batteries),
			Failures:    len(rep.Failures),
			Latest:      latestDefined(rep.Combined),
		}
	}

	w.Header().Set("Content-Type", "application/json")

	// Set Cache-Control headers
	// If the range ends before today (midnight today), cache for 24 hours.
	// Otherwise, cache for 1 minute.
	today := time.Now().Truncate(24 * time.Hour)
	if end.Before(today) {
		w.Header().Set("Cache-Control", "private, max-age=86400")
	} else {
		w.Header().Set("Cache-Control", "private, max-age=60")
	}

	if err := json.NewEncoder(w).Encode(summaries); err != nil {
		panic(http.ErrAbortHandler)
	}
}

// latestDefined returns the most recent defined point of a series.
func latestDefined(series types.MonthlySeries) *float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Percent != nil {
			return series[i].Percent
		}
	}
	return nil
}

func parseTimeRange(r *http.Request) (time.Time, time.Time, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	if startStr == "" || endStr == "" {
		// Default to the last 7 days if not specified
		end := time.Now()
		start := end.Add(-7 * 24 * time.Hour)
		return start, end, nil
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start time: %w", err)
	}

	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end time: %w", err)
	}

	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("start time must be before end time")
	}

	if end.Sub(start) > 90*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("time range cannot exceed 90 days")
	}

	return start, end, nil
}
