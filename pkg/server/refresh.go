package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fleetgauge/fleetgauge/pkg/fleet"
	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/storage"
	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// refreshReport re-runs the analyzer with the stored settings, persists
// the result, and swaps the served report. The analysis itself is
// synchronous; a refresh request returns once the new report is live.
func (s *Server) refreshReport(ctx context.Context) (types.FleetReport, error) {
	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		return types.FleetReport{}, err
	}

	rep, err := s.analyzer.Run(ctx, settings.AvailabilityParams(), settings.SOEBinWidthPercent)
	if err != nil {
		return types.FleetReport{}, err
	}

	if err := s.storage.UpsertFleetReport(ctx, rep, types.CurrentReportVersion); err != nil {
		// the analysis succeeded; serve it even though persisting failed
		log.Ctx(ctx).ErrorContext(ctx, "failed to persist fleet report", slog.Any("error", err))
	}

	s.SetReport(rep)
	return rep, nil
}

// Bootstrap populates the served report at startup: from a fresh
// analysis when a telemetry directory is configured, otherwise from the
// latest persisted report. Starting with no report at all is allowed;
// the API answers 503 until a refresh succeeds.
func (s *Server) Bootstrap(ctx context.Context) error {
	rep, err := s.refreshReport(ctx)
	if err == nil {
		log.Ctx(ctx).InfoContext(
			ctx,
			"serving fresh fleet analysis",
			slog.Int("batteries", len(rep.Batteries)),
			slog.Int("failures", len(rep.Failures)),
		)
		return nil
	}
	if !errors.Is(err, fleet.ErrNoTelemetryDir) {
		return err
	}

	stored, _, err := s.storage.GetLatestFleetReport(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNoReports) {
			log.Ctx(ctx).WarnContext(ctx, "no telemetry directory and no stored reports, serving without a report")
			return nil
		}
		return err
	}
	s.SetReport(stored)
	log.Ctx(ctx).InfoContext(ctx, "serving stored fleet report", slog.Time("generatedAt", stored.GeneratedAt))
	return nil
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := s.getUser(r)
	if !s.bypassAuth {
		if user.ID == "" {
			writeJSONError(w, "missing authentication", http.StatusUnauthorized)
			return
		}
		if !user.Admin {
			log.Ctx(ctx).WarnContext(ctx, "unauthorized for refresh", slog.String("userID", user.ID), slog.String("email", user.Email))
			writeJSONError(w, "unauthorized", http.StatusForbidden)
			return
		}
	}

	rep, err := s.refreshReport(ctx)
	if err != nil {
		if errors.Is(err, fleet.ErrNoTelemetryDir) {
			writeJSONError(w, "no telemetry directory configured", http.StatusConflict)
			return
		}
		log.Ctx(ctx).ErrorContext(ctx, "refresh failed", slog.Any("error", err))
		writeJSONError(w, "refresh failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summarize(rep)); err != nil {
		panic(http.ErrAbortHandler)
	}
}
