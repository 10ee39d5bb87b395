package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/types"
)

type settingsWithVersion struct {
	types.Settings
	version int
}

// getSettingsWithMigration reads the stored settings and migrates them
// forward when they predate the current version. Migrated settings are
// saved back best-effort; the caller always gets usable settings.
func (s *Server) getSettingsWithMigration(ctx context.Context) (settingsWithVersion, error) {
	settings, version, err := s.storage.GetSettings(ctx)
	if err != nil {
		return settingsWithVersion{}, err
	}
	sv := settingsWithVersion{
		Settings: settings,
		version:  version,
	}

	// Check for migration
	if version < types.CurrentSettingsVersion {
		log.Ctx(ctx).InfoContext(ctx, "migrating settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
		newSettings, changed, err := types.MigrateSettings(settings, version)
		if err != nil {
			// Log error but return settings as is (best effort)
			log.Ctx(ctx).ErrorContext(ctx, "failed to migrate settings", slog.Int("currentVersion", version), slog.Any("error", err))
		} else if changed {
			sv.Settings = newSettings
			sv.version = types.CurrentSettingsVersion
			if err := s.storage.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "failed to save migrated settings", slog.Any("error", err))
				// Return migrated settings even if save failed, so current request works with new defaults
			} else {
				log.Ctx(ctx).InfoContext(ctx, "saved migrated settings", slog.Int("oldVersion", version), slog.Int("newVersion", types.CurrentSettingsVersion))
			}
		}
	}

	return sv, nil
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, err := s.getSettingsWithMigration(ctx)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to get settings", slog.Any("error", err))
		writeJSONError(w, "failed to get settings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(settings.Settings); err != nil {
		panic(http.ErrAbortHandler)
	}
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Validate Authentication from Context (set by authMiddleware)
	user := s.getUser(r)
	if !s.bypassAuth {
		if user.ID == "" {
			writeJSONError(w, "missing authentication", http.StatusUnauthorized)
			return
		}
		if !user.Admin {
			log.Ctx(ctx).WarnContext(ctx, "unauthorized for settings update", slog.String("userID", user.ID), slog.String("email", user.Email))
			writeJSONError(w, "unauthorized", http.StatusForbidden)
			return
		}
	}

	var newSettings types.Settings
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&newSettings); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to decode settings", slog.Any("error", err))
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if newSettings.RatedCapacityWatts <= 0 {
		writeJSONError(w, "rated capacity must be positive", http.StatusBadRequest)
		return
	}
	if newSettings.HighSOECutoffPercent < 0 || newSettings.HighSOECutoffPercent > 100 {
		writeJSONError(w, "high SOE cutoff must be between 0 and 100", http.StatusBadRequest)
		return
	}
	if newSettings.SOEBinWidthPercent <= 0 || newSettings.SOEBinWidthPercent > 100 {
		writeJSONError(w, "SOE bin width must be between 0 and 100", http.StatusBadRequest)
		return
	}

	if err := s.storage.SetSettings(ctx, newSettings, types.CurrentSettingsVersion); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to save settings", slog.Any("error", err))
		writeJSONError(w, "failed to save settings", http.StatusInternalServerError)
		return
	}

	log.Ctx(ctx).InfoContext(ctx, "settings updated", slog.String("email", user.Email))

	// the served report still reflects the old parameters until the next
	// refresh; the dashboard calls /api/refresh after saving
	w.WriteHeader(http.StatusOK)
}
