package types

import (
	"fmt"
)

// CurrentSettingsVersion is the current version of the settings struct.
// Increment this value when adding new fields that require default values.
const CurrentSettingsVersion = 2

// Settings are the fleet-wide analysis settings stored in the database.
// They can be changed from the dashboard without redeploying; flag
// defaults only apply until settings have been saved once.
type Settings struct {
	// Minimum charge power (in W) a battery must offer to count as available.
	RatedCapacityWatts float64 `json:"ratedCapacityWatts"`
	// Drop rows above the SOE cutoff before computing availability.
	ExcludeHighSOE bool `json:"excludeHighSOE"`
	// SOE percentage above which rows are dropped when ExcludeHighSOE is set.
	HighSOECutoffPercent float64 `json:"highSOECutoffPercent"`
	// Bin width (in SOE %) for the SOE distribution histogram.
	SOEBinWidthPercent float64 `json:"soeBinWidthPercent"`
}

// AvailabilityParams returns the calculation parameters captured by s.
func (s Settings) AvailabilityParams() AvailabilityParams {
	return AvailabilityParams{
		RatedCapacityWatts:   s.RatedCapacityWatts,
		ExcludeHighSOE:       s.ExcludeHighSOE,
		HighSOECutoffPercent: s.HighSOECutoffPercent,
	}
}

// MigrateSettings migrates the settings to the current version.
// It returns the migrated settings, a boolean indicating if changes were made,
// and an error if migration failed.
func MigrateSettings(s Settings, currentVersion int) (Settings, bool, error) {
	if currentVersion >= CurrentSettingsVersion {
		return s, false, nil
	}

	migrated := false
	// Loop through versions to apply migrations sequentially
	for version := currentVersion + 1; version <= CurrentSettingsVersion; version++ {
		switch version {
		case 1:
			// version 1: initial
			if s.RatedCapacityWatts == 0 {
				s.RatedCapacityWatts = DefaultRatedCapacityWatts
				migrated = true
			}
			if s.HighSOECutoffPercent == 0 {
				s.HighSOECutoffPercent = DefaultHighSOECutoffPercent
				migrated = true
			}
			// ExcludeHighSOE stays false unless somebody turns it on
		case 2:
			// version 2: add SOE histogram bin width
			if s.SOEBinWidthPercent == 0 {
				s.SOEBinWidthPercent = 5
				migrated = true
			}
		default:
			return s, false, fmt.Errorf("unknown settings version: %d", version)
		}
	}

	return s, migrated, nil
}
