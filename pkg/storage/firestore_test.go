package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFleetReport builds a minimal report whose combined January value is
// combined, so tests can tell stored reports apart.
func testFleetReport(generatedAt time.Time, combined float64) types.FleetReport {
	jan := types.Month{Year: 2024, Month: time.January}
	return types.FleetReport{
		GeneratedAt: generatedAt,
		Params:      types.DefaultAvailabilityParams(),
		Batteries: []types.BatteryReport{
			{
				ID:         "battery-01",
				Label:      "battery-01",
				SourceFile: "battery-01.csv",
				Availability: types.MonthlySeries{
					{Month: jan, Percent: types.Float64(combined)},
				},
				AvailabilityExclHighSOE: types.MonthlySeries{
					{Month: jan, Percent: types.Float64(combined)},
				},
				SOE: types.BoxStats{Min: 40, Q1: 45, Median: 50, Q3: 55, Max: 60, Count: 5},
			},
		},
		Combined: types.MonthlySeries{
			{Month: jan, Percent: types.Float64(combined)},
		},
		SOEDistribution: types.SOEHistogram{
			BinStart: 40,
			BinWidth: 5,
			Counts:   []int{1, 2, 1, 1},
			Median:   types.Float64(50),
			Count:    5,
		},
	}
}

func TestFirestoreProvider(t *testing.T) {
	// Check if emulator is running or configured
	// We assume it is running on localhost:8087 as per task
	os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")

	// Use a test project ID
	projectID := "test-project-id"

	// Use a random database for isolation
	randDB := fmt.Sprintf("test-db-%d", time.Now().UnixNano())
	f := &FirestoreProvider{
		projectID: projectID,
		database:  randDB,
		fleet:     "test-fleet",
	}

	ctx := context.Background()
	require.NoError(t, f.Init(ctx))
	defer f.Close()

	t.Run("Validate", func(t *testing.T) {
		require.NoError(t, f.Validate())
	})

	t.Run("NoReports", func(t *testing.T) {
		_, _, err := f.GetLatestFleetReport(ctx)
		assert.ErrorIs(t, err, ErrNoReports)
	})

	t.Run("Settings", func(t *testing.T) {
		settings := types.Settings{
			RatedCapacityWatts:   3100,
			ExcludeHighSOE:       true,
			HighSOECutoffPercent: 85,
			SOEBinWidthPercent:   10,
		}
		// Pass version CurrentSettingsVersion
		require.NoError(t, f.SetSettings(ctx, settings, types.CurrentSettingsVersion))

		gotSettings, version, err := f.GetSettings(ctx)
		require.NoError(t, err)
		assert.Equal(t, types.CurrentSettingsVersion, version)
		assert.Equal(t, settings.RatedCapacityWatts, gotSettings.RatedCapacityWatts)
		assert.Equal(t, settings.ExcludeHighSOE, gotSettings.ExcludeHighSOE)
		assert.Equal(t, settings.HighSOECutoffPercent, gotSettings.HighSOECutoffPercent)
		assert.Equal(t, settings.SOEBinWidthPercent, gotSettings.SOEBinWidthPercent)
	})

	t.Run("Reports", func(t *testing.T) {
		now := time.Now().Truncate(time.Second).UTC() // Firestore timestamp precision (RFC3339 is seconds)
		r1 := testFleetReport(now.Add(-1*time.Hour), 75)
		r2 := testFleetReport(now, 80)

		require.NoError(t, f.UpsertFleetReport(ctx, r1, types.CurrentReportVersion))
		require.NoError(t, f.UpsertFleetReport(ctx, r2, types.CurrentReportVersion))

		reports, err := f.GetFleetReports(ctx, now.Add(-2*time.Hour), now.Add(1*time.Minute))
		require.NoError(t, err)
		require.Len(t, reports, 2)
		assert.True(t, reports[0].GeneratedAt.Equal(r1.GeneratedAt), "reports should come back in ascending order")
		assert.True(t, reports[1].GeneratedAt.Equal(r2.GeneratedAt))

		// Verify the nested series survived the JSON round trip
		jan := types.Month{Year: 2024, Month: time.January}
		got, ok := reports[1].Combined.Percent(jan)
		require.True(t, ok)
		assert.Equal(t, 80.0, got)
		require.Len(t, reports[1].Batteries, 1)
		assert.Equal(t, "battery-01", reports[1].Batteries[0].ID)
		assert.Equal(t, 50.0, reports[1].Batteries[0].SOE.Median)

		t.Run("UpsertOverwrite", func(t *testing.T) {
			r2Updated := testFleetReport(now, 99)
			require.NoError(t, f.UpsertFleetReport(ctx, r2Updated, types.CurrentReportVersion))

			reportsUpdated, err := f.GetFleetReports(ctx, now.Add(-2*time.Hour), now.Add(1*time.Minute))
			require.NoError(t, err)
			require.Len(t, reportsUpdated, 2, "overwrite must not add a document")

			got, ok := reportsUpdated[1].Combined.Percent(jan)
			require.True(t, ok)
			assert.Equal(t, 99.0, got, "expected the overwritten combined value")
		})

		t.Run("Latest", func(t *testing.T) {
			// Insert a future report so it is unambiguously the latest
			future := now.Add(24 * time.Hour)
			require.NoError(t, f.UpsertFleetReport(ctx, testFleetReport(future, 64), types.CurrentReportVersion))

			latest, version, err := f.GetLatestFleetReport(ctx)
			require.NoError(t, err)
			assert.True(t, latest.GeneratedAt.Equal(future), "latest should be the future report we just inserted")
			assert.Equal(t, types.CurrentReportVersion, version)

			got, ok := latest.Combined.Percent(jan)
			require.True(t, ok)
			assert.Equal(t, 64.0, got)
		})

		t.Run("RangeFiltering", func(t *testing.T) {
			old := testFleetReport(now.Add(-3*time.Hour), 10)
			require.NoError(t, f.UpsertFleetReport(ctx, old, types.CurrentReportVersion))

			// Query should return r1 and r2 but not the old report
			reportsFiltered, err := f.GetFleetReports(ctx, now.Add(-2*time.Hour), now.Add(1*time.Minute))
			require.NoError(t, err)
			require.Len(t, reportsFiltered, 2)
			for _, r := range reportsFiltered {
				assert.False(t, r.GeneratedAt.Equal(old.GeneratedAt), "report outside range should not be returned")
			}
		})

		t.Run("MissingGeneratedAt", func(t *testing.T) {
			err := f.UpsertFleetReport(ctx, types.FleetReport{}, types.CurrentReportVersion)
			assert.ErrorContains(t, err, "generatedAt")
		})
	})
}
