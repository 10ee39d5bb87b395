package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/fleet"
	"github.com/fleetgauge/fleetgauge/pkg/storage"
	"github.com/fleetgauge/fleetgauge/pkg/storage/storagemock"
	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// two samples one day apart in January 1970: the first row meets the
// rated capacity, the second does not and sits above the SOE cutoff
const refreshExport = `timestamp,signal_name,signal_value
0,AvailableChargePower,3300
0,EnergyRemaining,50
0,FullPackEnergyAvailable,100
86400000,AvailableChargePower,3000
86400000,EnergyRemaining,95
86400000,FullPackEnergyAvailable,100
`

func storedSettings() types.Settings {
	return types.Settings{
		RatedCapacityWatts:   3300,
		ExcludeHighSOE:       false,
		HighSOECutoffPercent: 90,
		SOEBinWidthPercent:   5,
	}
}

func writeRefreshFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "battery_01.csv"), []byte(refreshExport), 0o644))
	return dir
}

func TestHandleRefresh(t *testing.T) {
	t.Run("Analyzes Persists And Serves", func(t *testing.T) {
		dir := writeRefreshFixture(t)

		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(storedSettings(), types.CurrentSettingsVersion, nil)
		mockS.On("UpsertFleetReport", mock.Anything, mock.Anything, types.CurrentReportVersion).Return(nil)

		srv := newTestServer(mockS)
		srv.analyzer = fleet.NewAnalyzer(dir, types.DefaultAvailabilityParams())

		req := httptest.NewRequest("POST", "/api/refresh", nil)
		w := httptest.NewRecorder()
		srv.handleRefresh(w, req)

		require.Equal(t, http.StatusOK, w.Result().StatusCode)

		var got fleetSummary
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, 1, got.Batteries)

		rep, ok := srv.currentReport()
		require.True(t, ok)
		require.Len(t, rep.Batteries, 1)

		jan := types.Month{Year: 1970, Month: time.January}
		plain, ok := rep.Batteries[0].Availability.Percent(jan)
		require.True(t, ok)
		assert.InDelta(t, 50, plain, 1e-9)
		excl, ok := rep.Batteries[0].AvailabilityExclHighSOE.Percent(jan)
		require.True(t, ok)
		assert.InDelta(t, 100, excl, 1e-9)

		mockS.AssertExpectations(t)
	})

	t.Run("No Telemetry Directory", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(storedSettings(), types.CurrentSettingsVersion, nil)
		srv := newTestServer(mockS)

		req := httptest.NewRequest("POST", "/api/refresh", nil)
		w := httptest.NewRecorder()
		srv.handleRefresh(w, req)

		assert.Equal(t, http.StatusConflict, w.Result().StatusCode)
	})

	t.Run("Serves Even When Persisting Fails", func(t *testing.T) {
		dir := writeRefreshFixture(t)

		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(storedSettings(), types.CurrentSettingsVersion, nil)
		mockS.On("UpsertFleetReport", mock.Anything, mock.Anything, types.CurrentReportVersion).Return(assert.AnError)

		srv := newTestServer(mockS)
		srv.analyzer = fleet.NewAnalyzer(dir, types.DefaultAvailabilityParams())

		req := httptest.NewRequest("POST", "/api/refresh", nil)
		w := httptest.NewRecorder()
		srv.handleRefresh(w, req)

		assert.Equal(t, http.StatusOK, w.Result().StatusCode)
		_, ok := srv.currentReport()
		assert.True(t, ok)
	})
}

func TestBootstrap(t *testing.T) {
	t.Run("Fresh Analysis", func(t *testing.T) {
		dir := writeRefreshFixture(t)

		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(storedSettings(), types.CurrentSettingsVersion, nil)
		mockS.On("UpsertFleetReport", mock.Anything, mock.Anything, types.CurrentReportVersion).Return(nil)

		srv := newTestServer(mockS)
		srv.analyzer = fleet.NewAnalyzer(dir, types.DefaultAvailabilityParams())

		require.NoError(t, srv.Bootstrap(context.Background()))
		_, ok := srv.currentReport()
		assert.True(t, ok)
	})

	t.Run("Falls Back To Stored Report", func(t *testing.T) {
		stored := testFleetReport()

		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(storedSettings(), types.CurrentSettingsVersion, nil)
		mockS.On("GetLatestFleetReport", mock.Anything).Return(stored, types.CurrentReportVersion, nil)

		srv := newTestServer(mockS)

		require.NoError(t, srv.Bootstrap(context.Background()))
		rep, ok := srv.currentReport()
		require.True(t, ok)
		assert.Equal(t, stored.GeneratedAt, rep.GeneratedAt)
	})

	t.Run("No Directory And No Stored Report", func(t *testing.T) {
		mockS := &storagemock.MockDatabase{}
		mockS.On("GetSettings", mock.Anything).Return(storedSettings(), types.CurrentSettingsVersion, nil)
		mockS.On("GetLatestFleetReport", mock.Anything).Return(types.FleetReport{}, 0, storage.ErrNoReports)

		srv := newTestServer(mockS)

		require.NoError(t, srv.Bootstrap(context.Background()))
		_, ok := srv.currentReport()
		assert.False(t, ok)
	})
}
