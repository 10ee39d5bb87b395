package storage

import (
	"context"
	"testing"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoneProvider(t *testing.T) {
	n := &NoneProvider{}
	ctx := context.Background()

	require.NoError(t, n.Validate())

	settings, version, err := n.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)
	assert.Equal(t, types.Settings{}, settings)

	// Writes succeed but nothing sticks
	require.NoError(t, n.SetSettings(ctx, types.Settings{RatedCapacityWatts: 3300}, types.CurrentSettingsVersion))
	_, version, err = n.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	require.NoError(t, n.UpsertFleetReport(ctx, testFleetReport(time.Now(), 50), types.CurrentReportVersion))
	_, _, err = n.GetLatestFleetReport(ctx)
	assert.ErrorIs(t, err, ErrNoReports)

	reports, err := n.GetFleetReports(ctx, time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, reports)

	require.NoError(t, n.Close())
}
