package storage

import (
	"context"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/types"
)

// NoneProvider implements the Database interface without persisting anything.
// Analysis-only deployments use it to run the pipeline and serve the report
// from memory. Settings written to it last for the lifetime of the process
// only because the server keeps its own copy.
type NoneProvider struct{}

// GetSettings always returns default settings.
func (n *NoneProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	return types.Settings{}, 0, nil
}

// SetSettings drops the settings.
func (n *NoneProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	log.Ctx(ctx).DebugContext(ctx, "storage disabled, dropping settings")
	return nil
}

// UpsertFleetReport drops the report.
func (n *NoneProvider) UpsertFleetReport(ctx context.Context, report types.FleetReport, version int) error {
	log.Ctx(ctx).DebugContext(ctx, "storage disabled, dropping fleet report")
	return nil
}

// GetLatestFleetReport always returns ErrNoReports.
func (n *NoneProvider) GetLatestFleetReport(ctx context.Context) (types.FleetReport, int, error) {
	return types.FleetReport{}, 0, ErrNoReports
}

// GetFleetReports always returns an empty history.
func (n *NoneProvider) GetFleetReports(ctx context.Context, start, end time.Time) ([]types.FleetReport, error) {
	return nil, nil
}

// Validate never fails.
func (n *NoneProvider) Validate() error {
	return nil
}

// Close is a no-op.
func (n *NoneProvider) Close() error {
	return nil
}
