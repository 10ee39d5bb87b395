package storagemock

import (
	"context"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/storage"
	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/stretchr/testify/mock"
)

type MockDatabase struct {
	mock.Mock
}

var _ storage.Database = (*MockDatabase)(nil)

func (m *MockDatabase) GetSettings(ctx context.Context) (types.Settings, int, error) {
	args := m.Called(ctx)
	// return empty if not specified, or checks args
	if len(args) > 0 {
		return args.Get(0).(types.Settings), args.Int(1), args.Error(2)
	}
	return types.Settings{}, 0, nil
}

func (m *MockDatabase) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	args := m.Called(ctx, settings, version)
	return args.Error(0)
}

func (m *MockDatabase) UpsertFleetReport(ctx context.Context, report types.FleetReport, version int) error {
	args := m.Called(ctx, report, version)
	return args.Error(0)
}

func (m *MockDatabase) GetLatestFleetReport(ctx context.Context) (types.FleetReport, int, error) {
	args := m.Called(ctx)
	if len(args) > 0 {
		return args.Get(0).(types.FleetReport), args.Int(1), args.Error(2)
	}
	return types.FleetReport{}, 0, nil
}

func (m *MockDatabase) GetFleetReports(ctx context.Context, start, end time.Time) ([]types.FleetReport, error) {
	args := m.Called(ctx, start, end)
	if len(args) > 0 {
		if args.Get(0) == nil {
			return nil, args.Error(1)
		}
		return args.Get(0).([]types.FleetReport), args.Error(1)
	}
	return nil, nil
}

func (m *MockDatabase) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockDatabase) Close() error {
	args := m.Called()
	return args.Error(0)
}
