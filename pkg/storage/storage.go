package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/levenlabs/go-lflag"
)

// ErrNoReports is returned when no fleet report has been persisted yet.
var ErrNoReports = errors.New("no fleet reports stored")

// Database defines the interface for persisting fleet reports and settings.
type Database interface {
	// Settings
	GetSettings(ctx context.Context) (types.Settings, int, error)
	SetSettings(ctx context.Context, settings types.Settings, version int) error

	// Reports
	// UpsertFleetReport adds or replaces the report keyed by its GeneratedAt time.
	UpsertFleetReport(ctx context.Context, report types.FleetReport, version int) error
	GetLatestFleetReport(ctx context.Context) (types.FleetReport, int, error)
	GetFleetReports(ctx context.Context, start, end time.Time) ([]types.FleetReport, error)

	// Lifecycle
	Validate() error
	Close() error
}

// Configured sets up the storage provider based on flags.
func Configured() Database {
	provider := lflag.String("storage-provider", "firestore", "Storage provider to use (available: firestore, postgres, none)")

	var p struct{ Database }

	fs := configuredFirestore()
	pg := configuredPostgres()

	lflag.Do(func() {
		switch *provider {
		case "firestore":
			if err := fs.Validate(); err != nil {
				panic(fmt.Sprintf("firestore validation failed: %v", err))
			}
			p.Database = fs
			if err := fs.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("firestore init failed: %v", err))
			}
		case "postgres":
			if err := pg.Validate(); err != nil {
				panic(fmt.Sprintf("postgres validation failed: %v", err))
			}
			p.Database = pg
			if err := pg.Init(context.Background()); err != nil {
				panic(fmt.Sprintf("postgres init failed: %v", err))
			}
		case "none":
			p.Database = &NoneProvider{}
		default:
			panic(fmt.Sprintf("unknown storage provider: %s", *provider))
		}
	})

	return &p
}
