package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/levenlabs/go-lflag"
	_ "github.com/lib/pq"
)

// settingsRowID is the fixed primary key for the single settings row.
const settingsRowID = 1

// PostgresProvider implements the Database interface using PostgreSQL.
// Reports and settings are stored as JSON text keyed the same way the
// firestore provider keys its documents.
type PostgresProvider struct {
	db  *sql.DB
	url string
}

// configuredPostgres sets up the Postgres provider.
// It registers flags for configuration.
func configuredPostgres() *PostgresProvider {
	url := lflag.String("postgres-url", "", "PostgreSQL connection string for the postgres storage provider")

	p := &PostgresProvider{}

	lflag.Do(func() {
		p.url = *url
	})

	return p
}

// Validate checks if the provider is properly configured.
func (p *PostgresProvider) Validate() error {
	if p.url == "" {
		return fmt.Errorf("postgres-url is required for the postgres provider")
	}
	return nil
}

// Init opens the database connection and ensures the schema exists.
// This must be called before using the provider methods.
func (p *PostgresProvider) Init(ctx context.Context) error {
	db, err := sql.Open("postgres", p.url)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	p.db = db
	return p.ensureSchema(ctx)
}

func (p *PostgresProvider) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS fleet_reports (
			ts TIMESTAMPTZ PRIMARY KEY,
			version INT NOT NULL DEFAULT 0,
			json TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS fleet_settings (
			id INT PRIMARY KEY,
			version INT NOT NULL DEFAULT 0,
			json TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (p *PostgresProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetSettings retrieves the dynamic configuration from the fleet_settings table.
func (p *PostgresProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	var jsonStr string
	var version int
	err := p.db.QueryRowContext(ctx,
		`SELECT json, version FROM fleet_settings WHERE id = $1`, settingsRowID,
	).Scan(&jsonStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		// Return default settings if not found
		return types.Settings{}, 0, nil
	}
	if err != nil {
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings row: %w", err)
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the fleet_settings table.
func (p *PostgresProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO fleet_settings (id, version, json)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			json = EXCLUDED.json
	`, settingsRowID, version, string(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpsertFleetReport adds or updates a fleet report keyed by its GeneratedAt time.
// The timestamp is truncated to seconds so the key matches the firestore doc IDs.
func (p *PostgresProvider) UpsertFleetReport(ctx context.Context, report types.FleetReport, version int) error {
	if report.GeneratedAt.IsZero() {
		return fmt.Errorf("fleet report missing generatedAt")
	}
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet report: %w", err)
	}

	ts := report.GeneratedAt.UTC().Truncate(time.Second)
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO fleet_reports (ts, version, json)
		VALUES ($1, $2, $3)
		ON CONFLICT (ts) DO UPDATE SET
			version = EXCLUDED.version,
			json = EXCLUDED.json
	`, ts, version, string(jsonBytes))
	if err != nil {
		return fmt.Errorf("failed to upsert fleet report: %w", err)
	}
	return nil
}

// GetLatestFleetReport retrieves the most recently generated fleet report.
// Returns ErrNoReports when nothing has been stored yet.
func (p *PostgresProvider) GetLatestFleetReport(ctx context.Context) (types.FleetReport, int, error) {
	var jsonStr string
	var version int
	err := p.db.QueryRowContext(ctx,
		`SELECT json, version FROM fleet_reports ORDER BY ts DESC LIMIT 1`,
	).Scan(&jsonStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return types.FleetReport{}, 0, ErrNoReports
	}
	if err != nil {
		return types.FleetReport{}, 0, fmt.Errorf("failed to fetch latest fleet report: %w", err)
	}

	var r types.FleetReport
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return types.FleetReport{}, 0, fmt.Errorf("failed to unmarshal fleet report: %w", err)
	}
	return r, version, nil
}

// GetFleetReports retrieves fleet reports within the specified time range.
func (p *PostgresProvider) GetFleetReports(ctx context.Context, start, end time.Time) ([]types.FleetReport, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT json FROM fleet_reports
		WHERE ts >= $1 AND ts < $2
		ORDER BY ts ASC
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query fleet reports: %w", err)
	}
	defer rows.Close()

	var reports []types.FleetReport
	for rows.Next() {
		var jsonStr string
		if err := rows.Scan(&jsonStr); err != nil {
			return nil, fmt.Errorf("failed to scan fleet report: %w", err)
		}
		var r types.FleetReport
		if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal fleet report: %w", err)
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fleet reports: %w", err)
	}
	return reports, nil
}
