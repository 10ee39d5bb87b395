package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/fleetgauge/fleetgauge/pkg/log"
	"github.com/fleetgauge/fleetgauge/pkg/types"
	"github.com/levenlabs/go-lflag"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreProvider implements the Database interface using Google Cloud Firestore.
// It persists settings and fleet reports to Firestore collections.
type FirestoreProvider struct {
	client    *firestore.Client
	projectID string
	database  string
	fleet     string
}

// configuredFirestore sets up the Firestore provider.
// It registers flags for configuration.
func configuredFirestore() *FirestoreProvider {
	projectID := lflag.String("firestore-project-id", "", "Google Cloud Project ID for Firestore")
	database := lflag.String("firestore-database", "", "Google Cloud Firestore Database")
	emulator := lflag.String("firestore-emulator", "", "Use Firestore emulator")
	fleet := lflag.String("firestore-fleet", "default", "Fleet document holding reports and settings")

	f := &FirestoreProvider{}

	lflag.Do(func() {
		f.projectID = *projectID
		f.database = *database
		f.fleet = *fleet

		// set this because that's how firestore client expects it
		if *emulator != "" {
			os.Setenv("FIRESTORE_EMULATOR_HOST", *emulator)
		}
	})

	return f
}

// Validate checks if the provider is properly configured.
func (f *FirestoreProvider) Validate() error {
	// Project ID can be empty since the client can infer it.
	if f.fleet == "" {
		return fmt.Errorf("firestore-fleet cannot be empty")
	}
	return nil
}

// Init initializes the Firestore client.
// This must be called before using the provider methods.
func (f *FirestoreProvider) Init(ctx context.Context) error {
	projectID := f.projectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	database := f.database
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return fmt.Errorf("failed to create firestore client (project=%s, database=%s): %w", projectID, database, err)
	}
	f.client = client
	return nil
}

// Close closes the Firestore client connection.
func (f *FirestoreProvider) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}

func (f *FirestoreProvider) getCollection(name string) *firestore.CollectionRef {
	return f.client.Collection("fleets").Doc(f.fleet).Collection(name)
}

// GetSettings retrieves the dynamic configuration from the "meta/settings" document.
func (f *FirestoreProvider) GetSettings(ctx context.Context) (types.Settings, int, error) {
	doc, err := f.getCollection("meta").Doc("settings").Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Return default settings if not found
			return types.Settings{}, 0, nil
		}
		return types.Settings{}, 0, fmt.Errorf("failed to fetch settings doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "settings doc missing json", slog.String("fleet", f.fleet))
		return types.Settings{}, 0, fmt.Errorf("settings document missing 'json' field: %w", err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "settings doc json not string", slog.String("fleet", f.fleet))
		return types.Settings{}, 0, fmt.Errorf("settings 'json' field is not a string")
	}

	var s types.Settings
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal settings json", slog.String("fleet", f.fleet), slog.Any("err", err))
		return types.Settings{}, 0, fmt.Errorf("failed to unmarshal settings json: %w", err)
	}
	return s, version, nil
}

// SetSettings saves the dynamic configuration to the "meta/settings" document.
// It stores the settings as a JSON string for portability.
func (f *FirestoreProvider) SetSettings(ctx context.Context, settings types.Settings, version int) error {
	jsonBytes, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	_, err = f.getCollection("meta").Doc("settings").Set(ctx, map[string]interface{}{
		"json":    string(jsonBytes),
		"version": version,
	})
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// UpsertFleetReport adds or updates a fleet report in the "reports" collection as a JSON blob.
// The document ID is the RFC3339 timestamp of GeneratedAt for efficient range queries.
func (f *FirestoreProvider) UpsertFleetReport(ctx context.Context, report types.FleetReport, version int) error {
	if report.GeneratedAt.IsZero() {
		return fmt.Errorf("fleet report missing generatedAt")
	}
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal fleet report: %w", err)
	}

	// Use RFC3339 as document ID for lexicographic ordering and efficient range queries
	docID := report.GeneratedAt.UTC().Format(time.RFC3339)
	_, err = f.getCollection("reports").Doc(docID).Set(ctx, map[string]interface{}{
		"json":      string(jsonBytes),
		"timestamp": report.GeneratedAt,
		"version":   version,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert fleet report: %w", err)
	}
	return nil
}

// GetLatestFleetReport retrieves the most recently generated fleet report.
// Returns ErrNoReports when nothing has been stored yet.
func (f *FirestoreProvider) GetLatestFleetReport(ctx context.Context) (types.FleetReport, int, error) {
	// firestore automatically creates indexes for top-level fields
	iter := f.getCollection("reports").
		OrderBy("timestamp", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return types.FleetReport{}, 0, ErrNoReports
	}
	if err != nil {
		return types.FleetReport{}, 0, fmt.Errorf("failed to get latest fleet report doc: %w", err)
	}

	// Read version if available (default 0)
	var version int
	if v, err := doc.DataAt("version"); err == nil {
		if vInt, ok := v.(int64); ok {
			version = int(vInt)
		}
	}

	val, err := doc.DataAt("json")
	if err != nil {
		log.Ctx(ctx).WarnContext(ctx, "fleet report doc missing json", slog.String("docID", doc.Ref.ID))
		return types.FleetReport{}, 0, fmt.Errorf("fleet report document %s missing 'json' field: %w", doc.Ref.ID, err)
	}

	jsonStr, ok := val.(string)
	if !ok {
		log.Ctx(ctx).WarnContext(ctx, "fleet report doc json not string", slog.String("docID", doc.Ref.ID))
		return types.FleetReport{}, 0, fmt.Errorf("fleet report document %s 'json' field is not string", doc.Ref.ID)
	}

	var r types.FleetReport
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal fleet report", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
		return types.FleetReport{}, 0, fmt.Errorf("failed to unmarshal fleet report (id=%s): %w", doc.Ref.ID, err)
	}
	return r, version, nil
}

// GetFleetReports retrieves fleet reports within the specified time range.
// Uses document ID range queries for efficient filtering without reading all documents.
func (f *FirestoreProvider) GetFleetReports(ctx context.Context, start, end time.Time) ([]types.FleetReport, error) {
	startDocID := start.UTC().Format(time.RFC3339)
	endDocID := end.UTC().Format(time.RFC3339)

	coll := f.getCollection("reports")
	iter := coll.
		Where(firestore.DocumentID, ">=", coll.Doc(startDocID)).
		Where(firestore.DocumentID, "<", coll.Doc(endDocID)).
		OrderBy(firestore.DocumentID, firestore.Asc).
		Documents(ctx)
	defer iter.Stop()

	var reports []types.FleetReport
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating fleet reports: %w", err)
		}

		val, err := doc.DataAt("json")
		if err != nil {
			log.Ctx(ctx).WarnContext(ctx, "fleet report doc missing json", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
			return nil, fmt.Errorf("fleet report document %s missing 'json' field: %w", doc.Ref.ID, err)
		}

		jsonStr, ok := val.(string)
		if !ok {
			log.Ctx(ctx).WarnContext(ctx, "fleet report doc json not string", slog.String("docID", doc.Ref.ID))
			return nil, fmt.Errorf("fleet report document %s 'json' field is not string", doc.Ref.ID)
		}

		var r types.FleetReport
		if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
			log.Ctx(ctx).WarnContext(ctx, "failed to unmarshal fleet report", slog.String("docID", doc.Ref.ID), slog.Any("err", err))
			return nil, fmt.Errorf("failed to unmarshal fleet report (id=%s): %w", doc.Ref.ID, err)
		}
		reports = append(reports, r)
	}
	return reports, nil
}
