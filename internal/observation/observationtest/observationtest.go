// Package observationtest provides helpers for tests that need a real
// observation store.
package observationtest

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// NewStore opens a migrated sqlite store in a temporary directory. It is
// closed when the test finishes.
func NewStore(t testing.TB, covariates ...string) *observation.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", filepath.Join(t.TempDir(), "observations.db"))
	db, err := sql.Open(observation.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)

	store, err := observation.New(db, observation.DriverSQLite, covariates, logger.Discard())
	if err != nil {
		db.Close()
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// MustSpecies creates a species or fails the test.
func MustSpecies(t testing.TB, store *observation.Store, scientific string, common *string) int64 {
	t.Helper()
	sp, err := store.CreateSpecies(context.Background(), observation.Species{
		ScientificName: scientific,
		CommonName:     common,
	})
	if err != nil {
		t.Fatalf("create species %s: %v", scientific, err)
	}
	return sp.ID
}

// MustSighting records a sighting at (0,0) or fails the test.
func MustSighting(t testing.TB, store *observation.Store, speciesID int64, covariates map[string]*float64) {
	t.Helper()
	MustSightingAt(t, store, speciesID, 0, 0, covariates)
}

// MustSightingAt records a sighting at the given point or fails the test.
func MustSightingAt(t testing.TB, store *observation.Store, speciesID int64, lat, lon float64, covariates map[string]*float64) {
	t.Helper()
	_, err := store.RecordSighting(context.Background(), observation.Sighting{
		SpeciesID:  speciesID,
		Latitude:   lat,
		Longitude:  lon,
		Covariates: covariates,
	})
	if err != nil {
		t.Fatalf("record sighting: %v", err)
	}
}
