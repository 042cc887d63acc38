package observation

import (
	"context"
	"fmt"

	"github.com/tattva/tattva/internal/pkg/errors"
)

func (s *Store) primaryKey() string {
	if s.driver == DriverPostgres {
		return "BIGSERIAL PRIMARY KEY"
	}
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

// Migrate creates the species and sightings tables when missing and adds any
// configured covariate column the sightings table does not have yet.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS species (
	id %s,
	scientific_name TEXT NOT NULL UNIQUE,
	common_name TEXT NULL,
	habitat TEXT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, s.primaryKey()),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS sightings (
	id %s,
	species_id BIGINT NOT NULL REFERENCES species(id),
	latitude DOUBLE PRECISION NOT NULL,
	longitude DOUBLE PRECISION NOT NULL,
	observed_on TIMESTAMP NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, s.primaryKey()),
		`CREATE INDEX IF NOT EXISTS idx_sightings_species_id ON sightings (species_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sightings_lat_lon ON sightings (latitude, longitude)`,
	}

	for _, stmt := range stmts {
		if _, err := s.execContext(ctx, stmt); err != nil {
			return errors.DataAccessError("migration failed", err)
		}
	}

	for _, col := range s.covariates {
		if s.hasColumn(ctx, col) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE sightings ADD COLUMN %s DOUBLE PRECISION NULL", col)
		if _, err := s.execContext(ctx, stmt); err != nil {
			return errors.DataAccessError(fmt.Sprintf("adding covariate column %s", col), err)
		}
		s.log.Info("Added covariate column", "column", col)
	}

	return nil
}

// hasColumn probes for a column with a query that reads no rows; it works the
// same way on every supported dialect.
func (s *Store) hasColumn(ctx context.Context, col string) bool {
	rows, err := s.queryContext(ctx, fmt.Sprintf("SELECT %s FROM sightings WHERE 1 = 0", col))
	if err != nil {
		return false
	}
	rows.Close()
	return true
}
