package observation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tattva/tattva/internal/pkg/errors"
)

// CreateSpecies inserts a species and returns it with its assigned id.
func (s *Store) CreateSpecies(ctx context.Context, sp Species) (*Species, error) {
	if strings.TrimSpace(sp.ScientificName) == "" {
		return nil, errors.ValidationError("scientific name is required")
	}

	err := s.queryRowContext(ctx,
		"INSERT INTO species (scientific_name, common_name, habitat) VALUES (?, ?, ?) RETURNING id",
		sp.ScientificName, nullString(sp.CommonName), nullString(sp.Habitat),
	).Scan(&sp.ID)
	if err != nil {
		return nil, errors.DataAccessError("creating species", err).WithDetail("scientific_name", sp.ScientificName)
	}

	return &sp, nil
}

// RecordSighting inserts a sighting and returns it with its assigned id.
// Covariates not configured on the store are rejected.
func (s *Store) RecordSighting(ctx context.Context, sg Sighting) (*Sighting, error) {
	if sg.SpeciesID < 1 {
		return nil, errors.ValidationError("species id is required")
	}
	if sg.Latitude < -90 || sg.Latitude > 90 || sg.Longitude < -180 || sg.Longitude > 180 {
		return nil, errors.ValidationError(fmt.Sprintf("coordinates out of range: %f,%f", sg.Latitude, sg.Longitude))
	}
	known := make(map[string]bool, len(s.covariates))
	for _, c := range s.covariates {
		known[c] = true
	}
	for name := range sg.Covariates {
		if !known[name] {
			return nil, errors.ValidationError(fmt.Sprintf("unknown covariate %q", name))
		}
	}

	cols := []string{"species_id", "latitude", "longitude", "observed_on"}
	args := []any{sg.SpeciesID, sg.Latitude, sg.Longitude, nullTime(sg.ObservedOn)}
	for _, c := range s.covariates {
		cols = append(cols, c)
		args = append(args, nullFloat(sg.Covariates[c]))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")

	query := fmt.Sprintf("INSERT INTO sightings (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "), placeholders)
	if err := s.queryRowContext(ctx, query, args...).Scan(&sg.ID); err != nil {
		return nil, errors.DataAccessError("recording sighting", err)
	}

	return &sg, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
