package observation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tattva/tattva/internal/pkg/errors"
)

func boundsClause(region *Region) (string, []any) {
	if region == nil {
		return "", nil
	}
	b := region.Bounds()
	return "s.latitude BETWEEN ? AND ? AND s.longitude BETWEEN ? AND ?",
		[]any{b.MinLat, b.MaxLat, b.MinLon, b.MaxLon}
}

// TopGroups returns the species with the most sightings, optionally limited
// to a region. Ties are ordered by species id.
func (s *Store) TopGroups(ctx context.Context, region *Region, limit int) ([]GroupCount, error) {
	if limit < 1 {
		return nil, errors.ValidationError("limit must be at least 1")
	}

	where, args := boundsClause(region)
	if where != "" {
		where = "WHERE " + where
	}
	query := fmt.Sprintf(`SELECT sp.id, sp.scientific_name, sp.common_name, COUNT(s.id) AS cnt
FROM sightings s JOIN species sp ON sp.id = s.species_id
%s
GROUP BY sp.id, sp.scientific_name, sp.common_name
ORDER BY cnt DESC, sp.id ASC
LIMIT ?`, where)
	args = append(args, limit)

	rows, err := s.queryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DataAccessError("top species query failed", err)
	}
	defer rows.Close()

	groups := make([]GroupCount, 0, limit)
	for rows.Next() {
		var g GroupCount
		var common sql.NullString
		if err := rows.Scan(&g.SpeciesID, &g.ScientificName, &common, &g.Count); err != nil {
			return nil, errors.DataAccessError("scanning top species", err)
		}
		if common.Valid {
			name := common.String
			g.CommonName = &name
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DataAccessError("iterating top species", err)
	}

	return groups, nil
}

// CovariateMeans returns the mean of every covariate and the number of
// sightings, optionally limited to a region.
func (s *Store) CovariateMeans(ctx context.Context, region *Region) (*CovariateSummary, error) {
	cols := make([]string, 0, len(s.covariates)+1)
	cols = append(cols, "COUNT(s.id)")
	for _, col := range s.covariates {
		cols = append(cols, fmt.Sprintf("AVG(CAST(s.%s AS DOUBLE PRECISION))", col))
	}

	where, args := boundsClause(region)
	if where != "" {
		where = " WHERE " + where
	}
	query := "SELECT " + strings.Join(cols, ", ") + " FROM sightings s" + where

	summary := &CovariateSummary{
		Covariates: s.Covariates(),
		Means:      make([]*float64, len(s.covariates)),
	}
	means := make([]sql.NullFloat64, len(s.covariates))
	dest := make([]any, 0, len(s.covariates)+1)
	dest = append(dest, &summary.Count)
	for i := range means {
		dest = append(dest, &means[i])
	}

	if err := s.queryRowContext(ctx, query, args...).Scan(dest...); err != nil {
		return nil, errors.DataAccessError("covariate means query failed", err)
	}
	for i, m := range means {
		if m.Valid {
			v := m.Float64
			summary.Means[i] = &v
		}
	}

	return summary, nil
}

// GroupName resolves a species id to its display name. ok is false when no
// such species exists.
func (s *Store) GroupName(ctx context.Context, id int64) (string, bool, error) {
	var sp Species
	var common sql.NullString
	err := s.queryRowContext(ctx, "SELECT scientific_name, common_name FROM species WHERE id = ?", id).
		Scan(&sp.ScientificName, &common)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.DataAccessError("species lookup failed", err)
	}
	if common.Valid {
		sp.CommonName = &common.String
	}
	return sp.DisplayName(), true, nil
}

// ListSpecies returns every species ordered by id.
func (s *Store) ListSpecies(ctx context.Context) ([]Species, error) {
	rows, err := s.queryContext(ctx, "SELECT id, scientific_name, common_name, habitat FROM species ORDER BY id")
	if err != nil {
		return nil, errors.DataAccessError("species list query failed", err)
	}
	defer rows.Close()

	species := []Species{}
	for rows.Next() {
		var sp Species
		var common, habitat sql.NullString
		if err := rows.Scan(&sp.ID, &sp.ScientificName, &common, &habitat); err != nil {
			return nil, errors.DataAccessError("scanning species", err)
		}
		if common.Valid {
			sp.CommonName = &common.String
		}
		if habitat.Valid {
			sp.Habitat = &habitat.String
		}
		species = append(species, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DataAccessError("iterating species", err)
	}
	return species, nil
}
