package observation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/tattva/tattva/internal/pkg/errors"
)

// correlationQuery builds the single grouped statement behind
// CorrelationAggregates. Scope is every sighting with at least one covariate
// set. The scope size and per-covariate statistics are computed over the
// whole scope; the spread uses a second pass against the mean so no variance
// shortcut loses precision. Each result row repeats the global values.
func (s *Store) correlationQuery() string {
	n := len(s.covariates)
	scopeCols := make([]string, n)
	anyNotNull := make([]string, n)
	statsCols := make([]string, 0, 1+2*n)
	spreadCols := make([]string, n)
	selectCols := make([]string, 0, 3+5*n)

	statsCols = append(statsCols, "COUNT(*) AS total")
	selectCols = append(selectCols, "scope.species_id", "COUNT(*)", "MAX(stats.total)")
	for i, col := range s.covariates {
		scopeCols[i] = fmt.Sprintf("CAST(%s AS DOUBLE PRECISION) AS c%d", col, i)
		anyNotNull[i] = col + " IS NOT NULL"
		statsCols = append(statsCols,
			fmt.Sprintf("COUNT(c%d) AS n%d", i, i),
			fmt.Sprintf("AVG(c%d) AS mean%d", i, i))
		spreadCols[i] = fmt.Sprintf("SUM((c%[1]d - stats.mean%[1]d) * (c%[1]d - stats.mean%[1]d)) AS ss%[1]d", i)
	}
	for i := range s.covariates {
		selectCols = append(selectCols,
			fmt.Sprintf("COUNT(scope.c%d)", i),
			fmt.Sprintf("SUM(scope.c%d)", i),
			fmt.Sprintf("MAX(stats.n%d)", i),
			fmt.Sprintf("MAX(stats.mean%d)", i),
			fmt.Sprintf("MAX(spread.ss%d)", i))
	}

	return fmt.Sprintf(`WITH scope AS (
	SELECT species_id, %s FROM sightings WHERE %s
),
stats AS (
	SELECT %s FROM scope
),
spread AS (
	SELECT %s FROM scope CROSS JOIN stats
)
SELECT %s
FROM scope CROSS JOIN stats CROSS JOIN spread
GROUP BY scope.species_id
HAVING COUNT(*) >= ?
ORDER BY scope.species_id`,
		strings.Join(scopeCols, ", "),
		strings.Join(anyNotNull, " OR "),
		strings.Join(statsCols, ", "),
		strings.Join(spreadCols, ", "),
		strings.Join(selectCols, ", "))
}

// CorrelationAggregates returns, for every species with at least minGroupSize
// in-scope sightings, its sighting count and per-covariate non-null count and
// sum, together with the number of in-scope sightings and the global
// per-covariate count, mean and sum of squared deviations. Groups are ordered
// by species id.
func (s *Store) CorrelationAggregates(ctx context.Context, minGroupSize int) (*Aggregates, error) {
	rows, err := s.queryContext(ctx, s.correlationQuery(), minGroupSize)
	if err != nil {
		return nil, errors.DataAccessError("correlation aggregate query failed", err)
	}
	defer rows.Close()

	n := len(s.covariates)
	agg := &Aggregates{
		Covariates: s.Covariates(),
		Global:     make([]CovariateStats, n),
	}

	for rows.Next() {
		g := GroupAggregate{
			NonNull: make([]int64, n),
			Sum:     make([]float64, n),
		}
		sums := make([]sql.NullFloat64, n)
		globalN := make([]sql.NullInt64, n)
		means := make([]sql.NullFloat64, n)
		spreads := make([]sql.NullFloat64, n)

		dest := make([]any, 0, 3+5*n)
		dest = append(dest, &g.SpeciesID, &g.Count, &agg.Total)
		for i := 0; i < n; i++ {
			dest = append(dest, &g.NonNull[i], &sums[i], &globalN[i], &means[i], &spreads[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.DataAccessError("scanning correlation aggregates", err)
		}

		for i := 0; i < n; i++ {
			g.Sum[i] = sums[i].Float64
			agg.Global[i] = CovariateStats{
				Count:    globalN[i].Int64,
				Mean:     means[i].Float64,
				SumSqDev: spreads[i].Float64,
			}
		}
		agg.Groups = append(agg.Groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DataAccessError("iterating correlation aggregates", err)
	}

	return agg, nil
}
