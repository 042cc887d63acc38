package correlation

import (
	"context"
	"fmt"
	"math"

	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// Computer evaluates the strongest correlation among groups with at least
// minGroupSize in-scope observations.
type Computer interface {
	Compute(ctx context.Context, minGroupSize int) (Finding, error)
}

// AggregateSource provides the grouped statistics a computation needs.
type AggregateSource interface {
	CorrelationAggregates(ctx context.Context, minGroupSize int) (*observation.Aggregates, error)
}

// StoreComputer computes findings from a single aggregate query per call.
type StoreComputer struct {
	source AggregateSource
	log    *logger.Logger
}

// NewStoreComputer creates a Computer backed by source.
func NewStoreComputer(source AggregateSource, log *logger.Logger) *StoreComputer {
	if log == nil {
		log = logger.Default()
	}
	return &StoreComputer{
		source: source,
		log:    log.WithComponent("correlation"),
	}
}

// Compute runs one aggregate query and returns the strongest pair. Store
// errors are returned unchanged.
func (c *StoreComputer) Compute(ctx context.Context, minGroupSize int) (Finding, error) {
	if minGroupSize < 1 {
		return Finding{}, errors.ValidationError(fmt.Sprintf("minimum group size must be at least 1, got %d", minGroupSize))
	}

	agg, err := c.source.CorrelationAggregates(ctx, minGroupSize)
	if err != nil {
		return Finding{}, err
	}

	f := Strongest(agg)
	c.log.WithContext(ctx).Debug("Computed correlation",
		"min_group_size", minGroupSize,
		"groups", len(agg.Groups),
		"finding", f.String(),
	)
	return f, nil
}

// Strongest picks the defined (group, covariate) correlation with the largest
// magnitude. Candidates are visited by group in the order given (species id
// ascending from the store) and then by covariate order; a later candidate
// replaces the best only when strictly stronger, so exact ties keep the
// earliest pair. A group with no values for a covariate is never paired
// with it.
func Strongest(agg *observation.Aggregates) Finding {
	if agg == nil {
		return Finding{}
	}

	var (
		best  Finding
		found bool
	)
	for _, g := range agg.Groups {
		for i, covariate := range agg.Covariates {
			if i >= len(g.NonNull) || i >= len(agg.Global) || g.NonNull[i] == 0 {
				continue
			}
			r, ok := PointBiserial(g.Count, agg.Total, g.Sum[i], agg.Global[i])
			if !ok {
				continue
			}
			if !found || math.Abs(r) > math.Abs(best.Correlation) {
				best = NewFinding(r, covariate, g.SpeciesID)
				found = true
			}
		}
	}
	return best
}
