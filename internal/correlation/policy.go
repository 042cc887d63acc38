package correlation

import (
	"context"
	"time"

	"github.com/tattva/tattva/internal/pkg/errors"
	"github.com/tattva/tattva/internal/pkg/logger"
)

// DefaultThresholds is the minimum-group-size sequence tried by DefaultPolicy.
var DefaultThresholds = []int{30, 20, 10, 5}

// Policy tries a Computer at each threshold in order and keeps the first
// result Accept approves. Larger groups are preferred over stronger signals:
// once a threshold yields an accepted finding, lower thresholds are not tried.
type Policy struct {
	Thresholds []int
	Accept     func(Finding) bool
	Metrics    MetricsRecorder
	Log        *logger.Logger
}

// DefaultPolicy returns a Policy over DefaultThresholds that accepts any
// non-empty finding.
func DefaultPolicy() *Policy {
	return NewPolicy(DefaultThresholds)
}

// NewPolicy returns a Policy over thresholds that accepts any non-empty finding.
func NewPolicy(thresholds []int) *Policy {
	return &Policy{
		Thresholds: append([]int(nil), thresholds...),
		Accept:     NonEmpty,
	}
}

// NonEmpty accepts findings that name a covariate and a species.
func NonEmpty(f Finding) bool {
	return !f.IsEmpty()
}

// Run evaluates thresholds in order. It returns the first accepted finding,
// or the empty Finding once every threshold is exhausted. A Computer error
// stops the search and is returned.
func (p *Policy) Run(ctx context.Context, c Computer) (Finding, error) {
	accept := p.Accept
	if accept == nil {
		accept = NonEmpty
	}
	rec := p.Metrics
	if rec == nil {
		rec = noopRecorder{}
	}
	log := p.Log
	if log == nil {
		log = logger.Default()
	}
	log = log.WithContext(ctx)

	for _, threshold := range p.Thresholds {
		if err := ctx.Err(); err != nil {
			return Finding{}, errors.Wrap(errors.CodeTimeout, "threshold search canceled", err)
		}

		start := time.Now()
		f, err := c.Compute(ctx, threshold)
		rec.RecordCompute(time.Since(start), err)
		if err != nil {
			log.Error("Correlation computation failed", "min_group_size", threshold, "error", err)
			return Finding{}, err
		}

		accepted := accept(f)
		rec.RecordThresholdAttempt(threshold, accepted)
		if accepted {
			log.Info("Accepted correlation finding", "min_group_size", threshold, "finding", f.String())
			return f, nil
		}
		log.Debug("No qualifying finding, relaxing threshold", "min_group_size", threshold)
	}

	log.Info("Threshold search exhausted without a finding", "thresholds", p.Thresholds)
	return Finding{}, nil
}
