// Package correlation finds the strongest association between membership in
// a species and an environmental covariate.
package correlation

import (
	"encoding/json"
	"fmt"

	"github.com/tattva/tattva/internal/pkg/errors"
)

// Finding is the result of a correlation search. It is either fully
// populated or fully empty; the empty Finding means nothing qualified.
type Finding struct {
	Correlation float64 `json:"correlation"`
	Covariate   *string `json:"variable"`
	GroupID     *int64  `json:"species_id"`
}

// NewFinding returns a populated Finding.
func NewFinding(correlation float64, covariate string, groupID int64) Finding {
	return Finding{
		Correlation: correlation,
		Covariate:   &covariate,
		GroupID:     &groupID,
	}
}

// IsEmpty reports whether the Finding carries no result.
func (f Finding) IsEmpty() bool {
	return f.Covariate == nil && f.GroupID == nil
}

// Validate rejects half-populated findings and out-of-range correlations.
func (f Finding) Validate() error {
	if (f.Covariate == nil) != (f.GroupID == nil) {
		return errors.ValidationError("finding must carry both covariate and species id or neither")
	}
	if f.IsEmpty() && f.Correlation != 0 {
		return errors.ValidationError("empty finding must have zero correlation")
	}
	if f.Correlation < -1 || f.Correlation > 1 {
		return errors.ValidationError(fmt.Sprintf("correlation %v out of range [-1, 1]", f.Correlation))
	}
	return nil
}

// String formats the finding for logs.
func (f Finding) String() string {
	if f.IsEmpty() {
		return "no finding"
	}
	return fmt.Sprintf("species %d ~ %s (r=%.4f)", *f.GroupID, *f.Covariate, f.Correlation)
}

// encodeFinding serializes a Finding for the result cache.
func encodeFinding(f Finding) ([]byte, error) {
	return json.Marshal(f)
}

// decodeFinding parses a cached Finding and rejects invalid records.
func decodeFinding(data []byte) (Finding, error) {
	var f Finding
	if err := json.Unmarshal(data, &f); err != nil {
		return Finding{}, err
	}
	if err := f.Validate(); err != nil {
		return Finding{}, err
	}
	return f, nil
}
