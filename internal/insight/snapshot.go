// Package insight assembles the context snapshot handed to downstream
// consumers: the most observed species, covariate means and the current
// correlation finding.
package insight

import (
	"encoding/json"
	"fmt"

	"github.com/tattva/tattva/internal/correlation"
	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/errors"
)

// Request scopes a snapshot. A nil Region covers every sighting; a zero
// TopN selects the configured default.
type Request struct {
	Region *observation.Region
	TopN   int
}

// Validate checks coordinate ranges and the radius.
func (r Request) Validate() error {
	if r.TopN < 0 {
		return errors.ValidationError("limit must not be negative")
	}
	if r.Region == nil {
		return nil
	}
	if r.Region.Latitude < -90 || r.Region.Latitude > 90 {
		return errors.ValidationError(fmt.Sprintf("latitude %v out of range [-90, 90]", r.Region.Latitude))
	}
	if r.Region.Longitude < -180 || r.Region.Longitude > 180 {
		return errors.ValidationError(fmt.Sprintf("longitude %v out of range [-180, 180]", r.Region.Longitude))
	}
	if r.Region.RadiusKm < 0 {
		return errors.ValidationError("radius_km must not be negative")
	}
	return nil
}

// Snapshot is the context handed to a downstream consumer.
type Snapshot struct {
	TopSpecies []observation.GroupCount `json:"top_species"`
	EnvSummary EnvSummary               `json:"env_summary"`
	XFactor    XFactor                  `json:"x_factor"`
}

// EnvSummary holds per-covariate means and the number of sightings in scope.
// It encodes as a flat object keyed by covariate name plus "count".
type EnvSummary struct {
	Covariates []string
	Means      map[string]*float64
	Count      int64
}

// MarshalJSON flattens the means next to the count.
func (e EnvSummary) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Covariates)+1)
	for _, name := range e.Covariates {
		out[name] = e.Means[name]
	}
	out["count"] = e.Count
	return json.Marshal(out)
}

// XFactor is the current finding with the species name resolved.
type XFactor struct {
	correlation.Finding
	SpeciesName *string `json:"species_name"`
}

func emptySnapshot(covariates []string) Snapshot {
	means := make(map[string]*float64, len(covariates))
	for _, name := range covariates {
		means[name] = nil
	}
	return Snapshot{
		TopSpecies: []observation.GroupCount{},
		EnvSummary: EnvSummary{Covariates: covariates, Means: means},
	}
}
