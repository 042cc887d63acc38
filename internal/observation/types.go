// Package observation provides the relational store of species sightings.
package observation

import (
	"math"
	"time"
)

// Species is a taxonomic group that sightings are recorded against.
type Species struct {
	ID             int64   `json:"id"`
	ScientificName string  `json:"scientific_name"`
	CommonName     *string `json:"common_name,omitempty"`
	Habitat        *string `json:"habitat,omitempty"`
}

// DisplayName returns the common name when set, otherwise the scientific name.
func (s Species) DisplayName() string {
	if s.CommonName != nil && *s.CommonName != "" {
		return *s.CommonName
	}
	return s.ScientificName
}

// Sighting is a single observation event. Covariates maps covariate column
// names to measurements; a missing or nil entry is stored as NULL.
type Sighting struct {
	ID         int64               `json:"id"`
	SpeciesID  int64               `json:"species_id"`
	Latitude   float64             `json:"latitude"`
	Longitude  float64             `json:"longitude"`
	ObservedOn time.Time           `json:"observed_on"`
	Covariates map[string]*float64 `json:"covariates"`
}

// CovariateStats is the population summary of one covariate over every
// in-scope sighting where it is non-null.
type CovariateStats struct {
	Count    int64
	Mean     float64
	SumSqDev float64
}

// StdDev returns the population standard deviation, or 0 when Count is 0.
func (c CovariateStats) StdDev() float64 {
	if c.Count == 0 || c.SumSqDev <= 0 {
		return 0
	}
	return math.Sqrt(c.SumSqDev / float64(c.Count))
}

// GroupAggregate holds per-species sums for each covariate, indexed in the
// store's covariate order.
type GroupAggregate struct {
	SpeciesID int64
	Count     int64
	NonNull   []int64
	Sum       []float64
}

// Aggregates is the result of the single grouped correlation query.
type Aggregates struct {
	// Total is the number of in-scope sightings, across all species.
	Total      int64
	Covariates []string
	Global     []CovariateStats
	Groups     []GroupAggregate
}

// GroupCount is a species with its sighting count inside a scope.
type GroupCount struct {
	SpeciesID      int64   `json:"species_id"`
	ScientificName string  `json:"scientific_name"`
	CommonName     *string `json:"common_name"`
	Count          int64   `json:"count"`
}

// CovariateSummary holds per-covariate means and the sighting count inside a
// scope. Means has one entry per covariate, nil where no value exists.
type CovariateSummary struct {
	Covariates []string
	Means      []*float64
	Count      int64
}
