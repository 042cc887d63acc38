package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/tattva/tattva/internal/observation"
	"github.com/tattva/tattva/internal/pkg/errors"
)

type seedOptions struct {
	Species   int
	Sightings int
	Seed      uint64
}

type seedResult struct {
	SpeciesIDs    []int64
	SignalSpecies int64
	Sightings     int
}

// baseline is the synthetic distribution of a covariate.
type baseline struct {
	mean, sd float64
}

var knownBaselines = map[string]baseline{
	"sea_surface_temp_c": {27.5, 1.2},
	"salinity_psu":       {34.8, 0.4},
	"chlorophyll_mg_m3":  {0.6, 0.25},
}

var seedSpecies = []struct {
	scientific, common string
}{
	{"Sardinella longiceps", "Indian oil sardine"},
	{"Rastrelliger kanagurta", "Indian mackerel"},
	{"Thunnus albacares", "Yellowfin tuna"},
	{"Tursiops aduncus", "Indo-Pacific bottlenose dolphin"},
	{"Chelonia mydas", "Green turtle"},
	{"Rhincodon typus", "Whale shark"},
	{"Dugong dugon", "Dugong"},
	{"Istiophorus platypterus", "Indo-Pacific sailfish"},
	{"Mobula birostris", "Giant manta ray"},
	{"Sousa plumbea", ""},
}

// hotspots are sighting centres along the Indian coast.
var hotspots = [][2]float64{
	{9.9, 76.2},
	{15.4, 73.8},
	{13.1, 80.3},
	{19.0, 72.8},
}

// seedObservations inserts synthetic species and sightings. The first species
// receives a third of the sightings with the first covariate shifted by two
// standard deviations. About one sighting in ten carries no environmental
// readings at all, so it is stored but stays out of the correlation scope.
func seedObservations(ctx context.Context, store *observation.Store, opts seedOptions) (seedResult, error) {
	if opts.Species < 2 {
		return seedResult{}, errors.ValidationError("seed needs at least 2 species")
	}
	if opts.Sightings < opts.Species {
		return seedResult{}, errors.ValidationError("seed needs at least one sighting per species")
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	covariates := store.Covariates()

	var res seedResult
	for i := 0; i < opts.Species; i++ {
		sp := observation.Species{ScientificName: fmt.Sprintf("Species %d", i+1)}
		if i < len(seedSpecies) {
			sp.ScientificName = seedSpecies[i].scientific
			if seedSpecies[i].common != "" {
				common := seedSpecies[i].common
				sp.CommonName = &common
			}
		}
		created, err := store.CreateSpecies(ctx, sp)
		if err != nil {
			return res, err
		}
		res.SpeciesIDs = append(res.SpeciesIDs, created.ID)
	}
	res.SignalSpecies = res.SpeciesIDs[0]

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for n := 0; n < opts.Sightings; n++ {
		idx := 0
		// Every species gets at least one sighting; the signal species takes a third.
		switch {
		case n < opts.Species:
			idx = n
		case rng.IntN(3) == 0:
			idx = 0
		default:
			idx = 1 + rng.IntN(opts.Species-1)
		}

		spot := hotspots[rng.IntN(len(hotspots))]
		sg := observation.Sighting{
			SpeciesID:  res.SpeciesIDs[idx],
			Latitude:   clamp(spot[0]+rng.NormFloat64()*0.3, -90, 90),
			Longitude:  clamp(spot[1]+rng.NormFloat64()*0.3, -180, 180),
			ObservedOn: start.AddDate(0, 0, rng.IntN(730)),
			Covariates: make(map[string]*float64, len(covariates)),
		}
		if rng.IntN(10) != 0 {
			for c, name := range covariates {
				b, ok := knownBaselines[name]
				if !ok {
					b = baseline{mean: 10, sd: 1}
				}
				v := b.mean + rng.NormFloat64()*b.sd
				if idx == 0 && c == 0 {
					v += 2 * b.sd
				}
				sg.Covariates[name] = &v
			}
		}

		if _, err := store.RecordSighting(ctx, sg); err != nil {
			return res, err
		}
		res.Sightings++
	}

	return res, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
