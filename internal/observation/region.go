package observation

import "math"

const (
	kmPerDegreeLat = 111.0
	minLonScaleKm  = 0.1
)

// Region is a circular area described by a center point and radius.
type Region struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	RadiusKm  float64 `json:"radius_km"`
}

// Bounds is an axis-aligned latitude/longitude box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Bounds approximates the region with a bounding box. One degree of latitude
// is taken as 111 km and longitude degrees are scaled by the cosine of the
// center latitude, floored so the box stays finite near the poles.
func (r Region) Bounds() Bounds {
	degLat := r.RadiusKm / kmPerDegreeLat
	degLon := r.RadiusKm / math.Max(minLonScaleKm, kmPerDegreeLat*math.Abs(math.Cos(r.Latitude*math.Pi/180)))

	return Bounds{
		MinLat: r.Latitude - degLat,
		MaxLat: r.Latitude + degLat,
		MinLon: r.Longitude - degLon,
		MaxLon: r.Longitude + degLon,
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}
