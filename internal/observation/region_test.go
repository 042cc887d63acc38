package observation

import (
	"math"
	"testing"
)

func TestRegionBounds(t *testing.T) {
	tests := []struct {
		name       string
		region     Region
		wantDegLat float64
		wantDegLon float64
	}{
		{"equator", Region{Latitude: 0, Longitude: 10, RadiusKm: 111}, 1, 1},
		{"sixty degrees", Region{Latitude: 60, Longitude: 0, RadiusKm: 55.5}, 0.5, 1},
		{"pole floors the scale", Region{Latitude: 90, Longitude: 0, RadiusKm: 1}, 1.0 / 111, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.region.Bounds()
			if got := (b.MaxLat - b.MinLat) / 2; math.Abs(got-tt.wantDegLat) > 1e-6 {
				t.Errorf("lat half-width = %v, want %v", got, tt.wantDegLat)
			}
			if got := (b.MaxLon - b.MinLon) / 2; math.Abs(got-tt.wantDegLon) > 1e-3 {
				t.Errorf("lon half-width = %v, want %v", got, tt.wantDegLon)
			}
			if !b.Contains(tt.region.Latitude, tt.region.Longitude) {
				t.Error("bounds should contain the center")
			}
		})
	}
}

func TestBoundsContains(t *testing.T) {
	b := Bounds{MinLat: -1, MaxLat: 1, MinLon: 10, MaxLon: 12}

	tests := []struct {
		lat, lon float64
		want     bool
	}{
		{0, 11, true},
		{1, 12, true},
		{1.01, 11, false},
		{0, 9.99, false},
	}
	for _, tt := range tests {
		if got := b.Contains(tt.lat, tt.lon); got != tt.want {
			t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
		}
	}
}
