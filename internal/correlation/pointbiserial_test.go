package correlation

import (
	"math"
	"testing"

	"github.com/tattva/tattva/internal/observation"
)

func TestPointBiserial(t *testing.T) {
	// Values {1,2,3,4}: mean 2.5, population variance 1.25
	cov := observation.CovariateStats{Count: 4, Mean: 2.5, SumSqDev: 5}
	want := 2 / math.Sqrt(1.25) * 0.5

	tests := []struct {
		name   string
		count  int64
		total  int64
		sum    float64
		cov    observation.CovariateStats
		want   float64
		wantOK bool
	}{
		{"upper half", 2, 4, 7, cov, want, true},
		{"lower half", 2, 4, 3, cov, -want, true},
		// Two more in-scope sightings lack this covariate, so p = 2/6
		{"partly null covariate", 2, 6, 3, cov, (3.0/6 - 2.5*2/6) / (math.Sqrt(1.25) * math.Sqrt(2.0/6*4.0/6)), true},
		{"empty group", 0, 4, 0, cov, 0, false},
		{"group is the whole scope", 4, 4, 10, cov, 0, false},
		{"empty scope", 0, 0, 0, observation.CovariateStats{}, 0, false},
		{"covariate never set", 2, 4, 0, observation.CovariateStats{}, 0, false},
		{"zero variance", 2, 4, 14, observation.CovariateStats{Count: 4, Mean: 7, SumSqDev: 0}, 0, false},
		{"variance below tolerance", 2, 4, 2e6, observation.CovariateStats{Count: 4, Mean: 1e6, SumSqDev: 1e-12}, 0, false},
		{"out of range is clamped", 1, 2, 100, observation.CovariateStats{Count: 2, Mean: 0, SumSqDev: 2}, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PointBiserial(tt.count, tt.total, tt.sum, tt.cov)
			if ok != tt.wantOK {
				t.Fatalf("PointBiserial() ok = %v, want %v", ok, tt.wantOK)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("PointBiserial() = %v, want %v", got, tt.want)
			}
		})
	}
}

// The closed form must agree with the Pearson correlation between a 0/1
// membership indicator and the covariate.
func TestPointBiserial_MatchesPearson(t *testing.T) {
	values := []float64{3.1, 4.7, 2.2, 8.9, 5.5, 6.1, 7.3, 1.8}
	member := []bool{true, false, true, true, false, false, true, false}

	var n int64
	var sum, mean float64
	for i, v := range values {
		mean += v
		if member[i] {
			n++
			sum += v
		}
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}

	total := int64(len(values))
	got, ok := PointBiserial(n, total, sum, observation.CovariateStats{Count: total, Mean: mean, SumSqDev: ss})
	if !ok {
		t.Fatal("expected a defined correlation")
	}

	if want := pearson(values, member); math.Abs(got-want) > 1e-12 {
		t.Errorf("PointBiserial() = %v, Pearson = %v", got, want)
	}
}

func pearson(values []float64, member []bool) float64 {
	n := float64(len(values))
	var mx, my float64
	for i, v := range values {
		mx += indicator(member[i])
		my += v
	}
	mx /= n
	my /= n

	var sxy, sxx, syy float64
	for i, v := range values {
		dx := indicator(member[i]) - mx
		dy := v - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	return sxy / math.Sqrt(sxx*syy)
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
