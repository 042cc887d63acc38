package correlation

import (
	"math"

	"github.com/tattva/tattva/internal/observation"
)

// zeroVarianceTolerance is the relative spread below which a covariate is
// treated as constant.
const zeroVarianceTolerance = 1e-9

// PointBiserial returns the point-biserial correlation between membership in
// a group and a covariate. p = groupCount/total is the group's share of all
// in-scope sightings; groupSum, mean and sigma cover the covariate's non-null
// values. It evaluates
//
//	r = (groupSum/total - mean*p) / (sigma * sqrt(p*(1-p)))
//
// ok is false when r is undefined: an empty group, a group that is the whole
// scope, or a covariate with no spread. Results are clamped to [-1, 1].
func PointBiserial(groupCount, total int64, groupSum float64, cov observation.CovariateStats) (r float64, ok bool) {
	if total <= 0 || groupCount <= 0 || groupCount >= total || cov.Count == 0 {
		return 0, false
	}

	sigma := cov.StdDev()
	if sigma <= zeroVarianceTolerance*math.Max(1, math.Abs(cov.Mean)) {
		return 0, false
	}

	n := float64(total)
	p := float64(groupCount) / n
	r = (groupSum/n - cov.Mean*p) / (sigma * math.Sqrt(p*(1-p)))

	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return math.Max(-1, math.Min(1, r)), true
}
