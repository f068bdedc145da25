package stats

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat/distuv"
)

// TheilSenResult is a robust linear fit with a confidence band on the slope.
type TheilSenResult struct {
	Slope     float64
	Intercept float64
	Lower     float64
	Upper     float64
}

// TheilSen fits y against x using the median of pairwise slopes. The slope
// interval follows Sen (1968) at the given two-sided confidence level; the
// intercept is median(y) - slope*median(x). Results are NaN when x has no spread.
func TheilSen(y, x []float64, confidence float64) TheilSenResult {
	nan := TheilSenResult{Slope: math.NaN(), Intercept: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	if len(y) < 2 || len(x) != len(y) {
		return nan
	}

	slopes := make([]float64, 0, len(y)*(len(y)-1)/2)
	for i := range x {
		for j := range x {
			if dx := x[i] - x[j]; dx > 0 {
				slopes = append(slopes, (y[i]-y[j])/dx)
			}
		}
	}
	if len(slopes) == 0 {
		return nan
	}
	slices.Sort(slopes)

	res := TheilSenResult{Slope: median(slopes)}
	res.Intercept = median(y) - res.Slope*median(x)

	tail := confidence
	if tail > 0.5 {
		tail = 1 - tail
	}
	z := math.Abs(distuv.UnitNormal.Quantile(tail / 2))

	ny := float64(len(y))
	sigsq := ny * (ny - 1) * (2*ny + 5)
	for _, k := range append(repeatCounts(x), repeatCounts(y)...) {
		kf := float64(k)
		sigsq -= kf * (kf - 1) * (2*kf + 5)
	}
	sigma := math.Sqrt(max(sigsq, 0) / 18)
	if math.IsNaN(sigma) {
		res.Lower, res.Upper = math.NaN(), math.NaN()
		return res
	}

	nt := float64(len(slopes))
	upper := min(int(math.RoundToEven((nt+z*sigma)/2)), len(slopes)-1)
	lower := max(int(math.RoundToEven((nt-z*sigma)/2))-1, 0)
	if lower > upper {
		lower, upper = upper, lower
	}
	res.Lower, res.Upper = slopes[lower], slopes[upper]
	return res
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// repeatCounts returns the multiplicity of every value occurring more than once.
func repeatCounts(values []float64) []int {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	out := make([]int, 0)
	for _, c := range counts {
		if c > 1 {
			out = append(out, c)
		}
	}
	return out
}
