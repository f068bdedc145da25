package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectPlateauFlatSeries(t *testing.T) {
	res := DetectPlateau([]float64{0.5, 0.5, 0.5, 0.5, 0.5}, nil, 0.05, 1e-3)

	assert.True(t, res.Plateau)
	assert.Equal(t, 0.0, res.Slope)
	assert.Equal(t, 0.5, res.Intercept)
	assert.Equal(t, 1.0, res.PValue)
	assert.LessOrEqual(t, res.LowerCI, 0.0)
	assert.GreaterOrEqual(t, res.UpperCI, 0.0)
}

func TestDetectPlateauTrend(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	res := DetectPlateau(values, nil, 0.05, 1e-3)

	assert.False(t, res.Plateau)
	assert.InDelta(t, 1.0, res.Slope, 1e-12)
	assert.InDelta(t, 1.0, res.Intercept, 1e-12)
	assert.Less(t, res.PValue, 0.05)
}

func TestDetectPlateauShortSeries(t *testing.T) {
	assert.False(t, DetectPlateau(nil, nil, 0.05, 1e-3).Plateau)

	single := DetectPlateau([]float64{3}, nil, 0.05, 1e-3)
	assert.True(t, single.Plateau)
	assert.Equal(t, 3.0, single.Intercept)
}

func TestDetectPlateauMap(t *testing.T) {
	m := DetectPlateau([]float64{1, 1, 1}, nil, 0.05, 1e-3).Map()
	for _, key := range []string{"plateau", "slope", "intercept", "p_value", "lower_ci", "upper_ci"} {
		assert.Contains(t, m, key)
	}
}

func TestTheilSenIntervalContainsSlope(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	y := []float64{0.1, 1.9, 4.2, 5.8, 8.1, 9.9, 12.2, 13.8}
	fit := TheilSen(y, x, 0.95)

	require.False(t, math.IsNaN(fit.Slope))
	assert.InDelta(t, 2.0, fit.Slope, 0.1)
	assert.LessOrEqual(t, fit.Lower, fit.Slope)
	assert.GreaterOrEqual(t, fit.Upper, fit.Slope)
}

func TestTheilSenIntervalDiscountsTiedValues(t *testing.T) {
	x := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	y := []float64{1, 0, 3, 0, 3, 3, 0, 3}
	fit := TheilSen(y, x, 0.95)

	assert.InDelta(t, 0.0, fit.Slope, 1e-12)
	// Ties in y shrink the variance, which narrows the interval to
	// sorted slopes 6 and 21 instead of 5 and 22.
	assert.InDelta(t, -1.0/6.0, fit.Lower, 1e-12)
	assert.InDelta(t, 0.75, fit.Upper, 1e-12)
}

func TestTheilSenConstantX(t *testing.T) {
	fit := TheilSen([]float64{1, 2, 3}, []float64{2, 2, 2}, 0.95)
	assert.True(t, math.IsNaN(fit.Slope))
}

func TestKendallTauExact(t *testing.T) {
	res := KendallTau([]float64{1, 2, 3, 4, 5}, []float64{1, 2, 3, 4, 5})
	assert.InDelta(t, 1.0, res.Tau, 1e-12)
	// 2/5! for a perfectly ordered sample.
	assert.InDelta(t, 2.0/120.0, res.PValue, 1e-12)

	rev := KendallTau([]float64{1, 2, 3, 4, 5}, []float64{5, 4, 3, 2, 1})
	assert.InDelta(t, -1.0, rev.Tau, 1e-12)
	assert.InDelta(t, 2.0/120.0, rev.PValue, 1e-12)
}

func TestKendallTauExactDistribution(t *testing.T) {
	// n=4: inversions 0..6 occur 1,3,5,6,5,3,1 times out of 24.
	res := KendallTau([]float64{1, 2, 3, 4}, []float64{1, 3, 2, 4})
	assert.InDelta(t, 2.0/3.0, res.Tau, 1e-12)
	assert.InDelta(t, 2*4.0/24.0, res.PValue, 1e-12)
}

func TestKendallTauTiesUseAsymptotic(t *testing.T) {
	res := KendallTau([]float64{1, 2, 3, 4, 5, 6}, []float64{1, 1, 2, 2, 3, 3})
	assert.Greater(t, res.Tau, 0.8)
	assert.Greater(t, res.PValue, 0.0)
	assert.Less(t, res.PValue, 0.05)
}

func TestKendallTauConstantIsNaN(t *testing.T) {
	res := KendallTau([]float64{1, 2, 3}, []float64{4, 4, 4})
	assert.True(t, math.IsNaN(res.Tau))
	assert.True(t, math.IsNaN(res.PValue))
}
