package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pairsFrom(scores []float64, labels []bool) []Pair {
	out := make([]Pair, len(scores))
	for i := range scores {
		out[i] = Pair{Score: scores[i], Positive: labels[i]}
	}
	return out
}

func TestAUCPerfectAndInverted(t *testing.T) {
	perfect := pairsFrom([]float64{0.9, 0.8, 0.2, 0.1}, []bool{true, true, false, false})
	assert.Equal(t, 1.0, AUC(perfect))

	inverted := pairsFrom([]float64{0.1, 0.2, 0.8, 0.9}, []bool{true, true, false, false})
	assert.Equal(t, 0.0, AUC(inverted))
}

func TestAUCTiesAndSingleClass(t *testing.T) {
	tied := pairsFrom([]float64{0.5, 0.5, 0.5, 0.5}, []bool{true, false, true, false})
	assert.Equal(t, 0.5, AUC(tied))

	single := pairsFrom([]float64{0.1, 0.9}, []bool{true, true})
	assert.Equal(t, 0.5, AUC(single))
	assert.Equal(t, 0.5, AUC(nil))
}

func TestTrapezoidMatchesRankAUC(t *testing.T) {
	cases := [][]Pair{
		pairsFrom([]float64{0.9, 0.7, 0.7, 0.4, 0.3, 0.3, 0.1}, []bool{true, false, true, true, false, true, false}),
		pairsFrom([]float64{1, 2, 3, 4, 5, 6}, []bool{false, true, false, true, false, true}),
		pairsFrom([]float64{0.2, 0.2, 0.2}, []bool{true, false, false}),
		pairsFrom([]float64{0.3, 0.6}, []bool{false, false}),
	}
	for i, pairs := range cases {
		assert.InDelta(t, AUC(pairs), TrapezoidAUC(Curve(pairs)), 1e-9, "case %d", i)
	}
}

func TestCurveBracketed(t *testing.T) {
	points := Curve(pairsFrom([]float64{0.9, 0.1}, []bool{true, false}))
	require.GreaterOrEqual(t, len(points), 2)
	assert.Equal(t, 0.0, points[0].FPR)
	assert.Equal(t, 0.0, points[0].TPR)
	last := points[len(points)-1]
	assert.Equal(t, 1.0, last.FPR)
	assert.Equal(t, 1.0, last.TPR)
}

func TestBestYouden(t *testing.T) {
	pairs := pairsFrom([]float64{0.9, 0.8, 0.3, 0.2}, []bool{true, true, false, false})
	y := BestYouden(pairs)
	require.True(t, y.Found)
	assert.Equal(t, 1.0, y.J)
	assert.Equal(t, 0.8, y.Threshold)

	empty := BestYouden(nil)
	assert.False(t, empty.Found)
	assert.Equal(t, -1.0, empty.J)
}

func TestBootstrapAUCDeterministicAcrossWorkers(t *testing.T) {
	sampler := NewSampler(7)
	pairs := make([]Pair, 60)
	for i := range pairs {
		pairs[i] = Pair{Score: sampler.Float64() + float64(i%2)*0.3, Positive: i%2 == 1}
	}

	one := BootstrapAUC(pairs, BootstrapOptions{Resamples: 200, Seed: 42, Workers: 1})
	many := BootstrapAUC(pairs, BootstrapOptions{Resamples: 200, Seed: 42, Workers: 8})

	assert.Equal(t, one, many)
	assert.True(t, one.Reliable)
	assert.Equal(t, 200, one.Effective)
	assert.LessOrEqual(t, 0.0, one.Lo)
	assert.LessOrEqual(t, one.Lo, one.Hi)
	assert.LessOrEqual(t, one.Hi, 1.0)
}

func TestBootstrapAUCSingleClassFallsBack(t *testing.T) {
	pairs := pairsFrom([]float64{0.1, 0.2, 0.3}, []bool{true, true, true})
	ci := BootstrapAUC(pairs, BootstrapOptions{Resamples: 10, Seed: 1})

	assert.False(t, ci.Reliable)
	assert.Equal(t, 0, ci.Effective)
	assert.Equal(t, 200, ci.Attempts)
	assert.Equal(t, 0.0, ci.Lo)
	assert.Equal(t, 1.0, ci.Hi)
}

func TestSamplerReproducible(t *testing.T) {
	a := NewSampler(42).Normal(5, 0, 1)
	b := NewSampler(42).Normal(5, 0, 1)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, NewSampler(43).Normal(5, 0, 1))
	assert.Equal(t, "PCG", NewSampler(1).Family())
	assert.NotEqual(t, DeriveSeed(42, 0), DeriveSeed(42, 1))
	for _, v := range NewSampler(3).Uniform(20, -1, 1) {
		assert.False(t, math.IsNaN(v))
		assert.GreaterOrEqual(t, v, -1.0)
		assert.Less(t, v, 1.0)
	}
}

func TestROCTerminatesOnNaNScores(t *testing.T) {
	pairs := []Pair{
		{Score: 0.9, Positive: true},
		{Score: math.NaN(), Positive: false},
		{Score: 0.4, Positive: true},
		{Score: math.NaN(), Positive: false},
		{Score: 0.2, Positive: false},
	}

	type result struct {
		auc    float64
		curve  []Point
		youden Youden
	}
	done := make(chan result, 1)
	go func() {
		done <- result{auc: AUC(pairs), curve: Curve(pairs), youden: BestYouden(pairs)}
	}()

	select {
	case res := <-done:
		// NaN sorts below every score, so the negatives rank lowest.
		assert.InDelta(t, 1.0, res.auc, 1e-12)
		require.GreaterOrEqual(t, len(res.curve), 2)
		last := res.curve[len(res.curve)-1]
		assert.Equal(t, 1.0, last.FPR)
		assert.Equal(t, 1.0, last.TPR)
		assert.True(t, res.youden.Found)
		assert.InDelta(t, 1.0, res.youden.J, 1e-12)
	case <-time.After(5 * time.Second):
		t.Fatal("ROC computation did not return")
	}
}
