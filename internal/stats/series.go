package stats

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// SeriesStats summarises a series of repeated measurements.
type SeriesStats struct {
	Count int
	Min   float64
	Max   float64
	Mean  float64
	Std   float64
}

// Summarize computes count/min/max/mean and the Bessel-corrected standard deviation.
func Summarize(series []float64) SeriesStats {
	if len(series) == 0 {
		return SeriesStats{}
	}
	s := SeriesStats{
		Count: len(series),
		Min:   floats.Min(series),
		Max:   floats.Max(series),
		Mean:  stat.Mean(series, nil),
	}
	if len(series) > 1 {
		s.Std = stat.StdDev(series, nil)
	}
	return s
}

// Map renders the summary as an aux payload.
func (s SeriesStats) Map() map[string]any {
	if s.Count == 0 {
		return map[string]any{"count": 0}
	}
	return map[string]any{
		"count": s.Count,
		"min":   s.Min,
		"max":   s.Max,
		"mean":  s.Mean,
		"std":   s.Std,
	}
}

// GuardMetrics describes the stability of a sequence of extrapolation estimates.
type GuardMetrics struct {
	Count int
	// OrderDisagreement is |last - second last|, NaN with fewer than two points.
	OrderDisagreement float64
	// Oscillations counts sign changes between consecutive first differences.
	Oscillations int
	// MaxStep is the largest absolute first difference, NaN with fewer than three points.
	MaxStep float64
	MaxAbs  float64
}

// Guard computes extrapolation guard metrics.
func Guard(series []float64) GuardMetrics {
	g := GuardMetrics{
		Count:             len(series),
		OrderDisagreement: math.NaN(),
		MaxStep:           math.NaN(),
	}
	n := len(series)
	if n >= 2 {
		g.OrderDisagreement = math.Abs(series[n-1] - series[n-2])
	}
	if n >= 3 {
		diffs := make([]float64, n-1)
		for i := range diffs {
			diffs[i] = series[i+1] - series[i]
		}
		g.MaxStep = 0
		for i, d := range diffs {
			g.MaxStep = math.Max(g.MaxStep, math.Abs(d))
			if i > 0 && sign(d) != sign(diffs[i-1]) {
				g.Oscillations++
			}
		}
	}
	for _, v := range series {
		g.MaxAbs = math.Max(g.MaxAbs, math.Abs(v))
	}
	return g
}

// Map renders the guard metrics, omitting values that were not computable.
func (g GuardMetrics) Map() map[string]any {
	m := map[string]any{"count": g.Count}
	if g.Count >= 2 {
		m["order_disagreement"] = g.OrderDisagreement
	}
	if g.Count >= 3 {
		m["oscillations"] = g.Oscillations
		m["max_step"] = g.MaxStep
	}
	m["max_abs"] = g.MaxAbs
	return m
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	case x == 0:
		return 0
	default:
		return math.NaN()
	}
}
