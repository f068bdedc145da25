package stats

import "math"

const (
	// DefaultPlateauAlpha is the significance level of the plateau trend test.
	DefaultPlateauAlpha = 0.05
	// DefaultSlopeTolerance bounds the slope magnitude accepted as flat.
	DefaultSlopeTolerance = 1e-3
)

// PlateauResult reports whether a series has stopped trending.
type PlateauResult struct {
	Plateau   bool
	Slope     float64
	Intercept float64
	PValue    float64
	LowerCI   float64
	UpperCI   float64
}

// DetectPlateau fits a Theil-Sen line to values over x (indices when x is nil)
// and runs a Kendall tau trend test. The series is a plateau when the slope is
// within slopeTol, the trend is not significant at alpha and the slope interval
// at 1-alpha contains zero. Non-finite fit parameters are reported as zero.
func DetectPlateau(values, x []float64, alpha, slopeTol float64) PlateauResult {
	if len(values) < 2 {
		res := PlateauResult{Plateau: len(values) == 1, PValue: 1}
		if len(values) == 1 {
			res.Intercept = finiteOrZero(values[0])
		}
		return res
	}
	if len(x) != len(values) {
		x = make([]float64, len(values))
		for i := range x {
			x[i] = float64(i)
		}
	}

	fit := TheilSen(values, x, 1-alpha)
	p := KendallTau(x, values).PValue
	if math.IsNaN(p) || math.IsInf(p, 0) {
		p = 1
	}

	res := PlateauResult{
		Plateau: math.Abs(fit.Slope) <= slopeTol && p > alpha &&
			fit.Lower <= 0 && 0 <= fit.Upper,
		Slope:     finiteOrZero(fit.Slope),
		Intercept: finiteOrZero(fit.Intercept),
		PValue:    p,
		LowerCI:   finiteOrZero(fit.Lower),
		UpperCI:   finiteOrZero(fit.Upper),
	}
	return res
}

// Map renders the result as an aux payload.
func (p PlateauResult) Map() map[string]any {
	return map[string]any{
		"plateau":   p.Plateau,
		"slope":     p.Slope,
		"intercept": p.Intercept,
		"p_value":   p.PValue,
		"lower_ci":  p.LowerCI,
		"upper_ci":  p.UpperCI,
	}
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
