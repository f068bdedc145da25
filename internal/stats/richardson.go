package stats

import "math"

const (
	// DefaultRichardsonOrder is the assumed convergence order.
	DefaultRichardsonOrder = 2
	// DefaultSafetyFactor inflates the raw remainder estimate.
	DefaultSafetyFactor = 1.5
)

// RichardsonResult is a discretization remainder estimate.
type RichardsonResult struct {
	Estimate float64
	Error    float64
}

// Richardson estimates the discretization error from the last two samples:
// safety * |latest - previous| / (2^order - 1). Fewer than two samples give zero error.
func Richardson(samples []float64, order int, safety float64) RichardsonResult {
	switch len(samples) {
	case 0:
		return RichardsonResult{Estimate: math.NaN()}
	case 1:
		return RichardsonResult{Estimate: samples[0]}
	}
	latest := samples[len(samples)-1]
	prev := samples[len(samples)-2]
	denom := math.Max(1, math.Pow(2, float64(order))-1)
	return RichardsonResult{
		Estimate: latest,
		Error:    safety * math.Abs(latest-prev) / denom,
	}
}
