package stages

import (
	"math"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stats"
)

// Observable keys read by the chart-distance check, series keys in lookup order.
var (
	deltaKey        = "Delta"
	deltaSeriesKeys = []string{"Delta_series", "Delta_samples", "delta_series"}
)

// Delta checks the chart distance Δ against tau_delta. Series statistics are diagnostic only.
func (e *Evaluator) Delta(obs models.Observation) models.StageResult {
	value := obs.Scalar(deltaKey)
	series, source := obs.Series(deltaSeriesKeys...)

	aux := map[string]any{
		"tau_delta":        e.cfg.TauDelta,
		"series_available": len(series) > 0,
		"delta_chart":      value,
	}
	if len(series) > 0 {
		aux["series_stats"] = stats.Summarize(series).Map()
		aux["series_source"] = source
	}

	status := models.StatusPass
	var n notes
	switch {
	case math.IsNaN(value) || math.IsInf(value, 0):
		status = models.StatusFail
		n.add("Delta is not finite.")
	case value > e.cfg.TauDelta:
		status = models.StatusWarn
		n.add("Delta exceeds tolerance.")
	}

	return e.record(provenance.Entry{
		AnchorID:  obs.Anchor(),
		Stage:     StageDelta,
		Status:    status,
		Metric:    "delta_chart",
		Value:     provenance.Num(value),
		Threshold: provenance.Num(e.cfg.TauDelta),
		Aux:       aux,
		Notes:     n.String(),
	})
}
