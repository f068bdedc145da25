package stages

import (
	"math"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stats"
)

var (
	deltaNKey        = "deltaN"
	deltaNSeriesKeys = []string{"deltaN_series", "deltaN_samples", "n_series"}
)

// NMod checks |δN| against tau_n and runs the extrapolation guard over the
// series of successive estimates. A failing guard downgrades PASS to WARN.
func (e *Evaluator) NMod(obs models.Observation) models.StageResult {
	absDeltaN := math.Abs(obs.Scalar(deltaNKey))
	series, source := obs.Series(deltaNSeriesKeys...)

	aux := map[string]any{
		"tau_n": e.cfg.TauN,
		"guard_thresholds": map[string]any{
			"order_agreement_tol": e.cfg.OrderAgreementTol,
			"oscillation_max":     e.cfg.OscillationMax,
		},
	}

	var n notes
	guardPass := true
	if len(series) > 0 {
		g := stats.Guard(series)
		aux["guard_metrics"] = g.Map()
		aux["series_source"] = source
		if g.Count >= 2 && g.OrderDisagreement > e.cfg.OrderAgreementTol {
			guardPass = false
			n.add("Order disagreement above tolerance.")
		}
		if g.Count >= 3 && g.Oscillations > e.cfg.OscillationMax {
			guardPass = false
			n.add("Oscillation count above limit.")
		}
	} else {
		aux["guard_metrics"] = map[string]any{"count": 0}
		guardPass = false
		n.add("Missing series data for guard checks.")
	}

	status := models.StatusPass
	switch {
	case math.IsNaN(absDeltaN) || math.IsInf(absDeltaN, 0):
		status = models.StatusFail
		n.add("deltaN is not finite.")
	case absDeltaN > e.cfg.TauN:
		status = models.StatusWarn
		n.add("deltaN exceeds tolerance.")
	}
	if !guardPass && status == models.StatusPass {
		status = models.StatusWarn
		n.add("Extrapolation guard raised warnings.")
	}

	aux["abs_delta_N"] = absDeltaN
	aux["guard_pass"] = guardPass

	return e.record(provenance.Entry{
		AnchorID:  obs.Anchor(),
		Stage:     StageNMod,
		Status:    status,
		Metric:    "abs_delta_N",
		Value:     provenance.Num(absDeltaN),
		Threshold: provenance.Num(e.cfg.TauN),
		Aux:       aux,
		Notes:     n.String(),
	})
}
