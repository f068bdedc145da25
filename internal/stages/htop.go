package stages

import (
	"math"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stats"
)

var (
	hObsKey        = "H_obs"
	hSeriesKeys    = []string{"H_series", "H_samples"}
	hTimesKey      = "H_times"
	hPlateauTruth  = "H_plateau"
	seriesTailSize = 5
)

// HTop decides whether the plateau height has settled and derives its
// conservative lower bound H_obs minus the discretization, localization and
// response error budget.
func (e *Evaluator) HTop(obs models.Observation, delta, nmod models.StageResult) models.StageResult {
	hObs := obs.Scalar(hObsKey)
	hFinite := models.IsFinite(hObs)
	series, source := obs.Series(hSeriesKeys...)
	times, _ := obs.Series(hTimesKey)

	details := map[string]any{"series_count": len(series)}
	var plateau bool
	truth, hasTruth := obs.GroundTruthBool(hPlateauTruth)
	switch {
	case len(series) >= 2:
		if len(times) != len(series) {
			times = nil
		}
		res := stats.DetectPlateau(series, times, e.cfg.PlateauAlpha, e.cfg.SlopeTol)
		plateau = res.Plateau
		for k, v := range res.Map() {
			details[k] = v
		}
	case hasTruth:
		plateau = truth
		details["reason"] = "ground_truth_fallback"
	case hFinite:
		plateau = true
		details["reason"] = "single_sample"
		details["slope"] = 0.0
		details["p_value"] = 1.0
	default:
		details["reason"] = "no_data"
	}

	samples := series
	if len(samples) == 0 {
		samples = []float64{hObs}
	}
	richardson := stats.Richardson(samples, e.cfg.RichardsonOrder, e.cfg.SafetyFactor)
	eDisc := richardson.Error
	eLoc := e.cfg.CDelta * zeroIfNotFinite(delta.AuxFloat("delta_chart"))
	eResp := e.cfg.CN * zeroIfNotFinite(nmod.AuxFloat("abs_delta_N"))
	total := eDisc + eLoc + eResp
	hLB := math.NaN()
	if hFinite {
		hLB = hObs - total
	}

	var conditions []models.Status
	var n notes
	if !hFinite {
		conditions = append(conditions, models.StatusFail)
		n.add("H_obs not finite.")
	}
	if !plateau {
		conditions = append(conditions, models.StatusWarn)
		n.add("Plateau criteria not met.")
	}
	if models.IsFinite(hLB) && hLB < e.cfg.LowerBoundMin {
		conditions = append(conditions, models.StatusWarn)
		n.add("Lower bound below minimum tolerance.")
	}

	aux := map[string]any{
		"H_obs":            hObs,
		"plateau_detected": plateau,
		"plateau_details":  details,
		"error_budget": map[string]any{
			"E_disc": eDisc,
			"E_loc":  eLoc,
			"E_resp": eResp,
			"total":  total,
			"coefficients": map[string]any{
				"c_delta": e.cfg.CDelta,
				"c_n":     e.cfg.CN,
			},
		},
		"richardson": map[string]any{
			"estimate":      richardson.Estimate,
			"order":         e.cfg.RichardsonOrder,
			"safety_factor": e.cfg.SafetyFactor,
		},
		"H_lb":            hLB,
		"lower_bound_min": e.cfg.LowerBoundMin,
	}
	if len(series) > 0 {
		aux["series_source"] = source
		aux["series_tail"] = series[max(0, len(series)-seriesTailSize):]
	}

	return e.record(provenance.Entry{
		AnchorID: obs.Anchor(),
		Stage:    StageHTop,
		Status:   models.Worst(conditions...),
		Metric:   "H_obs",
		Value:    provenance.Num(hObs),
		Aux:      aux,
		Notes:    n.String(),
	})
}

func zeroIfNotFinite(v float64) float64 {
	if !models.IsFinite(v) {
		return 0
	}
	return v
}
