// Package calibrate derives the error-budget coefficients c_delta and c_n from
// an existing record stream.
package calibrate

import (
	"math"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/stages"
)

// Triplet is the per-anchor evidence used for calibration.
type Triplet struct {
	AnchorID  string
	Delta     float64
	AbsDeltaN float64
	HObs      float64
	// Gap is max(0, H_obs - H_lb).
	Gap float64
}

// Result is the calibration output, written as JSON.
type Result struct {
	CDelta  float64 `json:"c_delta"`
	CN      float64 `json:"c_n"`
	Samples int     `json:"samples"`
}

// Triplets groups records by anchor and extracts (Δ, |δN|, gap) for every
// anchor carrying delta, nmod and htop records with non-null values. The last
// record of a stage wins when an anchor appears more than once. Anchors are
// returned in first-seen order.
func Triplets(records []models.StageResult) []Triplet {
	byAnchor := make(map[string]map[string]models.StageResult)
	var order []string
	for _, r := range records {
		stagesOf, ok := byAnchor[r.AnchorID]
		if !ok {
			stagesOf = make(map[string]models.StageResult)
			byAnchor[r.AnchorID] = stagesOf
			order = append(order, r.AnchorID)
		}
		stagesOf[r.Stage] = r
	}

	out := make([]Triplet, 0, len(order))
	for _, anchor := range order {
		s := byAnchor[anchor]
		d, okD := s[stages.StageDelta]
		n, okN := s[stages.StageNMod]
		h, okH := s[stages.StageHTop]
		if !okD || !okN || !okH {
			continue
		}
		delta := d.AuxFloat("delta_chart")
		absN := n.AuxFloat("abs_delta_N")
		hObs := h.AuxFloat("H_obs")
		hLB := h.AuxFloat("H_lb")
		if !models.IsFinite(delta) || !models.IsFinite(absN) || !models.IsFinite(hObs) || !models.IsFinite(hLB) {
			continue
		}
		out = append(out, Triplet{
			AnchorID:  anchor,
			Delta:     delta,
			AbsDeltaN: absN,
			HObs:      hObs,
			Gap:       math.Max(0, hObs-hLB),
		})
	}
	return out
}

// Calibrate returns the smallest coefficients bounding every gap on its own:
// c_delta = max(gap/Δ) over Δ > 0 and c_n = max(gap/|δN|) over |δN| > 0.
func Calibrate(records []models.StageResult) Result {
	triplets := Triplets(records)
	res := Result{Samples: len(triplets)}
	for _, t := range triplets {
		if t.Delta > 0 {
			res.CDelta = math.Max(res.CDelta, t.Gap/t.Delta)
		}
		if t.AbsDeltaN > 0 {
			res.CN = math.Max(res.CN, t.Gap/t.AbsDeltaN)
		}
	}
	return res
}
