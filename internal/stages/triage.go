package stages

import (
	"math"
	"slices"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

// Class is the triage classification of an anchor.
type Class string

const (
	ClassTrueTear Class = "true_tear"
	ClassAnomaly  Class = "anomaly"
	ClassHardSpot Class = "hard_spot"
	ClassFake     Class = "fake"
)

// triageKey is (plateau confirmed, Δ and |δN| both PASS).
type triageKey struct {
	plateau bool
	pass    bool
}

var triageTable = map[triageKey]Class{
	{plateau: true, pass: false}:  ClassTrueTear,
	{plateau: false, pass: false}: ClassAnomaly,
	{plateau: true, pass: true}:   ClassHardSpot,
	{plateau: false, pass: true}:  ClassFake,
}

// Classify resolves the triage class from the plateau flag and the joint pass flag.
func Classify(plateau, pass bool) Class {
	return triageTable[triageKey{plateau: plateau, pass: pass}]
}

// Confidence is clamp(0.5*(Δ/τ_Δ + |δN|/τ_N) + 0.5*[plateau], 0, 1).
// Ratios that are undefined or non-finite count as zero.
func Confidence(delta, tauDelta, absDeltaN, tauN float64, plateau bool) float64 {
	score := 0.5 * (safeRatio(delta, tauDelta) + safeRatio(absDeltaN, tauN))
	if plateau {
		score += 0.5
	}
	return math.Max(0, math.Min(1, score))
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	r := num / den
	if !models.IsFinite(r) {
		return 0
	}
	return r
}

// Triage classifies the anchor from the chart-distance, modular-norm and plateau
// records. The gauge and operator records are reported, not classified. The
// record status is always PASS.
func (e *Evaluator) Triage(obs models.Observation, delta, nmod, htop, tg, kms models.StageResult) models.StageResult {
	plateau := htop.AuxBool("plateau_detected")
	deltaPass := delta.Status == models.StatusPass
	nPass := nmod.Status == models.StatusPass

	class := Classify(plateau, deltaPass && nPass)
	confidence := Confidence(
		delta.AuxFloat("delta_chart"), e.cfg.TauDelta,
		nmod.AuxFloat("abs_delta_N"), e.cfg.TauN,
		plateau,
	)

	aux := map[string]any{
		"class":          string(class),
		"confidence":     confidence,
		"plateau":        plateau,
		"delta_pass":     deltaPass,
		"n_pass":         nPass,
		"delta_status":   string(delta.Status),
		"nmod_status":    string(nmod.Status),
		"tg_ind_status":  string(tg.Status),
		"kms_status":     string(kms.Status),
		"H_lb":           htop.AuxFloat("H_lb"),
		"priority_index": slices.Index(e.cfg.Priority, string(class)),
	}

	return e.record(provenance.Entry{
		AnchorID: obs.Anchor(),
		Stage:    StageTriage,
		Status:   models.StatusPass,
		Metric:   "class",
		Aux:      aux,
	})
}
