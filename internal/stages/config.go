// Package stages implements the per-anchor stage evaluators. Evaluators never
// return errors: every anomaly in the input is encoded in the status and notes
// of the record they emit.
package stages

import (
	"slices"

	"github.com/miradorstack/atlas/internal/stats"
	"github.com/miradorstack/atlas/internal/thresholds"
)

// Stage names as they appear in the record stream.
const (
	StageDeterminism = "determinism"
	StageDelta       = "delta"
	StageNMod        = "nmod"
	StageHTop        = "htop"
	StageSG0         = "SG-0"
	StageSG1         = "SG-1"
	StageSG2         = "SG-2"
	StageSG3         = "SG-3"
	StageTGInd       = "tg_ind"
	StageKMS         = "kms"
	StageTriage      = "triage"
	StageCost        = "cost_reporting"
	StageROC         = "roc"
)

// Order is the emission order of the records produced for one Observation.
var Order = []string{
	StageDeterminism,
	StageDelta,
	StageNMod,
	StageHTop,
	StageSG0,
	StageSG1,
	StageSG2,
	StageSG3,
	StageTGInd,
	StageKMS,
	StageTriage,
	StageCost,
}

// PolicyGeometricOnly is the operator policy enforced when pmax exceeds its tolerance.
const PolicyGeometricOnly = "geometric_only"

// Config holds the tolerances read by the evaluators.
type Config struct {
	TauDelta float64
	TauN     float64

	OrderAgreementTol float64
	OscillationMax    int

	PlateauAlpha    float64
	SlopeTol        float64
	LowerBoundMin   float64
	CDelta          float64
	CN              float64
	RichardsonOrder int
	SafetyFactor    float64

	FrobeniusTol     float64
	OrthogonalityTol float64

	CommutatorMax float64
	PMaxTol       float64
	Policy        string

	Priority []string
}

// DefaultConfig returns the tolerances used when a thresholds key is absent.
func DefaultConfig() Config {
	return Config{
		TauDelta:          0.15,
		TauN:              0.05,
		OrderAgreementTol: 5e-3,
		OscillationMax:    3,
		PlateauAlpha:      0.10,
		SlopeTol:          5e-3,
		LowerBoundMin:     0,
		CDelta:            0.5,
		CN:                0.5,
		RichardsonOrder:   stats.DefaultRichardsonOrder,
		SafetyFactor:      stats.DefaultSafetyFactor,
		FrobeniusTol:      1e-3,
		OrthogonalityTol:  1e-6,
		CommutatorMax:     0.05,
		PMaxTol:           0.10,
		Policy:            "full",
		Priority:          []string{string(ClassTrueTear), string(ClassAnomaly), string(ClassHardSpot), string(ClassFake)},
	}
}

// ConfigFrom reads every tolerance from t, falling back to DefaultConfig per key.
func ConfigFrom(t thresholds.Thresholds) Config {
	d := DefaultConfig()
	return Config{
		TauDelta:          t.Float(d.TauDelta, "tau_delta"),
		TauN:              t.Float(d.TauN, "tau_n"),
		OrderAgreementTol: t.Float(d.OrderAgreementTol, "N_mod", "extrapolation_guard", "order_agreement_tol"),
		OscillationMax:    t.Int(d.OscillationMax, "N_mod", "extrapolation_guard", "oscillation_max"),
		PlateauAlpha:      t.Float(d.PlateauAlpha, "H_top", "alpha"),
		SlopeTol:          t.Float(d.SlopeTol, "H_top", "slope_tol"),
		LowerBoundMin:     t.Float(d.LowerBoundMin, "H_top", "lower_bound_min"),
		CDelta:            t.Float(d.CDelta, "H_top", "error_budget", "c_delta"),
		CN:                t.Float(d.CN, "H_top", "error_budget", "c_n"),
		RichardsonOrder:   t.Int(d.RichardsonOrder, "H_top", "richardson", "order"),
		SafetyFactor:      t.Float(d.SafetyFactor, "H_top", "richardson", "safety_factor"),
		FrobeniusTol:      t.Float(d.FrobeniusTol, "temporal_gauge", "tg_independence", "frobenius_tol"),
		OrthogonalityTol:  t.Float(d.OrthogonalityTol, "temporal_gauge", "tg_independence", "orthogonality_tol"),
		CommutatorMax:     t.Float(d.CommutatorMax, "kms", "commutator_max"),
		PMaxTol:           t.Float(d.PMaxTol, "kms", "pmax_tol"),
		Policy:            t.String(d.Policy, "kms", "policy"),
		Priority:          slices.Clone(t.Strings(d.Priority, "triage", "priority")),
	}
}
