package stages

import (
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

var (
	commutatorKey = "commutator_bound"
	pmaxKey       = "pmax"
	spectralKey   = "spectral_radius"
)

// Operator checks the commutator bound and enforces the geometric-only policy
// when pmax exceeds its tolerance. Both conditions are evaluated and their
// notes accumulate.
func (e *Evaluator) Operator(obs models.Observation) models.StageResult {
	commutator, commOK := obs.FiniteScalar(commutatorKey)
	pmax, pmaxOK := obs.FiniteScalar(pmaxKey)

	status := models.StatusPass
	var n notes
	switch {
	case !commOK:
		status = models.StatusInconclusive
		n.add("Commutator bound unavailable.")
	case commutator > e.cfg.CommutatorMax:
		status = models.StatusWarn
		n.add("Commutator exceeds bound.")
	}

	declared := e.cfg.Policy
	policy := declared
	if pmaxOK && pmax > e.cfg.PMaxTol {
		status = models.StatusWarn
		policy = PolicyGeometricOnly
		n.add("pmax above tolerance.")
		if declared != PolicyGeometricOnly {
			n.add("Policy downgraded from " + declared + " to " + PolicyGeometricOnly + ".")
		}
	}

	aux := map[string]any{
		"commutator_bound": nil,
		"commutator_max":   e.cfg.CommutatorMax,
		"pmax":             nil,
		"pmax_tol":         e.cfg.PMaxTol,
		"policy":           policy,
		"declared_policy":  declared,
		"spectral_radius":  obs.Get(spectralKey),
	}
	var value *float64
	if commOK {
		aux["commutator_bound"] = commutator
		value = provenance.Num(commutator)
	}
	if pmaxOK {
		aux["pmax"] = pmax
	}

	return e.record(provenance.Entry{
		AnchorID:  obs.Anchor(),
		Stage:     StageKMS,
		Status:    status,
		Metric:    "compatibility",
		Value:     value,
		Threshold: provenance.Num(e.cfg.CommutatorMax),
		Aux:       aux,
		Notes:     n.String(),
	})
}
