package stages

import (
	"slices"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

// sanityKeys are the primary observables gate 0 requires.
var sanityKeys = []string{deltaKey, deltaNKey, hObsKey}

// ScopeGates runs the four admissibility gates in order: sanity, delta/N,
// plateau and readiness. Readiness is the worst of the first three.
func (e *Evaluator) ScopeGates(obs models.Observation, delta, nmod, htop models.StageResult) [4]models.StageResult {
	anchor := obs.Anchor()

	missing := make([]string, 0, len(sanityKeys))
	finite := true
	for _, key := range sanityKeys {
		if !obs.Has(key) {
			missing = append(missing, key)
			continue
		}
		if _, ok := obs.FiniteScalar(key); !ok {
			finite = false
		}
	}
	slices.Sort(missing)
	s0, n0 := sanityGate(len(missing) == 0, finite)
	g0 := e.record(provenance.Entry{
		AnchorID: anchor,
		Stage:    StageSG0,
		Status:   s0,
		Metric:   "sanity",
		Aux:      map[string]any{"missing": missing, "finite": finite},
		Notes:    n0,
	})

	s1, n1 := deltaNGate(delta.Status, nmod.Status)
	g1 := e.record(provenance.Entry{
		AnchorID: anchor,
		Stage:    StageSG1,
		Status:   s1,
		Metric:   "delta_n_gate",
		Aux: map[string]any{
			"delta_status": string(delta.Status),
			"nmod_status":  string(nmod.Status),
			"guard_pass":   nmod.AuxBool("guard_pass"),
		},
		Notes: n1,
	})

	plateau := htop.AuxBool("plateau_detected")
	hLB := htop.AuxFloat("H_lb")
	s2, n2 := plateauGate(plateau, models.IsFinite(hLB))
	g2 := e.record(provenance.Entry{
		AnchorID: anchor,
		Stage:    StageSG2,
		Status:   s2,
		Metric:   "plateau_gate",
		Aux:      map[string]any{"plateau": plateau, "H_lb": hLB},
		Notes:    n2,
	})

	s3, n3 := readinessGate(s0, s1, s2)
	g3 := e.record(provenance.Entry{
		AnchorID: anchor,
		Stage:    StageSG3,
		Status:   s3,
		Metric:   "readiness",
		Aux:      map[string]any{"inputs": []string{string(s0), string(s1), string(s2)}},
		Notes:    n3,
	})

	return [4]models.StageResult{g0, g1, g2, g3}
}

func sanityGate(present, finite bool) (models.Status, string) {
	switch {
	case present && finite:
		return models.StatusPass, ""
	default:
		return models.StatusFail, "Missing or non-finite observables."
	}
}

func deltaNGate(delta, nmod models.Status) (models.Status, string) {
	switch {
	case delta == models.StatusFail || nmod == models.StatusFail:
		return models.StatusFail, "Core metric failure."
	case delta != models.StatusPass || nmod != models.StatusPass:
		return models.StatusWarn, "Delta/N warnings present."
	default:
		return models.StatusPass, ""
	}
}

func plateauGate(plateau, boundFinite bool) (models.Status, string) {
	switch {
	case plateau && boundFinite:
		return models.StatusPass, ""
	case !plateau && boundFinite:
		return models.StatusWarn, "Plateau not confirmed."
	case plateau && !boundFinite:
		return models.StatusFail, "H lower bound invalid."
	default:
		return models.StatusFail, "Plateau not confirmed. H lower bound invalid."
	}
}

func readinessGate(gates ...models.Status) (models.Status, string) {
	switch models.Worst(gates...) {
	case models.StatusFail:
		return models.StatusFail, "Upstream gate failure."
	case models.StatusWarn, models.StatusInconclusive:
		return models.StatusWarn, "Propagation of upstream warnings."
	case models.StatusPass:
		return models.StatusPass, ""
	default:
		return models.StatusFail, "Unknown upstream status."
	}
}
