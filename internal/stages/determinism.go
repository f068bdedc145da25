package stages

import (
	"runtime"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stats"
)

// Computation always runs on the CPU through gonum.
const (
	acceleratorBackend = "gonum"
	acceleratorDevice  = "cpu"
)

// Determinism records the generator family, seed, dtype and backend so a run's
// numerical reproducibility can be audited independently of its verdicts.
func (e *Evaluator) Determinism(anchor string, sampler *stats.Sampler) models.StageResult {
	run := e.rec.Run()
	seed := run.Seed
	family := stats.GeneratorFamily
	if sampler != nil {
		seed = sampler.Seed()
		family = sampler.Family()
	}
	return e.record(provenance.Entry{
		AnchorID: anchor,
		Stage:    StageDeterminism,
		Status:   models.StatusPass,
		Metric:   "backend",
		Aux: map[string]any{
			"rng":           family,
			"seed":          seed,
			"dtype":         stats.DType,
			"accelerator":   map[string]any{"backend": acceleratorBackend, "device": acceleratorDevice},
			"fma":           "default",
			"bit_generator": "math/rand/v2." + family,
			"run_id":        run.RunID,
			"goarch":        runtime.GOARCH,
			"num_cpu":       runtime.NumCPU(),
		},
	})
}
