package stages

import (
	"time"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

// CostSnapshot is the resource usage accumulated since a tracker started.
type CostSnapshot struct {
	WallSeconds float64
	CPUSeconds  float64
	MaxRSSKB    float64
}

// Map renders the snapshot as an aux payload.
func (s CostSnapshot) Map() map[string]any {
	return map[string]any{
		"wall_seconds": s.WallSeconds,
		"cpu_seconds":  s.CPUSeconds,
		"max_rss_kb":   s.MaxRSSKB,
	}
}

// CostTracker measures wall and process CPU time for one Observation.
// CPU time is process-wide, so concurrent workers share it.
type CostTracker struct {
	now       func() time.Time
	startWall time.Time
	startCPU  time.Duration
}

// StartCost begins tracking. A nil now uses the wall clock.
func StartCost(now func() time.Time) *CostTracker {
	if now == nil {
		now = time.Now
	}
	cpu, _ := processUsage()
	return &CostTracker{now: now, startWall: now(), startCPU: cpu}
}

// Snapshot returns the usage since StartCost together with peak resident memory.
func (c *CostTracker) Snapshot() CostSnapshot {
	cpu, rss := processUsage()
	return CostSnapshot{
		WallSeconds: c.now().Sub(c.startWall).Seconds(),
		CPUSeconds:  (cpu - c.startCPU).Seconds(),
		MaxRSSKB:    rss,
	}
}

// Cost emits the cost_reporting record. Its status is always PASS.
func (e *Evaluator) Cost(anchor string, tracker *CostTracker) models.StageResult {
	snap := tracker.Snapshot()
	return e.record(provenance.Entry{
		AnchorID: anchor,
		Stage:    StageCost,
		Status:   models.StatusPass,
		Metric:   "wall_seconds",
		Value:    provenance.Num(snap.WallSeconds),
		Aux:      snap.Map(),
		Cost:     provenance.Num(snap.WallSeconds),
	})
}
