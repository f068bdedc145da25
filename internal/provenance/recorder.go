package provenance

import (
	"math"
	"sync"
	"time"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/utils"
)

// Clock hands out non-decreasing UTC timestamps. It is safe for concurrent use.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

// NewClock wraps now (time.Now when nil).
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Now returns the current time, never earlier than a previously returned value.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if t.Before(c.last) {
		t = c.last
	}
	c.last = t
	return t
}

// Entry is the stage-specific part of a StageResult.
type Entry struct {
	AnchorID  string
	Stage     string
	Status    models.Status
	Metric    string
	Value     *float64
	Threshold *float64
	Aux       map[string]any
	Notes     string
	Cost      *float64
}

// Recorder builds StageResults stamped with a RunContext.
type Recorder struct {
	run   RunContext
	clock *Clock
}

// NewRecorder constructs a Recorder. A nil clock uses the wall clock.
func NewRecorder(run RunContext, clock *Clock) *Recorder {
	if clock == nil {
		clock = NewClock(nil)
	}
	return &Recorder{run: run, clock: clock}
}

// Run returns the RunContext attached to every record.
func (r *Recorder) Run() RunContext {
	return r.run
}

// Record builds a StageResult. Non-finite numbers, including those nested in aux, become null.
func (r *Recorder) Record(e Entry) models.StageResult {
	anchor := e.AnchorID
	if anchor == "" {
		anchor = models.UnknownAnchor
	}
	aux := Sanitize(e.Aux)
	if aux == nil {
		aux = map[string]any{}
	}
	return models.StageResult{
		Timestamp:        utils.FormatTimestamp(r.clock.Now()),
		AnchorID:         anchor,
		Stage:            e.Stage,
		Status:           e.Status,
		Metric:           e.Metric,
		Value:            finitePtr(e.Value),
		Threshold:        finitePtr(e.Threshold),
		Aux:              aux,
		Notes:            e.Notes,
		Seed:             r.run.Seed,
		Commit:           r.run.Commit,
		ThresholdsSHA256: r.run.ThresholdsSHA256,
		SchemaVersion:    r.run.SchemaVersion,
		Cost:             finitePtr(e.Cost),
	}
}

// Num returns a pointer to f, or nil when f is not finite.
func Num(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func finitePtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return Num(*p)
}

// Stamp refreshes the timestamp of r from the shared clock. Writers call it at
// emission so the stream stays ordered when records were built concurrently.
func (r *Recorder) Stamp(rec *models.StageResult) {
	rec.Timestamp = utils.FormatTimestamp(r.clock.Now())
}
