package stages

import (
	"log/slog"
	"strings"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

// Evaluator runs the stage checks for one pipeline run. It holds only
// read-only state and is safe for concurrent use across Observations.
type Evaluator struct {
	cfg    Config
	rec    *provenance.Recorder
	logger *slog.Logger
}

// NewEvaluator constructs an Evaluator. A nil recorder stamps records with an
// empty RunContext; a nil logger uses slog.Default.
func NewEvaluator(cfg Config, rec *provenance.Recorder, logger *slog.Logger) *Evaluator {
	if rec == nil {
		rec = provenance.NewRecorder(provenance.RunContext{SchemaVersion: provenance.SchemaVersion}, nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{cfg: cfg, rec: rec, logger: logger}
}

// Config returns the tolerances in use.
func (e *Evaluator) Config() Config {
	return e.cfg
}

// Recorder returns the record builder shared by every stage.
func (e *Evaluator) Recorder() *provenance.Recorder {
	return e.rec
}

func (e *Evaluator) debug(anchor, stage string, status models.Status, notes string) {
	if status == models.StatusPass {
		return
	}
	e.logger.Debug("stage verdict",
		slog.String("anchor_id", anchor),
		slog.String("stage", stage),
		slog.String("status", string(status)),
		slog.String("notes", notes),
	)
}

func (e *Evaluator) record(entry provenance.Entry) models.StageResult {
	e.debug(entry.AnchorID, entry.Stage, entry.Status, entry.Notes)
	return e.rec.Record(entry)
}

// notes accumulates explanations in the order conditions trigger.
type notes []string

func (n *notes) add(msg string) {
	*n = append(*n, msg)
}

func (n notes) String() string {
	return strings.Join(n, " ")
}
