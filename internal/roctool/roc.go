// Package roctool evaluates score quality outside the per-anchor pipeline: the
// external CSV-joined ROC record and the ROC of triage confidence.
package roctool

import (
	"github.com/miradorstack/atlas/internal/metrics"
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stages"
	"github.com/miradorstack/atlas/internal/stats"
)

const (
	// DefaultMinAUC is the pass threshold of the external record.
	DefaultMinAUC = 0.75
	// DefaultAnchor labels an external record when no anchor is given.
	DefaultAnchor = "UNKNOWN"

	noPairsNote   = "no_pairs: check labels/scores join"
	bootstrapNote = "bootstrap-ci(robust)"
)

// Join pairs every label with its score, in label order. Labels without a
// finite score are dropped.
func Join(labels []Label, scores map[string]float64) []stats.Pair {
	pairs := make([]stats.Pair, 0, len(labels))
	for _, l := range labels {
		s, ok := scores[l.ID]
		if !ok || !models.IsFinite(s) {
			continue
		}
		pairs = append(pairs, stats.Pair{Score: s, Positive: l.Positive})
	}
	return pairs
}

// ExternalOptions configures External.
type ExternalOptions struct {
	AnchorID  string
	MinAUC    float64
	Bootstrap stats.BootstrapOptions
}

// External builds the roc stage record for joined pairs. An empty join still
// yields a FAIL record so the run stays auditable.
func External(rec *provenance.Recorder, pairs []stats.Pair, opts ExternalOptions) models.StageResult {
	anchor := opts.AnchorID
	if anchor == "" {
		anchor = DefaultAnchor
	}
	minAUC := opts.MinAUC
	if minAUC <= 0 {
		minAUC = DefaultMinAUC
	}

	if len(pairs) == 0 {
		return rec.Record(provenance.Entry{
			AnchorID:  anchor,
			Stage:     stages.StageROC,
			Status:    models.StatusFail,
			Metric:    "external",
			Value:     provenance.Num(0.5),
			Threshold: provenance.Num(minAUC),
			Aux: map[string]any{
				"best_J":              -1.0,
				"threshold_at_best_J": nil,
				"ci95":                []float64{0, 1},
				"B":                   0,
				"n":                   0,
			},
			Notes: noPairsNote,
		})
	}

	auc := stats.AUC(pairs)
	youden := stats.BestYouden(pairs)
	ci := stats.BootstrapAUC(pairs, opts.Bootstrap)
	metrics.ObserveBootstrap(ci.Effective)

	status := models.StatusFail
	if auc >= minAUC {
		status = models.StatusPass
	}
	var bestThreshold any
	if youden.Found {
		bestThreshold = youden.Threshold
	}
	notes := bootstrapNote
	if !ci.Reliable {
		notes += " unreliable_ci"
	}
	pos := 0
	for _, p := range pairs {
		if p.Positive {
			pos++
		}
	}

	return rec.Record(provenance.Entry{
		AnchorID:  anchor,
		Stage:     stages.StageROC,
		Status:    status,
		Metric:    "external",
		Value:     provenance.Num(auc),
		Threshold: provenance.Num(minAUC),
		Aux: map[string]any{
			"best_J":              youden.J,
			"threshold_at_best_J": bestThreshold,
			"ci95":                []float64{ci.Lo, ci.Hi},
			"B":                   ci.Effective,
			"attempts":            ci.Attempts,
			"ci_reliable":         ci.Reliable,
			"roc_points":          pointMaps(stats.Curve(pairs)),
			"n":                   len(pairs),
			"positives":           pos,
		},
		Notes: notes,
	})
}

func pointMaps(points []stats.Point) []any {
	out := make([]any, len(points))
	for i, p := range points {
		out[i] = map[string]any{"fpr": p.FPR, "tpr": p.TPR, "threshold": p.Threshold}
	}
	return out
}
