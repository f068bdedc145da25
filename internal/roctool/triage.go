package roctool

import (
	"slices"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/stages"
	"github.com/miradorstack/atlas/internal/stats"
)

// TriageCurve is the ROC of triage confidence against a set of positive classes.
// Non-finite thresholds (the curve's end points) are null.
type TriageCurve struct {
	FPR        []float64  `json:"fpr"`
	TPR        []float64  `json:"tpr"`
	Thresholds []*float64 `json:"thresholds"`
	AUC        float64    `json:"auc"`
	BestJ      float64    `json:"best_J"`
	Threshold  *float64   `json:"threshold"`
	N          int        `json:"n"`
	Positives  int        `json:"positives"`
}

// TriagePairs scores every triage record by its confidence. A record is
// positive when its class is one of positives. Records without a finite
// confidence are skipped.
func TriagePairs(records []models.StageResult, positives []string) []stats.Pair {
	if len(positives) == 0 {
		positives = []string{string(stages.ClassTrueTear)}
	}
	var pairs []stats.Pair
	for _, r := range records {
		if r.Stage != stages.StageTriage {
			continue
		}
		score := r.AuxFloat("confidence")
		if !models.IsFinite(score) {
			continue
		}
		class, _ := r.Aux["class"].(string)
		pairs = append(pairs, stats.Pair{Score: score, Positive: slices.Contains(positives, class)})
	}
	return pairs
}

// TriageROC computes the curve, rank AUC and best Youden threshold of the
// triage records.
func TriageROC(records []models.StageResult, positives []string) TriageCurve {
	pairs := TriagePairs(records, positives)
	points := stats.Curve(pairs)
	out := TriageCurve{
		FPR:        make([]float64, len(points)),
		TPR:        make([]float64, len(points)),
		Thresholds: make([]*float64, len(points)),
		AUC:        stats.AUC(pairs),
		N:          len(pairs),
	}
	for i, p := range points {
		out.FPR[i] = p.FPR
		out.TPR[i] = p.TPR
		out.Thresholds[i] = provenance.Num(p.Threshold)
	}
	for _, p := range pairs {
		if p.Positive {
			out.Positives++
		}
	}
	youden := stats.BestYouden(pairs)
	out.BestJ = youden.J
	if youden.Found {
		out.Threshold = provenance.Num(youden.Threshold)
	}
	return out
}
