package roctool

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
	"github.com/miradorstack/atlas/internal/schema"
	"github.com/miradorstack/atlas/internal/stats"
)

const labelsCSV = `id,label
a,1
b,0
c,1
short
d,maybe
e,0
`

const scoresCSV = `id,score
a,0.9
b,0.2
c,0.4
c,0.8
e,0.3
x,0.5
`

func recorder() *provenance.Recorder {
	return provenance.NewRecorder(provenance.NewRunContext(42, "abc123", "sha"), nil)
}

func TestReadersSkipHeadersAndMalformedRows(t *testing.T) {
	labels, skipped, err := ReadLabels(strings.NewReader(labelsCSV))
	require.NoError(t, err)
	assert.Equal(t, []Label{{"a", true}, {"b", false}, {"c", true}, {"e", false}}, labels)
	assert.Equal(t, 2, skipped)

	scores, skipped, err := ReadScores(strings.NewReader(scoresCSV))
	require.NoError(t, err)
	assert.Len(t, scores, 5)
	assert.Equal(t, 0, skipped)
	assert.Equal(t, 0.8, scores["c"])
}

func TestJoinFollowsLabelOrder(t *testing.T) {
	labels, _, _ := ReadLabels(strings.NewReader(labelsCSV))
	scores, _, _ := ReadScores(strings.NewReader(scoresCSV))

	pairs := Join(labels, scores)
	assert.Equal(t, []stats.Pair{
		{Score: 0.9, Positive: true},
		{Score: 0.2, Positive: false},
		{Score: 0.8, Positive: true},
		{Score: 0.3, Positive: false},
	}, pairs)
}

func TestNonFiniteScoresAreDropped(t *testing.T) {
	scores, skipped, err := ReadScores(strings.NewReader("a,0.9\nb,nan\nc,0.4\nd,+Inf\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, map[string]float64{"a": 0.9, "c": 0.4}, scores)

	labels := []Label{{"a", true}, {"b", false}, {"c", true}, {"e", false}}
	pairs := Join(labels, map[string]float64{"a": 0.9, "b": math.NaN(), "c": 0.4, "e": 0.1})
	assert.Equal(t, []stats.Pair{
		{Score: 0.9, Positive: true},
		{Score: 0.4, Positive: true},
		{Score: 0.1, Positive: false},
	}, pairs)

	done := make(chan models.StageResult, 1)
	go func() {
		done <- External(recorder(), pairs, ExternalOptions{Bootstrap: stats.BootstrapOptions{Resamples: 50}})
	}()
	select {
	case rec := <-done:
		assert.Equal(t, models.StatusPass, rec.Status)
	case <-time.After(5 * time.Second):
		t.Fatal("External did not return")
	}
}

func TestExternalSeparableScoresPass(t *testing.T) {
	pairs := []stats.Pair{
		{Score: 0.9, Positive: true},
		{Score: 0.8, Positive: true},
		{Score: 0.7, Positive: true},
		{Score: 0.3, Positive: false},
		{Score: 0.2, Positive: false},
		{Score: 0.1, Positive: false},
	}
	rec := External(recorder(), pairs, ExternalOptions{
		AnchorID:  "eval",
		Bootstrap: stats.BootstrapOptions{Resamples: 200, Seed: 42},
	})

	assert.Equal(t, "roc", rec.Stage)
	assert.Equal(t, models.StatusPass, rec.Status)
	require.NotNil(t, rec.Value)
	assert.InDelta(t, 1.0, *rec.Value, 1e-12)
	assert.InDelta(t, 0.75, *rec.Threshold, 1e-12)
	assert.InDelta(t, 1.0, rec.AuxFloat("best_J"), 1e-12)
	assert.InDelta(t, 0.7, rec.AuxFloat("threshold_at_best_J"), 1e-12)
	assert.Equal(t, 200, rec.Aux["B"])
	assert.Equal(t, "bootstrap-ci(robust)", rec.Notes)

	ci := rec.Aux["ci95"].([]any)
	assert.LessOrEqual(t, ci[0].(float64), ci[1].(float64))

	v, err := schema.New()
	require.NoError(t, err)
	assert.NoError(t, v.StageResult(rec))
}

func TestExternalEmptyJoinFails(t *testing.T) {
	rec := External(recorder(), nil, ExternalOptions{MinAUC: 0.6})

	assert.Equal(t, models.StatusFail, rec.Status)
	assert.Equal(t, DefaultAnchor, rec.AnchorID)
	assert.InDelta(t, 0.5, *rec.Value, 1e-12)
	assert.InDelta(t, 0.6, *rec.Threshold, 1e-12)
	assert.Equal(t, -1.0, rec.AuxFloat("best_J"))
	assert.Equal(t, "no_pairs: check labels/scores join", rec.Notes)
}

func TestExternalBelowMinAUCFails(t *testing.T) {
	pairs := []stats.Pair{
		{Score: 0.1, Positive: true},
		{Score: 0.9, Positive: false},
		{Score: 0.2, Positive: true},
		{Score: 0.8, Positive: false},
	}
	rec := External(recorder(), pairs, ExternalOptions{Bootstrap: stats.BootstrapOptions{Resamples: 50}})
	assert.Equal(t, models.StatusFail, rec.Status)
	assert.InDelta(t, 0.0, *rec.Value, 1e-12)
}

func triageRecord(class string, confidence any) models.StageResult {
	return models.StageResult{Stage: "triage", Aux: map[string]any{"class": class, "confidence": confidence}}
}

func TestTriageROC(t *testing.T) {
	records := []models.StageResult{
		triageRecord("true_tear", 0.9),
		triageRecord("anomaly", 0.4),
		triageRecord("true_tear", 0.7),
		triageRecord("fake", 0.1),
		triageRecord("fake", nil),
		{Stage: "delta", Aux: map[string]any{"confidence": 1.0}},
	}

	curve := TriageROC(records, nil)
	assert.Equal(t, 4, curve.N)
	assert.Equal(t, 2, curve.Positives)
	assert.InDelta(t, 1.0, curve.AUC, 1e-12)
	assert.InDelta(t, 1.0, curve.BestJ, 1e-12)
	require.NotNil(t, curve.Threshold)
	assert.InDelta(t, 0.7, *curve.Threshold, 1e-12)
	assert.Nil(t, curve.Thresholds[0])
	assert.Equal(t, 0.0, curve.FPR[0])
	assert.Equal(t, 1.0, curve.TPR[len(curve.TPR)-1])

	widened := TriageROC(records, []string{"true_tear", "anomaly"})
	assert.Equal(t, 3, widened.Positives)
}

func TestTriageROCWithoutRecords(t *testing.T) {
	curve := TriageROC(nil, nil)
	assert.Equal(t, 0.5, curve.AUC)
	assert.Equal(t, []float64{0, 1}, curve.FPR)
	assert.Nil(t, curve.Threshold)
}
