package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/atlas/internal/calibrate"
	"github.com/miradorstack/atlas/internal/jsonl"
	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/roctool"
	"github.com/miradorstack/atlas/internal/utils"
)

const thresholdsJSON = `{"tau_delta": 0.15, "tau_n": 0.05, "roc": {"min_auc": 0.6}}`

const observationsNDJSON = `{"id":"a1","observables":{"Delta":0.2,"deltaN":0.01,"deltaN_series":[0.012,0.011,0.010],"H_obs":2.0,"H_series":[2,2,2,2,2]}}
{"id":"a2","observables":{"Delta":0.05,"deltaN":0.01,"H_obs":1.0,"H_series":[1.0,1.1,1.2,1.3,1.4],"TG_matrix":[[1,0],[0,1]]}}
not json
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ATLAS_CONFIG", "")
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestRunCalibrateAndTriage(t *testing.T) {
	dir := t.TempDir()
	thr := writeFile(t, dir, "thresholds.json", thresholdsJSON)
	in := writeFile(t, dir, "obs.ndjson", observationsNDJSON)
	out := filepath.Join(dir, "out", "results.ndjson")
	db := filepath.Join(dir, "audit.db")
	prom := filepath.Join(dir, "atlas.prom")

	if _, err := execute(t, "run", "--input", in, "--output", out, "--thresholds", thr,
		"--workers", "2", "--sqlite", db, "--metrics-textfile", prom); err != nil {
		t.Fatalf("run: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	records, err := jsonl.ReadAll[models.StageResult](f)
	f.Close()
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if len(records) != 39 {
		t.Fatalf("expected 39 records for three observations, got %d", len(records))
	}
	if records[0].AnchorID != "a1" || records[13].AnchorID != "a2" || records[26].AnchorID != models.UnknownAnchor {
		t.Fatalf("unexpected anchor order: %s %s %s", records[0].AnchorID, records[13].AnchorID, records[26].AnchorID)
	}
	if _, err := os.Stat(prom); err != nil {
		t.Fatalf("expected metrics textfile: %v", err)
	}

	stdout, err := execute(t, "calibrate", "--sqlite", db)
	if err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	var res calibrate.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode calibration %q: %v", stdout, err)
	}
	if res.Samples != 2 {
		t.Fatalf("expected 2 calibration samples, got %d", res.Samples)
	}

	stdout, err = execute(t, "roc", "triage", "--input", out, "--positives", "true_tear,anomaly")
	if err != nil {
		t.Fatalf("roc triage: %v", err)
	}
	var curve roctool.TriageCurve
	if err := json.Unmarshal([]byte(stdout), &curve); err != nil {
		t.Fatalf("decode curve %q: %v", stdout, err)
	}
	if curve.N != 3 {
		t.Fatalf("expected 3 triage pairs, got %d", curve.N)
	}
}

func TestRunMissingInputs(t *testing.T) {
	dir := t.TempDir()
	thr := writeFile(t, dir, "thresholds.json", thresholdsJSON)

	_, err := execute(t, "run", "--input", filepath.Join(dir, "absent.ndjson"), "--output", filepath.Join(dir, "o.ndjson"), "--thresholds", thr)
	if !errors.Is(err, utils.ErrMissingInput) {
		t.Fatalf("expected missing input for observations, got %v", err)
	}

	in := writeFile(t, dir, "obs.ndjson", observationsNDJSON)
	_, err = execute(t, "run", "--input", in, "--output", filepath.Join(dir, "o.ndjson"), "--thresholds", filepath.Join(dir, "nope.json"))
	if !errors.Is(err, utils.ErrMissingInput) {
		t.Fatalf("expected missing input for thresholds, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "o.ndjson")); statErr == nil {
		t.Fatalf("expected no output before thresholds load")
	}
}

func TestROCExternalAppendsRecord(t *testing.T) {
	dir := t.TempDir()
	labels := writeFile(t, dir, "labels.csv", "id,label\na,1\nb,0\nc,1\nd,0\n")
	scores := writeFile(t, dir, "scores.csv", "id,score\na,0.9\nb,0.1\nc,0.8\nd,0.3\n")
	thr := writeFile(t, dir, "thresholds.json", thresholdsJSON)
	out := filepath.Join(dir, "roc.ndjson")

	for range 2 {
		if _, err := execute(t, "roc", "external", "--labels", labels, "--scores", scores,
			"--thresholds", thr, "--bootstraps", "100", "--output", out, "--anchor-id", "eval-1"); err != nil {
			t.Fatalf("roc external: %v", err)
		}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected append semantics with 2 lines, got %d", len(lines))
	}
	var rec models.StageResult
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if rec.Stage != "roc" || rec.Status != models.StatusPass || rec.AnchorID != "eval-1" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Threshold == nil || *rec.Threshold != 0.6 {
		t.Fatalf("expected min_auc 0.6 from thresholds, got %v", rec.Threshold)
	}
}

func TestVerifyGauge(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "obs.ndjson", `{"id":"g1","observables":{"TG_matrix":[[1,0],[0,1]]}}
{"id":"g2","observables":{}}
`)
	stdout, err := execute(t, "verify-gauge", "--input", in)
	if err != nil {
		t.Fatalf("verify-gauge: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 records, got %d: %q", len(lines), stdout)
	}
	var first, second models.StageResult
	_ = json.Unmarshal([]byte(lines[0]), &first)
	_ = json.Unmarshal([]byte(lines[1]), &second)
	if first.Stage != "tg_ind" || first.Status != models.StatusPass {
		t.Fatalf("unexpected first record %+v", first)
	}
	if second.Status != models.StatusInconclusive {
		t.Fatalf("expected inconclusive without a matrix, got %s", second.Status)
	}

	bad := writeFile(t, dir, "bad.ndjson", "{\"id\":\"x\"}\n")
	if _, err := execute(t, "verify-gauge", "--input", bad); err == nil {
		t.Fatalf("expected schema failure for observation without observables")
	}
}

func TestROCExternalBootstrapsFollowConfig(t *testing.T) {
	t.Setenv("ATLAS_BOOTSTRAP_RESAMPLES", "40")
	dir := t.TempDir()
	labels := writeFile(t, dir, "labels.csv", "a,1\nb,0\nc,1\nd,0\ne,1\nf,0\n")
	scores := writeFile(t, dir, "scores.csv", "a,0.9\nb,0.1\nc,0.8\nd,nan\ne,0.7\nf,0.2\n")
	out := filepath.Join(dir, "roc.ndjson")

	if _, err := execute(t, "roc", "external", "--labels", labels, "--scores", scores, "--output", out); err != nil {
		t.Fatalf("roc external: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var rec models.StageResult
	if err := json.Unmarshal(bytes.TrimSpace(data), &rec); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if b := rec.AuxFloat("B"); b != 40 {
		t.Fatalf("expected 40 resamples from config, got %v", b)
	}
	if n := rec.AuxFloat("n"); n != 5 {
		t.Fatalf("expected the nan score row to be dropped, got n=%v", n)
	}
}
