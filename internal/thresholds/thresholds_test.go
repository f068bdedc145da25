package thresholds

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/miradorstack/atlas/internal/utils"
)

const profiledJSON = `{
  "default": {"tau_delta": 0.15, "kms": {"policy": "full"}},
  "profiles": {
    "strict": {"tau_delta": 0.05, "N_mod": {"extrapolation_guard": {"oscillation_max": 1}},
               "triage": {"priority": ["anomaly", "true_tear"]}}
  }
}`

func TestLoadResolvesProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thr.json")
	if err := os.WriteFile(path, []byte(profiledJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	strict, err := Load(path, "strict")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := strict.Float(0.15, "tau_delta"); got != 0.05 {
		t.Fatalf("expected strict tau_delta 0.05, got %v", got)
	}
	if got := strict.Int(3, "N_mod", "extrapolation_guard", "oscillation_max"); got != 1 {
		t.Fatalf("expected oscillation_max 1, got %d", got)
	}
	if got := strict.Strings(nil, "triage", "priority"); len(got) != 2 || got[0] != "anomaly" {
		t.Fatalf("unexpected priority %v", got)
	}

	fallback, err := Load(path, "missing")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := fallback.String("", "kms", "policy"); got != "full" {
		t.Fatalf("expected default profile fallback, got %q", got)
	}
	if strict.SHA256() != fallback.SHA256() || len(strict.SHA256()) != 64 {
		t.Fatalf("digest must cover the whole file: %q vs %q", strict.SHA256(), fallback.SHA256())
	}
}

func TestAccessorsDefaultOnAbsentKeys(t *testing.T) {
	thr, err := Parse([]byte("tau_n: 0.07\nkms:\n  commutator_max: oops\n"), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := thr.Float(0.05, "tau_n"); got != 0.07 {
		t.Fatalf("expected 0.07, got %v", got)
	}
	if got := thr.Float(0.05, "kms", "commutator_max"); got != 0.05 {
		t.Fatalf("expected default for unparsable value, got %v", got)
	}
	if got := thr.Float(1e-3, "temporal_gauge", "tg_independence", "frobenius_tol"); got != 1e-3 {
		t.Fatalf("expected default for missing path, got %v", got)
	}
	if got := thr.String("full", "tau_n", "nested"); got != "full" {
		t.Fatalf("expected default when walking through a scalar, got %q", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), "")
	if !errors.Is(err, utils.ErrMissingInput) {
		t.Fatalf("expected ErrMissingInput, got %v", err)
	}
}

func TestFromMapIsStable(t *testing.T) {
	a := FromMap(map[string]any{"tau_delta": 0.2})
	b := FromMap(map[string]any{"tau_delta": 0.2})
	if a.SHA256() != b.SHA256() {
		t.Fatalf("expected stable digest")
	}
	if FromMap(nil).Float(0.15, "tau_delta") != 0.15 {
		t.Fatalf("expected default on empty map")
	}
}
