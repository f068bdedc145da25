package models

import "math"

// Status is the verdict carried by every StageResult.
type Status string

const (
	StatusPass         Status = "PASS"
	StatusWarn         Status = "WARN"
	StatusFail         Status = "FAIL"
	StatusInconclusive Status = "INCONCLUSIVE"
)

// Rank orders statuses by severity: PASS < INCONCLUSIVE < WARN < FAIL.
func (s Status) Rank() int {
	switch s {
	case StatusPass:
		return 0
	case StatusInconclusive:
		return 1
	case StatusWarn:
		return 2
	case StatusFail:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is one of the four known statuses.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Worst returns the most severe status in the list, PASS when empty.
func Worst(statuses ...Status) Status {
	worst := StatusPass
	for _, s := range statuses {
		if s.Rank() > worst.Rank() {
			worst = s
		}
	}
	return worst
}

// StageResult is the atomic, append-only output record of the pipeline.
type StageResult struct {
	Timestamp        string         `json:"ts"`
	AnchorID         string         `json:"anchor_id"`
	Stage            string         `json:"stage"`
	Status           Status         `json:"status"`
	Metric           string         `json:"metric"`
	Value            *float64       `json:"value"`
	Threshold        *float64       `json:"threshold"`
	Aux              map[string]any `json:"aux"`
	Notes            string         `json:"notes"`
	Seed             int64          `json:"seed"`
	Commit           string         `json:"commit"`
	ThresholdsSHA256 string         `json:"thresholds_sha256"`
	SchemaVersion    string         `json:"schema_version"`
	Cost             *float64       `json:"cost,omitempty"`
}

// ValueOr returns the record value or def when the value is null.
func (r StageResult) ValueOr(def float64) float64 {
	if r.Value == nil {
		return def
	}
	return *r.Value
}

// AuxFloat reads a numeric aux entry. Missing or non-numeric entries yield NaN.
func (r StageResult) AuxFloat(key string) float64 {
	if r.Aux == nil {
		return math.NaN()
	}
	return Float(r.Aux[key])
}

// AuxBool reads a boolean aux entry, false when missing.
func (r StageResult) AuxBool(key string) bool {
	if r.Aux == nil {
		return false
	}
	b, _ := r.Aux[key].(bool)
	return b
}

// AuxMap reads a nested aux mapping.
func (r StageResult) AuxMap(key string) map[string]any {
	if r.Aux == nil {
		return nil
	}
	m, _ := r.Aux[key].(map[string]any)
	return m
}
