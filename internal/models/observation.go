package models

import "math"

// UnknownAnchor is used when an Observation carries no identifier.
const UnknownAnchor = "unknown"

// Observation is one input record: an anchor with its observables.
type Observation struct {
	ID          string         `json:"id,omitempty"`
	AnchorID    string         `json:"anchor_id,omitempty"`
	Observables map[string]any `json:"observables"`
	GroundTruth map[string]any `json:"ground_truth,omitempty"`
}

// Anchor returns the anchor identifier, preferring "id" over "anchor_id".
func (o Observation) Anchor() string {
	switch {
	case o.ID != "":
		return o.ID
	case o.AnchorID != "":
		return o.AnchorID
	default:
		return UnknownAnchor
	}
}

// Has reports whether the observable key is present, even if null.
func (o Observation) Has(key string) bool {
	_, ok := o.Observables[key]
	return ok
}

// Get returns the raw observable value.
func (o Observation) Get(key string) any {
	if o.Observables == nil {
		return nil
	}
	return o.Observables[key]
}

// Scalar parses an observable as float64. Absent or unparsable values yield NaN.
func (o Observation) Scalar(key string) float64 {
	return Float(o.Get(key))
}

// FiniteScalar parses an observable and reports whether it is present and finite.
func (o Observation) FiniteScalar(key string) (float64, bool) {
	v := o.Scalar(key)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v, false
	}
	return v, true
}

// Series returns the first non-empty list found under the given keys, in order.
// Entries that do not parse become NaN.
func (o Observation) Series(keys ...string) ([]float64, string) {
	for _, key := range keys {
		list, ok := o.Get(key).([]any)
		if !ok || len(list) == 0 {
			continue
		}
		out := make([]float64, len(list))
		for i, item := range list {
			out[i] = Float(item)
		}
		return out, key
	}
	return nil, ""
}

// First returns the first value under keys that is neither nil nor an empty list.
func (o Observation) First(keys ...string) (any, string) {
	for _, key := range keys {
		v := o.Get(key)
		if v == nil {
			continue
		}
		if list, ok := v.([]any); ok && len(list) == 0 {
			continue
		}
		return v, key
	}
	return nil, ""
}

// GroundTruthBool reads a boolean ground-truth hint.
func (o Observation) GroundTruthBool(key string) (bool, bool) {
	if o.GroundTruth == nil {
		return false, false
	}
	v, ok := o.GroundTruth[key]
	if !ok || v == nil {
		return false, false
	}
	switch b := v.(type) {
	case bool:
		return b, true
	default:
		f := Float(v)
		if math.IsNaN(f) {
			return false, false
		}
		return f != 0, true
	}
}
