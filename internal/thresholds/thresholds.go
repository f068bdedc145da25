// Package thresholds exposes the stage tolerance document as an opaque, read-only
// mapping with defaulted accessors.
package thresholds

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/utils"
)

// DefaultProfile is the profile resolved when none is requested.
const DefaultProfile = "default"

// Thresholds is the resolved profile of a thresholds document.
type Thresholds struct {
	values map[string]any
	sha256 string
}

// Load reads a JSON or YAML thresholds file, resolves profile and hashes the raw bytes.
func Load(path, profile string) (Thresholds, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Thresholds{}, utils.MissingInput("load thresholds", path, err)
		}
		return Thresholds{}, utils.NewAppError("load thresholds", "read "+path, err)
	}
	return Parse(data, profile)
}

// Parse decodes a thresholds document held in memory.
func Parse(data []byte, profile string) (Thresholds, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Thresholds{}, utils.NewAppError("parse thresholds", "decode document", err)
	}
	sum := sha256.Sum256(data)
	return Thresholds{
		values: resolveProfile(raw, profile),
		sha256: hex.EncodeToString(sum[:]),
	}, nil
}

// FromMap wraps an in-memory mapping. The digest is computed over its YAML encoding.
func FromMap(values map[string]any) Thresholds {
	if values == nil {
		values = map[string]any{}
	}
	encoded, err := yaml.Marshal(values)
	if err != nil {
		encoded = []byte(fmt.Sprint(values))
	}
	sum := sha256.Sum256(encoded)
	return Thresholds{values: values, sha256: hex.EncodeToString(sum[:])}
}

func resolveProfile(raw map[string]any, profile string) map[string]any {
	if profile == "" {
		profile = DefaultProfile
	}
	if profiles, ok := raw["profiles"].(map[string]any); ok {
		if selected, ok := profiles[profile].(map[string]any); ok && len(selected) > 0 {
			return selected
		}
		if def, ok := raw["default"].(map[string]any); ok {
			return def
		}
		return map[string]any{}
	}
	if def, ok := raw["default"].(map[string]any); ok {
		return def
	}
	if raw == nil {
		return map[string]any{}
	}
	return raw
}

// SHA256 returns the hex digest of the source document.
func (t Thresholds) SHA256() string {
	return t.sha256
}

// Lookup walks a nested key path and returns the raw value.
func (t Thresholds) Lookup(path ...string) (any, bool) {
	var cur any = t.values
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, cur != nil
}

// Float returns the numeric value at path, or def when absent or unparsable.
func (t Thresholds) Float(def float64, path ...string) float64 {
	v, ok := t.Lookup(path...)
	if !ok {
		return def
	}
	f := models.Float(v)
	if math.IsNaN(f) {
		return def
	}
	return f
}

// Int returns the integer value at path, or def when absent or unparsable.
func (t Thresholds) Int(def int, path ...string) int {
	f := t.Float(math.NaN(), path...)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return int(f)
}

// String returns the string value at path, or def.
func (t Thresholds) String(def string, path ...string) string {
	v, ok := t.Lookup(path...)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// Strings returns the string list at path, or def.
func (t Thresholds) Strings(def []string, path ...string) []string {
	v, ok := t.Lookup(path...)
	if !ok {
		return def
	}
	list, ok := v.([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
