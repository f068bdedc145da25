package models

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Float converts a JSON-like value to float64. Values that cannot be parsed yield NaN.
func Float(v any) float64 {
	switch n := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return f
			}
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

// IsFinite reports whether f is neither NaN nor infinite.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
