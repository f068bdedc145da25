package provenance

import "math"

// Sanitize deep-copies an aux payload replacing NaN and ±Inf with nil so the
// record always encodes as strict JSON.
func Sanitize(aux map[string]any) map[string]any {
	if aux == nil {
		return nil
	}
	out := make(map[string]any, len(aux))
	for k, v := range aux {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch x := v.(type) {
	case float64:
		return finiteOrNil(x)
	case float32:
		return finiteOrNil(float64(x))
	case *float64:
		if x == nil {
			return nil
		}
		return finiteOrNil(*x)
	case []float64:
		out := make([]any, len(x))
		for i, f := range x {
			out[i] = finiteOrNil(f)
		}
		return out
	case [][]float64:
		out := make([]any, len(x))
		for i, row := range x {
			out[i] = sanitizeValue(row)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = sanitizeValue(item)
		}
		return out
	case map[string]any:
		return Sanitize(x)
	case map[string]float64:
		out := make(map[string]any, len(x))
		for k, f := range x {
			out[k] = finiteOrNil(f)
		}
		return out
	default:
		return v
	}
}

func finiteOrNil(f float64) any {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
