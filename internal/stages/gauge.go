package stages

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/miradorstack/atlas/internal/models"
	"github.com/miradorstack/atlas/internal/provenance"
)

var (
	gaugeMatrixKeys = []string{"TG_matrix", "temporal_gauge_matrix", "temporal_gauge"}
	gaugeDiffKey    = "TG_finite_diff"

	errNotMatrix  = errors.New("not a rank-2 matrix")
	errRagged     = errors.New("rows differ in length")
	errNonNumeric = errors.New("non-numeric or non-finite entry")
)

// GaugeResiduals are the Frobenius distances of MᵀM and MMᵀ from the identity.
type GaugeResiduals struct {
	Left  float64
	Right float64
}

// Gauge checks that the temporal-gauge transform is orthogonal within tolerance.
func (e *Evaluator) Gauge(obs models.Observation) models.StageResult {
	raw, source := obs.First(gaugeMatrixKeys...)

	aux := map[string]any{
		"frobenius_resid":     nil,
		"orthogonality_resid": nil,
		"frobenius_tol":       e.cfg.FrobeniusTol,
		"orthogonality_tol":   e.cfg.OrthogonalityTol,
	}

	status := models.StatusInconclusive
	note := "Temporal gauge matrix missing."
	if raw != nil {
		aux["matrix_source"] = source
		m, err := ParseMatrix(raw)
		if err != nil {
			status = models.StatusFail
			note = "Temporal gauge data malformed."
			aux["error"] = err.Error()
		} else {
			res := Residuals(m)
			aux["frobenius_resid"] = res.Left
			aux["orthogonality_resid"] = res.Right
			status = models.StatusPass
			note = ""
			if !(res.Left <= e.cfg.FrobeniusTol && res.Right <= e.cfg.OrthogonalityTol) {
				status = models.StatusWarn
				note = "Gauge independence tolerances exceeded."
			}
		}
	}

	if diff := obs.Get(gaugeDiffKey); diff != nil {
		if flat, ok := flatten(diff, nil); ok {
			aux["finite_diff_norm"] = floats.Norm(flat, 2)
		}
	}

	return e.record(provenance.Entry{
		AnchorID: obs.Anchor(),
		Stage:    StageTGInd,
		Status:   status,
		Metric:   "verification",
		Aux:      aux,
		Notes:    note,
	})
}

// ParseMatrix converts a JSON-decoded list of rows into a dense matrix.
// Non-square matrices are accepted; scalars, flat lists, ragged or deeper
// nesting are rejected.
func ParseMatrix(raw any) (*mat.Dense, error) {
	rows, ok := raw.([]any)
	if !ok || len(rows) == 0 {
		return nil, errNotMatrix
	}
	var cols int
	data := make([]float64, 0, len(rows)*len(rows))
	for i, r := range rows {
		row, ok := r.([]any)
		if !ok || len(row) == 0 {
			return nil, errNotMatrix
		}
		if i == 0 {
			cols = len(row)
		} else if len(row) != cols {
			return nil, errRagged
		}
		for _, v := range row {
			if _, nested := v.([]any); nested {
				return nil, errNotMatrix
			}
			f := models.Float(v)
			if !models.IsFinite(f) {
				return nil, errNonNumeric
			}
			data = append(data, f)
		}
	}
	return mat.NewDense(len(rows), cols, data), nil
}

// Residuals computes ‖MᵀM − I‖_F and ‖MMᵀ − I‖_F, each against an identity of
// matching size.
func Residuals(m mat.Matrix) GaugeResiduals {
	r, c := m.Dims()

	var left mat.Dense
	left.Mul(m.T(), m)
	subIdentity(&left, c)

	var right mat.Dense
	right.Mul(m, m.T())
	subIdentity(&right, r)

	return GaugeResiduals{Left: mat.Norm(&left, 2), Right: mat.Norm(&right, 2)}
}

func subIdentity(m *mat.Dense, n int) {
	for i := 0; i < n; i++ {
		m.Set(i, i, m.At(i, i)-1)
	}
}

func flatten(v any, out []float64) ([]float64, bool) {
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			var ok bool
			if out, ok = flatten(item, out); !ok {
				return nil, false
			}
		}
		return out, true
	default:
		f := models.Float(x)
		if !models.IsFinite(f) {
			return nil, false
		}
		return append(out, f), true
	}
}
