package stats

import (
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	s := Summarize([]float64{1, 2, 3, 4})
	if s.Count != 4 || s.Min != 1 || s.Max != 4 || s.Mean != 2.5 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if math.Abs(s.Std-math.Sqrt(5.0/3.0)) > 1e-12 {
		t.Fatalf("expected sample std, got %v", s.Std)
	}
	if got := Summarize(nil).Map()["count"]; got != 0 {
		t.Fatalf("expected empty count 0, got %v", got)
	}
}

func TestGuard(t *testing.T) {
	g := Guard([]float64{1, 3, 2, 2.5})
	if g.Oscillations != 2 {
		t.Fatalf("expected 2 oscillations, got %d", g.Oscillations)
	}
	if g.OrderDisagreement != 0.5 {
		t.Fatalf("expected order disagreement 0.5, got %v", g.OrderDisagreement)
	}
	if g.MaxStep != 2 || g.MaxAbs != 3 {
		t.Fatalf("unexpected guard %+v", g)
	}

	short := Guard([]float64{1}).Map()
	if _, ok := short["max_step"]; ok {
		t.Fatalf("expected max_step omitted for short series")
	}
}

func TestRichardson(t *testing.T) {
	r := Richardson([]float64{1.0, 0.5, 0.4}, DefaultRichardsonOrder, DefaultSafetyFactor)
	if r.Estimate != 0.4 {
		t.Fatalf("expected estimate 0.4, got %v", r.Estimate)
	}
	if math.Abs(r.Error-1.5*0.1/3) > 1e-12 {
		t.Fatalf("expected error 0.05, got %v", r.Error)
	}
	if got := Richardson([]float64{2}, 2, 1.5); got.Error != 0 {
		t.Fatalf("expected zero error for single sample, got %v", got.Error)
	}
}
