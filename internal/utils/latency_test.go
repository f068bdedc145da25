package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{50 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}
	if p95 := tracker.Percentile(95); p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
	if p0 := tracker.Percentile(0); p0 != 10*time.Millisecond {
		t.Fatalf("expected min 10ms, got %v", p0)
	}
}

func TestLatencyTrackerBoundedWindow(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
	summary := tracker.Summary()
	if summary.Count != 10 {
		t.Fatalf("expected total 10, got %d", summary.Count)
	}
	if summary.Max != 9*time.Millisecond {
		t.Fatalf("expected max 9ms, got %v", summary.Max)
	}
	if summary.P50 != 8*time.Millisecond {
		t.Fatalf("expected p50 8ms, got %v", summary.P50)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(0)
	if tracker.Percentile(50) != 0 {
		t.Fatalf("expected zero percentile on empty tracker")
	}
}
