package utils

import (
	"slices"
	"sync"
	"time"
)

// LatencyTracker keeps a bounded window of per-observation durations.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	maxSize int
	total   int
}

// LatencySummary is a point-in-time view of a LatencyTracker.
type LatencySummary struct {
	Count int
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{maxSize: maxSize}
}

// Observe records a new duration, evicting the oldest sample when full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.total++
	l.samples = append(l.samples, d)
	if len(l.samples) > l.maxSize {
		l.samples = slices.Delete(l.samples, 0, 1)
	}
}

// Percentile returns the nearest-rank percentile (0-100) of the retained window.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	l.mu.RLock()
	sorted := slices.Clone(l.samples)
	l.mu.RUnlock()

	slices.Sort(sorted)
	return percentileOf(sorted, p)
}

// Count returns the number of retained samples.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.samples)
}

// Total returns the number of samples ever observed.
func (l *LatencyTracker) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Summary computes p50/p95/max over the retained window.
func (l *LatencyTracker) Summary() LatencySummary {
	l.mu.RLock()
	sorted := slices.Clone(l.samples)
	total := l.total
	l.mu.RUnlock()

	slices.Sort(sorted)
	return LatencySummary{
		Count: total,
		P50:   percentileOf(sorted, 50),
		P95:   percentileOf(sorted, 95),
		Max:   percentileOf(sorted, 100),
	}
}

func percentileOf(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	index := int((p / 100.0) * float64(len(sorted)-1))
	return sorted[min(max(index, 0), len(sorted)-1)]
}
