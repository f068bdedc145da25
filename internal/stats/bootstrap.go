package stats

import (
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBootstrapResamples is the target number of valid resamples.
	DefaultBootstrapResamples = 500
	// DefaultBootstrapConfidence is the two-sided confidence level.
	DefaultBootstrapConfidence = 0.95
	// DefaultMaxTriesFactor bounds total attempts at factor * resamples.
	DefaultMaxTriesFactor = 20
	// DefaultMinValidFraction is the share of resamples required for a usable interval.
	DefaultMinValidFraction = 0.1
)

// BootstrapOptions tunes BootstrapAUC. Zero values take the defaults above.
type BootstrapOptions struct {
	Resamples        int
	Seed             int64
	Confidence       float64
	MaxTriesFactor   int
	MinValidFraction float64
	Workers          int
}

func (o BootstrapOptions) withDefaults() BootstrapOptions {
	if o.Resamples <= 0 {
		o.Resamples = DefaultBootstrapResamples
	}
	if o.Confidence <= 0 || o.Confidence >= 1 {
		o.Confidence = DefaultBootstrapConfidence
	}
	if o.MaxTriesFactor <= 0 {
		o.MaxTriesFactor = DefaultMaxTriesFactor
	}
	if o.MinValidFraction <= 0 {
		o.MinValidFraction = DefaultMinValidFraction
	}
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	return o
}

// Interval is a percentile bootstrap confidence interval.
type Interval struct {
	Lo        float64
	Hi        float64
	Effective int
	Attempts  int
	// Reliable is false when too few resamples contained both classes; the
	// interval is then the uninformative [0, 1].
	Reliable bool
}

// BootstrapAUC resamples pairs with replacement and returns a percentile
// interval for the rank AUC. Resamples missing either class are discarded and
// retried. Attempt k always draws from DeriveSeed(Seed, k) and valid results
// are kept in attempt order, so the interval does not depend on Workers.
func BootstrapAUC(pairs []Pair, opts BootstrapOptions) Interval {
	opts = opts.withDefaults()
	if len(pairs) == 0 {
		return Interval{Lo: 0, Hi: 1}
	}

	target := opts.Resamples
	maxAttempts := opts.MaxTriesFactor * target
	aucs := make([]float64, 0, target)
	attempts := 0

	for len(aucs) < target && attempts < maxAttempts {
		batch := min(target-len(aucs), maxAttempts-attempts)
		results := make([]float64, batch)
		base := attempts

		var g errgroup.Group
		g.SetLimit(opts.Workers)
		for i := range batch {
			g.Go(func() error {
				results[i] = resampleAUC(pairs, DeriveSeed(opts.Seed, base+i))
				return nil
			})
		}
		_ = g.Wait()

		for _, auc := range results {
			if !math.IsNaN(auc) && len(aucs) < target {
				aucs = append(aucs, auc)
			}
		}
		attempts += batch
	}

	minValid := max(1, int(math.Ceil(opts.MinValidFraction*float64(target))))
	if len(aucs) < minValid {
		return Interval{Lo: 0, Hi: 1, Effective: len(aucs), Attempts: attempts}
	}

	slices.Sort(aucs)
	tail := (1 - opts.Confidence) / 2
	n := len(aucs)
	lo := min(int(tail*float64(n)), n-1)
	hi := min(max(int((1-tail)*float64(n))-1, lo), n-1)
	return Interval{
		Lo:        aucs[lo],
		Hi:        aucs[hi],
		Effective: n,
		Attempts:  attempts,
		Reliable:  true,
	}
}

// resampleAUC returns NaN when the resample lacks a class.
func resampleAUC(pairs []Pair, seed int64) float64 {
	s := NewSampler(seed)
	sample := make([]Pair, len(pairs))
	var pos int
	for i := range sample {
		sample[i] = pairs[s.IntN(len(pairs))]
		if sample[i].Positive {
			pos++
		}
	}
	if pos == 0 || pos == len(sample) {
		return math.NaN()
	}
	return AUC(sample)
}
