package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// kendallExactMaxN bounds the exact permutation distribution to sizes where
// n! stays comfortably inside float64.
const kendallExactMaxN = 33

// KendallResult is Kendall's tau-b with its two-sided p-value.
type KendallResult struct {
	Tau    float64
	PValue float64
}

// KendallTau computes tau-b between x and y. Without ties and for n <= 33 the
// p-value comes from the exact null distribution, otherwise from the
// tie-corrected normal approximation. NaN inputs, constant inputs or fewer
// than two points yield NaN for both fields.
func KendallTau(x, y []float64) KendallResult {
	nan := KendallResult{Tau: math.NaN(), PValue: math.NaN()}
	n := len(x)
	if n < 2 || len(y) != n {
		return nan
	}
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			return nan
		}
	}

	var concordant, discordant int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := sign(x[j]-x[i]) * sign(y[j]-y[i])
			switch {
			case s > 0:
				concordant++
			case s < 0:
				discordant++
			}
		}
	}

	xt := tieStats(x)
	yt := tieStats(y)
	tot := float64(n*(n-1)) / 2
	if xt.pairs == tot || yt.pairs == tot {
		return nan
	}

	diff := float64(concordant - discordant)
	res := KendallResult{Tau: diff / math.Sqrt(tot-xt.pairs) / math.Sqrt(tot-yt.pairs)}

	c := min(discordant, int(tot)-discordant)
	if xt.pairs == 0 && yt.pairs == 0 && (n <= kendallExactMaxN || c <= 1) {
		res.PValue = kendallExactP(n, c)
		return res
	}

	nf := float64(n)
	m := nf * (nf - 1)
	variance := (m*(2*nf+5)-xt.v1-yt.v1)/18 + (2*xt.pairs*yt.pairs)/m
	if n > 2 {
		variance += xt.v0 * yt.v0 / (9 * m * (nf - 2))
	}
	z := diff / math.Sqrt(variance)
	res.PValue = math.Min(1, 2*distuv.UnitNormal.Survival(math.Abs(z)))
	return res
}

type ties struct {
	pairs float64 // sum t(t-1)/2
	v0    float64 // sum t(t-1)(t-2)
	v1    float64 // sum t(t-1)(2t+5)
}

func tieStats(values []float64) ties {
	counts := make(map[float64]int, len(values))
	for _, v := range values {
		counts[v]++
	}
	var out ties
	for _, c := range counts {
		if c < 2 {
			continue
		}
		t := float64(c)
		out.pairs += t * (t - 1) / 2
		out.v0 += t * (t - 1) * (t - 2)
		out.v1 += t * (t - 1) * (2*t + 5)
	}
	return out
}

// kendallExactP is the two-sided p-value of observing at most c discordant
// pairs among n untied observations under independence.
func kendallExactP(n, c int) float64 {
	switch {
	case n <= 2:
		return 1
	case c == 0:
		return math.Min(1, 2/factorial(n))
	case c == 1:
		return math.Min(1, 2/factorial(n-1))
	case 4*c == n*(n-1):
		return 1
	case n > 170:
		return 0
	}

	// counts[k] = permutations of j items with exactly k inversions, k <= c.
	counts := make([]float64, c+1)
	counts[0] = 1
	next := make([]float64, c+1)
	for j := 2; j <= n; j++ {
		var window float64
		for k := 0; k <= c; k++ {
			window += counts[k]
			if k-j >= 0 {
				window -= counts[k-j]
			}
			next[k] = window
		}
		counts, next = next, counts
	}
	var total float64
	for _, v := range counts {
		total += v
	}
	return math.Min(1, 2*total/factorial(n))
}

func factorial(n int) float64 {
	return math.Gamma(float64(n) + 1)
}
