package stats

import (
	"cmp"
	"math"
	"slices"
)

// Pair is one scored sample with its binary label.
type Pair struct {
	Score    float64
	Positive bool
}

// Point is a vertex of a ROC polyline.
type Point struct {
	FPR       float64
	TPR       float64
	Threshold float64
}

// Youden is the best Youden J statistic over all score thresholds.
type Youden struct {
	J           float64
	Threshold   float64
	Found       bool
	Sensitivity float64
	Specificity float64
}

// classCounts returns the number of positive and negative pairs.
func classCounts(pairs []Pair) (pos, neg int) {
	for _, p := range pairs {
		if p.Positive {
			pos++
		} else {
			neg++
		}
	}
	return pos, neg
}

// blockEnd returns the end of the tie block starting at i. A block always
// holds at least one pair, so NaN scores form blocks of their own.
func blockEnd(sorted []Pair, i int) int {
	j := i + 1
	for j < len(sorted) && sorted[j].Score == sorted[i].Score {
		j++
	}
	return j
}

// AUC is the rank-based (Mann-Whitney) area under the ROC curve with mid-ranks
// for tied scores. It is 0.5 when either class is empty.
func AUC(pairs []Pair) float64 {
	pos, neg := classCounts(pairs)
	if pos == 0 || neg == 0 {
		return 0.5
	}
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b Pair) int { return cmp.Compare(a.Score, b.Score) })

	var rankSum float64
	for i := 0; i < len(sorted); {
		j := blockEnd(sorted, i)
		mid := float64(i+j+1) / 2 // mean of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			if sorted[k].Positive {
				rankSum += mid
			}
		}
		i = j
	}
	p, n := float64(pos), float64(neg)
	return (rankSum - p*(p+1)/2) / (p * n)
}

// Curve builds the ROC polyline by sweeping thresholds from the highest score
// down. Each tie block contributes one vertex. The curve always starts at
// (0,0) and ends at (1,1); a single-class input yields the diagonal.
func Curve(pairs []Pair) []Point {
	pos, neg := classCounts(pairs)
	start := Point{Threshold: math.Inf(1)}
	if pos == 0 || neg == 0 {
		end := Point{FPR: 1, TPR: 1, Threshold: math.Inf(-1)}
		if len(pairs) > 0 {
			end.Threshold = slices.MinFunc(pairs, func(a, b Pair) int { return cmp.Compare(a.Score, b.Score) }).Score
		}
		return []Point{start, end}
	}

	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b Pair) int { return cmp.Compare(b.Score, a.Score) })

	points := []Point{start}
	var tp, fp int
	for i := 0; i < len(sorted); {
		j := blockEnd(sorted, i)
		for _, p := range sorted[i:j] {
			if p.Positive {
				tp++
			} else {
				fp++
			}
		}
		points = appendPoint(points, Point{
			FPR:       float64(fp) / float64(neg),
			TPR:       float64(tp) / float64(pos),
			Threshold: sorted[i].Score,
		})
		i = j
	}
	if last := points[len(points)-1]; last.FPR != 1 || last.TPR != 1 {
		points = appendPoint(points, Point{FPR: 1, TPR: 1, Threshold: math.Inf(-1)})
	}
	return points
}

func appendPoint(points []Point, p Point) []Point {
	if n := len(points); n > 0 && points[n-1].FPR == p.FPR && points[n-1].TPR == p.TPR {
		points[n-1].Threshold = p.Threshold
		return points
	}
	return append(points, p)
}

// TrapezoidAUC integrates a polyline ordered by FPR.
func TrapezoidAUC(points []Point) float64 {
	if len(points) < 2 {
		return 0.5
	}
	sorted := slices.Clone(points)
	slices.SortStableFunc(sorted, func(a, b Point) int {
		if c := cmp.Compare(a.FPR, b.FPR); c != 0 {
			return c
		}
		return cmp.Compare(a.TPR, b.TPR)
	})
	var area float64
	for i := 1; i < len(sorted); i++ {
		area += (sorted[i].FPR - sorted[i-1].FPR) * (sorted[i].TPR + sorted[i-1].TPR) / 2
	}
	return math.Max(0, math.Min(1, area))
}

// BestYouden maximises sensitivity + specificity - 1 over every distinct score
// threshold, predicting positive when score >= threshold. An empty input
// returns J = -1 and Found = false.
func BestYouden(pairs []Pair) Youden {
	best := Youden{J: -1}
	if len(pairs) == 0 {
		return best
	}
	pos, neg := classCounts(pairs)
	sorted := slices.Clone(pairs)
	slices.SortStableFunc(sorted, func(a, b Pair) int { return cmp.Compare(b.Score, a.Score) })

	var tp, fp int
	for i := 0; i < len(sorted); {
		j := blockEnd(sorted, i)
		for _, p := range sorted[i:j] {
			if p.Positive {
				tp++
			} else {
				fp++
			}
		}
		sens := float64(tp) / float64(max(pos, 1))
		spec := float64(neg-fp) / float64(max(neg, 1))
		if jstat := sens + spec - 1; jstat > best.J {
			best = Youden{J: jstat, Threshold: sorted[i].Score, Found: true, Sensitivity: sens, Specificity: spec}
		}
		i = j
	}
	return best
}
