package rtree

import (
	"math"
	"sort"
)

// partitionRStar assigns each branch in buf to group 0 or 1 using the R*-tree
// topological split. buf itself is left untouched; the returned assignment
// refers to its original order.
//
// For every axis the branches are ordered twice, by lower then by upper bound,
// and every distribution respecting the minimum fill is scored by the sum of
// the margins of the two covers. The axis with the smallest total margin over
// all its distributions wins: small margins mean squarish rectangles. Along
// the winning axis the distributions of both sort orders are then rescored,
// and the cut with the smallest overlap volume between the two covers is
// chosen, ties resolved by the smallest total volume. Group 0 is everything
// below the cut.
//
// All orderings are stable argsorts starting from the original branch order,
// and the winning ordering is captured when it is scored, so the applied
// distribution is exactly the scored one even when sort keys tie.
func partitionRStar(buf []Branch, minFill, dims int) []int {
	total := len(buf)

	ord := make([]int, total)
	sortOrd := func(axis, side int) {
		for i := range ord {
			ord[i] = i
		}
		sort.SliceStable(ord, func(a, b int) bool {
			if side == 0 {
				return buf[ord[a]].Rect.Min[axis] < buf[ord[b]].Rect.Min[axis]
			}
			return buf[ord[a]].Rect.Max[axis] < buf[ord[b]].Rect.Max[axis]
		})
	}

	// prefix[i] covers buf[ord[:i+1]], suffix[i] covers buf[ord[i:]]
	prefix := make([]Rect, total)
	suffix := make([]Rect, total)
	computeCovers := func() {
		prefix[0] = buf[ord[0]].Rect.Copy()
		for i := 1; i < total; i++ {
			prefix[i] = prefix[i-1].Combine(buf[ord[i]].Rect)
		}
		suffix[total-1] = buf[ord[total-1]].Rect.Copy()
		for i := total - 2; i >= 0; i-- {
			suffix[i] = suffix[i+1].Combine(buf[ord[i]].Rect)
		}
	}

	bestAxis := 0
	bestMargin := math.Inf(1)
	for axis := 0; axis < dims; axis++ {
		marginSum := 0.0
		for side := 0; side < 2; side++ {
			sortOrd(axis, side)
			computeCovers()
			for cut := minFill; cut <= total-minFill; cut++ {
				marginSum += prefix[cut-1].Margin() + suffix[cut].Margin()
			}
		}
		if marginSum < bestMargin {
			bestMargin = marginSum
			bestAxis = axis
		}
	}

	bestOrd := make([]int, total)
	bestCut := minFill
	bestOverlap, bestVol := math.Inf(1), math.Inf(1)
	for side := 0; side < 2; side++ {
		sortOrd(bestAxis, side)
		computeCovers()
		for cut := minFill; cut <= total-minFill; cut++ {
			overlap := intersectionVolume(prefix[cut-1], suffix[cut])
			vol := prefix[cut-1].Volume() + suffix[cut].Volume()
			if overlap < bestOverlap || (overlap == bestOverlap && vol < bestVol) {
				bestOverlap, bestVol = overlap, vol
				bestCut = cut
				copy(bestOrd, ord)
			}
		}
	}

	assign := make([]int, total)
	for i := bestCut; i < total; i++ {
		assign[bestOrd[i]] = 1
	}
	return assign
}
