package rtree

// partitionQuadratic assigns each branch in buf to group 0 or 1 using
// Guttman's quadratic method.
//
// The seeds are the two branches that would waste the most volume if covered
// by a single rectangle, evidently the worst pair to keep together. The rest
// are classified one at a time, always the branch with the greatest
// difference between its cost of joining one group versus the other, into the
// group it prefers; ties go to the smaller group. When one group grows so
// large that the other needs everything left to reach its minimum fill, the
// remainder is dumped there.
func partitionQuadratic(buf []Branch, minFill int) []int {
	total := len(buf)
	assign := make([]int, total)
	for i := range assign {
		assign[i] = -1
	}

	var count [2]int
	var cover [2]Rect
	var area [2]float64
	classify := func(i, group int) {
		assign[i] = group
		if count[group] == 0 {
			cover[group] = buf[i].Rect.Copy()
		} else {
			cover[group] = cover[group].Combine(buf[i].Rect)
		}
		area[group] = cover[group].SphericalVolume()
		count[group]++
	}

	// pick seeds: the pair wasting the most volume under a single cover
	areas := make([]float64, total)
	for i := range buf {
		areas[i] = buf[i].Rect.SphericalVolume()
	}
	seed0, seed1 := 0, 1
	first := true
	var worst float64
	for i := 0; i < total-1; i++ {
		for j := i + 1; j < total; j++ {
			waste := buf[i].Rect.Combine(buf[j].Rect).SphericalVolume() - areas[i] - areas[j]
			if first || waste > worst {
				worst = waste
				seed0, seed1 = i, j
				first = false
			}
		}
	}
	classify(seed0, 0)
	classify(seed1, 1)

	for count[0]+count[1] < total &&
		count[0] < total-minFill &&
		count[1] < total-minFill {
		biggest := -1.0
		chosen, betterGroup := -1, 0
		for i := range buf {
			if assign[i] != -1 {
				continue
			}
			growth0 := buf[i].Rect.Combine(cover[0]).SphericalVolume() - area[0]
			growth1 := buf[i].Rect.Combine(cover[1]).SphericalVolume() - area[1]
			diff := growth1 - growth0
			group := 0
			if diff < 0 {
				group = 1
				diff = -diff
			}
			if diff > biggest {
				biggest = diff
				chosen, betterGroup = i, group
			} else if diff == biggest && count[group] < count[betterGroup] {
				chosen, betterGroup = i, group
			}
		}
		classify(chosen, betterGroup)
	}

	// one group would starve the other of its minimum fill: dump the rest
	if count[0]+count[1] < total {
		group := 0
		if count[0] >= total-minFill {
			group = 1
		}
		for i := range buf {
			if assign[i] == -1 {
				classify(i, group)
			}
		}
	}
	return assign
}
