package rtree

import (
	"fmt"

	"go.uber.org/zap"
)

// splitNode distributes n's branches plus the extra one between n (rebuilt in
// place with group 0) and a freshly built sibling of the same level (group
// 1), using the tree's strategy. Both groups respect the minimum fill for the
// level; the group counts are checked defensively because a partitioning bug
// here would corrupt the tree silently.
func (t *Tree) splitNode(n *Node, b Branch) (*Node, error) {
	level := n.Level
	minFill := t.minFill(level)

	buf := make([]Branch, 0, len(n.Branches)+1)
	buf = append(buf, n.Branches...)
	buf = append(buf, b)

	var assign []int
	switch t.strategy {
	case SplitRStar:
		assign = partitionRStar(buf, minFill, t.dims)
	default:
		assign = partitionQuadratic(buf, minFill)
	}

	counts := [2]int{}
	for i, g := range assign {
		if g != 0 && g != 1 {
			return nil, fmt.Errorf("%w: branch %d assigned to group %d", ErrInvariantViolated, i, g)
		}
		counts[g]++
	}
	if counts[0]+counts[1] != len(buf) || counts[0] < minFill || counts[1] < minFill {
		return nil, fmt.Errorf("%w: split produced groups of %d and %d from %d branches, min fill %d",
			ErrInvariantViolated, counts[0], counts[1], len(buf), minFill)
	}

	n.init(level)
	sibling := &Node{Level: level}
	for i, g := range assign {
		if g == 0 {
			n.Branches = append(n.Branches, buf[i])
		} else {
			sibling.Branches = append(sibling.Branches, buf[i])
		}
	}
	t.log.Debug("node split",
		zap.Int("level", level),
		zap.Stringer("strategy", t.strategy),
		zap.Int("group0", counts[0]),
		zap.Int("group1", counts[1]))
	return sibling, nil
}
