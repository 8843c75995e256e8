package rtree

import "fmt"

// CheckConsistency walks the whole tree verifying its structural invariants:
// every level field matches the structural depth (so all leaves sit at the
// same depth), every non root node meets its minimum fill and capacity, every
// internal branch's rectangle is exactly the union of everything beneath it,
// and the node and leaf counters agree with the structure. Any violation is
// reported as an ErrInvariantViolated; a healthy tree returns nil.
//
// The check reads every node, so it is meant for tests and debugging, not for
// production hot paths.
func (t *Tree) CheckConsistency() error {
	nodes, leaves := 0, 0
	var walk func(pos int64, level int) (Rect, error)
	walk = func(pos int64, level int) (Rect, error) {
		var n Node
		if err := t.store.Read(pos, level, &n); err != nil {
			return Rect{}, err
		}
		if n.Level != level {
			return Rect{}, fmt.Errorf("%w: node at %d has level %d, expected %d",
				ErrInvariantViolated, pos, n.Level, level)
		}
		nodes++
		isRoot := pos == t.rootPos && level == t.rootLevel
		if len(n.Branches) > t.maxCard(level) {
			return Rect{}, fmt.Errorf("%w: node at %d holds %d branches, capacity %d",
				ErrInvariantViolated, pos, len(n.Branches), t.maxCard(level))
		}
		if !isRoot && len(n.Branches) < t.minFill(level) {
			return Rect{}, fmt.Errorf("%w: node at %d holds %d branches, minimum fill %d",
				ErrInvariantViolated, pos, len(n.Branches), t.minFill(level))
		}
		if isRoot && len(n.Branches) == 0 {
			// the empty tree is a bare leaf root
			return Rect{}, nil
		}
		if level == 0 {
			leaves += len(n.Branches)
			return n.cover(), nil
		}
		for i, b := range n.Branches {
			sub, err := walk(b.Child.Pos(), level-1)
			if err != nil {
				return Rect{}, err
			}
			if !sub.Equal(b.Rect) {
				return Rect{}, fmt.Errorf("%w: branch %d of node at %d covers %v, subtree covers %v",
					ErrInvariantViolated, i, pos, b.Rect, sub)
			}
		}
		return n.cover(), nil
	}

	if _, err := walk(t.rootPos, t.rootLevel); err != nil {
		return err
	}
	if nodes != t.nNodes {
		return fmt.Errorf("%w: counted %d nodes, tree records %d", ErrInvariantViolated, nodes, t.nNodes)
	}
	if leaves != t.nLeaves {
		return fmt.Errorf("%w: counted %d leaf entries, tree records %d", ErrInvariantViolated, leaves, t.nLeaves)
	}
	return nil
}
