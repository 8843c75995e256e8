package rtree

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// addResult describes what adding a branch did to the target node and is
// propagated up the unwind: the branch was simply added, the node was split
// producing a sibling, or (R* only) branches were removed for reinsertion.
type addResult int

const (
	addedBranch addResult = iota
	splitDone
	removedBranches
)

// pendingBranch is a branch awaiting reinsertion, remembering the level of
// the node that held it.
type pendingBranch struct {
	branch Branch
	level  int
}

// InsertItem indexes a leaf entry: a rectangle and a caller owned identifier.
func (t *Tree) InsertItem(r Rect, id uint64) error {
	return t.Insert(r, ChildID(id), 0)
}

// Insert adds a branch to the tree at the given level. Leaf entries insert at
// level 0 with a ChildID; internal branches (used when reinserting subtrees)
// insert at the level of the node that held them, with a ChildPos. The root
// may grow by one level as a result.
func (t *Tree) Insert(r Rect, child Child, level int) error {
	if r.Dims() != t.dims {
		return fmt.Errorf("%w: rect has %d dims, tree has %d", ErrDimensionMismatch, r.Dims(), t.dims)
	}
	if level < 0 || level > t.rootLevel {
		return fmt.Errorf("%w: level %d, root level %d", ErrLevelOutOfRange, level, t.rootLevel)
	}
	if err := t.insert1(r, child, level); err != nil {
		return err
	}
	if level == 0 {
		t.nLeaves++
	}
	return nil
}

// insert1 runs a full insertion pass: one insert2, root growth when the root
// itself split, and draining of the forced reinsertion list. Each drained
// branch goes through insert2 again and may split or force deeper levels, but
// the shared once-per-level flags guarantee no level reinserts twice within
// one pass.
func (t *Tree) insert1(r Rect, child Child, level int) error {
	// R* forced reinsertion budget: one pass per level per top level insert
	var overflow [maxLevels]bool
	if t.strategy == SplitRStar {
		for i := range overflow {
			overflow[i] = true
		}
	}

	res, sibling, siblingPos, pending, err := t.insert2(r, child, level, overflow[:])
	if err != nil {
		return err
	}
	if res == splitDone {
		if err := t.growRoot(sibling, siblingPos); err != nil {
			return err
		}
	}

	for len(pending) > 0 {
		p := pending[0]
		pending = pending[1:]
		res, sibling, siblingPos, more, err := t.insert2(p.branch.Rect, p.branch.Child, p.level, overflow[:])
		if err != nil {
			return err
		}
		if res == splitDone {
			if err := t.growRoot(sibling, siblingPos); err != nil {
				return err
			}
		}
		pending = append(pending, more...)
	}
	return nil
}

// insert2 is a single insertion pass without root growth. It descends from
// the root to the target level choosing least enlargement branches, adds the
// branch there, and unwinds the stack propagating rectangle updates, node
// splits and (R*) removed branches. When the root node itself split, the
// returned result is splitDone and the sibling plus its position are
// returned for the caller to graft under a new root.
func (t *Tree) insert2(r Rect, child Child, level int, overflow []bool) (addResult, *Node, int64, []pendingBranch, error) {
	stack := make([]frame, t.rootLevel+1)
	top := 0
	if err := t.readFrame(stack, top, t.rootPos, t.rootLevel); err != nil {
		return 0, nil, 0, nil, err
	}

	for stack[top].node.Level > level {
		n := &stack[top].node
		i := n.pickBranch(r)
		stack[top].branch = i
		childPos := n.Branches[i].Child.Pos()
		childLevel := n.Level - 1
		top++
		if err := t.readFrame(stack, top, childPos, childLevel); err != nil {
			return 0, nil, 0, nil, err
		}
	}

	b := Branch{Rect: r.Copy(), Child: child}
	res, sibling, pending, err := t.addBranch(b, &stack[top].node, t.parentCover(stack, top), overflow)
	if err != nil {
		return 0, nil, 0, nil, err
	}
	var siblingPos int64 = -1
	if res == splitDone {
		if siblingPos, err = t.writeNewNode(sibling); err != nil {
			return 0, nil, 0, nil, err
		}
	}
	if err := t.store.Write(stack[top].pos, &stack[top].node); err != nil {
		return 0, nil, 0, nil, err
	}

	// unwind, propagating the child result into each ancestor
	for top > 0 {
		down := top
		top--
		i := stack[top].branch
		switch res {
		case addedBranch:
			// the subtree gained exactly r, so the cached cover grows by r
			nr := stack[top].node.Branches[i].Rect.Combine(r)
			if !nr.Equal(stack[top].node.Branches[i].Rect) {
				stack[top].node.Branches[i].Rect = nr
				if err := t.store.Write(stack[top].pos, &stack[top].node); err != nil {
					return 0, nil, 0, nil, err
				}
			}

		case removedBranches:
			// branches left the subtree; recompute the exact child cover
			nr := stack[down].node.cover()
			if !nr.Equal(stack[top].node.Branches[i].Rect) {
				stack[top].node.Branches[i].Rect = nr
				if err := t.store.Write(stack[top].pos, &stack[top].node); err != nil {
					return 0, nil, 0, nil, err
				}
			}

		case splitDone:
			// refresh the cover of the mutated child, then graft the sibling
			// branch here, which may split or force reinsertion again
			stack[top].node.Branches[i].Rect = stack[down].node.cover()
			nb := Branch{Rect: sibling.cover(), Child: ChildPos(siblingPos)}
			var more []pendingBranch
			res, sibling, more, err = t.addBranch(nb, &stack[top].node, t.parentCover(stack, top), overflow)
			if err != nil {
				return 0, nil, 0, nil, err
			}
			pending = append(pending, more...)
			if res == splitDone {
				if siblingPos, err = t.writeNewNode(sibling); err != nil {
					return 0, nil, 0, nil, err
				}
			}
			if err := t.store.Write(stack[top].pos, &stack[top].node); err != nil {
				return 0, nil, 0, nil, err
			}
		}
	}

	return res, sibling, siblingPos, pending, nil
}

// parentCover returns the bounding rectangle the parent holds for the node at
// stack depth top, or nil for the root.
func (t *Tree) parentCover(stack []frame, top int) *Rect {
	if top == 0 {
		return nil
	}
	p := &stack[top-1]
	cover := p.node.Branches[p.branch].Rect.Copy()
	return &cover
}

// writeNewNode allocates a position for a freshly built node and persists it.
func (t *Tree) writeNewNode(n *Node) (int64, error) {
	pos, err := t.store.Allocate(n.Level)
	if err != nil {
		return 0, fmt.Errorf("allocate split sibling: %w", err)
	}
	if err := t.store.Write(pos, n); err != nil {
		return 0, err
	}
	t.nNodes++
	return pos, nil
}

// addBranch places b into n. When n is full, either the R* forced
// reinsertion removes the farthest branches into the pending list (at most
// once per level per insertion pass, and never at the root), or the node is
// split with the tree's strategy and the new sibling returned.
func (t *Tree) addBranch(b Branch, n *Node, cover *Rect, overflow []bool) (addResult, *Node, []pendingBranch, error) {
	if len(n.Branches) < t.maxCard(n.Level) {
		n.Branches = append(n.Branches, b)
		return addedBranch, nil, nil, nil
	}

	if n.Level < t.rootLevel && cover != nil && overflow != nil && overflow[n.Level] {
		overflow[n.Level] = false
		pending := t.removeFarthest(n, b, *cover)
		t.log.Debug("forced reinsertion",
			zap.Int("level", n.Level),
			zap.Int("removed", len(pending)))
		return removedBranches, nil, pending, nil
	}

	sibling, err := t.splitNode(n, b)
	if err != nil {
		return 0, nil, nil, err
	}
	return splitDone, sibling, nil, nil
}

// removeFarthest implements the R* overflow treatment: of the node's branches
// plus the extra one, the configured fraction with centres farthest from the
// centre of the parent cover are removed for reinsertion, and the node is
// rebuilt from the near remainder.
func (t *Tree) removeFarthest(n *Node, b Branch, cover Rect) []pendingBranch {
	level := n.Level
	all := make([]Branch, 0, len(n.Branches)+1)
	all = append(all, n.Branches...)
	all = append(all, b)

	center := make([]float64, t.dims)
	for d := 0; d < t.dims; d++ {
		center[d] = (cover.Min[d] + cover.Max[d]) / 2
	}
	dist := make([]float64, len(all))
	for i, br := range all {
		for d := 0; d < t.dims; d++ {
			c := (br.Rect.Min[d] + br.Rect.Max[d]) / 2
			delta := center[d] - c
			dist[i] += delta * delta
		}
	}
	idx := make([]int, len(all))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return dist[idx[a]] < dist[idx[b]] })

	k := int(t.reinsertFraction * float64(len(all)))
	if k < 1 {
		k = 1
	}
	if max := len(all) - t.minFill(level); k > max {
		k = max
	}

	keep := len(all) - k
	n.init(level)
	for _, i := range idx[:keep] {
		n.Branches = append(n.Branches, all[i])
	}
	pending := make([]pendingBranch, 0, k)
	for _, i := range idx[keep:] {
		pending = append(pending, pendingBranch{branch: all[i], level: level})
	}
	return pending
}

// growRoot replaces the root with a new one a level taller holding exactly
// two branches: one over the old root and one over the sibling produced by a
// top level split.
func (t *Tree) growRoot(sibling *Node, siblingPos int64) error {
	var oldRoot Node
	if err := t.store.Read(t.rootPos, t.rootLevel, &oldRoot); err != nil {
		return err
	}
	newRoot := Node{
		Level: t.rootLevel + 1,
		Branches: []Branch{
			{Rect: oldRoot.cover(), Child: ChildPos(t.rootPos)},
			{Rect: sibling.cover(), Child: ChildPos(siblingPos)},
		},
	}
	pos, err := t.store.Allocate(newRoot.Level)
	if err != nil {
		return fmt.Errorf("allocate new root: %w", err)
	}
	if err := t.store.Write(pos, &newRoot); err != nil {
		return err
	}
	t.rootPos = pos
	t.rootLevel = newRoot.Level
	t.nNodes++
	t.log.Debug("root grown", zap.Int("rootLevel", t.rootLevel), zap.Int64("rootPos", t.rootPos))
	return nil
}
