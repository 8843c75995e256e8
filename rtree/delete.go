package rtree

import (
	"fmt"

	"go.uber.org/zap"
)

// DeleteItem removes the leaf entry with the given rectangle and identifier.
func (t *Tree) DeleteItem(r Rect, id uint64) (bool, error) {
	return t.Delete(r, ChildID(id))
}

// Delete removes the leaf entry matching child, guided by r: only subtrees
// whose cover overlaps r are descended. It returns false when no matching
// entry was found, which is a normal outcome and leaves the tree untouched.
//
// As with any classic R-tree, r must still enclose the entry as it was
// inserted; the tree only ever grows cached covers by union, so a rectangle
// that found the entry at insertion time will always find it here.
//
// After the entry is removed, ancestors that fall below their minimum fill
// are eliminated wholesale and their branches reinserted at their original
// levels, and a root left with a single child is collapsed away.
func (t *Tree) Delete(r Rect, child Child) (bool, error) {
	if r.Dims() != t.dims {
		return false, fmt.Errorf("%w: rect has %d dims, tree has %d", ErrDimensionMismatch, r.Dims(), t.dims)
	}

	found, orphans, err := t.delete2(r, child)
	if err != nil || !found {
		return found, err
	}

	// reinsert every branch of every eliminated node; this can regrow parts
	// of the tree but yields a better balanced structure than patching
	// underfull nodes in place
	for _, n := range orphans {
		t.nNodes--
		for _, b := range n.Branches {
			if err := t.insert1(b.Rect, b.Child, n.Level); err != nil {
				return true, err
			}
		}
	}

	// a non leaf root with a single child is redundant; shorten the tree
	var root Node
	if err := t.store.Read(t.rootPos, t.rootLevel, &root); err != nil {
		return true, err
	}
	if len(root.Branches) == 1 && root.Level > 0 {
		childPos := root.Branches[0].Child.Pos()
		t.store.Free(t.rootPos, t.rootLevel)
		t.nNodes--
		t.rootPos = childPos
		t.rootLevel--
		t.log.Debug("root collapsed", zap.Int("rootLevel", t.rootLevel), zap.Int64("rootPos", t.rootPos))
	}
	return true, nil
}

// delete2 locates and disconnects the leaf entry, then repairs the ancestor
// chain: covers are refreshed where the child still meets its minimum fill,
// and underfull children are disconnected whole onto the orphan list with
// their positions freed.
func (t *Tree) delete2(r Rect, child Child) (bool, []*Node, error) {
	stack := make([]frame, t.rootLevel+1)
	top := 0
	if err := t.readFrame(stack, top, t.rootPos, t.rootLevel); err != nil {
		return false, nil, err
	}

	notFound := true
	for notFound && top >= 0 {
		f := &stack[top]
		if f.node.Level > 0 {
			descended := false
			for i := f.branch; i < len(f.node.Branches); i++ {
				if !r.Overlaps(f.node.Branches[i].Rect) {
					continue
				}
				f.branch = i + 1
				top++
				if err := t.readFrame(stack, top, f.node.Branches[i].Child.Pos(), f.node.Level-1); err != nil {
					return false, nil, err
				}
				descended = true
				break
			}
			if !descended {
				f.branch = len(f.node.Branches)
				top--
			}
			continue
		}
		for i, b := range f.node.Branches {
			if b.Child.ID() != child.ID() {
				continue
			}
			f.node.disconnect(i)
			if err := t.store.Write(f.pos, &f.node); err != nil {
				return false, nil, err
			}
			t.nLeaves--
			notFound = false
			break
		}
		if notFound {
			top--
		}
	}
	if notFound {
		return false, nil, nil
	}

	var orphans []*Node
	for top > 0 {
		down := top
		top--
		i := stack[top].branch - 1

		if len(stack[down].node.Branches) >= t.minFill(stack[down].node.Level) {
			nr := stack[down].node.cover()
			if !nr.Equal(stack[top].node.Branches[i].Rect) {
				stack[top].node.Branches[i].Rect = nr
				if err := t.store.Write(stack[top].pos, &stack[top].node); err != nil {
					return true, orphans, err
				}
			}
			continue
		}

		// child underfull: disconnect the whole node and queue its branches
		orphan := &Node{}
		orphan.copyFrom(&stack[down].node)
		orphans = append(orphans, orphan)
		t.store.Free(stack[down].pos, stack[down].node.Level)
		stack[top].node.disconnect(i)
		if err := t.store.Write(stack[top].pos, &stack[top].node); err != nil {
			return true, orphans, err
		}
		t.log.Debug("underfull node eliminated",
			zap.Int("level", orphan.Level),
			zap.Int("branches", len(orphan.Branches)))
	}
	return true, orphans, nil
}
