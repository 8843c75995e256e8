package rtree

import "fmt"

// HitFunc receives one matching leaf entry per call. Returning false stops
// the search immediately.
type HitFunc func(id uint64, r Rect) bool

// Search reports every leaf entry whose rectangle overlaps q, invoking fn for
// each and returning the number of hits. fn may be nil to just count. When fn
// stops the search early, the count covers only the hits reported so far.
//
// The traversal is depth first over an explicit stack with one frame per tree
// level; memory use is bounded by the height of the tree, never by the number
// of entries or hits.
func (t *Tree) Search(q Rect, fn HitFunc) (int, error) {
	if q.Dims() != t.dims {
		return 0, fmt.Errorf("%w: query has %d dims, tree has %d", ErrDimensionMismatch, q.Dims(), t.dims)
	}

	stack := make([]frame, t.rootLevel+1)
	top := 0
	if err := t.readFrame(stack, top, t.rootPos, t.rootLevel); err != nil {
		return 0, err
	}

	hits := 0
	for top >= 0 {
		f := &stack[top]
		if f.node.Level > 0 {
			// resume scanning this internal node at its cursor and descend
			// into the first overlapping child not yet visited
			descended := false
			for i := f.branch; i < len(f.node.Branches); i++ {
				if !q.Overlaps(f.node.Branches[i].Rect) {
					continue
				}
				f.branch = i + 1
				top++
				if err := t.readFrame(stack, top, f.node.Branches[i].Child.Pos(), f.node.Level-1); err != nil {
					return hits, err
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
		for _, b := range f.node.Branches {
			if !q.Overlaps(b.Rect) {
				continue
			}
			hits++
			if fn != nil && !fn(b.Child.ID(), b.Rect.Copy()) {
				return hits, nil
			}
		}
		top--
	}
	return hits, nil
}
