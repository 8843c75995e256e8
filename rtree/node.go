package rtree

import "fmt"

// Child is a tagged reference to whatever lives below a branch: the position
// of another node for branches in internal nodes, or an opaque caller owned
// identifier for entries in leaf nodes. Which of the two is valid is
// determined solely by the level of the owning node, so a Child must never be
// interpreted without that context.
type Child struct {
	pos int64
	id  uint64
}

// ChildPos returns a reference to an internal node by store position.
func ChildPos(pos int64) Child { return Child{pos: pos} }

// ChildID returns a leaf entry reference carrying a caller owned identifier.
func ChildID(id uint64) Child { return Child{id: id} }

// Pos returns the referenced node position. Only meaningful when the owning
// node has level > 0.
func (c Child) Pos() int64 { return c.pos }

// ID returns the leaf identifier. Only meaningful when the owning node is a
// leaf (level 0).
func (c Child) ID() uint64 { return c.id }

// Branch pairs a child reference with the rectangle bounding everything
// reachable through it. For internal branches the rectangle is the exact
// union of the child subtree's rectangles; the tree maintains that after
// every mutation.
type Branch struct {
	Rect  Rect
	Child Child
}

// Node is one page of the tree: its level (0 for leaves), and its active
// branches, kept dense. The capacity limits (node card for internal nodes,
// leaf card for leaves) are enforced by the tree, not by the node itself.
type Node struct {
	Level    int
	Branches []Branch
}

// init resets n to an empty node of the given level, retaining the branch
// slice capacity.
func (n *Node) init(level int) {
	n.Level = level
	n.Branches = n.Branches[:0]
}

// cover returns the minimum bounding rectangle of all active branches. It
// must not be called on an empty node.
func (n *Node) cover() Rect {
	c := n.Branches[0].Rect.Copy()
	for _, b := range n.Branches[1:] {
		c = c.Combine(b.Rect)
	}
	return c
}

// disconnect removes branch i, moving the last active branch into its slot to
// keep the branch array dense.
func (n *Node) disconnect(i int) {
	last := len(n.Branches) - 1
	n.Branches[i] = n.Branches[last]
	n.Branches[last] = Branch{}
	n.Branches = n.Branches[:last]
}

// pickBranch selects the branch requiring least enlargement to cover r,
// resolving ties in favour of the branch with the smallest current volume.
func (n *Node) pickBranch(r Rect) int {
	best := 0
	first := true
	var bestIncr, bestVol float64
	for i, b := range n.Branches {
		vol := b.Rect.SphericalVolume()
		incr := b.Rect.Combine(r).SphericalVolume() - vol
		if first || incr < bestIncr || (incr == bestIncr && vol < bestVol) {
			best, bestIncr, bestVol = i, incr, vol
			first = false
		}
	}
	return best
}

// copyFrom makes n a deep copy of o. Branch rectangles are duplicated so the
// two nodes never share bound storage.
func (n *Node) copyFrom(o *Node) {
	n.Level = o.Level
	n.Branches = n.Branches[:0]
	for _, b := range o.Branches {
		n.Branches = append(n.Branches, Branch{Rect: b.Rect.Copy(), Child: b.Child})
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("node{level %d, %d branches}", n.Level, len(n.Branches))
}
