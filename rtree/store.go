package rtree

// NodeStore is the backing storage contract the tree requires. Positions
// returned by Allocate are stable until freed and are never reused while the
// node at them is still reachable. A Write replaces the whole node record;
// the tree never depends on partially written nodes being observable.
//
// Stores need not self describe node levels: the tree supplies the expected
// level on Read from its own structural knowledge, and stores may use it to
// validate or simply ignore it.
//
// A store is used by exactly one tree at a time and inherits the tree's
// single threaded discipline.
type NodeStore interface {
	// Allocate reserves storage for a new node at the given tree level and
	// returns its position. The contents at the position are undefined until
	// the first Write.
	Allocate(level int) (int64, error)

	// Read fills n with the node stored at pos. The returned node must not
	// alias store internals; a subsequent Write of a different node at pos
	// must not change n.
	Read(pos int64, level int, n *Node) error

	// Write persists n at pos, replacing any previous contents.
	Write(pos int64, n *Node) error

	// Free releases the node at pos for recycling. The position must not be
	// referenced by any reachable branch.
	Free(pos int64, level int)
}
