package rtree

import "fmt"

// MemStore keeps nodes in process memory. Positions are indices into the node
// slice. Freed positions are recycled last in, first out, mirroring the file
// store's free list so trees behave identically over either medium.
//
// The zero value is not usable; construct with NewMemStore.
type MemStore struct {
	nodes []Node
	free  []int64
}

// NewMemStore returns an empty memory backed node store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Allocate reserves a slot for a new node and returns its index.
func (s *MemStore) Allocate(level int) (int64, error) {
	if n := len(s.free); n > 0 {
		pos := s.free[n-1]
		s.free = s.free[:n-1]
		s.nodes[pos].init(level)
		return pos, nil
	}
	s.nodes = append(s.nodes, Node{Level: level})
	return int64(len(s.nodes) - 1), nil
}

// Read copies the node at pos into n.
func (s *MemStore) Read(pos int64, level int, n *Node) error {
	if pos < 0 || pos >= int64(len(s.nodes)) {
		return fmt.Errorf("%w: %d of %d", ErrBadPosition, pos, len(s.nodes))
	}
	n.copyFrom(&s.nodes[pos])
	return nil
}

// Write copies n into the slot at pos.
func (s *MemStore) Write(pos int64, n *Node) error {
	if pos < 0 || pos >= int64(len(s.nodes)) {
		return fmt.Errorf("%w: %d of %d", ErrBadPosition, pos, len(s.nodes))
	}
	s.nodes[pos].copyFrom(n)
	return nil
}

// Free marks the slot at pos for reuse by a later Allocate.
func (s *MemStore) Free(pos int64, level int) {
	if pos < 0 || pos >= int64(len(s.nodes)) {
		return
	}
	s.nodes[pos].init(0)
	s.free = append(s.free, pos)
}
