package rtreetesting

import "github.com/geoplex/go-spatialindex/rtree"

// Reference is a brute force linear scan index with the same observable
// behaviour as a tree. Tests drive a tree and a Reference with the same
// operations and require identical query results.
type Reference struct {
	entries map[uint64]rtree.Rect
}

func NewReference() *Reference {
	return &Reference{entries: make(map[uint64]rtree.Rect)}
}

func (r *Reference) Insert(rect rtree.Rect, id uint64) {
	r.entries[id] = rect.Copy()
}

// Delete removes the entry and reports whether it was present.
func (r *Reference) Delete(id uint64) bool {
	if _, ok := r.entries[id]; !ok {
		return false
	}
	delete(r.entries, id)
	return true
}

func (r *Reference) Len() int { return len(r.entries) }

// Search returns the ids of all entries overlapping q.
func (r *Reference) Search(q rtree.Rect) map[uint64]bool {
	ids := make(map[uint64]bool)
	for id, rect := range r.entries {
		if q.Overlaps(rect) {
			ids[id] = true
		}
	}
	return ids
}
