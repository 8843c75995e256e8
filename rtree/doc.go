// Package rtree implements a multidimensional spatial index for axis aligned
// bounding boxes, supporting overlap queries over large collections of
// geometric features under incremental insertion and deletion.
//
// The structure is a height balanced, paged R-tree. Every node lives in a
// NodeStore and is addressed by a stable position; the store may keep nodes in
// memory (positions are slice indices) or in a file of fixed size records
// (positions are byte offsets). The index core is indifferent to the medium.
//
// Two node splitting strategies are provided and selected per tree:
//
//   - SplitQuadratic, Guttman's quadratic split: seed the two groups with the
//     pair of rectangles that waste the most volume when combined, then grow
//     the groups greedily.
//   - SplitRStar, the R*-tree split: choose the split axis by the smallest
//     total margin over all valid distributions, then the cut point with the
//     least overlap between the two covers. The R* strategy additionally
//     performs forced reinsertion: the first time a node on a given level
//     overflows during an insert, a fraction of its branches farthest from
//     the parent cover's centre are removed and reinserted from the top,
//     which often avoids the split entirely and improves tree quality.
//
// Traversal for search, insertion and deletion is iterative over an explicit
// stack with one frame per tree level, so traversal state is bounded by the
// height of the tree rather than by the number of hits or entries.
//
// # Navigating the package
//
//   - rect.go           rectangle algebra (overlap, combine, scores)
//   - node.go           nodes, branches and the child reference model
//   - store.go          the NodeStore contract
//   - memstore.go       memory backed store
//   - filestore.go      file backed store with position recycling
//   - search.go         overlap queries
//   - insert.go         insertion, split propagation, forced reinsertion
//   - delete.go         deletion, underflow elimination, root collapse
//   - splitquadratic.go quadratic partitioning
//   - splitrstar.go     R* partitioning
//   - snapshot.go       portable tree snapshots (CBOR header, snappy body)
//   - check.go          structural invariant verification
//
// A Tree is not safe for concurrent use. Callers that share a tree across
// goroutines must serialise all operations; independent trees over distinct
// stores are fully independent.
package rtree
