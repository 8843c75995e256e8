package rtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func branchAt(t *testing.T, id uint64, min, max []float64) Branch {
	t.Helper()
	return Branch{Rect: mustRect(t, min, max), Child: ChildID(id)}
}

func TestNodeCover(t *testing.T) {
	n := Node{Level: 0, Branches: []Branch{
		branchAt(t, 1, []float64{0, 0}, []float64{1, 1}),
		branchAt(t, 2, []float64{5, -2}, []float64{6, 0}),
		branchAt(t, 3, []float64{2, 3}, []float64{3, 4}),
	}}
	c := n.cover()
	assert.Equal(t, []float64{0, -2}, c.Min)
	assert.Equal(t, []float64{6, 4}, c.Max)
}

func TestNodeDisconnectKeepsBranchesDense(t *testing.T) {
	n := Node{Level: 0, Branches: []Branch{
		branchAt(t, 1, []float64{0, 0}, []float64{1, 1}),
		branchAt(t, 2, []float64{2, 2}, []float64{3, 3}),
		branchAt(t, 3, []float64{4, 4}, []float64{5, 5}),
	}}
	n.disconnect(0)
	assert.Len(t, n.Branches, 2)
	// the last branch moved into the vacated slot
	assert.Equal(t, uint64(3), n.Branches[0].Child.ID())
	assert.Equal(t, uint64(2), n.Branches[1].Child.ID())

	n.disconnect(1)
	assert.Len(t, n.Branches, 1)
	assert.Equal(t, uint64(3), n.Branches[0].Child.ID())
}

func TestNodePickBranch(t *testing.T) {
	n := Node{Level: 1, Branches: []Branch{
		{Rect: mustRect(t, []float64{0, 0}, []float64{2, 2}), Child: ChildPos(10)},
		{Rect: mustRect(t, []float64{100, 100}, []float64{102, 102}), Child: ChildPos(20)},
	}}

	// already covered by the first branch: zero enlargement
	assert.Equal(t, 0, n.pickBranch(mustRect(t, []float64{1, 1}, []float64{2, 2})))
	// nearer the second cluster
	assert.Equal(t, 1, n.pickBranch(mustRect(t, []float64{99, 100}, []float64{100, 101})))
}

func TestNodePickBranchTieBreaksOnVolume(t *testing.T) {
	// both branches cover the query, so enlargement ties at zero and the
	// smaller branch must win
	n := Node{Level: 1, Branches: []Branch{
		{Rect: mustRect(t, []float64{0, 0}, []float64{10, 10}), Child: ChildPos(10)},
		{Rect: mustRect(t, []float64{0, 0}, []float64{4, 4}), Child: ChildPos(20)},
	}}
	assert.Equal(t, 1, n.pickBranch(mustRect(t, []float64{1, 1}, []float64{2, 2})))
}

func TestNodeCopyFromIsDeep(t *testing.T) {
	src := Node{Level: 0, Branches: []Branch{
		branchAt(t, 7, []float64{0, 0}, []float64{1, 1}),
	}}
	var dst Node
	dst.copyFrom(&src)
	dst.Branches[0].Rect.Min[0] = 99
	assert.Equal(t, 0.0, src.Branches[0].Rect.Min[0])
}
