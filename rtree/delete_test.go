package rtree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/geoplex/go-spatialindex/rtree"
	"github.com/geoplex/go-spatialindex/rtreetesting"
)

func TestDeleteMissingLeavesTreeUntouched(t *testing.T) {
	forEachVariant(t, 4, func(t *testing.T, tree *rtree.Tree) {
		c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 5})
		entries := c.GenerateEntries(30)
		c.InsertAll(tree, entries)

		before := tree.LeafCount()
		ok, err := tree.DeleteItem(entries[0].Rect, 999999)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, before, tree.LeafCount())
		require.NoError(t, tree.CheckConsistency())
	})
}

func TestDeleteValidation(t *testing.T) {
	tree, err := rtree.New(2, rtree.NewMemStore())
	require.NoError(t, err)
	_, err = tree.DeleteItem(rect(t, []float64{0}, []float64{1}), 1)
	assert.ErrorIs(t, err, rtree.ErrDimensionMismatch)
}

// TestDeleteAllCollapsesRoot empties a grown tree entry by entry; the root
// must shrink back down to a single empty leaf.
func TestDeleteAllCollapsesRoot(t *testing.T) {
	forEachVariant(t, 4, func(t *testing.T, tree *rtree.Tree) {
		c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 23})
		entries := c.GenerateEntries(120)
		c.InsertAll(tree, entries)
		require.Greater(t, tree.RootLevel(), 0)

		// shuffle the deletion order so elimination paths vary
		c.Rng.Shuffle(len(entries), func(i, j int) {
			entries[i], entries[j] = entries[j], entries[i]
		})
		for i, e := range entries {
			ok, err := tree.DeleteItem(e.Rect, e.ID)
			require.NoError(t, err)
			require.True(t, ok, "entry %d must be present", e.ID)
			if i%10 == 0 {
				require.NoError(t, tree.CheckConsistency())
			}
		}

		assert.Equal(t, 0, tree.LeafCount())
		assert.Equal(t, 0, tree.RootLevel())
		assert.Equal(t, 1, tree.NodeCount())
		require.NoError(t, tree.CheckConsistency())
	})
}

// TestDeleteEliminatesUnderfullNodes drains one spatial cluster so its leaves
// fall below the minimum fill and get folded back into the rest of the tree.
func TestDeleteEliminatesUnderfullNodes(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tree, err := rtree.New(2, rtree.NewMemStore(),
		rtree.WithCard(4), rtree.WithLogger(zap.New(core)))
	require.NoError(t, err)

	// two tight clusters far apart, so splits separate them cleanly
	var entries []rtreetesting.Entry
	for i := 0; i < 20; i++ {
		x := float64(i)
		entries = append(entries,
			rtreetesting.Entry{ID: uint64(i + 1), Rect: rect(t, []float64{x, 0}, []float64{x + 0.5, 0.5})},
			rtreetesting.Entry{ID: uint64(i + 101), Rect: rect(t, []float64{x, 1000}, []float64{x + 0.5, 1000.5})},
		)
	}
	for _, e := range entries {
		require.NoError(t, tree.InsertItem(e.Rect, e.ID))
	}
	require.NoError(t, tree.CheckConsistency())

	// drain the far cluster completely
	for i := 0; i < 20; i++ {
		x := float64(i)
		ok, err := tree.DeleteItem(rect(t, []float64{x, 1000}, []float64{x + 0.5, 1000.5}), uint64(i+101))
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, tree.CheckConsistency())
	assert.Equal(t, 20, tree.LeafCount())
	assert.Greater(t, logs.FilterMessage("underfull node eliminated").Len(), 0)

	// the near cluster is intact
	ids := rtreetesting.SearchIDs(t, tree, rect(t, []float64{0, 0}, []float64{20, 1}))
	assert.Len(t, ids, 20)
}
