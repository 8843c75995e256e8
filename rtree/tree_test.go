package rtree_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplex/go-spatialindex/rtree"
	"github.com/geoplex/go-spatialindex/rtreetesting"
)

func rect(t *testing.T, min, max []float64) rtree.Rect {
	t.Helper()
	r, err := rtree.NewRect(min, max)
	require.NoError(t, err)
	return r
}

// forEachVariant runs fn once per split strategy and node store combination.
func forEachVariant(t *testing.T, card int, fn func(t *testing.T, tree *rtree.Tree)) {
	for _, strategy := range []rtree.SplitStrategy{rtree.SplitQuadratic, rtree.SplitRStar} {
		for _, backing := range []string{"mem", "file"} {
			t.Run(strategy.String()+"/"+backing, func(t *testing.T) {
				var store rtree.NodeStore
				if backing == "mem" {
					store = rtree.NewMemStore()
				} else {
					fs, err := rtree.CreateFileStore(filepath.Join(t.TempDir(), "nodes.rtree"), 2, card)
					require.NoError(t, err)
					t.Cleanup(func() { fs.Close() })
					store = fs
				}
				tree, err := rtree.New(2, store,
					rtree.WithCard(card), rtree.WithSplitStrategy(strategy))
				require.NoError(t, err)
				fn(t, tree)
			})
		}
	}
}

func TestTreeSmallScenario(t *testing.T) {
	entries := []rtreetesting.Entry{
		{ID: 1, Rect: rect(t, []float64{0, 0}, []float64{1, 1})},
		{ID: 2, Rect: rect(t, []float64{2, 2}, []float64{3, 3})},
		{ID: 3, Rect: rect(t, []float64{10, 10}, []float64{11, 11})},
		{ID: 4, Rect: rect(t, []float64{0, 5}, []float64{1, 6})},
		{ID: 5, Rect: rect(t, []float64{5, 0}, []float64{6, 1})},
		{ID: 6, Rect: rect(t, []float64{4, 4}, []float64{4.5, 4.5})},
	}
	q := rect(t, []float64{0, 0}, []float64{4, 4})

	forEachVariant(t, 4, func(t *testing.T, tree *rtree.Tree) {
		for _, e := range entries {
			require.NoError(t, tree.InsertItem(e.Rect, e.ID))
		}
		require.NoError(t, tree.CheckConsistency())
		assert.Equal(t, 6, tree.LeafCount())

		// id 6 only touches the query corner, which still counts as overlap
		assert.Equal(t, map[uint64]bool{1: true, 2: true, 6: true},
			rtreetesting.SearchIDs(t, tree, q))

		ok, err := tree.DeleteItem(entries[1].Rect, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, tree.CheckConsistency())
		assert.Equal(t, 5, tree.LeafCount())

		assert.Equal(t, map[uint64]bool{1: true, 6: true},
			rtreetesting.SearchIDs(t, tree, q))

		// deleting the same entry again finds nothing and changes nothing
		ok, err = tree.DeleteItem(entries[1].Rect, 2)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 5, tree.LeafCount())
		require.NoError(t, tree.CheckConsistency())
	})
}

func TestTreeEmpty(t *testing.T) {
	tree, err := rtree.New(2, rtree.NewMemStore())
	require.NoError(t, err)
	assert.Equal(t, 0, tree.LeafCount())
	assert.Equal(t, 1, tree.NodeCount())
	assert.Equal(t, 0, tree.RootLevel())
	require.NoError(t, tree.CheckConsistency())

	n, err := tree.Search(rect(t, []float64{0, 0}, []float64{100, 100}), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ok, err := tree.DeleteItem(rect(t, []float64{0, 0}, []float64{1, 1}), 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		dims int
		opts []rtree.Option
	}{
		{"zero dims", 0, nil},
		{"card too small", 2, []rtree.Option{rtree.WithCard(1)}},
		{"min fill above half card", 2, []rtree.Option{rtree.WithCard(4), rtree.WithMinLeafFill(3)}},
		{"negative min fill", 2, []rtree.Option{rtree.WithMinNodeFill(-1)}},
		{"reinsert fraction too big", 2, []rtree.Option{rtree.WithReinsertFraction(1)}},
		{"reinsert fraction too small", 2, []rtree.Option{rtree.WithReinsertFraction(0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rtree.New(tt.dims, rtree.NewMemStore(), tt.opts...)
			assert.ErrorIs(t, err, rtree.ErrInvalidConfig)
		})
	}
}

// TestTreeMatchesReference drives a tree and a brute force reference index
// with the same operations and requires identical query results throughout.
func TestTreeMatchesReference(t *testing.T) {
	forEachVariant(t, 8, func(t *testing.T, tree *rtree.Tree) {
		c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 42})
		ref := rtreetesting.NewReference()

		entries := c.GenerateEntries(400)
		for _, e := range entries {
			require.NoError(t, tree.InsertItem(e.Rect, e.ID))
			ref.Insert(e.Rect, e.ID)
		}
		require.NoError(t, tree.CheckConsistency())
		require.Equal(t, ref.Len(), tree.LeafCount())
		assert.Greater(t, tree.RootLevel(), 0, "400 entries must overflow a single leaf")

		compare := func() {
			for i := 0; i < 50; i++ {
				q := c.RandomRect()
				assert.Equal(t, ref.Search(q), rtreetesting.SearchIDs(t, tree, q),
					"query %s diverged from the reference", q)
			}
		}
		compare()

		// delete half the entries, interleaved, and compare again
		for i := 0; i < len(entries); i += 2 {
			ok, err := tree.DeleteItem(entries[i].Rect, entries[i].ID)
			require.NoError(t, err)
			require.True(t, ok, "entry %d must be deletable", entries[i].ID)
			require.True(t, ref.Delete(entries[i].ID))
		}
		require.NoError(t, tree.CheckConsistency())
		require.Equal(t, ref.Len(), tree.LeafCount())
		compare()
	})
}

func TestTreeDump(t *testing.T) {
	tree, err := rtree.New(2, rtree.NewMemStore(), rtree.WithCard(4))
	require.NoError(t, err)
	c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 7})
	c.InsertAll(tree, c.GenerateEntries(20))

	var sb strings.Builder
	require.NoError(t, tree.Dump(&sb))
	assert.Contains(t, sb.String(), "level 0")
	assert.Contains(t, sb.String(), "entry")
}
