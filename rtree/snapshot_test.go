package rtree_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoplex/go-spatialindex/rtree"
	"github.com/geoplex/go-spatialindex/rtreetesting"
)

// TestSnapshotRoundTrip serialises a memory backed tree and restores it into
// both store kinds; the restored trees must answer every query identically.
func TestSnapshotRoundTrip(t *testing.T) {
	for _, strategy := range []rtree.SplitStrategy{rtree.SplitQuadratic, rtree.SplitRStar} {
		t.Run(strategy.String(), func(t *testing.T) {
			src, err := rtree.New(2, rtree.NewMemStore(),
				rtree.WithCard(6), rtree.WithSplitStrategy(strategy))
			require.NoError(t, err)
			c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 31})
			c.InsertAll(src, c.GenerateEntries(150))

			var buf bytes.Buffer
			require.NoError(t, src.WriteSnapshot(&buf))
			raw := buf.Bytes()

			fs, err := rtree.CreateFileStore(filepath.Join(t.TempDir(), "restored.rtree"), 2, 6)
			require.NoError(t, err)
			t.Cleanup(func() { fs.Close() })

			restores := map[string]rtree.NodeStore{
				"mem":  rtree.NewMemStore(),
				"file": fs,
			}
			for name, store := range restores {
				t.Run(name, func(t *testing.T) {
					got, err := rtree.ReadSnapshot(bytes.NewReader(raw), store)
					require.NoError(t, err)
					require.NoError(t, got.CheckConsistency())

					assert.Equal(t, src.Dims(), got.Dims())
					assert.Equal(t, src.Strategy(), got.Strategy())
					assert.Equal(t, src.RootLevel(), got.RootLevel())
					assert.Equal(t, src.NodeCount(), got.NodeCount())
					assert.Equal(t, src.LeafCount(), got.LeafCount())

					for i := 0; i < 30; i++ {
						q := c.RandomRect()
						assert.Equal(t,
							rtreetesting.SearchIDs(t, src, q),
							rtreetesting.SearchIDs(t, got, q))
					}
				})
			}
		})
	}
}

func TestSnapshotRestoredTreeIsMutable(t *testing.T) {
	src, err := rtree.New(2, rtree.NewMemStore(), rtree.WithCard(4))
	require.NoError(t, err)
	c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 37})
	entries := c.GenerateEntries(60)
	c.InsertAll(src, entries)

	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))
	got, err := rtree.ReadSnapshot(&buf, rtree.NewMemStore())
	require.NoError(t, err)

	ok, err := got.DeleteItem(entries[0].Rect, entries[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, got.InsertItem(c.RandomRect(), c.NewID()))
	require.NoError(t, got.CheckConsistency())
	assert.Equal(t, 60, got.LeafCount())
}

func TestSnapshotOfEmptyTree(t *testing.T) {
	src, err := rtree.New(3, rtree.NewMemStore())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))
	got, err := rtree.ReadSnapshot(&buf, rtree.NewMemStore())
	require.NoError(t, err)
	require.NoError(t, got.CheckConsistency())
	assert.Equal(t, 3, got.Dims())
	assert.Equal(t, 0, got.LeafCount())
	assert.Equal(t, 1, got.NodeCount())
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("XXXX\x00\x00\x00\x10abcdefghijklmnop")},
		{"truncated header", []byte("GXSN\x00\x00\x01\x00")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := rtree.ReadSnapshot(bytes.NewReader(tt.data), rtree.NewMemStore())
			assert.ErrorIs(t, err, rtree.ErrBadSnapshot)
		})
	}
}

func TestReadSnapshotRejectsTruncatedStream(t *testing.T) {
	src, err := rtree.New(2, rtree.NewMemStore(), rtree.WithCard(4))
	require.NoError(t, err)
	c := rtreetesting.NewTestContext(t, rtreetesting.TestConfig{Seed: 41})
	c.InsertAll(src, c.GenerateEntries(40))

	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))
	raw := buf.Bytes()

	_, err = rtree.ReadSnapshot(bytes.NewReader(raw[:len(raw)-10]), rtree.NewMemStore())
	assert.ErrorIs(t, err, rtree.ErrBadSnapshot)
}
