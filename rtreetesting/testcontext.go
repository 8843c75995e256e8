// Package rtreetesting provides shared support for exercising spatial index
// implementations: deterministic dataset generation, a brute force reference
// index, and helpers for comparing query results. It exists so that package
// tests and benchmarks do not each grow their own slightly different copy of
// this machinery.
package rtreetesting

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/geoplex/go-spatialindex/rtree"
)

// TestConfig shapes generated datasets. The RNG is seeded from Seed so a
// failing run can always be reproduced; fix the seed in the test.
type TestConfig struct {
	Seed    int64
	Dims    int     // defaults to 2
	Extent  float64 // coordinates fall in [0, Extent); defaults to 1000
	MaxEdge float64 // maximum rectangle edge length; defaults to Extent / 50
}

type TestContext struct {
	T   *testing.T
	Cfg TestConfig
	Rng *rand.Rand
}

func NewTestContext(t *testing.T, cfg TestConfig) *TestContext {
	if cfg.Dims == 0 {
		cfg.Dims = 2
	}
	if cfg.Extent == 0 {
		cfg.Extent = 1000
	}
	if cfg.MaxEdge == 0 {
		cfg.MaxEdge = cfg.Extent / 50
	}
	return &TestContext{
		T:   t,
		Cfg: cfg,
		Rng: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Entry is one generated leaf entry.
type Entry struct {
	ID   uint64
	Rect rtree.Rect
}

// NewID returns a fresh random nonzero 64 bit identifier. Identifiers are
// drawn from a v4 uuid rather than the seeded RNG so that ids never collide
// between contexts even when rectangle streams are identical.
func (c *TestContext) NewID() uint64 {
	for {
		u := uuid.New()
		if id := binary.BigEndian.Uint64(u[:8]); id != 0 {
			return id
		}
	}
}

// RandomRect returns a rectangle with uniform random origin and edges.
func (c *TestContext) RandomRect() rtree.Rect {
	min := make([]float64, c.Cfg.Dims)
	max := make([]float64, c.Cfg.Dims)
	for d := range min {
		min[d] = c.Rng.Float64() * c.Cfg.Extent
		max[d] = min[d] + c.Rng.Float64()*c.Cfg.MaxEdge
	}
	r, err := rtree.NewRect(min, max)
	require.NoError(c.T, err)
	return r
}

// GenerateEntries returns n entries with sequential ids starting at 1.
// Sequential ids keep failures easy to read; use NewID where global
// uniqueness matters instead.
func (c *TestContext) GenerateEntries(n int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{ID: uint64(i + 1), Rect: c.RandomRect()}
	}
	return entries
}

// InsertAll inserts every entry as a leaf and fails the test on any error.
func (c *TestContext) InsertAll(t *rtree.Tree, entries []Entry) {
	for _, e := range entries {
		require.NoError(c.T, t.InsertItem(e.Rect, e.ID))
	}
}

// SearchIDs runs an overlap query and returns the reported id set.
func SearchIDs(t *testing.T, tree *rtree.Tree, q rtree.Rect) map[uint64]bool {
	ids := make(map[uint64]bool)
	n, err := tree.Search(q, func(id uint64, _ rtree.Rect) bool {
		ids[id] = true
		return true
	})
	require.NoError(t, err)
	require.Len(t, ids, n, "search reported a duplicate id")
	return ids
}
