package rtree

import (
	"fmt"

	"go.uber.org/zap"
)

// SplitStrategy selects the algorithm used to partition an overflowing node.
type SplitStrategy int

const (
	// SplitQuadratic is Guttman's quadratic split.
	SplitQuadratic SplitStrategy = iota
	// SplitRStar is the R*-tree split with forced reinsertion.
	SplitRStar
)

func (s SplitStrategy) String() string {
	switch s {
	case SplitQuadratic:
		return "quadratic"
	case SplitRStar:
		return "rstar"
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// maxLevels bounds the height of any tree. With a minimum branching factor of
// two the bound is never reached before node positions overflow.
const maxLevels = 32

const (
	defaultCard             = 8
	defaultReinsertFraction = 0.3
)

type config struct {
	nodeCard         int
	leafCard         int
	minNodeFill      int
	minLeafFill      int
	strategy         SplitStrategy
	reinsertFraction float64
	log              *zap.Logger
}

// Option adjusts tree construction.
type Option func(*config)

// WithNodeCard sets the branch capacity of internal nodes.
func WithNodeCard(card int) Option {
	return func(c *config) { c.nodeCard = card }
}

// WithLeafCard sets the entry capacity of leaf nodes.
func WithLeafCard(card int) Option {
	return func(c *config) { c.leafCard = card }
}

// WithCard sets both capacities at once.
func WithCard(card int) Option {
	return func(c *config) { c.nodeCard, c.leafCard = card, card }
}

// WithMinNodeFill overrides the minimum branch count of non root internal
// nodes. The default is half the node capacity.
func WithMinNodeFill(min int) Option {
	return func(c *config) { c.minNodeFill = min }
}

// WithMinLeafFill overrides the minimum entry count of non root leaves. The
// default is half the leaf capacity.
func WithMinLeafFill(min int) Option {
	return func(c *config) { c.minLeafFill = min }
}

// WithSplitStrategy selects the node splitting strategy.
func WithSplitStrategy(s SplitStrategy) Option {
	return func(c *config) { c.strategy = s }
}

// WithReinsertFraction sets the fraction of an overflowing node's branches
// removed by R* forced reinsertion. Ignored under SplitQuadratic.
func WithReinsertFraction(f float64) Option {
	return func(c *config) { c.reinsertFraction = f }
}

// WithLogger attaches a logger for debug events (splits, reinsertion, root
// growth and collapse). The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) { c.log = l }
}

// Tree is a handle on one spatial index: its dimensionality, capacities, fill
// thresholds, split strategy and the node store holding its pages. Create
// with New. A Tree must not be used from multiple goroutines concurrently.
type Tree struct {
	dims             int
	nodeCard         int
	leafCard         int
	minNodeFill      int
	minLeafFill      int
	strategy         SplitStrategy
	reinsertFraction float64
	log              *zap.Logger

	store     NodeStore
	rootPos   int64
	rootLevel int
	nNodes    int
	nLeaves   int
}

// New creates an empty tree of the given dimensionality over store. The store
// must be empty and must accommodate max(node card, leaf card) branches per
// node; for a FileStore that means Card() at least that large.
func New(dims int, store NodeStore, opts ...Option) (*Tree, error) {
	cfg := config{
		nodeCard:         defaultCard,
		leafCard:         defaultCard,
		strategy:         SplitQuadratic,
		reinsertFraction: defaultReinsertFraction,
	}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.minNodeFill == 0 {
		cfg.minNodeFill = cfg.nodeCard / 2
	}
	if cfg.minLeafFill == 0 {
		cfg.minLeafFill = cfg.leafCard / 2
	}
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}

	if err := validateConfig(dims, &cfg); err != nil {
		return nil, err
	}

	t := &Tree{
		dims:             dims,
		nodeCard:         cfg.nodeCard,
		leafCard:         cfg.leafCard,
		minNodeFill:      cfg.minNodeFill,
		minLeafFill:      cfg.minLeafFill,
		strategy:         cfg.strategy,
		reinsertFraction: cfg.reinsertFraction,
		log:              cfg.log,
		store:            store,
	}

	// the empty tree is a single empty leaf
	pos, err := store.Allocate(0)
	if err != nil {
		return nil, fmt.Errorf("allocate root: %w", err)
	}
	root := Node{Level: 0}
	if err := store.Write(pos, &root); err != nil {
		return nil, fmt.Errorf("write root: %w", err)
	}
	t.rootPos = pos
	t.rootLevel = 0
	t.nNodes = 1
	return t, nil
}

func validateConfig(dims int, cfg *config) error {
	if dims < 1 {
		return fmt.Errorf("%w: dims %d", ErrInvalidConfig, dims)
	}
	if cfg.nodeCard < 2 || cfg.leafCard < 2 {
		return fmt.Errorf("%w: node card %d, leaf card %d", ErrInvalidConfig, cfg.nodeCard, cfg.leafCard)
	}
	if cfg.minNodeFill < 1 || cfg.minNodeFill > cfg.nodeCard/2 {
		return fmt.Errorf("%w: min node fill %d for card %d", ErrInvalidConfig, cfg.minNodeFill, cfg.nodeCard)
	}
	if cfg.minLeafFill < 1 || cfg.minLeafFill > cfg.leafCard/2 {
		return fmt.Errorf("%w: min leaf fill %d for card %d", ErrInvalidConfig, cfg.minLeafFill, cfg.leafCard)
	}
	if cfg.reinsertFraction <= 0 || cfg.reinsertFraction >= 1 {
		return fmt.Errorf("%w: reinsert fraction %v", ErrInvalidConfig, cfg.reinsertFraction)
	}
	return nil
}

// Dims returns the dimensionality of rectangles in the tree.
func (t *Tree) Dims() int { return t.dims }

// RootLevel returns the level of the root node; leaves are level 0, so this
// is also the height of the tree minus one.
func (t *Tree) RootLevel() int { return t.rootLevel }

// NodeCount returns the number of live nodes, including the root.
func (t *Tree) NodeCount() int { return t.nNodes }

// LeafCount returns the number of leaf entries currently indexed.
func (t *Tree) LeafCount() int { return t.nLeaves }

// Strategy returns the split strategy the tree was created with.
func (t *Tree) Strategy() SplitStrategy { return t.strategy }

// maxCard returns the branch capacity at a level.
func (t *Tree) maxCard(level int) int {
	if level > 0 {
		return t.nodeCard
	}
	return t.leafCard
}

// minFill returns the minimum branch count of a non root node at a level.
func (t *Tree) minFill(level int) int {
	if level > 0 {
		return t.minNodeFill
	}
	return t.minLeafFill
}

// frame is one level of an explicit depth first traversal stack: the node, the
// position it was read from, and the branch cursor where scanning resumes.
// Because traversal is strictly depth first, at most one frame per level is
// ever live, so a stack of rootLevel+1 frames always suffices.
type frame struct {
	pos    int64
	node   Node
	branch int
}

// readFrame loads the node at pos into the frame at stack depth top.
func (t *Tree) readFrame(s []frame, top int, pos int64, level int) error {
	s[top].pos = pos
	s[top].branch = 0
	if err := t.store.Read(pos, level, &s[top].node); err != nil {
		return err
	}
	if s[top].node.Level != level {
		return fmt.Errorf("%w: node at %d has level %d, expected %d",
			ErrInvariantViolated, pos, s[top].node.Level, level)
	}
	return nil
}
