package rtree

import "errors"

var (
	ErrInvalidConfig     = errors.New("invalid tree configuration")
	ErrDimensionMismatch = errors.New("rectangle dimensionality does not match the tree")
	ErrRectBounds        = errors.New("rectangle lower bound exceeds upper bound")
	ErrLevelOutOfRange   = errors.New("target level is outside the current tree height")
	ErrInvariantViolated = errors.New("internal structure invariant violated")
)

var (
	ErrBadPosition    = errors.New("node position is not valid for this store")
	ErrStoreGeometry  = errors.New("node does not fit the store record geometry")
	ErrStoreClosed    = errors.New("the node store has been closed")
	ErrBadStoreHeader = errors.New("store file header is missing or malformed")
	ErrBadSnapshot    = errors.New("snapshot data is malformed")
)
