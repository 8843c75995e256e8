package rtree

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/fxamacker/cbor/v2"
	"github.com/golang/snappy"
	"go.uber.org/zap"
)

// A snapshot is a self contained, portable serialisation of a whole tree:
// a CBOR header carrying the tree parameters, followed by a snappy compressed
// stream of node records in post order. Internal child references in the
// stream name earlier records by ordinal rather than by store position, so a
// snapshot taken from a memory backed tree restores cleanly into a file
// backed one and vice versa.

const snapshotMagic = "GXSN"

type snapshotHeader struct {
	Version          int     `cbor:"1,keyasint"`
	Dims             int     `cbor:"2,keyasint"`
	NodeCard         int     `cbor:"3,keyasint"`
	LeafCard         int     `cbor:"4,keyasint"`
	MinNodeFill      int     `cbor:"5,keyasint"`
	MinLeafFill      int     `cbor:"6,keyasint"`
	Strategy         int     `cbor:"7,keyasint"`
	ReinsertFraction float64 `cbor:"8,keyasint"`
	RootLevel        int     `cbor:"9,keyasint"`
	Nodes            int     `cbor:"10,keyasint"`
	Leaves           int     `cbor:"11,keyasint"`
}

const snapshotVersion = 1

// WriteSnapshot serialises the tree to w.
func (t *Tree) WriteSnapshot(w io.Writer) error {
	hdr := snapshotHeader{
		Version:          snapshotVersion,
		Dims:             t.dims,
		NodeCard:         t.nodeCard,
		LeafCard:         t.leafCard,
		MinNodeFill:      t.minNodeFill,
		MinLeafFill:      t.minLeafFill,
		Strategy:         int(t.strategy),
		ReinsertFraction: t.reinsertFraction,
		RootLevel:        t.rootLevel,
		Nodes:            t.nNodes,
		Leaves:           t.nLeaves,
	}
	hb, err := cbor.Marshal(&hdr)
	if err != nil {
		return fmt.Errorf("encode snapshot header: %w", err)
	}
	prefix := make([]byte, 8)
	copy(prefix, snapshotMagic)
	binary.BigEndian.PutUint32(prefix[4:8], uint32(len(hb)))
	if _, err := w.Write(prefix); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}
	if _, err := w.Write(hb); err != nil {
		return fmt.Errorf("write snapshot header: %w", err)
	}

	sw := snappy.NewBufferedWriter(w)
	next := uint64(0)
	var emit func(pos int64, level int) (uint64, error)
	emit = func(pos int64, level int) (uint64, error) {
		var n Node
		if err := t.store.Read(pos, level, &n); err != nil {
			return 0, err
		}
		// children first, so every internal reference points backwards
		ordinals := make([]uint64, len(n.Branches))
		if level > 0 {
			for i, b := range n.Branches {
				ord, err := emit(b.Child.Pos(), level-1)
				if err != nil {
					return 0, err
				}
				ordinals[i] = ord
			}
		}
		rec := make([]byte, 8+len(n.Branches)*(t.dims*16+8))
		binary.BigEndian.PutUint32(rec[0:4], uint32(n.Level))
		binary.BigEndian.PutUint32(rec[4:8], uint32(len(n.Branches)))
		off := 8
		for i, b := range n.Branches {
			for d := 0; d < t.dims; d++ {
				binary.BigEndian.PutUint64(rec[off:off+8], math.Float64bits(b.Rect.Min[d]))
				off += 8
			}
			for d := 0; d < t.dims; d++ {
				binary.BigEndian.PutUint64(rec[off:off+8], math.Float64bits(b.Rect.Max[d]))
				off += 8
			}
			if level > 0 {
				binary.BigEndian.PutUint64(rec[off:off+8], ordinals[i])
			} else {
				binary.BigEndian.PutUint64(rec[off:off+8], b.Child.ID())
			}
			off += 8
		}
		if _, err := sw.Write(rec); err != nil {
			return 0, fmt.Errorf("write snapshot node: %w", err)
		}
		ord := next
		next++
		return ord, nil
	}
	if _, err := emit(t.rootPos, t.rootLevel); err != nil {
		return err
	}
	if err := sw.Close(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot rebuilds a tree from a snapshot into store, which must be
// empty. The tree parameters come from the snapshot header; opts may attach a
// logger but cannot change the recorded geometry.
func ReadSnapshot(r io.Reader, store NodeStore, opts ...Option) (*Tree, error) {
	prefix := make([]byte, 8)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if string(prefix[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrBadSnapshot)
	}
	hlen := binary.BigEndian.Uint32(prefix[4:8])
	if hlen == 0 || hlen > 1<<16 {
		return nil, fmt.Errorf("%w: header length %d", ErrBadSnapshot, hlen)
	}
	hb := make([]byte, hlen)
	if _, err := io.ReadFull(r, hb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	var hdr snapshotHeader
	if err := cbor.Unmarshal(hb, &hdr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}
	if hdr.Version != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadSnapshot, hdr.Version)
	}
	if hdr.Nodes < 1 || hdr.RootLevel < 0 || hdr.RootLevel >= maxLevels || hdr.Leaves < 0 {
		return nil, fmt.Errorf("%w: %d nodes, root level %d", ErrBadSnapshot, hdr.Nodes, hdr.RootLevel)
	}

	cfg := config{
		nodeCard:         hdr.NodeCard,
		leafCard:         hdr.LeafCard,
		minNodeFill:      hdr.MinNodeFill,
		minLeafFill:      hdr.MinLeafFill,
		strategy:         SplitStrategy(hdr.Strategy),
		reinsertFraction: hdr.ReinsertFraction,
	}
	for _, o := range opts {
		o(&cfg)
	}
	cfg.nodeCard, cfg.leafCard = hdr.NodeCard, hdr.LeafCard
	cfg.minNodeFill, cfg.minLeafFill = hdr.MinNodeFill, hdr.MinLeafFill
	if cfg.log == nil {
		cfg.log = zap.NewNop()
	}
	if err := validateConfig(hdr.Dims, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSnapshot, err)
	}

	t := &Tree{
		dims:             hdr.Dims,
		nodeCard:         cfg.nodeCard,
		leafCard:         cfg.leafCard,
		minNodeFill:      cfg.minNodeFill,
		minLeafFill:      cfg.minLeafFill,
		strategy:         cfg.strategy,
		reinsertFraction: cfg.reinsertFraction,
		log:              cfg.log,
		store:            store,
		nNodes:           hdr.Nodes,
		nLeaves:          hdr.Leaves,
	}

	sr := snappy.NewReader(r)
	posOf := make([]int64, hdr.Nodes)
	head := make([]byte, 8)
	var lastLevel int
	for ord := 0; ord < hdr.Nodes; ord++ {
		if _, err := io.ReadFull(sr, head); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrBadSnapshot, ord, err)
		}
		level := int(binary.BigEndian.Uint32(head[0:4]))
		count := int(binary.BigEndian.Uint32(head[4:8]))
		if level < 0 || level > hdr.RootLevel {
			return nil, fmt.Errorf("%w: node %d at level %d", ErrBadSnapshot, ord, level)
		}
		if count > t.maxCard(level) {
			return nil, fmt.Errorf("%w: node %d holds %d branches", ErrBadSnapshot, ord, count)
		}
		body := make([]byte, count*(hdr.Dims*16+8))
		if _, err := io.ReadFull(sr, body); err != nil {
			return nil, fmt.Errorf("%w: node %d: %v", ErrBadSnapshot, ord, err)
		}
		n := Node{Level: level}
		off := 0
		for i := 0; i < count; i++ {
			b := Branch{Rect: Rect{Min: make([]float64, hdr.Dims), Max: make([]float64, hdr.Dims)}}
			for d := 0; d < hdr.Dims; d++ {
				b.Rect.Min[d] = math.Float64frombits(binary.BigEndian.Uint64(body[off : off+8]))
				off += 8
			}
			for d := 0; d < hdr.Dims; d++ {
				b.Rect.Max[d] = math.Float64frombits(binary.BigEndian.Uint64(body[off : off+8]))
				off += 8
			}
			word := binary.BigEndian.Uint64(body[off : off+8])
			off += 8
			if level > 0 {
				if word >= uint64(ord) {
					return nil, fmt.Errorf("%w: node %d references ordinal %d", ErrBadSnapshot, ord, word)
				}
				b.Child = ChildPos(posOf[word])
			} else {
				b.Child = ChildID(word)
			}
			n.Branches = append(n.Branches, b)
		}
		pos, err := store.Allocate(level)
		if err != nil {
			return nil, fmt.Errorf("allocate restored node: %w", err)
		}
		if err := store.Write(pos, &n); err != nil {
			return nil, err
		}
		posOf[ord] = pos
		lastLevel = level
	}
	if lastLevel != hdr.RootLevel {
		return nil, fmt.Errorf("%w: final node at level %d, root level %d", ErrBadSnapshot, lastLevel, hdr.RootLevel)
	}
	t.rootPos = posOf[hdr.Nodes-1]
	t.rootLevel = hdr.RootLevel
	return t, nil
}
