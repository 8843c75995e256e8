package rtree

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// FileStore keeps nodes in a single file of fixed size records. Positions are
// byte offsets of records. Every record has room for the same number of
// branch slots regardless of level, so any freed record can be recycled for
// any node; this follows the classic file based R-tree layout where node
// records are uniformly sized. Freed offsets are kept in an in-memory free
// list for the lifetime of the store.
//
// All numbers are big endian. The file opens with a 32 byte header recording
// the geometry (dimensionality and slot count) so a store can be reopened
// without external knowledge. Each record is:
//
//	count  uint32
//	level  uint32
//	slots  card times: 2*dims float64 bounds, then one 8 byte child word
//
// The child word holds a node position for records with level > 0 and a leaf
// identifier for level 0 records, exactly as the in-memory model.
type FileStore struct {
	f          *os.File
	dims       int
	card       int
	recordSize int64
	end        int64
	free       []int64
	buf        []byte
}

const (
	fileStoreMagic   = "GXRT"
	fileStoreVersion = 1
	fileHeaderSize   = 32
)

func recordSize(dims, card int) int64 {
	return 8 + int64(card)*(int64(dims)*16+8)
}

// CreateFileStore creates (or truncates) the file at path and prepares it as
// an empty node store for trees of the given dimensionality, with card branch
// slots per record. card must cover the larger of the tree's node and leaf
// capacities.
func CreateFileStore(path string, dims, card int) (*FileStore, error) {
	if dims < 1 || card < 2 {
		return nil, fmt.Errorf("%w: dims %d, card %d", ErrInvalidConfig, dims, card)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create node store: %w", err)
	}
	hdr := make([]byte, fileHeaderSize)
	copy(hdr, fileStoreMagic)
	binary.BigEndian.PutUint16(hdr[4:6], fileStoreVersion)
	binary.BigEndian.PutUint16(hdr[6:8], uint16(dims))
	binary.BigEndian.PutUint16(hdr[8:10], uint16(card))
	if _, err := f.WriteAt(hdr, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("write node store header: %w", err)
	}
	s := &FileStore{f: f, dims: dims, card: card, recordSize: recordSize(dims, card), end: fileHeaderSize}
	s.buf = make([]byte, s.recordSize)
	return s, nil
}

// OpenFileStore opens an existing node store file and restores its geometry
// from the header. The free list is not persisted; reopening a store loses
// knowledge of holes left by freed nodes, which wastes space but never
// corrupts the tree.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open node store: %w", err)
	}
	hdr := make([]byte, fileHeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrBadStoreHeader, err)
	}
	if string(hdr[:4]) != fileStoreMagic {
		f.Close()
		return nil, fmt.Errorf("%w: bad magic", ErrBadStoreHeader)
	}
	if v := binary.BigEndian.Uint16(hdr[4:6]); v != fileStoreVersion {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported version %d", ErrBadStoreHeader, v)
	}
	dims := int(binary.BigEndian.Uint16(hdr[6:8]))
	card := int(binary.BigEndian.Uint16(hdr[8:10]))
	if dims < 1 || card < 2 {
		f.Close()
		return nil, fmt.Errorf("%w: dims %d, card %d", ErrBadStoreHeader, dims, card)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat node store: %w", err)
	}
	s := &FileStore{f: f, dims: dims, card: card, recordSize: recordSize(dims, card), end: fi.Size()}
	if rem := (s.end - fileHeaderSize) % s.recordSize; rem != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrBadStoreHeader, rem)
	}
	s.buf = make([]byte, s.recordSize)
	return s, nil
}

// Dims returns the dimensionality the store was created with.
func (s *FileStore) Dims() int { return s.dims }

// Card returns the number of branch slots per record.
func (s *FileStore) Card() int { return s.card }

// Close flushes and closes the backing file. The store is unusable after.
func (s *FileStore) Close() error {
	if s.f == nil {
		return ErrStoreClosed
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Allocate reserves a record, recycling a freed offset when one is available
// and extending the file otherwise.
func (s *FileStore) Allocate(level int) (int64, error) {
	if s.f == nil {
		return 0, ErrStoreClosed
	}
	if n := len(s.free); n > 0 {
		pos := s.free[n-1]
		s.free = s.free[:n-1]
		return pos, nil
	}
	pos := s.end
	s.end += s.recordSize
	return pos, nil
}

func (s *FileStore) checkPos(pos int64) error {
	if pos < fileHeaderSize || pos >= s.end || (pos-fileHeaderSize)%s.recordSize != 0 {
		return fmt.Errorf("%w: offset %d", ErrBadPosition, pos)
	}
	return nil
}

// Read decodes the record at pos into n.
func (s *FileStore) Read(pos int64, level int, n *Node) error {
	if s.f == nil {
		return ErrStoreClosed
	}
	if err := s.checkPos(pos); err != nil {
		return err
	}
	if _, err := s.f.ReadAt(s.buf, pos); err != nil {
		return fmt.Errorf("read node at %d: %w", pos, err)
	}
	count := int(binary.BigEndian.Uint32(s.buf[0:4]))
	n.Level = int(binary.BigEndian.Uint32(s.buf[4:8]))
	if count > s.card {
		return fmt.Errorf("%w: node at %d claims %d of %d branches", ErrInvariantViolated, pos, count, s.card)
	}
	n.Branches = n.Branches[:0]
	off := 8
	for i := 0; i < count; i++ {
		b := Branch{Rect: Rect{Min: make([]float64, s.dims), Max: make([]float64, s.dims)}}
		for d := 0; d < s.dims; d++ {
			b.Rect.Min[d] = math.Float64frombits(binary.BigEndian.Uint64(s.buf[off : off+8]))
			off += 8
		}
		for d := 0; d < s.dims; d++ {
			b.Rect.Max[d] = math.Float64frombits(binary.BigEndian.Uint64(s.buf[off : off+8]))
			off += 8
		}
		word := binary.BigEndian.Uint64(s.buf[off : off+8])
		off += 8
		if n.Level > 0 {
			b.Child = ChildPos(int64(word))
		} else {
			b.Child = ChildID(word)
		}
		n.Branches = append(n.Branches, b)
	}
	return nil
}

// Write encodes n into the record at pos with a single positional write.
func (s *FileStore) Write(pos int64, n *Node) error {
	if s.f == nil {
		return ErrStoreClosed
	}
	if err := s.checkPos(pos); err != nil {
		return err
	}
	if len(n.Branches) > s.card {
		return fmt.Errorf("%w: %d branches, %d slots", ErrStoreGeometry, len(n.Branches), s.card)
	}
	for i := range s.buf {
		s.buf[i] = 0
	}
	binary.BigEndian.PutUint32(s.buf[0:4], uint32(len(n.Branches)))
	binary.BigEndian.PutUint32(s.buf[4:8], uint32(n.Level))
	off := 8
	for _, b := range n.Branches {
		if b.Rect.Dims() != s.dims {
			return fmt.Errorf("%w: rect dims %d, store dims %d", ErrStoreGeometry, b.Rect.Dims(), s.dims)
		}
		for d := 0; d < s.dims; d++ {
			binary.BigEndian.PutUint64(s.buf[off:off+8], math.Float64bits(b.Rect.Min[d]))
			off += 8
		}
		for d := 0; d < s.dims; d++ {
			binary.BigEndian.PutUint64(s.buf[off:off+8], math.Float64bits(b.Rect.Max[d]))
			off += 8
		}
		if n.Level > 0 {
			binary.BigEndian.PutUint64(s.buf[off:off+8], uint64(b.Child.Pos()))
		} else {
			binary.BigEndian.PutUint64(s.buf[off:off+8], b.Child.ID())
		}
		off += 8
	}
	if _, err := s.f.WriteAt(s.buf, pos); err != nil {
		return fmt.Errorf("write node at %d: %w", pos, err)
	}
	return nil
}

// Free returns the record at pos to the free list.
func (s *FileStore) Free(pos int64, level int) {
	if s.f == nil || s.checkPos(pos) != nil {
		return
	}
	s.free = append(s.free, pos)
}
