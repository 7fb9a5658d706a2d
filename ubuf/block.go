// Package ubuf implements the buffer descriptor (C4): a layered view over a
// shared memory region, either a block byte stream or a picture plane list.
package ubuf

import (
	"bytes"
	"errors"

	"github.com/studoret/upipe/umem"
)

// ErrRange is returned when an operation's offset/size falls outside the
// descriptor's addressable bytes.
var ErrRange = errors.New("ubuf: offset/size out of range")

// ErrNotFound is returned by Find when the pattern does not occur.
var ErrNotFound = errors.New("ubuf: pattern not found")

// segment is one contiguous run of bytes within a shared region. A block
// Ubuf is a chain of segments; Insert grows the chain without copying any
// region bytes.
type segment struct {
	region *umem.SharedRegion
	offset int
	size   int
}

// Ubuf is a view over one or more shared regions. The zero value is not
// usable.
type Ubuf struct {
	segs []segment
}

// NewBlock constructs a single-segment block view over region, covering
// [offset, offset+size).
func NewBlock(region *umem.SharedRegion, offset, size int) *Ubuf {
	return &Ubuf{segs: []segment{{region: region, offset: offset, size: size}}}
}

// TotalSize returns the sum of all segment sizes.
func (u *Ubuf) TotalSize() int {
	n := 0
	for _, s := range u.segs {
		n += s.size
	}
	return n
}

// Dup clones the view, acquiring a reference on every segment's region. The
// duplicate addresses the same bytes; mutating a duplicate through Write
// requires Own() on the underlying shared region.
func Dup(u *Ubuf) *Ubuf {
	segs := make([]segment, len(u.segs))
	for i, s := range u.segs {
		segs[i] = segment{region: s.region.Acquire(), offset: s.offset, size: s.size}
	}
	return &Ubuf{segs: segs}
}

// Release drops the descriptor's hold on every segment's region.
func (u *Ubuf) Release() {
	for _, s := range u.segs {
		s.region.Release()
	}
	u.segs = nil
}

// locate finds the segment and within-segment offset covering a given
// logical offset, along with how many bytes remain in that segment from
// there.
func (u *Ubuf) locate(off int) (segIdx, segOff, avail int, ok bool) {
	base := 0
	for i, s := range u.segs {
		if off < base+s.size {
			return i, off - base, s.size - (off - base), true
		}
		base += s.size
	}
	return 0, 0, 0, false
}

func (u *Ubuf) checkRange(offset, size int) error {
	if offset < 0 || size < 0 || offset+size > u.TotalSize() {
		return ErrRange
	}
	return nil
}

// Extract copies exactly size bytes starting at offset into out, which must
// be at least size bytes long. It always copies, even for a single
// contiguous segment.
func (u *Ubuf) Extract(offset, size int, out []byte) error {
	if err := u.checkRange(offset, size); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	idx, segOff, _, ok := u.locate(offset)
	if !ok {
		return ErrRange
	}
	written := 0
	for written < size {
		s := u.segs[idx]
		n := s.size - segOff
		if n > size-written {
			n = size - written
		}
		src := s.region.Region().Bytes()[s.offset+segOff : s.offset+segOff+n]
		copy(out[written:written+n], src)
		written += n
		idx++
		segOff = 0
	}
	return nil
}

// Peek returns a view of [offset, offset+size). If the range lies within a
// single segment it returns a direct slice into the shared region (no
// copy); otherwise it fills scratch (which must be at least size bytes) and
// returns that. Peek never mutates; there is no matching Unmap requirement
// for reads, unlike Write.
func (u *Ubuf) Peek(offset, size int, scratch []byte) ([]byte, error) {
	if err := u.checkRange(offset, size); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	idx, segOff, avail, ok := u.locate(offset)
	if !ok {
		return nil, ErrRange
	}
	if avail >= size {
		s := u.segs[idx]
		return s.region.Region().Bytes()[s.offset+segOff : s.offset+segOff+size], nil
	}
	if err := u.Extract(offset, size, scratch); err != nil {
		return nil, err
	}
	return scratch[:size], nil
}

// Read is an alias of Peek retained to mirror the spec's Read/Write naming;
// its result must be released with ReadUnmap.
func (u *Ubuf) Read(offset, size int, scratch []byte) ([]byte, error) {
	return u.Peek(offset, size, scratch)
}

// ReadUnmap balances Read. Reads never write back, so this is a no-op; it
// exists so the Read/Unmap pairing in calling code matches Write/Unmap.
func (u *Ubuf) ReadUnmap(mapped []byte) {}

// Write returns a mutable view of [offset, offset+size), suitable for
// in-place modification by the caller. If the range lies in a single
// segment, the returned slice aliases that segment's region directly;
// otherwise scratch is filled with the current contents (so partial
// overwrites preserve untouched bytes) and must be written back with
// WriteUnmap. Writing through a non-owned region (Own() == false on the
// covering segment) silently affects every other holder of that region;
// callers that must preserve copy-on-write are responsible for checking
// Own() first and duplicating the region before writing.
func (u *Ubuf) Write(offset, size int, scratch []byte) ([]byte, error) {
	if err := u.checkRange(offset, size); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	idx, segOff, avail, ok := u.locate(offset)
	if !ok {
		return nil, ErrRange
	}
	if avail >= size {
		s := u.segs[idx]
		return s.region.Region().Bytes()[s.offset+segOff : s.offset+segOff+size], nil
	}
	if err := u.Extract(offset, size, scratch); err != nil {
		return nil, err
	}
	return scratch[:size], nil
}

// WriteUnmap balances Write. When mapped aliases scratch (the straddling
// case) its contents are copied back into the descriptor's
// segments; when it aliased the region directly, there is nothing to do.
func (u *Ubuf) WriteUnmap(offset, size int, mapped, scratch []byte) error {
	if size == 0 || len(mapped) == 0 {
		return nil
	}
	if &mapped[0] != &scratch[0] {
		return nil
	}
	idx, segOff, _, ok := u.locate(offset)
	if !ok {
		return ErrRange
	}
	written := 0
	for written < size {
		s := u.segs[idx]
		n := s.size - segOff
		if n > size-written {
			n = size - written
		}
		dst := s.region.Region().Bytes()[s.offset+segOff : s.offset+segOff+n]
		copy(dst, mapped[written:written+n])
		written += n
		idx++
		segOff = 0
	}
	return nil
}

// Resize trims the view to [newOffset, newOffset+newSize) of its current
// logical extent. It never copies region bytes, only adjusts segment
// boundaries. Segments falling entirely outside the new window lose their
// region reference; a segment split at a window edge keeps its reference
// with the surviving portion.
func (u *Ubuf) Resize(newOffset, newSize int) error {
	if err := u.checkRange(newOffset, newSize); err != nil {
		return err
	}
	kept := u.segs[:0]
	base := 0
	for _, s := range u.segs {
		segStart, segEnd := base, base+s.size
		base = segEnd
		lo := max(newOffset, segStart)
		hi := min(newOffset+newSize, segEnd)
		if lo >= hi {
			s.region.Release()
			continue
		}
		kept = append(kept, segment{
			region: s.region,
			offset: s.offset + (lo - segStart),
			size:   hi - lo,
		})
	}
	u.segs = kept
	return nil
}

// splitSegs splits segs at logical position pos, returning the bytes before
// pos and the bytes from pos onward, as independent segment slices (sharing
// the same regions, acquiring no new references since ownership does not
// change hands here).
func splitSegs(segs []segment, pos int) (before, after []segment) {
	base := 0
	for i, s := range segs {
		if pos <= base {
			return segs[:i:i], segs[i:]
		}
		if pos < base+s.size {
			off := pos - base
			left := segment{region: s.region, offset: s.offset, size: off}
			right := segment{region: s.region, offset: s.offset + off, size: s.size - off}
			b := append(append([]segment{}, segs[:i]...), left)
			a := append([]segment{right}, segs[i+1:]...)
			return b, a
		}
		base += s.size
	}
	return segs, nil
}

// Insert splices other's segments into u at logical offset, acquiring a
// reference on each of other's regions (other remains independently valid;
// callers that no longer need their own handle should Release it).
func (u *Ubuf) Insert(offset int, other *Ubuf) error {
	if offset < 0 || offset > u.TotalSize() {
		return ErrRange
	}
	before, after := splitSegs(u.segs, offset)
	inserted := make([]segment, len(other.segs))
	for i, s := range other.segs {
		inserted[i] = segment{region: s.region.Acquire(), offset: s.offset, size: s.size}
	}
	merged := make([]segment, 0, len(before)+len(inserted)+len(after))
	merged = append(merged, before...)
	merged = append(merged, inserted...)
	merged = append(merged, after...)
	u.segs = merged
	return nil
}

// Find scans from *offset to the end of the view for pattern, leaving
// *offset at the first byte of a match. It reports ErrNotFound if pattern
// does not occur.
func (u *Ubuf) Find(offset *int, pattern []byte) error {
	total := u.TotalSize()
	if len(pattern) == 0 {
		return nil
	}
	buf := make([]byte, total-*offset)
	if err := u.Extract(*offset, len(buf), buf); err != nil {
		return err
	}
	idx := bytes.Index(buf, pattern)
	if idx < 0 {
		return ErrNotFound
	}
	*offset += idx
	return nil
}

// Compare reports whether a and b have byte-identical content (sizes and
// bytes), regardless of segment chaining.
func Compare(a, b *Ubuf) bool {
	if a.TotalSize() != b.TotalSize() {
		return false
	}
	n := a.TotalSize()
	ba := make([]byte, n)
	bb := make([]byte, n)
	if a.Extract(0, n, ba) != nil || b.Extract(0, n, bb) != nil {
		return false
	}
	return bytes.Equal(ba, bb)
}
