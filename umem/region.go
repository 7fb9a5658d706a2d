// Package umem implements the raw memory region (C1) and the
// reference-counted shared region (C2) that every buffer descriptor in this
// module is ultimately a view over.
package umem

import (
	"errors"

	"github.com/studoret/upipe/internal/pool"
)

// ErrResize is returned by Region.Resize when the requested size cannot be
// satisfied.
var ErrResize = errors.New("umem: invalid resize")

// Region is an owned byte buffer with a single owner; shared access to a
// region goes through SharedRegion.
type Region struct {
	buf []byte
}

// Alloc reserves a region of exactly size bytes, drawn from the bucketed
// byte pool.
func Alloc(size int) *Region {
	if size < 0 {
		size = 0
	}
	b := pool.Get(size)
	return &Region{buf: b}
}

// Resize grows or shrinks the region in place, preserving existing bytes up
// to the smaller of the old and new sizes. Growing beyond the pooled
// buffer's capacity reallocates.
func (r *Region) Resize(newSize int) error {
	if newSize < 0 {
		return ErrResize
	}
	if newSize <= cap(r.buf) {
		old := len(r.buf)
		r.buf = r.buf[:newSize]
		if newSize > old {
			for i := old; i < newSize; i++ {
				r.buf[i] = 0
			}
		}
		return nil
	}
	nb := pool.Get(newSize)
	copy(nb, r.buf)
	pool.Put(r.buf)
	r.buf = nb
	return nil
}

// Bytes returns the region's current backing slice. Callers must not retain
// it past the region's lifetime (use Free to release it back to the pool).
func (r *Region) Bytes() []byte { return r.buf }

// Size returns the region's current length.
func (r *Region) Size() int { return len(r.buf) }

// Free returns the region's backing bytes to the pool. The region must not
// be used afterwards.
func (r *Region) Free() {
	pool.Put(r.buf)
	r.buf = nil
}
