package umem

import "sync/atomic"

// SharedRegion is a Region plus an atomic reference count. It is the only
// multi-owner object in this module: every other type (uref, udict, ubuf)
// has a single logical owner at a time.
type SharedRegion struct {
	region *Region
	count  int32
}

// NewShared wraps a freshly allocated region with a reference count of 1.
func NewShared(size int) *SharedRegion {
	return &SharedRegion{region: Alloc(size), count: 1}
}

// Acquire increments the reference count and returns the same SharedRegion,
// for callers that want a shared handle rather than a private copy.
func (s *SharedRegion) Acquire() *SharedRegion {
	atomic.AddInt32(&s.count, 1)
	return s
}

// Release decrements the reference count, freeing the underlying region's
// backing bytes when it reaches zero. Calling Release more times than the
// region was acquired is a programmer error.
func (s *SharedRegion) Release() {
	if atomic.AddInt32(&s.count, -1) == 0 {
		s.region.Free()
	}
}

// Own reports whether the caller is the sole holder, i.e. whether the
// region may be mutated in place without violating copy-on-write.
func (s *SharedRegion) Own() bool {
	return atomic.LoadInt32(&s.count) == 1
}

// Region returns the underlying memory region. Mutating it is only safe
// when Own() is true; otherwise the caller must copy out first.
func (s *SharedRegion) Region() *Region { return s.region }
