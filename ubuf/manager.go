package ubuf

import "github.com/studoret/upipe/umem"

// Manager allocates block-typed Ubufs backed by freshly shared regions and
// recycles the descriptor structs (not the regions, which are reference
// counted independently) through a bounded LIFO, mirroring udict.Manager.
type Manager struct {
	poolDepth int
	free      []*Ubuf
}

// NewManager constructs a Manager with the given pool_depth.
func NewManager(poolDepth int) *Manager {
	return &Manager{poolDepth: poolDepth}
}

// Alloc allocates a new shared region of size bytes and returns a
// single-segment block view over it.
func (m *Manager) Alloc(size int) *Ubuf {
	region := umem.NewShared(size)
	if n := len(m.free); n > 0 {
		u := m.free[n-1]
		m.free = m.free[:n-1]
		u.segs = append(u.segs[:0], segment{region: region, offset: 0, size: size})
		return u
	}
	return NewBlock(region, 0, size)
}

// Dup clones src's view, acquiring a reference on every segment's region
// and reusing a pooled descriptor struct when one is available. It is the
// pooled counterpart of the package-level Dup.
func (m *Manager) Dup(src *Ubuf) *Ubuf {
	var u *Ubuf
	if n := len(m.free); n > 0 {
		u = m.free[n-1]
		m.free = m.free[:n-1]
	} else {
		u = &Ubuf{}
	}
	u.segs = append(u.segs[:0], src.segs...)
	for i := range u.segs {
		u.segs[i].region.Acquire()
	}
	return u
}

// Free releases every segment's region reference and, while the pool has
// room, recycles the descriptor struct for reuse.
func (m *Manager) Free(u *Ubuf) {
	for _, s := range u.segs {
		s.region.Release()
	}
	if len(m.free) >= m.poolDepth {
		return
	}
	u.segs = u.segs[:0]
	m.free = append(m.free, u)
}
