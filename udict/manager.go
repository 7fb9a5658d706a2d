package udict

// Manager controls allocation sizing and free-list reuse for dictionaries,
// mirroring the per-manager min_size/extra_size/pool_depth lifecycle
// described in the data model. Pool operations are the only hot-path
// allocation this package performs.
type Manager struct {
	minSize   int
	extraSize int
	poolDepth int
	free      []*Dict // bounded LIFO; free[len-1] is the most recently freed
}

// NewManager constructs a Manager. A poolDepth of 0 disables pooling
// (every Free releases immediately, every Alloc allocates fresh).
func NewManager(minSize, extraSize, poolDepth int) *Manager {
	if minSize < 1 {
		minSize = 1
	}
	if extraSize < 1 {
		extraSize = 1
	}
	return &Manager{minSize: minSize, extraSize: extraSize, poolDepth: poolDepth}
}

// Alloc returns a dictionary of at least max(size, min_size) bytes, reusing
// a pooled instance when one is available and large enough.
func (m *Manager) Alloc(size int) *Dict {
	if size < m.minSize {
		size = m.minSize
	}
	if n := len(m.free); n > 0 {
		d := m.free[n-1]
		m.free = m.free[:n-1]
		if cap(d.buf) >= size {
			d.buf = d.buf[:1]
			d.buf[0] = byte(TypeEnd)
			return d
		}
	}
	return Alloc(size)
}

// Dup allocates through the manager and copies src's bytes into it.
func (m *Manager) Dup(src *Dict) *Dict {
	d := m.Alloc(src.Size())
	d.buf = d.buf[:len(src.buf)]
	copy(d.buf, src.buf)
	return d
}

// ExtraSize returns the manager's growth increment, for use by Dict.Set.
func (m *Manager) ExtraSize() int { return m.extraSize }

// Free returns d to the manager's bounded pool, releasing it to the
// allocator (letting the GC reclaim it) when the pool is already at
// pool_depth.
func (m *Manager) Free(d *Dict) {
	if len(m.free) >= m.poolDepth {
		return
	}
	m.free = append(m.free, d)
}
