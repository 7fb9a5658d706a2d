// Package pool recycles the byte slices backing umem regions through
// size-classed sync.Pools, keeping hot-path region allocation and release
// cheap. It is the byte-level backing allocator; the object-level bounded
// LIFO pools of the udict and ubuf managers are a separate concern with
// pool_depth semantics of their own.
package pool

import "sync"

// minClass is the smallest pooled capacity; slices below it are left to
// the garbage collector.
const minClass = 1 << 8

// classes are the pooled capacities, each four times the previous, up to
// 1 MiB. Requests above the largest class share its pool and fall back to
// a direct allocation when the pooled slice is too small.
var classes = [...]int{1 << 8, 1 << 10, 1 << 12, 1 << 14, 1 << 16, 1 << 18, 1 << 20}

var buckets [len(classes)]sync.Pool

func init() {
	for i := range buckets {
		capacity := classes[i]
		buckets[i].New = func() any {
			b := make([]byte, capacity)
			return &b
		}
	}
}

// class returns the index of the smallest class able to hold size bytes;
// oversized requests map to the largest class.
func class(size int) int {
	for i, c := range classes {
		if size <= c {
			return i
		}
	}
	return len(classes) - 1
}

// Get returns a slice of exactly size bytes drawn from the matching size
// class. The contents are unspecified; callers overwrite what they use and
// must hand the slice back with Put.
func Get(size int) []byte {
	bp := buckets[class(size)].Get().(*[]byte)
	b := *bp
	if cap(b) < size {
		b = make([]byte, size)
		*bp = b
		return b
	}
	return b[:size]
}

// Put hands b back to its size class. Slices smaller than the smallest
// class are not worth pooling and are dropped.
func Put(b []byte) {
	c := cap(b)
	if c < minClass {
		return
	}
	b = b[:c]
	buckets[class(c)].Put(&b)
}
