// Package octstream implements the octet-stream helper (C7): a queue of
// input urefs presented to the owning pipe as one contiguous "next" uref
// and a logical byte stream spanning it and everything still queued behind
// it. It is grounded on upipe_mp2v_framer.c's UPIPE_HELPER_OCTET_STREAM
// usage (next_uref/next_uref_size/urefs/promote).
package octstream

import (
	"github.com/studoret/upipe/udict"
	"github.com/studoret/upipe/uref"
)

// chunk records how many of the current next uref's bytes came from one
// particular appended uref, and that uref's dictionary (its buffer
// descriptor's bytes have already been merged into next's block view, so
// only the dictionary is still needed once it becomes active).
type chunk struct {
	dict *udict.Dict
	size int
}

// Stream is the octet-stream helper. The zero value is ready to use.
type Stream struct {
	// Promote is called every time a new chunk's dictionary becomes the
	// active one backing Next(): once when the very first uref is
	// appended, and again each time Consume crosses a chunk boundary.
	Promote func(next *uref.Uref)

	next   *uref.Uref
	chunks []chunk
	dicts  *udict.Manager
}

// New constructs a Stream with the given promote hook. When dicts is not
// nil, the dictionaries of fully-consumed chunks are returned to it
// instead of being left to the garbage collector.
func New(promote func(next *uref.Uref), dicts *udict.Manager) *Stream {
	return &Stream{Promote: promote, dicts: dicts}
}

func blockSize(u *uref.Uref) int {
	if u == nil || u.Buf == nil {
		return 0
	}
	return u.Buf.TotalSize()
}

// Next returns the current logical next uref, or nil if the stream is
// empty. Its Buf (if any) is a single contiguous-or-chained block view
// spanning every byte appended so far and not yet consumed.
func (s *Stream) Next() *uref.Uref { return s.next }

// Append adds u to the stream. If there is no current next uref, u itself
// becomes it and Promote fires immediately. Otherwise u's block bytes are
// merged onto the tail of the current next uref's view (via Ubuf.Insert)
// and u's dictionary is queued to become active once Consume reaches it.
func (s *Stream) Append(u *uref.Uref) {
	if s.next == nil {
		s.next = u
		s.chunks = []chunk{{dict: u.Dict, size: blockSize(u)}}
		s.fire()
		return
	}

	size := blockSize(u)
	if u.Buf != nil {
		if s.next.Buf == nil {
			s.next.Buf = u.Buf
		} else {
			s.next.Buf.Insert(s.next.Buf.TotalSize(), u.Buf)
			u.Buf.Release()
		}
	}
	s.chunks = append(s.chunks, chunk{dict: u.Dict, size: size})
}

func (s *Stream) fire() {
	if s.Promote != nil && s.next != nil {
		s.Promote(s.next)
	}
}

// Consume trims n bytes from the front of the current next uref. Once the
// front chunk's bytes are exhausted, the next queued chunk's dictionary
// becomes active on next and Promote fires again. When every appended byte
// has been consumed and no chunk remains queued, next becomes nil.
func (s *Stream) Consume(n int) {
	if s.next == nil || n <= 0 {
		return
	}
	total := blockSize(s.next)
	if s.next.Buf != nil {
		s.next.Buf.Resize(n, total-n)
	}

	remaining := n
	for remaining > 0 && len(s.chunks) > 0 {
		if remaining < s.chunks[0].size {
			s.chunks[0].size -= remaining
			remaining = 0
			break
		}
		remaining -= s.chunks[0].size
		s.freeDict(s.chunks[0].dict)
		s.chunks = s.chunks[1:]
		if len(s.chunks) > 0 {
			s.next.Dict = s.chunks[0].dict
			s.fire()
		}
	}

	if total-n == 0 && len(s.chunks) == 0 {
		s.next.Dict = nil
		s.next.Release()
		s.next = nil
	}
}

// freeDict returns a fully-consumed chunk's dictionary to the manager, if
// one was configured.
func (s *Stream) freeDict(d *udict.Dict) {
	if s.dicts != nil && d != nil {
		s.dicts.Free(d)
	}
}

// Clean releases the current next uref's buffer, returns every queued
// chunk's dictionary to the manager and leaves the stream empty and ready
// for Append. Init resets the same fields; the framer calls both on an
// in-header discontinuity, mirroring the original clean_octet_stream +
// init_octet_stream pairing.
func (s *Stream) Clean() {
	if s.next != nil {
		s.next.Dict = nil
		s.next.Release()
	}
	for _, c := range s.chunks {
		s.freeDict(c.dict)
	}
	s.next = nil
	s.chunks = nil
}

// Init resets the stream to an empty, ready-to-append state.
func (s *Stream) Init() {
	s.next = nil
	s.chunks = nil
}
