// Package uref implements the reference uref (C5): the (dictionary, buffer
// descriptor) pair that traverses pipes.
package uref

import (
	"github.com/studoret/upipe/ubuf"
	"github.com/studoret/upipe/udict"
)

// Uref owns at most one dictionary and at most one block buffer descriptor;
// either may be nil. It is the transport unit passed between pipes via
// Input.
type Uref struct {
	Dict *udict.Dict
	Buf  *ubuf.Ubuf
}

// New wraps a dictionary (never nil) with no attached buffer.
func New(d *udict.Dict) *Uref {
	return &Uref{Dict: d}
}

// Dup duplicates u: the dictionary is copied byte-for-byte, the buffer
// descriptor's shared region is re-shared rather than copied.
func Dup(u *Uref) *Uref {
	out := &Uref{}
	if u.Dict != nil {
		out.Dict = udict.Dup(u.Dict)
	}
	if u.Buf != nil {
		out.Buf = ubuf.Dup(u.Buf)
	}
	return out
}

// Release drops the uref's hold on its buffer descriptor's region. The
// dictionary has no separate release step; it is reclaimed by the GC (or
// returned to a udict.Manager by the caller that owns it).
func (u *Uref) Release() {
	if u.Buf != nil {
		u.Buf.Release()
		u.Buf = nil
	}
}

// FlowDef returns the f.def string, if set.
func (u *Uref) FlowDef() (string, error) {
	return u.Dict.GetString("f.def")
}

// SetFlowDef sets f.def.
func (u *Uref) SetFlowDef(def string, extraSize int) error {
	return u.Dict.SetString("f.def", def, extraSize)
}

// Discontinuity reports whether f.disc is set.
func (u *Uref) Discontinuity() bool {
	return u.Dict.GetVoid("f.disc")
}

// SetDiscontinuity sets f.disc.
func (u *Uref) SetDiscontinuity(extraSize int) error {
	return u.Dict.SetVoid("f.disc", extraSize)
}

// SetError sets f.error.
func (u *Uref) SetError(extraSize int) error {
	return u.Dict.SetVoid("f.error", extraSize)
}

// SetRandom sets f.random, marking the uref as a random-access point.
func (u *Uref) SetRandom(extraSize int) error {
	return u.Dict.SetVoid("f.random", extraSize)
}
