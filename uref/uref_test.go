package uref

import (
	"testing"

	"github.com/studoret/upipe/ubuf"
	"github.com/studoret/upipe/udict"
	"github.com/studoret/upipe/umem"
)

func TestDupIndependentDict(t *testing.T) {
	d := udict.Alloc(16)
	d.SetString("f.def", "block.mpeg2video.", 64)
	u := New(d)

	u2 := Dup(u)
	u2.Dict.SetString("f.def", "block.mpeg2video.pic.planar8_420.", 64)

	got, _ := u.FlowDef()
	if got != "block.mpeg2video." {
		t.Errorf("original flow-def mutated by dup: got %q", got)
	}
}

func TestDupSharesBuffer(t *testing.T) {
	region := umem.NewShared(8)
	copy(region.Region().Bytes(), "abcdefgh")
	u := New(udict.Alloc(16))
	u.Buf = ubuf.NewBlock(region, 0, 8)

	u2 := Dup(u)
	if !ubuf.Compare(u.Buf, u2.Buf) {
		t.Error("Dup's buffer should byte-compare equal to the source")
	}
}

func TestFlowDefHelpers(t *testing.T) {
	u := New(udict.Alloc(16))
	if _, err := u.FlowDef(); err == nil {
		t.Error("FlowDef should fail before it is set")
	}
	if err := u.SetFlowDef("block.mpeg2video.", 64); err != nil {
		t.Fatal(err)
	}
	got, err := u.FlowDef()
	if err != nil || got != "block.mpeg2video." {
		t.Errorf("FlowDef = %q, %v; want block.mpeg2video.", got, err)
	}
}

func TestDiscontinuityFlag(t *testing.T) {
	u := New(udict.Alloc(16))
	if u.Discontinuity() {
		t.Error("Discontinuity should be false initially")
	}
	u.SetDiscontinuity(64)
	if !u.Discontinuity() {
		t.Error("Discontinuity should be true after SetDiscontinuity")
	}
}
