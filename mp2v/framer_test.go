package mp2v

import (
	"bytes"
	"testing"

	"github.com/studoret/upipe/pipe"
	"github.com/studoret/upipe/ubuf"
	"github.com/studoret/upipe/udict"
	"github.com/studoret/upipe/umem"
	"github.com/studoret/upipe/uref"
)

// sink collects everything forwarded downstream.
type sink struct {
	got []*uref.Uref
}

func (s *sink) Input(u *uref.Uref)         { s.got = append(s.got, u) }
func (s *sink) Control(pipe.Command) error { return nil }
func (s *sink) Use() pipe.Pipe             { return s }
func (s *sink) Release()                   {}

// eventLog records event kinds without consuming them.
type eventLog struct {
	kinds []pipe.EventKind
}

func (l *eventLog) probe(e pipe.Event) bool {
	l.kinds = append(l.kinds, e.Kind)
	return false
}

func (l *eventLog) count(k pipe.EventKind) int {
	n := 0
	for _, got := range l.kinds {
		if got == k {
			n++
		}
	}
	return n
}

func newHarness() (*Framer, *sink, *eventLog) {
	ev := &eventLog{}
	f := NewFramer(udict.NewManager(128, 64, 8), ubuf.NewManager(8), ev.probe)
	out := &sink{}
	f.Control(pipe.SetOutput{Output: out})
	return f, out, ev
}

func flowDefUref(def string) *uref.Uref {
	u := uref.New(udict.Alloc(64))
	u.SetFlowDef(def, 64)
	return u
}

func blockUref(data []byte) *uref.Uref {
	r := umem.NewShared(len(data))
	copy(r.Region().Bytes(), data)
	u := uref.New(udict.Alloc(64))
	u.Buf = ubuf.NewBlock(r, 0, len(data))
	return u
}

func payload(t *testing.T, u *uref.Uref) []byte {
	t.Helper()
	out := make([]byte, u.Buf.TotalSize())
	if err := u.Buf.Extract(0, len(out), out); err != nil {
		t.Fatal(err)
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// seqHeaderBytes builds a 12-byte sequence header: 720x576, the given
// aspect and frame-rate codes, bitrate 3750 units of 400 bit/s, vbv buffer
// size 112, no quantiser matrices.
func seqHeaderBytes(aspect, frameRateCode byte) []byte {
	const horizontal, vertical = 720, 576
	const bitrate, vbv = 3750, 112
	return []byte{
		0x00, 0x00, 0x01, seqStartCode,
		horizontal >> 4,
		(horizontal&0x0F)<<4 | vertical>>8,
		vertical & 0xFF,
		aspect<<4 | frameRateCode,
		bitrate >> 10,
		(bitrate >> 2) & 0xFF,
		(bitrate&0x03)<<6 | 0x20 | vbv>>5,
		(vbv & 0x1F) << 3,
	}
}

// picHeaderBytes builds an 8-byte picture header with vbv_delay
// unspecified.
func picHeaderBytes(temporalReference int, codingType byte) []byte {
	const vbv = 0xFFFF
	return []byte{
		0x00, 0x00, 0x01, picStartCode,
		byte(temporalReference >> 2),
		byte(temporalReference&0x03)<<6 | codingType<<3 | byte(vbv>>13),
		(vbv >> 5) & 0xFF,
		(vbv & 0x1F) << 3,
	}
}

var (
	sliceBytes = []byte{0x00, 0x00, 0x01, 0x01, 0xAB, 0xCD, 0xEF, 0x47}
	endBytes   = []byte{0x00, 0x00, 0x01, endStartCode}
)

func TestMinimalStream(t *testing.T) {
	f, out, ev := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	stream := concat(seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes, endBytes)
	f.Input(blockUref(stream))

	if len(out.got) != 2 {
		t.Fatalf("outputs = %d, want 2 (flow def + frame)", len(out.got))
	}

	fd := out.got[0]
	def, err := fd.FlowDef()
	if err != nil || def != expectedFlowDef+"pic.planar8_420." {
		t.Errorf("flow def = %q err=%v, want %q", def, err, expectedFlowDef+"pic.planar8_420.")
	}
	if h, _ := fd.Dict.GetUnsigned("p.hsize"); h != 720 {
		t.Errorf("p.hsize = %d, want 720", h)
	}
	if v, _ := fd.Dict.GetUnsigned("p.vsize"); v != 576 {
		t.Errorf("p.vsize = %d, want 576", v)
	}
	if sar, _ := fd.Dict.GetRational("p.aspect"); sar != (udict.Rational{Num: 16, Den: 15}) {
		t.Errorf("p.aspect = %v, want 16/15", sar)
	}
	if fps, _ := fd.Dict.GetRational("p.fps"); fps != (udict.Rational{Num: 25, Den: 1}) {
		t.Errorf("p.fps = %v, want 25/1", fps)
	}
	if rate, _ := fd.Dict.GetUnsigned("b.octetrate"); rate != 3750*400/8 {
		t.Errorf("b.octetrate = %d, want %d", rate, 3750*400/8)
	}
	if cpb, _ := fd.Dict.GetUnsigned("b.cpb_buffer"); cpb != 112*2048 {
		t.Errorf("b.cpb_buffer = %d, want %d", cpb, 112*2048)
	}
	if n := fd.Planes(); n != 3 {
		t.Errorf("planes = %d, want 3", n)
	}
	if p, err := fd.PlaneAt(1); err != nil || p.Name != "u8" || p.HSub != 2 || p.VSub != 2 {
		t.Errorf("plane 1 = %+v err=%v, want u8 2x2", p, err)
	}

	frame := out.got[1]
	if !bytes.Equal(payload(t, frame), stream) {
		t.Error("frame payload should be the full sequence+picture+slice+end bytes")
	}
	if num, err := frame.Dict.GetUnsigned("p.num"); err != nil || num != 0 {
		t.Errorf("p.num = %d err=%v, want 0", num, err)
	}
	if !frame.Dict.GetVoid("f.random") {
		t.Error("an I frame starting with a sequence header must carry f.random")
	}
	if ev.count(pipe.EventSyncAcquired) != 1 {
		t.Errorf("sync_acquired count = %d, want 1", ev.count(pipe.EventSyncAcquired))
	}
}

func TestSequenceHeaderDrift(t *testing.T) {
	f, out, _ := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	stream := concat(
		seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes,
		seqHeaderBytes(aspect16_9, 3), picHeaderBytes(0, picTypeI), sliceBytes,
		endBytes,
	)
	f.Input(blockUref(stream))

	if len(out.got) != 4 {
		t.Fatalf("outputs = %d, want 4 (two flow defs, two frames)", len(out.got))
	}
	sar1, _ := out.got[0].Dict.GetRational("p.aspect")
	sar2, _ := out.got[2].Dict.GetRational("p.aspect")
	if sar1 != (udict.Rational{Num: 16, Den: 15}) {
		t.Errorf("first p.aspect = %v, want 16/15", sar1)
	}
	if sar2 != (udict.Rational{Num: 64, Den: 45}) {
		t.Errorf("second p.aspect = %v, want 64/45", sar2)
	}
	if sar1 == sar2 {
		t.Error("drifting aspect codes must produce differing flow defs")
	}
}

func TestIdenticalSequenceHeaderRotates(t *testing.T) {
	f, out, _ := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	stream := concat(
		seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes,
		seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes,
		endBytes,
	)
	f.Input(blockUref(stream))

	// One flow def only: the second, identical sequence header rotates the
	// cache without a new flow def.
	if len(out.got) != 3 {
		t.Fatalf("outputs = %d, want 3 (one flow def, two frames)", len(out.got))
	}
}

func TestBFrameNumberingAndDTS(t *testing.T) {
	f, out, _ := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	stream := concat(
		seqHeaderBytes(aspect4_3, 3),
		picHeaderBytes(0, picTypeI), sliceBytes,
		picHeaderBytes(2, picTypeP), sliceBytes,
		picHeaderBytes(3, picTypeB), sliceBytes,
		picHeaderBytes(1, picTypeB), sliceBytes,
		endBytes,
	)
	u := blockUref(stream)
	const dts0 = 1000000
	u.Dict.SetUnsigned("k.dts", dts0, 64)
	f.Input(u)

	if len(out.got) != 5 {
		t.Fatalf("outputs = %d, want 5 (flow def + four frames)", len(out.got))
	}
	frames := out.got[1:]

	wantNums := []uint64{0, 2, 3, 1}
	const tick = 27000000 / 25
	for i, frame := range frames {
		num, err := frame.Dict.GetUnsigned("p.num")
		if err != nil || num != wantNums[i] {
			t.Errorf("frame %d p.num = %d err=%v, want %d", i, num, err, wantNums[i])
		}
		dts, err := frame.Dict.GetUnsigned("k.dts")
		if err != nil {
			t.Fatalf("frame %d has no k.dts: %v", i, err)
		}
		if want := uint64(dts0 + i*tick); dts != want {
			t.Errorf("frame %d k.dts = %d, want %d (+%d per frame)", i, dts, want, tick)
		}
	}
}

func TestDiscontinuityBeforeFirstSlice(t *testing.T) {
	f, out, ev := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	// Headers only: sync is acquired but no slice has been seen.
	f.Input(blockUref(seqHeaderBytes(aspect4_3, 3)))
	if len(out.got) != 0 {
		t.Fatalf("no frame should be out yet, got %d", len(out.got))
	}

	stream := concat(seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes, endBytes)
	u := blockUref(stream)
	u.SetDiscontinuity(64)
	f.Input(u)

	if len(out.got) != 2 {
		t.Fatalf("outputs = %d, want 2 (flow def + frame)", len(out.got))
	}
	frame := out.got[1]
	if !frame.Dict.GetVoid("f.disc") {
		t.Error("the I frame following an in-header discontinuity must carry f.disc")
	}
	if f.gotDiscontinuity {
		t.Error("got_discontinuity must be cleared once honored in an outgoing frame")
	}
	if ev.count(pipe.EventSyncLost) != 1 {
		t.Errorf("sync_lost count = %d, want 1 (queue drop forces a resync)", ev.count(pipe.EventSyncLost))
	}
	if ev.count(pipe.EventSyncAcquired) != 2 {
		t.Errorf("sync_acquired count = %d, want 2", ev.count(pipe.EventSyncAcquired))
	}
}

func TestDiscontinuityMidSlice(t *testing.T) {
	f, out, _ := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	f.Input(blockUref(concat(seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes)))

	u := blockUref(endBytes)
	u.SetDiscontinuity(64)
	f.Input(u)

	if len(out.got) != 2 {
		t.Fatalf("outputs = %d, want 2 (flow def + frame)", len(out.got))
	}
	frame := out.got[1]
	if !frame.Dict.GetVoid("f.error") {
		t.Error("a mid-slice discontinuity must stamp the in-flight uref with f.error")
	}
	if frame.Dict.GetVoid("f.disc") {
		t.Error("a mid-slice discontinuity must not mark the frame f.disc")
	}
}

func TestInvalidFrameRateResyncs(t *testing.T) {
	f, out, ev := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	stream := concat(
		seqHeaderBytes(aspect4_3, 0), picHeaderBytes(0, picTypeI), sliceBytes,
		seqHeaderBytes(aspect4_3, 3), picHeaderBytes(0, picTypeI), sliceBytes,
		endBytes,
	)
	f.Input(blockUref(stream))

	if ev.count(pipe.EventParseError) == 0 {
		t.Error("frame-rate code 0 must raise a parse error")
	}
	if ev.count(pipe.EventSyncLost) == 0 {
		t.Error("a failed frame must raise sync_lost")
	}
	if ev.count(pipe.EventSyncAcquired) != 2 {
		t.Errorf("sync_acquired count = %d, want 2 (initial + after resync)", ev.count(pipe.EventSyncAcquired))
	}
	if len(out.got) != 2 {
		t.Fatalf("outputs = %d, want 2 (flow def + frame from the good sequence)", len(out.got))
	}
	if fps, _ := out.got[0].Dict.GetRational("p.fps"); fps != (udict.Rational{Num: 25, Den: 1}) {
		t.Errorf("flow def fps = %v, want 25/1 (from the second, valid sequence header)", fps)
	}
}

func TestSequenceInsertion(t *testing.T) {
	f, out, _ := newHarness()
	defer f.Release()
	f.Control(SetSequenceInsertion{Insert: true})

	var set bool
	f.Control(GetSequenceInsertion{Result: &set})
	if !set {
		t.Fatal("GetSequenceInsertion should read back true")
	}

	f.Input(flowDefUref(expectedFlowDef))
	seq := seqHeaderBytes(aspect4_3, 3)
	stream := concat(
		seq, picHeaderBytes(0, picTypeI), sliceBytes,
		picHeaderBytes(1, picTypeI), sliceBytes,
		endBytes,
	)
	f.Input(blockUref(stream))

	if len(out.got) != 3 {
		t.Fatalf("outputs = %d, want 3 (flow def + two frames)", len(out.got))
	}
	for i, frame := range out.got[1:] {
		got := payload(t, frame)
		if !bytes.HasPrefix(got, []byte{0x00, 0x00, 0x01, seqStartCode}) {
			t.Errorf("frame %d does not begin with a sequence header", i)
		}
		if !frame.Dict.GetVoid("f.random") {
			t.Errorf("frame %d should carry f.random", i)
		}
	}
	want := concat(seq, picHeaderBytes(1, picTypeI), sliceBytes, endBytes)
	if got := payload(t, out.got[2]); !bytes.Equal(got, want) {
		t.Errorf("second frame payload = % x, want cached header prepended: % x", got, want)
	}
}

func TestChunkedFeedMatchesWholeFeed(t *testing.T) {
	stream := concat(
		seqHeaderBytes(aspect4_3, 3),
		picHeaderBytes(0, picTypeI), sliceBytes,
		picHeaderBytes(2, picTypeP), sliceBytes,
		picHeaderBytes(1, picTypeB), sliceBytes,
		endBytes,
	)

	feed := func(chunk int) [][]byte {
		f, out, _ := newHarness()
		defer f.Release()
		f.Input(flowDefUref(expectedFlowDef))
		for off := 0; off < len(stream); off += chunk {
			end := min(off+chunk, len(stream))
			f.Input(blockUref(stream[off:end]))
		}
		var payloads [][]byte
		for _, u := range out.got {
			if u.Buf == nil {
				continue // flow def
			}
			payloads = append(payloads, payload(t, u))
		}
		return payloads
	}

	whole := feed(len(stream))
	chunked := feed(5)

	if len(whole) != 3 {
		t.Fatalf("frames = %d, want 3 (one per picture start code)", len(whole))
	}
	if !bytes.Equal(concat(whole...), stream) {
		t.Error("concatenated frame payloads must equal the input stream")
	}
	if len(chunked) != len(whole) {
		t.Fatalf("chunked frames = %d, whole frames = %d", len(chunked), len(whole))
	}
	for i := range whole {
		if !bytes.Equal(whole[i], chunked[i]) {
			t.Errorf("frame %d differs between whole and chunked feeds", i)
		}
	}
}

func TestBadFlowDefRejected(t *testing.T) {
	f, out, ev := newHarness()
	defer f.Release()

	f.Input(flowDefUref("block.h264."))
	if ev.count(pipe.EventFlowDefError) != 1 {
		t.Errorf("flow_def_error count = %d, want 1", ev.count(pipe.EventFlowDefError))
	}

	// Payload before any accepted flow def is dropped with the same event.
	f.Input(blockUref(seqHeaderBytes(aspect4_3, 3)))
	if ev.count(pipe.EventFlowDefError) != 2 {
		t.Errorf("flow_def_error count = %d, want 2", ev.count(pipe.EventFlowDefError))
	}
	if len(out.got) != 0 {
		t.Errorf("nothing should be forwarded, got %d", len(out.got))
	}
}

func TestMPEG2SequenceExtension(t *testing.T) {
	f, out, _ := newHarness()
	defer f.Release()
	f.Input(flowDefUref(expectedFlowDef))

	// sequence_extension: main profile @ main level (0x48), progressive,
	// 4:2:2 chroma, no size/rate extensions, no frame-rate multipliers.
	seqExt := []byte{
		0x00, 0x00, 0x01, extStartCode,
		byte(extIDSequence)<<4 | 0x04, // profile_and_level 0x48 high nibble
		0x80 | 0x08 | byte(chroma422)<<1,
		0x00, 0x00, 0x00, 0x00,
	}
	stream := concat(
		seqHeaderBytes(aspect4_3, 3), seqExt,
		picHeaderBytes(0, picTypeI), sliceBytes,
		endBytes,
	)
	f.Input(blockUref(stream))

	if len(out.got) != 2 {
		t.Fatalf("outputs = %d, want 2", len(out.got))
	}
	fd := out.got[0]
	def, _ := fd.FlowDef()
	if def != expectedFlowDef+"pic.planar8_422." {
		t.Errorf("flow def = %q, want 4:2:2 refinement", def)
	}
	if !fd.Dict.GetVoid("p.progressive") {
		t.Error("progressive_sequence must set p.progressive on the flow def")
	}
	if pl, err := fd.Dict.GetSmallUnsigned("mp2v.profilelevel"); err != nil || pl != 0x48 {
		t.Errorf("profilelevel = %#x err=%v, want 0x48", pl, err)
	}
	if maxOct, err := fd.Dict.GetUnsigned("b.max_octetrate"); err != nil || maxOct != 1875000 {
		t.Errorf("b.max_octetrate = %d err=%v, want 1875000 (main level)", maxOct, err)
	}
	if p, err := fd.PlaneAt(2); err != nil || p.Name != "v8" || p.HSub != 2 || p.VSub != 1 {
		t.Errorf("plane 2 = %+v err=%v, want v8 2x1", p, err)
	}
}
