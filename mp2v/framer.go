// Package mp2v implements the MPEG-2 video framer (C8): a start-code-driven
// parser that reassembles arbitrary block fragments of an ISO/IEC 13818-2
// elementary stream into exactly one access unit per output uref, annotated
// with typed picture attributes and a flow definition tracking
// sequence-header changes.
package mp2v

import (
	"fmt"
	"strings"

	"github.com/studoret/upipe/octstream"
	"github.com/studoret/upipe/pipe"
	"github.com/studoret/upipe/ubuf"
	"github.com/studoret/upipe/udict"
	"github.com/studoret/upipe/uref"
)

// expectedFlowDef is the input flow definition prefix this framer accepts.
const expectedFlowDef = "block.mpeg2video."

// noTS is the "absent" sentinel for every timestamp register.
const noTS = ^uint64(0)

// startPrefix is the three-byte start code prefix.
var startPrefix = []byte{0x00, 0x00, 0x01}

var (
	ptsAttrs = [3]string{"k.pts.orig", "k.pts", "k.pts.sys"}
	dtsAttrs = [3]string{"k.dts.orig", "k.dts", "k.dts.sys"}
)

// GetSequenceInsertion retrieves the current sequence-header insertion
// setting into *Result.
type GetSequenceInsertion struct {
	pipe.CommandBase
	Result *bool
}

// SetSequenceInsertion toggles insertion of the cached sequence header in
// front of I frames that lack one.
type SetSequenceInsertion struct {
	pipe.CommandBase
	Insert bool
}

// Framer is the MPEG-2 video framer pipe. All dictionary and block
// descriptor traffic on the processing path goes through the two managers,
// so that pool operations are the only hot-path allocations.
type Framer struct {
	common *pipe.Common
	sync   pipe.Sync
	stream *octstream.Stream
	dicts  *udict.Manager
	blocks *ubuf.Manager
	extra  int // dictionary growth increment, from the dict manager

	// output flow definition, pending emission before the next frame
	flowDef      *uref.Uref
	flowDefSent  bool
	flowDefInput *uref.Uref

	// system time of the last I frame that introduced a sequence header
	systimeRap uint64

	lastPictureNumber     int64
	lastTemporalReference int
	gotDiscontinuity      bool
	insertSequence        bool

	// minimal byte ranges of the cached sequence structures
	sequenceHeader  *ubuf.Ubuf
	sequenceExt     *ubuf.Ubuf
	sequenceDisplay *ubuf.Ubuf

	progressiveSequence bool
	fps                 udict.Rational

	// registers for the currently accumulating frame
	nextFrameSize     int
	nextFrameSequence bool
	nextFrameOffset   int // offset of the picture start code, or -1
	nextFrameSlice    bool
	nextFramePTS      [3]uint64 // orig, normalized, system
	nextFrameDTS      [3]uint64
}

// NewFramer constructs a framer drawing dictionaries and block descriptors
// from the given managers, and throws EventReady through the probe chain.
func NewFramer(dicts *udict.Manager, blocks *ubuf.Manager, probes ...pipe.Probe) *Framer {
	f := &Framer{
		common:                pipe.NewCommon(probes...),
		dicts:                 dicts,
		blocks:                blocks,
		extra:                 dicts.ExtraSize(),
		systimeRap:            noTS,
		lastPictureNumber:     -1,
		lastTemporalReference: -1,
		nextFrameOffset:       -1,
	}
	f.stream = octstream.New(f.promote, dicts)
	f.flushPTS()
	f.flushDTS()
	f.common.Throw(pipe.Event{Kind: pipe.EventReady, Pipe: f})
	return f
}

// dupUref duplicates u through the framer's managers: the dictionary is
// copied, the block descriptor re-shares its regions.
func (f *Framer) dupUref(u *uref.Uref) *uref.Uref {
	out := &uref.Uref{}
	if u.Dict != nil {
		out.Dict = f.dicts.Dup(u.Dict)
	}
	if u.Buf != nil {
		out.Buf = f.blocks.Dup(u.Buf)
	}
	return out
}

// freeUref returns a uref the framer owns to its managers.
func (f *Framer) freeUref(u *uref.Uref) {
	if u.Dict != nil {
		f.dicts.Free(u.Dict)
		u.Dict = nil
	}
	if u.Buf != nil {
		f.blocks.Free(u.Buf)
		u.Buf = nil
	}
}

// Use acquires an additional reference.
func (f *Framer) Use() pipe.Pipe {
	f.common.Use()
	return f
}

// Release drops a reference. The last release drains the octet-stream
// queue, frees the cached sequence buffers and throws EventDead.
func (f *Framer) Release() {
	if !f.common.Release() {
		return
	}
	f.common.Throw(pipe.Event{Kind: pipe.EventDead, Pipe: f})
	f.stream.Clean()
	if f.sequenceHeader != nil {
		f.blocks.Free(f.sequenceHeader)
		f.sequenceHeader = nil
	}
	if f.sequenceExt != nil {
		f.blocks.Free(f.sequenceExt)
		f.sequenceExt = nil
	}
	if f.sequenceDisplay != nil {
		f.blocks.Free(f.sequenceDisplay)
		f.sequenceDisplay = nil
	}
	if f.flowDefInput != nil {
		f.freeUref(f.flowDefInput)
		f.flowDefInput = nil
	}
	f.storeFlowDef(nil)
	f.common.SetOutput(nil)
}

// Control dispatches the framer-specific commands and falls through to the
// generic output commands.
func (f *Framer) Control(cmd pipe.Command) error {
	switch c := cmd.(type) {
	case GetSequenceInsertion:
		*c.Result = f.insertSequence
		return nil
	case SetSequenceInsertion:
		f.insertSequence = c.Insert
		return nil
	default:
		return f.common.HandleControl(cmd)
	}
}

// Input hands a uref to the framer. Flow-definition urefs reconfigure it;
// block urefs are appended to the octet stream and parsed synchronously.
func (f *Framer) Input(u *uref.Uref) {
	if def, err := u.FlowDef(); err == nil {
		if !strings.HasPrefix(def, expectedFlowDef) {
			f.freeUref(u)
			if f.flowDefInput != nil {
				f.freeUref(f.flowDefInput)
				f.flowDefInput = nil
			}
			f.storeFlowDef(nil)
			f.common.Throw(pipe.Event{Kind: pipe.EventFlowDefError, Pipe: f, Detail: def})
			return
		}
		if f.flowDefInput != nil {
			f.freeUref(f.flowDefInput)
		}
		f.flowDefInput = u
		if f.sequenceHeader != nil {
			f.parseSequence()
		}
		return
	}

	if f.flowDefInput == nil {
		f.freeUref(u)
		f.common.Throw(pipe.Event{Kind: pipe.EventFlowDefError, Pipe: f})
		return
	}

	if u.Buf == nil {
		f.freeUref(u)
		return
	}

	if u.Discontinuity() {
		if !f.nextFrameSlice {
			// Discontinuities in the headers before the first slice would
			// corrupt the whole frame: drop everything accumulated so far
			// and resync from the next sequence header.
			f.stream.Clean()
			f.stream.Init()
			f.gotDiscontinuity = true
			f.sync.Lose(f.common)
			f.nextFrameSize = 0
			f.nextFrameSequence = false
			f.nextFrameOffset = -1
		} else if next := f.stream.Next(); next != nil {
			// Inside the slices a drop is more destructive than emitting a
			// flagged frame.
			next.SetError(f.extra)
		}
	}

	f.stream.Append(u)
	f.work()
}

// promote is the octet-stream hook: it pulls the timestamps of a
// newly-promoted uref into the next-frame registers so that the next
// emitted frame inherits them.
func (f *Framer) promote(next *uref.Uref) {
	if next.Dict == nil {
		return
	}
	for i, name := range ptsAttrs {
		if ts, err := next.Dict.GetUnsigned(name); err == nil {
			f.nextFramePTS[i] = ts
		}
	}
	for i, name := range dtsAttrs {
		if ts, err := next.Dict.GetUnsigned(name); err == nil {
			f.nextFrameDTS[i] = ts
		}
	}
}

func (f *Framer) flushPTS() {
	for i := range f.nextFramePTS {
		f.nextFramePTS[i] = noTS
	}
}

func (f *Framer) flushDTS() {
	for i := range f.nextFrameDTS {
		f.nextFrameDTS[i] = noTS
	}
}

func (f *Framer) incrementDTS(duration uint64) {
	for i := range f.nextFrameDTS {
		if f.nextFrameDTS[i] != noTS {
			f.nextFrameDTS[i] += duration
		}
	}
}

// findStart scans for the next start code from nextFrameSize onward,
// leaving nextFrameSize at the first byte of the prefix and returning the
// start code value. It reports false when the stream holds no complete
// start code yet.
func (f *Framer) findStart() (byte, bool) {
	next := f.stream.Next()
	if next == nil || next.Buf == nil {
		return 0, false
	}
	if err := next.Buf.Find(&f.nextFrameSize, startPrefix); err != nil {
		return 0, false
	}
	var b [1]byte
	if err := next.Buf.Extract(f.nextFrameSize+3, 1, b[:]); err != nil {
		return 0, false
	}
	return b[0], true
}

// findExt scans u from *offset onward for an extension start code, leaving
// *offset at the first byte of the prefix and returning the extension
// identifier nibble.
func findExt(u *uref.Uref, offset *int) (uint8, bool) {
	pattern := []byte{0x00, 0x00, 0x01, extStartCode}
	if err := u.Buf.Find(offset, pattern); err != nil {
		return 0, false
	}
	var b [1]byte
	if err := u.Buf.Extract(*offset+4, 1, b[:]); err != nil {
		return 0, false
	}
	return extID(b[0]), true
}

// work consumes the octet stream, emitting one uref per complete frame.
func (f *Framer) work() {
	for f.stream.Next() != nil {
		start, ok := f.findStart()
		if !ok {
			return
		}

		if !f.sync.Acquired() {
			// Scanning state: drop everything before the start code and only
			// let a sequence header through.
			f.stream.Consume(f.nextFrameSize)
			f.nextFrameSize = 0
			switch start {
			case picStartCode:
				f.flushPTS()
				f.flushDTS()
			case seqStartCode:
				f.sync.Raise(f.common)
				f.nextFrameSequence = true
			}
			f.nextFrameSize += 4
			continue
		}

		if f.nextFrameOffset == -1 {
			if start == picStartCode {
				f.nextFrameOffset = f.nextFrameSize
			}
			f.nextFrameSize += 4
			continue
		}

		if start == extStartCode {
			f.nextFrameSize += 4
			continue
		}

		if start > picStartCode && start <= picLastCode {
			// slice header
			f.nextFrameSlice = true
			f.nextFrameSize += 4
			continue
		}

		boundary := start == seqStartCode || start == gopStartCode ||
			start == picStartCode || start == endStartCode
		if boundary && !f.nextFrameSlice {
			// A frame only ends once at least one slice has followed the
			// picture header.
			f.nextFrameSize += 4
			continue
		}

		if start == endStartCode {
			// The end-of-sequence code belongs to the outgoing frame.
			f.nextFrameSize += 4
		}

		if !f.outputFrame() {
			f.stream.Consume(f.nextFrameSize)
			f.nextFrameSize = 0
			f.sync.Lose(f.common)
			f.nextFrameSequence = false
			f.nextFrameOffset = -1
			f.nextFrameSlice = false
			continue
		}
		f.stream.Consume(f.nextFrameSize)
		f.nextFrameSequence = false
		f.nextFrameOffset = -1
		f.nextFrameSlice = false
		f.nextFrameSize = 4
		switch start {
		case seqStartCode:
			f.nextFrameSequence = true
		case gopStartCode:
		case picStartCode:
			f.nextFrameOffset = 0
		case endStartCode:
			f.nextFrameSize = 0
			f.sync.Lose(f.common)
		default:
			f.sync.Lose(f.common)
		}
	}
}

// outputFrame slices the accumulated frame out of the octet stream, parses
// its headers and forwards it. It reports false when the frame failed
// validation and the caller must resync.
func (f *Framer) outputFrame() bool {
	u := f.dupUref(f.stream.Next())
	if err := u.Buf.Resize(0, f.nextFrameSize); err != nil {
		f.freeUref(u)
		f.common.Throw(pipe.Event{Kind: pipe.EventAllocError, Pipe: f})
		return true
	}

	if f.nextFrameSequence {
		if !f.handleSequence(u) {
			f.freeUref(u)
			return false
		}
	}

	if !f.handlePicture(u) {
		f.freeUref(u)
		return false
	}

	if f.systimeRap != noTS {
		u.SetSystimeRap(f.systimeRap, f.extra)
	}
	f.output(u)
	return true
}

// output forwards u downstream, preceded by the pending flow definition
// when one has been stored and not yet sent.
func (f *Framer) output(u *uref.Uref) {
	if !f.flowDefSent && f.flowDef != nil {
		f.flowDefSent = true
		f.common.Forward(f.dupUref(f.flowDef))
	}
	f.common.Forward(u)
}

func (f *Framer) storeFlowDef(fd *uref.Uref) {
	if f.flowDef != nil {
		f.freeUref(f.flowDef)
	}
	f.flowDef = fd
	f.flowDefSent = false
}

func (f *Framer) throwParseError(detail string) {
	f.common.Throw(pipe.Event{Kind: pipe.EventParseError, Pipe: f, Detail: detail})
}

// extractSequence slices the minimal sequence header (including any
// quantiser matrices) out of a frame beginning with one, leaving *offset at
// the first byte past it.
func (f *Framer) extractSequence(u *uref.Uref, offset *int) *ubuf.Ubuf {
	header := f.blocks.Dup(u.Buf)
	var word [1]byte
	if err := header.Extract(11, 1, word[:]); err != nil {
		f.blocks.Free(header)
		f.throwParseError("truncated sequence header")
		return nil
	}
	size := seqHeaderSize
	if word[0]&0x2 != 0 {
		// intra quantiser matrix
		size += 64
		if err := header.Extract(11+64, 1, word[:]); err != nil {
			f.blocks.Free(header)
			f.throwParseError("truncated sequence header")
			return nil
		}
	}
	if word[0]&0x1 != 0 {
		// non-intra quantiser matrix
		size += 64
	}
	if err := header.Resize(0, size); err != nil {
		f.blocks.Free(header)
		f.throwParseError("truncated sequence header")
		return nil
	}
	*offset = size
	return header
}

// extractExtension slices the sequence extension at *offset, advancing it.
func (f *Framer) extractExtension(u *uref.Uref, offset *int) *ubuf.Ubuf {
	ext := f.blocks.Dup(u.Buf)
	if err := ext.Resize(*offset, seqExtSize); err != nil {
		f.blocks.Free(ext)
		f.throwParseError("truncated sequence extension")
		return nil
	}
	*offset += seqExtSize
	return ext
}

// extractDisplay slices the sequence display extension at *offset,
// advancing it.
func (f *Framer) extractDisplay(u *uref.Uref, offset *int) *ubuf.Ubuf {
	display := f.blocks.Dup(u.Buf)
	var word [1]byte
	if err := display.Extract(*offset+4, 1, word[:]); err != nil {
		f.blocks.Free(display)
		f.throwParseError("truncated sequence display extension")
		return nil
	}
	size := seqDispSize
	if word[0]&0x01 != 0 {
		size += seqDispColor
	}
	if err := display.Resize(*offset, size); err != nil {
		f.blocks.Free(display)
		f.throwParseError("truncated sequence display extension")
		return nil
	}
	*offset += size
	return display
}

// handleSequence extracts the sequence structures from a frame beginning
// with a sequence header, and either rotates the cache when they are
// byte-identical to the cached ones or reparses them into a new flow
// definition.
func (f *Framer) handleSequence(u *uref.Uref) bool {
	var extOffset int
	header := f.extractSequence(u, &extOffset)
	if header == nil {
		return false
	}

	var ext, display *ubuf.Ubuf
	if id, ok := findExt(u, &extOffset); ok {
		if id != extIDSequence {
			// Extensions mean MPEG-2, and MPEG-2 requires the sequence
			// extension first.
			f.blocks.Free(header)
			f.throwParseError(fmt.Sprintf("wrong header extension %d", id))
			return false
		}
		if ext = f.extractExtension(u, &extOffset); ext == nil {
			f.blocks.Free(header)
			return false
		}
		if id, ok := findExt(u, &extOffset); ok && id == extIDDisplay {
			if display = f.extractDisplay(u, &extOffset); display == nil {
				f.blocks.Free(header)
				f.blocks.Free(ext)
				return false
			}
		}
	}

	identical := f.sequenceHeader != nil &&
		ubuf.Compare(header, f.sequenceHeader) &&
		bothNilOrEqual(ext, f.sequenceExt) &&
		bothNilOrEqual(display, f.sequenceDisplay)

	f.releaseSequenceCache()
	f.sequenceHeader = header
	f.sequenceExt = ext
	f.sequenceDisplay = display

	if identical {
		// Identical sequence header, extension and display: rotate the cache
		// to the newer buffers without reparsing.
		return true
	}
	return f.parseSequence()
}

func bothNilOrEqual(a, b *ubuf.Ubuf) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return ubuf.Compare(a, b)
}

func (f *Framer) releaseSequenceCache() {
	if f.sequenceHeader != nil {
		f.blocks.Free(f.sequenceHeader)
	}
	if f.sequenceExt != nil {
		f.blocks.Free(f.sequenceExt)
	}
	if f.sequenceDisplay != nil {
		f.blocks.Free(f.sequenceDisplay)
	}
	f.sequenceHeader, f.sequenceExt, f.sequenceDisplay = nil, nil, nil
}

// parseSequence parses the cached sequence structures and stores a new
// output flow definition. It reports false on a malformed header.
func (f *Framer) parseSequence() bool {
	scratch := make([]byte, seqHeaderSize)
	seq, err := f.sequenceHeader.Peek(0, seqHeaderSize, scratch)
	if err != nil {
		f.throwParseError("truncated sequence header")
		return false
	}
	horizontal := seqHorizontal(seq)
	vertical := seqVertical(seq)
	aspect := seqAspect(seq)
	frameRateCode := seqFrameRate(seq)
	bitrate := uint64(seqBitrate(seq))
	vbvBuffer := uint64(seqVBVBuffer(seq))

	frameRate := frameRates[frameRateCode]
	if frameRate.Num == 0 {
		f.throwParseError(fmt.Sprintf("invalid frame rate %d", frameRateCode))
		return false
	}

	flowDef := f.dupUref(f.flowDefInput)
	chroma := uint8(chroma420)

	if f.sequenceExt != nil {
		extScratch := make([]byte, seqExtSize)
		ext, err := f.sequenceExt.Peek(0, seqExtSize, extScratch)
		if err != nil {
			f.freeUref(flowDef)
			f.throwParseError("truncated sequence extension")
			return false
		}
		profileLevel := seqxProfileLevel(ext)
		progressive := seqxProgressive(ext)
		chroma = seqxChroma(ext)
		horizontal |= seqxHorizontal(ext) << 12
		vertical |= seqxVertical(ext) << 12
		bitrate |= uint64(seqxBitrate(ext)) << 18
		vbvBuffer |= uint64(seqxVBVBuffer(ext)) << 10
		frameRate.Num *= seqxFrameRateN(ext) + 1
		frameRate.Den *= seqxFrameRateD(ext) + 1
		frameRate = simplify(frameRate)

		maxOct, ok := maxOctetrate(uint32(profileLevel))
		if !ok {
			f.freeUref(flowDef)
			f.throwParseError(fmt.Sprintf("invalid level %d", profileLevel&levelMask))
			return false
		}
		flowDef.Dict.SetSmallUnsigned("mp2v.profilelevel", profileLevel, f.extra)
		flowDef.Dict.SetUnsigned("b.max_octetrate", maxOct, f.extra)
		if progressive {
			flowDef.Dict.SetVoid("p.progressive", f.extra)
		}
		if seqxLowDelay(ext) {
			flowDef.Dict.SetVoid("mp2v.lowdelay", f.extra)
		}
		f.progressiveSequence = progressive
	} else {
		f.progressiveSequence = false
	}

	flowDef.SetMacropixel(1, f.extra)
	flowDef.SetPlanes(0, f.extra)
	flowDef.AddPlane(1, 1, 1, "y8", f.extra)
	switch chroma {
	case chroma420:
		flowDef.AddPlane(2, 2, 1, "u8", f.extra)
		flowDef.AddPlane(2, 2, 1, "v8", f.extra)
		flowDef.SetFlowDef(expectedFlowDef+"pic.planar8_420.", f.extra)
	case chroma422:
		flowDef.AddPlane(2, 1, 1, "u8", f.extra)
		flowDef.AddPlane(2, 1, 1, "v8", f.extra)
		flowDef.SetFlowDef(expectedFlowDef+"pic.planar8_422.", f.extra)
	case chroma444:
		flowDef.AddPlane(1, 1, 1, "u8", f.extra)
		flowDef.AddPlane(1, 1, 1, "v8", f.extra)
		flowDef.SetFlowDef(expectedFlowDef+"pic.planar8_444.", f.extra)
	default:
		f.freeUref(flowDef)
		f.throwParseError(fmt.Sprintf("invalid chroma format %d", chroma))
		return false
	}

	flowDef.Dict.SetUnsigned("p.hsize", uint64(horizontal), f.extra)
	flowDef.Dict.SetUnsigned("p.vsize", uint64(vertical), f.extra)

	var sar udict.Rational
	switch aspect {
	case aspectSquare:
		sar = udict.Rational{Num: 1, Den: 1}
	case aspect4_3:
		sar = simplify(udict.Rational{Num: int64(vertical) * 4, Den: int64(horizontal) * 3})
	case aspect16_9:
		sar = simplify(udict.Rational{Num: int64(vertical) * 16, Den: int64(horizontal) * 9})
	case aspect2_21:
		sar = simplify(udict.Rational{Num: int64(vertical) * 221, Den: int64(horizontal) * 100})
	default:
		f.freeUref(flowDef)
		f.throwParseError(fmt.Sprintf("invalid aspect ratio %d", aspect))
		return false
	}
	flowDef.Dict.SetRational("p.aspect", sar, f.extra)
	flowDef.Dict.SetRational("p.fps", frameRate, f.extra)
	f.fps = frameRate
	flowDef.Dict.SetUnsigned("b.octetrate", bitrate*400/8, f.extra)
	flowDef.Dict.SetUnsigned("b.cpb_buffer", vbvBuffer*2048, f.extra)

	if f.sequenceDisplay != nil {
		size := f.sequenceDisplay.TotalSize()
		dispScratch := make([]byte, size)
		disp, err := f.sequenceDisplay.Peek(0, size, dispScratch)
		if err != nil {
			f.freeUref(flowDef)
			f.throwParseError("truncated sequence display extension")
			return false
		}
		flowDef.Dict.SetUnsigned("p.hsizevis", uint64(seqdxHorizontal(disp)), f.extra)
		flowDef.Dict.SetUnsigned("p.vsizevis", uint64(seqdxVertical(disp)), f.extra)
	}

	f.storeFlowDef(flowDef)
	return true
}

// parsePicture parses the picture header (and optional GOP header and
// picture coding extension) of a frame, annotating u with the picture
// attributes and timestamps.
func (f *Framer) parsePicture(u *uref.Uref) bool {
	closedGOP := false
	brokenLink := false
	if f.nextFrameOffset != 0 {
		// There is some header in front; there may be a GOP header.
		gopOffset := 0
		if u.Buf.Find(&gopOffset, []byte{0x00, 0x00, 0x01, gopStartCode}) == nil {
			gopScratch := make([]byte, gopHeaderSize)
			gop, err := u.Buf.Peek(gopOffset, gopHeaderSize, gopScratch)
			if err != nil {
				f.throwParseError("truncated GOP header")
				return false
			}
			closedGOP = gopClosed(gop)
			brokenLink = gopBrokenLink(gop)
			f.lastTemporalReference = -1
		}
	}

	if brokenLink || (!closedGOP && f.gotDiscontinuity) {
		u.SetDiscontinuity(f.extra)
		f.gotDiscontinuity = false
	}

	picScratch := make([]byte, picHeaderSize)
	pic, err := u.Buf.Peek(f.nextFrameOffset, picHeaderSize, picScratch)
	if err != nil {
		f.throwParseError("truncated picture header")
		return false
	}
	temporalReference := picTemporalReference(pic)
	codingType := picCodingType(pic)
	vbvDelay := picVBVDelay(pic)

	pictureNumber := f.lastPictureNumber +
		int64(temporalReference) - int64(f.lastTemporalReference)
	if temporalReference > f.lastTemporalReference {
		f.lastTemporalReference = temporalReference
		f.lastPictureNumber = pictureNumber
	}
	u.Dict.SetUnsigned("p.num", uint64(pictureNumber), f.extra)
	u.Dict.SetSmallUnsigned("mp2v.type", codingType, f.extra)
	if vbvDelay != 0xFFFF {
		u.SetVBVDelay(uint64(vbvDelay)*clockFreq/90000, f.extra)
	}

	extOffset := f.nextFrameOffset + picHeaderSize
	duration := uint64(clockFreq) * uint64(f.fps.Den) / uint64(f.fps.Num)
	if id, ok := findExt(u, &extOffset); ok {
		if id != extIDPictureCode {
			// Extensions mean MPEG-2, and MPEG-2 requires the picture coding
			// extension after the picture header.
			f.throwParseError(fmt.Sprintf("wrong header extension %d", id))
			return false
		}

		extScratch := make([]byte, picExtSize)
		ext, err := u.Buf.Peek(extOffset, picExtSize, extScratch)
		if err != nil {
			f.throwParseError("truncated picture coding extension")
			return false
		}
		structure := picxStructure(ext)
		tff := picxTFF(ext)
		rff := picxRFF(ext)

		if f.progressiveSequence {
			if rff {
				n := uint64(1)
				if tff {
					n = 2
				}
				duration *= n
			}
		} else if structure == structureFrame {
			if rff {
				duration += duration / 2
			}
		} else {
			duration /= 2
		}

		if structure&structureTopField != 0 {
			u.Dict.SetVoid("p.tf", f.extra)
		}
		if structure&structureBottomField != 0 {
			u.Dict.SetVoid("p.bf", f.extra)
		}
		if tff {
			u.Dict.SetVoid("p.tff", f.extra)
		}
		if picxProgressive(ext) {
			u.Dict.SetVoid("p.progressive", f.extra)
		}
		u.SetDuration(duration, f.extra)
	}

	for i, name := range ptsAttrs {
		if f.nextFramePTS[i] != noTS {
			u.Dict.SetUnsigned(name, f.nextFramePTS[i], f.extra)
		} else {
			u.Dict.Delete(name, udict.TypeUnsigned)
		}
	}
	for i, name := range dtsAttrs {
		if f.nextFrameDTS[i] != noTS {
			u.Dict.SetUnsigned(name, f.nextFrameDTS[i], f.extra)
		} else {
			u.Dict.Delete(name, udict.TypeUnsigned)
		}
	}
	f.flushPTS()
	f.incrementDTS(duration)
	return true
}

// handlePicture parses the picture headers and performs the I-frame
// augmentation: random-access marking and, when configured, insertion of
// the cached sequence structures in front of I frames that lack one.
func (f *Framer) handlePicture(u *uref.Uref) bool {
	if !f.parsePicture(u) {
		return false
	}

	codingType, err := u.Dict.GetSmallUnsigned("mp2v.type")
	if err != nil || codingType != picTypeI {
		return err == nil
	}

	systimeRap := noTS
	if rap, err := u.SystimeRap(); err == nil {
		systimeRap = rap
	}

	switch {
	case f.nextFrameSequence:
		u.SetRandom(f.extra)
		f.systimeRap = systimeRap
	case f.insertSequence:
		if f.sequenceDisplay != nil {
			d := f.blocks.Dup(f.sequenceDisplay)
			u.Buf.Insert(0, d)
			f.blocks.Free(d)
		}
		if f.sequenceExt != nil {
			d := f.blocks.Dup(f.sequenceExt)
			u.Buf.Insert(0, d)
			f.blocks.Free(d)
		}
		d := f.blocks.Dup(f.sequenceHeader)
		u.Buf.Insert(0, d)
		f.blocks.Free(d)
		u.SetRandom(f.extra)
		f.systimeRap = systimeRap
	}
	return true
}

// simplify reduces a rational to lowest terms.
func simplify(r udict.Rational) udict.Rational {
	a, b := r.Num, r.Den
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	if a > 1 {
		r.Num /= a
		r.Den /= a
	}
	return r
}
