package mp2v

import "github.com/studoret/upipe/udict"

// Start codes (ISO/IEC 13818-2), the one-byte identifier that follows the
// 0x00 0x00 0x01 prefix.
const (
	picStartCode = 0x00 // picture_start_code
	picLastCode  = 0xAF // last slice_start_code
	seqStartCode = 0xB3 // sequence_header_code
	extStartCode = 0xB5 // extension_start_code
	gopStartCode = 0xB8 // group_start_code
	endStartCode = 0xB7 // sequence_end_code
)

// Extension start code identifiers (the 4-bit nibble immediately following
// extStartCode).
const (
	extIDSequence    = 1 // sequence_extension
	extIDDisplay     = 2 // sequence_display_extension
	extIDPictureCode = 8 // picture_coding_extension
)

// Fixed header sizes in bytes, each including its 4-byte start code.
const (
	seqHeaderSize = 12 // sequence_header, before any quantiser matrices
	seqExtSize    = 10 // sequence_extension
	seqDispSize   = 9  // sequence_display_extension, before optional colour
	seqDispColor  = 3  // additional bytes when colour_description is set
	picHeaderSize = 8  // picture_header (temporal_reference/type/vbv_delay)
	picExtSize    = 9  // picture_coding_extension
	gopHeaderSize = 8  // group_of_pictures_header
)

// Picture coding types (picture_coding_type, 3 bits).
const (
	picTypeI = 1
	picTypeP = 2
	picTypeB = 3
	picTypeD = 4
)

// Picture structure values (picture_structure, 2 bits): the two single-bit
// flags OR together to produce the "frame" value.
const (
	structureTopField    = 0x1
	structureBottomField = 0x2
	structureFrame       = structureTopField | structureBottomField
)

// Aspect-ratio-information codes (sequence_header).
const (
	aspectSquare = 1
	aspect4_3    = 2
	aspect16_9   = 3
	aspect2_21   = 4
)

// Chroma format codes (sequence_extension).
const (
	chroma420 = 1
	chroma422 = 2
	chroma444 = 3
)

// rational mirrors udict.Rational for table literals below; frameRates
// indexes directly by the 4-bit frame_rate_code field.
type rational = udict.Rational

// frameRates is the frame_rate_code lookup table verbatim from ISO/IEC
// 13818-2 plus the Xing/libmpeg3 aliases historically tolerated by
// decoders; index 0 and the two trailing entries are invalid (num=0).
var frameRates = [16]rational{
	{Num: 0, Den: 0},
	{Num: 24000, Den: 1001},
	{Num: 24, Den: 1},
	{Num: 25, Den: 1},
	{Num: 30000, Den: 1001},
	{Num: 30, Den: 1},
	{Num: 50, Den: 1},
	{Num: 60000, Den: 1001},
	{Num: 60, Den: 1},
	{Num: 15000, Den: 1001}, // Xing
	{Num: 5000, Den: 1001},  // libmpeg3
	{Num: 10000, Den: 1001},
	{Num: 12000, Den: 1001},
	{Num: 15000, Den: 1001},
	{Num: 0, Den: 0},
	{Num: 0, Den: 0},
}

// Profile/level mask and values (profile_and_level_indication's low nibble
// in the Main profile encoding used throughout this table).
const (
	levelMask     = 0x0F
	levelLow      = 0xA
	levelMain     = 0x8
	levelHigh1440 = 0x6
	levelHigh     = 0x4
)

// maxOctetrate returns the maximum byte rate permitted for a given level
// nibble, or ok=false for an unrecognized level.
func maxOctetrate(level uint32) (rate uint64, ok bool) {
	switch level & levelMask {
	case levelLow:
		return 500000, true
	case levelMain:
		return 1875000, true
	case levelHigh1440:
		return 7500000, true
	case levelHigh:
		return 10000000, true
	default:
		return 0, false
	}
}

const clockFreq = 27000000 // 27 MHz, per spec §6
