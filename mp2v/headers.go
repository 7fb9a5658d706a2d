package mp2v

// Field extraction for the fixed-size headers of ISO/IEC 13818-2 section
// 6.2. Each helper takes the header bytes starting at the 4-byte start code
// prefix; callers must have peeked at least the corresponding *Size constant
// before calling.

// sequence_header

func seqHorizontal(b []byte) uint32 { return uint32(b[4])<<4 | uint32(b[5])>>4 }
func seqVertical(b []byte) uint32   { return uint32(b[5]&0x0F)<<8 | uint32(b[6]) }
func seqAspect(b []byte) uint8      { return b[7] >> 4 }
func seqFrameRate(b []byte) uint8   { return b[7] & 0x0F }

func seqBitrate(b []byte) uint32 {
	return uint32(b[8])<<10 | uint32(b[9])<<2 | uint32(b[10])>>6
}

func seqVBVBuffer(b []byte) uint32 {
	return uint32(b[10]&0x1F)<<5 | uint32(b[11])>>3
}

// sequence_extension

func seqxProfileLevel(b []byte) uint8 { return b[4]<<4 | b[5]>>4 }
func seqxProgressive(b []byte) bool   { return b[5]&0x08 != 0 }
func seqxChroma(b []byte) uint8       { return (b[5] >> 1) & 0x03 }

func seqxHorizontal(b []byte) uint32 { return uint32(b[5]&0x01)<<1 | uint32(b[6])>>7 }
func seqxVertical(b []byte) uint32   { return (uint32(b[6]) >> 5) & 0x03 }

func seqxBitrate(b []byte) uint32 {
	return uint32(b[6]&0x1F)<<7 | uint32(b[7])>>1
}

func seqxVBVBuffer(b []byte) uint32 { return uint32(b[8]) }
func seqxLowDelay(b []byte) bool    { return b[9]&0x80 != 0 }
func seqxFrameRateN(b []byte) int64 { return int64(b[9]>>5) & 0x03 }
func seqxFrameRateD(b []byte) int64 { return int64(b[9]) & 0x1F }

// sequence_display_extension; the display size fields shift by three bytes
// when colour_description is present.

func seqdxHasColor(b []byte) bool { return b[4]&0x01 != 0 }

func seqdxHorizontal(b []byte) uint32 {
	o := 0
	if seqdxHasColor(b) {
		o = seqDispColor
	}
	return uint32(b[5+o])<<6 | uint32(b[6+o])>>2
}

func seqdxVertical(b []byte) uint32 {
	o := 0
	if seqdxHasColor(b) {
		o = seqDispColor
	}
	return uint32(b[6+o]&0x01)<<13 | uint32(b[7+o])<<5 | uint32(b[8+o])>>3
}

// picture_header

func picTemporalReference(b []byte) int { return int(b[4])<<2 | int(b[5])>>6 }
func picCodingType(b []byte) uint8      { return (b[5] >> 3) & 0x07 }

// picVBVDelay returns the 16-bit vbv_delay field, in 90 kHz units; 0xFFFF
// means "not specified".
func picVBVDelay(b []byte) uint32 {
	return uint32(b[5]&0x07)<<13 | uint32(b[6])<<5 | uint32(b[7])>>3
}

// picture_coding_extension

func picxIntraDC(b []byte) uint8    { return (b[6] >> 2) & 0x03 }
func picxStructure(b []byte) uint8  { return b[6] & 0x03 }
func picxTFF(b []byte) bool         { return b[7]&0x80 != 0 }
func picxRFF(b []byte) bool         { return b[7]&0x02 != 0 }
func picxProgressive(b []byte) bool { return b[8]&0x80 != 0 }

// group_of_pictures_header

func gopClosed(b []byte) bool     { return b[7]&0x40 != 0 }
func gopBrokenLink(b []byte) bool { return b[7]&0x20 != 0 }

// extension_start_code_identifier, the high nibble of the byte following an
// extension start code.
func extID(b byte) uint8 { return b >> 4 }
