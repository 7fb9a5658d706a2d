package udict

import (
	"encoding/binary"
	"errors"
)

// ErrNotFound is returned by Get when no entry matches (name, type).
var ErrNotFound = errors.New("udict: attribute not found")

// ErrTooLarge is returned by Set when the value would overflow the 16-bit
// wire length field.
var ErrTooLarge = errors.New("udict: value too large for wire length field")

// ErrAlloc signals a backing-buffer allocation failure.
var ErrAlloc = errors.New("udict: allocation failure")

const maxWireLen = 0xFFFF

// Dict is the inline, TLV-encoded attribute dictionary (C3). The zero value
// is not usable; construct with Alloc or a Manager.
type Dict struct {
	buf []byte // always ends with a single TypeEnd byte
}

// Alloc reserves a dictionary of at least size bytes (size must already
// reflect the manager's min_size; Manager.Alloc applies that floor) and
// installs the end sentinel.
func Alloc(size int) *Dict {
	if size < 1 {
		size = 1
	}
	buf := make([]byte, 1, size)
	buf[0] = byte(TypeEnd)
	return &Dict{buf: buf}
}

// Dup allocates a new dictionary of the same size as d and copies its bytes
// verbatim (O(size) duplication, per spec).
func Dup(d *Dict) *Dict {
	buf := make([]byte, len(d.buf))
	copy(buf, d.buf)
	return &Dict{buf: buf}
}

// Size returns the dictionary's current encoded length, including the end
// sentinel.
func (d *Dict) Size() int { return len(d.buf) }

// Bytes returns the raw encoded buffer. Callers must not mutate it; use
// Set/Delete instead.
func (d *Dict) Bytes() []byte { return d.buf }

// Compare reports whether a and b are byte-identical.
func Compare(a, b *Dict) bool {
	if len(a.buf) != len(b.buf) {
		return false
	}
	for i := range a.buf {
		if a.buf[i] != b.buf[i] {
			return false
		}
	}
	return true
}

// entry describes one decoded TLV record at a given buffer offset.
type entry struct {
	offset    int // offset of the type byte
	totalLen  int // bytes consumed by this entry, including the type byte
	wireType  Type
	name      string // resolved name (shorthand table lookup, or explicit)
	baseType  Type   // type used to interpret the value bytes
	valueOff  int    // offset of the first value byte
	valueLen  int
	shorthand bool
}

// decodeAt parses the entry starting at off. off must point at a type byte
// within d.buf. Returns ok=false only for TypeEnd (no entry there).
func (d *Dict) decodeAt(off int) (e entry, ok bool) {
	wireType := Type(d.buf[off])
	if wireType == TypeEnd {
		return entry{}, false
	}
	if wireType > ShorthandBase {
		name, base, valid := Name(wireType)
		if !valid {
			// Out-of-range shorthand code: treat defensively as end-of-data
			// rather than reading garbage past the table.
			return entry{}, false
		}
		if width, fixed := fixedWidth(base); fixed {
			return entry{
				offset: off, totalLen: 1 + width, wireType: wireType,
				name: name, baseType: base, valueOff: off + 1, valueLen: width,
				shorthand: true,
			}, true
		}
		l := int(binary.BigEndian.Uint16(d.buf[off+1 : off+3]))
		return entry{
			offset: off, totalLen: 1 + 2 + l, wireType: wireType,
			name: name, baseType: base, valueOff: off + 3, valueLen: l,
			shorthand: true,
		}, true
	}

	// Non-shorthand: base type is the wire type itself, length field covers
	// name\0value.
	l := int(binary.BigEndian.Uint16(d.buf[off+1 : off+3]))
	nameStart := off + 3
	nulAt := nameStart
	for d.buf[nulAt] != 0 {
		nulAt++
	}
	name := string(d.buf[nameStart:nulAt])
	valueOff := nulAt + 1
	valueLen := l - (valueOff - nameStart)
	return entry{
		offset: off, totalLen: 1 + 2 + l, wireType: wireType,
		name: name, baseType: wireType, valueOff: valueOff, valueLen: valueLen,
		shorthand: false,
	}, true
}

// Cursor is an opaque iteration position for Iterate.
type Cursor struct{ offset int }

// Iterate advances cur and returns the next entry's name and type. At end
// of buffer it returns ("", TypeEnd, false).
func (d *Dict) Iterate(cur *Cursor) (name string, typ Type, ok bool) {
	e, found := d.decodeAt(cur.offset)
	if !found {
		return "", TypeEnd, false
	}
	cur.offset += e.totalLen
	return e.name, e.baseType, true
}

func (d *Dict) find(name string, typ Type) (entry, bool) {
	off := 0
	for off < len(d.buf) {
		e, ok := d.decodeAt(off)
		if !ok {
			return entry{}, false
		}
		if e.name == name && e.baseType == typ {
			return e, true
		}
		off += e.totalLen
	}
	return entry{}, false
}

// Get returns a copy of the value bytes stored for (name, type), or
// ErrNotFound.
func (d *Dict) Get(name string, typ Type) ([]byte, error) {
	e, ok := d.find(name, typ)
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, e.valueLen)
	copy(out, d.buf[e.valueOff:e.valueOff+e.valueLen])
	return out, nil
}

// wireTypeFor returns the byte written for (name, typ)'s type field, and
// whether it is a shorthand entry.
func wireTypeFor(name string, typ Type) (Type, bool) {
	if code := shorthandCode(name); code != 0 {
		if _, base, _ := Name(ShorthandBase + Type(code)); base == typ {
			return ShorthandBase + Type(code), true
		}
	}
	return typ, false
}

// encodedLen returns the total wire length an entry for (name, typ, value)
// would occupy.
func encodedLen(name string, typ Type, value []byte) (int, error) {
	wt, shorthand := wireTypeFor(name, typ)
	if shorthand {
		if w, fixed := fixedWidth(typ); fixed {
			return 1 + w, nil
		}
		if len(value) > maxWireLen {
			return 0, ErrTooLarge
		}
		return 1 + 2 + len(value), nil
	}
	_ = wt
	l := len(name) + 1 + len(value)
	if l > maxWireLen {
		return 0, ErrTooLarge
	}
	return 1 + 2 + l, nil
}

func (d *Dict) growFor(extra, extraSize int) {
	need := len(d.buf) + extra
	if need <= cap(d.buf) {
		return
	}
	newCap := cap(d.buf) + extraSize
	for newCap < need {
		newCap += extraSize
	}
	nb := make([]byte, len(d.buf), newCap)
	copy(nb, d.buf)
	d.buf = nb
}

// Set stores value under (name, typ). It returns ErrTooLarge when the entry
// would overflow the 16-bit wire length field. extraSize controls buffer
// growth when the dictionary must be extended (see Manager).
//
// For string entries, writing a value no longer than an existing one reuses
// the slot in place and zero-pads the remainder, per the
// string-shrink-in-place invariant.
func (d *Dict) Set(name string, typ Type, value []byte, extraSize int) error {
	if extraSize <= 0 {
		extraSize = 1
	}
	newLen, err := encodedLen(name, typ, value)
	if err != nil {
		return err
	}

	if e, ok := d.find(name, typ); ok {
		if typ == TypeString && e.valueLen >= len(value) {
			copy(d.buf[e.valueOff:e.valueOff+len(value)], value)
			for i := e.valueOff + len(value); i < e.valueOff+e.valueLen; i++ {
				d.buf[i] = 0
			}
			return nil
		}
		if e.totalLen == newLen {
			d.writeEntryAt(e.offset, name, typ, value)
			return nil
		}
		d.deleteAt(e)
	}

	insertOff := len(d.buf) - 1 // before the end sentinel
	d.growFor(newLen, extraSize)
	d.buf = d.buf[:len(d.buf)+newLen]
	copy(d.buf[insertOff+newLen:], d.buf[insertOff:insertOff+1]) // shift end sentinel
	d.writeEntryAt(insertOff, name, typ, value)
	return nil
}

func (d *Dict) writeEntryAt(off int, name string, typ Type, value []byte) {
	wt, shorthand := wireTypeFor(name, typ)
	d.buf[off] = byte(wt)
	if shorthand {
		if w, fixed := fixedWidth(typ); fixed {
			copy(d.buf[off+1:off+1+w], value)
			return
		}
		binary.BigEndian.PutUint16(d.buf[off+1:off+3], uint16(len(value)))
		copy(d.buf[off+3:off+3+len(value)], value)
		return
	}
	nameBytes := append([]byte(name), 0)
	l := len(nameBytes) + len(value)
	binary.BigEndian.PutUint16(d.buf[off+1:off+3], uint16(l))
	copy(d.buf[off+3:off+3+len(nameBytes)], nameBytes)
	copy(d.buf[off+3+len(nameBytes):off+3+l], value)
}

func (d *Dict) deleteAt(e entry) {
	copy(d.buf[e.offset:], d.buf[e.offset+e.totalLen:])
	d.buf = d.buf[:len(d.buf)-e.totalLen]
}

// Delete removes the entry for (name, typ), reporting whether it existed.
func (d *Dict) Delete(name string, typ Type) bool {
	e, ok := d.find(name, typ)
	if !ok {
		return false
	}
	d.deleteAt(e)
	return true
}
