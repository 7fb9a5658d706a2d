package udict

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Dump renders d as one "name(type)=value" line per entry, in buffer order.
// It exists for debugging and tests; it uses the same entry decoder as
// Iterate, not a second parser.
func Dump(d *Dict) string {
	var sb strings.Builder
	off := 0
	for off < len(d.buf) {
		e, ok := d.decodeAt(off)
		if !ok {
			break
		}
		fmt.Fprintf(&sb, "%s(%s)=%s\n", e.name, e.baseType, formatValue(e.baseType, d.buf[e.valueOff:e.valueOff+e.valueLen]))
		off += e.totalLen
	}
	return sb.String()
}

func formatValue(t Type, v []byte) string {
	switch t {
	case TypeVoid:
		return "(present)"
	case TypeBool:
		if len(v) == 1 && v[0] != 0 {
			return "true"
		}
		return "false"
	case TypeSmallUnsigned:
		if len(v) == 1 {
			return strconv.Itoa(int(v[0]))
		}
	case TypeSmallInt:
		if len(v) == 1 {
			return strconv.Itoa(int(int8(v[0])))
		}
	case TypeUnsigned:
		if len(v) == 8 {
			return strconv.FormatUint(binary.BigEndian.Uint64(v), 10)
		}
	case TypeInt:
		if len(v) == 8 {
			return strconv.FormatInt(int64(binary.BigEndian.Uint64(v)), 10)
		}
	case TypeRational:
		if len(v) == 16 {
			num := int64(binary.BigEndian.Uint64(v[0:8]))
			den := int64(binary.BigEndian.Uint64(v[8:16]))
			return fmt.Sprintf("%d/%d", num, den)
		}
	case TypeFloat:
		if len(v) == 8 {
			return strconv.FormatUint(binary.BigEndian.Uint64(v), 16)
		}
	case TypeString:
		return string(v)
	case TypeOpaque:
		return fmt.Sprintf("%d bytes", len(v))
	}
	return fmt.Sprintf("%x", v)
}
