package udict

// shorthandEntry pairs a well-known attribute name with its base type.
// Order is wire-visible: the wire code of entry i (0-indexed) is
// ShorthandBase + i + 1. Reordering this table is a breaking change.
type shorthandEntry struct {
	Name     string
	BaseType Type
}

// shorthands is the canonical table of well-known (name, type) pairs. It
// must match the external contract exactly: this order, these base types.
var shorthands = [31]shorthandEntry{
	{"f.disc", TypeVoid},
	{"f.random", TypeVoid},
	{"f.error", TypeVoid},
	{"f.def", TypeString},
	{"f.rawdef", TypeString},
	{"f.program", TypeString},
	{"f.lang", TypeString},
	{"k.systime", TypeUnsigned},
	{"k.systime.rap", TypeUnsigned},
	{"k.pts", TypeUnsigned},
	{"k.pts.orig", TypeUnsigned},
	{"k.pts.sys", TypeUnsigned},
	{"k.dts", TypeUnsigned},
	{"k.dts.orig", TypeUnsigned},
	{"k.dts.sys", TypeUnsigned},
	{"k.vbvdelay", TypeUnsigned},
	{"k.duration", TypeUnsigned},
	{"b.start", TypeVoid},
	{"b.end", TypeVoid},
	{"p.num", TypeUnsigned},
	{"p.hsize", TypeUnsigned},
	{"p.vsize", TypeUnsigned},
	{"p.hsizevis", TypeUnsigned},
	{"p.vsizevis", TypeUnsigned},
	{"p.hposition", TypeUnsigned},
	{"p.vposition", TypeUnsigned},
	{"p.aspect", TypeRational},
	{"p.progressive", TypeVoid},
	{"p.tf", TypeVoid},
	{"p.bf", TypeVoid},
	{"p.tff", TypeVoid},
}

// shorthandCode returns the wire code (1-based) for name, or 0 if name has
// no shorthand.
func shorthandCode(name string) uint8 {
	for i, e := range shorthands {
		if e.Name == name {
			return uint8(i + 1)
		}
	}
	return 0
}

// Name resolves a shorthand wire type to its (name, base type). The bound
// check is deliberately exact (code in [1, len(shorthands)]); see
// DESIGN.md Open Question 1 for why this differs from the source this was
// distilled from.
func Name(wireType Type) (name string, base Type, ok bool) {
	if wireType <= ShorthandBase {
		return "", 0, false
	}
	code := int(wireType - ShorthandBase)
	if code < 1 || code > len(shorthands) {
		return "", 0, false
	}
	e := shorthands[code-1]
	return e.Name, e.BaseType, true
}
