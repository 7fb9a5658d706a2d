// Package udict implements the attribute dictionary (C3): a typed,
// inline-serialized key/value store with a shorthand namespace for
// well-known keys. The wire format is bit-exact with the original
// implementation so that urefs remain serializable over a transport.
package udict

// Type identifies the value kind stored in a dictionary entry. The numeric
// values below 1..10 are also the wire byte used for non-shorthand entries;
// they must not be renumbered (see ShorthandBase).
type Type uint8

const (
	TypeEnd           Type = 0
	TypeOpaque        Type = 1
	TypeString        Type = 2
	TypeVoid          Type = 3
	TypeBool          Type = 4
	TypeSmallUnsigned Type = 5
	TypeSmallInt      Type = 6
	TypeUnsigned      Type = 7
	TypeInt           Type = 8
	TypeRational      Type = 9
	TypeFloat         Type = 10
)

// ShorthandBase is the last non-shorthand type value. Shorthand wire codes
// occupy ShorthandBase+1 .. ShorthandBase+len(shorthands).
const ShorthandBase Type = TypeFloat

// fixedWidth returns the byte width of a fixed-size type (0 for end and
// void, which carry no value bytes at all), and false for the two
// variable-width base types (opaque, string).
func fixedWidth(t Type) (width int, ok bool) {
	switch t {
	case TypeEnd, TypeVoid:
		return 0, true
	case TypeBool, TypeSmallUnsigned, TypeSmallInt:
		return 1, true
	case TypeUnsigned, TypeInt, TypeFloat:
		return 8, true
	case TypeRational:
		return 16, true
	case TypeOpaque, TypeString:
		return 0, false
	default:
		return 0, false
	}
}

func (t Type) String() string {
	switch t {
	case TypeEnd:
		return "end"
	case TypeOpaque:
		return "opaque"
	case TypeString:
		return "string"
	case TypeVoid:
		return "void"
	case TypeBool:
		return "bool"
	case TypeSmallUnsigned:
		return "small_unsigned"
	case TypeSmallInt:
		return "small_int"
	case TypeUnsigned:
		return "unsigned"
	case TypeInt:
		return "int"
	case TypeRational:
		return "rational"
	case TypeFloat:
		return "float"
	default:
		if name, base, ok := Name(t); ok {
			return name + "(" + base.String() + ")"
		}
		return "unknown"
	}
}

// Rational is a num:den pair of 64-bit ints, the wire representation of
// TypeRational (16 bytes: num then den, big-endian).
type Rational struct {
	Num int64
	Den int64
}
