package udict

import "encoding/binary"

// Typed convenience wrappers over Get/Set for the fixed-width base types
// and strings.
// These exist because nearly every caller outside this package wants a
// uint64/int64/bool/Rational, not a raw byte slice.

func (d *Dict) GetUnsigned(name string) (uint64, error) {
	v, err := d.Get(name, TypeUnsigned)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

func (d *Dict) SetUnsigned(name string, val uint64, extraSize int) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], val)
	return d.Set(name, TypeUnsigned, v[:], extraSize)
}

func (d *Dict) GetInt(name string) (int64, error) {
	v, err := d.Get(name, TypeInt)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(v)), nil
}

func (d *Dict) SetInt(name string, val int64, extraSize int) error {
	var v [8]byte
	binary.BigEndian.PutUint64(v[:], uint64(val))
	return d.Set(name, TypeInt, v[:], extraSize)
}

func (d *Dict) GetRational(name string) (Rational, error) {
	v, err := d.Get(name, TypeRational)
	if err != nil {
		return Rational{}, err
	}
	return Rational{
		Num: int64(binary.BigEndian.Uint64(v[0:8])),
		Den: int64(binary.BigEndian.Uint64(v[8:16])),
	}, nil
}

func (d *Dict) SetRational(name string, r Rational, extraSize int) error {
	var v [16]byte
	binary.BigEndian.PutUint64(v[0:8], uint64(r.Num))
	binary.BigEndian.PutUint64(v[8:16], uint64(r.Den))
	return d.Set(name, TypeRational, v[:], extraSize)
}

func (d *Dict) GetSmallUnsigned(name string) (uint8, error) {
	v, err := d.Get(name, TypeSmallUnsigned)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

func (d *Dict) SetSmallUnsigned(name string, val uint8, extraSize int) error {
	return d.Set(name, TypeSmallUnsigned, []byte{val}, extraSize)
}

func (d *Dict) GetString(name string) (string, error) {
	v, err := d.Get(name, TypeString)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (d *Dict) SetString(name string, val string, extraSize int) error {
	return d.Set(name, TypeString, []byte(val), extraSize)
}

// GetVoid reports whether a void (presence-flag) attribute is set.
func (d *Dict) GetVoid(name string) bool {
	_, err := d.Get(name, TypeVoid)
	return err == nil
}

// SetVoid sets a void (presence-flag) attribute.
func (d *Dict) SetVoid(name string, extraSize int) error {
	return d.Set(name, TypeVoid, nil, extraSize)
}

func (d *Dict) GetBool(name string) (bool, error) {
	v, err := d.Get(name, TypeBool)
	if err != nil {
		return false, err
	}
	return v[0] != 0, nil
}

func (d *Dict) SetBool(name string, val bool, extraSize int) error {
	v := byte(0)
	if val {
		v = 1
	}
	return d.Set(name, TypeBool, []byte{v}, extraSize)
}
