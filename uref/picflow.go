package uref

import (
	"fmt"

	"github.com/studoret/upipe/ubuf"
)

// Picture flow-definition helpers. A flow def describing planar video
// carries a macropixel size, a plane count and per-plane subsampling
// attributes; these are what a downstream picture allocator reads to build
// ubuf.Picture views matching the stream.

// SetMacropixel sets the number of pixels per macropixel on a flow def.
func (u *Uref) SetMacropixel(n uint8, extraSize int) error {
	return u.Dict.SetSmallUnsigned("p.macropixel", n, extraSize)
}

// Planes returns the flow def's plane count, or 0 when none is declared.
func (u *Uref) Planes() int {
	n, err := u.Dict.GetSmallUnsigned("p.planes")
	if err != nil {
		return 0
	}
	return int(n)
}

// SetPlanes resets the flow def's plane count; AddPlane increments it.
func (u *Uref) SetPlanes(n uint8, extraSize int) error {
	return u.Dict.SetSmallUnsigned("p.planes", n, extraSize)
}

// AddPlane appends a plane description to the flow def.
func (u *Uref) AddPlane(hsub, vsub, macropixel uint8, chroma string, extraSize int) error {
	i := u.Planes()
	if err := u.Dict.SetSmallUnsigned(fmt.Sprintf("p.plane.%d.hsub", i), hsub, extraSize); err != nil {
		return err
	}
	if err := u.Dict.SetSmallUnsigned(fmt.Sprintf("p.plane.%d.vsub", i), vsub, extraSize); err != nil {
		return err
	}
	if err := u.Dict.SetSmallUnsigned(fmt.Sprintf("p.plane.%d.macropixel", i), macropixel, extraSize); err != nil {
		return err
	}
	if err := u.Dict.SetString(fmt.Sprintf("p.plane.%d.chroma", i), chroma, extraSize); err != nil {
		return err
	}
	return u.Dict.SetSmallUnsigned("p.planes", uint8(i+1), extraSize)
}

// PlaneAt reads back the i-th plane description as a ubuf.Plane with no
// offset or stride (those belong to an allocated picture, not to the flow
// def that merely describes it).
func (u *Uref) PlaneAt(i int) (ubuf.Plane, error) {
	hsub, err := u.Dict.GetSmallUnsigned(fmt.Sprintf("p.plane.%d.hsub", i))
	if err != nil {
		return ubuf.Plane{}, err
	}
	vsub, err := u.Dict.GetSmallUnsigned(fmt.Sprintf("p.plane.%d.vsub", i))
	if err != nil {
		return ubuf.Plane{}, err
	}
	macropixel, err := u.Dict.GetSmallUnsigned(fmt.Sprintf("p.plane.%d.macropixel", i))
	if err != nil {
		return ubuf.Plane{}, err
	}
	chroma, err := u.Dict.GetString(fmt.Sprintf("p.plane.%d.chroma", i))
	if err != nil {
		return ubuf.Plane{}, err
	}
	return ubuf.Plane{
		Name:       chroma,
		HSub:       int(hsub),
		VSub:       int(vsub),
		Macropixel: int(macropixel),
	}, nil
}
