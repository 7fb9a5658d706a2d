package ubuf

import "github.com/studoret/upipe/umem"

// Plane describes one picture component (e.g. "y8", "u8", "v8"): its
// chroma sub-sampling relative to the luma plane, its macropixel size in
// bytes, and its byte offset/stride within the shared region.
type Plane struct {
	Name       string
	HSub, VSub int
	Macropixel int
	Offset     int
	Stride     int
}

// Picture is a picture-typed buffer descriptor: a single shared region
// interpreted as a fixed set of named planes. Unlike the block view it is
// never chained.
type Picture struct {
	region *umem.SharedRegion
	planes []Plane
}

// NewPicture constructs a picture view over region with the given planes.
func NewPicture(region *umem.SharedRegion, planes ...Plane) *Picture {
	ps := make([]Plane, len(planes))
	copy(ps, planes)
	return &Picture{region: region, planes: ps}
}

// Plane looks up a plane by chroma tag.
func (p *Picture) Plane(name string) (Plane, bool) {
	for _, pl := range p.planes {
		if pl.Name == name {
			return pl, true
		}
	}
	return Plane{}, false
}

// Planes returns all planes, in declaration order.
func (p *Picture) Planes() []Plane {
	return p.planes
}

// Dup re-shares the region and copies the plane list.
func (p *Picture) Dup() *Picture {
	return NewPicture(p.region.Acquire(), p.planes...)
}

// Release drops the descriptor's hold on the region.
func (p *Picture) Release() {
	p.region.Release()
}
