package srep

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpokeOrientation selects one of the three spoke families of a
// skeletal point.
type SpokeOrientation uint8

const (
	// UpOrientation is the spoke reaching the boundary above the sheet.
	UpOrientation SpokeOrientation = iota
	// DownOrientation is the spoke reaching the boundary below the sheet.
	DownOrientation
	// CrestOrientation is the rim spoke. Only fold points own one.
	CrestOrientation
)

func (o SpokeOrientation) String() string {
	switch o {
	case UpOrientation:
		return "up"
	case DownOrientation:
		return "down"
	case CrestOrientation:
		return "crest"
	}
	return fmt.Sprintf("SpokeOrientation(%d)", int(o))
}

// Spoke is a vector anchored at a point of the skeletal sheet. The
// direction's magnitude is the spoke radius; origin+direction is the
// boundary point the spoke pins to the target surface.
type Spoke struct {
	origin Point
	dir    r3.Vec
}

// NewSpoke returns a spoke anchored at origin with the given direction.
// The direction's norm is the spoke radius.
func NewSpoke(origin Point, dir r3.Vec) Spoke {
	return Spoke{origin: origin, dir: dir}
}

// Origin returns the skeletal anchor point.
func (s *Spoke) Origin() Point { return s.origin }

// SetOrigin moves the skeletal anchor point. Direction is unchanged.
func (s *Spoke) SetOrigin(p Point) { s.origin = p }

// Direction returns the spoke vector. Its norm is the radius.
func (s *Spoke) Direction() r3.Vec { return s.dir }

// SetDirection sets direction and magnitude atomically.
func (s *Spoke) SetDirection(d r3.Vec) { s.dir = d }

// Radius returns the spoke length.
func (s *Spoke) Radius() float64 { return r3.Norm(s.dir) }

// SetRadius rescales the spoke to length radius keeping its direction.
// A zero-length spoke stays zero since its direction is undefined.
// Negative radii are accepted and flip the spoke; the refinement
// optimizer never produces them (lengths go through an exponential
// reparameterization) but callers outside it can.
func (s *Spoke) SetRadius(radius float64) {
	u := s.UnitDirection()
	s.dir = r3.Scale(radius, u)
}

// UnitDirection returns the normalized direction, or the zero vector
// for a zero-length spoke.
func (s *Spoke) UnitDirection() r3.Vec {
	n := r3.Norm(s.dir)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, s.dir)
}

// Boundary returns the boundary point origin+direction.
func (s *Spoke) Boundary() Point {
	v := r3.Add(s.origin.Vec(), s.dir)
	return Point{x: v.X, y: v.Y, z: v.Z}
}

// SkeletalPoint is one node of the elliptical grid. Every node owns an
// up and a down spoke; nodes on the fold additionally own a crest
// spoke.
type SkeletalPoint struct {
	up, down Spoke
	crest    *Spoke
}

// NewSkeletalPoint returns an interior (non-fold) skeletal point.
func NewSkeletalPoint(up, down Spoke) *SkeletalPoint {
	return &SkeletalPoint{up: up, down: down}
}

// NewCrestPoint returns a fold skeletal point owning a crest spoke.
func NewCrestPoint(up, down, crest Spoke) *SkeletalPoint {
	return &SkeletalPoint{up: up, down: down, crest: &crest}
}

// IsCrest reports whether the point lies on the fold and owns a crest
// spoke.
func (sp *SkeletalPoint) IsCrest() bool { return sp.crest != nil }

// UpSpoke returns the up spoke for in-place mutation.
func (sp *SkeletalPoint) UpSpoke() *Spoke { return &sp.up }

// DownSpoke returns the down spoke for in-place mutation.
func (sp *SkeletalPoint) DownSpoke() *Spoke { return &sp.down }

// CrestSpoke returns the crest spoke, or nil for interior points.
func (sp *SkeletalPoint) CrestSpoke() *Spoke { return sp.crest }

// Spoke returns the spoke of the requested orientation. It returns nil
// when a crest spoke is requested from an interior point and panics on
// an orientation outside the three known values.
func (sp *SkeletalPoint) Spoke(o SpokeOrientation) *Spoke {
	switch o {
	case UpOrientation:
		return &sp.up
	case DownOrientation:
		return &sp.down
	case CrestOrientation:
		return sp.crest
	}
	panic("unknown spoke orientation " + o.String())
}

// SetSpoke replaces the spoke of the requested orientation. Setting a
// crest spoke on an interior point promotes it to a fold point; this
// only happens during grid construction.
func (sp *SkeletalPoint) SetSpoke(o SpokeOrientation, s Spoke) {
	switch o {
	case UpOrientation:
		sp.up = s
	case DownOrientation:
		sp.down = s
	case CrestOrientation:
		sp.crest = &s
	default:
		panic("unknown spoke orientation " + o.String())
	}
}

func (sp *SkeletalPoint) clone() *SkeletalPoint {
	c := &SkeletalPoint{up: sp.up, down: sp.down}
	if sp.crest != nil {
		crest := *sp.crest
		c.crest = &crest
	}
	return c
}
