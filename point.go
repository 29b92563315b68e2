package srep

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrNaNPoint is returned when constructing a point from NaN coordinates.
var ErrNaNPoint = errors.New("point cannot have a NaN component")

// Point is a location on or around the skeletal sheet. Unlike a bare
// r3.Vec a Point is guaranteed to never hold a NaN component, which
// keeps NaNs from leaking into the optimizer's objective values.
type Point struct {
	x, y, z float64
}

// NewPoint returns the point at (x,y,z). It returns ErrNaNPoint if any
// coordinate is NaN.
func NewPoint(x, y, z float64) (Point, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsNaN(z) {
		return Point{}, ErrNaNPoint
	}
	return Point{x: x, y: y, z: z}, nil
}

// MustPoint is like NewPoint but panics on NaN input. For use with
// coordinates known to be finite.
func MustPoint(x, y, z float64) Point {
	p, err := NewPoint(x, y, z)
	if err != nil {
		panic(err)
	}
	return p
}

// PointFromVec converts an r3.Vec to a Point.
func PointFromVec(v r3.Vec) (Point, error) {
	return NewPoint(v.X, v.Y, v.Z)
}

func (p Point) X() float64 { return p.x }
func (p Point) Y() float64 { return p.y }
func (p Point) Z() float64 { return p.z }

// Vec returns the point as an r3.Vec for vector arithmetic.
func (p Point) Vec() r3.Vec {
	return r3.Vec{X: p.x, Y: p.y, Z: p.z}
}

// To returns the vector from p to q.
func (p Point) To(q Point) r3.Vec {
	return r3.Sub(q.Vec(), p.Vec())
}

// Distance returns the euclidean distance between two points.
// Distance(a,b) == Distance(b,a) and Distance(a,a) == 0.
func Distance(a, b Point) float64 {
	return r3.Norm(a.To(b))
}

// Less orders points lexicographically on (x,y,z) using exact float
// equality so that Point may be used as an ordered key. For any two
// points exactly one of a.Less(b), a == b, b.Less(a) holds.
func (p Point) Less(q Point) bool {
	if p.x != q.x {
		return p.x < q.x
	}
	if p.y != q.y {
		return p.y < q.y
	}
	return p.z < q.z
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g, %g)", p.x, p.y, p.z)
}
