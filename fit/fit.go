// Package fit derives an initial elliptical s-rep from a target
// surface: a best-fit ellipsoid is computed from the surface's second
// moments and the medial skeletal sheet of that ellipsoid is laid out
// analytically. The result is the starting grid the refinement
// pipeline expects.
package fit

import (
	"errors"
	"math"

	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Ellipsoid is an oriented ellipsoid. Radii are sorted ascending and
// pair with the columns of Rotation, which maps the ellipsoid's local
// axes into world space. A nil Rotation means axis aligned.
type Ellipsoid struct {
	Center   r3.Vec
	Radii    [3]float64
	Rotation *mat.Dense // 3x3 proper rotation
}

// BestFitEllipsoid fits an ellipsoid to the surface: the center is the
// vertex mean, the axes and their proportions come from the
// eigendecomposition of the centered second moment matrix, and the
// radii are scaled so the ellipsoid's volume matches the surface's.
func BestFitEllipsoid(surf *mesh.Surface) (Ellipsoid, error) {
	if surf == nil || surf.NumVertices() == 0 {
		return Ellipsoid{}, errors.New("fit: no vertices to fit")
	}
	n := surf.NumVertices()
	var center r3.Vec
	for i := 0; i < n; i++ {
		center = r3.Add(center, surf.Vertex(i))
	}
	center = r3.Scale(1/float64(n), center)

	var m [3][3]float64
	for i := 0; i < n; i++ {
		d := r3.Sub(surf.Vertex(i), center)
		c := [3]float64{d.X, d.Y, d.Z}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				m[a][b] += c[a] * c[b]
			}
		}
	}
	secondMoment := mat.NewSymDense(3, []float64{
		m[0][0], m[0][1], m[0][2],
		m[0][1], m[1][1], m[1][2],
		m[0][2], m[1][2], m[2][2],
	})
	var es mat.EigenSym
	if !es.Factorize(secondMoment, true) {
		return Ellipsoid{}, errors.New("fit: second moment eigendecomposition failed")
	}
	vals := es.Values(nil) // ascending
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	e := Ellipsoid{Center: center}
	for i, v := range vals {
		if v < 0 {
			v = 0
		}
		e.Radii[i] = math.Sqrt(v)
	}
	ellipsoidVolume := 4.0 / 3.0 * math.Pi * e.Radii[0] * e.Radii[1] * e.Radii[2]
	if ellipsoidVolume <= 0 {
		return Ellipsoid{}, errors.New("fit: degenerate point distribution")
	}
	volumeFactor := math.Cbrt(Volume(surf) / ellipsoidVolume)
	for i := range e.Radii {
		e.Radii[i] *= volumeFactor
	}

	// eigenvector signs are arbitrary, keep the frame right-handed.
	if mat.Det(&vecs) < 0 {
		for row := 0; row < 3; row++ {
			vecs.Set(row, 2, -vecs.At(row, 2))
		}
	}
	e.Rotation = &vecs
	return e, nil
}

// Volume returns the volume enclosed by the surface via the divergence
// theorem. The surface must be closed and consistently wound.
func Volume(surf *mesh.Surface) float64 {
	var v float64
	for i := 0; i < surf.NumTriangles(); i++ {
		t := surf.Triangle(i)
		v += r3.Dot(t[0], r3.Cross(t[1], t[2])) / 6
	}
	return math.Abs(v)
}

// axis returns the world direction of the ellipsoid's local axis i.
func (e Ellipsoid) axis(i int) r3.Vec {
	if e.Rotation == nil {
		switch i {
		case 0:
			return r3.Vec{X: 1}
		case 1:
			return r3.Vec{Y: 1}
		default:
			return r3.Vec{Z: 1}
		}
	}
	return r3.Vec{X: e.Rotation.At(0, i), Y: e.Rotation.At(1, i), Z: e.Rotation.At(2, i)}
}

// toWorld maps a point from the ellipsoid's local frame, with the x
// axis along the longest radius and z along the shortest, into world
// space. The frame is kept right-handed so triangle winding survives
// the mapping.
func (e Ellipsoid) toWorld(p r3.Vec) r3.Vec {
	long := e.axis(2)
	mid := e.axis(1)
	short := r3.Cross(long, mid)
	return r3.Add(e.Center, r3.Add(
		r3.Scale(p.X, long),
		r3.Add(r3.Scale(p.Y, mid), r3.Scale(p.Z, short))))
}
