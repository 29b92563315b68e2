package mesh

import (
	"math"

	"github.com/skelfit/srep/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// surfTriangle is the kd-tree comparable for nearest-triangle queries.
// A zero-normal surfTriangle stands in for a bare query point.
type surfTriangle struct {
	C           r3.Vec          // centroid
	lastFeature triangleFeature // result of the last distance calculation
	lastClosest r3.Vec
	V           [3]int
	s           *Surface     // to reconstruct triangle geometry
	N           r3.Vec       // pseudo face normal, scaled by 2*pi
	T           d3.Transform // maps the triangle into the XY plane
	InvT        d3.Transform
}

func (t *surfTriangle) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(*surfTriangle)
	switch d {
	case 0:
		return t.C.X - q.C.X
	case 1:
		return t.C.Y - q.C.Y
	case 2:
		return t.C.Z - q.C.Z
	}
	panic("unreachable")
}

func (t *surfTriangle) Dims() int { return 3 }

func (t *surfTriangle) Distance(c kdtree.Comparable) float64 {
	point := c.(*surfTriangle)
	if t.isPoint() {
		if point.isPoint() {
			return r3.Norm2(r3.Sub(t.C, point.C))
		}
		point, t = t, point // make sure `t` is the triangle.
	}
	pxy := t.T.Transform(point.C)
	txy := t.triangle()
	for i := range txy {
		txy[i] = t.T.Transform(txy[i])
	}
	// Closest point found on the flattened triangle in 2D, then
	// mapped back to 3D.
	onTriangle, feat := closestOnTriangle2(lowerVec(pxy), [3]r2.Vec{lowerVec(txy[0]), lowerVec(txy[1]), lowerVec(txy[2])})
	t.lastFeature = feat
	t.lastClosest = t.InvT.Transform(r3.Vec{X: onTriangle.X, Y: onTriangle.Y})
	return r3.Norm2(r3.Sub(point.C, t.lastClosest))
}

// copySign returns a value with the magnitude of dist and the sign of
// p's side of the surface, using the pseudonormal of the feature found
// by the last call to Distance. p must be the same point passed to
// Distance.
func (t *surfTriangle) copySign(p r3.Vec, dist float64) (signed float64) {
	if t.lastFeature <= featureV2 {
		vertex := t.s.vertices[t.V[t.lastFeature]]
		signed = r3.Dot(vertex.N, r3.Sub(p, vertex.V))
	} else if t.lastFeature <= featureE2 {
		v1 := int(t.lastFeature - featureE0)
		norm := t.s.pseudoEdgeN[edgeKey(t.V[v1], t.V[(v1+1)%3])]
		signed = r3.Dot(norm, r3.Sub(p, t.lastClosest))
	} else {
		signed = r3.Dot(t.N, r3.Sub(p, t.lastClosest))
	}
	return math.Copysign(dist, signed)
}

func (t *surfTriangle) triangle() Triangle {
	return Triangle{
		t.s.vertices[t.V[0]].V,
		t.s.vertices[t.V[1]].V,
		t.s.vertices[t.V[2]].V,
	}
}

func (t *surfTriangle) isPoint() bool {
	return t.N == (r3.Vec{}) // uninitialized fields
}

// triangleBasis courtesy of Agustin Canalis (acanalis). Returns a
// transformation for a triangle so that:
//   - the triangle's first edge (t_0,t_1) is on the X axis
//   - the triangle's first vertex t_0 is at the origin
//   - the triangle's last vertex t_2 is in the XY plane.
func triangleBasis(t Triangle) d3.Transform {
	u2 := r3.Sub(t[1], t[0])
	u3 := r3.Sub(t[2], t[0])

	xc := r3.Unit(u2)
	yc := r3.Sub(u3, r3.Scale(r3.Dot(xc, u3), xc)) // t[2] but no X component
	yc = r3.Unit(yc)
	zc := r3.Cross(xc, yc)

	T := d3.NewTransform([]float64{
		xc.X, xc.Y, xc.Z, 0,
		yc.X, yc.Y, yc.Z, 0,
		zc.X, zc.Y, zc.Z, 0,
		0, 0, 0, 1,
	})
	t0T := T.Transform(t[0])
	return T.Translate(r3.Scale(-1, t0T))
}

func lowerVec(v r3.Vec) r2.Vec {
	return r2.Vec{X: v.X, Y: v.Y}
}

// triSet adapts the triangle list to kdtree.Interface.
type triSet struct {
	s    *Surface
	tris []surfTriangle
}

func (ts triSet) Index(i int) kdtree.Comparable { return &ts.tris[i] }

func (ts triSet) Len() int { return len(ts.tris) }

func (ts triSet) Pivot(d kdtree.Dim) int {
	p := kdPlane{dim: int(d), tris: ts.tris}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

func (ts triSet) Slice(start, end int) kdtree.Interface {
	ts.tris = ts.tris[start:end]
	return ts
}

// Bounds implements kdtree.Bounder over the current triangle
// centroids, which kdtree.New may reorder.
func (ts triSet) Bounds() *kdtree.Bounding {
	min := surfTriangle{C: d3.Elem(math.MaxFloat64)}
	max := surfTriangle{C: d3.Elem(-math.MaxFloat64)}
	for _, t := range ts.tris {
		min.C = d3.MinElem(min.C, t.C)
		max.C = d3.MaxElem(max.C, t.C)
	}
	return &kdtree.Bounding{
		Min: &min,
		Max: &max,
	}
}

type kdPlane struct {
	dim  int
	tris []surfTriangle
}

func (p kdPlane) Less(i, j int) bool {
	return p.tris[i].Compare(&p.tris[j], kdtree.Dim(p.dim)) < 0
}
func (p kdPlane) Swap(i, j int) {
	p.tris[i], p.tris[j] = p.tris[j], p.tris[i]
}
func (p kdPlane) Len() int {
	return len(p.tris)
}
func (p kdPlane) Slice(start, end int) kdtree.SortSlicer {
	p.tris = p.tris[start:end]
	return p
}
