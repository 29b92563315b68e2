// Package mesh wraps an immutable triangle surface with the spatial
// queries the s-rep fitting pipeline needs: exact signed distance,
// nearest surface vertex and per-vertex principal curvatures. Triangle
// winding must be consistent with outward normals; the sign of the
// distance comes from angle-weighted pseudonormals.
package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/skelfit/srep/internal/d3"
	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Triangle is a triangle in 3D space.
type Triangle [3]r3.Vec

// Normal returns the triangle's unit normal. Winding determines its
// sign.
func (t Triangle) Normal() r3.Vec {
	return d3.Unit(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Centroid returns the triangle's center of mass.
func (t Triangle) Centroid() r3.Vec {
	return r3.Scale(1./3., r3.Add(t[0], r3.Add(t[1], t[2])))
}

// Area returns the triangle's area.
func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t[1], t[0]), r3.Sub(t[2], t[0])))
}

// Surface is an immutable manifold triangle mesh indexed for nearest
// queries. Build it once with New and share it freely: all queries are
// read-only apart from per-query scratch inside the kd-tree
// comparables, so a Surface must not be queried concurrently.
type Surface struct {
	bb        d3.Box
	vertices  []surfVertex
	triangles []surfTriangle
	// edge pseudo normals keyed by vertex index pair, lower index first.
	pseudoEdgeN map[[2]int]r3.Vec
	// adjacent triangle indices per edge, same key as pseudoEdgeN.
	edgeFaces map[[2]int][]int
	tree      kdtree.Tree

	curvMax, curvMin []float64 // lazily filled by PrincipalCurvatures
}

type surfVertex struct {
	V r3.Vec
	// N is the pseudonormal weighted by the opening angle each
	// incident triangle forms at this vertex.
	N r3.Vec
	// angle deficit and barycentric area accumulate here for the
	// curvature estimate.
	angleSum float64
	areaSum  float64
}

// New indexes a set of triangles defining a manifold surface. Shared
// vertices are welded using vertexTol, which should be on the order of
// 1/1000th of the smallest triangle side; pass 0 to infer it.
func New(triangles []Triangle, vertexTol float64) (*Surface, error) {
	if len(triangles) == 0 {
		return nil, errors.New("mesh: no triangles")
	}
	// zero-area facets are common in STL files in the wild; they carry
	// no surface and would seed NaN basis transforms, so drop them.
	kept := make([]Triangle, 0, len(triangles))
	for _, tri := range triangles {
		if tri.Area() > 0 {
			kept = append(kept, tri)
		}
	}
	if len(kept) == 0 {
		return nil, errors.New("mesh: all triangles degenerate")
	}
	triangles = kept
	bb := d3.EmptyBox()
	minSide2 := math.MaxFloat64
	maxSide2 := -math.MaxFloat64
	for i := range triangles {
		for j, vert := range triangles[i] {
			bb = bb.Include(vert)
			side2 := r3.Norm2(r3.Sub(triangles[i][(j+1)%3], vert))
			minSide2 = math.Min(minSide2, side2)
			maxSide2 = math.Max(maxSide2, side2)
		}
	}
	suggested := math.Sqrt(minSide2) / 256
	if vertexTol > math.Sqrt(maxSide2)/2 {
		return nil, fmt.Errorf("mesh: vertex tolerance too large, suggested: %g", suggested)
	}
	if vertexTol == 0 {
		vertexTol = suggested
	}
	maxDim := d3.Max(bb.Size())
	div := int64(maxDim/vertexTol + 1e-12)
	if div <= 0 {
		return nil, errors.New("mesh: vertex tolerance larger than model size")
	}
	if div > math.MaxInt64/2 {
		return nil, errors.New("mesh: vertex tolerance too small, overflowed int64")
	}

	s := &Surface{
		bb:          bb,
		triangles:   make([]surfTriangle, len(triangles)),
		pseudoEdgeN: make(map[[2]int]r3.Vec),
		edgeFaces:   make(map[[2]int][]int),
	}
	cache := make(map[[3]int64]int)
	ri := 1 / vertexTol
	for i, tri := range triangles {
		norm := tri.Normal()
		T := triangleBasis(tri)
		st := surfTriangle{
			N:    r3.Scale(2*math.Pi, norm),
			C:    tri.Centroid(),
			T:    T,
			InvT: T.Inv(),
			s:    s,
		}
		for j, vert := range tri {
			v := r3.Scale(ri, vert)
			key := [3]int64{int64(v.X), int64(v.Y), int64(v.Z)}
			vertexIdx, ok := cache[key]
			if !ok {
				vertexIdx = len(s.vertices)
				cache[key] = vertexIdx
				s.vertices = append(s.vertices, surfVertex{V: vert})
			}
			// opening angle at this vertex weights the pseudonormal
			// and accumulates the angle deficit.
			s1 := r3.Sub(vert, tri[(j+1)%3])
			s2 := r3.Sub(vert, tri[(j+2)%3])
			alpha := math.Acos(r3.Cos(s1, s2))
			vx := &s.vertices[vertexIdx]
			vx.N = r3.Add(vx.N, r3.Scale(alpha, norm))
			vx.angleSum += alpha
			vx.areaSum += tri.Area() / 3
			st.V[j] = vertexIdx
		}
		s.triangles[i] = st
		for j := range st.V {
			edge := edgeKey(st.V[j], st.V[(j+1)%3])
			s.pseudoEdgeN[edge] = r3.Add(s.pseudoEdgeN[edge], r3.Scale(math.Pi, norm))
			s.edgeFaces[edge] = append(s.edgeFaces[edge], i)
		}
	}
	s.tree = *kdtree.New(triSet{s: s, tris: s.triangles}, true)
	return s, nil
}

func edgeKey(a, b int) [2]int {
	if a > b {
		a, b = b, a
	}
	return [2]int{a, b}
}

// Bounds returns the axis-aligned bounding box of the surface.
func (s *Surface) Bounds() r3.Box { return r3.Box(s.bb) }

// NumTriangles returns the number of indexed triangles.
func (s *Surface) NumTriangles() int { return len(s.triangles) }

// Triangle returns the i-th triangle's geometry.
func (s *Surface) Triangle(i int) Triangle {
	return s.triangles[i].triangle()
}

// NumVertices returns the number of welded vertices.
func (s *Surface) NumVertices() int { return len(s.vertices) }

// Vertex returns the i-th welded vertex position.
func (s *Surface) Vertex(i int) r3.Vec { return s.vertices[i].V }

// SignedDistance returns the distance from p to the surface, negative
// inside the solid and positive outside.
func (s *Surface) SignedDistance(p r3.Vec) float64 {
	got, dist2 := s.tree.Nearest(&surfTriangle{C: p})
	tri := got.(*surfTriangle)
	return tri.copySign(p, math.Sqrt(dist2))
}

// NearestVertex returns the index of a surface vertex nearest to p: the
// closest vertex of the triangle closest to p.
func (s *Surface) NearestVertex(p r3.Vec) int {
	got, _ := s.tree.Nearest(&surfTriangle{C: p})
	tri := got.(*surfTriangle)
	best := tri.V[0]
	bestDist := math.MaxFloat64
	for _, vi := range tri.V {
		if d := r3.Norm2(r3.Sub(p, s.vertices[vi].V)); d < bestDist {
			bestDist = d
			best = vi
		}
	}
	return best
}
