package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PrincipalCurvatures returns the per-vertex principal curvatures
// (kmax, kmin), indexed like Vertex. Gaussian curvature comes from the
// angle deficit at each vertex and mean curvature from the dihedral
// angles of the incident edges, both normalized by a third of the
// incident triangle area. Convex regions of an outward-wound surface
// have positive curvature. The result is computed on first call and
// cached.
func (s *Surface) PrincipalCurvatures() (kmax, kmin []float64) {
	if s.curvMax != nil {
		return s.curvMax, s.curvMin
	}
	n := len(s.vertices)
	meanNum := make([]float64, n)
	for edge, faces := range s.edgeFaces {
		if len(faces) != 2 {
			continue // boundary or non-manifold edge
		}
		t1 := &s.triangles[faces[0]]
		t2 := &s.triangles[faces[1]]
		n1 := t1.triangle().Normal()
		n2 := t2.triangle().Normal()
		beta := math.Atan2(r3.Norm(r3.Cross(n1, n2)), r3.Dot(n1, n2))
		// the edge is convex when the opposite vertex of the second
		// face lies below the plane of the first.
		opp := s.vertices[oppositeVertex(t2.V, edge)].V
		if r3.Dot(n1, r3.Sub(opp, s.vertices[edge[0]].V)) > 0 {
			beta = -beta
		}
		elen := r3.Norm(r3.Sub(s.vertices[edge[1]].V, s.vertices[edge[0]].V))
		contrib := 0.25 * elen * beta
		meanNum[edge[0]] += contrib
		meanNum[edge[1]] += contrib
	}
	s.curvMax = make([]float64, n)
	s.curvMin = make([]float64, n)
	for i := range s.vertices {
		area := s.vertices[i].areaSum
		if area <= 0 {
			continue
		}
		K := (2*math.Pi - s.vertices[i].angleSum) / area
		H := meanNum[i] / area
		disc := math.Sqrt(math.Max(0, H*H-K))
		s.curvMax[i] = H + disc
		s.curvMin[i] = H - disc
	}
	return s.curvMax, s.curvMin
}

func oppositeVertex(tri [3]int, edge [2]int) int {
	for _, v := range tri {
		if v != edge[0] && v != edge[1] {
			return v
		}
	}
	return tri[0]
}
