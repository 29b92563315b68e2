package fit

import (
	"math"

	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// EllipsoidMesh triangulates the ellipsoid with stacks latitude bands
// and slices meridians, outward wound. It gives tests and examples a
// closed target surface without external mesh files.
func EllipsoidMesh(e Ellipsoid, stacks, slices int) []mesh.Triangle {
	at := func(i, j int) r3.Vec {
		theta := math.Pi * float64(i) / float64(stacks)
		phi := 2 * math.Pi * float64(j%slices) / float64(slices)
		// local frame: x longest, z shortest
		local := r3.Vec{
			X: e.Radii[2] * math.Sin(theta) * math.Cos(phi),
			Y: e.Radii[1] * math.Sin(theta) * math.Sin(phi),
			Z: e.Radii[0] * math.Cos(theta),
		}
		return e.toWorld(local)
	}
	var tris []mesh.Triangle
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			// the quad's lower edge collapses at the bottom pole and
			// its upper edge at the top; emit only the surviving half.
			if i < stacks-1 {
				tris = append(tris, mesh.Triangle{at(i, j), at(i+1, j), at(i+1, j+1)})
			}
			if i > 0 {
				tris = append(tris, mesh.Triangle{at(i, j), at(i+1, j+1), at(i, j+1)})
			}
		}
	}
	return tris
}
