package field

import (
	"math"
	"sort"

	"github.com/skelfit/srep/internal/d3"
	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// voxelize rasterizes the surface into a binary occupancy grid by
// parity counting ray crossings along +X for every (y,z) voxel column.
// Triangle coordinates are taken through toCube first, so the grid
// covers [0,1) per axis with voxel centers at index*spacing.
func voxelize(surf *mesh.Surface, toCube d3.Transform, n int, spacing float64) []bool {
	// crossing x positions per (y,z) column, column index k*n+j.
	crossings := make([][]float64, n*n)
	for t := 0; t < surf.NumTriangles(); t++ {
		tri := surf.Triangle(t)
		for i := range tri {
			tri[i] = toCube.Transform(tri[i])
		}
		jMin, jMax := columnRange(tri[0].Y, tri[1].Y, tri[2].Y, n, spacing)
		kMin, kMax := columnRange(tri[0].Z, tri[1].Z, tri[2].Z, n, spacing)
		for k := kMin; k <= kMax; k++ {
			for j := jMin; j <= jMax; j++ {
				origin := r3.Vec{Y: float64(j) * spacing, Z: float64(k) * spacing}
				if x, ok := rayHitX(origin, tri); ok {
					col := k*n + j
					crossings[col] = append(crossings[col], x)
				}
			}
		}
	}
	inside := make([]bool, n*n*n)
	for col, xs := range crossings {
		if len(xs) < 2 {
			continue
		}
		sort.Float64s(xs)
		// fill spans between crossing pairs.
		for s := 0; s+1 < len(xs); s += 2 {
			iMin := int(math.Ceil(xs[s] / spacing))
			iMax := int(math.Floor(xs[s+1] / spacing))
			if iMin < 0 {
				iMin = 0
			}
			if iMax > n-1 {
				iMax = n - 1
			}
			for i := iMin; i <= iMax; i++ {
				inside[col*n+i] = true
			}
		}
	}
	return inside
}

// columnRange returns the closed voxel index interval overlapping the
// coordinate span [min(a,b,c), max(a,b,c)], clamped to the grid.
func columnRange(a, b, c float64, n int, spacing float64) (lo, hi int) {
	min := math.Min(a, math.Min(b, c))
	max := math.Max(a, math.Max(b, c))
	lo = int(math.Ceil(min / spacing))
	hi = int(math.Floor(max / spacing))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	return lo, hi
}

// rayHitX intersects the ray from origin along +/-X with the triangle
// and reports the crossing's x coordinate. The v-edge boundary is half
// open so rays through shared edges count once.
func rayHitX(origin r3.Vec, tri mesh.Triangle) (x float64, ok bool) {
	// Möller-Trumbore with direction (1,0,0).
	e1 := r3.Sub(tri[1], tri[0])
	e2 := r3.Sub(tri[2], tri[0])
	// p = dir × e2 = (0, -e2.Z, e2.Y)
	p := r3.Vec{Y: -e2.Z, Z: e2.Y}
	det := r3.Dot(e1, p)
	if det == 0 {
		return 0, false
	}
	inv := 1 / det
	s := r3.Sub(origin, tri[0])
	u := r3.Dot(s, p) * inv
	if u < 0 || u >= 1 {
		return 0, false
	}
	q := r3.Cross(s, e1)
	v := q.X * inv // dir · q
	if v < 0 || u+v >= 1 {
		return 0, false
	}
	t := r3.Dot(e2, q) * inv
	return origin.X + t, true
}
