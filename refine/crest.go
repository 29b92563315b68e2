package refine

import (
	"fmt"
	"math"

	"github.com/skelfit/srep"
	"gonum.org/v1/gonum/spatial/r3"
)

// crest spokes count as touching the boundary within this distance.
const crestEpsilon = 1e-5

// refineCrest runs the two crest passes: first the spoke lengths are
// walked onto the exact surface, then each spoke is bounded by the
// local radius of curvature so the skeleton does not cross the focal
// surface.
func (r *refiner) refineCrest() error {
	r.optimizeCrestLengths(r.params.InitialRegionSize, r.params.MaxIterations)
	return r.boundCrestByCurvature()
}

// optimizeCrestLengths adjusts each crest spoke radius until its tip
// lies on the surface: positive distance shortens, negative lengthens,
// and the step decays by 10 every time the tip crosses the surface.
func (r *refiner) optimizeCrestLengths(stepSize float64, maxIter int) {
	done := r.grid.Batch()
	defer done()
	for l := 0; l < r.grid.Lines(); l++ {
		for s := 0; s < r.grid.Steps(); s++ {
			sp := r.grid.At(l, s)
			if !sp.IsCrest() {
				continue
			}
			r.incrementIteration()
			spoke := sp.CrestSpoke()
			dist := r.surf.SignedDistance(spoke.Boundary().Vec())
			oldDist := dist
			step := stepSize
			for i := 0; i < maxIter; i++ {
				if math.Abs(dist) <= crestEpsilon {
					break
				}
				if dist > 0 {
					spoke.SetRadius(spoke.Radius() - step)
				} else {
					spoke.SetRadius(spoke.Radius() + step)
				}
				dist = r.surf.SignedDistance(spoke.Boundary().Vec())
				if oldDist*dist < 0 {
					// crossed the surface, decay the step
					step /= 10
				}
				oldDist = dist
			}
		}
	}
}

// boundCrestByCurvature caps each crest spoke at the radius of
// curvature of the nearest surface vertex. Spokes that are too long
// keep their tip: the skeletal point moves outward along the spoke by
// the excess and the radius shrinks to match.
func (r *refiner) boundCrestByCurvature() error {
	kmax, kmin := r.surf.PrincipalCurvatures()
	for l := 0; l < r.grid.Lines(); l++ {
		for s := 0; s < r.grid.Steps(); s++ {
			sp := r.grid.At(l, s)
			if !sp.IsCrest() {
				continue
			}
			r.incrementIteration()
			spoke := sp.CrestSpoke()
			nearest := r.surf.NearestVertex(spoke.Boundary().Vec())
			curvature := math.Max(math.Abs(kmax[nearest]), math.Abs(kmin[nearest]))
			if curvature == 0 {
				continue // flat neighborhood, nothing to bound
			}
			rCrest := 1 / curvature
			rDiff := spoke.Radius() - rCrest
			if rDiff <= 0 {
				continue
			}
			unitDir := spoke.UnitDirection()
			origin, err := srep.PointFromVec(r3.Add(spoke.Origin().Vec(), r3.Scale(rDiff, unitDir)))
			if err != nil {
				return fmt.Errorf("refine: moving crest skeletal point at (%d,%d): %w", l, s, err)
			}
			spoke.SetOrigin(origin)
			spoke.SetRadius(rCrest)
		}
	}
	return nil
}
