package refine

import (
	"fmt"
	"math"

	"github.com/skelfit/srep"
	"github.com/skelfit/srep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// spoke changes below this threshold are not applied during
// reconstruction.
const reconstructTolerance = 1e-13

// evaluate is the objective the minimizer drives. It blends three
// terms over the interpolated grid:
//
//	L0 - squared distance from spoke tips to the target boundary
//	L1 - deviation of spoke directions from the boundary normal
//	L2 - degree of violation of the local self-overlap condition
//
// For background see Liu, Z., Hong, J., Vicory, J., Damon, J. N., &
// Pizer, S. M. (2021). Fitting unbranching skeletal structures to
// objects. Medical Image Analysis, 70, 102020.
//
// evaluate never panics: failures are logged and reported as a large
// sentinel value so the minimizer moves on.
func (r *refiner) evaluate(coeff []float64, o srep.SpokeOrientation) (val float64) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logf("error evaluating objective function: %v", rec)
			val = failedEvaluation
		}
	}()

	tmp, err := reconstruct(r.grid, coeff, o)
	if err != nil {
		r.logf("error evaluating objective function: %v", err)
		return failedEvaluation
	}
	interp, err := r.interpolate(tmp, r.params.InterpolationLevel)
	if err != nil {
		r.logf("error evaluating objective function: %v", err)
		return failedEvaluation
	}

	l0, l1 := r.boundaryPenalties(interp, o)
	l2, err := sradPenalty(interp, o, r.params.InterpolationLevel)
	if err != nil {
		r.logf("error evaluating objective function: %v", err)
		return failedEvaluation
	}

	val = l0*r.params.L0Weight + l1*r.params.L1Weight + l2*r.params.L2Weight
	r.incrementIteration()
	r.logf("eval func %d: %g = %g + %g + %g",
		r.iteration, val, l0*r.params.L0Weight, l1*r.params.L1Weight, l2*r.params.L2Weight)
	return val
}

// reconstruct builds a new grid from the coefficient vector: per
// skeletal point three direction components and a log-scale on the
// radius. The input grid is not modified. Only spokes that move beyond
// the tolerance are touched.
func reconstruct(g *srep.EllipticalGrid, coeff []float64, o srep.SpokeOrientation) (*srep.EllipticalGrid, error) {
	if o != srep.UpOrientation && o != srep.DownOrientation {
		return nil, fmt.Errorf("refine: don't know how to reconstruct spokes of type %v", o)
	}
	if want := g.Lines() * g.Steps() * 4; len(coeff) != want {
		return nil, fmt.Errorf("refine: coefficient vector has %d entries, want %d", len(coeff), want)
	}
	clone := g.Clone()
	c := 0
	for l := 0; l < clone.Lines(); l++ {
		for s := 0; s < clone.Steps(); s++ {
			spoke := clone.At(l, s).Spoke(o)
			oldRadius := spoke.Radius()
			oldUnitDir := spoke.UnitDirection()

			newUnitDir := r3.Vec{X: coeff[c], Y: coeff[c+1], Z: coeff[c+2]}
			newRadius := math.Exp(coeff[c+3]) * oldRadius
			c += 4

			if math.Abs(oldRadius-newRadius) >= reconstructTolerance ||
				math.Abs(oldUnitDir.X-newUnitDir.X) >= reconstructTolerance ||
				math.Abs(oldUnitDir.Y-newUnitDir.Y) >= reconstructTolerance ||
				math.Abs(oldUnitDir.Z-newUnitDir.Z) >= reconstructTolerance {
				spoke.SetDirection(r3.Scale(newRadius, newUnitDir))
			}
		}
	}
	return clone, nil
}

// boundaryPenalties samples the distance field at every spoke tip of
// the given orientation, accumulating the squared distance (L0) and
// the squared distance scaled by the mismatch between spoke direction
// and field gradient (L1). The normal mismatch 1-dot lies in [0,2] and
// is scaled by the squared distance so the two terms stay comparable.
func (r *refiner) boundaryPenalties(g *srep.EllipticalGrid, o srep.SpokeOrientation) (l0, l1 float64) {
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			spoke := g.At(l, s).Spoke(o)
			i, j, k := r.field.IndexOf(spoke.Boundary().Vec())
			dist := r.field.Distance(i, j, k)
			distSquared := dist * dist

			normal := d3.Unit(r.field.Gradient(i, j, k))
			dot := r3.Dot(normal, spoke.UnitDirection())

			l0 += distSquared
			l1 += distSquared * (1 - dot)
		}
	}
	return l0, l1
}
