package refine

import (
	"errors"
	"math"

	"github.com/skelfit/srep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

var errSingularSrad = errors.New("refine: singular spoke field, cannot compute radial shape operator")

// sradDerivatives holds finite differences of the spoke field at one
// skeletal point. u runs line to line and wraps, v runs step to step
// and clamps at the spine and the fold.
type sradDerivatives struct {
	dxdu, dxdv r3.Vec  // unit direction derivatives
	dSdu, dSdv r3.Vec  // full spoke vector derivatives
	drdu, drdv float64 // radius derivatives
}

func computeSradDerivatives(g *srep.EllipticalGrid, o srep.SpokeOrientation, line, step, density int) sradDerivatives {
	stepSize := 1.0 / float64(density)
	var d sradDerivatives

	u1 := g.At(g.PrevLine(line), step).Spoke(o)
	u2 := g.At(g.NextLine(line), step).Spoke(o)
	d.drdu = (u2.Radius() - u1.Radius()) / stepSize / 2
	d.dxdu = r3.Scale(1/stepSize/2, r3.Sub(u2.UnitDirection(), u1.UnitDirection()))
	d.dSdu = r3.Scale(1/stepSize/2, r3.Sub(u2.Direction(), u1.Direction()))

	prevStep := g.PrevStep(step)
	nextStep := g.NextStep(step)
	divisor := 2.0
	if prevStep == step || nextStep == step {
		divisor = 1
	}
	v1 := g.At(line, prevStep).Spoke(o)
	v2 := g.At(line, nextStep).Spoke(o)
	d.drdv = (v2.Radius() - v1.Radius()) / stepSize / divisor
	d.dxdv = r3.Scale(1/stepSize/divisor, r3.Sub(v2.UnitDirection(), v1.UnitDirection()))
	d.dSdv = r3.Scale(1/stepSize/divisor, r3.Sub(v2.Direction(), v1.Direction()))
	return d
}

// sradPenalty measures how much the interpolated spoke field violates
// the local self-overlap condition: the larger eigenvalue of the
// radial shape operator rSrad must not exceed 1. Only the primary
// skeletal points contribute, found by striding the interpolated grid
// at the subdivision density. Notation follows Han, Qiong's
// dissertation.
func sradPenalty(g *srep.EllipticalGrid, o srep.SpokeOrientation, level int) (float64, error) {
	if g.IsEmpty() {
		return 0, nil
	}
	density := 1 << uint(level)
	numLines := g.Lines() / density
	numSteps := g.Steps() / density

	penalty := 0.0
	for i := 0; i < numLines; i++ {
		ii := i * density
		for j := 0; j < numSteps; j++ {
			jj := j * density

			d := computeSradDerivatives(g, o, ii, jj, density)
			U := g.At(ii, jj).Spoke(o).UnitDirection()

			// UTU = U*U^T - I
			var UTU [3][3]float64
			UTU[0][0] = U.X*U.X - 1
			UTU[0][1] = U.X * U.Y
			UTU[0][2] = U.X * U.Z
			UTU[1][0] = U.Y * U.X
			UTU[1][1] = U.Y*U.Y - 1
			UTU[1][2] = U.Y * U.Z
			UTU[2][0] = U.Z * U.X
			UTU[2][1] = U.Z * U.Y
			UTU[2][2] = U.Z*U.Z - 1

			Q := mat.NewDense(2, 3, nil)
			for col := 0; col < 3; col++ {
				Q.Set(0, col, d.dxdu.X*UTU[0][col]+d.dxdu.Y*UTU[1][col]+d.dxdu.Z*UTU[2][col])
				Q.Set(1, col, d.dxdv.X*UTU[0][col]+d.dxdv.Y*UTU[1][col]+d.dxdv.Z*UTU[2][col])
			}

			leftSide := mat.NewDense(2, 3, []float64{
				d.dSdu.X - d.drdu*U.X, d.dSdu.Y - d.drdu*U.Y, d.dSdu.Z - d.drdu*U.Z,
				d.dSdv.X - d.drdv*U.X, d.dSdv.Y - d.drdv*U.Y, d.dSdv.Z - d.drdv*U.Z,
			})

			var QQT mat.Dense
			QQT.Mul(Q, Q.T())
			var QQTInv mat.Dense
			if err := QQTInv.Inverse(&QQT); err != nil {
				return 0, errSingularSrad
			}
			var rightSide mat.Dense
			rightSide.Mul(Q.T(), &QQTInv)

			var rSrad mat.Dense
			rSrad.Mul(leftSide, &rightSide)

			// larger eigenvalue of the symmetrized operator, read off
			// the lower triangle of the transpose.
			sym := mat.NewSymDense(2, []float64{
				rSrad.At(0, 0), rSrad.At(0, 1),
				rSrad.At(0, 1), rSrad.At(1, 1),
			})
			var es mat.EigenSym
			if !es.Factorize(sym, false) {
				return 0, errSingularSrad
			}
			vals := es.Values(nil)
			maxEigen := vals[1]

			penalty += math.Max(0, maxEigen-1)
		}
	}
	return penalty, nil
}
