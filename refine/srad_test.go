package refine

import (
	"errors"
	"math"
	"testing"

	"github.com/skelfit/srep"
	"github.com/skelfit/srep/fit"
	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func testGrid(t testing.TB) *srep.EllipticalGrid {
	t.Helper()
	e := fit.Ellipsoid{Radii: [3]float64{1, 1.5, 2.5}}
	g, err := fit.NewSRep(e, 8, 3, fit.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestReconstructIdentity(t *testing.T) {
	g := testGrid(t)
	coeff := initialCoefficients(g, srep.UpOrientation)
	got, err := reconstruct(g, coeff, srep.UpOrientation)
	if err != nil {
		t.Fatal(err)
	}
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			want := g.At(l, s).UpSpoke().Direction()
			have := got.At(l, s).UpSpoke().Direction()
			if want != have {
				t.Fatalf("identity coefficients moved spoke (%d,%d): %v != %v", l, s, have, want)
			}
		}
	}
}

func TestReconstructScalesRadius(t *testing.T) {
	g := testGrid(t)
	coeff := initialCoefficients(g, srep.DownOrientation)
	// log-scale of ln 2 doubles every radius
	for i := 3; i < len(coeff); i += 4 {
		coeff[i] = math.Log(2)
	}
	got, err := reconstruct(g, coeff, srep.DownOrientation)
	if err != nil {
		t.Fatal(err)
	}
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			want := 2 * g.At(l, s).DownSpoke().Radius()
			have := got.At(l, s).DownSpoke().Radius()
			if math.Abs(want-have) > 1e-9*want {
				t.Fatalf("radius at (%d,%d) = %g, want %g", l, s, have, want)
			}
		}
	}
}

func TestReconstructErrors(t *testing.T) {
	g := testGrid(t)
	if _, err := reconstruct(g, make([]float64, 3), srep.UpOrientation); err == nil {
		t.Error("expected error for short coefficient vector")
	}
	coeff := initialCoefficients(g, srep.UpOrientation)
	if _, err := reconstruct(g, coeff, srep.CrestOrientation); err == nil {
		t.Error("expected error for crest orientation")
	}
}

func TestReconstructKeepsRadiusPositive(t *testing.T) {
	g := testGrid(t)
	coeff := initialCoefficients(g, srep.UpOrientation)
	// exp keeps the radius positive for any log-scale, no matter how
	// negative
	for i := 3; i < len(coeff); i += 4 {
		coeff[i] = -700
	}
	got, err := reconstruct(g, coeff, srep.UpOrientation)
	if err != nil {
		t.Fatal(err)
	}
	for l := 0; l < got.Lines(); l++ {
		for s := 0; s < got.Steps(); s++ {
			if r := got.At(l, s).UpSpoke().Radius(); r <= 0 {
				t.Fatalf("radius at (%d,%d) = %g, want > 0", l, s, r)
			}
		}
	}
}

func TestSradPenaltyZeroWhenNotFolding(t *testing.T) {
	// spokes far shorter than the sheet's bending radius cannot fold
	// the radial flow, so the penalty vanishes exactly.
	g := testGrid(t)
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			spoke := g.At(l, s).UpSpoke()
			spoke.SetRadius(1e-3 * spoke.Radius())
		}
	}
	penalty, err := sradPenalty(g, srep.UpOrientation, 0)
	if err != nil {
		t.Fatal(err)
	}
	if penalty != 0 {
		t.Errorf("penalty = %g, want 0", penalty)
	}
}

func TestSradPenaltyGrowsWithSpokeLength(t *testing.T) {
	g := testGrid(t)
	base, err := sradPenalty(g, srep.UpOrientation, 0)
	if err != nil {
		t.Fatal(err)
	}
	if base < 0 {
		t.Fatalf("penalty is negative: %g", base)
	}

	long := g.Clone()
	for l := 0; l < long.Lines(); l++ {
		for s := 0; s < long.Steps(); s++ {
			spoke := long.At(l, s).UpSpoke()
			spoke.SetRadius(10 * spoke.Radius())
		}
	}
	stretched, err := sradPenalty(long, srep.UpOrientation, 0)
	if err != nil {
		t.Fatal(err)
	}
	if stretched <= base {
		t.Errorf("stretched penalty %g not above base %g", stretched, base)
	}
}

func TestSradPenaltySingularField(t *testing.T) {
	// a constant spoke field has zero direction derivatives; its Gram
	// matrix is singular and must surface as an error.
	rows := make([][]*srep.SkeletalPoint, 4)
	dir := r3.Vec{Z: 1}
	for l := range rows {
		rows[l] = make([]*srep.SkeletalPoint, 3)
		for s := range rows[l] {
			up := srep.NewSpoke(srep.MustPoint(float64(l), float64(s), 0), dir)
			down := srep.NewSpoke(srep.MustPoint(float64(l), float64(s), 0), r3.Scale(-1, dir))
			if s == len(rows[l])-1 {
				rows[l][s] = srep.NewCrestPoint(up, down, srep.NewSpoke(srep.MustPoint(float64(l), float64(s), 0), r3.Vec{X: 1}))
			} else {
				rows[l][s] = srep.NewSkeletalPoint(up, down)
			}
		}
	}
	g, err := srep.NewEllipticalGrid(rows)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sradPenalty(g, srep.UpOrientation, 0); !errors.Is(err, errSingularSrad) {
		t.Errorf("got %v, want %v", err, errSingularSrad)
	}
}

func TestEvaluateNeverPropagatesFailure(t *testing.T) {
	g := testGrid(t)
	surf, err := mesh.New(fit.EllipsoidMesh(fit.Ellipsoid{Radii: [3]float64{1, 1.5, 2.5}}, 16, 32), 0)
	if err != nil {
		t.Fatal(err)
	}
	r, err := newRefiner(g, surf, Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     1,
		VoxelSpacing:      0.05,
		Interpolate: func(*srep.EllipticalGrid, int) (*srep.EllipticalGrid, error) {
			panic("interpolation exploded")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	coeff := initialCoefficients(g, srep.UpOrientation)
	if got := r.evaluate(coeff, srep.UpOrientation); got != failedEvaluation {
		t.Errorf("evaluate = %g, want the failure sentinel %g", got, failedEvaluation)
	}
}
