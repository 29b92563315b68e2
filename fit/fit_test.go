package fit_test

import (
	"math"
	"testing"

	"github.com/skelfit/srep/fit"
	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

func testEllipsoid() fit.Ellipsoid {
	return fit.Ellipsoid{
		Center: r3.Vec{X: 1, Y: -2, Z: 0.5},
		Radii:  [3]float64{1, 1.5, 2.5},
	}
}

func buildSurface(t testing.TB, e fit.Ellipsoid) *mesh.Surface {
	t.Helper()
	surf, err := mesh.New(fit.EllipsoidMesh(e, 32, 64), 0)
	if err != nil {
		t.Fatal(err)
	}
	return surf
}

func TestVolume(t *testing.T) {
	e := testEllipsoid()
	surf := buildSurface(t, e)
	want := 4.0 / 3.0 * math.Pi * e.Radii[0] * e.Radii[1] * e.Radii[2]
	got := fit.Volume(surf)
	if math.Abs(got-want)/want > 0.02 {
		t.Errorf("Volume = %g, want about %g", got, want)
	}
}

func TestBestFitEllipsoidRecoversRadii(t *testing.T) {
	e := testEllipsoid()
	surf := buildSurface(t, e)
	got, err := fit.BestFitEllipsoid(surf)
	if err != nil {
		t.Fatal(err)
	}
	if d := r3.Norm(r3.Sub(got.Center, e.Center)); d > 0.05 {
		t.Errorf("center off by %g: got %v want %v", d, got.Center, e.Center)
	}
	for i := range got.Radii {
		if rel := math.Abs(got.Radii[i]-e.Radii[i]) / e.Radii[i]; rel > 0.15 {
			t.Errorf("radius %d = %g, want within 15%% of %g", i, got.Radii[i], e.Radii[i])
		}
	}
	if got.Radii[0] > got.Radii[1] || got.Radii[1] > got.Radii[2] {
		t.Errorf("radii not ascending: %v", got.Radii)
	}
}

func TestBestFitEllipsoidErrors(t *testing.T) {
	if _, err := fit.BestFitEllipsoid(nil); err == nil {
		t.Error("expected error for nil surface")
	}
}

func TestNewSRepLayout(t *testing.T) {
	e := testEllipsoid()
	const foldPoints, stepsToCrest = 8, 3
	g, err := fit.NewSRep(e, foldPoints, stepsToCrest, fit.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if g.Lines() != foldPoints {
		t.Fatalf("Lines() = %d, want %d", g.Lines(), foldPoints)
	}
	if g.Steps() != stepsToCrest+1 {
		t.Fatalf("Steps() = %d, want %d", g.Steps(), stepsToCrest+1)
	}
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			if got, want := g.IsCrest(l, s), s == g.Steps()-1; got != want {
				t.Fatalf("IsCrest(%d,%d) = %v, want %v", l, s, got, want)
			}
		}
	}
}

func TestNewSRepSpokeTipsOnBoundary(t *testing.T) {
	e := testEllipsoid()
	g, err := fit.NewSRep(e, 12, 4, fit.Config{})
	if err != nil {
		t.Fatal(err)
	}
	// up and down spoke tips satisfy the ellipsoid equation exactly.
	implicit := func(p r3.Vec) float64 {
		d := r3.Sub(p, e.Center)
		// axis aligned test ellipsoid, local x along world z
		x := d.Z / e.Radii[2]
		y := d.Y / e.Radii[1]
		z := d.X / e.Radii[0]
		return x*x + y*y + z*z
	}
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			sp := g.At(l, s)
			up := sp.UpSpoke().Boundary().Vec()
			down := sp.DownSpoke().Boundary().Vec()
			if v := implicit(up); math.Abs(v-1) > 1e-9 {
				t.Fatalf("up spoke tip at (%d,%d) off boundary: %g", l, s, v)
			}
			if v := implicit(down); math.Abs(v-1) > 1e-9 {
				t.Fatalf("down spoke tip at (%d,%d) off boundary: %g", l, s, v)
			}
		}
	}
}

func TestNewSRepRejectsSphere(t *testing.T) {
	sphere := fit.Ellipsoid{Radii: [3]float64{1, 1, 1}}
	if _, err := fit.NewSRep(sphere, 8, 3, fit.Config{}); err == nil {
		t.Error("expected error for spherical input")
	}
}

func TestNewSRepArgumentErrors(t *testing.T) {
	e := testEllipsoid()
	if _, err := fit.NewSRep(e, 2, 3, fit.Config{}); err == nil {
		t.Error("expected error for too few fold points")
	}
	if _, err := fit.NewSRep(e, 8, 0, fit.Config{}); err == nil {
		t.Error("expected error for zero steps")
	}
}
