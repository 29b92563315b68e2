package srep_test

import (
	"math"
	"testing"

	"github.com/skelfit/srep"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestSubdivideLevelZeroClones(t *testing.T) {
	g := smallGrid(t, 4, 3)
	fine, err := srep.Subdivide(g, 0)
	if err != nil {
		t.Fatal(err)
	}
	if fine.Lines() != g.Lines() || fine.Steps() != g.Steps() {
		t.Fatalf("level 0 dims = %dx%d, want %dx%d", fine.Lines(), fine.Steps(), g.Lines(), g.Steps())
	}
	fine.At(0, 0).UpSpoke().SetDirection(r3.Vec{X: 7})
	if g.At(0, 0).UpSpoke().Direction() == (r3.Vec{X: 7}) {
		t.Error("level 0 result aliases the input grid")
	}
}

func TestSubdivideDimensions(t *testing.T) {
	g := smallGrid(t, 6, 4)
	for level := 1; level <= 3; level++ {
		fine, err := srep.Subdivide(g, level)
		if err != nil {
			t.Fatal(err)
		}
		density := 1 << level
		wantLines := g.Lines() * density
		wantSteps := (g.Steps()-1)*density + 1
		if fine.Lines() != wantLines || fine.Steps() != wantSteps {
			t.Errorf("level %d: dims = %dx%d, want %dx%d",
				level, fine.Lines(), fine.Steps(), wantLines, wantSteps)
		}
		for l := 0; l < fine.Lines(); l++ {
			for s := 0; s < fine.Steps(); s++ {
				if fine.IsCrest(l, s) != (s == fine.Steps()-1) {
					t.Fatalf("level %d: crest flag wrong at (%d,%d)", level, l, s)
				}
			}
		}
	}
}

func TestSubdividePreservesPrimaryNodes(t *testing.T) {
	g := smallGrid(t, 5, 3)
	const level = 2
	fine, err := srep.Subdivide(g, level)
	if err != nil {
		t.Fatal(err)
	}
	density := 1 << level
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			coarse := g.At(l, s).UpSpoke()
			ref := fine.At(l*density, s*density).UpSpoke()
			if d := srep.Distance(coarse.Origin(), ref.Origin()); d > 1e-12 {
				t.Fatalf("primary node (%d,%d) moved by %g", l, s, d)
			}
			if diff := math.Abs(coarse.Radius() - ref.Radius()); diff > 1e-12 {
				t.Fatalf("primary node (%d,%d) radius off by %g", l, s, diff)
			}
		}
	}
}

func TestSubdivideMidpointInterpolation(t *testing.T) {
	// Two-step grid with parallel spokes of radius 1 and 3: the step
	// midpoint must carry radius 2 at the averaged origin.
	rows := make([][]*srep.SkeletalPoint, 3)
	for l := range rows {
		o0 := srep.MustPoint(float64(l), 0, 0)
		o1 := srep.MustPoint(float64(l), 2, 0)
		rows[l] = []*srep.SkeletalPoint{
			srep.NewSkeletalPoint(
				srep.NewSpoke(o0, r3.Vec{Z: 1}),
				srep.NewSpoke(o0, r3.Vec{Z: -1}),
			),
			srep.NewCrestPoint(
				srep.NewSpoke(o1, r3.Vec{Z: 3}),
				srep.NewSpoke(o1, r3.Vec{Z: -3}),
				srep.NewSpoke(o1, r3.Vec{Y: 1}),
			),
		}
	}
	g, err := srep.NewEllipticalGrid(rows)
	if err != nil {
		t.Fatal(err)
	}
	fine, err := srep.Subdivide(g, 1)
	if err != nil {
		t.Fatal(err)
	}
	mid := fine.At(0, 1).UpSpoke()
	if d := math.Abs(mid.Radius() - 2); d > 1e-12 {
		t.Errorf("midpoint radius = %g, want 2", mid.Radius())
	}
	if d := srep.Distance(mid.Origin(), srep.MustPoint(0, 1, 0)); d > 1e-12 {
		t.Errorf("midpoint origin = %v", mid.Origin())
	}
	u := mid.UnitDirection()
	if math.Abs(u.Z-1) > 1e-12 {
		t.Errorf("midpoint direction = %v, want +Z", u)
	}
}

func TestSubdivideNegativeLevel(t *testing.T) {
	g := smallGrid(t, 3, 2)
	if _, err := srep.Subdivide(g, -1); err == nil {
		t.Fatal("negative level accepted")
	}
}

func TestSubdivideEmptyGrid(t *testing.T) {
	empty, err := srep.NewEllipticalGrid(nil)
	if err != nil {
		t.Fatal(err)
	}
	fine, err := srep.Subdivide(empty, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !fine.IsEmpty() {
		t.Error("subdividing the empty grid is not empty")
	}
}
