package refine_test

import (
	"errors"
	"math"
	"testing"

	"github.com/skelfit/srep"
	"github.com/skelfit/srep/fit"
	"github.com/skelfit/srep/mesh"
	"github.com/skelfit/srep/refine"
	"gonum.org/v1/gonum/spatial/r3"
)

func fixture(t testing.TB) (*srep.EllipticalGrid, *mesh.Surface) {
	t.Helper()
	e := fit.Ellipsoid{Radii: [3]float64{1, 1.5, 2.5}}
	surf, err := mesh.New(fit.EllipsoidMesh(e, 24, 48), 0)
	if err != nil {
		t.Fatal(err)
	}
	g, err := fit.NewSRep(e, 8, 3, fit.Config{})
	if err != nil {
		t.Fatal(err)
	}
	return g, surf
}

func TestRunPreservesDimensionsAndInput(t *testing.T) {
	g, surf := fixture(t)
	input := g.Clone()

	got, err := refine.Run(g, surf, refine.Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     5,
		L0Weight:          10,
		L1Weight:          5,
		L2Weight:          1,
		VoxelSpacing:      0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Lines() != g.Lines() || got.Steps() != g.Steps() {
		t.Fatalf("dimensions changed: %dx%d -> %dx%d", g.Lines(), g.Steps(), got.Lines(), got.Steps())
	}
	// the input grid is untouched
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			if g.At(l, s).UpSpoke().Direction() != input.At(l, s).UpSpoke().Direction() {
				t.Fatalf("input grid modified at (%d,%d)", l, s)
			}
		}
	}
}

func TestRunProgressReachesOne(t *testing.T) {
	g, surf := fixture(t)
	var progress []float64
	_, err := refine.Run(g, surf, refine.Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     3,
		L0Weight:          1,
		VoxelSpacing:      0.02,
		Progress:          func(p float64) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(progress) == 0 {
		t.Fatal("no progress reported")
	}
	if progress[0] != 0 {
		t.Errorf("first progress = %g, want 0", progress[0])
	}
	if last := progress[len(progress)-1]; last != 1 {
		t.Errorf("last progress = %g, want 1", last)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress went backwards: %g after %g", progress[i], progress[i-1])
		}
		if progress[i] < 0 || progress[i] > 1 {
			t.Fatalf("progress %g out of range", progress[i])
		}
	}
}

func TestRunSnapsCrestTipsToSurface(t *testing.T) {
	g, surf := fixture(t)
	got, err := refine.Run(g, surf, refine.Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     30,
		L0Weight:          10,
		L1Weight:          5,
		L2Weight:          1,
		VoxelSpacing:      0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	var worst float64
	for l := 0; l < got.Lines(); l++ {
		s := got.Steps() - 1
		tip := got.At(l, s).CrestSpoke().Boundary().Vec()
		worst = math.Max(worst, math.Abs(surf.SignedDistance(tip)))
	}
	if worst > 0.01 {
		t.Errorf("crest tip %g away from surface after refinement", worst)
	}
}

func TestCrestSpokeOnSurfaceUnchanged(t *testing.T) {
	g, surf := fixture(t)
	// pin one crest spoke's tip exactly onto a mesh vertex, with a
	// radius well under the local radius of curvature; neither crest
	// pass may touch it.
	last := g.Steps() - 1
	spoke := g.At(0, last).CrestSpoke()
	tip := surf.Vertex(surf.NearestVertex(spoke.Boundary().Vec()))
	origin := r3.Scale(1-0.02/r3.Norm(tip), tip)
	spoke.SetOrigin(srep.MustPoint(origin.X, origin.Y, origin.Z))
	spoke.SetDirection(r3.Sub(tip, origin))
	wantOrigin := spoke.Origin()
	wantDir := spoke.Direction()

	got, err := refine.Run(g, surf, refine.Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     5,
		L0Weight:          10,
		L1Weight:          5,
		L2Weight:          1,
		VoxelSpacing:      0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	gotSpoke := got.At(0, last).CrestSpoke()
	if gotSpoke.Origin() != wantOrigin {
		t.Errorf("converged crest origin moved: %v -> %v", wantOrigin, gotSpoke.Origin())
	}
	if gotSpoke.Direction() != wantDir {
		t.Errorf("converged crest spoke changed: %v -> %v", wantDir, gotSpoke.Direction())
	}
}

func TestRunWithInterpolation(t *testing.T) {
	g, surf := fixture(t)
	got, err := refine.Run(g, surf, refine.Params{
		InitialRegionSize:  0.1,
		FinalRegionSize:    0.01,
		MaxIterations:      3,
		InterpolationLevel: 1,
		L0Weight:           10,
		L1Weight:           5,
		L2Weight:           1,
		VoxelSpacing:       0.02,
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Lines() != g.Lines() || got.Steps() != g.Steps() {
		t.Fatalf("interpolation leaked into result dimensions: %dx%d", got.Lines(), got.Steps())
	}
}

func TestRunArgumentValidation(t *testing.T) {
	g, surf := fixture(t)
	// a spacing this fine would allocate a billion voxels; validation
	// must reject the arguments before the field is ever built.
	valid := refine.Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     1,
		VoxelSpacing:      0.001,
	}

	cases := []struct {
		name string
		g    *srep.EllipticalGrid
		surf *mesh.Surface
		p    refine.Params
	}{
		{"nil surface", g, nil, valid},
		{"nil grid", nil, surf, valid},
		{"zero iterations", g, surf, func() refine.Params { p := valid; p.MaxIterations = 0; return p }()},
		{"negative level", g, surf, func() refine.Params { p := valid; p.InterpolationLevel = -1; return p }()},
	}
	for _, tc := range cases {
		if _, err := refine.Run(tc.g, tc.surf, tc.p); !errors.Is(err, refine.ErrInvalidArgument) {
			t.Errorf("%s: got %v, want ErrInvalidArgument", tc.name, err)
		}
	}
}

func BenchmarkRun(b *testing.B) {
	g, surf := fixture(b)
	p := refine.Params{
		InitialRegionSize: 0.1,
		FinalRegionSize:   0.01,
		MaxIterations:     5,
		L0Weight:          10,
		L1Weight:          5,
		L2Weight:          1,
		VoxelSpacing:      0.02,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := refine.Run(g, surf, p); err != nil {
			b.Fatal(err)
		}
	}
}
