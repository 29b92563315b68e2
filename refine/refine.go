// Package refine fits an elliptical s-rep to a target surface. The up
// and down spoke fields are optimized against a voxelized signed
// distance field of the target with a derivative-free minimizer, then
// the crest spokes are snapped to the surface directly and bounded by
// its curvature.
package refine

import (
	"errors"
	"fmt"
	"log"

	"github.com/skelfit/srep"
	"github.com/skelfit/srep/field"
	"github.com/skelfit/srep/internal/d3"
	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// ErrInvalidArgument is wrapped by all argument validation failures.
var ErrInvalidArgument = errors.New("invalid argument")

const (
	defaultVoxelSpacing = 0.005
	// value reported for objective evaluations that fail; large
	// enough that the minimizer backs away from the region.
	failedEvaluation = 1e10
)

// Params configures a refinement run. InitialRegionSize,
// FinalRegionSize, MaxIterations and InterpolationLevel drive the
// minimizer; the three weights blend the objective terms.
type Params struct {
	// InitialRegionSize is the starting scale of the minimizer's
	// search region. It doubles as the initial step of the crest
	// length optimization.
	InitialRegionSize float64
	// FinalRegionSize is the convergence threshold of the search.
	FinalRegionSize float64
	// MaxIterations caps objective evaluations per spoke field and
	// iterations per crest spoke. Must be at least 1.
	MaxIterations int
	// InterpolationLevel sets the grid subdivision density used when
	// evaluating the objective: each cell is split 2^level times.
	// Must be non-negative.
	InterpolationLevel int

	// L0Weight scales the squared distance of spoke tips to the
	// target. L1Weight scales the deviation of spokes from the
	// target's normal direction. L2Weight scales the local
	// self-overlap penalty.
	L0Weight float64
	L1Weight float64
	L2Weight float64

	// VoxelSpacing is the voxel size of the distance field in
	// normalized cube units. Zero means 0.005.
	VoxelSpacing float64

	// Progress, if non-nil, receives values in [0,1] as the run
	// advances.
	Progress func(progress float64)

	// Log receives per-evaluation diagnostics. Nil disables logging.
	Log *log.Logger

	// Minimizer overrides the derivative-free optimizer. Nil means
	// Nelder-Mead.
	Minimizer Minimizer

	// Interpolate overrides the grid subdivision used by the
	// objective. Nil means srep.Subdivide.
	Interpolate func(g *srep.EllipticalGrid, level int) (*srep.EllipticalGrid, error)
}

// Run refines a copy of grid against the surface and returns it. The
// input grid is not modified. The returned grid has the same number of
// lines and steps as the input.
func Run(g *srep.EllipticalGrid, surf *mesh.Surface, p Params) (*srep.EllipticalGrid, error) {
	if surf == nil {
		return nil, fmt.Errorf("refine: cannot refine with a nil surface: %w", ErrInvalidArgument)
	}
	if g == nil || g.IsEmpty() {
		return nil, fmt.Errorf("refine: cannot refine an empty grid: %w", ErrInvalidArgument)
	}
	if p.MaxIterations < 1 {
		return nil, fmt.Errorf("refine: must have at least one iteration: %w", ErrInvalidArgument)
	}
	if p.InterpolationLevel < 0 {
		return nil, fmt.Errorf("refine: interpolation level must be non-negative: %w", ErrInvalidArgument)
	}
	r, err := newRefiner(g, surf, p)
	if err != nil {
		return nil, err
	}
	return r.run()
}

type refiner struct {
	params      Params
	surf        *mesh.Surface
	grid        *srep.EllipticalGrid // working copy
	field       *field.Field
	upCoeff     []float64
	downCoeff   []float64
	minimizer   Minimizer
	interpolate func(*srep.EllipticalGrid, int) (*srep.EllipticalGrid, error)

	iteration       int
	totalIterations int
}

func newRefiner(g *srep.EllipticalGrid, surf *mesh.Surface, p Params) (*refiner, error) {
	if p.VoxelSpacing == 0 {
		p.VoxelSpacing = defaultVoxelSpacing
	}
	r := &refiner{
		params:      p,
		surf:        surf,
		grid:        g.Clone(),
		minimizer:   p.Minimizer,
		interpolate: p.Interpolate,
		// up and down evaluations plus two passes over the crest.
		totalIterations: 2*p.MaxIterations + 2*g.Lines(),
	}
	if r.minimizer == nil {
		r.minimizer = NelderMead{}
	}
	if r.interpolate == nil {
		r.interpolate = srep.Subdivide
	}
	bounds := masterBounds(surf, g)
	f, err := field.Build(surf, bounds, p.VoxelSpacing)
	if err != nil {
		return nil, fmt.Errorf("refine: building distance field: %w", err)
	}
	r.field = f
	r.upCoeff = initialCoefficients(g, srep.UpOrientation)
	r.downCoeff = initialCoefficients(g, srep.DownOrientation)
	return r, nil
}

// masterBounds is the union of the surface bounds and the s-rep's
// bounds, so both fit in the normalized cube of the distance field.
func masterBounds(surf *mesh.Surface, g *srep.EllipticalGrid) r3.Box {
	box := d3.Box(surf.Bounds())
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			sp := g.At(l, s)
			for _, spoke := range []*srep.Spoke{sp.UpSpoke(), sp.DownSpoke(), sp.CrestSpoke()} {
				if spoke == nil {
					continue
				}
				box = box.Include(spoke.Origin().Vec())
				box = box.Include(spoke.Boundary().Vec())
			}
		}
	}
	return r3.Box(box)
}

// initialCoefficients flattens the grid's spokes of one orientation
// into the optimization vector: unit direction followed by a zero
// log-scale on the radius, per skeletal point.
func initialCoefficients(g *srep.EllipticalGrid, o srep.SpokeOrientation) []float64 {
	coeff := make([]float64, 0, g.Lines()*g.Steps()*4)
	for l := 0; l < g.Lines(); l++ {
		for s := 0; s < g.Steps(); s++ {
			u := g.At(l, s).Spoke(o).UnitDirection()
			coeff = append(coeff, u.X, u.Y, u.Z, 0)
		}
	}
	return coeff
}

func (r *refiner) run() (*srep.EllipticalGrid, error) {
	r.iteration = 0
	r.reportProgress()
	if err := r.refineUpDown(srep.UpOrientation); err != nil {
		return nil, err
	}
	r.iteration = r.params.MaxIterations
	r.reportProgress()
	if err := r.refineUpDown(srep.DownOrientation); err != nil {
		return nil, err
	}
	r.iteration = 2 * r.params.MaxIterations
	r.reportProgress()
	if err := r.refineCrest(); err != nil {
		return nil, err
	}
	r.iteration = r.totalIterations
	r.reportProgress()
	return r.grid, nil
}

func (r *refiner) incrementIteration() {
	r.iteration++
	r.reportProgress()
}

func (r *refiner) reportProgress() {
	if r.params.Progress != nil {
		r.params.Progress(float64(r.iteration) / float64(r.totalIterations))
	}
}

func (r *refiner) logf(format string, args ...interface{}) {
	if r.params.Log != nil {
		r.params.Log.Printf(format, args...)
	}
}

func (r *refiner) refineUpDown(o srep.SpokeOrientation) error {
	coeff := r.upCoeff
	if o == srep.DownOrientation {
		coeff = r.downCoeff
	}
	best, err := r.minimizer.Minimize(func(c []float64) float64 {
		return r.evaluate(c, o)
	}, coeff, r.params.InitialRegionSize, r.params.FinalRegionSize, r.params.MaxIterations)
	if err != nil {
		return fmt.Errorf("refine: optimizing %v spokes: %w", o, err)
	}
	copy(coeff, best)

	refined, err := reconstruct(r.grid, best, o)
	if err != nil {
		return err
	}
	if r.grid.Lines() != refined.Lines() || r.grid.Steps() != refined.Steps() {
		return fmt.Errorf("refine: expected equal grid dimensions, %dx%d != %dx%d",
			r.grid.Lines(), r.grid.Steps(), refined.Lines(), refined.Steps())
	}
	// only the spokes of this orientation move.
	done := r.grid.Batch()
	defer done()
	for l := 0; l < r.grid.Lines(); l++ {
		for s := 0; s < r.grid.Steps(); s++ {
			r.grid.SetSpoke(l, s, o, *refined.At(l, s).Spoke(o))
		}
	}
	return nil
}
