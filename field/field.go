// Package field builds a discrete signed distance field from a triangle
// surface by voxelizing it into a normalized unit cube and running an
// approximate euclidean distance transform over the binary image.
// Distances are negative inside the solid and positive outside, in
// normalized cube units.
package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/skelfit/srep/internal/d3"
	"github.com/skelfit/srep/mesh"
	"gonum.org/v1/gonum/spatial/r3"
)

// Field is a voxelized signed distance map with on-demand gradients.
// The grid has n voxels per axis with voxel (i,j,k) centered at
// (i,j,k)*spacing in cube coordinates.
type Field struct {
	n       int
	spacing float64
	dist    []float32 // signed distance, x fastest
	toCube  d3.Transform
}

// CubeTransform returns the affine map taking world coordinates inside
// bounds to the normalized cube: the longest axis of bounds maps to
// [0,1] and the other axes are scaled uniformly and centered on 0.5.
// All three axis ranges of bounds must be positive.
func CubeTransform(bounds r3.Box) (d3.Transform, error) {
	size := r3.Sub(bounds.Max, bounds.Min)
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return d3.Transform{}, fmt.Errorf("field: degenerate bounds %+v", bounds)
	}
	maxRange := d3.Max(size)
	scale := 1 / maxRange
	offset := r3.Vec{
		X: 0.5 - 0.5*size.X*scale - bounds.Min.X*scale,
		Y: 0.5 - 0.5*size.Y*scale - bounds.Min.Y*scale,
		Z: 0.5 - 0.5*size.Z*scale - bounds.Min.Z*scale,
	}
	return d3.ScaleOffset(d3.Elem(scale), offset), nil
}

// Build voxelizes surf into the normalized cube defined by bounds and
// computes its signed distance field. bounds must contain the surface
// and any geometry that will later be sampled against the field.
// spacing is the voxel size in cube units.
func Build(surf *mesh.Surface, bounds r3.Box, spacing float64) (*Field, error) {
	if surf == nil {
		return nil, errors.New("field: nil surface")
	}
	toCube, err := CubeTransform(bounds)
	if err != nil {
		return nil, err
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("field: non-positive voxel spacing %g", spacing)
	}
	n := int(1 / spacing)
	if n < 2 {
		return nil, fmt.Errorf("field: voxel spacing %g leaves fewer than 2 voxels per axis", spacing)
	}

	f := &Field{
		n:       n,
		spacing: spacing,
		toCube:  toCube,
	}
	inside := voxelize(surf, f.toCube, n, spacing)
	f.dist = signedDistance(inside, n, spacing)
	return f, nil
}

// signedDistance combines two euclidean distance transforms of the
// binary image into a signed map: negative inside, positive outside,
// with the surface placed half a voxel off the boundary voxel centers.
func signedDistance(inside []bool, n int, spacing float64) []float32 {
	toInside := make([]float32, len(inside))
	toOutside := make([]float32, len(inside))
	for i, in := range inside {
		if in {
			toInside[i] = 0
			toOutside[i] = edtInf
		} else {
			toInside[i] = edtInf
			toOutside[i] = 0
		}
	}
	edt3d(toInside, n)
	edt3d(toOutside, n)
	dist := toInside // reuse
	sp := float32(spacing)
	for i := range dist {
		if inside[i] {
			dist[i] = -(math32.Sqrt(toOutside[i]) - 0.5) * sp
		} else {
			dist[i] = (math32.Sqrt(toInside[i]) - 0.5) * sp
		}
	}
	return dist
}

// Dim returns the number of voxels per axis.
func (f *Field) Dim() int { return f.n }

// Spacing returns the voxel size in cube units.
func (f *Field) Spacing() float64 { return f.spacing }

// ToCube maps a world point into normalized cube coordinates.
func (f *Field) ToCube(p r3.Vec) r3.Vec { return f.toCube.Transform(p) }

// IndexOf returns the clamped voxel index holding world point p.
func (f *Field) IndexOf(p r3.Vec) (i, j, k int) {
	c := f.toCube.Transform(p)
	return f.clampIndex(c.X), f.clampIndex(c.Y), f.clampIndex(c.Z)
}

func (f *Field) clampIndex(x float64) int {
	i := int(math.Round(x / f.spacing))
	if i < 0 {
		return 0
	}
	if i >= f.n {
		return f.n - 1
	}
	return i
}

func (f *Field) at(i, j, k int) float32 {
	return f.dist[(k*f.n+j)*f.n+i]
}

// Distance returns the signed distance at voxel (i,j,k).
func (f *Field) Distance(i, j, k int) float64 {
	return float64(f.at(i, j, k))
}

// At returns the signed distance at the voxel holding world point p.
func (f *Field) At(p r3.Vec) float64 {
	i, j, k := f.IndexOf(p)
	return f.Distance(i, j, k)
}

// Gradient returns the distance gradient at voxel (i,j,k) using
// central differences on the interior and one-sided differences at the
// borders, in cube units.
func (f *Field) Gradient(i, j, k int) r3.Vec {
	return r3.Vec{
		X: f.partial(i, j, k, 0),
		Y: f.partial(i, j, k, 1),
		Z: f.partial(i, j, k, 2),
	}
}

// GradientAt returns the distance gradient at the voxel holding world
// point p.
func (f *Field) GradientAt(p r3.Vec) r3.Vec {
	i, j, k := f.IndexOf(p)
	return f.Gradient(i, j, k)
}

func (f *Field) partial(i, j, k, axis int) float64 {
	idx := [3]int{i, j, k}
	lo, hi := idx, idx
	step := 2.0
	if idx[axis] == 0 {
		step = 1
	} else {
		lo[axis]--
	}
	if idx[axis] == f.n-1 {
		step = 1
	} else {
		hi[axis]++
	}
	return (f.Distance(hi[0], hi[1], hi[2]) - f.Distance(lo[0], lo[1], lo[2])) / (step * f.spacing)
}
