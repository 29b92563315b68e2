package srep

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Subdivide returns a finer copy of the grid with every parametric cell
// split 2^level times along both axes: the result has Lines()*2^level
// lines and (Steps()-1)*2^level+1 steps. Skeletal points and radii are
// interpolated bilinearly, spoke directions by normalized lerp, and the
// fold keeps its crest spokes (interpolated along the fold ring).
// Primary nodes land at indices that are multiples of 2^level, so a
// caller can walk the original lattice inside the fine one with that
// stride. Level 0 returns a plain deep copy.
func Subdivide(g *EllipticalGrid, level int) (*EllipticalGrid, error) {
	if level < 0 {
		return nil, fmt.Errorf("srep: interpolation level must be non-negative, got %d", level)
	}
	if level == 0 || g.IsEmpty() {
		return g.Clone(), nil
	}
	density := 1 << uint(level)
	lines := g.Lines()
	steps := g.Steps()
	fineLines := lines * density
	fineSteps := (steps-1)*density + 1

	rows := make([][]*SkeletalPoint, fineLines)
	for fl := 0; fl < fineLines; fl++ {
		row := make([]*SkeletalPoint, fineSteps)
		i0 := fl / density
		i1 := (i0 + 1) % lines
		fu := float64(fl%density) / float64(density)
		for fs := 0; fs < fineSteps; fs++ {
			j0 := fs / density
			j1 := j0 + 1
			if j1 > steps-1 {
				j1 = steps - 1
			}
			fv := float64(fs%density) / float64(density)

			up := bilerpSpoke(g, i0, i1, j0, j1, fu, fv, UpOrientation)
			down := bilerpSpoke(g, i0, i1, j0, j1, fu, fv, DownOrientation)
			if fs == fineSteps-1 {
				crest := lerpSpoke(
					g.At(i0, steps-1).CrestSpoke(),
					g.At(i1, steps-1).CrestSpoke(),
					fu,
				)
				row[fs] = NewCrestPoint(up, down, crest)
			} else {
				row[fs] = NewSkeletalPoint(up, down)
			}
		}
		rows[fl] = row
	}
	return NewEllipticalGrid(rows)
}

func bilerpSpoke(g *EllipticalGrid, i0, i1, j0, j1 int, fu, fv float64, o SpokeOrientation) Spoke {
	a := lerpSpoke(g.Spoke(i0, j0, o), g.Spoke(i1, j0, o), fu)
	b := lerpSpoke(g.Spoke(i0, j1, o), g.Spoke(i1, j1, o), fu)
	return lerpSpoke(&a, &b, fv)
}

// lerpSpoke blends two spokes: linear in origin and radius, normalized
// lerp in direction. If the blended direction collapses (antipodal
// inputs) the raw lerp of the direction vectors is used instead.
func lerpSpoke(a, b *Spoke, t float64) Spoke {
	origin := lerpVec(a.Origin().Vec(), b.Origin().Vec(), t)
	radius := (1-t)*a.Radius() + t*b.Radius()
	u := lerpVec(a.UnitDirection(), b.UnitDirection(), t)
	if n := r3.Norm(u); n > 0 {
		u = r3.Scale(radius/n, u)
	} else {
		u = lerpVec(a.Direction(), b.Direction(), t)
	}
	return NewSpoke(Point{x: origin.X, y: origin.Y, z: origin.Z}, u)
}

func lerpVec(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(r3.Scale(1-t, a), r3.Scale(t, b))
}
