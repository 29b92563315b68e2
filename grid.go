// Package srep models elliptical skeletal representations (s-reps): a
// toroidally indexed sheet of skeletal points whose up, down and crest
// spokes reach out to the boundary of a solid. The refine package fits
// grids produced here to triangle surfaces.
package srep

import (
	"errors"
	"fmt"
)

// EllipticalGrid is an ordered lines×steps sheet of skeletal points.
// The line axis is circular (index wraps modulo Lines); the step axis
// is bounded, step 0 lying on the spine and the last step on the fold.
// The zero-line grid is a valid empty sentinel.
//
// A grid is not safe for concurrent mutation. The refinement pipeline
// mutates it only between optimization stages.
type EllipticalGrid struct {
	points [][]*SkeletalPoint

	onModified func()
	batchDepth int
}

// NewEllipticalGrid builds a grid from rows of skeletal points, one row
// per line. All rows must have equal length and crest points must
// appear at the last step of each row and nowhere else. Passing no rows
// yields the empty grid.
func NewEllipticalGrid(rows [][]*SkeletalPoint) (*EllipticalGrid, error) {
	if len(rows) == 0 {
		return &EllipticalGrid{}, nil
	}
	steps := len(rows[0])
	if steps == 0 {
		return nil, errors.New("srep: grid row cannot be empty")
	}
	for l, row := range rows {
		if len(row) != steps {
			return nil, fmt.Errorf("srep: ragged grid: line %d has %d steps, want %d", l, len(row), steps)
		}
		for s, sp := range row {
			if sp == nil {
				return nil, fmt.Errorf("srep: nil skeletal point at (%d,%d)", l, s)
			}
			onFold := s == steps-1
			if sp.IsCrest() != onFold {
				return nil, fmt.Errorf("srep: crest spoke misplaced at (%d,%d)", l, s)
			}
		}
	}
	return &EllipticalGrid{points: rows}, nil
}

// IsEmpty reports whether the grid has no lines.
func (g *EllipticalGrid) IsEmpty() bool { return len(g.points) == 0 }

// Lines returns the number of lines (the circular axis).
func (g *EllipticalGrid) Lines() int { return len(g.points) }

// Steps returns the number of steps per line, spine to fold inclusive.
func (g *EllipticalGrid) Steps() int {
	if g.IsEmpty() {
		return 0
	}
	return len(g.points[0])
}

// At returns the skeletal point at (line, step).
func (g *EllipticalGrid) At(line, step int) *SkeletalPoint {
	return g.points[line][step]
}

// Spoke returns the spoke at (line, step) of the given orientation.
func (g *EllipticalGrid) Spoke(line, step int, o SpokeOrientation) *Spoke {
	return g.points[line][step].Spoke(o)
}

// SetSpoke replaces the spoke at (line, step) and notifies observers.
func (g *EllipticalGrid) SetSpoke(line, step int, o SpokeOrientation, s Spoke) {
	g.points[line][step].SetSpoke(o, s)
	g.modified()
}

// IsCrest reports whether (line, step) lies on the fold.
func (g *EllipticalGrid) IsCrest(line, step int) bool {
	return g.points[line][step].IsCrest()
}

// WrapLine wraps a line index onto the circular axis.
func (g *EllipticalGrid) WrapLine(l int) int {
	n := len(g.points)
	return ((l % n) + n) % n
}

// PrevLine and NextLine are wrap-aware neighbor accessors on the
// circular axis.
func (g *EllipticalGrid) PrevLine(l int) int { return g.WrapLine(l - 1) }
func (g *EllipticalGrid) NextLine(l int) int { return g.WrapLine(l + 1) }

// PrevStep and NextStep clamp on the bounded axis: the spine and the
// fold are their own neighbors.
func (g *EllipticalGrid) PrevStep(s int) int {
	if s <= 0 {
		return 0
	}
	return s - 1
}

func (g *EllipticalGrid) NextStep(s int) int {
	if last := g.Steps() - 1; s >= last {
		return last
	}
	return s + 1
}

// Clone returns a deep copy sharing no spokes with the receiver.
// Observers are not carried over.
func (g *EllipticalGrid) Clone() *EllipticalGrid {
	c := &EllipticalGrid{}
	if g.IsEmpty() {
		return c
	}
	c.points = make([][]*SkeletalPoint, len(g.points))
	for l, row := range g.points {
		c.points[l] = make([]*SkeletalPoint, len(row))
		for s, sp := range row {
			c.points[l][s] = sp.clone()
		}
	}
	return c
}

// OnModified registers the observer invoked after grid mutations. Only
// one observer is kept; passing nil clears it.
func (g *EllipticalGrid) OnModified(fn func()) { g.onModified = fn }

func (g *EllipticalGrid) modified() {
	if g.batchDepth > 0 || g.onModified == nil {
		return
	}
	g.onModified()
}

// Batch opens a batched-mutation scope: observer notifications are
// suppressed until the returned func runs, which fires exactly one
// notification. Call it with defer so the notification fires on every
// exit path, panics included:
//
//	done := grid.Batch()
//	defer done()
//
// The returned func is idempotent.
func (g *EllipticalGrid) Batch() (done func()) {
	g.batchDepth++
	released := false
	return func() {
		if released {
			return
		}
		released = true
		g.batchDepth--
		if g.batchDepth == 0 && g.onModified != nil {
			g.onModified()
		}
	}
}
