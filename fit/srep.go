package fit

import (
	"fmt"
	"math"

	"github.com/skelfit/srep"
	"github.com/skelfit/srep/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config carries the lattice layout constants. The zero value selects
// the defaults.
type Config struct {
	// EllipseScale shrinks the medial ellipse slightly inside the
	// true medial locus. Zero means 0.9.
	EllipseScale float64
	// CrestShift moves the skeletal side of each crest spoke off the
	// interior sheet toward the boundary, as a fraction of the spoke.
	// Zero means 0.1.
	CrestShift float64
	// Eps guards the trigonometric normalizations against degenerate
	// sheet points. Zero means 1e-6.
	Eps float64
}

func (c Config) withDefaults() Config {
	if c.EllipseScale == 0 {
		c.EllipseScale = 0.9
	}
	if c.CrestShift == 0 {
		c.CrestShift = 0.1
	}
	if c.Eps == 0 {
		c.Eps = 1e-6
	}
	return c
}

// NewSRep lays out the medial skeletal sheet of the ellipsoid as an
// elliptical grid: foldPoints lines around the medial ellipse,
// stepsToCrest steps from the spine out to the fold. Every skeletal
// point carries up and down spokes reaching the ellipsoid boundary;
// the fold additionally carries crest spokes. The ellipsoid must not
// be a near sphere, whose medial sheet collapses to a point.
func NewSRep(e Ellipsoid, foldPoints, stepsToCrest int, cfg Config) (*srep.EllipticalGrid, error) {
	if foldPoints < 3 {
		return nil, fmt.Errorf("fit: need at least 3 fold points, got %d", foldPoints)
	}
	if stepsToCrest < 1 {
		return nil, fmt.Errorf("fit: need at least 1 step to the crest, got %d", stepsToCrest)
	}
	cfg = cfg.withDefaults()

	rx := e.Radii[2]
	ry := e.Radii[1]
	rz := e.Radii[0]
	// radii of the medial ellipse of the ellipsoid
	mrxO := (rx*rx - rz*rz) / rx
	mryO := (ry*ry - rz*rz) / ry
	if mrxO*mryO < cfg.Eps {
		return nil, fmt.Errorf("fit: ellipsoid with radii %v is too close to a sphere", e.Radii)
	}

	mra := mrxO * cfg.EllipseScale
	mrb := mryO * cfg.EllipseScale
	deltaTheta := 2 * math.Pi / float64(foldPoints)
	stepSize := 1.0 / float64(stepsToCrest)

	rows := make([][]*srep.SkeletalPoint, foldPoints)
	for i := 0; i < foldPoints; i++ {
		// around the medial ellipse, starting at pi radians
		theta := math.Pi - deltaTheta*float64(i)
		x := mra * math.Cos(theta)
		y := mrb * math.Sin(theta)
		// spine point for this line; its length is 0 for a circle and
		// mra for an ellipse flattened to a line
		spineX := (mra*mra - mrb*mrb) * math.Cos(theta) / mra

		row := make([]*srep.SkeletalPoint, stepsToCrest+1)
		for j := 0; j <= stepsToCrest; j++ {
			mx := spineX + stepSize*float64(j)*(x-spineX)
			my := stepSize * float64(j) * y

			sB := my * mrxO
			cB := mx * mryO
			l := math.Hypot(sB, cB)
			sBn, cBn := sB, cB
			if l >= cfg.Eps {
				sBn, cBn = sB/l, cB/l
			}
			cA := l / (mrxO * mryO)
			sA := math.Sqrt(1 - cA*cA)

			sx := rx*cA*cBn - mx
			sy := ry*cA*sBn - my
			sz := rz * sA

			skeletal := e.toWorld(r3.Vec{X: mx, Y: my})
			up := e.toWorld(r3.Vec{X: sx + mx, Y: sy + my, Z: sz})
			down := e.toWorld(r3.Vec{X: sx + mx, Y: sy + my, Z: -sz})

			origin, err := srep.PointFromVec(skeletal)
			if err != nil {
				return nil, fmt.Errorf("fit: skeletal point (%d,%d): %w", i, j, err)
			}
			upSpoke := srep.NewSpoke(origin, r3.Sub(up, skeletal))
			downSpoke := srep.NewSpoke(origin, r3.Sub(down, skeletal))

			if j < stepsToCrest {
				row[j] = srep.NewSkeletalPoint(upSpoke, downSpoke)
				continue
			}

			// fold: the crest spoke points out through the
			// ellipsoid's equator-like tangent circle.
			v := r3.Vec{X: rx*cBn - mx, Y: ry*sBn - my}
			tangent := r3.Vec{X: sx, Y: sy}
			boundaryLocal := r3.Add(r3.Scale(r3.Norm(v), d3.Unit(tangent)), r3.Vec{X: mx, Y: my})
			// the crest skeletal point sits slightly off the sheet
			crestLocal := r3.Add(r3.Vec{X: mx, Y: my}, r3.Scale(cfg.CrestShift, r3.Sub(boundaryLocal, r3.Vec{X: mx, Y: my})))

			crestOrigin, err := srep.PointFromVec(e.toWorld(crestLocal))
			if err != nil {
				return nil, fmt.Errorf("fit: crest skeletal point %d: %w", i, err)
			}
			crestSpoke := srep.NewSpoke(crestOrigin, r3.Sub(e.toWorld(boundaryLocal), crestOrigin.Vec()))
			row[j] = srep.NewCrestPoint(upSpoke, downSpoke, crestSpoke)
		}
		rows[i] = row
	}
	return srep.NewEllipticalGrid(rows)
}
