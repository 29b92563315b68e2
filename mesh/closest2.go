package mesh

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// 2D closest-point helpers for the flattened triangle queries.

type triangleFeature int

const (
	featureV0 triangleFeature = iota
	featureV1
	featureV2
	featureE0
	featureE1
	featureE2
	featureFace
)

func closestOnTriangle2(p r2.Vec, tri [3]r2.Vec) (pointOnTriangle r2.Vec, feature triangleFeature) {
	if inTriangle(p, tri) {
		return p, featureFace
	}
	minDist := math.MaxFloat64
	for j := range tri {
		edge := [2]r2.Vec{tri[j], tri[(j+1)%3]}
		distance, gotFeat := distToSegment(p, edge)
		d2 := r2.Norm2(distance)
		if d2 < minDist {
			if gotFeat < 2 {
				feature = triangleFeature(j+gotFeat) % 3
			} else {
				feature = featureE0 + triangleFeature(j)%3
			}
			minDist = d2
			pointOnTriangle = r2.Sub(p, distance)
		}
	}
	return pointOnTriangle, feature
}

// inTriangle returns true if pt is contained in bounds
// defined by triangle vertices tri.
func inTriangle(pt r2.Vec, tri [3]r2.Vec) bool {
	d1 := d2Sign(pt, tri[0], tri[1])
	d2 := d2Sign(pt, tri[1], tri[2])
	d3 := d2Sign(pt, tri[2], tri[0])
	hasNeg := (d1 < 0) || (d2 < 0) || (d3 < 0)
	hasPos := (d1 > 0) || (d2 > 0) || (d3 > 0)
	return !(hasNeg && hasPos)
}

func d2Sign(p1, p2, p3 r2.Vec) float64 {
	return (p1.X-p3.X)*(p2.Y-p3.Y) - (p2.X-p3.X)*(p1.Y-p3.Y)
}

// distToSegment returns the distance vector from point to segment. The
// integer is 0 if closest to the first endpoint, 1 if closest to the
// second endpoint and 2 if closest to the segment interior.
func distToSegment(p r2.Vec, ln [2]r2.Vec) (r2.Vec, int) {
	lineDir := r2.Sub(ln[1], ln[0])
	perpendicular := r2.Vec{X: -lineDir.Y, Y: lineDir.X}
	if along := r2.Dot(r2.Sub(p, ln[0]), lineDir); along < 0 {
		return r2.Sub(p, ln[0]), 0
	} else if along > r2.Norm2(lineDir) {
		return r2.Sub(p, ln[1]), 1
	}
	perpUnit := r2.Unit(perpendicular)
	e := r2.Dot(r2.Sub(p, ln[0]), perpUnit)
	return r2.Scale(e, perpUnit), 2
}
