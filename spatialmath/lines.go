// Package spatialmath contains the 3D vector and line primitives used for triangulation.
package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/sksurgery/stereovision/utils"
)

// Line is the infinite line through P1 and P2.
type Line struct {
	P1, P2 r3.Vector
}

// Norm returns the euclidean length of v.
func Norm(v r3.Vector) float64 {
	return v.Norm()
}

// CrossProduct returns a x b.
func CrossProduct(a, b r3.Vector) r3.Vector {
	return a.Cross(b)
}

// DotProduct returns a . b.
func DotProduct(a, b r3.Vector) float64 {
	return a.Dot(b)
}

// DistanceToLine returns the perpendicular distance from x0 to the line. The result is NaN
// when the line's two points coincide.
func DistanceToLine(line Line, x0 r3.Vector) float64 {
	dir := line.P2.Sub(line.P1)
	return CrossProduct(dir, line.P1.Sub(x0)).Norm() / dir.Norm()
}

// NaNVector is a vector with every component set to NaN. It marks a point that could not be
// computed.
func NaNVector() r3.Vector {
	nan := math.NaN()
	return r3.Vector{X: nan, Y: nan, Z: nan}
}

// DistanceBetweenLines returns the shortest distance between the line p0 + s*u and the line
// q0 + t*v, together with the midpoint of the shortest segment joining them.
// For parallel or degenerate lines the closest-point parameters are not finite; the distance
// is then measured from q0 to the first line and the midpoint is NaNVector.
func DistanceBetweenLines(p0, u, q0, v r3.Vector) (float64, r3.Vector) {
	w0 := p0.Sub(q0)
	a := u.Dot(u)
	b := u.Dot(v)
	c := v.Dot(v)
	d := u.Dot(w0)
	e := v.Dot(w0)

	denom := a*c - b*b
	sc := (b*e - c*d) / denom
	tc := (a*e - b*d) / denom

	if !utils.IsFinite(sc, tc) {
		return DistanceToLine(Line{P1: p0, P2: p0.Add(u)}, q0), NaNVector()
	}

	onFirst := p0.Add(u.Mul(sc))
	onSecond := q0.Add(v.Mul(tc))
	midpoint := onFirst.Add(onSecond).Mul(0.5)
	return onFirst.Sub(onSecond).Norm(), midpoint
}
