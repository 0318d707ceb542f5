package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"go.viam.com/test"

	"github.com/sksurgery/stereovision/utils"
)

func TestVectorPrimitives(t *testing.T) {
	a := r3.Vector{X: 1, Y: 2, Z: 3}
	b := r3.Vector{X: 4, Y: 5, Z: 6}

	test.That(t, Norm(a), test.ShouldAlmostEqual, 3.7416573868, 1e-7)
	test.That(t, CrossProduct(a, b), test.ShouldResemble, r3.Vector{X: -3, Y: 6, Z: -3})
	test.That(t, DotProduct(a, b), test.ShouldEqual, 32.0)
}

func TestDistanceToLine(t *testing.T) {
	line := Line{P1: r3.Vector{X: 0, Y: 0, Z: 0}, P2: r3.Vector{X: 1, Y: 0, Z: 0}}
	test.That(t, DistanceToLine(line, r3.Vector{X: 5, Y: 3, Z: 4}), test.ShouldAlmostEqual, 5.0, 1e-12)
	test.That(t, DistanceToLine(line, r3.Vector{X: -2, Y: 0, Z: 0}), test.ShouldAlmostEqual, 0.0, 1e-12)

	degenerate := Line{P1: r3.Vector{X: 1, Y: 1, Z: 1}, P2: r3.Vector{X: 1, Y: 1, Z: 1}}
	test.That(t, math.IsNaN(DistanceToLine(degenerate, r3.Vector{})), test.ShouldBeTrue)
}

func TestDistanceBetweenLines(t *testing.T) {
	t.Run("skew", func(t *testing.T) {
		// x axis and a line parallel to y through z=2
		dist, mid := DistanceBetweenLines(r3.Vector{}, r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 3, Y: -1, Z: 2}, r3.Vector{X: 0, Y: 1, Z: 0})
		test.That(t, dist, test.ShouldAlmostEqual, 2.0, 1e-12)
		test.That(t, mid.X, test.ShouldAlmostEqual, 3.0, 1e-12)
		test.That(t, mid.Y, test.ShouldAlmostEqual, 0.0, 1e-12)
		test.That(t, mid.Z, test.ShouldAlmostEqual, 1.0, 1e-12)
	})

	t.Run("intersecting", func(t *testing.T) {
		dist, mid := DistanceBetweenLines(r3.Vector{}, r3.Vector{X: 1, Y: 1, Z: 0}, r3.Vector{X: 2, Y: 0, Z: 0}, r3.Vector{X: -1, Y: 1, Z: 0})
		test.That(t, dist, test.ShouldAlmostEqual, 0.0, 1e-12)
		test.That(t, mid.X, test.ShouldAlmostEqual, 1.0, 1e-12)
		test.That(t, mid.Y, test.ShouldAlmostEqual, 1.0, 1e-12)
	})

	t.Run("parallel", func(t *testing.T) {
		dist, mid := DistanceBetweenLines(r3.Vector{}, r3.Vector{X: 0, Y: 0, Z: 1}, r3.Vector{X: 0, Y: 4, Z: 0}, r3.Vector{X: 0, Y: 0, Z: 1})
		test.That(t, dist, test.ShouldAlmostEqual, 4.0, 1e-12)
		test.That(t, math.IsNaN(mid.X), test.ShouldBeTrue)
		test.That(t, math.IsNaN(mid.Y), test.ShouldBeTrue)
		test.That(t, math.IsNaN(mid.Z), test.ShouldBeTrue)
	})
}

func TestRMSBetweenCorrespondingPoints(t *testing.T) {
	a := mat.NewDense(2, 3, []float64{0, 0, 0, 1, 1, 1})
	b := mat.NewDense(2, 3, []float64{3, 4, 0, 1, 1, 1})
	rms, err := RMSBetweenCorrespondingPoints(a, b)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rms, test.ShouldAlmostEqual, math.Sqrt(25.0/2), 1e-12)

	rms, err = RMSBetweenCorrespondingPoints(a, a)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rms, test.ShouldEqual, 0.0)

	_, err = RMSBetweenCorrespondingPoints(a, mat.NewDense(3, 3, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidDimensions), test.ShouldBeTrue)

	_, err = RMSBetweenCorrespondingPoints(mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	test.That(t, errors.Is(err, utils.ErrInvalidDimensions), test.ShouldBeTrue)
}

func TestVectorsToDense(t *testing.T) {
	test.That(t, utils.IsEmpty(VectorsToDense(nil)), test.ShouldBeTrue)
	m := VectorsToDense([]r3.Vector{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}})
	test.That(t, RowVector(m, 1), test.ShouldResemble, r3.Vector{X: 4, Y: 5, Z: 6})
}
