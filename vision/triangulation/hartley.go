package triangulation

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/spatialmath"
	"github.com/sksurgery/stereovision/utils"
)

const (
	// hartleyMaxIterations follows Hartley and Sturm's advice of at most ten reweightings.
	hartleyMaxIterations = 10
	hartleyEpsilon       = 1e-11
)

// TriangulateHartley triangulates each correspondence with the iterative linear least squares
// method of Hartley and Sturm, "Triangulation", 1997. Cameras are P1 = [I|0] and P2 = [R|t] in
// normalized image coordinates. Each iteration solves the 4x3 system A*X = B by SVD, then
// reweights the rows by the projective depths until both change by at most 1e-11 or ten
// iterations have run.
func TriangulateHartley(
	ctx context.Context,
	correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix,
	opts ...Option,
) (*mat.Dense, error) {
	s, err := newSetup(correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation, opts)
	if err != nil {
		return nil, err
	}
	p1 := mat.NewDense(3, 4, []float64{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	})
	p2 := s.leftToRight.ProjectionMatrix()

	return s.run(ctx, MethodHartley, func(c Correspondence) r3.Vector {
		u1 := backProject(s.leftInv, c.Left)
		u2 := backProject(s.rightInv, c.Right)
		return iterativeTriangulate(p1, p2, u1, u2)
	})
}

func iterativeTriangulate(p1, p2 *mat.Dense, u1, u2 r3.Vector) r3.Vector {
	w1, w2 := 1.0, 1.0
	x := spatialmath.NaNVector()
	for i := 0; i < hartleyMaxIterations; i++ {
		solved, ok := linearTriangulate(p1, p2, u1, u2, w1, w2)
		if !ok {
			return spatialmath.NaNVector()
		}
		x = solved

		depth1 := projectiveDepth(p1, x)
		depth2 := projectiveDepth(p2, x)
		if math.Abs(w1-depth1) <= hartleyEpsilon && math.Abs(w2-depth2) <= hartleyEpsilon {
			break
		}
		// a point on either camera plane cannot be reweighted
		if depth1 == 0 || depth2 == 0 || !utils.IsFinite(depth1, depth2) {
			break
		}
		w1, w2 = depth1, depth2
	}
	return x
}

// linearTriangulate solves the weighted system for X = (x, y, z, 1).
func linearTriangulate(p1, p2 *mat.Dense, u1, u2 r3.Vector, w1, w2 float64) (r3.Vector, bool) {
	a := mat.NewDense(4, 3, nil)
	b := mat.NewDense(4, 1, nil)
	for row, eq := range []struct {
		p     *mat.Dense
		coord float64
		axis  int
		w     float64
	}{
		{p1, u1.X, 0, w1},
		{p1, u1.Y, 1, w1},
		{p2, u2.X, 0, w2},
		{p2, u2.Y, 1, w2},
	} {
		for j := 0; j < 3; j++ {
			a.Set(row, j, (eq.coord*eq.p.At(2, j)-eq.p.At(eq.axis, j))/eq.w)
		}
		b.Set(row, 0, -(eq.coord*eq.p.At(2, 3)-eq.p.At(eq.axis, 3))/eq.w)
	}
	x, err := transform.SolveLeastSquares(a, b)
	if err != nil {
		return r3.Vector{}, false
	}
	return r3.Vector{X: x.At(0, 0), Y: x.At(1, 0), Z: x.At(2, 0)}, true
}

// projectiveDepth is the third row of p applied to (x, 1).
func projectiveDepth(p *mat.Dense, x r3.Vector) float64 {
	return p.At(2, 0)*x.X + p.At(2, 1)*x.Y + p.At(2, 2)*x.Z + p.At(2, 3)
}
