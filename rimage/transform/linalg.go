package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// normalizePoints normalizes points as described in Multiple View Geometry, Alg 4.2: centroid at
// the origin and mean distance sqrt(2). It returns the moved points and the 3x3 transform.
func normalizePoints(pts []r2.Point) ([]r2.Point, *mat.Dense) {
	nPoints := len(pts)
	mu := r2.Point{X: 0, Y: 0}
	for _, pt := range pts {
		mu = mu.Add(pt)
	}
	mu = mu.Mul(1. / float64(nPoints))
	d := 0.0
	for _, pt := range pts {
		d += pt.Sub(mu).Norm() / float64(nPoints)
	}
	scale := 1.0
	if d > 0 {
		scale = math.Sqrt(2) / d
	}
	transformData := []float64{
		scale, 0, -scale * mu.X,
		0, scale, -scale * mu.Y,
		0, 0, 1,
	}
	T := mat.NewDense(3, 3, transformData)
	pointsTransformed := make([]r2.Point, nPoints)
	for i := range pointsTransformed {
		pointsTransformed[i] = pts[i].Sub(mu).Mul(scale)
	}
	return pointsTransformed, T
}

// eye create an identity matrix of size nxn.
func eye(n int) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// nullVector returns the right singular vector of m with the smallest singular value, the least
// squares solution of m*x = 0 with |x| = 1.
func nullVector(m mat.Matrix) ([]float64, error) {
	var svd mat.SVD
	if ok := svd.Factorize(m, mat.SVDFull); !ok {
		return nil, errors.New("failed to factorize matrix")
	}
	var v mat.Dense
	svd.VTo(&v)
	_, cols := v.Dims()
	return mat.Col(nil, cols-1, &v), nil
}

// SolveLeastSquares solves a*x = b in the least squares sense using an SVD, which also handles
// rank deficient systems by taking the minimum norm solution.
func SolveLeastSquares(a, b mat.Matrix) (*mat.Dense, error) {
	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, errors.New("failed to factorize matrix")
	}
	rank := svd.Rank(1e-15)
	if rank == 0 {
		return nil, errors.New("matrix has rank 0")
	}
	var x mat.Dense
	svd.SolveTo(&x, b, rank)
	return &x, nil
}

// InvertCameraMatrix returns the inverse of a 3x3 camera matrix.
func InvertCameraMatrix(k mat.Matrix) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(k); err != nil {
		return nil, errors.Wrap(err, "camera matrix is not invertible")
	}
	return &inv, nil
}
