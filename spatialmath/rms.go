package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/utils"
)

// RMSBetweenCorrespondingPoints returns the root mean square of the distances between
// corresponding rows of two Nx3 point matrices.
func RMSBetweenCorrespondingPoints(a, b mat.Matrix) (float64, error) {
	rowsA, _ := utils.Dims(a)
	if err := utils.CheckShape("first point set", a, -1, 3); err != nil {
		return 0, err
	}
	if err := utils.CheckShape("second point set", b, rowsA, 3); err != nil {
		return 0, err
	}
	if rowsA == 0 {
		return 0, utils.NewEmptyInputError("first point set")
	}

	var sum float64
	for r := 0; r < rowsA; r++ {
		for c := 0; c < 3; c++ {
			sum += utils.Square(a.At(r, c) - b.At(r, c))
		}
	}
	return math.Sqrt(sum / float64(rowsA)), nil
}

// VectorsToDense stacks vectors as the rows of an Nx3 matrix. No vectors gives an empty matrix.
func VectorsToDense(vs []r3.Vector) *mat.Dense {
	if len(vs) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(vs), 3, nil)
	for i, v := range vs {
		out.SetRow(i, []float64{v.X, v.Y, v.Z})
	}
	return out
}

// RowVector returns the first three columns of row i of m.
func RowVector(m mat.Matrix, i int) r3.Vector {
	return r3.Vector{X: m.At(i, 0), Y: m.At(i, 1), Z: m.At(i, 2)}
}
