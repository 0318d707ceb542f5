// Package masking filters image points by a binary mask, keeping the points that land on
// non-zero mask pixels.
package masking

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/utils"
)

// MaskPoints keeps the rows of the Nx2 (x, y) table whose pixel is set in mask. A point is
// tested at column int(x), row int(y); points with a negative coordinate or outside the mask
// are dropped. Row order is preserved. No points, or no survivors, give an empty matrix.
func MaskPoints(points mat.Matrix, mask *image.Gray) (*mat.Dense, error) {
	if utils.IsEmpty(points) {
		return &mat.Dense{}, nil
	}
	if err := utils.CheckShape("points", points, -1, 2); err != nil {
		return nil, err
	}
	if mask == nil {
		return nil, errors.New("mask is nil")
	}
	return keepRows(points, func(row []float64) bool {
		return inMask(mask, row[0], row[1])
	}), nil
}

// MaskStereoPoints keeps the rows of the Nx4 (xl, yl, xr, yr) table whose left pixel is set in
// leftMask and whose right pixel is set in rightMask.
func MaskStereoPoints(points mat.Matrix, leftMask, rightMask *image.Gray) (*mat.Dense, error) {
	if utils.IsEmpty(points) {
		return &mat.Dense{}, nil
	}
	if err := utils.CheckShape("points", points, -1, 4); err != nil {
		return nil, err
	}
	if leftMask == nil || rightMask == nil {
		return nil, errors.New("stereo masks must not be nil")
	}
	return keepRows(points, func(row []float64) bool {
		return inMask(leftMask, row[0], row[1]) && inMask(rightMask, row[2], row[3])
	}), nil
}

func keepRows(points mat.Matrix, keep func(row []float64) bool) *mat.Dense {
	rows, cols := points.Dims()
	var kept []float64
	n := 0
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, points)
		if keep(row) {
			kept = append(kept, row...)
			n++
		}
	}
	if n == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(n, cols, kept)
}

func inMask(mask *image.Gray, x, y float64) bool {
	b := mask.Bounds()
	// NaN fails both comparisons
	if !(x >= 0 && y >= 0) || x >= float64(b.Dx()) || y >= float64(b.Dy()) {
		return false
	}
	col, row := int(math.Trunc(x)), int(math.Trunc(y))
	return mask.GrayAt(b.Min.X+col, b.Min.Y+row).Y > 0
}
