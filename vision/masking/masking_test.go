package masking

import (
	"image"
	"math"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/utils"
)

// twoByTwo has a single set pixel at row 1, column 0.
func twoByTwo() *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, 2, 2))
	mask.Pix[mask.PixOffset(0, 1)] = 1
	return mask
}

func TestMaskPoints(t *testing.T) {
	points := mat.NewDense(3, 2, []float64{
		0, 1,
		1, 1,
		2, 2,
	})
	out, err := MaskPoints(points, twoByTwo())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(out, mat.NewDense(1, 2, []float64{0, 1})), test.ShouldBeTrue)

	t.Run("truncation", func(t *testing.T) {
		out, err := MaskPoints(mat.NewDense(2, 2, []float64{0.9, 1.99, 1.0, 1.5}), twoByTwo())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mat.Equal(out, mat.NewDense(1, 2, []float64{0.9, 1.99})), test.ShouldBeTrue)
	})

	t.Run("outside and undefined", func(t *testing.T) {
		full := image.NewGray(image.Rect(0, 0, 4, 4))
		for i := range full.Pix {
			full.Pix[i] = 255
		}
		nan := math.NaN()
		out, err := MaskPoints(mat.NewDense(6, 2, []float64{
			-0.5, 1,
			1, -1,
			4, 0,
			0, 4,
			nan, 1,
			3.5, 3.5,
		}), full)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mat.Equal(out, mat.NewDense(1, 2, []float64{3.5, 3.5})), test.ShouldBeTrue)
	})

	t.Run("order preserved", func(t *testing.T) {
		mask := image.NewGray(image.Rect(0, 0, 3, 1))
		mask.Pix[0], mask.Pix[2] = 10, 200
		out, err := MaskPoints(mat.NewDense(3, 2, []float64{2, 0, 1, 0, 0, 0}), mask)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mat.Equal(out, mat.NewDense(2, 2, []float64{2, 0, 0, 0})), test.ShouldBeTrue)
	})

	t.Run("nothing survives", func(t *testing.T) {
		out, err := MaskPoints(mat.NewDense(1, 2, []float64{1, 1}), twoByTwo())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, utils.IsEmpty(out), test.ShouldBeTrue)
	})

	t.Run("empty", func(t *testing.T) {
		out, err := MaskPoints(&mat.Dense{}, twoByTwo())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, utils.IsEmpty(out), test.ShouldBeTrue)
	})

	t.Run("wrong shape", func(t *testing.T) {
		_, err := MaskPoints(mat.NewDense(1, 3, nil), twoByTwo())
		test.That(t, errors.Is(err, utils.ErrInvalidDimensions), test.ShouldBeTrue)
		_, err = MaskPoints(points, nil)
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestMaskStereoPoints(t *testing.T) {
	points := mat.NewDense(3, 4, []float64{
		0, 1, 0, 1,
		1, 1, 1, 1,
		2, 2, 2, 2,
	})
	out, err := MaskStereoPoints(points, twoByTwo(), twoByTwo())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(out, mat.NewDense(1, 4, []float64{0, 1, 0, 1})), test.ShouldBeTrue)

	t.Run("right mask uses right coordinates", func(t *testing.T) {
		right := image.NewGray(image.Rect(0, 0, 2, 2))
		right.Pix[right.PixOffset(1, 0)] = 255
		out, err := MaskStereoPoints(mat.NewDense(2, 4, []float64{
			0, 1, 1, 0,
			0, 1, 0, 1,
		}), twoByTwo(), right)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, mat.Equal(out, mat.NewDense(1, 4, []float64{0, 1, 1, 0})), test.ShouldBeTrue)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := MaskStereoPoints(mat.NewDense(3, 2, nil), twoByTwo(), twoByTwo())
		test.That(t, errors.Is(err, utils.ErrInvalidDimensions), test.ShouldBeTrue)
		_, err = MaskStereoPoints(points, twoByTwo(), nil)
		test.That(t, err, test.ShouldNotBeNil)

		out, err := MaskStereoPoints(&mat.Dense{}, twoByTwo(), twoByTwo())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, utils.IsEmpty(out), test.ShouldBeTrue)
	})
}
