package utils

import (
	"testing"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"go.viam.com/test"
)

func TestCheckShape(t *testing.T) {
	test.That(t, CheckShape("left intrinsics", mat.NewDense(3, 3, nil), 3, 3), test.ShouldBeNil)
	test.That(t, CheckShape("points", mat.NewDense(9, 2, nil), -1, 2), test.ShouldBeNil)

	err := CheckShape("left intrinsics", mat.NewDense(2, 3, nil), 3, 3)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrInvalidDimensions), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrEmptyInput), test.ShouldBeFalse)
	test.That(t, err.Error(), test.ShouldEqual, "left intrinsics has shape 2x3 but must be 3x3")

	var dimErr *DimensionsError
	test.That(t, errors.As(errors.Wrap(err, "triangulating"), &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Param, test.ShouldEqual, "left intrinsics")
	test.That(t, dimErr.Rows, test.ShouldEqual, 2)

	err = CheckShape("points", mat.NewDense(4, 3, nil), -1, 2)
	test.That(t, err.Error(), test.ShouldEqual, "points has shape 4x3 but must be Nx2")

	err = CheckShape("rotation", nil, 3, 3)
	test.That(t, err.Error(), test.ShouldEqual, "rotation has shape 0x0 but must be 3x3")
}

func TestEmptyInputError(t *testing.T) {
	err := NewEmptyInputError("correspondences")
	test.That(t, errors.Is(err, ErrEmptyInput), test.ShouldBeTrue)
	test.That(t, errors.Is(err, ErrInvalidDimensions), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldEqual, "correspondences is empty")

	test.That(t, IsEmpty(&mat.Dense{}), test.ShouldBeTrue)
	test.That(t, IsEmpty(nil), test.ShouldBeTrue)
	test.That(t, IsEmpty(mat.NewDense(1, 4, nil)), test.ShouldBeFalse)
}
