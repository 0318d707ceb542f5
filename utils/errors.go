package utils

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidDimensions is matched by every error caused by a wrongly shaped matrix or input.
	ErrInvalidDimensions = errors.New("invalid dimensions")
	// ErrEmptyInput is matched by errors caused by an input with no rows.
	ErrEmptyInput = errors.New("empty input")
)

// DimensionsError reports a matrix parameter whose shape is not the required one. A negative
// WantRows or WantCols means that dimension was not constrained.
type DimensionsError struct {
	Param      string
	Rows, Cols int
	WantRows   int
	WantCols   int
}

func (e *DimensionsError) Error() string {
	want := func(n int) string {
		if n < 0 {
			return "N"
		}
		return fmt.Sprint(n)
	}
	return fmt.Sprintf("%s has shape %dx%d but must be %sx%s", e.Param, e.Rows, e.Cols, want(e.WantRows), want(e.WantCols))
}

// Is lets errors.Is match ErrInvalidDimensions.
func (e *DimensionsError) Is(target error) bool {
	return target == ErrInvalidDimensions
}

// EmptyInputError reports a parameter with no rows.
type EmptyInputError struct {
	Param string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s is empty", e.Param)
}

// Is lets errors.Is match both ErrEmptyInput and ErrInvalidDimensions.
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput || target == ErrInvalidDimensions
}

// NewDimensionsError returns a DimensionsError for param.
func NewDimensionsError(param string, rows, cols, wantRows, wantCols int) error {
	return &DimensionsError{Param: param, Rows: rows, Cols: cols, WantRows: wantRows, WantCols: wantCols}
}

// NewEmptyInputError returns an EmptyInputError for param.
func NewEmptyInputError(param string) error {
	return &EmptyInputError{Param: param}
}

// Dims returns the shape of m, treating nil as 0x0. Zero value gonum matrices report 0x0.
func Dims(m mat.Matrix) (int, int) {
	if m == nil {
		return 0, 0
	}
	if d, ok := m.(*mat.Dense); ok && d == nil {
		return 0, 0
	}
	return m.Dims()
}

// IsEmpty reports whether m has no rows.
func IsEmpty(m mat.Matrix) bool {
	r, _ := Dims(m)
	return r == 0
}

// CheckShape returns a DimensionsError unless m is wantRows x wantCols. A negative want leaves
// that dimension unconstrained.
func CheckShape(param string, m mat.Matrix, wantRows, wantCols int) error {
	r, c := Dims(m)
	if (wantRows >= 0 && r != wantRows) || (wantCols >= 0 && c != wantCols) {
		return NewDimensionsError(param, r, c, wantRows, wantCols)
	}
	return nil
}
