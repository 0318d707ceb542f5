package transform

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/utils"
)

// Extrinsics is a rigid transform from one camera's frame into another's: p' = R*p + t. For a
// stereo rig it maps points from the left camera frame into the right camera frame.
type Extrinsics struct {
	Rotation    *mat.Dense
	Translation *mat.Dense
}

// NewExtrinsics copies a 3x3 rotation and a 3x1 translation. The rotation is not checked for
// orthonormality.
func NewExtrinsics(rotation, translation mat.Matrix) (*Extrinsics, error) {
	if err := utils.CheckShape("rotation", rotation, 3, 3); err != nil {
		return nil, err
	}
	if err := utils.CheckShape("translation", translation, 3, 1); err != nil {
		return nil, err
	}
	return &Extrinsics{Rotation: mat.DenseCopyOf(rotation), Translation: mat.DenseCopyOf(translation)}, nil
}

// NewExtrinsicsFromMatrix splits a 4x4 homogeneous transform.
func NewExtrinsicsFromMatrix(m mat.Matrix) (*Extrinsics, error) {
	if err := utils.CheckShape("rigid transform", m, 4, 4); err != nil {
		return nil, err
	}
	dense := mat.DenseCopyOf(m)
	return NewExtrinsics(dense.Slice(0, 3, 0, 3), dense.Slice(0, 3, 3, 4))
}

// Matrix returns the 4x4 homogeneous form [R t; 0 0 0 1].
func (e *Extrinsics) Matrix() *mat.Dense {
	m := eye(4)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m.Set(i, j, e.Rotation.At(i, j))
		}
		m.Set(i, 3, e.Translation.At(i, 0))
	}
	return m
}

// Inverse returns the transform in the opposite direction, computed as a general 4x4 inverse.
func (e *Extrinsics) Inverse() (*Extrinsics, error) {
	var inv mat.Dense
	if err := inv.Inverse(e.Matrix()); err != nil {
		return nil, errors.Wrap(err, "rigid transform is not invertible")
	}
	return NewExtrinsicsFromMatrix(&inv)
}

// TranslationVector returns t.
func (e *Extrinsics) TranslationVector() r3.Vector {
	return r3.Vector{X: e.Translation.At(0, 0), Y: e.Translation.At(1, 0), Z: e.Translation.At(2, 0)}
}

// Rotate returns R*v.
func (e *Extrinsics) Rotate(v r3.Vector) r3.Vector {
	r := e.Rotation
	return r3.Vector{
		X: r.At(0, 0)*v.X + r.At(0, 1)*v.Y + r.At(0, 2)*v.Z,
		Y: r.At(1, 0)*v.X + r.At(1, 1)*v.Y + r.At(1, 2)*v.Z,
		Z: r.At(2, 0)*v.X + r.At(2, 1)*v.Y + r.At(2, 2)*v.Z,
	}
}

// TransformPoint returns R*p + t.
func (e *Extrinsics) TransformPoint(p r3.Vector) r3.Vector {
	return e.Rotate(p).Add(e.TranslationVector())
}

// ProjectionMatrix returns the 3x4 matrix [R | t].
func (e *Extrinsics) ProjectionMatrix() *mat.Dense {
	var p mat.Dense
	p.Augment(e.Rotation, e.Translation)
	return &p
}
