package transform

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/utils"
)

// ValidateStereoParameters checks the shapes of a stereo calibration: both camera matrices 3x3,
// the left-to-right rotation 3x3 and translation 3x1. The first violation is returned as a
// *utils.DimensionsError naming the parameter and its actual shape.
func ValidateStereoParameters(leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix) error {
	for _, p := range []struct {
		name       string
		m          mat.Matrix
		rows, cols int
	}{
		{"left camera matrix", leftIntrinsics, 3, 3},
		{"right camera matrix", rightIntrinsics, 3, 3},
		{"left to right rotation", leftToRightRotation, 3, 3},
		{"left to right translation", leftToRightTranslation, 3, 1},
	} {
		if err := utils.CheckShape(p.name, p.m, p.rows, p.cols); err != nil {
			return err
		}
	}
	return nil
}

// StereoRig is a validated stereo calibration.
type StereoRig struct {
	Left        *PinholeCameraIntrinsics
	Right       *PinholeCameraIntrinsics
	LeftToRight *Extrinsics
}

// NewStereoRig validates the parameters and builds the rig.
func NewStereoRig(leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix) (*StereoRig, error) {
	if err := ValidateStereoParameters(leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation); err != nil {
		return nil, err
	}
	left, err := NewPinholeCameraIntrinsicsFromMatrix(leftIntrinsics)
	if err != nil {
		return nil, err
	}
	right, err := NewPinholeCameraIntrinsicsFromMatrix(rightIntrinsics)
	if err != nil {
		return nil, err
	}
	l2r, err := NewExtrinsics(leftToRightRotation, leftToRightTranslation)
	if err != nil {
		return nil, err
	}
	return &StereoRig{Left: left, Right: right, LeftToRight: l2r}, nil
}
