package triangulation

import (
	"context"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/spatialmath"
)

// TriangulateMidpoint back-projects each correspondence into a ray from each camera and returns,
// per row, the midpoint of the shortest segment joining the two rays, in the left camera frame.
// correspondences is Nx4 (xl, yl, xr, yr); the rotation and translation map left camera
// coordinates into the right camera. Rows whose rays are parallel are NaN.
func TriangulateMidpoint(
	ctx context.Context,
	correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix,
	opts ...Option,
) (*mat.Dense, error) {
	s, err := newSetup(correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation, opts)
	if err != nil {
		return nil, err
	}
	rightToLeft, err := s.leftToRight.Inverse()
	if err != nil {
		return nil, err
	}
	// right camera center, in the left frame
	rightOrigin := rightToLeft.TranslationVector()

	return s.run(ctx, MethodMidpoint, func(c Correspondence) r3.Vector {
		leftRay := backProject(s.leftInv, c.Left).Normalize()
		rightRay := rightToLeft.Rotate(backProject(s.rightInv, c.Right).Normalize())
		_, midpoint := spatialmath.DistanceBetweenLines(r3.Vector{}, leftRay, rightOrigin, rightRay)
		return midpoint
	})
}
