// Package stereo reconstructs 3D points from a calibrated stereo image pair: a dense matcher
// pairs up pixels between the images and the pairs are triangulated in the left camera's
// frame.
package stereo

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/logging"
	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/vision/triangulation"
)

// A DenseMatcher finds corresponding pixels between two images of the same size.
type DenseMatcher interface {
	// Match returns the matched pixel pairs, possibly none.
	Match(ctx context.Context, left, right image.Image) ([]triangulation.Correspondence, error)
	// Disparity returns a map the size of the images.
	Disparity(ctx context.Context, left, right image.Image) (*DisparityMap, error)
}

// ReconstructionColumns is the width of a reconstruction table: X, Y, Z, left x, left y,
// right x, right y.
const ReconstructionColumns = 7

// Option configures a reconstruction.
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger sets the logger passed down to triangulation.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// ReconstructPoints matches left against right and triangulates every match. The images must
// share a size and the calibration must be well shaped: 3x3 camera matrices, a 3x3
// left-to-right rotation and a 3x1 translation. The result has one row per match laid out as
// [X, Y, Z, left x, left y, right x, right y]; no matches give an empty matrix.
func ReconstructPoints(
	ctx context.Context,
	matcher DenseMatcher,
	left, right image.Image,
	leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix,
	method triangulation.Method,
	opts ...Option,
) (*mat.Dense, error) {
	if err := rimage.CheckSameImgSize(left, right); err != nil {
		return nil, err
	}
	if err := transform.ValidateStereoParameters(leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation); err != nil {
		return nil, err
	}
	if matcher == nil {
		return nil, errors.New("no dense matcher")
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.OrBlank(o.logger)

	matches, err := matcher.Match(ctx, left, right)
	if err != nil {
		return nil, errors.Wrap(err, "dense matching failed")
	}
	if len(matches) == 0 {
		logger.Debug("no stereo matches")
		return &mat.Dense{}, nil
	}
	correspondences := triangulation.CorrespondencesToDense(matches)
	points, err := triangulation.Triangulate(
		ctx, method, correspondences,
		leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation,
		triangulation.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	out := mat.NewDense(len(matches), ReconstructionColumns, nil)
	out.Slice(0, len(matches), 0, 3).(*mat.Dense).Copy(points)
	out.Slice(0, len(matches), 3, ReconstructionColumns).(*mat.Dense).Copy(correspondences)
	logger.Debugw("stereo reconstruction done", "matches", len(matches), "method", method.String())
	return out, nil
}

// MatchPoints runs the matcher and returns its matches as an Nx4 table (left x, left y,
// right x, right y). No matches give an empty matrix.
func MatchPoints(ctx context.Context, matcher DenseMatcher, left, right image.Image) (*mat.Dense, error) {
	if err := rimage.CheckSameImgSize(left, right); err != nil {
		return nil, err
	}
	if matcher == nil {
		return nil, errors.New("no dense matcher")
	}
	matches, err := matcher.Match(ctx, left, right)
	if err != nil {
		return nil, errors.Wrap(err, "dense matching failed")
	}
	return triangulation.CorrespondencesToDense(matches), nil
}

// ComputeDisparity runs the matcher's disparity computation and checks the map matches the
// images' size.
func ComputeDisparity(ctx context.Context, matcher DenseMatcher, left, right image.Image) (*DisparityMap, error) {
	if err := rimage.CheckSameImgSize(left, right); err != nil {
		return nil, err
	}
	if matcher == nil {
		return nil, errors.New("no dense matcher")
	}
	dm, err := matcher.Disparity(ctx, left, right)
	if err != nil {
		return nil, errors.Wrap(err, "disparity computation failed")
	}
	if dm == nil || dm.Width() != left.Bounds().Dx() || dm.Height() != left.Bounds().Dy() {
		return nil, errors.Wrap(rimage.ErrImageSizeMismatch, "disparity map does not match the images")
	}
	return dm, nil
}
