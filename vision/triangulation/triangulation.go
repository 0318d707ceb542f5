// Package triangulation turns corresponding pixels of a calibrated stereo pair into 3D points in
// the left camera's frame. Two methods are provided: the midpoint of the shortest segment
// between the back-projected rays, and Hartley and Sturm's iterative linear method.
package triangulation

import (
	"context"
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/logging"
	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/spatialmath"
	"github.com/sksurgery/stereovision/utils"
)

// Method selects a triangulation algorithm.
type Method int

const (
	// MethodMidpoint triangulates at the midpoint of the shortest segment between the two rays.
	MethodMidpoint Method = iota
	// MethodHartley triangulates with the iteratively reweighted linear least squares method.
	MethodHartley
)

func (m Method) String() string {
	switch m {
	case MethodMidpoint:
		return "midpoint"
	case MethodHartley:
		return "hartley"
	default:
		return fmt.Sprintf("Method(%d)", int(m))
	}
}

// MethodFromString parses "midpoint" or "hartley".
func MethodFromString(s string) (Method, error) {
	switch s {
	case "midpoint":
		return MethodMidpoint, nil
	case "hartley":
		return MethodHartley, nil
	default:
		return MethodMidpoint, errors.Errorf("unknown triangulation method %q", s)
	}
}

// Correspondence is a pixel in the left image and the pixel in the right image that sees the
// same scene point. Pixels must already be undistorted.
type Correspondence struct {
	Left  r2.Point
	Right r2.Point
}

// CorrespondencesToDense returns the Nx4 table (xl, yl, xr, yr). No correspondences gives an
// empty matrix.
func CorrespondencesToDense(cs []Correspondence) *mat.Dense {
	if len(cs) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(cs), 4, nil)
	for i, c := range cs {
		out.SetRow(i, []float64{c.Left.X, c.Left.Y, c.Right.X, c.Right.Y})
	}
	return out
}

// CorrespondencesFromDense reads an Nx4 table.
func CorrespondencesFromDense(m mat.Matrix) ([]Correspondence, error) {
	if utils.IsEmpty(m) {
		return nil, nil
	}
	if err := utils.CheckShape("correspondences", m, -1, 4); err != nil {
		return nil, err
	}
	rows, _ := m.Dims()
	cs := make([]Correspondence, rows)
	for i := range cs {
		cs[i] = correspondenceAt(m, i)
	}
	return cs, nil
}

func correspondenceAt(m mat.Matrix, i int) Correspondence {
	return Correspondence{
		Left:  r2.Point{X: m.At(i, 0), Y: m.At(i, 1)},
		Right: r2.Point{X: m.At(i, 2), Y: m.At(i, 3)},
	}
}

// Option configures a triangulation call.
type Option func(*options)

type options struct {
	logger logging.Logger
}

// WithLogger sets the logger that reports degenerate rows.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// Triangulate runs the chosen method.
func Triangulate(
	ctx context.Context,
	method Method,
	correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix,
	opts ...Option,
) (*mat.Dense, error) {
	switch method {
	case MethodMidpoint:
		return TriangulateMidpoint(ctx, correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation, opts...)
	case MethodHartley:
		return TriangulateHartley(ctx, correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation, opts...)
	default:
		return nil, errors.Errorf("unknown triangulation method %v", method)
	}
}

// setup is the validated, per-call state shared by both methods.
type setup struct {
	points      mat.Matrix
	numPoints   int
	leftInv     *mat.Dense
	rightInv    *mat.Dense
	leftToRight *transform.Extrinsics
	logger      logging.Logger
}

func newSetup(
	correspondences, leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation mat.Matrix,
	opts []Option,
) (*setup, error) {
	if utils.IsEmpty(correspondences) {
		return nil, utils.NewEmptyInputError("correspondences")
	}
	if err := utils.CheckShape("correspondences", correspondences, -1, 4); err != nil {
		return nil, err
	}
	if err := transform.ValidateStereoParameters(leftIntrinsics, rightIntrinsics, leftToRightRotation, leftToRightTranslation); err != nil {
		return nil, err
	}
	leftInv, err := transform.InvertCameraMatrix(leftIntrinsics)
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}
	rightInv, err := transform.InvertCameraMatrix(rightIntrinsics)
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}
	l2r, err := transform.NewExtrinsics(leftToRightRotation, leftToRightTranslation)
	if err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	rows, _ := correspondences.Dims()
	return &setup{
		points:      correspondences,
		numPoints:   rows,
		leftInv:     leftInv,
		rightInv:    rightInv,
		leftToRight: l2r,
		logger:      logging.OrBlank(o.logger),
	}, nil
}

// backProject applies an inverse camera matrix to the homogeneous pixel (x, y, 1).
func backProject(kInv *mat.Dense, pt r2.Point) r3.Vector {
	return r3.Vector{
		X: kInv.At(0, 0)*pt.X + kInv.At(0, 1)*pt.Y + kInv.At(0, 2),
		Y: kInv.At(1, 0)*pt.X + kInv.At(1, 1)*pt.Y + kInv.At(1, 2),
		Z: kInv.At(2, 0)*pt.X + kInv.At(2, 1)*pt.Y + kInv.At(2, 2),
	}
}

// run computes every row in parallel and logs how many came out undefined.
func (s *setup) run(ctx context.Context, method Method, point func(c Correspondence) r3.Vector) (*mat.Dense, error) {
	out := mat.NewDense(s.numPoints, 3, nil)
	err := utils.ParallelForEachIndex(ctx, s.numPoints, func(i int) {
		p := point(correspondenceAt(s.points, i))
		out.SetRow(i, []float64{p.X, p.Y, p.Z})
	})
	if err != nil {
		return nil, err
	}
	undefined := 0
	for i := 0; i < s.numPoints; i++ {
		if !utils.IsFinite(out.RawRowView(i)...) {
			undefined++
		}
	}
	if undefined > 0 {
		s.logger.Debugw("triangulation produced undefined points", "method", method.String(), "undefined", undefined, "total", s.numPoints)
	}
	return out, nil
}

// NumFinite counts the rows of an Nx3 result whose coordinates are all finite.
func NumFinite(points mat.Matrix) int {
	if utils.IsEmpty(points) {
		return 0
	}
	rows, _ := points.Dims()
	n := 0
	for i := 0; i < rows; i++ {
		if p := spatialmath.RowVector(points, i); utils.IsFinite(p.X, p.Y, p.Z) {
			n++
		}
	}
	return n
}
