package stereo

import (
	"context"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"go.viam.com/test"

	"github.com/sksurgery/stereovision/logging"
	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/spatialmath"
	"github.com/sksurgery/stereovision/utils"
	"github.com/sksurgery/stereovision/vision/triangulation"
)

func cameraMatrix(fx, fy, cx, cy float64) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		fx, 0, cx,
		0, fy, cy,
		0, 0, 1,
	})
}

// projectingMatcher matches by projecting known points through both cameras.
type projectingMatcher struct {
	matches   []triangulation.Correspondence
	disparity *DisparityMap
	err       error
	calls     int
}

func (m *projectingMatcher) Match(ctx context.Context, left, right image.Image) ([]triangulation.Correspondence, error) {
	m.calls++
	return m.matches, m.err
}

func (m *projectingMatcher) Disparity(ctx context.Context, left, right image.Image) (*DisparityMap, error) {
	m.calls++
	return m.disparity, m.err
}

func newProjectingMatcher(t *testing.T, truth *mat.Dense, k *mat.Dense, l2r *transform.Extrinsics) *projectingMatcher {
	t.Helper()
	left, err := triangulation.ReprojectPoints(truth, k, nil)
	test.That(t, err, test.ShouldBeNil)
	right, err := triangulation.ReprojectPoints(truth, k, l2r)
	test.That(t, err, test.ShouldBeNil)
	rows, _ := truth.Dims()
	matches := make([]triangulation.Correspondence, rows)
	for i := range matches {
		matches[i] = triangulation.Correspondence{
			Left:  r2.Point{X: left.At(i, 0), Y: left.At(i, 1)},
			Right: r2.Point{X: right.At(i, 0), Y: right.At(i, 1)},
		}
	}
	return &projectingMatcher{matches: matches}
}

func syntheticRig(t *testing.T) (*mat.Dense, *transform.Extrinsics) {
	t.Helper()
	angle := 0.05
	rotation := mat.NewDense(3, 3, []float64{
		math.Cos(angle), 0, math.Sin(angle),
		0, 1, 0,
		-math.Sin(angle), 0, math.Cos(angle),
	})
	l2r, err := transform.NewExtrinsics(rotation, mat.NewDense(3, 1, []float64{-5, 0.1, 0.2}))
	test.That(t, err, test.ShouldBeNil)
	return cameraMatrix(1000, 1010, 640, 360), l2r
}

func TestReconstructPoints(t *testing.T) {
	k, l2r := syntheticRig(t)
	var truth []r3.Vector
	for x := -20.0; x <= 20; x += 10 {
		for y := -10.0; y <= 10; y += 10 {
			truth = append(truth, r3.Vector{X: x, Y: y, Z: 80 - 0.5*x})
		}
	}
	truthDense := spatialmath.VectorsToDense(truth)
	matcher := newProjectingMatcher(t, truthDense, k, l2r)
	left := image.NewGray(image.Rect(0, 0, 1280, 720))
	right := image.NewGray(image.Rect(0, 0, 1280, 720))

	for _, method := range []triangulation.Method{triangulation.MethodMidpoint, triangulation.MethodHartley} {
		t.Run(method.String(), func(t *testing.T) {
			out, err := ReconstructPoints(context.Background(), matcher, left, right, k, k, l2r.Rotation, l2r.Translation, method,
				WithLogger(logging.NewTestLogger(t)))
			test.That(t, err, test.ShouldBeNil)
			rows, cols := out.Dims()
			test.That(t, rows, test.ShouldEqual, len(truth))
			test.That(t, cols, test.ShouldEqual, ReconstructionColumns)

			rms, err := spatialmath.RMSBetweenCorrespondingPoints(truthDense, out.Slice(0, rows, 0, 3))
			test.That(t, err, test.ShouldBeNil)
			test.That(t, rms, test.ShouldBeLessThan, 1e-6)
			for i, m := range matcher.matches {
				test.That(t, out.RawRowView(i)[3:], test.ShouldResemble, []float64{m.Left.X, m.Left.Y, m.Right.X, m.Right.Y})
			}
		})
	}
}

func TestReconstructPointsValidation(t *testing.T) {
	k, l2r := syntheticRig(t)
	left := image.NewGray(image.Rect(0, 0, 64, 48))
	matcher := &projectingMatcher{}

	t.Run("size mismatch", func(t *testing.T) {
		right := image.NewGray(image.Rect(0, 0, 64, 47))
		_, err := ReconstructPoints(context.Background(), matcher, left, right, k, k, l2r.Rotation, l2r.Translation,
			triangulation.MethodMidpoint)
		test.That(t, errors.Is(err, rimage.ErrImageSizeMismatch), test.ShouldBeTrue)
		test.That(t, matcher.calls, test.ShouldEqual, 0)
	})

	t.Run("size checked before calibration", func(t *testing.T) {
		right := image.NewGray(image.Rect(0, 0, 65, 48))
		_, err := ReconstructPoints(context.Background(), matcher, left, right, k, mat.NewDense(2, 3, nil), l2r.Rotation,
			l2r.Translation, triangulation.MethodMidpoint)
		test.That(t, errors.Is(err, rimage.ErrImageSizeMismatch), test.ShouldBeTrue)
	})

	t.Run("bad calibration", func(t *testing.T) {
		right := image.NewGray(image.Rect(0, 0, 64, 48))
		_, err := ReconstructPoints(context.Background(), matcher, left, right, k, k, l2r.Rotation,
			mat.NewDense(1, 3, nil), triangulation.MethodHartley)
		test.That(t, errors.Is(err, utils.ErrInvalidDimensions), test.ShouldBeTrue)
		var dimErr *utils.DimensionsError
		test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
		test.That(t, dimErr.Param, test.ShouldEqual, "left to right translation")
		test.That(t, matcher.calls, test.ShouldEqual, 0)
	})

	t.Run("matcher error", func(t *testing.T) {
		right := image.NewGray(image.Rect(0, 0, 64, 48))
		failing := &projectingMatcher{err: errors.New("no texture")}
		_, err := ReconstructPoints(context.Background(), failing, left, right, k, k, l2r.Rotation, l2r.Translation,
			triangulation.MethodMidpoint)
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no texture")
	})

	t.Run("no matches", func(t *testing.T) {
		right := image.NewGray(image.Rect(0, 0, 64, 48))
		out, err := ReconstructPoints(context.Background(), matcher, left, right, k, k, l2r.Rotation, l2r.Translation,
			triangulation.MethodMidpoint)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, out.IsEmpty(), test.ShouldBeTrue)
	})
}

func TestMatchPoints(t *testing.T) {
	matcher := &projectingMatcher{matches: []triangulation.Correspondence{
		{Left: r2.Point{X: 10, Y: 20}, Right: r2.Point{X: 4, Y: 20}},
		{Left: r2.Point{X: 30, Y: 5}, Right: r2.Point{X: 27.5, Y: 5}},
	}}
	left := image.NewGray(image.Rect(0, 0, 40, 30))
	right := image.NewGray(image.Rect(0, 0, 40, 30))
	out, err := MatchPoints(context.Background(), matcher, left, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.RawMatrix().Data, test.ShouldResemble, []float64{10, 20, 4, 20, 30, 5, 27.5, 5})

	_, err = MatchPoints(context.Background(), matcher, left, image.NewGray(image.Rect(0, 0, 30, 40)))
	test.That(t, errors.Is(err, rimage.ErrImageSizeMismatch), test.ShouldBeTrue)
}

func TestComputeDisparity(t *testing.T) {
	left := image.NewGray(image.Rect(0, 0, 40, 30))
	right := image.NewGray(image.Rect(0, 0, 40, 30))

	dm := NewDisparityMap(40, 30)
	dm.Set(3, 4, 2.5)
	out, err := ComputeDisparity(context.Background(), &projectingMatcher{disparity: dm}, left, right)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.At(3, 4), test.ShouldEqual, 2.5)
	test.That(t, out.Valid(3, 4), test.ShouldBeTrue)
	test.That(t, out.Valid(4, 3), test.ShouldBeFalse)
	test.That(t, out.NumValid(), test.ShouldEqual, 1)

	_, err = ComputeDisparity(context.Background(), &projectingMatcher{disparity: NewDisparityMap(20, 30)}, left, right)
	test.That(t, errors.Is(err, rimage.ErrImageSizeMismatch), test.ShouldBeTrue)

	_, err = ComputeDisparity(context.Background(), &projectingMatcher{disparity: dm}, left, image.NewGray(image.Rect(0, 0, 40, 31)))
	test.That(t, errors.Is(err, rimage.ErrImageSizeMismatch), test.ShouldBeTrue)
}

func TestDisparityMap(t *testing.T) {
	dm := NewDisparityMap(4, 3)
	test.That(t, dm.Width(), test.ShouldEqual, 4)
	test.That(t, dm.Height(), test.ShouldEqual, 3)
	test.That(t, dm.NumValid(), test.ShouldEqual, 0)
	lo, hi := dm.MinMax()
	test.That(t, math.IsNaN(lo), test.ShouldBeTrue)
	test.That(t, math.IsNaN(hi), test.ShouldBeTrue)
	test.That(t, dm.ToPrettyPicture().Pix, test.ShouldResemble, make([]uint8, 12))

	dm.Set(0, 0, 2)
	dm.Set(3, 2, 6)
	dm.Set(1, 1, 4)
	lo, hi = dm.MinMax()
	test.That(t, lo, test.ShouldEqual, 2.0)
	test.That(t, hi, test.ShouldEqual, 6.0)
	pretty := dm.ToPrettyPicture()
	test.That(t, pretty.GrayAt(0, 0).Y, test.ShouldEqual, uint8(1))
	test.That(t, pretty.GrayAt(1, 1).Y, test.ShouldEqual, uint8(128))
	test.That(t, pretty.GrayAt(3, 2).Y, test.ShouldEqual, uint8(255))
	test.That(t, pretty.GrayAt(2, 1).Y, test.ShouldEqual, uint8(0))
}

// shiftedPair returns a random texture and the same texture seen shifted left by disparity.
func shiftedPair(width, height, disparity int) (*image.Gray, *image.Gray) {
	rng := rand.New(rand.NewSource(1))
	texture := image.NewGray(image.Rect(0, 0, width+disparity, height))
	for i := range texture.Pix {
		texture.Pix[i] = uint8(rng.Intn(256))
	}
	left := image.NewGray(image.Rect(0, 0, width, height))
	right := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			left.SetGray(x, y, texture.GrayAt(x, y))
			right.SetGray(x, y, texture.GrayAt(x+disparity, y))
		}
	}
	return left, right
}

func TestBlockMatcherDisparity(t *testing.T) {
	left, right := shiftedPair(80, 30, 5)
	cfg := BlockMatcherConfig{WindowSize: 5, NumDisparities: 16, UniquenessRatio: 10, Step: 1}
	matcher, err := NewBlockMatcher(cfg)
	test.That(t, err, test.ShouldBeNil)

	dm, err := ComputeDisparity(context.Background(), matcher, left, right)
	test.That(t, err, test.ShouldBeNil)
	// rows 2..27 and columns 17..77 have every searched block inside the images
	test.That(t, dm.NumValid(), test.ShouldEqual, 26*61)
	for y := 2; y < 28; y++ {
		for x := 17; x < 78; x++ {
			test.That(t, dm.At(x, y), test.ShouldEqual, 5.0)
		}
	}
	test.That(t, dm.Valid(16, 10), test.ShouldBeFalse)
	test.That(t, dm.Valid(20, 1), test.ShouldBeFalse)
}

func TestBlockMatcherReconstruct(t *testing.T) {
	left, right := shiftedPair(80, 30, 5)
	matcher, err := NewBlockMatcher(BlockMatcherConfig{WindowSize: 5, NumDisparities: 16, UniquenessRatio: 10, Step: 4})
	test.That(t, err, test.ShouldBeNil)

	// rectified pair 10 units apart: disparity 5 at f = 100 is depth 200
	k := cameraMatrix(100, 100, 40, 15)
	rotation := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	translation := mat.NewDense(3, 1, []float64{-10, 0, 0})
	out, err := ReconstructPoints(context.Background(), matcher, left, right, k, k, rotation, translation,
		triangulation.MethodMidpoint)
	test.That(t, err, test.ShouldBeNil)
	rows, _ := out.Dims()
	test.That(t, rows, test.ShouldBeGreaterThan, 0)
	for i := 0; i < rows; i++ {
		row := out.RawRowView(i)
		test.That(t, row[2], test.ShouldAlmostEqual, 200.0, 1e-6)
		test.That(t, row[3]-row[5], test.ShouldEqual, 5.0)
		test.That(t, row[0], test.ShouldAlmostEqual, (row[3]-40)*2, 1e-6)
	}
}

func TestBlockMatcherConfig(t *testing.T) {
	test.That(t, DefaultBlockMatcherConfig().CheckValid(), test.ShouldBeNil)
	for _, cfg := range []BlockMatcherConfig{
		{WindowSize: 4, NumDisparities: 16, Step: 1},
		{WindowSize: 5, NumDisparities: 0, Step: 1},
		{WindowSize: 5, NumDisparities: 16, Step: 0},
		{WindowSize: 5, NumDisparities: 16, Step: 1, UniquenessRatio: -1},
	} {
		_, err := NewBlockMatcher(cfg)
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestBlockMatcherCanceled(t *testing.T) {
	left, right := shiftedPair(80, 30, 5)
	matcher, err := NewBlockMatcher(DefaultBlockMatcherConfig())
	test.That(t, err, test.ShouldBeNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = matcher.Match(ctx, left, right)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}
