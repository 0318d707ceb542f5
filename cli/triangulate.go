package cli

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/config"
	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/utils"
	"github.com/sksurgery/stereovision/vision/stereo"
	"github.com/sksurgery/stereovision/vision/triangulation"
)

// TriangulateAction triangulates a table of matched pixels with a stereo calibration.
func TriangulateAction(c *cli.Context) error {
	logger := newLogger(c)
	method, err := triangulation.MethodFromString(c.String(flagMethod))
	if err != nil {
		return err
	}
	calib, err := config.LoadStereoCalibration(c.Path(flagCalibration))
	if err != nil {
		return err
	}
	points, err := config.ReadMatrixTextFile(c.Path(flagPoints))
	if err != nil {
		return err
	}
	if c.Bool(flagUndistort) {
		if points, err = undistortCorrespondences(points, calib); err != nil {
			return err
		}
	}

	xyz, err := triangulation.Triangulate(
		c.Context, method, points,
		calib.Left.CameraMatrix(), calib.Right.CameraMatrix(),
		calib.LeftToRight.RotationMatrix(), calib.LeftToRight.TranslationVector(),
		triangulation.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	rows, _ := xyz.Dims()
	logger.Infow("triangulated", "method", method.String(), "points", rows, "finite", triangulation.NumFinite(xyz))
	if err := writePCD(c, xyz); err != nil {
		return err
	}
	return writeResult(c, xyz)
}

// undistortCorrespondences moves the pixels of an Nx4 correspondence table onto the
// undistorted image planes of the calibrated cameras.
func undistortCorrespondences(points mat.Matrix, calib *config.StereoCalibration) (*mat.Dense, error) {
	if utils.IsEmpty(points) {
		return &mat.Dense{}, nil
	}
	if err := utils.CheckShape("correspondences", points, -1, 4); err != nil {
		return nil, err
	}
	left, err := transform.NewPinholeCameraModel(calib.Left.CameraMatrix(), calib.Left.DistortionMatrix())
	if err != nil {
		return nil, errors.Wrap(err, "left")
	}
	right, err := transform.NewPinholeCameraModel(calib.Right.CameraMatrix(), calib.Right.DistortionMatrix())
	if err != nil {
		return nil, errors.Wrap(err, "right")
	}
	rows, _ := points.Dims()
	out := mat.NewDense(rows, 4, nil)
	for i := 0; i < rows; i++ {
		l := left.UndistortPixel(r2.Point{X: points.At(i, 0), Y: points.At(i, 1)})
		r := right.UndistortPixel(r2.Point{X: points.At(i, 2), Y: points.At(i, 3)})
		out.SetRow(i, []float64{l.X, l.Y, r.X, r.Y})
	}
	return out, nil
}

// ReconstructAction block matches a rectified image pair and triangulates the matches.
func ReconstructAction(c *cli.Context) error {
	logger := newLogger(c)
	method, err := triangulation.MethodFromString(c.String(flagMethod))
	if err != nil {
		return err
	}
	calib, err := config.LoadStereoCalibration(c.Path(flagCalibration))
	if err != nil {
		return err
	}
	left, err := rimage.ReadImageFromFile(c.Path(flagLeft))
	if err != nil {
		return err
	}
	right, err := rimage.ReadImageFromFile(c.Path(flagRight))
	if err != nil {
		return err
	}

	cfg := stereo.DefaultBlockMatcherConfig()
	cfg.WindowSize = c.Int(flagWindowSize)
	cfg.NumDisparities = c.Int(flagNumDisparities)
	cfg.Step = c.Int(flagStep)
	matcher, err := stereo.NewBlockMatcher(cfg)
	if err != nil {
		return err
	}

	if path := c.Path(flagDisparity); path != "" {
		dm, err := stereo.ComputeDisparity(c.Context, matcher, left, right)
		if err != nil {
			return err
		}
		if err := rimage.WriteImageToFile(path, dm.ToPrettyPicture()); err != nil {
			return err
		}
		lo, hi := dm.MinMax()
		logger.Debugw("disparity", "valid", dm.NumValid(), "min", lo, "max", hi)
	}

	reconstruction, err := stereo.ReconstructPoints(
		c.Context, matcher, left, right,
		calib.Left.CameraMatrix(), calib.Right.CameraMatrix(),
		calib.LeftToRight.RotationMatrix(), calib.LeftToRight.TranslationVector(),
		method, stereo.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	if reconstruction.IsEmpty() {
		logger.Warn("no matches found")
	} else {
		rows, _ := reconstruction.Dims()
		logger.Infow("reconstructed", "method", method.String(), "points", rows,
			"finite", triangulation.NumFinite(reconstruction.Slice(0, rows, 0, 3)))
	}
	if err := writePCD(c, reconstruction); err != nil {
		return err
	}
	return writeResult(c, reconstruction)
}

// ShowCalibrationAction validates a calibration file and prints its cameras.
func ShowCalibrationAction(c *cli.Context) error {
	calib, err := config.LoadStereoCalibration(c.Path(flagCalibration))
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", calib.String())
	return nil
}

// SchemaAction prints the JSON schema named by its argument.
func SchemaAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.Errorf("expected one schema name, one of %v", config.SchemaNames())
	}
	out, err := config.SchemaJSON(c.Args().First())
	if err != nil {
		return err
	}
	printf(c.App.Writer, "%s", out)
	return nil
}
