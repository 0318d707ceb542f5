package config

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"go.viam.com/test"

	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/utils"
)

const calibrationYAML = `
left:
  intrinsics: {width_px: 1920, height_px: 1080, fx: 2012.186314, fy: 2017.966019, ppx: 944.7173708, ppy: 617.1093984}
  distortion: [-0.3, 0.1, 0.001, -0.002, 0]
right:
  intrinsics:
    fx: 2037.233928
    fy: 2052.018948
    ppx: 1051.112809
    ppy: 548.0675962
left_to_right:
  rotation: [0.999678, 0.000151, 0.025398, -0.000720, 0.999749, 0.022394, -0.025388, -0.022405, 0.999426]
  translation: [-4.631472, 0.268695, 1.300256]
`

const calibrationJSON = `{
  "left": {"intrinsics": {"fx": 1000, "fy": 1000, "ppx": 640, "ppy": 360}},
  "right": {"intrinsics": {"fx": 1000, "fy": 1000, "ppx": 640, "ppy": 360}, "distortion": [0, 0, 0, 0, 0]},
  "left_to_right": {"rotation": [1, 0, 0, 0, 1, 0, 0, 0, 1], "translation": [-5, 0, 0]}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	test.That(t, os.WriteFile(path, []byte(content), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadStereoCalibrationYAML(t *testing.T) {
	calib, err := LoadStereoCalibration(writeFile(t, "calib.yaml", calibrationYAML))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calib.Left.Intrinsics, test.ShouldResemble, transform.PinholeCameraIntrinsics{
		Width: 1920, Height: 1080, Fx: 2012.186314, Fy: 2017.966019, Ppx: 944.7173708, Ppy: 617.1093984,
	})
	test.That(t, calib.Left.Distortion, test.ShouldResemble, []float64{-0.3, 0.1, 0.001, -0.002, 0})
	test.That(t, calib.Right.Distortion, test.ShouldBeEmpty)
	test.That(t, calib.Right.DistortionMatrix().RawMatrix().Data, test.ShouldResemble, []float64{0, 0, 0, 0, 0})

	rig, err := calib.Rig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rig.Right.Fx, test.ShouldEqual, 2037.233928)
	test.That(t, rig.LeftToRight.Rotation.At(2, 1), test.ShouldEqual, -0.022405)
	test.That(t, rig.LeftToRight.Translation.At(0, 0), test.ShouldEqual, -4.631472)
	test.That(t, mat.Equal(calib.Left.CameraMatrix(), mat.NewDense(3, 3, []float64{
		2012.186314, 0, 944.7173708,
		0, 2017.966019, 617.1093984,
		0, 0, 1,
	})), test.ShouldBeTrue)

	summary := calib.String()
	test.That(t, summary, test.ShouldContainSubstring, "2012.186314")
	test.That(t, strings.ToLower(summary), test.ShouldContainSubstring, "right")
}

func TestLoadStereoCalibrationJSON(t *testing.T) {
	calib, err := LoadStereoCalibration(writeFile(t, "calib.json", calibrationJSON))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calib.Left.Intrinsics.Fx, test.ShouldEqual, 1000.0)
	test.That(t, calib.LeftToRight.Translation, test.ShouldResemble, []float64{-5, 0, 0})
	test.That(t, calib.Right.Distortion, test.ShouldHaveLength, 5)
}

func TestLoadStereoCalibrationEnv(t *testing.T) {
	t.Setenv("STEREO_BASELINE", "-4.5")
	calib, err := LoadStereoCalibration(writeFile(t, "calib.json",
		strings.Replace(calibrationJSON, `"translation": [-5, 0, 0]`, `"translation": [${STEREO_BASELINE}, 0, 0]`, 1)))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, calib.LeftToRight.Translation[0], test.ShouldEqual, -4.5)
}

func TestLoadStereoCalibrationErrors(t *testing.T) {
	_, err := LoadStereoCalibration(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "not found")

	_, err = ParseStereoCalibration([]byte(""))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseStereoCalibration([]byte("left: [1, 2"))
	test.That(t, err, test.ShouldNotBeNil)

	_, err = ParseStereoCalibration([]byte(strings.Replace(calibrationYAML, "[-0.3, 0.1, 0.001, -0.002, 0]", "[-0.3, 0.1]", 1)))
	test.That(t, errors.Is(err, utils.ErrInvalidDimensions), test.ShouldBeTrue)
	var dimErr *utils.DimensionsError
	test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Param, test.ShouldEqual, "left.distortion")

	_, err = ParseStereoCalibration([]byte(strings.Replace(calibrationYAML, "translation: [-4.631472, 0.268695, 1.300256]",
		"translation: [-4.631472, 0.268695]", 1)))
	test.That(t, errors.As(err, &dimErr), test.ShouldBeTrue)
	test.That(t, dimErr.Param, test.ShouldEqual, "left_to_right.translation")

	_, err = ParseStereoCalibration([]byte(strings.Replace(calibrationYAML, "fx: 2037.233928", "fx: 0", 1)))
	test.That(t, errors.Is(err, transform.ErrNoIntrinsics), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "right.intrinsics")

	_, err = ParseStereoCalibration([]byte(strings.Replace(calibrationYAML, "fx: 2037.233928", "fx: fast", 1)))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMatrixText(t *testing.T) {
	in := strings.NewReader("# left x, left y, right x, right y\n" +
		"1100.16 262.974 1184.84 241.915\n" +
		"\n" +
		"1757.74,228.971,1843.52,204.083  # second\n" +
		"nan\t1 2 3\n")
	m, err := ReadMatrixText(in)
	test.That(t, err, test.ShouldBeNil)
	rows, cols := m.Dims()
	test.That(t, rows, test.ShouldEqual, 3)
	test.That(t, cols, test.ShouldEqual, 4)
	test.That(t, m.At(1, 2), test.ShouldEqual, 1843.52)
	test.That(t, math.IsNaN(m.At(2, 0)), test.ShouldBeTrue)

	var buf bytes.Buffer
	test.That(t, WriteMatrixText(&buf, mat.NewDense(2, 2, []float64{1, -2.5, 0, 1e-3})), test.ShouldBeNil)
	test.That(t, buf.String(), test.ShouldEqual,
		"1.000000000000000000e+00 -2.500000000000000000e+00\n"+
			"0.000000000000000000e+00 1.000000000000000021e-03\n")
	back, err := ReadMatrixText(&buf)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, back.RawMatrix().Data, test.ShouldResemble, []float64{1, -2.5, 0, 1e-3})

	_, err = ReadMatrixText(strings.NewReader("1 2 3\n4 5\n"))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "line 2")

	_, err = ReadMatrixText(strings.NewReader("1 x\n"))
	test.That(t, err, test.ShouldNotBeNil)

	empty, err := ReadMatrixText(strings.NewReader("# nothing\n\n"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.IsEmpty(), test.ShouldBeTrue)
	buf.Reset()
	test.That(t, WriteMatrixText(&buf, empty), test.ShouldBeNil)
	test.That(t, buf.Len(), test.ShouldEqual, 0)
}

func TestMatrixTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.txt")
	m := mat.NewDense(3, 2, []float64{0, 1, 1, 1, 2, 2})
	test.That(t, WriteMatrixTextFile(path, m), test.ShouldBeNil)
	back, err := ReadMatrixTextFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mat.Equal(back, m), test.ShouldBeTrue)

	_, err = ReadMatrixTextFile(filepath.Join(t.TempDir(), "missing.txt"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDotGridModel(t *testing.T) {
	model := DefaultDotGridModel()
	test.That(t, model.Validate(), test.ShouldBeNil)
	grid := model.Grid()
	test.That(t, grid, test.ShouldHaveLength, 450)
	test.That(t, grid[141].Position.X, test.ShouldEqual, 17*50.0)
	test.That(t, grid[141].Position.Y, test.ShouldEqual, 6*50.0)
	test.That(t, grid[316].Physical.X, test.ShouldEqual, 80.0)
	test.That(t, grid[316].Physical.Y, test.ShouldEqual, 60.0)

	bad := model
	bad.Fiducials = []int{0, 1, 2}
	test.That(t, errors.Is(bad.Validate(), utils.ErrInvalidDimensions), test.ShouldBeTrue)
	bad.Fiducials = []int{0, 1, 2, 450}
	test.That(t, bad.Validate(), test.ShouldNotBeNil)
	bad = model
	bad.Rows = 0
	test.That(t, bad.Validate(), test.ShouldNotBeNil)
	bad = model
	bad.SpacingMM = 0
	test.That(t, bad.Validate(), test.ShouldNotBeNil)
}

func TestSchemas(t *testing.T) {
	test.That(t, SchemaNames(), test.ShouldResemble, []string{"block_matcher", "dot_grid", "stereo_calibration"})

	out, err := SchemaJSON("stereo_calibration")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, "left_to_right")
	test.That(t, string(out), test.ShouldContainSubstring, "distortion")

	out, err = SchemaJSON("dot_grid")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(out), test.ShouldContainSubstring, "spacing_mm")

	_, err = SchemaJSON("robot")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "block_matcher")
}

func TestCalibrationFormatsAgree(t *testing.T) {
	fromJSON, err := ParseStereoCalibration([]byte(calibrationJSON))
	test.That(t, err, test.ShouldBeNil)
	fromYAML, err := ParseStereoCalibration([]byte(`
left: {intrinsics: {fx: 1000, fy: 1000, ppx: 640, ppy: 360}}
right: {intrinsics: {fx: 1000, fy: 1000, ppx: 640, ppy: 360}, distortion: [0, 0, 0, 0, 0]}
left_to_right: {rotation: [1, 0, 0, 0, 1, 0, 0, 0, 1], translation: [-5, 0, 0]}
`))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cmp.Equal(fromJSON, fromYAML), test.ShouldBeTrue)
	test.That(t, cmp.Diff(fromJSON, fromYAML), test.ShouldBeEmpty)
}
