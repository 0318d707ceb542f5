// Package config reads the stereo calibration, matrix tables and target descriptions the
// command line tools take as input.
package config

import (
	"fmt"
	"os"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/utils"
)

// CameraCalibration is one camera of a stereo rig.
type CameraCalibration struct {
	Intrinsics transform.PinholeCameraIntrinsics `json:"intrinsics"`
	// Distortion is ordered (k1, k2, p1, p2, k3); empty means no distortion.
	Distortion []float64 `json:"distortion"`
}

// CameraMatrix returns the 3x3 camera matrix.
func (c *CameraCalibration) CameraMatrix() *mat.Dense {
	return c.Intrinsics.GetCameraMatrix()
}

// DistortionMatrix returns the 1x5 distortion vector, zero when none is configured.
func (c *CameraCalibration) DistortionMatrix() *mat.Dense {
	d := mat.NewDense(1, transform.NumDistortionCoefficients, nil)
	for i, v := range c.Distortion {
		d.Set(0, i, v)
	}
	return d
}

// Validate checks the intrinsics and the distortion vector's length.
func (c *CameraCalibration) Validate(path string) error {
	if err := c.Intrinsics.CheckValid(); err != nil {
		return errors.Wrapf(err, "%s.intrinsics", path)
	}
	if n := len(c.Distortion); n != 0 && n != transform.NumDistortionCoefficients {
		return utils.NewDimensionsError(path+".distortion", 1, n, 1, transform.NumDistortionCoefficients)
	}
	return nil
}

// ExtrinsicsConfig is a rigid transform: a row major 3x3 rotation and a translation.
type ExtrinsicsConfig struct {
	Rotation    []float64 `json:"rotation"`
	Translation []float64 `json:"translation"`
}

// RotationMatrix returns the 3x3 rotation.
func (e *ExtrinsicsConfig) RotationMatrix() *mat.Dense {
	return mat.NewDense(3, 3, append([]float64(nil), e.Rotation...))
}

// TranslationVector returns the 3x1 translation.
func (e *ExtrinsicsConfig) TranslationVector() *mat.Dense {
	return mat.NewDense(3, 1, append([]float64(nil), e.Translation...))
}

// Validate checks the rotation and translation lengths.
func (e *ExtrinsicsConfig) Validate(path string) error {
	if len(e.Rotation) != 9 {
		return utils.NewDimensionsError(path+".rotation", 1, len(e.Rotation), 1, 9)
	}
	if len(e.Translation) != 3 {
		return utils.NewDimensionsError(path+".translation", len(e.Translation), 1, 3, 1)
	}
	return nil
}

// StereoCalibration is a calibrated stereo rig. LeftToRight maps points from the left camera's
// frame into the right camera's.
type StereoCalibration struct {
	Left        CameraCalibration `json:"left"`
	Right       CameraCalibration `json:"right"`
	LeftToRight ExtrinsicsConfig  `json:"left_to_right"`
}

// Validate checks every part of the calibration.
func (c *StereoCalibration) Validate() error {
	if err := c.Left.Validate("left"); err != nil {
		return err
	}
	if err := c.Right.Validate("right"); err != nil {
		return err
	}
	return c.LeftToRight.Validate("left_to_right")
}

// Rig returns the calibration as a validated stereo rig.
func (c *StereoCalibration) Rig() (*transform.StereoRig, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return transform.NewStereoRig(
		c.Left.CameraMatrix(), c.Right.CameraMatrix(),
		c.LeftToRight.RotationMatrix(), c.LeftToRight.TranslationVector())
}

// String prints the calibration as a table.
func (c *StereoCalibration) String() string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Camera", "fx", "fy", "cx", "cy", "Distortion"})
	for _, cam := range []struct {
		name string
		c    *CameraCalibration
	}{{"left", &c.Left}, {"right", &c.Right}} {
		t.AppendRow(table.Row{
			cam.name,
			cam.c.Intrinsics.Fx, cam.c.Intrinsics.Fy, cam.c.Intrinsics.Ppx, cam.c.Intrinsics.Ppy,
			fmt.Sprint(cam.c.DistortionMatrix().RawMatrix().Data),
		})
	}
	t.AppendFooter(table.Row{"left to right", "", "", "", "", fmt.Sprintf("t = %v", c.LeftToRight.Translation)})
	return t.Render()
}

// DecodeStereoCalibration decodes a generic attribute map, as produced by a JSON or YAML
// parser, into a calibration and validates it.
func DecodeStereoCalibration(attrs map[string]interface{}) (*StereoCalibration, error) {
	var conf StereoCalibration
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{TagName: "json", Result: &conf})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "cannot decode stereo calibration")
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LoadStereoCalibration reads a JSON or YAML calibration file. Environment variables in the
// file are expanded first.
func LoadStereoCalibration(path string) (*StereoCalibration, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Errorf("calibration file not found: %s", path)
		}
		return nil, errors.Wrapf(err, "reading calibration file %s", path)
	}
	return ParseStereoCalibration(buf)
}

// ParseStereoCalibration parses a JSON or YAML calibration document.
func ParseStereoCalibration(buf []byte) (*StereoCalibration, error) {
	// JSON documents are valid YAML
	var attrs map[string]interface{}
	if err := yaml.Unmarshal(buf, &attrs); err != nil {
		return nil, errors.Wrap(err, "parsing calibration")
	}
	if attrs == nil {
		return nil, errors.New("calibration is empty")
	}
	return DecodeStereoCalibration(attrs)
}
