// Package transform holds the pinhole camera model, lens distortion, stereo extrinsics and
// the plane homographies used by the stereo and calibration-target code.
package transform

import (
	"fmt"
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/rimage"
	svutils "github.com/sksurgery/stereovision/utils"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// DistortionModel maps pixels between the distorted image a lens produces and the ideal
// pinhole image.
type DistortionModel interface {
	DistortPixel(pt r2.Point) r2.Point
	UndistortPixel(pt r2.Point) r2.Point
	UndistortImage(img *image.Gray) (*image.Gray, error)
}

// PinholeCameraModel is the model of a pinhole camera.
type PinholeCameraModel struct {
	*PinholeCameraIntrinsics `json:"intrinsic_parameters"`
	Distortion               Distorter `json:"distortion"`
}

// NewPinholeCameraModel builds a model from a 3x3 camera matrix and a (k1, k2, p1, p2, k3)
// distortion vector.
func NewPinholeCameraModel(cameraMatrix, distortion mat.Matrix) (*PinholeCameraModel, error) {
	intrinsics, err := NewPinholeCameraIntrinsicsFromMatrix(cameraMatrix)
	if err != nil {
		return nil, err
	}
	bc, err := NewBrownConradyFromCoefficients(distortion)
	if err != nil {
		return nil, err
	}
	return &PinholeCameraModel{PinholeCameraIntrinsics: intrinsics, Distortion: bc}, nil
}

// DistortionMap is a function that transforms the undistorted input points (u,v) to the distorted points (x,y)
// according to the model in PinholeCameraModel.Distortion.
func (params *PinholeCameraModel) DistortionMap() func(u, v float64) (float64, float64) {
	return func(u, v float64) (float64, float64) {
		if params.Distortion == nil {
			return u, v
		}
		x := (u - params.Ppx) / params.Fx
		y := (v - params.Ppy) / params.Fy
		x, y = params.Distortion.Transform(x, y)
		x = x*params.Fx + params.Ppx
		y = y*params.Fy + params.Ppy
		return x, y
	}
}

// DistortPixel maps an ideal pixel to where the lens images it.
func (params *PinholeCameraModel) DistortPixel(pt r2.Point) r2.Point {
	x, y := params.DistortionMap()(pt.X, pt.Y)
	return r2.Point{X: x, Y: y}
}

// UndistortPixel maps a pixel of the distorted image back to the ideal pinhole image.
func (params *PinholeCameraModel) UndistortPixel(pt r2.Point) r2.Point {
	if params.Distortion == nil {
		return pt
	}
	var inverse Distorter
	switch d := params.Distortion.(type) {
	case *BrownConrady:
		inverse = d.Inverse()
	case *InverseBrownConrady:
		inverse = &d.BrownConrady
	default:
		return pt
	}
	x := (pt.X - params.Ppx) / params.Fx
	y := (pt.Y - params.Ppy) / params.Fy
	x, y = inverse.Transform(x, y)
	return r2.Point{X: x*params.Fx + params.Ppx, Y: y*params.Fy + params.Ppy}
}

// UndistortImage takes an input image and creates a new image the same size with the same camera parameters
// as the original image, but undistorted according to the distortion model in PinholeCameraModel. A bilinear
// interpolation is used to interpolate values between image pixels; pixels that map outside the
// input are 0.
func (params *PinholeCameraModel) UndistortImage(img *image.Gray) (*image.Gray, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	// intrinsics built from a bare camera matrix carry no image size
	if params.Width != 0 && params.Height != 0 && (params.Width != width || params.Height != height) {
		return nil, errors.Errorf("img dimension and intrinsics don't match Image(%d,%d) != Intrinsics(%d,%d)",
			width, height, params.Width, params.Height)
	}
	undistortedImg := image.NewGray(image.Rect(0, 0, width, height))
	distortionMap := params.DistortionMap()
	svutils.ParallelForEachPixel(image.Point{width, height}, func(u, v int) {
		x, y := distortionMap(float64(u), float64(v))
		value, ok := rimage.BilinearInterpolationGray(r2.Point{X: x + float64(bounds.Min.X), Y: y + float64(bounds.Min.Y)}, img)
		if ok {
			undistortedImg.Pix[v*undistortedImg.Stride+u] = value
		}
	})
	return undistortedImg, nil
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, cx, cy from a 3x3 camera matrix. The image
// size is left unset.
func NewPinholeCameraIntrinsicsFromMatrix(cameraMatrix mat.Matrix) (*PinholeCameraIntrinsics, error) {
	if err := svutils.CheckShape("camera matrix", cameraMatrix, 3, 3); err != nil {
		return nil, err
	}
	intrinsics := &PinholeCameraIntrinsics{
		Fx:  cameraMatrix.At(0, 0),
		Fy:  cameraMatrix.At(1, 1),
		Ppx: cameraMatrix.At(0, 2),
		Ppy: cameraMatrix.At(1, 2),
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width < 0 || params.Height < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// PointToPixel projects a 3D point to a pixel in an image plane without rounding. Points on
// the camera plane (z == 0) project to NaN.
func (params *PinholeCameraIntrinsics) PointToPixel(x, y, z float64) (float64, float64) {
	if z == 0 {
		return math.NaN(), math.NaN()
	}
	return (x/z)*params.Fx + params.Ppx, (y/z)*params.Fy + params.Ppy
}

// ProjectPoint is PointToPixel for vectors.
func (params *PinholeCameraIntrinsics) ProjectPoint(pt r3.Vector) r2.Point {
	x, y := params.PointToPixel(pt.X, pt.Y, pt.Z)
	return r2.Point{X: x, Y: y}
}
