package transform

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/utils"
)

// NumDistortionCoefficients is the number of coefficients in a calibration distortion vector,
// ordered (k1, k2, p1, p2, k3).
const NumDistortionCoefficients = 5

// BrownConrady is the forward Brown-Conrady lens model: radial terms k1, k2, k3 and tangential
// terms p1, p2. It maps ideal normalized coordinates to distorted ones.
type BrownConrady struct {
	RadialK1     float64 `json:"rk1"`
	RadialK2     float64 `json:"rk2"`
	RadialK3     float64 `json:"rk3"`
	TangentialP1 float64 `json:"tp1"`
	TangentialP2 float64 `json:"tp2"`
}

// CheckValid checks if the fields for BrownConrady have valid inputs.
func (bc *BrownConrady) CheckValid() error {
	if bc == nil {
		return InvalidDistortionError("BrownConrady shaped distortion_parameters not provided")
	}
	if !utils.IsFinite(bc.Parameters()...) {
		return InvalidDistortionError("BrownConrady parameters must be finite")
	}
	return nil
}

// NewBrownConrady takes in a slice of floats ordered (k1, k2, k3, p1, p2) that will be passed into
// the struct in order. Missing trailing values are zero.
func NewBrownConrady(inp []float64) (*BrownConrady, error) {
	if len(inp) > 5 {
		return nil, errors.Errorf("list of parameters too long, expected max 5, got %d", len(inp))
	}
	padded := make([]float64, 5)
	copy(padded, inp)
	return &BrownConrady{padded[0], padded[1], padded[2], padded[3], padded[4]}, nil
}

// NewBrownConradyFromCoefficients builds the model from a calibration distortion vector ordered
// (k1, k2, p1, p2, k3), given as a slice or as a 1x5 or 5x1 matrix.
func NewBrownConradyFromCoefficients(coeffs mat.Matrix) (*BrownConrady, error) {
	r, c := utils.Dims(coeffs)
	if r*c != NumDistortionCoefficients || (r != 1 && c != 1) {
		return nil, utils.NewDimensionsError("distortion coefficients", r, c, 1, NumDistortionCoefficients)
	}
	k := make([]float64, 0, NumDistortionCoefficients)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			k = append(k, coeffs.At(i, j))
		}
	}
	return &BrownConrady{RadialK1: k[0], RadialK2: k[1], TangentialP1: k[2], TangentialP2: k[3], RadialK3: k[4]}, nil
}

// Coefficients returns the model as a calibration distortion vector (k1, k2, p1, p2, k3).
func (bc *BrownConrady) Coefficients() []float64 {
	return []float64{bc.RadialK1, bc.RadialK2, bc.TangentialP1, bc.TangentialP2, bc.RadialK3}
}

// ModelType returns the type of distortion model.
func (bc *BrownConrady) ModelType() DistortionType {
	return BrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (bc *BrownConrady) Parameters() []float64 {
	if bc == nil {
		return []float64{}
	}
	return []float64{bc.RadialK1, bc.RadialK2, bc.RadialK3, bc.TangentialP1, bc.TangentialP2}
}

// Transform distorts the normalized point (x, y).
func (bc *BrownConrady) Transform(x, y float64) (float64, float64) {
	if bc == nil {
		return x, y
	}
	xd, yd, _ := bc.distort(x, y, false)
	return xd, yd
}

// Inverse returns the model that removes this distortion.
func (bc *BrownConrady) Inverse() *InverseBrownConrady {
	return &InverseBrownConrady{*bc}
}

// jacobian holds the partial derivatives of the distorted point with respect to the ideal one.
type jacobian struct {
	dxdx, dxdy, dydx, dydy float64
}

// distort evaluates the forward model:
//
//	x_d = x * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p1*x*y + p2*(r² + 2*x²)
//	y_d = y * (1 + k1*r² + k2*r⁴ + k3*r⁶) + 2*p2*x*y + p1*(r² + 2*y²)
//
// and, when asked, its jacobian.
func (bc *BrownConrady) distort(x, y float64, withJacobian bool) (float64, float64, jacobian) {
	r2 := x*x + y*y
	r4 := r2 * r2
	r6 := r4 * r2

	radDist := 1.0 + bc.RadialK1*r2 + bc.RadialK2*r4 + bc.RadialK3*r6
	xd := x*radDist + 2.0*bc.TangentialP1*x*y + bc.TangentialP2*(r2+2.0*x*x)
	yd := y*radDist + 2.0*bc.TangentialP2*x*y + bc.TangentialP1*(r2+2.0*y*y)
	if !withJacobian {
		return xd, yd, jacobian{}
	}

	dRad := 2.0 * (bc.RadialK1 + 2.0*bc.RadialK2*r2 + 3.0*bc.RadialK3*r4)
	return xd, yd, jacobian{
		dxdx: radDist + x*x*dRad + 2.0*bc.TangentialP1*y + 6.0*bc.TangentialP2*x,
		dxdy: x*y*dRad + 2.0*bc.TangentialP1*x + 2.0*bc.TangentialP2*y,
		dydx: x*y*dRad + 2.0*bc.TangentialP2*y + 2.0*bc.TangentialP1*x,
		dydy: radDist + y*y*dRad + 2.0*bc.TangentialP2*x + 6.0*bc.TangentialP1*y,
	}
}
