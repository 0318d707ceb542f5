package transform

// InverseBrownConrady applies the inverse of the Brown-Conrady distortion model.
// Given distorted points, it computes the corresponding undistorted points using
// an iterative Newton-Raphson method.
type InverseBrownConrady struct {
	BrownConrady
}

const (
	inverseMaxIterations = 20
	inverseTolerance     = 1e-10
)

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return ibc.BrownConrady.CheckValid()
}

// NewInverseBrownConrady takes in a slice of floats ordered (k1, k2, k3, p1, p2) describing the
// forward model to invert.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	forward, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return forward.Inverse(), nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the forward model being inverted.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.BrownConrady.Parameters()
}

// Transform converts the distorted normalized point (xd, yd) to the undistorted point that the
// forward model maps onto it. Iteration stops once the forward model reproduces the input
// within tolerance, the jacobian becomes singular, or the iteration budget runs out.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}

	// Start with the distorted point as initial guess
	xu, yu := xd, yd
	for i := 0; i < inverseMaxIterations; i++ {
		xdEst, ydEst, j := ibc.distort(xu, yu, true)
		errX := xdEst - xd
		errY := ydEst - yd
		if errX*errX+errY*errY < inverseTolerance*inverseTolerance {
			break
		}

		det := j.dxdx*j.dydy - j.dxdy*j.dydx
		if det == 0 {
			break
		}

		// [xu, yu] -= J^-1 * [errX, errY]
		xu -= (j.dydy*errX - j.dxdy*errY) / det
		yu -= (-j.dydx*errX + j.dxdx*errY) / det
	}

	return xu, yu
}
