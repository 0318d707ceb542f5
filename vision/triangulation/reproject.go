package triangulation

import (
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/spatialmath"
	"github.com/sksurgery/stereovision/utils"
)

// ReprojectPoints projects Nx3 points through a camera. When cameraFromPoints is not nil the
// points are first moved into the camera's frame with it. The result is Nx2 pixels, NaN for
// points on the camera plane. Skew in cameraMatrix is ignored.
func ReprojectPoints(points, cameraMatrix mat.Matrix, cameraFromPoints *transform.Extrinsics) (*mat.Dense, error) {
	if utils.IsEmpty(points) {
		return &mat.Dense{}, nil
	}
	if err := utils.CheckShape("points", points, -1, 3); err != nil {
		return nil, err
	}
	intrinsics, err := transform.NewPinholeCameraIntrinsicsFromMatrix(cameraMatrix)
	if err != nil {
		return nil, err
	}
	rows, _ := points.Dims()
	out := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		p := spatialmath.RowVector(points, i)
		if cameraFromPoints != nil {
			p = cameraFromPoints.TransformPoint(p)
		}
		px := intrinsics.ProjectPoint(p)
		out.SetRow(i, []float64{px.X, px.Y})
	}
	return out, nil
}
