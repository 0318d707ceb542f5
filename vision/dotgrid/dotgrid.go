// Package dotgrid finds the dots of a calibration target in a distorted image and labels each
// with the reference grid point it images. Four larger fiducial dots fix the target's pose.
package dotgrid

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/logging"
	"github.com/sksurgery/stereovision/utils"
	"github.com/sksurgery/stereovision/vision/blob"
)

// NumFiducials is the number of fiducial dots, listed top-left, top-right, bottom-left,
// bottom-right.
const NumFiducials = 4

// GridPoint is a dot of the reference target: its position on an ideal, fronto-parallel image
// of the target and its physical position in millimeters.
type GridPoint struct {
	ID       int
	Position r2.Point
	Physical r3.Vector
}

// Detection is a dot found in the image, labeled with the grid point it matched.
type Detection struct {
	ID       int
	Pixel    r2.Point
	Physical r3.Vector
}

// RegularGrid returns a rows x cols target, row major, with ids counting from 0. Dot (x, y)
// sits at ((x+1)*spacingPx, (y+1)*spacingPx) on the reference image and at
// (x*spacingMM, y*spacingMM, 0) physically.
func RegularGrid(rows, cols int, spacingPx, spacingMM float64) []GridPoint {
	grid := make([]GridPoint, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			grid = append(grid, GridPoint{
				ID:       len(grid),
				Position: r2.Point{X: float64(x+1) * spacingPx, Y: float64(y+1) * spacingPx},
				Physical: r3.Vector{X: float64(x) * spacingMM, Y: float64(y) * spacingMM},
			})
		}
	}
	return grid
}

// GridFromDense reads an Nx6 table of (id, x, y, X, Y, Z).
func GridFromDense(m mat.Matrix) ([]GridPoint, error) {
	if utils.IsEmpty(m) {
		return nil, utils.NewEmptyInputError("grid points")
	}
	if err := utils.CheckShape("grid points", m, -1, 6); err != nil {
		return nil, err
	}
	rows, _ := m.Dims()
	grid := make([]GridPoint, rows)
	for i := range grid {
		grid[i] = GridPoint{
			ID:       int(m.At(i, 0)),
			Position: r2.Point{X: m.At(i, 1), Y: m.At(i, 2)},
			Physical: r3.Vector{X: m.At(i, 3), Y: m.At(i, 4), Z: m.At(i, 5)},
		}
	}
	return grid, nil
}

// GridToDense returns the Nx6 table of grid.
func GridToDense(grid []GridPoint) *mat.Dense {
	if len(grid) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(grid), 6, nil)
	for i, g := range grid {
		out.SetRow(i, []float64{float64(g.ID), g.Position.X, g.Position.Y, g.Physical.X, g.Physical.Y, g.Physical.Z})
	}
	return out
}

// FiducialsFromDense reads the 4x1 table of fiducial grid indexes.
func FiducialsFromDense(m mat.Matrix) ([]int, error) {
	if err := utils.CheckShape("fiducial indexes", m, NumFiducials, 1); err != nil {
		return nil, err
	}
	out := make([]int, NumFiducials)
	for i := range out {
		out[i] = int(m.At(i, 0))
	}
	return out, nil
}

// DetectionsToDense returns the Nx6 table (id, x, y, X, Y, Z). No detections give an empty
// matrix.
func DetectionsToDense(ds []Detection) *mat.Dense {
	if len(ds) == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(ds), 6, nil)
	for i, d := range ds {
		out.SetRow(i, []float64{float64(d.ID), d.Pixel.X, d.Pixel.Y, d.Physical.X, d.Physical.Y, d.Physical.Z})
	}
	return out
}

// Config holds the image processing and matching parameters.
type Config struct {
	BlurSize           int
	BlurSigma          float64
	ThresholdBlockSize int
	ThresholdOffset    float64
	Blob               blob.Params
	// MinBlobs is the number of blobs each detection pass must exceed.
	MinBlobs int
	// MaxRMS is the largest grid space residual for which matches are moved back into the
	// distorted image.
	MaxRMS float64
}

// DefaultConfig returns the parameters tuned for the 18 x 25 laparoscope calibration target.
func DefaultConfig() Config {
	params := blob.DefaultParams()
	params.MinArea = 50
	params.MaxArea = 50000
	params.FilterByCircularity = true
	params.FilterByInertia = true
	params.FilterByConvexity = false
	return Config{
		BlurSize:           5,
		ThresholdBlockSize: 151,
		ThresholdOffset:    20,
		Blob:               params,
		MinBlobs:           5,
		MaxRMS:             10,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.BlurSize <= 0 || c.BlurSize%2 == 0 {
		return errors.Errorf("blur size must be odd and positive, got %d", c.BlurSize)
	}
	if c.ThresholdBlockSize < 3 || c.ThresholdBlockSize%2 == 0 {
		return errors.Errorf("threshold block size must be odd and at least 3, got %d", c.ThresholdBlockSize)
	}
	if c.MinBlobs < NumFiducials {
		return errors.Errorf("min blobs must be at least %d, got %d", NumFiducials, c.MinBlobs)
	}
	return c.Blob.CheckValid()
}

// Option configures ExtractDots.
type Option func(*options)

type options struct {
	logger   logging.Logger
	detector blob.Detector
	config   *Config
}

// WithLogger sets the logger that reports why a result is empty or low confidence.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDetector replaces the blob detector built from the configuration.
func WithDetector(d blob.Detector) Option {
	return func(o *options) {
		o.detector = d
	}
}

// WithConfig replaces DefaultConfig.
func WithConfig(c Config) Option {
	return func(o *options) {
		o.config = &c
	}
}
