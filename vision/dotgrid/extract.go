package dotgrid

import (
	"context"
	"image"
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/sksurgery/stereovision/logging"
	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/rimage/transform"
	"github.com/sksurgery/stereovision/utils"
	"github.com/sksurgery/stereovision/vision/blob"
)

// ExtractDots finds the target's dots in distorted and labels them. intrinsics is the 3x3
// camera matrix and distortion the (k1, k2, p1, p2, k3) vector of the camera that took the
// image. fiducials holds the grid indexes of the top-left, top-right, bottom-left and
// bottom-right fiducial dots.
//
// The image is smoothed, then dots are detected both in it and in its undistorted version.
// The four largest undistorted dots give a homography onto the reference grid, and every
// undistorted dot is labeled with its nearest grid point. If the labeling fits, each dot is
// moved back into the distorted image and snapped onto the nearest dot detected there;
// otherwise the undistorted pixels are returned. An image with too few dots gives an empty
// result and no error. So does an image where two of the four largest dots fall in the same
// quadrant around their centroid: rather than fitting a homography to fiducials that cannot be
// told apart, ExtractDots logs a warning and returns nothing.
func ExtractDots(
	ctx context.Context,
	distorted *image.Gray,
	intrinsics, distortion mat.Matrix,
	grid []GridPoint,
	fiducials []int,
	opts ...Option,
) ([]Detection, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	cfg := DefaultConfig()
	if o.config != nil {
		cfg = *o.config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrBlank(o.logger)

	if distorted == nil {
		return nil, errors.New("image is nil")
	}
	if err := utils.CheckShape("intrinsics", intrinsics, 3, 3); err != nil {
		return nil, err
	}
	model, err := transform.NewPinholeCameraModel(intrinsics, distortion)
	if err != nil {
		return nil, err
	}
	if err := checkGrid(grid, fiducials); err != nil {
		return nil, err
	}
	detector := o.detector
	if detector == nil {
		if detector, err = blob.NewSimpleDetector(cfg.Blob); err != nil {
			return nil, err
		}
	}

	smoothed, err := rimage.GaussianBlur(distorted, cfg.BlurSize, cfg.BlurSigma)
	if err != nil {
		return nil, err
	}

	var distortedBlobs, undistortedBlobs []blob.Blob
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		distortedBlobs, err = detectDots(gctx, detector, smoothed, cfg)
		return errors.Wrap(err, "distorted image")
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		undistorted, err := model.UndistortImage(smoothed)
		if err != nil {
			return err
		}
		undistortedBlobs, err = detectDots(gctx, detector, undistorted, cfg)
		return errors.Wrap(err, "undistorted image")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(distortedBlobs) <= cfg.MinBlobs || len(undistortedBlobs) <= cfg.MinBlobs {
		logger.Debugw("too few dots detected", "distorted", len(distortedBlobs), "undistorted", len(undistortedBlobs))
		return []Detection{}, nil
	}

	largest := largestBlobs(undistortedBlobs, NumFiducials)
	ordered, ok := OrderFiducials(largest)
	if !ok {
		logger.Warnw("cannot order fiducials, two share a quadrant", "fiducials", blobPoints(largest))
		return []Detection{}, nil
	}
	anchors := lo.Map(fiducials, func(idx, _ int) r2.Point { return grid[idx].Position })
	toGrid, err := transform.EstimateHomography(blobPoints(ordered), anchors)
	if err != nil {
		return nil, errors.Wrap(err, "cannot map fiducials onto the grid")
	}

	detections := make([]Detection, len(undistortedBlobs))
	squared := make([]float64, len(undistortedBlobs))
	for i, b := range undistortedBlobs {
		projected := toGrid.Apply(b.Point)
		nearest := lo.MinBy(grid, func(g1, g2 GridPoint) bool {
			return squaredDistance(g1.Position, projected) < squaredDistance(g2.Position, projected)
		})
		squared[i] = squaredDistance(nearest.Position, projected)
		detections[i] = Detection{ID: nearest.ID, Pixel: b.Point, Physical: nearest.Physical}
	}
	meanSquared, err := stats.Mean(squared)
	if err != nil {
		return nil, err
	}
	rms := math.Sqrt(meanSquared)
	if rms > cfg.MaxRMS {
		logger.Warnw("dot labeling residual too large, returning undistorted pixels", "rms", rms, "max", cfg.MaxRMS)
		return detections, nil
	}

	candidates := blobPoints(distortedBlobs)
	for i := range detections {
		redistorted := model.DistortPixel(detections[i].Pixel)
		detections[i].Pixel = lo.MinBy(candidates, func(a, b r2.Point) bool {
			return squaredDistance(a, redistorted) < squaredDistance(b, redistorted)
		})
	}
	logger.Debugw("dots extracted", "count", len(detections), "rms", rms)
	return detections, nil
}

// ExtractDotsFromDense is ExtractDots on an Nx6 grid table and a 4x1 fiducial index table,
// returning the Nx6 detection table.
func ExtractDotsFromDense(
	ctx context.Context,
	distorted *image.Gray,
	intrinsics, distortion, grid, fiducials mat.Matrix,
	opts ...Option,
) (*mat.Dense, error) {
	points, err := GridFromDense(grid)
	if err != nil {
		return nil, err
	}
	indexes, err := FiducialsFromDense(fiducials)
	if err != nil {
		return nil, err
	}
	detections, err := ExtractDots(ctx, distorted, intrinsics, distortion, points, indexes, opts...)
	if err != nil {
		return nil, err
	}
	return DetectionsToDense(detections), nil
}

func checkGrid(grid []GridPoint, fiducials []int) error {
	if len(grid) == 0 {
		return utils.NewEmptyInputError("grid points")
	}
	if len(fiducials) != NumFiducials {
		return utils.NewDimensionsError("fiducial indexes", len(fiducials), 1, NumFiducials, 1)
	}
	for _, idx := range fiducials {
		if idx < 0 || idx >= len(grid) {
			return errors.Wrapf(utils.ErrInvalidDimensions, "fiducial index %d outside grid of %d points", idx, len(grid))
		}
	}
	return nil
}

// detectDots binarizes img and runs the blob detector on it.
func detectDots(ctx context.Context, detector blob.Detector, img *image.Gray, cfg Config) ([]blob.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	binary, err := rimage.AdaptiveThresholdMean(img, cfg.ThresholdBlockSize, cfg.ThresholdOffset)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return detector.Detect(binary)
}

// largestBlobs returns the n largest blobs by size; ties keep detection order.
func largestBlobs(blobs []blob.Blob, n int) []blob.Blob {
	sorted := append([]blob.Blob(nil), blobs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Size > sorted[j].Size
	})
	return sorted[:n]
}

func blobPoints(blobs []blob.Blob) []r2.Point {
	return lo.Map(blobs, func(b blob.Blob, _ int) r2.Point { return b.Point })
}

func squaredDistance(a, b r2.Point) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}
