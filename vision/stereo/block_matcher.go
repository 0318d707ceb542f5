package stereo

import (
	"context"
	"image"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/utils"
	"github.com/sksurgery/stereovision/vision/triangulation"
)

// BlockMatcherConfig configures a BlockMatcher.
type BlockMatcherConfig struct {
	// WindowSize is the odd side length of the compared blocks.
	WindowSize int `json:"window_size"`
	// MinDisparity and NumDisparities give the searched range [MinDisparity, MinDisparity+NumDisparities).
	MinDisparity   int `json:"min_disparity"`
	NumDisparities int `json:"num_disparities"`
	// UniquenessRatio, in percent, is how much the best cost must beat every disparity more than
	// one step away from it.
	UniquenessRatio float64 `json:"uniqueness_ratio"`
	// Step subsamples the correspondences returned by Match in both directions.
	Step int `json:"step"`
}

// DefaultBlockMatcherConfig returns a configuration for rectified 8 bit images.
func DefaultBlockMatcherConfig() BlockMatcherConfig {
	return BlockMatcherConfig{
		WindowSize:      9,
		MinDisparity:    0,
		NumDisparities:  64,
		UniquenessRatio: 10,
		Step:            4,
	}
}

// CheckValid checks the configuration.
func (c BlockMatcherConfig) CheckValid() error {
	if c.WindowSize < 1 || c.WindowSize%2 == 0 {
		return errors.Errorf("window size must be odd and positive, got %d", c.WindowSize)
	}
	if c.NumDisparities < 1 {
		return errors.Errorf("number of disparities must be positive, got %d", c.NumDisparities)
	}
	if c.UniquenessRatio < 0 {
		return errors.Errorf("uniqueness ratio cannot be negative, got %v", c.UniquenessRatio)
	}
	if c.Step < 1 {
		return errors.Errorf("step must be positive, got %d", c.Step)
	}
	return nil
}

// BlockMatcher is a DenseMatcher for rectified pairs comparing square blocks along image rows
// by their sum of absolute differences.
type BlockMatcher struct {
	cfg BlockMatcherConfig
}

// NewBlockMatcher validates cfg and returns the matcher.
func NewBlockMatcher(cfg BlockMatcherConfig) (*BlockMatcher, error) {
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}
	return &BlockMatcher{cfg: cfg}, nil
}

// Disparity computes the disparity of every left pixel whose block fits in both images for
// every searched disparity and whose best match is unique.
func (bm *BlockMatcher) Disparity(ctx context.Context, left, right image.Image) (*DisparityMap, error) {
	if err := rimage.CheckSameImgSize(left, right); err != nil {
		return nil, err
	}
	l, r := rimage.MakeGray(left), rimage.MakeGray(right)
	width, height := l.Bounds().Dx(), l.Bounds().Dy()
	half := bm.cfg.WindowSize / 2
	dm := NewDisparityMap(width, height)
	if height <= 2*half || width <= 2*half {
		return dm, nil
	}

	maxDisparity := bm.cfg.MinDisparity + bm.cfg.NumDisparities - 1
	xStart := utils.ClampInt(maxDisparity+half, half, width)
	xEnd := utils.ClampInt(width-half+bm.cfg.MinDisparity, 0, width-half)
	rows := height - 2*half
	err := utils.ParallelForEachIndex(ctx, rows, func(i int) {
		y := i + half
		costs := make([]float64, bm.cfg.NumDisparities)
		for x := xStart; x < xEnd; x++ {
			if d, ok := bm.bestDisparity(l, r, x, y, costs); ok {
				dm.Set(x, y, float64(d))
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return dm, nil
}

// bestDisparity searches the disparities at (x, y), whose blocks must all fit in r; costs is
// scratch space, one entry per searched disparity.
func (bm *BlockMatcher) bestDisparity(l, r *image.Gray, x, y int, costs []float64) (int, bool) {
	half := bm.cfg.WindowSize / 2
	best := 0
	for k := range costs {
		costs[k] = sad(l, r, x, x-bm.cfg.MinDisparity-k, y, half)
		if costs[k] < costs[best] {
			best = k
		}
	}
	limit := costs[best] * (1 + bm.cfg.UniquenessRatio/100)
	for k, c := range costs {
		if utils.AbsInt(k-best) > 1 && c <= limit {
			return 0, false
		}
	}
	return bm.cfg.MinDisparity + best, true
}

// sad is the sum of absolute differences between the blocks centered on (xl, y) in l and
// (xr, y) in r.
func sad(l, r *image.Gray, xl, xr, y, half int) float64 {
	total := 0
	for dy := -half; dy <= half; dy++ {
		lo := l.PixOffset(xl-half, y+dy)
		ro := r.PixOffset(xr-half, y+dy)
		for dx := 0; dx <= 2*half; dx++ {
			total += utils.AbsInt(int(l.Pix[lo+dx]) - int(r.Pix[ro+dx]))
		}
	}
	return float64(total)
}

// Match returns a correspondence for every Step-th pixel in both directions with a defined
// disparity.
func (bm *BlockMatcher) Match(ctx context.Context, left, right image.Image) ([]triangulation.Correspondence, error) {
	dm, err := bm.Disparity(ctx, left, right)
	if err != nil {
		return nil, err
	}
	return CorrespondencesFromDisparity(dm, bm.cfg.Step), nil
}

// CorrespondencesFromDisparity samples every step-th pixel of dm in both directions and pairs
// each defined left pixel (x, y) with the right pixel (x - d, y).
func CorrespondencesFromDisparity(dm *DisparityMap, step int) []triangulation.Correspondence {
	if step < 1 {
		step = 1
	}
	var out []triangulation.Correspondence
	for y := 0; y < dm.Height(); y += step {
		for x := 0; x < dm.Width(); x += step {
			if !dm.Valid(x, y) {
				continue
			}
			out = append(out, triangulation.Correspondence{
				Left:  r2.Point{X: float64(x), Y: float64(y)},
				Right: r2.Point{X: float64(x) - dm.At(x, y), Y: float64(y)},
			})
		}
	}
	return out
}
