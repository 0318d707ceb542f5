package stereo

import (
	"image"
	"math"

	"github.com/sksurgery/stereovision/utils"
)

// DisparityMap holds, for every left image pixel, the horizontal offset to its match in the
// right image: a left pixel (x, y) sees the same point as the right pixel (x - d, y). Pixels
// without a match hold NaN.
type DisparityMap struct {
	width  int
	height int

	data []float64
}

// NewDisparityMap returns a width x height map with every pixel undefined.
func NewDisparityMap(width, height int) *DisparityMap {
	dm := &DisparityMap{
		width:  width,
		height: height,
		data:   make([]float64, width*height),
	}
	for i := range dm.data {
		dm.data[i] = math.NaN()
	}
	return dm
}

// Width is the number of columns.
func (dm *DisparityMap) Width() int {
	return dm.width
}

// Height is the number of rows.
func (dm *DisparityMap) Height() int {
	return dm.height
}

// Bounds returns the map's extent as an image rectangle.
func (dm *DisparityMap) Bounds() image.Rectangle {
	return image.Rect(0, 0, dm.width, dm.height)
}

// At returns the disparity at (x, y), NaN if undefined.
func (dm *DisparityMap) At(x, y int) float64 {
	return dm.data[y*dm.width+x]
}

// Set sets the disparity at (x, y).
func (dm *DisparityMap) Set(x, y int, d float64) {
	dm.data[y*dm.width+x] = d
}

// Valid reports whether (x, y) has a defined disparity.
func (dm *DisparityMap) Valid(x, y int) bool {
	return utils.IsFinite(dm.At(x, y))
}

// NumValid counts the pixels with a defined disparity.
func (dm *DisparityMap) NumValid() int {
	n := 0
	for _, d := range dm.data {
		if utils.IsFinite(d) {
			n++
		}
	}
	return n
}

// MinMax returns the smallest and largest defined disparities. Both are NaN if there are none.
func (dm *DisparityMap) MinMax() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, d := range dm.data {
		if !utils.IsFinite(d) {
			continue
		}
		lo = math.Min(lo, d)
		hi = math.Max(hi, d)
	}
	if lo > hi {
		return math.NaN(), math.NaN()
	}
	return lo, hi
}

// ToPrettyPicture scales the defined disparities onto 1..255; undefined pixels are black.
func (dm *DisparityMap) ToPrettyPicture() *image.Gray {
	img := image.NewGray(dm.Bounds())
	lo, hi := dm.MinMax()
	if math.IsNaN(lo) {
		return img
	}
	span := hi - lo
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			d := dm.At(x, y)
			if !utils.IsFinite(d) {
				continue
			}
			v := 255.0
			if span > 0 {
				v = 1 + 254*(d-lo)/span
			}
			img.Pix[img.PixOffset(x, y)] = utils.ClampUint8(v)
		}
	}
	return img
}
