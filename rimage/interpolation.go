package rimage

import (
	"image"
	"math"

	"github.com/golang/geo/r2"

	"github.com/sksurgery/stereovision/utils"
)

// BilinearInterpolationGray approximates the gray value between pixels according to the value of
// the four surrounding pixels. The second return is false when pt lies outside the image.
func BilinearInterpolationGray(pt r2.Point, img *image.Gray) (uint8, bool) {
	b := img.Bounds()
	maxX := float64(b.Max.X - 1)
	maxY := float64(b.Max.Y - 1)
	if pt.X < float64(b.Min.X) || pt.X > maxX || pt.Y < float64(b.Min.Y) || pt.Y > maxY {
		return 0, false
	}
	xmin := int(math.Floor(pt.X))
	ymin := int(math.Floor(pt.Y))
	xmax := utils.ClampInt(xmin+1, b.Min.X, b.Max.X-1)
	ymax := utils.ClampInt(ymin+1, b.Min.Y, b.Max.Y-1)
	dx := pt.X - float64(xmin)
	dy := pt.Y - float64(ymin)

	at := func(x, y int) float64 { return float64(img.Pix[img.PixOffset(x, y)]) }
	top := at(xmin, ymin)*(1-dx) + at(xmax, ymin)*dx
	bottom := at(xmin, ymax)*(1-dx) + at(xmax, ymax)*dx
	return utils.ClampUint8(top*(1-dy) + bottom*dy), true
}
