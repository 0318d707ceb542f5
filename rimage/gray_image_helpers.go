// Package rimage holds the grayscale image loading, filtering and drawing helpers used by the
// stereo and calibration-target code.
package rimage

import (
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// ErrImageSizeMismatch is returned when two images that must share a size do not.
var ErrImageSizeMismatch = errors.New("image sizes do not match")

// SameImgSize compares images to see if they're the same size.
func SameImgSize(g1, g2 image.Image) bool {
	return g1.Bounds().Dx() == g2.Bounds().Dx() && g1.Bounds().Dy() == g2.Bounds().Dy()
}

// CheckSameImgSize returns an error wrapping ErrImageSizeMismatch when the images differ in size.
func CheckSameImgSize(g1, g2 image.Image) error {
	if g1 == nil || g2 == nil {
		return errors.New("input image is nil")
	}
	if !SameImgSize(g1, g2) {
		return errors.Wrapf(ErrImageSizeMismatch, "(%d %d) != (%d %d)",
			g1.Bounds().Dx(), g1.Bounds().Dy(), g2.Bounds().Dx(), g2.Bounds().Dy())
	}
	return nil
}

// MakeGray converts any image to an *image.Gray with bounds starting at the origin. Gray
// images that already start at the origin are returned as is.
func MakeGray(pic image.Image) *image.Gray {
	if g, ok := pic.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	b := pic.Bounds()
	result := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(result, result.Bounds(), pic, b.Min, draw.Src)
	return result
}

// GrayAtClamped returns the pixel at (x, y) with coordinates clamped into the image.
func GrayAtClamped(img *image.Gray, x, y int) uint8 {
	b := img.Bounds()
	if x < b.Min.X {
		x = b.Min.X
	} else if x >= b.Max.X {
		x = b.Max.X - 1
	}
	if y < b.Min.Y {
		y = b.Min.Y
	} else if y >= b.Max.Y {
		y = b.Max.Y - 1
	}
	return img.Pix[img.PixOffset(x, y)]
}
