package rimage

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/sksurgery/stereovision/utils"
)

// BorderPad says how pixels outside an image are synthesized.
type BorderPad int

const (
	// BorderConstant treats outside pixels as 0.
	BorderConstant BorderPad = iota
	// BorderReplicate repeats the edge pixel: aaa|abcd|ddd.
	BorderReplicate
	// BorderReflect101 mirrors without repeating the edge pixel: cb|abcd|cb.
	BorderReflect101
)

// borderIndex maps i into [0, n). It returns -1 for BorderConstant indices outside the range.
func borderIndex(i, n int, border BorderPad) int {
	if i >= 0 && i < n {
		return i
	}
	switch border {
	case BorderReplicate:
		return utils.ClampInt(i, 0, n-1)
	case BorderReflect101:
		if n == 1 {
			return 0
		}
		period := 2 * (n - 1)
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i
	default:
		return -1
	}
}

// Kernel is a convolution kernel. Content is indexed [row][column].
type Kernel struct {
	Content [][]float64
	Height  int
	Width   int
}

// NewKernel returns a kernel from its rows, which must all share a length.
func NewKernel(content [][]float64) (*Kernel, error) {
	if len(content) == 0 || len(content[0]) == 0 {
		return nil, errors.New("kernel must not be empty")
	}
	for _, row := range content {
		if len(row) != len(content[0]) {
			return nil, errors.New("kernel rows must share a length")
		}
	}
	return &Kernel{Content: content, Height: len(content), Width: len(content[0])}, nil
}

// At returns the value of the kernel at position (x, y).
func (k *Kernel) At(x, y int) float64 {
	return k.Content[y][x]
}

// Size returns the kernel's width and height.
func (k *Kernel) Size() image.Point {
	return image.Point{k.Width, k.Height}
}

// ConvolveGray applies a convolution matrix (Kernel) to a grayscale image, with the kernel
// centered on each output pixel. Sums are rounded and clamped to [0, 255].
func ConvolveGray(img *image.Gray, kernel *Kernel, border BorderPad) *image.Gray {
	img = MakeGray(img)
	size := img.Bounds().Size()
	result := image.NewGray(img.Bounds())
	anchor := image.Point{kernel.Width / 2, kernel.Height / 2}
	utils.ParallelForEachPixel(size, func(x, y int) {
		sum := 0.0
		for ky := 0; ky < kernel.Height; ky++ {
			sy := borderIndex(y+ky-anchor.Y, size.Y, border)
			if sy < 0 {
				continue
			}
			for kx := 0; kx < kernel.Width; kx++ {
				sx := borderIndex(x+kx-anchor.X, size.X, border)
				if sx < 0 {
					continue
				}
				sum += float64(img.Pix[sy*img.Stride+sx]) * kernel.At(kx, ky)
			}
		}
		result.Pix[y*result.Stride+x] = utils.ClampUint8(sum)
	})
	return result
}

// ConvolveGraySeparable convolves with the outer product of a row kernel and a column kernel,
// both centered. The intermediate result keeps full precision and the final sums are rounded
// and clamped to [0, 255].
func ConvolveGraySeparable(img *image.Gray, rowKernel, colKernel []float64, border BorderPad) *image.Gray {
	img = MakeGray(img)
	size := img.Bounds().Size()
	w, h := size.X, size.Y
	rowAnchor := len(rowKernel) / 2
	colAnchor := len(colKernel) / 2

	horizontal := make([]float64, w*h)
	_ = utils.ParallelForEachIndex(context.Background(), h, func(y int) {
		src := img.Pix[y*img.Stride : y*img.Stride+w]
		for x := 0; x < w; x++ {
			sum := 0.0
			for k, kv := range rowKernel {
				sx := borderIndex(x+k-rowAnchor, w, border)
				if sx < 0 {
					continue
				}
				sum += float64(src[sx]) * kv
			}
			horizontal[y*w+x] = sum
		}
	})

	result := image.NewGray(image.Rect(0, 0, w, h))
	_ = utils.ParallelForEachIndex(context.Background(), h, func(y int) {
		for x := 0; x < w; x++ {
			sum := 0.0
			for k, kv := range colKernel {
				sy := borderIndex(y+k-colAnchor, h, border)
				if sy < 0 {
					continue
				}
				sum += horizontal[sy*w+x] * kv
			}
			result.Pix[y*result.Stride+x] = utils.ClampUint8(sum)
		}
	})
	return result
}
