package rimage

import (
	"image"
	"math"

	"github.com/pkg/errors"

	"github.com/sksurgery/stereovision/utils"
)

// fixed binomial kernels used for small apertures when no sigma is given.
var smallGaussianKernels = map[int][]float64{
	1: {1},
	3: {0.25, 0.5, 0.25},
	5: {0.0625, 0.25, 0.375, 0.25, 0.0625},
	7: {0.03125, 0.109375, 0.21875, 0.28125, 0.21875, 0.109375, 0.03125},
}

// GaussianFunction1D takes in a sigma and returns a gaussian function useful for weighing averages or blurring.
func GaussianFunction1D(sigma float64) func(p float64) float64 {
	if sigma <= 0. {
		return func(p float64) float64 {
			return 1.
		}
	}
	return func(p float64) float64 {
		return math.Exp(-0.5*math.Pow(p, 2)/math.Pow(sigma, 2)) / (sigma * math.Sqrt(2.*math.Pi))
	}
}

// GaussianKernel1D returns a normalized gaussian kernel of odd length size. A non positive sigma
// is derived from the size, and for sizes up to 7 selects the binomial kernel.
func GaussianKernel1D(size int, sigma float64) ([]float64, error) {
	if size <= 0 || size%2 == 0 {
		return nil, errors.Errorf("gaussian kernel size must be odd and positive, got %d", size)
	}
	if sigma <= 0 {
		if k, ok := smallGaussianKernels[size]; ok {
			return append([]float64{}, k...), nil
		}
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	gaus := GaussianFunction1D(sigma)
	kernel := make([]float64, size)
	sum := 0.0
	for i := range kernel {
		kernel[i] = gaus(float64(i - size/2))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel, nil
}

// GaussianBlur smooths img with a size x size gaussian, mirroring at the borders.
func GaussianBlur(img *image.Gray, size int, sigma float64) (*image.Gray, error) {
	kernel, err := GaussianKernel1D(size, sigma)
	if err != nil {
		return nil, err
	}
	return ConvolveGraySeparable(img, kernel, kernel, BorderReflect101), nil
}

// AdaptiveThresholdMean binarizes img against the mean of the blockSize x blockSize
// neighborhood around each pixel: the output is 255 where the pixel is brighter than the local
// mean minus offset, and 0 elsewhere. Dark features on a bright background come out 0. The
// neighborhood repeats edge pixels at the borders.
func AdaptiveThresholdMean(img *image.Gray, blockSize int, offset float64) (*image.Gray, error) {
	if blockSize < 3 || blockSize%2 == 0 {
		return nil, errors.Errorf("threshold block size must be odd and at least 3, got %d", blockSize)
	}
	img = MakeGray(img)
	size := img.Bounds().Size()
	w, h := size.X, size.Y
	radius := blockSize / 2

	// integral image over the replicate-padded input
	pw, ph := w+2*radius, h+2*radius
	integral := make([]int64, (pw+1)*(ph+1))
	for y := 0; y < ph; y++ {
		sy := utils.ClampInt(y-radius, 0, h-1)
		var rowSum int64
		for x := 0; x < pw; x++ {
			sx := utils.ClampInt(x-radius, 0, w-1)
			rowSum += int64(img.Pix[sy*img.Stride+sx])
			integral[(y+1)*(pw+1)+x+1] = integral[y*(pw+1)+x+1] + rowSum
		}
	}

	area := float64(blockSize * blockSize)
	result := image.NewGray(image.Rect(0, 0, w, h))
	utils.ParallelForEachPixel(size, func(x, y int) {
		// block covering padded [x, x+blockSize) x [y, y+blockSize)
		x0, y0, x1, y1 := x, y, x+blockSize, y+blockSize
		sum := integral[y1*(pw+1)+x1] - integral[y0*(pw+1)+x1] - integral[y1*(pw+1)+x0] + integral[y0*(pw+1)+x0]
		mean := math.Round(float64(sum) / area)
		if float64(img.Pix[y*img.Stride+x]) > mean-offset {
			result.Pix[y*result.Stride+x] = 255
		}
	})
	return result, nil
}
