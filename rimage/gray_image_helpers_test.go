package rimage

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.viam.com/test"
)

func TestSameImgSize(t *testing.T) {
	a := image.NewGray(image.Rect(0, 0, 10, 5))
	b := image.NewRGBA(image.Rect(3, 3, 13, 8))
	c := image.NewGray(image.Rect(0, 0, 5, 10))
	test.That(t, SameImgSize(a, b), test.ShouldBeTrue)
	test.That(t, CheckSameImgSize(a, b), test.ShouldBeNil)
	test.That(t, SameImgSize(a, c), test.ShouldBeFalse)

	err := CheckSameImgSize(a, c)
	test.That(t, errors.Is(err, ErrImageSizeMismatch), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "(10 5) != (5 10)")

	test.That(t, CheckSameImgSize(a, nil), test.ShouldNotBeNil)
}

func TestMakeGray(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(2, 2, 6, 5))
	rgba.Set(2, 2, color.RGBA{255, 255, 255, 255})
	gray := MakeGray(rgba)
	test.That(t, gray.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	test.That(t, gray.GrayAt(0, 0).Y, test.ShouldEqual, uint8(255))
	test.That(t, GrayAtClamped(gray, -5, -5), test.ShouldEqual, uint8(255))
	test.That(t, GrayAtClamped(gray, 10, 10), test.ShouldEqual, uint8(0))
}

func TestBilinearInterpolationGray(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{0})
	img.SetGray(1, 0, color.Gray{100})
	img.SetGray(0, 1, color.Gray{100})
	img.SetGray(1, 1, color.Gray{200})

	v, ok := BilinearInterpolationGray(r2.Point{X: 0.5, Y: 0.5}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, uint8(100))

	v, ok = BilinearInterpolationGray(r2.Point{X: 1, Y: 1}, img)
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, uint8(200))

	_, ok = BilinearInterpolationGray(r2.Point{X: 1.5, Y: 0}, img)
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = BilinearInterpolationGray(r2.Point{X: -0.1, Y: 0}, img)
	test.That(t, ok, test.ShouldBeFalse)
}

func TestImageFileRoundTrip(t *testing.T) {
	img := FilledDiscsImage(40, 30, []r2.Point{{X: 20, Y: 15}}, 5)
	test.That(t, img.GrayAt(20, 15).Y, test.ShouldEqual, uint8(0))
	test.That(t, img.GrayAt(2, 2).Y, test.ShouldEqual, uint8(255))

	path := filepath.Join(t.TempDir(), "target.png")
	test.That(t, WriteImageToFile(path, img), test.ShouldBeNil)

	read, err := NewGrayFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Bounds(), test.ShouldResemble, img.Bounds())
	test.That(t, read.Pix, test.ShouldResemble, img.Pix)

	_, err = NewGrayFromFile(filepath.Join(t.TempDir(), "missing.png"))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestReadPPM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.ppm")
	data := append([]byte("P6\n3 1\n255\n"), 255, 255, 255, 0, 0, 0, 255, 255, 255)
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)

	read, err := NewGrayFromFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, read.Pix, test.ShouldResemble, []uint8{255, 0, 255})
}
