// Package blob finds round dark or light regions in a binary image and reports their centers and
// diameters, filtered by area, circularity, inertia and convexity.
package blob

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Blob is a detected region: its center in pixels and its diameter.
type Blob struct {
	Point r2.Point
	Size  float64
}

// A Detector finds blobs in a gray image.
type Detector interface {
	Detect(img *image.Gray) ([]Blob, error)
}

// Params configures the simple detector. Each filter rejects blobs whose measure falls outside
// [Min, Max).
type Params struct {
	// Threshold binarizes the input: pixels >= Threshold are 255, the rest 0.
	Threshold uint8
	// FilterByColor keeps blobs whose center pixel, binarized, equals BlobColor.
	FilterByColor bool
	BlobColor     uint8

	FilterByArea bool
	MinArea      float64
	MaxArea      float64

	// circularity is 4*pi*area / perimeter^2, 1 for a circle
	FilterByCircularity bool
	MinCircularity      float64
	MaxCircularity      float64

	// inertia ratio is the minor over the major second moment, 1 for a circle
	FilterByInertia bool
	MinInertiaRatio float64
	MaxInertiaRatio float64

	// convexity is area over convex hull area
	FilterByConvexity bool
	MinConvexity      float64
	MaxConvexity      float64
}

// DefaultParams returns the parameters of a common blob detector configuration: dark blobs of
// area [25, 5000), inertia ratio of at least 0.1 and convexity of at least 0.95.
func DefaultParams() Params {
	inf := math.Inf(1)
	return Params{
		Threshold:           128,
		FilterByColor:       true,
		BlobColor:           0,
		FilterByArea:        true,
		MinArea:             25,
		MaxArea:             5000,
		FilterByCircularity: false,
		MinCircularity:      0.8,
		MaxCircularity:      inf,
		FilterByInertia:     true,
		MinInertiaRatio:     0.1,
		MaxInertiaRatio:     inf,
		FilterByConvexity:   true,
		MinConvexity:        0.95,
		MaxConvexity:        inf,
	}
}

// CheckValid checks that every enabled filter has a non-empty range.
func (p Params) CheckValid() error {
	for _, f := range []struct {
		name     string
		on       bool
		min, max float64
	}{
		{"area", p.FilterByArea, p.MinArea, p.MaxArea},
		{"circularity", p.FilterByCircularity, p.MinCircularity, p.MaxCircularity},
		{"inertia", p.FilterByInertia, p.MinInertiaRatio, p.MaxInertiaRatio},
		{"convexity", p.FilterByConvexity, p.MinConvexity, p.MaxConvexity},
	} {
		if f.on && !(f.min < f.max) {
			return errors.Errorf("blob %s filter range [%v, %v) is empty", f.name, f.min, f.max)
		}
	}
	if p.BlobColor != 0 && p.BlobColor != 255 {
		return errors.Errorf("blob color must be 0 or 255, got %d", p.BlobColor)
	}
	return nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v < hi
}
