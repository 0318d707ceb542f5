package dotgrid

import (
	"github.com/golang/geo/r2"

	"github.com/sksurgery/stereovision/vision/blob"
)

// OrderFiducials sorts four fiducial blobs into top-left, top-right, bottom-left, bottom-right
// by their quadrant around the blobs' centroid. It reports false when two blobs fall in the
// same quadrant, which happens once the target is rotated by about 45 degrees or more in the
// image.
func OrderFiducials(fiducials []blob.Blob) ([]blob.Blob, bool) {
	if len(fiducials) != NumFiducials {
		return nil, false
	}
	var centroid r2.Point
	for _, f := range fiducials {
		centroid = centroid.Add(f.Point)
	}
	centroid = centroid.Mul(1 / float64(len(fiducials)))

	ordered := make([]blob.Blob, NumFiducials)
	filled := make([]bool, NumFiducials)
	for _, f := range fiducials {
		score := 0
		if f.Point.X > centroid.X {
			score++
		}
		if f.Point.Y > centroid.Y {
			score += 2
		}
		if filled[score] {
			return nil, false
		}
		ordered[score] = f
		filled[score] = true
	}
	return ordered, true
}
