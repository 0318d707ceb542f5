package blob

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"github.com/sksurgery/stereovision/utils"
)

// simpleDetector binarizes the image, finds the 8-connected components of BlobColor pixels and
// keeps the ones that pass the shape filters.
type simpleDetector struct {
	params Params
}

// NewSimpleDetector creates a detector with the given parameters.
func NewSimpleDetector(params Params) (Detector, error) {
	if err := params.CheckValid(); err != nil {
		return nil, err
	}
	return &simpleDetector{params}, nil
}

// Detect returns the blobs in scan order of their top-left pixel.
func (sd *simpleDetector) Detect(img *image.Gray) ([]Blob, error) {
	if img == nil {
		return nil, errors.New("image is nil")
	}
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	in := func(x, y int) bool {
		if x < 0 || y < 0 || x >= width || y >= height {
			return false
		}
		return sd.binarize(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)]) == sd.params.BlobColor
	}

	seen := make([]bool, width*height)
	blobs := []Blob{}
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			indx := j*width + i
			if seen[indx] {
				continue
			}
			if !in(i, j) {
				seen[indx] = true
				continue
			}
			// row major scan makes (i, j) the component's top-left pixel
			pixels := component(image.Point{i, j}, width, in, seen)
			contour := traceContour(image.Point{i, j}, in, 4*len(pixels)+4)
			if blob, ok := sd.measure(pixels, contour, in); ok {
				blobs = append(blobs, blob)
			}
		}
	}
	return blobs, nil
}

func (sd *simpleDetector) binarize(v uint8) uint8 {
	if v >= sd.params.Threshold {
		return 255
	}
	return 0
}

var eightNeighbors = []image.Point{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}

// component collects the 8-connected pixels reachable from start, marking them seen.
func component(start image.Point, width int, in func(x, y int) bool, seen []bool) []image.Point {
	queue := []image.Point{start}
	seen[start.Y*width+start.X] = true
	pixels := []image.Point{}
	for len(queue) != 0 {
		pt := queue[0]
		queue = queue[1:]
		pixels = append(pixels, pt)
		for _, d := range eightNeighbors {
			p := pt.Add(d)
			if !in(p.X, p.Y) {
				continue
			}
			indx := p.Y*width + p.X
			if seen[indx] {
				continue
			}
			seen[indx] = true
			queue = append(queue, p)
		}
	}
	return pixels
}

// traceContour walks the outer boundary clockwise with Moore neighbor tracing, starting from
// the component's top-left pixel, and stops on Jacob's criterion: back at the start about to
// repeat the first move. Directions index eightNeighbors.
func traceContour(start image.Point, in func(x, y int) bool, maxSteps int) []image.Point {
	contour := []image.Point{start}
	next := func(cur image.Point, arrivedBy int) (int, bool) {
		for k := 0; k < 8; k++ {
			dir := (arrivedBy + 6 + k) % 8
			p := cur.Add(eightNeighbors[dir])
			if in(p.X, p.Y) {
				return dir, true
			}
		}
		return 0, false
	}

	// everything above and left of start is background, as if arrived moving east
	firstDir, ok := next(start, 0)
	if !ok {
		return contour
	}
	cur := start.Add(eightNeighbors[firstDir])
	dir := firstDir
	// a boundary pixel is entered at most four times
	for steps := 0; steps < maxSteps; steps++ {
		d, _ := next(cur, dir)
		if cur == start && d == firstDir {
			break
		}
		contour = append(contour, cur)
		cur = cur.Add(eightNeighbors[d])
		dir = d
	}
	return contour
}

func (sd *simpleDetector) measure(pixels, contour []image.Point, in func(x, y int) bool) (Blob, bool) {
	p := sd.params
	area := polygonArea(contour)
	if p.FilterByArea && !inRange(area, p.MinArea, p.MaxArea) {
		return Blob{}, false
	}

	if p.FilterByCircularity {
		perimeter := polygonPerimeter(contour)
		if perimeter == 0 {
			return Blob{}, false
		}
		if c := 4 * math.Pi * area / (perimeter * perimeter); !inRange(c, p.MinCircularity, p.MaxCircularity) {
			return Blob{}, false
		}
	}

	m := pixelMoments(pixels)
	if p.FilterByInertia && !inRange(m.inertiaRatio(), p.MinInertiaRatio, p.MaxInertiaRatio) {
		return Blob{}, false
	}

	if p.FilterByConvexity {
		hullArea := polygonArea(convexHull(contour))
		if hullArea == 0 || !inRange(area/hullArea, p.MinConvexity, p.MaxConvexity) {
			return Blob{}, false
		}
	}

	center := r2.Point{X: m.m10 / m.m00, Y: m.m01 / m.m00}
	if p.FilterByColor && !in(int(math.Round(center.X)), int(math.Round(center.Y))) {
		return Blob{}, false
	}

	dists := make([]float64, len(contour))
	for i, c := range contour {
		dists[i] = r2.Point{X: float64(c.X), Y: float64(c.Y)}.Sub(center).Norm()
	}
	return Blob{Point: center, Size: 2 * utils.Median(dists...)}, true
}

type moments struct {
	m00, m10, m01    float64
	mu20, mu02, mu11 float64
}

func pixelMoments(pixels []image.Point) moments {
	var m moments
	for _, pt := range pixels {
		m.m00++
		m.m10 += float64(pt.X)
		m.m01 += float64(pt.Y)
	}
	cx, cy := m.m10/m.m00, m.m01/m.m00
	for _, pt := range pixels {
		dx, dy := float64(pt.X)-cx, float64(pt.Y)-cy
		m.mu20 += dx * dx
		m.mu02 += dy * dy
		m.mu11 += dx * dy
	}
	return m
}

// inertiaRatio is the ratio of the smallest to the largest principal second moment.
func (m moments) inertiaRatio() float64 {
	denominator := math.Hypot(2*m.mu11, m.mu20-m.mu02)
	const eps = 1e-2
	if denominator <= eps {
		return 1
	}
	cosmin := (m.mu20 - m.mu02) / denominator
	sinmin := 2 * m.mu11 / denominator
	half := 0.5 * (m.mu20 + m.mu02)
	imin := half - 0.5*(m.mu20-m.mu02)*cosmin - m.mu11*sinmin
	imax := half + 0.5*(m.mu20-m.mu02)*cosmin + m.mu11*sinmin
	if imax == 0 {
		return 1
	}
	return imin / imax
}

// polygonArea is the shoelace area of the closed polygon through pts.
func polygonArea(pts []image.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	sum := 0
	for i, a := range pts {
		c := pts[(i+1)%len(pts)]
		sum += a.X*c.Y - c.X*a.Y
	}
	return math.Abs(float64(sum)) / 2
}

// polygonPerimeter is the length of the closed chain through pts.
func polygonPerimeter(pts []image.Point) float64 {
	if len(pts) < 2 {
		return 0
	}
	total := 0.0
	for i, a := range pts {
		d := pts[(i+1)%len(pts)].Sub(a)
		total += math.Hypot(float64(d.X), float64(d.Y))
	}
	return total
}
