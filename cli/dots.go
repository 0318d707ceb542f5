package cli

import (
	"image"
	"strconv"

	"github.com/golang/geo/r2"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/sksurgery/stereovision/config"
	"github.com/sksurgery/stereovision/rimage"
	"github.com/sksurgery/stereovision/vision/dotgrid"
)

const (
	annotationMarkerSize = 6
	annotationFontSize   = 12
)

// ExtractDotsAction finds the dots of a calibration target in an image and writes the
// id x y X Y Z table of the labeled dots.
func ExtractDotsAction(c *cli.Context) error {
	logger := newLogger(c)
	img, err := rimage.NewGrayFromFile(c.Path(flagImage))
	if err != nil {
		return err
	}
	intrinsics, err := config.ReadMatrixTextFile(c.Path(flagIntrinsics))
	if err != nil {
		return err
	}
	distortion, err := config.ReadMatrixTextFile(c.Path(flagDistortion))
	if err != nil {
		return err
	}
	fiducials, err := parseIntList(c.String(flagFiducials))
	if err != nil {
		return err
	}

	model := config.DotGridModel{
		Rows:      c.Int(flagRows),
		Cols:      c.Int(flagCols),
		SpacingPx: c.Float64(flagSpacingPx),
		SpacingMM: c.Float64(flagSpacingMM),
		Fiducials: fiducials,
	}
	var grid []dotgrid.GridPoint
	if path := c.Path(flagGrid); path != "" {
		m, err := config.ReadMatrixTextFile(path)
		if err != nil {
			return err
		}
		if grid, err = dotgrid.GridFromDense(m); err != nil {
			return err
		}
	} else {
		if err := model.Validate(); err != nil {
			return err
		}
		grid = model.Grid()
	}

	detections, err := dotgrid.ExtractDots(c.Context, img, intrinsics, distortion, grid, fiducials, dotgrid.WithLogger(logger))
	if err != nil {
		return err
	}
	logger.Infow("extracted dots", "dots", len(detections), "grid", len(grid))

	if path := c.Path(flagAnnotate); path != "" {
		if err := annotateDots(path, img, detections, fiducials, model.Cols); err != nil {
			return err
		}
	}
	return writeResult(c, dotgrid.DetectionsToDense(detections))
}

// annotateDots draws every detection over img, colored by its grid row, with fiducials
// circled.
func annotateDots(path string, img *image.Gray, detections []dotgrid.Detection, fiducials []int, cols int) error {
	dc := rimage.NewDrawingContext(img)
	palette := rimage.Palette(8)
	for _, d := range detections {
		row := 0
		if cols > 0 {
			row = d.ID / cols
		}
		rimage.DrawCross(dc, d.Pixel, annotationMarkerSize, palette[row%len(palette)], 1)
		if lo.Contains(fiducials, d.ID) {
			rimage.DrawCircle(dc, d.Pixel, 2*annotationMarkerSize, rimage.Red, 2)
		}
		rimage.DrawString(dc, strconv.Itoa(d.ID),
			r2.Point{X: d.Pixel.X + annotationMarkerSize, Y: d.Pixel.Y - annotationMarkerSize},
			rimage.Yellow, annotationFontSize)
	}
	return rimage.WriteImageToFile(path, dc.Image())
}
