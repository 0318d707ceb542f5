package rimage

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/golang/geo/r2"
	"golang.org/x/image/font/gofont/goregular"
)

var font *truetype.Font

// init sets up the fonts we want to use.
func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// Font returns the font we use for drawing.
func Font() *truetype.Font {
	return font
}

// NewDrawingContext returns a gg context holding a color copy of img.
func NewDrawingContext(img image.Image) *gg.Context {
	dc := gg.NewContext(img.Bounds().Dx(), img.Bounds().Dy())
	dc.DrawImage(img, -img.Bounds().Min.X, -img.Bounds().Min.Y)
	return dc
}

// DrawString writes a string to the given context at a particular point.
func DrawString(dc *gg.Context, text string, p r2.Point, c color.Color, size float64) {
	dc.SetFontFace(truetype.NewFace(Font(), &truetype.Options{Size: size}))
	dc.SetColor(c)
	dc.DrawString(text, p.X, p.Y)
}

// DrawCircle outlines a circle of the given radius around center.
func DrawCircle(dc *gg.Context, center r2.Point, radius float64, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawCircle(center.X, center.Y, radius)
	dc.Stroke()
}

// DrawCross draws a + marker of the given half length at center.
func DrawCross(dc *gg.Context, center r2.Point, halfLength float64, c color.Color, width float64) {
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.DrawLine(center.X-halfLength, center.Y, center.X+halfLength, center.Y)
	dc.Stroke()
	dc.DrawLine(center.X, center.Y-halfLength, center.X, center.Y+halfLength)
	dc.Stroke()
}

// FilledDiscsImage renders dark filled discs on a white background. It is how synthetic
// calibration targets are drawn.
func FilledDiscsImage(width, height int, centers []r2.Point, radius float64) *image.Gray {
	dc := gg.NewContext(width, height)
	dc.SetColor(color.White)
	dc.Clear()
	dc.SetColor(color.Black)
	for _, c := range centers {
		dc.DrawCircle(c.X, c.Y, radius)
		dc.Fill()
	}
	return ToGray(dc.Image())
}
