package rimage

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is an RGB color that also carries its HSV coordinates.
type Color struct {
	R, G, B uint8
	H, S, V float64
}

func (c Color) String() string {
	return fmt.Sprintf("%s (%3d,%4.2f,%4.2f)", c.Hex(), int(c.H), c.S, c.V)
}

// Hex returns the #rrggbb form of the color.
func (c Color) Hex() string {
	return fmt.Sprintf("#%.2x%.2x%.2x", c.R, c.G, c.B)
}

// RGBA implements color.Color.
func (c Color) RGBA() (r, g, b, a uint32) {
	return color.RGBA{c.R, c.G, c.B, 255}.RGBA()
}

// NewColor returns the color with the given 8-bit channels.
func NewColor(r, g, b uint8) Color {
	cc := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}
	h, s, v := cc.Hsv()
	return Color{R: r, G: g, B: b, H: h, S: s, V: v}
}

// NewColorFromHex parses a #rrggbb color.
func NewColorFromHex(hex string) (Color, error) {
	cc, err := colorful.Hex(hex)
	if err != nil {
		return Color{}, fmt.Errorf("couldn't parse hex (%s): %w", hex, err)
	}
	r, g, b := cc.RGB255()
	return NewColor(r, g, b), nil
}

// NewColorFromHSV returns the color with hue h in degrees and saturation and value in [0, 1].
func NewColorFromHSV(h, s, v float64) Color {
	r, g, b := colorful.Hsv(h, s, v).RGB255()
	return Color{R: r, G: g, B: b, H: h, S: s, V: v}
}

// Palette returns n fully saturated colors with evenly spaced hues, starting at red.
func Palette(n int) []Color {
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = NewColorFromHSV(360*float64(i)/float64(n), 1, 1)
	}
	return colors
}

var (
	// Red marks rejected or fiducial points in annotations.
	Red = NewColor(255, 0, 0)
	// Green marks accepted points in annotations.
	Green = NewColor(0, 255, 0)
	// Yellow is used for annotation labels.
	Yellow = NewColor(255, 255, 0)
)
