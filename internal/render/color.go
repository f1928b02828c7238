package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is an opaque-or-translucent sRGB color. Out of range lightness is
// clamped the way CSS clamps hsl() arguments.
type Color struct {
	RGB   colorful.Color
	Alpha float64
}

// HSL builds a color from CSS style hue degrees and percent saturation and
// lightness.
func HSL(h, s, l float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return Color{RGB: colorful.Hsl(h, clampPercent(s)/100, clampPercent(l)/100).Clamped(), Alpha: 1}
}

func RGBA(r, g, b uint8, a float64) Color {
	return Color{
		RGB:   colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255},
		Alpha: a,
	}
}

// Hex parses #rrggbb.
func Hex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, err
	}
	return Color{RGB: c, Alpha: 1}, nil
}

func clampPercent(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// CSS renders the color as rgba().
func (c Color) CSS() string {
	r, g, b := c.RGB.Clamped().RGB255()
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(c.Alpha, 'f', -1, 64))
}

func (c Color) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(c.CSS())), nil
}

// NRGBA converts to a non-premultiplied image color.
func (c Color) NRGBA() color.NRGBA {
	r, g, b := c.RGB.Clamped().RGB255()
	a := c.Alpha
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}

// Blend mixes towards other by t in [0, 1].
func (c Color) Blend(other Color, t float64) Color {
	return Color{
		RGB:   c.RGB.BlendRgb(other.RGB, t),
		Alpha: c.Alpha + (other.Alpha-c.Alpha)*t,
	}
}
