// Package raster draws render frames into images for snapshots.
package raster

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"voicefront/internal/render"
)

// capSegments is the number of edges used to approximate a round cap.
const capSegments = 8

// Rasterize paints f into a new image.
func Rasterize(f render.Frame) *image.RGBA {
	w, h := f.Width, f.Height
	if w <= 0 || h <= 0 {
		w, h = render.DefaultWidth, render.DefaultHeight
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	fillGradient(img, f.Background)

	z := vector.NewRasterizer(w, h)
	for _, s := range f.Segments {
		strokeSegment(img, z, s)
	}
	if m := f.Meter; m != nil {
		fillRect(img, z, m.Fill, m.FillColor)
		strokeRect(img, z, m.Outline, m.OutlineColor)
		strokeSegment(img, z, m.Threshold)
	}
	return img
}

// EncodePNG writes f as a PNG image.
func EncodePNG(w io.Writer, f render.Frame) error {
	if err := png.Encode(w, Rasterize(f)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// DataURL returns f as a base64 PNG data URL.
func DataURL(f render.Frame) (string, error) {
	var buf bytes.Buffer
	if err := EncodePNG(&buf, f); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func fillGradient(img *image.RGBA, g render.Gradient) {
	b := img.Bounds()
	span := float64(b.Dy() - 1)
	if span <= 0 {
		span = 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		c := g.Top.Blend(g.Bottom, float64(y-b.Min.Y)/span).NRGBA()
		row := image.Rect(b.Min.X, y, b.Max.X, y+1)
		draw.Draw(img, row, image.NewUniform(c), image.Point{}, draw.Over)
	}
}

func paint(img *image.RGBA, z *vector.Rasterizer, c render.Color) {
	z.Draw(img, img.Bounds(), image.NewUniform(c.NRGBA()), image.Point{})
}

// strokeSegment fills the outline of a thick line with round caps.
func strokeSegment(img *image.RGBA, z *vector.Rasterizer, s render.Segment) {
	half := s.Width / 2
	if half <= 0 {
		return
	}
	dx, dy := s.To.X-s.From.X, s.To.Y-s.From.Y
	length := math.Hypot(dx, dy)
	angle := 0.0
	if length > 0 {
		angle = math.Atan2(dy, dx)
	}

	b := img.Bounds()
	z.Reset(b.Dx(), b.Dy())
	// Half circle around To, then the opposite half around From.
	first := true
	arc := func(cx, cy, start float64) {
		for i := 0; i <= capSegments; i++ {
			a := start + math.Pi*float64(i)/capSegments
			x, y := float32(cx+half*math.Cos(a)), float32(cy+half*math.Sin(a))
			if first {
				z.MoveTo(x, y)
				first = false
				continue
			}
			z.LineTo(x, y)
		}
	}
	arc(s.To.X, s.To.Y, angle-math.Pi/2)
	arc(s.From.X, s.From.Y, angle+math.Pi/2)
	z.ClosePath()
	paint(img, z, s.Color)
}

func fillRect(img *image.RGBA, z *vector.Rasterizer, r render.Rect, c render.Color) {
	if r.W <= 0 || r.H <= 0 {
		return
	}
	b := img.Bounds()
	z.Reset(b.Dx(), b.Dy())
	z.MoveTo(float32(r.X), float32(r.Y))
	z.LineTo(float32(r.X+r.W), float32(r.Y))
	z.LineTo(float32(r.X+r.W), float32(r.Y+r.H))
	z.LineTo(float32(r.X), float32(r.Y+r.H))
	z.ClosePath()
	paint(img, z, c)
}

func strokeRect(img *image.RGBA, z *vector.Rasterizer, r render.Rect, c render.Color) {
	corners := []render.Point{
		{X: r.X, Y: r.Y},
		{X: r.X + r.W, Y: r.Y},
		{X: r.X + r.W, Y: r.Y + r.H},
		{X: r.X, Y: r.Y + r.H},
	}
	for i := range corners {
		strokeSegment(img, z, render.Segment{
			From:  corners[i],
			To:    corners[(i+1)%len(corners)],
			Width: 1,
			Color: c,
		})
	}
}
