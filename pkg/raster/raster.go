// Package raster renders strokes into the single-channel canvas image.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

const (
	// Background is the value of a pixel that carries no ink
	Background = 255

	// kappa places cubic control points so that a quarter arc approximates a circle
	kappa = 0.5522847498
)

var ink = image.NewUniform(color.Gray{Y: 0})

// Rasterizer keeps a canvas image in sync with a stroke log.
// Segments can be drawn one at a time as they arrive, and the whole
// canvas can be rebuilt from the committed strokes; both paths produce
// identical pixels because they draw the same segments in the same order.
type Rasterizer struct {
	size   int
	canvas *image.Gray
	z      *vector.Rasterizer
}

// New creates a rasterizer with a blank size×size canvas
func New(size int) *Rasterizer {
	r := &Rasterizer{
		size: size,
		z:    vector.NewRasterizer(0, 0),
	}
	r.Reset()
	return r
}

// Size returns the side length of the canvas
func (r *Rasterizer) Size() int {
	return r.size
}

// Reset blanks the canvas
func (r *Rasterizer) Reset() {
	r.canvas = Blank(r.size)
}

// Canvas returns the live canvas. Callers must not modify it.
func (r *Rasterizer) Canvas() *image.Gray {
	return r.canvas
}

// Snapshot returns a copy of the canvas that later drawing does not affect
func (r *Rasterizer) Snapshot() *image.Gray {
	out := image.NewGray(r.canvas.Rect)
	copy(out.Pix, r.canvas.Pix)
	return out
}

// Replay blanks the canvas and draws every segment of every stroke in order
func (r *Rasterizer) Replay(strokes []types.Stroke) {
	r.Reset()
	for _, s := range strokes {
		for _, seg := range s {
			r.DrawSegment(seg)
		}
	}
}

// DrawSegment paints one segment as a round-capped line of the segment's width
func (r *Rasterizer) DrawSegment(seg types.Segment) {
	radius := float64(seg.Width) / 2
	if radius <= 0 {
		return
	}

	minX := math.Min(seg.From.X, seg.To.X) - radius
	minY := math.Min(seg.From.Y, seg.To.Y) - radius
	maxX := math.Max(seg.From.X, seg.To.X) + radius
	maxY := math.Max(seg.From.Y, seg.To.Y) + radius
	box := image.Rect(
		int(math.Floor(minX))-1, int(math.Floor(minY))-1,
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	).Intersect(r.canvas.Rect)
	if box.Empty() {
		return
	}

	r.z.Reset(box.Dx(), box.Dy())
	r.z.DrawOp = draw.Over
	capsule(r.z, seg.From, seg.To, radius, box.Min)
	r.z.Draw(r.canvas, box, ink, image.Point{})
}

// Render draws the strokes onto a fresh size×size canvas
func Render(size int, strokes []types.Stroke) *image.Gray {
	r := New(size)
	r.Replay(strokes)
	return r.canvas
}

// Blank returns a size×size canvas filled with the background value
func Blank(size int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = Background
	}
	return img
}

// HasInk reports whether any pixel is darker than the background
func HasInk(img *image.Gray) bool {
	b := img.Rect
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, v := range row {
			if v < Background {
				return true
			}
		}
	}
	return false
}

// capsule adds the outline of a round-capped segment to z as one closed
// convex path: the two long sides joined by a half circle at each end.
// Coordinates are shifted by -origin into the rasterizer's local space.
func capsule(z *vector.Rasterizer, from, to types.Point, radius float64, origin image.Point) {
	dx, dy := to.X-from.X, to.Y-from.Y
	length := math.Hypot(dx, dy)
	ux, uy := 1.0, 0.0
	if length > 0 {
		ux, uy = dx/length, dy/length
	}
	// n is the left normal of the travel direction
	nx, ny := -uy, ux

	ox, oy := float64(origin.X), float64(origin.Y)
	pt := func(cx, cy, ax, ay, bx, by float64) (float32, float32) {
		return float32(cx + radius*ax + radius*bx - ox), float32(cy + radius*ay + radius*by - oy)
	}
	arc := func(cx, cy, ax, ay, bx, by float64) {
		c1x, c1y := pt(cx, cy, ax, ay, kappa*bx, kappa*by)
		c2x, c2y := pt(cx, cy, bx, by, kappa*ax, kappa*ay)
		ex, ey := pt(cx, cy, bx, by, 0, 0)
		z.CubeTo(c1x, c1y, c2x, c2y, ex, ey)
	}

	z.MoveTo(pt(from.X, from.Y, nx, ny, 0, 0))
	z.LineTo(pt(to.X, to.Y, nx, ny, 0, 0))
	arc(to.X, to.Y, nx, ny, ux, uy)
	arc(to.X, to.Y, ux, uy, -nx, -ny)
	z.LineTo(pt(from.X, from.Y, -nx, -ny, 0, 0))
	arc(from.X, from.Y, -nx, -ny, -ux, -uy)
	arc(from.X, from.Y, -ux, -uy, nx, ny)
	z.ClosePath()
}
