package processing

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/moji-recognizer/pkg/normalizer"
)

// DefaultInkThreshold is the gray level at or above which a loaded pixel counts as paper
const DefaultInkThreshold = 240

// Processor converts image files to drawing canvases and writes debug images
type Processor struct {
	// InkThreshold maps near-white pixels of scanned or photographed input to
	// pure background so that paper texture is not taken for ink
	InkThreshold uint8
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{InkThreshold: DefaultInkThreshold}
}

// LoadImage loads an image from a file path with WebP support
func (p *Processor) LoadImage(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.HasSuffix(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// ToCanvas flattens img onto white, fits it into a size×size square without
// changing its aspect ratio and returns it as a grayscale canvas
func (p *Processor) ToCanvas(img image.Image, size int) (*image.Gray, error) {
	if size <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %d", size)
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	flat := imaging.Overlay(imaging.New(b.Dx(), b.Dy(), color.White), img, image.Pt(0, 0), 1.0)
	if b.Dx() > size || b.Dy() > size {
		flat = imaging.Fit(flat, size, size, imaging.Lanczos)
	}
	fw, fh := flat.Bounds().Dx(), flat.Bounds().Dy()
	square := imaging.Paste(imaging.New(size, size, color.White), flat, image.Pt((size-fw)/2, (size-fh)/2))

	canvas := normalizer.ToGray(square)
	if p.InkThreshold > 0 {
		for i, v := range canvas.Pix {
			if v >= p.InkThreshold {
				canvas.Pix[i] = 255
			}
		}
	}
	return canvas, nil
}

// LoadCanvas loads an image file as a drawing canvas
func (p *Processor) LoadCanvas(path string, size int) (*image.Gray, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return p.ToCanvas(img, size)
}

// SaveImage saves an image to a file with the specified format and quality
func (p *Processor) SaveImage(img image.Image, path, format string, quality int, lossless bool) error {
	switch strings.ToLower(format) {
	case "webp":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		opts := &webp.Options{Lossless: lossless, Quality: float32(quality)}
		return webp.Encode(f, img, opts)
	case "png":
		return imaging.Save(img, path)
	default: // jpg/jpeg
		return imaging.Save(img, path, imaging.JPEGQuality(quality))
	}
}

// CreateDebugOverlay draws the ink bounding box and the padded square the
// normalizer crops to on top of the canvas
func (p *Processor) CreateDebugOverlay(canvas image.Image, paddingRatio float64) image.Image {
	nrgba := imaging.Clone(canvas)
	box, ok := normalizer.InkBounds(canvas)
	if !ok {
		return nrgba
	}

	green := color.NRGBA{0, 200, 0, 255} // ink box
	gold := color.NRGBA{255, 204, 0, 255} // padded square
	red := color.NRGBA{255, 0, 0, 255}    // square center

	w, h := box.Dx(), box.Dy()
	margin := int(math.Round(paddingRatio * float64(max(w, h))))
	side := max(w, h) + 2*margin
	cx, cy := box.Min.X+w/2, box.Min.Y+h/2
	square := image.Rect(cx-side/2, cy-side/2, cx-side/2+side, cy-side/2+side)

	drawBox(nrgba, box, green, 1)
	drawBox(nrgba, square, gold, 1)
	drawHLine(nrgba, cy, cx-4, cx+5, red)
	drawVLine(nrgba, cx, cy-4, cy+5, red)

	return nrgba
}

func drawBox(img *image.NRGBA, r image.Rectangle, color color.NRGBA, stroke int) {
	for s := 0; s < stroke; s++ {
		drawHLine(img, r.Min.Y+s, r.Min.X, r.Max.X, color)
		drawHLine(img, r.Max.Y-1-s, r.Min.X, r.Max.X, color)
		drawVLine(img, r.Min.X+s, r.Min.Y, r.Max.Y, color)
		drawVLine(img, r.Max.X-1-s, r.Min.Y, r.Max.Y, color)
	}
}

func drawHLine(img *image.NRGBA, y, x0, x1 int, c color.NRGBA) {
	if y < 0 || y >= img.Bounds().Dy() {
		return
	}
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	x0, x1 = max(x0, 0), min(x1, img.Bounds().Dx())
	if x1 <= x0 {
		return
	}
	i := y*img.Stride + x0*4
	for x := x0; x < x1; x++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += 4
	}
}

func drawVLine(img *image.NRGBA, x, y0, y1 int, c color.NRGBA) {
	if x < 0 || x >= img.Bounds().Dx() {
		return
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	y0, y1 = max(y0, 0), min(y1, img.Bounds().Dy())
	if y1 <= y0 {
		return
	}
	i := y0*img.Stride + x*4
	for y := y0; y < y1; y++ {
		img.Pix[i+0] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
		i += img.Stride
	}
}
