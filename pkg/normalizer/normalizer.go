package normalizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

// ErrInvalidSize is returned for a non-positive model input size or an empty canvas rectangle
var ErrInvalidSize = errors.New("invalid normalization size")

// background is the canvas value of a pixel without ink
const background = 255

var white = color.NRGBA{R: background, G: background, B: background, A: 255}

// Normalizer turns a canvas image into the fixed-size tensor a classifier expects
type Normalizer struct {
	config Config
	filter imaging.ResampleFilter
}

// Config holds the tunable constants of the normalization
type Config struct {
	// PaddingRatio is the margin added on every side, as a fraction of the longer crop side
	PaddingRatio float64
	// Contrast multiplies the inverted values before clipping to [0,1]
	Contrast float64
	// Filter names the resampling filter: lanczos, box, linear or catmullrom
	Filter string
}

// DefaultConfig returns the constants the shipped classifiers were tuned with
func DefaultConfig() Config {
	return Config{
		PaddingRatio: 0.20,
		Contrast:     1.2,
		Filter:       "lanczos",
	}
}

// New creates a Normalizer with default configuration
func New() *Normalizer {
	n, _ := NewWithConfig(DefaultConfig())
	return n
}

// NewWithConfig creates a Normalizer with custom configuration
func NewWithConfig(config Config) (*Normalizer, error) {
	if config.PaddingRatio < 0 {
		return nil, fmt.Errorf("padding ratio must not be negative, got %f", config.PaddingRatio)
	}
	if config.Contrast <= 0 {
		return nil, fmt.Errorf("contrast must be positive, got %f", config.Contrast)
	}
	filter, err := ParseFilter(config.Filter)
	if err != nil {
		return nil, err
	}
	return &Normalizer{config: config, filter: filter}, nil
}

// Config returns the configuration in use
func (n *Normalizer) Config() Config {
	return n.config
}

// ParseFilter maps a filter name to an antialiasing resampling filter.
// Nearest-neighbour is deliberately not offered: it can break thin strokes.
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "lanczos":
		return imaging.Lanczos, nil
	case "box", "area":
		return imaging.Box, nil
	case "linear", "bilinear":
		return imaging.Linear, nil
	case "catmullrom", "bicubic":
		return imaging.CatmullRom, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("unsupported resampling filter: %q", name)
}

// Transform normalizes the canvas into a modelInput×modelInput tensor.
// A canvas without ink yields an all-background tensor rather than an error.
func (n *Normalizer) Transform(canvas image.Image, modelInput int) (types.Tensor, error) {
	square, err := n.TransformImage(canvas, modelInput)
	if err != nil {
		return types.Tensor{}, err
	}
	if square == nil {
		return types.NewTensor(modelInput), nil
	}
	return n.toTensor(square, modelInput), nil
}

// TransformImage runs the geometric part of the normalization and returns the
// resized grayscale image before inversion. It returns nil when the canvas has no ink.
func (n *Normalizer) TransformImage(canvas image.Image, modelInput int) (*image.NRGBA, error) {
	if modelInput <= 0 {
		return nil, fmt.Errorf("%w: model input %d", ErrInvalidSize, modelInput)
	}
	if canvas.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty canvas", ErrInvalidSize)
	}

	if _, isGray := canvas.(*image.Gray); !isGray {
		canvas = ToGray(canvas)
	}

	box, ok := InkBounds(canvas)
	if !ok {
		return nil, nil
	}

	cropped := imaging.Crop(canvas, box)
	w, h := cropped.Bounds().Dx(), cropped.Bounds().Dy()

	margin := int(math.Round(n.config.PaddingRatio * float64(max(w, h))))
	padded := imaging.Paste(imaging.New(w+2*margin, h+2*margin, white), cropped, image.Pt(margin, margin))

	pw, ph := padded.Bounds().Dx(), padded.Bounds().Dy()
	side := max(pw, ph)
	square := imaging.Paste(imaging.New(side, side, white), padded, image.Pt((side-pw)/2, (side-ph)/2))

	return imaging.Resize(square, modelInput, modelInput, n.filter), nil
}

// toTensor inverts polarity, scales to [0,1] and applies the contrast boost
func (n *Normalizer) toTensor(img *image.NRGBA, size int) types.Tensor {
	t := types.NewTensor(size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			g := img.Pix[img.PixOffset(x, y)]
			t.Data[y*size+x] = Scale(g, n.config.Contrast)
		}
	}
	return t
}

// Scale converts one canvas gray value to its tensor value
func Scale(gray uint8, contrast float64) float32 {
	v := float64(background-int(gray)) / background * contrast
	return float32(math.Min(1, math.Max(0, v)))
}

// ToGray converts any image to an 8-bit grayscale canvas with the same bounds
func ToGray(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

// InkBounds returns the tight rectangle around all pixels darker than the
// background. The rectangle is half-open, so it includes the last ink row and column.
func InkBounds(img image.Image) (image.Rectangle, bool) {
	b := img.Bounds()
	x1, y1 := b.Max.X, b.Max.Y
	x2, y2 := b.Min.X-1, b.Min.Y-1

	gray, isGray := img.(*image.Gray)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			var v uint8
			if isGray {
				v = gray.Pix[gray.PixOffset(x, y)]
			} else {
				v = color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y
			}
			if v >= background {
				continue
			}
			x1, y1 = min(x1, x), min(y1, y)
			x2, y2 = max(x2, x), max(y2, y)
		}
	}
	if x2 < x1 {
		return image.Rectangle{}, false
	}
	return image.Rect(x1, y1, x2+1, y2+1), true
}
