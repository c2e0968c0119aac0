package types

import (
	"fmt"
	"strings"
)

// Point is a position on the drawing canvas in canvas pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a straight piece of ink between two sampled pointer positions
type Segment struct {
	From  Point `json:"from"`
	To    Point `json:"to"`
	Width int   `json:"width"`
}

// Stroke is the ink produced between one pointer-down and the following pointer-up.
// Consecutive segments share their end and start points.
type Stroke []Segment

// Clone returns a copy of the stroke that does not share storage
func (s Stroke) Clone() Stroke {
	if s == nil {
		return nil
	}
	out := make(Stroke, len(s))
	copy(out, s)
	return out
}

// Family identifies a script family with its own vocabulary and classifier
type Family string

const (
	Hiragana  Family = "hiragana"
	Katakana  Family = "katakana"
	Kanji     Family = "kanji"
	Kuzushiji Family = "kuzushiji"
)

// Families lists the supported script families in display order
func Families() []Family {
	return []Family{Hiragana, Katakana, Kanji, Kuzushiji}
}

// ParseFamily resolves a family name case-insensitively
func ParseFamily(name string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Families() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown script family: %q", name)
}

// Language selects which side of a (native, transliterated) label pair is shown
type Language string

const (
	English  Language = "en"
	Japanese Language = "ja"
)

// ParseLanguage accepts "en"/"english" and "ja"/"jp"/"japanese"/"日本語"
func ParseLanguage(name string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "en", "english":
		return English, nil
	case "ja", "jp", "japanese", "日本語":
		return Japanese, nil
	}
	return "", fmt.Errorf("unknown display language: %q", name)
}

// Tensor is a model-ready image of logical shape (1, Size, Size, 1),
// stored row-major. Values are in [0,1] with ink as the high value.
type Tensor struct {
	Size int       `json:"size"`
	Data []float32 `json:"data"`
}

// NewTensor returns an all-background tensor of the given side length
func NewTensor(size int) Tensor {
	return Tensor{Size: size, Data: make([]float32, size*size)}
}

// At returns the value at column x, row y
func (t Tensor) At(x, y int) float32 {
	return t.Data[y*t.Size+x]
}

// Shape returns the batch, height, width and channel dimensions
func (t Tensor) Shape() [4]int {
	return [4]int{1, t.Size, t.Size, 1}
}

// Rows returns the tensor as Size rows of Size single-channel pixels,
// the nesting expected by Keras-style predict endpoints.
func (t Tensor) Rows() [][][]float32 {
	rows := make([][][]float32, t.Size)
	for y := 0; y < t.Size; y++ {
		row := make([][]float32, t.Size)
		for x := 0; x < t.Size; x++ {
			row[x] = []float32{t.Data[y*t.Size+x]}
		}
		rows[y] = row
	}
	return rows
}
