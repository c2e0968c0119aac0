// Package vlm turns a vision language model into a classifier over a label
// table: it renders the model input, writes the prompt and parses the reply.
package vlm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

// Candidate is one class proposed by the model. Either Index or Label identifies it.
type Candidate struct {
	Index *int    `json:"index,omitempty"`
	Label string  `json:"label,omitempty"`
	Score float64 `json:"score"`
}

// Reply is the JSON document the prompt asks for
type Reply struct {
	Candidates []Candidate `json:"candidates"`
}

// Prompt lists the vocabulary with its class indices and asks for JSON only
func Prompt(table labels.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The image shows one hand-drawn Japanese %s character, black ink on white.\n", table.Family)
	b.WriteString("Pick the classes it most likely is from this list (index: character):\n")
	for i, e := range table.Entries {
		fmt.Fprintf(&b, "%d: %s\n", i, e)
	}
	b.WriteString(`
Return JSON only:
{"candidates": [{"index": 0, "score": 0.0}]}

RULES
- At most 10 candidates, best first.
- score is your confidence in [0,1].
- Use only indices from the list.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`)
	return b.String()
}

// ParseReply converts a model reply into a probability vector over the table.
// Unknown classes are ignored. If no usable score remains the distribution is uniform.
func ParseReply(raw string, table labels.Table) ([]float64, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(raw, "{") {
		return nil, fmt.Errorf("model returned non-JSON response")
	}

	var reply Reply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	n := table.Len()
	probs := make([]float64, n)
	var total float64
	for _, cand := range reply.Candidates {
		idx := resolve(cand, table)
		if idx < 0 || cand.Score <= 0 {
			continue
		}
		probs[idx] += cand.Score
		total += cand.Score
	}

	if total == 0 {
		for i := range probs {
			probs[i] = 1 / float64(n)
		}
		return probs, nil
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs, nil
}

// resolve finds the class index of a candidate, or -1
func resolve(cand Candidate, table labels.Table) int {
	if cand.Index != nil {
		if *cand.Index >= 0 && *cand.Index < table.Len() {
			return *cand.Index
		}
		return -1
	}
	label := strings.TrimSpace(cand.Label)
	if label == "" {
		return -1
	}
	for i, e := range table.Entries {
		if e.Native == label || (e.Romaji != "" && strings.EqualFold(e.Romaji, label)) {
			return i
		}
	}
	return -1
}

// EncodePNG renders the tensor with TensorImage and encodes it as PNG
func EncodePNG(t types.Tensor) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, TensorImage(t), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// TensorImage renders a tensor as a grayscale image with dark ink on white
func TensorImage(t types.Tensor) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, t.Size, t.Size))
	for i, v := range t.Data {
		img.Pix[i] = 255 - uint8(min(1, max(0, v))*255+0.5)
	}
	return img
}

var (
	reBlock    = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reLine     = regexp.MustCompile(`(?m)^\s*//.*$`)
	reInline   = regexp.MustCompile(`(?m)//.*$`)
	reTrailing = regexp.MustCompile(`,(\s*[}\]])`)
)

// sanitizeModelJSON removes code fences, comments, and trailing commas from JSON response
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	raw = reBlock.ReplaceAllString(raw, "")
	raw = reLine.ReplaceAllString(raw, "")
	raw = reInline.ReplaceAllString(raw, "")
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
