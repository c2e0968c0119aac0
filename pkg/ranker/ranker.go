// Package ranker turns a classifier probability vector into display results.
package ranker

import (
	"math"
	"sort"

	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

// DefaultTopK is the number of alternatives shown alongside the best guess
const DefaultTopK = 5

// Ranked is one class with its resolved label and probability
type Ranked struct {
	Index       int     `json:"index"`
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Percent returns the probability as a rounded percentage for display
func (r Ranked) Percent() int {
	return int(math.Round(r.Probability * 100))
}

// Rank orders the classes by descending probability and keeps the first
// min(topK, N). Equal probabilities keep ascending class index order.
// A non-positive topK keeps all classes.
func Rank(probs []float64, table labels.Table, topK int, lang types.Language) []Ranked {
	n := len(probs)
	if topK <= 0 || topK > n {
		topK = n
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return probs[order[a]] > probs[order[b]]
	})

	out := make([]Ranked, topK)
	for i := 0; i < topK; i++ {
		idx := order[i]
		out[i] = Ranked{
			Index:       idx,
			Label:       table.Label(idx, lang),
			Probability: probs[idx],
		}
	}
	return out
}

// Best returns the argmax class. ok is false for an empty vector.
func Best(probs []float64, table labels.Table, lang types.Language) (Ranked, bool) {
	if len(probs) == 0 {
		return Ranked{}, false
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return Ranked{Index: best, Label: table.Label(best, lang), Probability: probs[best]}, true
}

// Relabel resolves the labels of already ranked entries for another language
func Relabel(ranked []Ranked, table labels.Table, lang types.Language) []Ranked {
	out := make([]Ranked, len(ranked))
	for i, r := range ranked {
		r.Label = table.Label(r.Index, lang)
		out[i] = r
	}
	return out
}
