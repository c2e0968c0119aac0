// Package recognition runs a drawn canvas through normalization,
// classification and ranking.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/menta2k/moji-recognizer/internal/logging"
	"github.com/menta2k/moji-recognizer/pkg/client"
	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/normalizer"
	"github.com/menta2k/moji-recognizer/pkg/ranker"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

var (
	// ErrEmptyCanvas is returned when recognition is requested with no ink
	ErrEmptyCanvas = errors.New("please draw a character")
	// ErrNoClassifier is returned for a family that is unknown or disabled
	ErrNoClassifier = errors.New("no classifier for family")
	// ErrSuperseded is returned for a queued request replaced by a newer one
	ErrSuperseded = errors.New("superseded by a newer request")
)

// Model is everything needed to classify one script family
type Model struct {
	Family     types.Family
	InputSize  int
	Labels     labels.Table
	Classifier client.Classifier
}

// DebugFunc receives the canvas and the model-input image of each request
type DebugFunc func(id string, family types.Family, canvas, input image.Image)

// Options configures a Recognizer
type Options struct {
	TopK       int
	Normalizer *normalizer.Normalizer
	Debug      DebugFunc
}

// Recognizer holds the registered families and serializes classification
type Recognizer struct {
	normalizer *normalizer.Normalizer
	dispatcher *Dispatcher
	topK       int
	debug      DebugFunc

	mu       sync.RWMutex
	models   map[types.Family]Model
	disabled map[types.Family]error
}

// NewRecognizer creates a recognizer without any families
func NewRecognizer(opts Options) *Recognizer {
	if opts.Normalizer == nil {
		opts.Normalizer = normalizer.New()
	}
	if opts.TopK <= 0 {
		opts.TopK = ranker.DefaultTopK
	}
	return &Recognizer{
		normalizer: opts.Normalizer,
		dispatcher: NewDispatcher(),
		topK:       opts.TopK,
		debug:      opts.Debug,
		models:     make(map[types.Family]Model),
		disabled:   make(map[types.Family]error),
	}
}

// Register enables a family. The classifier is wrapped in client.Guard so
// that it always answers with a distribution over the family's labels.
func (r *Recognizer) Register(m Model) error {
	if _, err := types.ParseFamily(string(m.Family)); err != nil {
		return err
	}
	if m.InputSize <= 0 {
		return fmt.Errorf("%s: input size must be positive, got %d", m.Family, m.InputSize)
	}
	if err := m.Labels.Validate(); err != nil {
		return fmt.Errorf("%s: %w", m.Family, err)
	}
	if m.Classifier == nil {
		return fmt.Errorf("%s: classifier is required", m.Family)
	}
	m.Classifier = client.Guard(m.Family, m.Classifier, m.Labels.Len())

	r.mu.Lock()
	r.models[m.Family] = m
	delete(r.disabled, m.Family)
	r.mu.Unlock()

	logging.Logger().Info("family loaded", "family", m.Family, "classes", m.Labels.Len(), "input", m.InputSize)
	return nil
}

// Disable marks a family as unusable, keeping the reason for status output
func (r *Recognizer) Disable(family types.Family, reason error) {
	r.mu.Lock()
	delete(r.models, family)
	r.disabled[family] = reason
	r.mu.Unlock()

	logging.Logger().Warn("family disabled", "family", family, "reason", reason)
}

// Available returns nil if the family can be recognized, or an
// ErrNoClassifier error carrying the reason it cannot
func (r *Recognizer) Available(family types.Family) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.models[family]; ok {
		return nil
	}
	if reason, ok := r.disabled[family]; ok && reason != nil {
		return fmt.Errorf("%w %s: %w", ErrNoClassifier, family, reason)
	}
	return fmt.Errorf("%w %s", ErrNoClassifier, family)
}

// Model returns the registered model of a family
func (r *Recognizer) Model(family types.Family) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[family]
	return m, ok
}

// Families lists the enabled families in display order
func (r *Recognizer) Families() []types.Family {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []types.Family
	for _, f := range types.Families() {
		if _, ok := r.models[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// TopK returns the length of the ranked list
func (r *Recognizer) TopK() int {
	return r.topK
}

// Stats returns the dispatcher counters
func (r *Recognizer) Stats() Stats {
	return r.dispatcher.Stats()
}

// Recognize classifies the canvas as a character of family. It never
// returns nil; failures are reported through a Failed outcome.
func (r *Recognizer) Recognize(ctx context.Context, canvas image.Image, family types.Family, lang types.Language) *Outcome {
	o := newOutcome(family, lang)
	log := logging.Logger().With("id", o.ID, "family", family)

	m, ok := r.Model(family)
	if !ok {
		return r.finish(log, o.fail(r.Available(family)))
	}

	if _, ok := normalizer.InkBounds(canvas); !ok {
		return r.finish(log, o.fail(ErrEmptyCanvas))
	}
	o.advance(CaptureComplete)

	tensor, err := r.normalizer.Transform(canvas, m.InputSize)
	if err != nil {
		return r.finish(log, o.fail(err))
	}
	o.advance(Normalized)
	log.Debug("normalized", "shape", tensor.Shape())

	if r.debug != nil {
		if img, err := r.normalizer.TransformImage(canvas, m.InputSize); err == nil && img != nil {
			r.debug(o.ID, family, canvas, img)
		}
	}

	var probs []float64
	err = r.dispatcher.Do(ctx, func(ctx context.Context) error {
		var err error
		probs, err = m.Classifier.Predict(ctx, tensor)
		return err
	})
	if err != nil {
		return r.finish(log, o.fail(err))
	}
	o.Probabilities = probs
	o.advance(Classified)

	o.Top = ranker.Rank(probs, m.Labels, r.topK, lang)
	o.Best, _ = ranker.Best(probs, m.Labels, lang)
	o.advance(Ranked)
	o.Elapsed = time.Since(o.Started)

	return r.finish(log, o)
}

// Relabel returns a copy of a ranked outcome with its labels resolved for
// lang. ok is false for failed outcomes and disabled families.
func (r *Recognizer) Relabel(o *Outcome, lang types.Language) (*Outcome, bool) {
	if !o.OK() {
		return nil, false
	}
	m, ok := r.Model(o.Family)
	if !ok {
		return nil, false
	}
	out := *o
	out.Language = lang
	out.Top = ranker.Relabel(o.Top, m.Labels, lang)
	out.Best = ranker.Relabel([]ranker.Ranked{o.Best}, m.Labels, lang)[0]
	return &out, true
}

func (r *Recognizer) finish(log *slog.Logger, o *Outcome) *Outcome {
	switch {
	case o.OK():
		log.Info("recognized", "label", o.Best.Label, "probability", o.Best.Probability, "elapsed", o.Elapsed)
	case errors.Is(o.Err, ErrEmptyCanvas), errors.Is(o.Err, ErrSuperseded):
		log.Debug("recognize skipped", "reason", o.Err)
	default:
		log.Warn("recognize failed", "error", o.Err)
	}
	return o
}
