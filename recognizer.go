// Package mojirecognizer recognizes hand-drawn Japanese characters.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"log"
//
//		mojirecognizer "github.com/menta2k/moji-recognizer"
//	)
//
//	func main() {
//		// nil selects the default configuration
//		rec, err := mojirecognizer.New(context.Background(), nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		s, err := rec.NewSession(nil)
//		if err != nil {
//			log.Fatal(err)
//		}
//		s.PointerDown(100, 100)
//		_ = s.PointerMove(200, 220)
//		_ = s.PointerUp(context.Background(), 200, 220)
//
//		o := s.Recognize(context.Background())
//		if o.Err != nil {
//			log.Fatal(o.Err)
//		}
//		fmt.Printf("%s %d%%\n", o.Best.Label, o.Best.Percent())
//	}
//
// A Recognizer is built from a config.Config. Each configured script family
// gets its label table and a classifier backend (TensorFlow Serving, or a
// vision model served by Ollama or llama.cpp). Families that fail to load are disabled unless they
// are marked required, in which case New fails.
package mojirecognizer

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/menta2k/moji-recognizer/internal/config"
	"github.com/menta2k/moji-recognizer/internal/logging"
	"github.com/menta2k/moji-recognizer/internal/utils"
	"github.com/menta2k/moji-recognizer/pkg/client"
	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/llamacpp"
	"github.com/menta2k/moji-recognizer/pkg/normalizer"
	"github.com/menta2k/moji-recognizer/pkg/ollama"
	"github.com/menta2k/moji-recognizer/pkg/processing"
	"github.com/menta2k/moji-recognizer/pkg/recognition"
	"github.com/menta2k/moji-recognizer/pkg/session"
	"github.com/menta2k/moji-recognizer/pkg/tfserving"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

// Version of the recognizer library
const Version = "1.0.0"

// BackendFactory builds the classifier of one family
type BackendFactory func(fc config.FamilyConfig, table labels.Table) (client.Classifier, error)

// Recognizer provides a high-level interface over the recognition pipeline
type Recognizer struct {
	config     *config.Config
	engine     *recognition.Recognizer
	normalizer *normalizer.Normalizer
	processor  *processing.Processor
}

// New creates a Recognizer whose families use the configured backends
func New(ctx context.Context, cfg *config.Config) (*Recognizer, error) {
	return NewWithBackends(ctx, cfg, NewBackend)
}

// NewWithBackends creates a Recognizer that builds classifiers with factory
func NewWithBackends(ctx context.Context, cfg *config.Config, factory BackendFactory) (*Recognizer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	n, err := normalizer.NewWithConfig(cfg.NormalizerSettings())
	if err != nil {
		return nil, err
	}

	proc := processing.NewProcessor()
	proc.InkThreshold = uint8(cfg.Output.InkThreshold)

	rec := &Recognizer{
		config:     cfg,
		normalizer: n,
		processor:  proc,
	}

	opts := recognition.Options{TopK: cfg.Ranker.TopK, Normalizer: n}
	if cfg.Output.DebugDir != "" {
		if err := utils.EnsureDir(cfg.Output.DebugDir); err != nil {
			return nil, fmt.Errorf("failed to create debug directory: %w", err)
		}
		opts.Debug = rec.saveDebug
	}
	rec.engine = recognition.NewRecognizer(opts)

	configured := map[types.Family]bool{}
	for _, fc := range cfg.Families {
		family, _ := types.ParseFamily(fc.Name)
		configured[family] = true

		if err := rec.loadFamily(ctx, family, fc, factory); err != nil {
			if fc.Required {
				return nil, err
			}
			rec.engine.Disable(family, err)
		}
	}

	for _, family := range types.Families() {
		if !configured[family] {
			rec.engine.Disable(family, client.Unavailable(family, fmt.Errorf("not configured")))
		}
	}

	return rec, nil
}

func (r *Recognizer) loadFamily(ctx context.Context, family types.Family, fc config.FamilyConfig, factory BackendFactory) error {
	table, err := labels.LoadFile(fc.Labels, family)
	if err != nil {
		return client.Unavailable(family, err)
	}

	c, err := factory(fc, table)
	if err != nil {
		return client.Unavailable(family, err)
	}

	if err := client.Check(ctx, family, c); err != nil {
		return err
	}

	if err := r.engine.Register(recognition.Model{
		Family:     family,
		InputSize:  fc.InputSize,
		Labels:     table,
		Classifier: c,
	}); err != nil {
		return client.Unavailable(family, err)
	}
	return nil
}

// NewBackend builds the classifier named by fc.Backend
func NewBackend(fc config.FamilyConfig, table labels.Table) (client.Classifier, error) {
	timeout, err := fc.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	switch fc.Backend {
	case config.BackendTFServing:
		c, err := tfserving.NewClient(fc.URL, fc.Model, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendOllama:
		c, err := ollama.NewClient(fc.URL, fc.Model, table, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.BackendLlamaCpp:
		c, err := llamacpp.NewClient(fc.URL, fc.Model, table, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", fc.Backend)
	}
}

// NewSession creates an interactive drawing session using the configured
// canvas and session settings. A nil presenter discards outcomes.
func (r *Recognizer) NewSession(presenter session.Presenter) (*session.Session, error) {
	family, err := types.ParseFamily(r.config.Session.Family)
	if err != nil {
		return nil, err
	}
	lang, err := types.ParseLanguage(r.config.Session.Language)
	if err != nil {
		return nil, err
	}

	return session.New(session.Config{
		CanvasSize:    r.config.Canvas.Size,
		BrushWidth:    r.config.Canvas.BrushWidth,
		Family:        family,
		Language:      lang,
		AutoRecognize: r.config.Session.AutoRecognize,
	}, r.engine, presenter)
}

// RecognizeImage fits img onto a canvas and classifies it
func (r *Recognizer) RecognizeImage(ctx context.Context, img image.Image, family types.Family, lang types.Language) (*recognition.Outcome, error) {
	canvas, err := r.processor.ToCanvas(img, r.config.Canvas.Size)
	if err != nil {
		return nil, err
	}
	return r.engine.Recognize(ctx, canvas, family, lang), nil
}

// RecognizeFile loads an image file and classifies it
func (r *Recognizer) RecognizeFile(ctx context.Context, path string, family types.Family, lang types.Language) (*recognition.Outcome, error) {
	canvas, err := r.processor.LoadCanvas(path, r.config.Canvas.Size)
	if err != nil {
		return nil, err
	}
	return r.engine.Recognize(ctx, canvas, family, lang), nil
}

// Available reports why family cannot be recognized, or nil
func (r *Recognizer) Available(family types.Family) error {
	return r.engine.Available(family)
}

// Families returns the families with a registered classifier
func (r *Recognizer) Families() []types.Family {
	return r.engine.Families()
}

// Engine returns the underlying recognition engine
func (r *Recognizer) Engine() *recognition.Recognizer {
	return r.engine
}

// Config returns the configuration the recognizer was built from
func (r *Recognizer) Config() *config.Config {
	return r.config
}

// saveDebug writes the model input and an annotated canvas of one request
func (r *Recognizer) saveDebug(id string, family types.Family, canvas, input image.Image) {
	out := r.config.Output
	format := strings.ToLower(out.DebugFormat)
	name := id + "_" + string(family)
	log := logging.Logger()

	files := []struct {
		suffix string
		img    image.Image
	}{
		{"_input", input},
		{"_overlay", r.processor.CreateDebugOverlay(canvas, r.config.Normalizer.PaddingRatio)},
	}
	for _, f := range files {
		path := utils.GenerateOutputFilename(name, out.DebugDir, "", f.suffix, format)
		if err := r.processor.SaveImage(f.img, path, format, out.Quality, false); err != nil {
			log.Warn("failed to save debug image", "path", path, "error", err)
			continue
		}
		log.Debug("debug image saved", "path", filepath.Base(path))
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
