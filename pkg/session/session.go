// Package session translates pointer events and commands into stroke log,
// canvas and recognition operations. A Session has one owner: input events
// must not be delivered concurrently.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/menta2k/moji-recognizer/internal/logging"
	"github.com/menta2k/moji-recognizer/pkg/raster"
	"github.com/menta2k/moji-recognizer/pkg/recognition"
	"github.com/menta2k/moji-recognizer/pkg/strokes"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

// Brush widths and canvas size in pixels
const (
	MinBrushWidth     = 4
	MaxBrushWidth     = 12
	DefaultBrushWidth = 7
	DefaultCanvasSize = 320
)

// ErrBrushWidth is returned for a brush width outside [MinBrushWidth, MaxBrushWidth]
var ErrBrushWidth = errors.New("brush width out of range")

// Engine is the recognition backend a session drives
type Engine interface {
	Recognize(ctx context.Context, canvas image.Image, family types.Family, lang types.Language) *recognition.Outcome
	Available(family types.Family) error
	Relabel(o *recognition.Outcome, lang types.Language) (*recognition.Outcome, bool)
}

// Presenter shows outcomes to the user. Reset is called whenever the shown
// result no longer matches the canvas or the selected mode.
type Presenter interface {
	Show(o *recognition.Outcome)
	Reset()
}

type nopPresenter struct{}

func (nopPresenter) Show(*recognition.Outcome) {}
func (nopPresenter) Reset()                    {}

// Config holds the initial session settings
type Config struct {
	CanvasSize    int
	BrushWidth    int
	Family        types.Family
	Language      types.Language
	AutoRecognize bool
}

// DefaultConfig returns the settings of a fresh drawing window
func DefaultConfig() Config {
	return Config{
		CanvasSize: DefaultCanvasSize,
		BrushWidth: DefaultBrushWidth,
		Family:     types.Hiragana,
		Language:   types.English,
	}
}

// Session is one drawing window: a stroke log, its canvas and the selected
// family, language and brush
type Session struct {
	strokes   *strokes.Log
	raster    *raster.Rasterizer
	engine    Engine
	presenter Presenter

	brush  int
	family types.Family
	lang   types.Language
	auto   bool

	last  types.Point
	moved bool

	// epoch changes whenever shown results become stale
	epoch     atomic.Uint64
	presentMu sync.Mutex
	shown     *recognition.Outcome
	pending   sync.WaitGroup
}

// New creates a session with a blank canvas. presenter may be nil.
func New(cfg Config, engine Engine, presenter Presenter) (*Session, error) {
	if cfg.CanvasSize <= 0 {
		return nil, fmt.Errorf("canvas size must be positive, got %d", cfg.CanvasSize)
	}
	if cfg.BrushWidth == 0 {
		cfg.BrushWidth = DefaultBrushWidth
	}
	if err := checkBrush(cfg.BrushWidth); err != nil {
		return nil, err
	}
	if cfg.Language == "" {
		cfg.Language = types.English
	}
	if _, err := types.ParseLanguage(string(cfg.Language)); err != nil {
		return nil, err
	}
	if engine == nil {
		return nil, fmt.Errorf("recognition engine is required")
	}
	if err := engine.Available(cfg.Family); err != nil {
		return nil, err
	}
	if presenter == nil {
		presenter = nopPresenter{}
	}

	return &Session{
		strokes:   strokes.New(),
		raster:    raster.New(cfg.CanvasSize),
		engine:    engine,
		presenter: presenter,
		brush:     cfg.BrushWidth,
		family:    cfg.Family,
		lang:      cfg.Language,
		auto:      cfg.AutoRecognize,
	}, nil
}

// PointerDown starts a stroke at p, closing any stroke left open.
// Results still in flight for the previous canvas are dropped.
func (s *Session) PointerDown(x, y float64) {
	s.presentMu.Lock()
	s.epoch.Add(1)
	s.presentMu.Unlock()

	s.strokes.BeginStroke()
	s.last = types.Point{X: x, Y: y}
	s.moved = false
}

// PointerMove extends the open stroke to p and draws the new segment.
// Moves without an open stroke are ignored.
func (s *Session) PointerMove(x, y float64) error {
	if !s.strokes.Active() {
		return nil
	}
	p := types.Point{X: x, Y: y}
	if p == s.last {
		return nil
	}
	if err := s.extend(p); err != nil {
		return err
	}
	s.moved = true
	return nil
}

// PointerUp ends the open stroke. A press without movement leaves a dot.
func (s *Session) PointerUp(ctx context.Context, x, y float64) error {
	if !s.strokes.Active() {
		return nil
	}
	if err := s.PointerMove(x, y); err != nil {
		return err
	}
	if !s.moved {
		if err := s.extend(s.last); err != nil {
			return err
		}
	}
	s.strokes.EndStroke()

	if s.auto {
		s.RecognizeAsync(ctx)
	}
	return nil
}

func (s *Session) extend(p types.Point) error {
	seg := types.Segment{From: s.last, To: p, Width: s.brush}
	if err := s.strokes.ExtendStroke(seg); err != nil {
		return err
	}
	s.raster.DrawSegment(seg)
	s.last = p
	return nil
}

// Recognize classifies the current canvas and presents the outcome
func (s *Session) Recognize(ctx context.Context) *recognition.Outcome {
	o := s.engine.Recognize(ctx, s.raster.Snapshot(), s.family, s.lang)
	s.present(o, s.epoch.Load())
	return o
}

// RecognizeAsync classifies a snapshot of the canvas in the background.
// The outcome is dropped if the canvas or mode changes before it arrives.
func (s *Session) RecognizeAsync(ctx context.Context) {
	canvas := s.raster.Snapshot()
	family, lang := s.family, s.lang
	epoch := s.epoch.Load()

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		o := s.engine.Recognize(ctx, canvas, family, lang)
		s.present(o, epoch)
	}()
}

// Wait blocks until background recognitions have finished
func (s *Session) Wait() {
	s.pending.Wait()
}

func (s *Session) present(o *recognition.Outcome, epoch uint64) {
	if errors.Is(o.Err, recognition.ErrSuperseded) {
		return
	}
	s.presentMu.Lock()
	defer s.presentMu.Unlock()
	if epoch != s.epoch.Load() {
		logging.Logger().Debug("dropping stale outcome", "id", o.ID)
		return
	}
	s.presenter.Show(o)
	o.MarkDisplayed()
	s.shown = o
}

func (s *Session) invalidate() {
	s.presentMu.Lock()
	defer s.presentMu.Unlock()
	s.epoch.Add(1)
	s.shown = nil
	s.presenter.Reset()
}

// Undo removes the last stroke and rebuilds the canvas. It reports false
// when there was nothing to undo.
func (s *Session) Undo() bool {
	if _, ok := s.strokes.Undo(); !ok {
		return false
	}
	s.raster.Replay(s.strokes.Committed())
	s.invalidate()
	return true
}

// Redo restores the last undone stroke. It reports false when there was nothing to redo.
func (s *Session) Redo() bool {
	if _, ok := s.strokes.Redo(); !ok {
		return false
	}
	s.raster.Replay(s.strokes.Committed())
	s.invalidate()
	return true
}

// Clear erases all strokes, including the redo history
func (s *Session) Clear() {
	s.strokes.Clear()
	s.raster.Reset()
	s.invalidate()
}

// SetBrushWidth changes the width of segments drawn from now on
func (s *Session) SetBrushWidth(w int) error {
	if err := checkBrush(w); err != nil {
		return err
	}
	s.brush = w
	return nil
}

func checkBrush(w int) error {
	if w < MinBrushWidth || w > MaxBrushWidth {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrBrushWidth, w, MinBrushWidth, MaxBrushWidth)
	}
	return nil
}

// SelectMode switches the script family. Strokes are kept.
func (s *Session) SelectMode(family types.Family) error {
	if err := s.engine.Available(family); err != nil {
		return err
	}
	s.strokes.EndStroke()
	s.family = family
	s.raster.Replay(s.strokes.Committed())
	s.invalidate()
	return nil
}

// SelectLanguage switches the label language. A shown ranking is
// relabelled in place; anything else is reset.
func (s *Session) SelectLanguage(lang types.Language) error {
	if _, err := types.ParseLanguage(string(lang)); err != nil {
		return err
	}
	s.lang = lang

	s.presentMu.Lock()
	defer s.presentMu.Unlock()
	s.epoch.Add(1)
	if s.shown != nil {
		if o, ok := s.engine.Relabel(s.shown, lang); ok {
			s.shown = o
			s.presenter.Show(o)
			return nil
		}
	}
	s.shown = nil
	s.presenter.Reset()
	return nil
}

// SetAutoRecognize toggles recognition on every stroke end
func (s *Session) SetAutoRecognize(on bool) {
	s.auto = on
}

// Canvas returns a copy of the current canvas
func (s *Session) Canvas() *image.Gray {
	return s.raster.Snapshot()
}

func (s *Session) Strokes() []types.Stroke { return s.strokes.Committed() }
func (s *Session) CanUndo() bool { return s.strokes.CanUndo() }
func (s *Session) CanRedo() bool { return s.strokes.CanRedo() }
func (s *Session) Drawing() bool { return s.strokes.Active() }
func (s *Session) BrushWidth() int { return s.brush }
func (s *Session) Family() types.Family { return s.family }
func (s *Session) Language() types.Language { return s.lang }
func (s *Session) AutoRecognize() bool { return s.auto }
func (s *Session) CanvasSize() int { return s.raster.Size() }
