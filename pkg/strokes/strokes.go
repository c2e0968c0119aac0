// Package strokes records freehand input as an undoable sequence of strokes.
package strokes

import (
	"errors"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

var (
	// ErrNoActiveStroke is returned when a segment is added while no stroke is open
	ErrNoActiveStroke = errors.New("no active stroke")
	// ErrInvalidWidth is returned for segments with a non-positive brush width
	ErrInvalidWidth = errors.New("brush width must be positive")
	// ErrNotContiguous is returned when a segment does not start where the previous one ended
	ErrNotContiguous = errors.New("segment does not continue the stroke")
)

// Log is the committed strokes plus the buffer of undone strokes.
// Undo and redo only truncate or restore the tail, so replaying Committed
// in order always yields the same drawing.
type Log struct {
	committed []types.Stroke
	redo      []types.Stroke
	open      bool
}

// New returns an empty log
func New() *Log {
	return &Log{}
}

// BeginStroke opens a new empty stroke and invalidates the redo history
func (l *Log) BeginStroke() {
	l.EndStroke()
	l.committed = append(l.committed, types.Stroke{})
	l.redo = nil
	l.open = true
}

// ExtendStroke appends a segment to the open stroke
func (l *Log) ExtendStroke(seg types.Segment) error {
	if !l.open {
		return ErrNoActiveStroke
	}
	if seg.Width <= 0 {
		return ErrInvalidWidth
	}
	last := len(l.committed) - 1
	if n := len(l.committed[last]); n > 0 && l.committed[last][n-1].To != seg.From {
		return ErrNotContiguous
	}
	l.committed[last] = append(l.committed[last], seg)
	return nil
}

// EndStroke closes the open stroke. A stroke that received no segments is dropped.
func (l *Log) EndStroke() {
	if !l.open {
		return
	}
	l.open = false
	last := len(l.committed) - 1
	if len(l.committed[last]) == 0 {
		l.committed = l.committed[:last]
	}
}

// Undo moves the most recent stroke to the redo buffer.
// The boolean is false when there is nothing to undo.
func (l *Log) Undo() (types.Stroke, bool) {
	l.EndStroke()
	if len(l.committed) == 0 {
		return nil, false
	}
	last := len(l.committed) - 1
	s := l.committed[last]
	l.committed = l.committed[:last]
	l.redo = append(l.redo, s)
	return s.Clone(), true
}

// Redo moves the most recently undone stroke back to the committed sequence
func (l *Log) Redo() (types.Stroke, bool) {
	l.EndStroke()
	if len(l.redo) == 0 {
		return nil, false
	}
	last := len(l.redo) - 1
	s := l.redo[last]
	l.redo = l.redo[:last]
	l.committed = append(l.committed, s)
	return s.Clone(), true
}

// Clear empties both the committed sequence and the redo buffer
func (l *Log) Clear() {
	l.committed = nil
	l.redo = nil
	l.open = false
}

// Active reports whether a stroke is open
func (l *Log) Active() bool {
	return l.open
}

// Len returns the number of committed strokes, including an open one
func (l *Log) Len() int {
	return len(l.committed)
}

// CanUndo reports whether Undo would move a stroke
func (l *Log) CanUndo() bool {
	return len(l.committed) > 0
}

// CanRedo reports whether Redo would restore a stroke
func (l *Log) CanRedo() bool {
	return len(l.redo) > 0
}

// Committed returns a copy of the committed strokes in drawing order
func (l *Log) Committed() []types.Stroke {
	return cloneAll(l.committed)
}

// RedoBuffer returns a copy of the undone strokes, most recently undone last
func (l *Log) RedoBuffer() []types.Stroke {
	return cloneAll(l.redo)
}

func cloneAll(in []types.Stroke) []types.Stroke {
	out := make([]types.Stroke, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
