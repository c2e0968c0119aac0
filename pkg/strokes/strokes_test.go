package strokes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

func seg(x1, y1, x2, y2 float64) types.Segment {
	return types.Segment{From: types.Point{X: x1, Y: y1}, To: types.Point{X: x2, Y: y2}, Width: 7}
}

// drawStroke commits a stroke through the three public stroke operations
func drawStroke(t *testing.T, l *Log, segs ...types.Segment) {
	t.Helper()
	l.BeginStroke()
	for _, s := range segs {
		require.NoError(t, l.ExtendStroke(s))
	}
	l.EndStroke()
}

func TestExtendWithoutBegin(t *testing.T) {
	l := New()
	assert.ErrorIs(t, l.ExtendStroke(seg(0, 0, 1, 1)), ErrNoActiveStroke)

	drawStroke(t, l, seg(0, 0, 1, 1))
	assert.ErrorIs(t, l.ExtendStroke(seg(1, 1, 2, 2)), ErrNoActiveStroke, "extend after end")
}

func TestExtendValidation(t *testing.T) {
	l := New()
	l.BeginStroke()

	bad := seg(0, 0, 1, 1)
	bad.Width = 0
	assert.ErrorIs(t, l.ExtendStroke(bad), ErrInvalidWidth)

	require.NoError(t, l.ExtendStroke(seg(0, 0, 5, 5)))
	assert.ErrorIs(t, l.ExtendStroke(seg(6, 6, 7, 7)), ErrNotContiguous)
	require.NoError(t, l.ExtendStroke(seg(5, 5, 7, 7)))
}

func TestUndoRedoExample(t *testing.T) {
	l := New()
	s1 := seg(10, 10, 20, 20)
	drawStroke(t, l, s1)

	undone, ok := l.Undo()
	require.True(t, ok)
	assert.Equal(t, types.Stroke{s1}, undone)
	assert.Empty(t, l.Committed())
	assert.Equal(t, []types.Stroke{{s1}}, l.RedoBuffer())

	redone, ok := l.Redo()
	require.True(t, ok)
	assert.Equal(t, types.Stroke{s1}, redone)
	assert.Equal(t, []types.Stroke{{s1}}, l.Committed())
	assert.Empty(t, l.RedoBuffer())
}

func TestUndoRedoInverse(t *testing.T) {
	l := New()
	drawStroke(t, l, seg(0, 0, 1, 1), seg(1, 1, 2, 2))
	drawStroke(t, l, seg(5, 5, 6, 6))
	drawStroke(t, l, seg(9, 9, 9, 9))

	before := l.Committed()
	_, ok := l.Undo()
	require.True(t, ok)
	_, ok = l.Redo()
	require.True(t, ok)
	assert.Equal(t, before, l.Committed())
}

func TestNothingToUndoOrRedo(t *testing.T) {
	l := New()
	s, ok := l.Undo()
	assert.False(t, ok)
	assert.Nil(t, s)

	s, ok = l.Redo()
	assert.False(t, ok)
	assert.Nil(t, s)
}

func TestNewStrokeClearsRedo(t *testing.T) {
	l := New()
	drawStroke(t, l, seg(0, 0, 1, 1))
	drawStroke(t, l, seg(2, 2, 3, 3))

	_, ok := l.Undo()
	require.True(t, ok)
	require.True(t, l.CanRedo())

	drawStroke(t, l, seg(4, 4, 5, 5))
	assert.False(t, l.CanRedo())

	_, ok = l.Redo()
	assert.False(t, ok, "redo after a new stroke must be a no-op")
	assert.Equal(t, 2, l.Len())
}

func TestUndoOrderIsLastInFirstOut(t *testing.T) {
	l := New()
	a, b, c := seg(0, 0, 1, 0), seg(0, 1, 1, 1), seg(0, 2, 1, 2)
	drawStroke(t, l, a)
	drawStroke(t, l, b)
	drawStroke(t, l, c)

	l.Undo()
	l.Undo()
	assert.Equal(t, []types.Stroke{{a}}, l.Committed())
	assert.Equal(t, []types.Stroke{{c}, {b}}, l.RedoBuffer())

	l.Redo()
	assert.Equal(t, []types.Stroke{{a}, {b}}, l.Committed())
	assert.Equal(t, []types.Stroke{{c}}, l.RedoBuffer())
}

func TestEmptyStrokeIsDropped(t *testing.T) {
	l := New()
	drawStroke(t, l, seg(0, 0, 1, 1))
	l.BeginStroke()
	assert.True(t, l.Active())
	l.EndStroke()

	assert.False(t, l.Active())
	assert.Equal(t, 1, l.Len())
}

func TestEndStrokeWithoutBegin(t *testing.T) {
	l := New()
	assert.NotPanics(t, l.EndStroke)
	assert.Equal(t, 0, l.Len())
}

func TestUndoClosesOpenStroke(t *testing.T) {
	l := New()
	l.BeginStroke()
	require.NoError(t, l.ExtendStroke(seg(0, 0, 3, 3)))

	_, ok := l.Undo()
	require.True(t, ok)
	assert.False(t, l.Active())
	assert.ErrorIs(t, l.ExtendStroke(seg(3, 3, 4, 4)), ErrNoActiveStroke)
}

func TestClear(t *testing.T) {
	l := New()
	drawStroke(t, l, seg(0, 0, 1, 1))
	drawStroke(t, l, seg(1, 1, 2, 2))
	l.Undo()

	l.Clear()
	assert.Empty(t, l.Committed())
	assert.Empty(t, l.RedoBuffer())
	assert.False(t, l.CanUndo())
	assert.False(t, l.CanRedo())
}

func TestCommittedIsACopy(t *testing.T) {
	l := New()
	drawStroke(t, l, seg(0, 0, 1, 1))

	got := l.Committed()
	got[0][0].Width = 99
	assert.Equal(t, 7, l.Committed()[0][0].Width)
}
