package raster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/moji-recognizer/pkg/strokes"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

func segment(x1, y1, x2, y2 float64, width int) types.Segment {
	return types.Segment{From: types.Point{X: x1, Y: y1}, To: types.Point{X: x2, Y: y2}, Width: width}
}

// randomLog builds a stroke log from random walks, with undo/redo mixed in
func randomLog(t *testing.T, rng *rand.Rand, size int) (*strokes.Log, []types.Segment) {
	t.Helper()
	l := strokes.New()
	var drawn []types.Segment
	for s := 0; s < 6; s++ {
		l.BeginStroke()
		p := types.Point{X: rng.Float64() * float64(size), Y: rng.Float64() * float64(size)}
		width := 4 + rng.Intn(9)
		for i := 0; i < 20; i++ {
			next := types.Point{X: p.X + rng.Float64()*20 - 10, Y: p.Y + rng.Float64()*20 - 10}
			seg := types.Segment{From: p, To: next, Width: width}
			require.NoError(t, l.ExtendStroke(seg))
			drawn = append(drawn, seg)
			p = next
		}
		l.EndStroke()
	}
	return l, drawn
}

func TestBlankCanvas(t *testing.T) {
	r := New(320)
	c := r.Canvas()
	assert.Equal(t, 320, c.Rect.Dx())
	assert.Equal(t, 320, c.Rect.Dy())
	assert.False(t, HasInk(c))
	for _, v := range c.Pix {
		if v != Background {
			t.Fatalf("expected blank canvas, found value %d", v)
		}
	}
}

func TestDrawSegmentPaintsInk(t *testing.T) {
	r := New(100)
	r.DrawSegment(segment(20, 50, 80, 50, 8))
	c := r.Canvas()

	require.True(t, HasInk(c))
	assert.Equal(t, uint8(0), c.GrayAt(50, 50).Y, "centre of the line is solid ink")
	assert.Equal(t, uint8(0), c.GrayAt(20, 50).Y, "round cap covers the start point")
	assert.Equal(t, uint8(Background), c.GrayAt(50, 40).Y, "pixels beyond the half width stay blank")
	assert.Equal(t, uint8(Background), c.GrayAt(10, 50).Y, "pixels beyond the cap stay blank")
}

func TestDotSegment(t *testing.T) {
	r := New(64)
	r.DrawSegment(segment(32, 32, 32, 32, 10))
	c := r.Canvas()

	assert.Equal(t, uint8(0), c.GrayAt(32, 32).Y)
	assert.Equal(t, uint8(Background), c.GrayAt(32, 45).Y)
	// a dot is round, so the diagonal extent is shorter than the square would be
	assert.Equal(t, uint8(Background), c.GrayAt(37, 37).Y)
}

func TestSegmentOutsideCanvas(t *testing.T) {
	r := New(50)
	assert.NotPanics(t, func() {
		r.DrawSegment(segment(-100, -100, -90, -90, 6))
		r.DrawSegment(segment(45, 25, 80, 25, 6))
	})
	assert.Equal(t, uint8(0), r.Canvas().GrayAt(49, 25).Y)
}

func TestIncrementalMatchesReplay(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 5; trial++ {
		l, drawn := randomLog(t, rng, 320)

		incremental := New(320)
		for _, seg := range drawn {
			incremental.DrawSegment(seg)
		}

		replayed := New(320)
		replayed.Replay(l.Committed())

		assert.Equal(t, incremental.Canvas().Pix, replayed.Canvas().Pix, "trial %d", trial)
	}
}

func TestReplayAfterUndoMatchesFreshRender(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	l, drawn := randomLog(t, rng, 200)

	r := New(200)
	for _, seg := range drawn {
		r.DrawSegment(seg)
	}

	l.Undo()
	l.Undo()
	l.Redo()
	r.Replay(l.Committed())

	assert.Equal(t, Render(200, l.Committed()).Pix, r.Canvas().Pix)
}

func TestSnapshotIsIndependent(t *testing.T) {
	r := New(40)
	snap := r.Snapshot()
	r.DrawSegment(segment(5, 5, 35, 35, 6))

	assert.False(t, HasInk(snap))
	assert.True(t, HasInk(r.Canvas()))
}

func TestReset(t *testing.T) {
	r := New(40)
	r.DrawSegment(segment(5, 5, 35, 35, 6))
	r.Reset()
	assert.False(t, HasInk(r.Canvas()))
}

func BenchmarkDrawSegment(b *testing.B) {
	r := New(320)
	seg := segment(100, 100, 110, 104, 7)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		r.DrawSegment(seg)
	}
}
