package recognition

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/moji-recognizer/pkg/client"
	"github.com/menta2k/moji-recognizer/pkg/labels"
	"github.com/menta2k/moji-recognizer/pkg/raster"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

func hiraganaTable() labels.Table {
	return labels.New(types.Hiragana,
		labels.Entry{Native: "あ", Romaji: "a"},
		labels.Entry{Native: "い", Romaji: "i"},
		labels.Entry{Native: "う", Romaji: "u"},
	)
}

// drawn returns a canvas with a single diagonal stroke
func drawn() *image.Gray {
	r := raster.New(320)
	r.DrawSegment(types.Segment{From: types.Point{X: 100, Y: 100}, To: types.Point{X: 200, Y: 220}, Width: 7})
	return r.Canvas()
}

type countingClassifier struct {
	probs []float64
	err   error
	calls int
	size  int
}

func (c *countingClassifier) Predict(_ context.Context, t types.Tensor) ([]float64, error) {
	c.calls++
	c.size = t.Size
	return c.probs, c.err
}

func newRecognizer(t *testing.T, c client.Classifier) *Recognizer {
	t.Helper()
	r := NewRecognizer(Options{TopK: 2})
	require.NoError(t, r.Register(Model{Family: types.Hiragana, InputSize: 48, Labels: hiraganaTable(), Classifier: c}))
	return r
}

func TestRecognize(t *testing.T) {
	c := &countingClassifier{probs: []float64{0.1, 0.7, 0.2}}
	r := newRecognizer(t, c)

	o := r.Recognize(context.Background(), drawn(), types.Hiragana, types.English)
	require.NoError(t, o.Err)
	assert.Equal(t, Ranked, o.State)
	assert.True(t, o.OK())
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, 48, c.size)

	assert.Equal(t, "i", o.Best.Label)
	assert.Equal(t, 70, o.Best.Percent())
	require.Len(t, o.Top, 2)
	assert.Equal(t, "u", o.Top[1].Label)
	assert.Len(t, o.Probabilities, 3)

	o.MarkDisplayed()
	assert.Equal(t, Displayed, o.State)
}

func TestRecognizeJapaneseLabels(t *testing.T) {
	r := newRecognizer(t, &countingClassifier{probs: []float64{0.1, 0.7, 0.2}})
	o := r.Recognize(context.Background(), drawn(), types.Hiragana, types.Japanese)
	require.True(t, o.OK())
	assert.Equal(t, "い", o.Best.Label)
}

func TestRecognizeEmptyCanvas(t *testing.T) {
	c := &countingClassifier{probs: []float64{1, 0, 0}}
	r := newRecognizer(t, c)

	o := r.Recognize(context.Background(), raster.Blank(320), types.Hiragana, types.English)
	assert.ErrorIs(t, o.Err, ErrEmptyCanvas)
	assert.Equal(t, Failed, o.State)
	assert.Zero(t, c.calls, "the classifier is not called for an empty canvas")

	o.MarkDisplayed()
	assert.Equal(t, Failed, o.State)
}

func TestRecognizeInferenceFailure(t *testing.T) {
	r := newRecognizer(t, &countingClassifier{err: errors.New("timeout")})

	o := r.Recognize(context.Background(), drawn(), types.Hiragana, types.English)
	assert.ErrorIs(t, o.Err, client.ErrInferenceFailure)
	assert.Equal(t, Failed, o.State)
	assert.Empty(t, o.Top, "failed outcomes carry no partial result")
	assert.Nil(t, o.Probabilities)
}

func TestRecognizeWrongVectorLength(t *testing.T) {
	r := newRecognizer(t, &countingClassifier{probs: []float64{0.5, 0.5}})

	o := r.Recognize(context.Background(), drawn(), types.Hiragana, types.English)
	assert.ErrorIs(t, o.Err, client.ErrInferenceFailure)
}

func TestRecognizeDisabledFamily(t *testing.T) {
	r := newRecognizer(t, &countingClassifier{probs: []float64{1, 0, 0}})
	r.Disable(types.Kanji, client.Unavailable(types.Kanji, errors.New("model file missing")))

	o := r.Recognize(context.Background(), drawn(), types.Kanji, types.English)
	assert.ErrorIs(t, o.Err, ErrNoClassifier)
	assert.ErrorIs(t, o.Err, client.ErrClassifierUnavailable)

	o = r.Recognize(context.Background(), drawn(), types.Katakana, types.English)
	assert.ErrorIs(t, o.Err, ErrNoClassifier)

	assert.Equal(t, []types.Family{types.Hiragana}, r.Families())
	assert.NoError(t, r.Available(types.Hiragana))
}

func TestRegisterValidation(t *testing.T) {
	r := NewRecognizer(Options{})
	c := &countingClassifier{}

	assert.Error(t, r.Register(Model{Family: "cyrillic", InputSize: 48, Labels: hiraganaTable(), Classifier: c}))
	assert.Error(t, r.Register(Model{Family: types.Hiragana, InputSize: 0, Labels: hiraganaTable(), Classifier: c}))
	assert.Error(t, r.Register(Model{Family: types.Hiragana, InputSize: 48, Classifier: c}))
	assert.Error(t, r.Register(Model{Family: types.Hiragana, InputSize: 48, Labels: hiraganaTable()}))
	assert.Equal(t, 5, r.TopK())
}

func TestRegisterReenablesFamily(t *testing.T) {
	r := NewRecognizer(Options{})
	r.Disable(types.Hiragana, errors.New("offline"))
	assert.ErrorIs(t, r.Available(types.Hiragana), ErrNoClassifier)

	require.NoError(t, r.Register(Model{Family: types.Hiragana, InputSize: 48, Labels: hiraganaTable(), Classifier: &countingClassifier{}}))
	assert.NoError(t, r.Available(types.Hiragana))
}

func TestDebugHook(t *testing.T) {
	var got, gotCanvas image.Image
	var gotID string
	r := NewRecognizer(Options{Debug: func(id string, family types.Family, canvas, input image.Image) {
		gotID, gotCanvas, got = id, canvas, input
	}})
	require.NoError(t, r.Register(Model{Family: types.Hiragana, InputSize: 48, Labels: hiraganaTable(), Classifier: &countingClassifier{probs: []float64{1, 0, 0}}}))

	o := r.Recognize(context.Background(), drawn(), types.Hiragana, types.English)
	require.True(t, o.OK())
	require.NotNil(t, got)
	assert.Equal(t, o.ID, gotID)
	assert.Equal(t, image.Rect(0, 0, 48, 48), got.Bounds())
	assert.Equal(t, image.Rect(0, 0, 320, 320), gotCanvas.Bounds())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "capture-complete", CaptureComplete.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", State(42).String())
}
