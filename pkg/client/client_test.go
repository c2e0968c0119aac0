package client

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

func fixed(v []float64, err error) Classifier {
	return Func(func(context.Context, types.Tensor) ([]float64, error) {
		return v, err
	})
}

type pinging struct {
	Classifier
	err error
}

func (p pinging) Ping(context.Context) error { return p.err }

func TestGuardPassesDistribution(t *testing.T) {
	g := Guard(types.Hiragana, fixed([]float64{0.1, 0.7, 0.2}, nil), 3)

	probs, err := g.Predict(context.Background(), types.NewTensor(48))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.1, 0.7, 0.2}, probs, 1e-12)
}

func TestGuardRenormalizes(t *testing.T) {
	g := Guard(types.Kanji, fixed([]float64{2, 1, 1}, nil), 3)

	probs, err := g.Predict(context.Background(), types.NewTensor(48))
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.25, 0.25}, probs, 1e-12)
}

func TestGuardConvertsFailures(t *testing.T) {
	backendErr := errors.New("connection refused")
	tests := []struct {
		name string
		c    Classifier
	}{
		{"backend error", fixed(nil, backendErr)},
		{"wrong length", fixed([]float64{0.5, 0.5}, nil)},
		{"nan", fixed([]float64{math.NaN(), 0.5, 0.5}, nil)},
		{"inf", fixed([]float64{math.Inf(1), 0, 0}, nil)},
		{"negative", fixed([]float64{-0.1, 0.6, 0.5}, nil)},
		{"zero mass", fixed([]float64{0, 0, 0}, nil)},
		{"panic", Func(func(context.Context, types.Tensor) ([]float64, error) {
			panic("model crashed")
		})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := Guard(types.Katakana, tt.c, 3)
			probs, err := g.Predict(context.Background(), types.NewTensor(48))
			assert.Nil(t, probs)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInferenceFailure)
			assert.NotErrorIs(t, err, ErrClassifierUnavailable)

			var cerr *Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, types.Katakana, cerr.Family)
		})
	}
}

func TestGuardKeepsCause(t *testing.T) {
	backendErr := errors.New("connection refused")
	_, err := Guard(types.Hiragana, fixed(nil, backendErr), 3).Predict(context.Background(), types.Tensor{})
	assert.ErrorIs(t, err, backendErr)
	assert.Contains(t, err.Error(), "hiragana")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestCheck(t *testing.T) {
	ctx := context.Background()
	ok := fixed([]float64{1}, nil)

	assert.NoError(t, Check(ctx, types.Kanji, ok), "backends without Ping are ready")
	assert.NoError(t, Check(ctx, types.Kanji, pinging{Classifier: ok}))

	err := Check(ctx, types.Kanji, pinging{Classifier: ok, err: errors.New("model not found")})
	assert.ErrorIs(t, err, ErrClassifierUnavailable)
	assert.ErrorIs(t, Check(ctx, types.Kanji, nil), ErrClassifierUnavailable)

	err = Check(ctx, types.Kanji, Guard(types.Kanji, pinging{Classifier: ok, err: errors.New("down")}, 1))
	assert.ErrorIs(t, err, ErrClassifierUnavailable, "guard forwards Ping")
}
