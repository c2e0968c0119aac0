package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/moji-recognizer/internal/config"
	"github.com/menta2k/moji-recognizer/pkg/ranker"
	"github.com/menta2k/moji-recognizer/pkg/recognition"
	"github.com/menta2k/moji-recognizer/pkg/types"
)

func rankedOutcome() *recognition.Outcome {
	return &recognition.Outcome{
		ID:       "abc",
		Family:   types.Hiragana,
		Language: types.English,
		State:    recognition.Ranked,
		Best:     ranker.Ranked{Index: 1, Label: "i", Probability: 0.7},
		Top: []ranker.Ranked{
			{Index: 1, Label: "i", Probability: 0.7},
			{Index: 2, Label: "u", Probability: 0.2},
		},
		Elapsed: 12 * time.Millisecond,
	}
}

func TestParseCoords(t *testing.T) {
	p, err := parseCoords([]string{"10", "20.5"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20.5}, p)

	_, err = parseCoords([]string{"10"}, 2)
	assert.ErrorIs(t, err, errUsage)

	_, err = parseCoords([]string{"10", "y"}, 2)
	assert.Error(t, err)
}

func TestParseSwitch(t *testing.T) {
	on, err := parseSwitch("ON")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = parseSwitch("off")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = parseSwitch("maybe")
	assert.Error(t, err)
}

func TestFormatOutcome(t *testing.T) {
	got := formatOutcome(rankedOutcome())
	assert.Contains(t, got, "[hiragana] i 70%")
	assert.Contains(t, got, "1. i")
	assert.Contains(t, got, "2. u")

	failed := &recognition.Outcome{Family: types.Kanji, State: recognition.Failed, Err: recognition.ErrEmptyCanvas}
	assert.Contains(t, formatOutcome(failed), "no result")
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)
	p.Show(rankedOutcome())
	p.Reset()
	assert.Contains(t, buf.String(), "i 70%")
}

func TestNewReport(t *testing.T) {
	r := newReport("a.png", rankedOutcome())
	assert.Equal(t, "ranked", r.State)
	assert.Equal(t, int64(12), r.ElapsedMS)
	require.Len(t, r.Candidates, 2)
	assert.Equal(t, "u", r.Candidates[1].Label)
	assert.Empty(t, r.Error)

	r = newReport("a.png", &recognition.Outcome{State: recognition.Failed, Err: errors.New("offline")})
	assert.Equal(t, "offline", r.Error)
	assert.Empty(t, r.Candidates)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ranker:\n  top_k: 3\n"), 0644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Ranker.TopK)
	assert.Equal(t, config.Default().Canvas, cfg.Canvas)

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
