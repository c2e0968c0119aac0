package labels

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/moji-recognizer/pkg/types"
)

func TestResolve(t *testing.T) {
	pair := Entry{Native: "あ", Romaji: "a"}
	single := Entry{Native: "日"}

	assert.Equal(t, "a", pair.Resolve(types.English))
	assert.Equal(t, "あ", pair.Resolve(types.Japanese))
	assert.Equal(t, "日", single.Resolve(types.English))
	assert.Equal(t, "日", single.Resolve(types.Japanese))
	assert.Equal(t, "あ (a)", pair.String())
}

func TestParseYAML(t *testing.T) {
	doc := `
family: hiragana
labels:
  - [あ, a]
  - [い, i]
  - ゝ
`
	table, err := Parse([]byte(doc), "yaml", types.Hiragana)
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())
	assert.Equal(t, Entry{Native: "あ", Romaji: "a"}, table.Entries[0])
	assert.Equal(t, Entry{Native: "ゝ"}, table.Entries[2])
	assert.Equal(t, "i", table.Label(1, types.English))
	assert.Equal(t, "", table.Label(3, types.English))
	assert.Equal(t, "", table.Label(-1, types.English))
}

func TestParseBareList(t *testing.T) {
	table, err := Parse([]byte(`["日", ["月", "tsuki"]]`), "json", types.Kanji)
	require.NoError(t, err)
	assert.Equal(t, types.Kanji, table.Family)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "tsuki", table.Label(1, types.English))

	table, err = Parse([]byte("- ア\n- [イ, i]\n"), "yaml", types.Katakana)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format string
	}{
		{"empty table", `{"labels": []}`, "json"},
		{"bad pair", `{"labels": [["a", "b", "c"]]}`, "json"},
		{"empty label", `{"labels": [""]}`, "json"},
		{"wrong family", `{"family": "kanji", "labels": ["日"]}`, "json"},
		{"unknown format", `[]`, "toml"},
		{"not a table", `42`, "json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format, types.Hiragana)
			assert.Error(t, err)
		})
	}
}

func TestLoadFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := New(types.Katakana, Entry{Native: "ア", Romaji: "a"}, Entry{Native: "ヰ"})

	for _, name := range []string{"katakana.json", "katakana.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, table))

		loaded, err := LoadFile(path, types.Katakana)
		require.NoError(t, err, name)
		assert.Equal(t, table, loaded, name)
	}

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"), types.Katakana)
	assert.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	assert.Equal(t, "yaml", FormatOf("a/b.YML"))
	assert.Equal(t, "yaml", FormatOf("x.yaml"))
	assert.Equal(t, "json", FormatOf("x.json"))
	assert.Equal(t, "json", FormatOf("x"))
}

func TestLoadFileFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kuzu.yml")
	require.NoError(t, os.WriteFile(path, []byte("labels:\n  - [𛀁, e]\n"), 0644))

	table, err := LoadFile(path, types.Kuzushiji)
	require.NoError(t, err)
	assert.Equal(t, types.Kuzushiji, table.Family)
	assert.Equal(t, "e", table.Label(0, types.English))
}
