package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir), "existing directory")

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.False(t, FileExists(dir), "directories are not files")
}

func TestGetFileExtension(t *testing.T) {
	assert.Equal(t, "webp", GetFileExtension("out/a.WEBP"))
	assert.Equal(t, "", GetFileExtension("noext"))
}

func TestGenerateOutputFilename(t *testing.T) {
	got := GenerateOutputFilename("1234-abcd_kanji", "debug", "", "_input", "webp")
	assert.Equal(t, filepath.Join("debug", "1234-abcd_kanji_input.webp"), got)

	got = GenerateOutputFilename("a/b c", "", "x_", "", "")
	assert.Equal(t, "x_a_b_c.png", got)
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.txt")
	assert.False(t, FileExists(path))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	assert.True(t, FileExists(path))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b_c", SanitizeFilename("a/b:c"))
	assert.Equal(t, "name", SanitizeFilename("..name.."))
}
