package kvstore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_GetMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "preferences.toml")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	defer fs.Close()

	// Parent directory is created eagerly, the file lazily
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	v, ok, err := fs.Get("theme-preference")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestFileStore_SetGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	defer fs.Close()

	require.NoError(t, fs.Set("theme-preference", "dark"))
	require.NoError(t, fs.Set("other", "value"))

	v, ok, err := fs.Get("theme-preference")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	// Overwrite keeps other keys
	require.NoError(t, fs.Set("theme-preference", "light"))
	v, _, err = fs.Get("theme-preference")
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	v, ok, err = fs.Get("other")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "value", v)

	// No temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestFileStore_SeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")

	a, err := NewFileStore(path)
	require.NoError(t, err)
	b, err := NewFileStore(path)
	require.NoError(t, err)

	require.NoError(t, a.Set("theme-preference", "dark"))

	v, ok, err := b.Get("theme-preference")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)
}

func TestFileStore_FileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")

	fs, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set("theme-preference", "system"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "schema_version = 1")
	assert.Contains(t, content, "[values]")
	assert.True(t, strings.Contains(content, "theme-preference = 'system'") ||
		strings.Contains(content, `theme-preference = "system"`), content)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is not valid toml ["), 0600))

	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = fs.Get("theme-preference")
	assert.ErrorIs(t, err, ErrCorruptFile)

	// Set recovers by moving the corrupt file aside
	require.NoError(t, fs.Set("theme-preference", "dark"))

	v, ok, err := fs.Get("theme-preference")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dark", v)

	matches, err := filepath.Glob(filepath.Join(dir, "preferences.toml.corrupted.*"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestFileStore_NewerSchemaRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preferences.toml")
	content := "schema_version = 99\n\n[values]\ntheme-preference = 'dark'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	fs, err := NewFileStore(path)
	require.NoError(t, err)

	_, _, err = fs.Get("theme-preference")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported preferences schema version")
}

func TestFileStore_Closed(t *testing.T) {
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "preferences.toml"))
	require.NoError(t, err)
	require.NoError(t, fs.Close())

	_, _, err = fs.Get("k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, fs.Set("k", "v"), ErrStoreClosed)
}

func TestFileStore_EmptyKeyAndPath(t *testing.T) {
	_, err := NewFileStore("")
	assert.Error(t, err)

	fs, err := NewFileStore(filepath.Join(t.TempDir(), "preferences.toml"))
	require.NoError(t, err)
	assert.ErrorIs(t, fs.Set("", "dark"), ErrEmptyKey)
}
