package kvstore

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFileWatcher_FiresOnAtomicReplace(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "preferences.toml")
	fs, err := NewFileStore(path)
	require.NoError(t, err)

	var calls atomic.Int32
	fw, err := NewFileWatcher(path, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	fw.SetDebounce(20 * time.Millisecond)
	require.NoError(t, fw.Start())

	require.NoError(t, fs.Set("theme-preference", "dark"))

	assert.Eventually(t, func() bool { return calls.Load() >= 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, fw.Stop())
	require.NoError(t, fw.Stop())
}

func TestFileWatcher_IgnoresOtherFiles(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.toml")

	var calls atomic.Int32
	fw, err := NewFileWatcher(path, func() { calls.Add(1) }, nil)
	require.NoError(t, err)
	fw.SetDebounce(10 * time.Millisecond)
	require.NoError(t, fw.Start())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0600))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, fw.Stop())
}

func TestFileWatcher_StopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)

	fw, err := NewFileWatcher(filepath.Join(t.TempDir(), "p.toml"), nil, nil)
	require.NoError(t, err)
	assert.NoError(t, fw.Stop())
}
