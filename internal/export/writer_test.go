package export

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Basic Functionality Tests
// ============================================================================

func TestNewWriter(t *testing.T) {
	w, err := NewWriter("timeline.svg", 0)
	require.NoError(t, err)
	assert.Equal(t, "timeline.svg", w.Path())

	_, err = NewWriter("", 0)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestWriteAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.svg")
	w, err := NewWriter(path, 0)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("<svg/>")))

	data, err := w.Read()
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))
	assert.Equal(t, 1, w.Writes())

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must not be left behind")
}

func TestReadBeforeWrite(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "none.svg"), 0)
	require.NoError(t, err)

	_, err = w.Read()
	assert.ErrorIs(t, err, ErrNotWritten)
}

func TestWriteFailure(t *testing.T) {
	w, err := NewWriter(filepath.Join(t.TempDir(), "missing", "dir", "out.svg"), 0)
	require.NoError(t, err)

	err = w.Write([]byte("x"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write temp output")
	assert.Equal(t, 0, w.Writes())
}

// ============================================================================
// Backup Tests
// ============================================================================

func TestWriteWithBackups(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.svg")
	w, err := NewWriter(path, 2)
	require.NoError(t, err)

	for _, body := range []string{"v1", "v2", "v3", "v4"} {
		require.NoError(t, w.Write([]byte(body)))
	}

	backups, err := w.Backups()
	require.NoError(t, err)
	require.Len(t, backups, 2, "only the newest backups are kept")

	newest, err := os.ReadFile(backups[1])
	require.NoError(t, err)
	assert.Equal(t, "v3", string(newest))

	current, err := w.Read()
	require.NoError(t, err)
	assert.Equal(t, "v4", string(current))
}

func TestNoBackupsByDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.svg")
	w, err := NewWriter(path, 0)
	require.NoError(t, err)

	require.NoError(t, w.Write([]byte("a")))
	require.NoError(t, w.Write([]byte("b")))

	backups, err := w.Backups()
	require.NoError(t, err)
	assert.Empty(t, backups)
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func TestConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "timeline.svg")
	w, err := NewWriter(path, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Write([]byte("<svg/>")))
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, w.Writes())
	data, err := w.Read()
	require.NoError(t, err)
	assert.Equal(t, "<svg/>", string(data))
}
