package watch

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ChuLiYu/priority-timeline/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
timeline:
  item_width: 0.25
  priority_list: [2, 1]
  items:
    - {id: "1", location: 0.15, label: First, priority: 2}
`

const updatedConfig = `
timeline:
  item_width: 0.25
  priority_list: [2, 1]
  items:
    - {id: "1", location: 0.15, label: First, priority: 2}
    - {id: "2", location: 0.8, label: Second, priority: 1}
`

func startWatcher(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "timeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0644))

	w, err := NewWatcher(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	w.Debounce = 20 * time.Millisecond
	require.NoError(t, w.Start())
	t.Cleanup(w.Stop)
	return w, path
}

func next(t *testing.T, w *Watcher) *config.Config {
	t.Helper()
	select {
	case cfg := <-w.Changes:
		return cfg
	case <-time.After(3 * time.Second):
		t.Fatal("no reload")
		return nil
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	w, path := startWatcher(t)

	require.NoError(t, os.WriteFile(path, []byte(updatedConfig), 0644))

	cfg := next(t, w)
	require.Len(t, cfg.Timeline.Items, 2)
	assert.Equal(t, "Second", cfg.Timeline.Items[1].Label)
}

func TestWatcherReloadsOnRename(t *testing.T) {
	w, path := startWatcher(t)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte(updatedConfig), 0644))
	require.NoError(t, os.Rename(tmp, path))

	cfg := next(t, w)
	assert.Len(t, cfg.Timeline.Items, 2)
}

func TestWatcherSkipsBrokenFile(t *testing.T) {
	w, path := startWatcher(t)

	require.NoError(t, os.WriteFile(path, []byte("timeline: [unclosed"), 0644))
	select {
	case cfg := <-w.Changes:
		t.Fatalf("broken file published: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte(updatedConfig), 0644))
	assert.Len(t, next(t, w).Timeline.Items, 2)
}

func TestWatcherIgnoresSiblings(t *testing.T) {
	w, path := startWatcher(t)

	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte(updatedConfig), 0644))
	select {
	case cfg := <-w.Changes:
		t.Fatalf("sibling change published: %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherStopClosesChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(baseConfig), 0644))

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	w.Stop()

	_, ok := <-w.Changes
	assert.False(t, ok)
}
