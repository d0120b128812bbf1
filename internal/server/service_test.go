package server

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ChuLiYu/priority-timeline/internal/metrics"
	"github.com/ChuLiYu/priority-timeline/internal/render"
	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func referenceConfig() timeline.Config[types.Marker] {
	return timeline.Config[types.Marker]{
		Items: []Item{
			{ID: "1", Location: 0.15, Label: "First", Priority: 2},
			{ID: "2", Location: 0.2, Label: "Second", Priority: 1},
			{ID: "3", Location: 0.8, Label: "Third", Priority: 2, Value: types.Marker{Title: "Launch", Color: "#0f9d58"}},
		},
		ItemWidth:    0.25,
		PriorityList: []int{2, 1},
	}
}

func newTestService(t *testing.T) (*Service, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)
	svc := NewService(referenceConfig(), render.FormatSVG, render.Options{}, collector, quietLogger())
	t.Cleanup(svc.Close)
	return svc, reg
}

// metricValue reads one counter or gauge sample from reg.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	next:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue next
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func visibleIDs(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

// ============================================================================
// Mutation Tests
// ============================================================================

func TestServiceInitialState(t *testing.T) {
	svc, _ := newTestService(t)

	assert.Equal(t, []string{"1", "3"}, visibleIDs(svc.Visible()))
	assert.Len(t, svc.Items(), 3)
	assert.Equal(t, 1.0, svc.TotalWidth())

	body, contentType := svc.Rendering()
	assert.Equal(t, "image/svg+xml", contentType)
	assert.Contains(t, string(body), "Launch")
}

func TestServiceAdd(t *testing.T) {
	svc, reg := newTestService(t)

	require.NoError(t, svc.Add(Item{ID: "4", Location: 0.5, Priority: 2}))
	assert.Equal(t, []string{"1", "3", "4"}, visibleIDs(svc.Visible()))

	err := svc.Add(Item{ID: "4", Location: 0.6, Priority: 2})
	assert.ErrorIs(t, err, ErrDuplicateItem)

	err = svc.Add(Item{Location: 0.6, Priority: 2})
	assert.ErrorIs(t, err, ErrMissingID)

	assert.Equal(t, 1.0, metricValue(t, reg, "timeline_mutations_total", map[string]string{"op": metrics.OpAdd}))
}

func TestServiceAddOutOfRangeIsAccepted(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Add(Item{ID: "far", Location: 2, Priority: 2}))
	assert.Contains(t, visibleIDs(svc.Visible()), "far")
}

func TestServiceDelete(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Delete("1"))
	assert.Equal(t, []string{"3", "2"}, visibleIDs(svc.Visible()))

	assert.ErrorIs(t, svc.Delete("1"), ErrItemNotFound)
}

func TestServiceResize(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Resize(640))
	assert.Equal(t, 640.0, svc.TotalWidth())

	for _, w := range []float64{0, -1} {
		assert.ErrorIs(t, svc.Resize(w), ErrInvalidWidth)
	}
}

func TestServiceReload(t *testing.T) {
	svc, _ := newTestService(t)

	cfg := referenceConfig()
	cfg.Items = cfg.Items[1:] // drop item 1
	cfg.InitialTimelineWidth = 2
	svc.Reload(cfg)

	assert.Len(t, svc.Items(), 2)
	assert.Equal(t, 2.0, svc.TotalWidth())
	assert.Equal(t, []string{"3", "2"}, visibleIDs(svc.Visible()))
}

func TestServiceReloadKeepsRuntimeResize(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Resize(5))

	cfg := referenceConfig()
	cfg.Items[1].Label = "Second, renamed"
	svc.Reload(cfg)
	assert.Equal(t, 5.0, svc.TotalWidth(), "file width unchanged, resize kept")

	cfg.InitialTimelineWidth = 3
	svc.Reload(cfg)
	assert.Equal(t, 3.0, svc.TotalWidth())

	require.NoError(t, svc.Resize(7))
	svc.Reload(cfg)
	assert.Equal(t, 7.0, svc.TotalWidth())
}

func TestServiceReloadIgnoresFixedGeometry(t *testing.T) {
	svc, _ := newTestService(t)

	cfg := referenceConfig()
	cfg.ItemWidth = 0.01
	cfg.PriorityList = []int{1, 2}
	svc.Reload(cfg)

	// still resolved with the construction-time width and order
	assert.Equal(t, []string{"1", "3"}, visibleIDs(svc.Visible()))
}

// ============================================================================
// Watch Tests
// ============================================================================

func TestServiceWatch(t *testing.T) {
	svc, reg := newTestService(t)

	updates, cancel := svc.Watch()
	defer cancel()
	assert.Equal(t, 1.0, metricValue(t, reg, "timeline_watch_streams", nil))

	first := <-updates
	assert.Equal(t, []string{"1", "3"}, visibleIDs(first))

	require.NoError(t, svc.Delete("1"))
	select {
	case next := <-updates:
		assert.Equal(t, []string{"3", "2"}, visibleIDs(next))
	case <-time.After(time.Second):
		t.Fatal("no update after delete")
	}

	cancel()
	cancel()
	assert.Equal(t, 0.0, metricValue(t, reg, "timeline_watch_streams", nil))
}

// A slow reader only ever sees the latest visible set; producers never block.
func TestServiceWatchLatestWins(t *testing.T) {
	svc, _ := newTestService(t)

	updates, cancel := svc.Watch()
	defer cancel()

	require.NoError(t, svc.Resize(2))
	require.NoError(t, svc.Delete("1"))
	require.NoError(t, svc.Delete("3"))

	last := <-updates
	assert.Equal(t, []string{"2"}, visibleIDs(last))

	select {
	case extra := <-updates:
		t.Fatalf("unexpected queued update %v", visibleIDs(extra))
	default:
	}
}

func TestMailboxPutNeverBlocks(t *testing.T) {
	box := newMailbox()
	for i := 0; i < 10; i++ {
		box.put([]Item{{ID: string(rune('a' + i))}})
	}
	assert.Equal(t, "j", (<-box.ch)[0].ID)
}
