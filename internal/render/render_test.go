package render

import (
	"strings"
	"testing"

	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func markerDomain() *timeline.Domain[types.Marker] {
	return timeline.NewDomain(timeline.Config[types.Marker]{
		Items: []timeline.Item[types.Marker]{
			{ID: "1", Location: 0.15, Label: "First", Priority: 2, Value: types.Marker{Color: "#db4437"}},
			{ID: "2", Location: 0.2, Label: "Second", Priority: 1},
			{ID: "3", Location: 0.8, Label: "Third", Priority: 2, Value: types.Marker{Title: "Launch <v1>"}},
		},
		ItemWidth:    0.25,
		PriorityList: []int{2, 1},
	})
}

// ============================================================================
// SVG Tests
// ============================================================================

func TestSVG(t *testing.T) {
	d := markerDomain()
	frame := Frame{Items: d.VisibleItems().Get(), TotalWidth: 1, ItemWidth: 0.25}

	out := string(SVG(frame, Options{}))

	assert.True(t, strings.HasPrefix(out, `<svg width="800" height="100"`))
	assert.True(t, strings.HasSuffix(out, "</svg>\n"))
	assert.Equal(t, 2, strings.Count(out, "<circle"), "one marker per visible item")
	assert.Contains(t, out, `cx="120.00"`) // 0.15 * 800
	assert.Contains(t, out, `cx="640.00"`) // 0.8 * 800
	assert.Contains(t, out, `fill="#db4437"`)
	assert.Contains(t, out, string(types.DefaultMarkerColor))
	assert.Contains(t, out, "Launch &lt;v1&gt;", "labels are escaped")
	assert.NotContains(t, out, "Second")
}

func TestSVGShowBounds(t *testing.T) {
	frame := Frame{
		Items:      []timeline.Item[types.Marker]{{ID: "a", Location: 0.5, Label: "A", Priority: 1}},
		TotalWidth: 1,
		ItemWidth:  0.25,
	}

	out := string(SVG(frame, Options{CanvasWidth: 400, ShowBounds: true}))

	assert.Contains(t, out, `<rect x="150.00"`)
	assert.Contains(t, out, `width="100.00"`)
}

func TestSVGZeroWidthTrack(t *testing.T) {
	frame := Frame{
		Items:      []timeline.Item[types.Marker]{{ID: "a", Location: 0.5, Label: "A"}},
		TotalWidth: 0,
	}
	assert.NotPanics(t, func() { SVG(frame, Options{}) })
}

// ============================================================================
// Text Tests
// ============================================================================

func TestText(t *testing.T) {
	frame := Frame{
		Items: []timeline.Item[types.Marker]{
			{ID: "1", Location: 0, Label: "First", Priority: 2},
			{ID: "3", Location: 1, Label: "End", Priority: 2},
		},
		TotalWidth: 1,
		ItemWidth:  0.1,
	}

	out := Text(frame, 21)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 4)

	assert.Equal(t, "o-------------------o", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "First"))
	assert.Contains(t, lines[2], "1  First  @0.000  p2")
	assert.Contains(t, lines[3], "3  End  @1.000  p2")
}

func TestTextLabelsDoNotOverwrite(t *testing.T) {
	frame := Frame{
		Items: []timeline.Item[types.Marker]{
			{ID: "a", Location: 0, Label: "Alpha"},
			{ID: "b", Location: 0.25, Label: "Beta"},
			{ID: "c", Location: 0.3, Label: "Gamma"}, // starts on Beta's 'e', dropped
		},
		TotalWidth: 1,
	}

	out := Text(frame, 21)
	assert.True(t, strings.HasPrefix(strings.Split(out, "\n")[1], "AlphaBeta"))
}

func TestTextLabelSpacesAreOccupied(t *testing.T) {
	frame := Frame{
		Items: []timeline.Item[types.Marker]{
			{ID: "a", Location: 0, Label: "Design review"},
			{ID: "b", Location: 0.3, Label: "X"}, // lands on the space in "Design review"
		},
		TotalWidth: 1,
	}

	out := Text(frame, 21)
	assert.Equal(t, "Design review", strings.Split(out, "\n")[1])
}

func TestTextSkipsOffTrackItems(t *testing.T) {
	frame := Frame{
		Items:      []timeline.Item[types.Marker]{{ID: "far", Location: 4, Label: "Far"}},
		TotalWidth: 1,
	}

	out := Text(frame, 10)
	assert.Equal(t, "----------", strings.Split(out, "\n")[0])
}

// ============================================================================
// View Tests
// ============================================================================

func TestViewRendersOnConstruction(t *testing.T) {
	d := markerDomain()
	v := NewView(d, FormatSVG, Options{})
	defer v.Close()

	assert.Equal(t, 1, v.Renders())
	assert.Len(t, v.Frame().Items, 2)
	assert.Equal(t, "image/svg+xml", v.ContentType())
	assert.Contains(t, string(v.Bytes()), "<svg")
}

func TestViewRedrawsOnMutation(t *testing.T) {
	d := markerDomain()
	var pushed [][]byte
	v := NewView(d, FormatText, Options{}, OnRender(func(b []byte) { pushed = append(pushed, b) }))
	defer v.Close()

	d.DeleteItem("1")
	d.SetTotalWidth(2)

	assert.Equal(t, 3, v.Renders())
	assert.Len(t, pushed, 3)
	assert.Equal(t, 2.0, v.Frame().TotalWidth)
	assert.Contains(t, string(v.Bytes()), "Second", "item 2 is visible once item 1 is gone")
	assert.Equal(t, "text/plain; charset=utf-8", v.ContentType())
}

func TestViewClose(t *testing.T) {
	d := markerDomain()
	v := NewView(d, FormatSVG, Options{})
	v.Close()

	d.SetTotalWidth(3)
	assert.Equal(t, 1, v.Renders())
}
