// ============================================================================
// Timeline Renderers
// ============================================================================
//
// Package: internal/render
// File: svg.go
// Purpose: Paint a frame (the visible items plus the geometry they were
// resolved against) as SVG or as a plain text strip.
//
// Layout:
//   The track is a horizontal bar at half height. Each visible item gets a
//   marker on the bar, a short callout, and its label. Positions come from
//   timeline.Project, so what is painted is exactly the interval the
//   visibility pass tested.
//
// ============================================================================

package render

import (
	"fmt"
	"html"
	"strings"

	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
)

// Defaults for Options fields left at zero.
const (
	DefaultCanvasWidth = 800
	DefaultHeight      = 100
	DefaultFontSize    = 12
	markerRadius       = 5
	calloutLength      = 14
)

// Frame is everything needed to paint the timeline once.
type Frame struct {
	Items      []timeline.Item[types.Marker]
	TotalWidth float64
	ItemWidth  float64
}

// Options controls the output canvas.
type Options struct {
	CanvasWidth int
	Height      int
	FontSize    int
	ShowBounds  bool // draw each item's reserved interval
}

func (o Options) withDefaults() Options {
	if o.CanvasWidth <= 0 {
		o.CanvasWidth = DefaultCanvasWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.FontSize <= 0 {
		o.FontSize = DefaultFontSize
	}
	return o
}

// scale converts track units to canvas pixels.
func (f Frame) scale(canvasWidth int) float64 {
	if f.TotalWidth <= 0 {
		return 0
	}
	return float64(canvasWidth) / f.TotalWidth
}

// SVG renders the frame as a standalone SVG document.
func SVG(f Frame, opts Options) []byte {
	opts = opts.withDefaults()
	scale := f.scale(opts.CanvasWidth)
	trackY := opts.Height / 2

	var svg strings.Builder
	svg.WriteString(fmt.Sprintf(`<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, opts.CanvasWidth, opts.Height))
	svg.WriteString("\n")
	svg.WriteString(fmt.Sprintf(`<line x1="0" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="3"/>`,
		trackY, opts.CanvasWidth, trackY, types.DefaultTrackColor))
	svg.WriteString("\n")

	for i, item := range f.Items {
		a := timeline.Project(item, f.ItemWidth, f.TotalWidth)
		x := a.Center * scale

		if opts.ShowBounds {
			svg.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%d" width="%.2f" height="%d" fill="none" stroke="#cccccc" stroke-dasharray="2,2"/>`,
				a.Left*scale, trackY-calloutLength, (a.Right-a.Left)*scale, 2*calloutLength))
			svg.WriteString("\n")
		}

		// alternate labels above and below the bar
		dir := -1
		if i%2 == 1 {
			dir = 1
		}
		textY := trackY + dir*(calloutLength+opts.FontSize/2)
		if dir > 0 {
			textY += opts.FontSize / 2
		}

		svg.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%d" x2="%.2f" y2="%d" stroke="%s" stroke-width="1"/>`,
			x, trackY, x, trackY+dir*calloutLength, types.DefaultTrackColor))
		svg.WriteString("\n")
		svg.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%d" r="%d" fill="%s"/>`,
			x, trackY, markerRadius, item.Value.FillColor()))
		svg.WriteString("\n")
		svg.WriteString(fmt.Sprintf(`<text x="%.2f" y="%d" text-anchor="middle" font-family="Arial, sans-serif" font-size="%d" fill="%s">%s</text>`,
			x, textY, opts.FontSize, types.DefaultTextColor, html.EscapeString(displayLabel(item))))
		svg.WriteString("\n")
	}

	svg.WriteString("</svg>\n")
	return []byte(svg.String())
}

func displayLabel(item timeline.Item[types.Marker]) string {
	if item.Value.Title != "" {
		return item.Value.Title
	}
	return item.Label
}
