package render

import (
	"sync"

	"github.com/ChuLiYu/priority-timeline/internal/observable"
	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
)

// Output formats
const (
	FormatSVG  = "svg"
	FormatText = "text"
)

// Source is the observation surface a View needs. *timeline.Domain[types.Marker]
// satisfies it.
type Source interface {
	VisibleItems() observable.Readonly[[]timeline.Item[types.Marker]]
	TotalWidth() observable.Readonly[float64]
	ItemWidth() observable.Readonly[float64]
}

// View is the presentation layer: it subscribes to the visible set and keeps
// the most recent rendering. Every publication of the visible set triggers a
// redraw.
type View struct {
	mu       sync.RWMutex
	src      Source
	format   string
	opts     Options
	frame    Frame
	output   []byte
	renders  int
	onRender func([]byte)
	sub      observable.Subscription
}

// ViewOption configures a View.
type ViewOption func(*View)

// OnRender registers fn to receive every new rendering. fn runs
// synchronously inside the domain mutation that caused it.
func OnRender(fn func([]byte)) ViewOption {
	return func(v *View) { v.onRender = fn }
}

// NewView renders src once and subscribes for updates. Unknown formats
// render as SVG.
func NewView(src Source, format string, opts Options, viewOpts ...ViewOption) *View {
	v := &View{
		src:    src,
		format: format,
		opts:   opts.withDefaults(),
	}
	for _, opt := range viewOpts {
		opt(v)
	}

	v.redraw(src.VisibleItems().Get())
	v.sub = src.VisibleItems().Subscribe(v.redraw)
	return v
}

func (v *View) redraw(visible []timeline.Item[types.Marker]) {
	frame := Frame{
		Items:      visible,
		TotalWidth: v.src.TotalWidth().Get(),
		ItemWidth:  v.src.ItemWidth().Get(),
	}

	var out []byte
	switch v.format {
	case FormatText:
		out = []byte(Text(frame, v.opts.CanvasWidth/10))
	default:
		out = SVG(frame, v.opts)
	}

	v.mu.Lock()
	v.frame = frame
	v.output = out
	v.renders++
	onRender := v.onRender
	v.mu.Unlock()

	if onRender != nil {
		onRender(out)
	}
}

// Bytes returns the latest rendering.
func (v *View) Bytes() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.output
}

// Frame returns the frame behind the latest rendering.
func (v *View) Frame() Frame {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frame
}

// Renders counts redraws, including the initial one.
func (v *View) Renders() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.renders
}

// ContentType returns the MIME type of Bytes.
func (v *View) ContentType() string {
	if v.format == FormatText {
		return "text/plain; charset=utf-8"
	}
	return "image/svg+xml"
}

// Close stops following the source.
func (v *View) Close() {
	v.sub.Unsubscribe()
}
