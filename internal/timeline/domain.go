// ============================================================================
// Timeline Domain - item collection, geometry and visibility
// ============================================================================
//
// Package: internal/timeline
// File: domain.go
// Purpose: Own the timeline's items and geometry, and republish the visible
// subset every time either changes.
//
// State (each held in an observable cell):
//   - items:        current item collection
//   - itemWidth:    width reserved around each item, fixed at construction
//   - totalWidth:   width of the track, changed by SetTotalWidth
//   - priorityList: layer evaluation order, fixed at construction
//   - visibleItems: output of Resolve, recomputed from scratch on every
//                   AddItem / DeleteItem / Replace / SetTotalWidth
//
// Consumers only ever receive observable.Readonly handles. Slice-valued
// cells are exposed through observable.Snapshot, so nothing a consumer does
// to a returned slice reaches domain state.
//
// Concurrency:
//   A Domain is not safe for concurrent use. Callers on several goroutines
//   must serialize access (see internal/server).
//
// ============================================================================

package timeline

import (
	"log/slog"
	"slices"
	"time"

	"github.com/ChuLiYu/priority-timeline/internal/observable"
)

// DefaultTimelineWidth is used when Config.InitialTimelineWidth is zero.
const DefaultTimelineWidth = 1.0

// Config is the construction record for a Domain.
type Config[T any] struct {
	Items                []Item[T] `json:"items" yaml:"items"`
	ItemWidth            float64   `json:"item_width" yaml:"item_width"`
	InitialTimelineWidth float64   `json:"initial_timeline_width,omitempty" yaml:"initial_timeline_width,omitempty"`
	PriorityList         []int     `json:"priority_list" yaml:"priority_list"`
}

// ResolutionStats summarizes one recomputation for a Recorder.
type ResolutionStats struct {
	Items    int
	Visible  int
	Layers   int // accepted layers
	Halted   bool
	Rejected int
	Duration time.Duration
}

// Recorder receives a summary of every recomputation.
type Recorder interface {
	RecordResolution(stats ResolutionStats)
}

// Option configures a Domain.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	recorder Recorder
}

// WithLogger sets the logger used for recomputation debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRecorder attaches a Recorder, typically a metrics collector.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Domain holds a timeline and its visible subset.
type Domain[T any] struct {
	items        *observable.Value[[]Item[T]]
	itemWidth    *observable.Value[float64]
	visibleItems *observable.Value[[]Item[T]]
	totalWidth   *observable.Value[float64]
	priorityList *observable.Value[[]int]

	log      *slog.Logger
	recorder Recorder
}

// NewDomain builds a Domain from cfg and computes the initial visible set.
func NewDomain[T any](cfg Config[T], opts ...Option) *Domain[T] {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	width := cfg.InitialTimelineWidth
	if width == 0 {
		width = DefaultTimelineWidth
	}

	d := &Domain[T]{
		items:        observable.NewValue(slices.Clone(cfg.Items)),
		itemWidth:    observable.NewValue(cfg.ItemWidth),
		visibleItems: observable.NewValue([]Item[T]{}),
		totalWidth:   observable.NewValue(width),
		priorityList: observable.NewValue(slices.Clone(cfg.PriorityList)),
		log:          o.logger,
		recorder:     o.recorder,
	}
	d.filterVisibleItems()
	return d
}

// AddItem appends item and recomputes the visible set.
func (d *Domain[T]) AddItem(item Item[T]) {
	d.items.Transform(func(old []Item[T]) []Item[T] {
		next := make([]Item[T], 0, len(old)+1)
		next = append(next, old...)
		return append(next, item)
	})
	d.filterVisibleItems()
}

// DeleteItem removes every item with the given id and recomputes. Unknown
// ids still trigger a recompute.
func (d *Domain[T]) DeleteItem(id string) {
	d.items.Transform(func(old []Item[T]) []Item[T] {
		next := make([]Item[T], 0, len(old))
		for _, item := range old {
			if item.ID != id {
				next = append(next, item)
			}
		}
		return next
	})
	d.filterVisibleItems()
}

// Replace swaps the whole collection in one recomputation.
func (d *Domain[T]) Replace(items []Item[T]) {
	d.items.Set(slices.Clone(items))
	d.filterVisibleItems()
}

// SetTotalWidth changes the track width and recomputes.
func (d *Domain[T]) SetTotalWidth(width float64) {
	d.totalWidth.Set(width)
	d.filterVisibleItems()
}

func (d *Domain[T]) filterVisibleItems() {
	start := time.Now()
	items := d.items.Get()

	res := Resolve(items, d.itemWidth.Get(), d.totalWidth.Get(), d.priorityList.Get())
	elapsed := time.Since(start)

	if res.Halted {
		d.log.Debug("priority layer rejected",
			"priority", res.Rejected,
			"visible_id", res.Collision.VisibleID,
			"candidate_id", res.Collision.CandidateID)
	}
	if d.recorder != nil {
		d.recorder.RecordResolution(ResolutionStats{
			Items:    len(items),
			Visible:  len(res.Visible),
			Layers:   len(res.Accepted),
			Halted:   res.Halted,
			Rejected: res.Rejected,
			Duration: elapsed,
		})
	}

	d.visibleItems.Set(res.Visible)
}

// Items returns a read-only handle on the item collection.
func (d *Domain[T]) Items() observable.Readonly[[]Item[T]] {
	return observable.Snapshot(d.items)
}

// ItemWidth returns a read-only handle on the item width.
func (d *Domain[T]) ItemWidth() observable.Readonly[float64] {
	return d.itemWidth
}

// VisibleItems returns a read-only handle on the visible set. Presentation
// layers subscribe here.
func (d *Domain[T]) VisibleItems() observable.Readonly[[]Item[T]] {
	return observable.Snapshot(d.visibleItems)
}

// TotalWidth returns a read-only handle on the track width.
func (d *Domain[T]) TotalWidth() observable.Readonly[float64] {
	return d.totalWidth
}

// PriorityList returns a read-only handle on the priority order.
func (d *Domain[T]) PriorityList() observable.Readonly[[]int] {
	return observable.Snapshot(d.priorityList)
}

// Dispose releases every subscriber on every cell.
func (d *Domain[T]) Dispose() {
	d.items.Dispose()
	d.itemWidth.Dispose()
	d.visibleItems.Dispose()
	d.totalWidth.Dispose()
	d.priorityList.Dispose()
}
