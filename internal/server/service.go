// ============================================================================
// Timeline Service - shared owner of one timeline domain
// ============================================================================
//
// Package: internal/server
// File: service.go
// Purpose: Put a single-threaded timeline.Domain behind one mutex so the
// gRPC handlers, the HTTP view and the file watcher can all drive it from
// their own goroutines.
//
// Every Domain call, and therefore every synchronous subscriber fan-out, runs
// with mu held. Subscribers that hand data to other goroutines must not block
// (see mailbox).
//
// ============================================================================

package server

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ChuLiYu/priority-timeline/internal/metrics"
	"github.com/ChuLiYu/priority-timeline/internal/render"
	"github.com/ChuLiYu/priority-timeline/internal/timeline"
	"github.com/ChuLiYu/priority-timeline/pkg/types"
)

var (
	ErrMissingID     = errors.New("item id is required")
	ErrDuplicateItem = errors.New("item id already exists")
	ErrItemNotFound  = errors.New("item not found")
	ErrInvalidWidth  = errors.New("width must be positive")
)

// Item is the item type served by this package.
type Item = timeline.Item[types.Marker]

// Service owns a domain and the presentation view bound to it.
type Service struct {
	mu        sync.Mutex
	domain    *timeline.Domain[types.Marker]
	view      *render.View
	collector *metrics.Collector
	log       *slog.Logger

	initialWidth float64 // initial_timeline_width from the last loaded config
}

// NewService builds the domain from cfg. collector may be nil.
func NewService(cfg timeline.Config[types.Marker], format string, opts render.Options, collector *metrics.Collector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}

	domainOpts := []timeline.Option{timeline.WithLogger(logger)}
	if collector != nil {
		domainOpts = append(domainOpts, timeline.WithRecorder(collector))
	}

	domain := timeline.NewDomain(cfg, domainOpts...)
	return &Service{
		domain:    domain,
		view:      render.NewView(domain, format, opts),
		collector:    collector,
		log:          logger,
		initialWidth: cfg.InitialTimelineWidth,
	}
}

// Add inserts item. Ids must be present and unique.
func (s *Service) Add(item Item) error {
	if item.ID == "" {
		return ErrMissingID
	}
	if err := timeline.ValidateItem(item); err != nil {
		// accepted anyway, it just projects off the track
		s.log.Warn("adding item outside the track", "id", item.ID, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.domain.Items().Get() {
		if existing.ID == item.ID {
			return fmt.Errorf("%w: %q", ErrDuplicateItem, item.ID)
		}
	}

	s.domain.AddItem(item)
	s.recordMutation(metrics.OpAdd)
	s.log.Info("item added", "id", item.ID, "priority", item.Priority, "visible", len(s.domain.VisibleItems().Get()))
	return nil
}

// Delete removes the item with id.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := slices.ContainsFunc(s.domain.Items().Get(), func(i Item) bool { return i.ID == id })
	if !found {
		return fmt.Errorf("%w: %q", ErrItemNotFound, id)
	}

	s.domain.DeleteItem(id)
	s.recordMutation(metrics.OpDelete)
	s.log.Info("item deleted", "id", id, "visible", len(s.domain.VisibleItems().Get()))
	return nil
}

// Resize sets the track width.
func (s *Service) Resize(width float64) error {
	if !(width > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidWidth, width)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.domain.SetTotalWidth(width)
	s.recordMutation(metrics.OpResize)
	s.log.Debug("timeline resized", "width", width, "visible", len(s.domain.VisibleItems().Get()))
	return nil
}

// Reload applies a freshly loaded configuration. Items are replaced in one
// recomputation. The initial width is applied only when its value in the
// file changed since the last load. Item width and priority order are fixed
// for the life of a domain; changes to them are reported and ignored.
func (s *Service) Reload(cfg timeline.Config[types.Marker]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cfg.ItemWidth != s.domain.ItemWidth().Get() {
		s.log.Warn("item_width change needs a restart", "current", s.domain.ItemWidth().Get(), "new", cfg.ItemWidth)
	}
	if !slices.Equal(cfg.PriorityList, s.domain.PriorityList().Get()) {
		s.log.Warn("priority_list change needs a restart", "current", s.domain.PriorityList().Get(), "new", cfg.PriorityList)
	}

	s.domain.Replace(cfg.Items)
	s.recordMutation(metrics.OpReplace)

	// a resize made at runtime survives reloads that leave the file's width alone
	if w := cfg.InitialTimelineWidth; w != s.initialWidth {
		s.initialWidth = w
		if w > 0 && w != s.domain.TotalWidth().Get() {
			s.domain.SetTotalWidth(w)
			s.recordMutation(metrics.OpResize)
		}
	}

	s.log.Info("timeline reloaded", "items", len(cfg.Items), "visible", len(s.domain.VisibleItems().Get()))
}

// Visible returns the current visible set.
func (s *Service) Visible() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domain.VisibleItems().Get()
}

// Items returns the whole collection.
func (s *Service) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domain.Items().Get()
}

// TotalWidth returns the current track width.
func (s *Service) TotalWidth() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.domain.TotalWidth().Get()
}

// Rendering returns the latest view output and its content type.
func (s *Service) Rendering() ([]byte, string) {
	return s.view.Bytes(), s.view.ContentType()
}

// Watch delivers the current visible set and every later one to the
// returned mailbox until cancel is called.
func (s *Service) Watch() (updates <-chan []Item, cancel func()) {
	box := newMailbox()

	s.mu.Lock()
	box.put(s.domain.VisibleItems().Get())
	sub := s.domain.VisibleItems().Subscribe(box.put)
	s.mu.Unlock()

	if s.collector != nil {
		s.collector.StreamOpened()
	}

	var once sync.Once
	return box.ch, func() {
		once.Do(func() {
			sub.Unsubscribe()
			if s.collector != nil {
				s.collector.StreamClosed()
			}
		})
	}
}

// Close disposes the domain and its view.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view.Close()
	s.domain.Dispose()
}

func (s *Service) recordMutation(op string) {
	if s.collector != nil {
		s.collector.RecordMutation(op)
	}
}

// mailbox holds at most one pending value; a newer value replaces an unread
// older one. put never blocks as long as there is a single producer, which
// Service.mu guarantees.
type mailbox struct {
	ch chan []Item
}

func newMailbox() *mailbox {
	return &mailbox{ch: make(chan []Item, 1)}
}

func (m *mailbox) put(v []Item) {
	select {
	case m.ch <- v:
		return
	default:
	}
	select {
	case <-m.ch:
	default:
	}
	m.ch <- v
}
