package timeline

// ============================================================================
// Input validation
// Purpose: Optional strict checks. The Domain itself accepts anything and
// degrades to "not shown"; callers that want to surface bad input run
// Validate first.
// ============================================================================

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrDuplicateID indicates two items share an id
	ErrDuplicateID = errors.New("timeline: duplicate item id")

	// ErrLocationOutOfRange indicates an item location outside [0, 1]
	ErrLocationOutOfRange = errors.New("timeline: location out of range")

	// ErrUnknownPriority indicates an item whose priority is not in the
	// priority list, it can never be shown
	ErrUnknownPriority = errors.New("timeline: priority not in priority list")

	// ErrInvalidWidth indicates a negative or non-finite width
	ErrInvalidWidth = errors.New("timeline: invalid width")
)

// Validate reports every problem in cfg, joined into one error. It returns
// nil when cfg is clean.
func (cfg Config[T]) Validate() error {
	var errs []error

	if !validWidth(cfg.ItemWidth) {
		errs = append(errs, fmt.Errorf("%w: item_width=%v", ErrInvalidWidth, cfg.ItemWidth))
	}
	if !validWidth(cfg.InitialTimelineWidth) {
		errs = append(errs, fmt.Errorf("%w: initial_timeline_width=%v", ErrInvalidWidth, cfg.InitialTimelineWidth))
	}

	known := make(map[int]bool, len(cfg.PriorityList))
	for _, p := range cfg.PriorityList {
		known[p] = true
	}

	seen := make(map[string]bool, len(cfg.Items))
	for _, item := range cfg.Items {
		if seen[item.ID] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateID, item.ID))
		}
		seen[item.ID] = true

		if err := ValidateItem(item); err != nil {
			errs = append(errs, err)
		}
		if !known[item.Priority] {
			errs = append(errs, fmt.Errorf("%w: item %q has priority %d", ErrUnknownPriority, item.ID, item.Priority))
		}
	}

	return errors.Join(errs...)
}

// ValidateItem checks a single item in isolation.
func ValidateItem[T any](item Item[T]) error {
	if math.IsNaN(item.Location) || item.Location < 0 || item.Location > 1 {
		return fmt.Errorf("%w: item %q at %v", ErrLocationOutOfRange, item.ID, item.Location)
	}
	return nil
}

func validWidth(w float64) bool {
	return w >= 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}
