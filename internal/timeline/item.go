package timeline

// Item is one labeled point on the timeline.
type Item[T any] struct {
	ID       string  `json:"id" yaml:"id"`
	Location float64 `json:"location" yaml:"location"` // position between 0 and 1
	Label    string  `json:"label" yaml:"label"`
	Priority int     `json:"priority" yaml:"priority"`
	Value    T       `json:"value" yaml:"value"`
}

// Absolute is an item projected onto a track of a concrete width.
type Absolute[T any] struct {
	Item[T]
	Center float64
	Left   float64
	Right  float64
}

// Project places item on a track totalWidth wide, reserving itemWidth
// around its center.
func Project[T any](item Item[T], itemWidth, totalWidth float64) Absolute[T] {
	center := totalWidth * item.Location
	return Absolute[T]{
		Item:   item,
		Center: center,
		Left:   center - itemWidth/2,
		Right:  center + itemWidth/2,
	}
}

// Overlaps reports whether the two projected intervals share any point.
// Touching edges count.
func (a Absolute[T]) Overlaps(b Absolute[T]) bool {
	return inRange(a.Left, b.Left, b.Right) ||
		inRange(a.Right, b.Left, b.Right) ||
		inRange(b.Left, a.Left, a.Right) ||
		inRange(b.Right, a.Left, a.Right)
}

func inRange(v, left, right float64) bool {
	return v >= left && v <= right
}
