package timeline

// Collision names the pair of items that caused a layer to be rejected.
type Collision struct {
	VisibleID   string
	CandidateID string
}

// Resolution is the outcome of one visibility pass.
type Resolution[T any] struct {
	Visible  []Item[T]
	Accepted []int // priorities whose layer made it in, in evaluation order

	// Rejected is the priority whose layer halted evaluation. Only
	// meaningful when Halted is true.
	Rejected  int
	Halted    bool
	Collision Collision
}

// Resolve selects the visible subset of items.
//
// Items are grouped into layers by priority, in the order of priorities.
// The first layer is always accepted whole. Every later layer is accepted
// whole only if none of its items overlaps an item already visible; the
// first layer that fails stops evaluation, lower layers are never looked at.
// Items whose priority is not in priorities are never visible.
func Resolve[T any](items []Item[T], itemWidth, totalWidth float64, priorities []int) Resolution[T] {
	positioned := make([]Absolute[T], len(items))
	for i, item := range items {
		positioned[i] = Project(item, itemWidth, totalWidth)
	}

	res := Resolution[T]{Visible: []Item[T]{}}
	var visible []Absolute[T]

	for i, priority := range priorities {
		layer := layerOf(positioned, priority)

		if i > 0 {
			if c, collided := firstCollision(layer, visible); collided {
				res.Halted = true
				res.Rejected = priority
				res.Collision = c
				break
			}
		}

		visible = append(visible, layer...)
		res.Accepted = append(res.Accepted, priority)
	}

	for _, a := range visible {
		res.Visible = append(res.Visible, a.Item)
	}
	return res
}

func layerOf[T any](positioned []Absolute[T], priority int) []Absolute[T] {
	var layer []Absolute[T]
	for _, a := range positioned {
		if a.Priority == priority {
			layer = append(layer, a)
		}
	}
	return layer
}

func firstCollision[T any](layer, visible []Absolute[T]) (Collision, bool) {
	for _, candidate := range layer {
		for _, v := range visible {
			if v.Overlaps(candidate) {
				return Collision{VisibleID: v.ID, CandidateID: candidate.ID}, true
			}
		}
	}
	return Collision{}, false
}
