package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/ChuLiYu/priority-timeline/internal/timeline"
)

// DefaultColumns is the text strip width when Options.CanvasWidth is unset.
const DefaultColumns = 80

// Text renders the frame as a strip of columns characters followed by a
// legend of the visible items, one per line.
//
//	----o-------------o-------
//	    First         Third
//	  1  First  @0.150  p2
func Text(f Frame, columns int) string {
	if columns <= 0 {
		columns = DefaultColumns
	}
	scale := f.scale(columns - 1)

	track := []rune(strings.Repeat("-", columns))
	labels := []rune(strings.Repeat(" ", columns))
	taken := make([]bool, columns)

	for _, item := range f.Items {
		a := timeline.Project(item, f.ItemWidth, f.TotalWidth)
		col := int(math.Round(a.Center * scale))
		if col < 0 || col >= columns {
			continue
		}
		track[col] = 'o'

		// labels never overwrite one another, later ones get cut short
		for i, r := range []rune(displayLabel(item)) {
			pos := col + i
			if pos >= columns || taken[pos] {
				break
			}
			labels[pos] = r
			taken[pos] = true
		}
	}

	var b strings.Builder
	b.WriteString(string(track))
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(string(labels), " "))
	b.WriteString("\n")
	for _, item := range f.Items {
		fmt.Fprintf(&b, "  %s  %s  @%.3f  p%d\n", item.ID, displayLabel(item), item.Location, item.Priority)
	}
	return b.String()
}
