// Package types defines the payload carried by timeline items in the CLI,
// the gRPC service and the renderers.
package types

// Color is a CSS color string, e.g. "#4285f4".
type Color string

// Default marker colors
const (
	DefaultMarkerColor Color = "#4285f4" // marker fill when none is given
	DefaultTrackColor  Color = "#000000" // timeline bar
	DefaultTextColor   Color = "#333333" // labels
)

// Marker is the payload of one timeline item.
type Marker struct {
	// Display
	Title string `json:"title,omitempty" yaml:"title,omitempty"` // overrides the item label when set
	Notes string `json:"notes,omitempty" yaml:"notes,omitempty"` // secondary text under the label
	Color Color  `json:"color,omitempty" yaml:"color,omitempty"` // marker fill

	// Free-form data passed through untouched
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// FillColor returns the marker color or the default.
func (m Marker) FillColor() Color {
	if m.Color == "" {
		return DefaultMarkerColor
	}
	return m.Color
}
