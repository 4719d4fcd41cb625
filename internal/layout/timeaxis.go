package layout

import "time"

// DefaultPixelsPerHour is the vertical scale of the hour axis used by the
// day and week views.
const DefaultPixelsPerHour = 60.0

// TimeAxis maps a time-of-day onto a fixed 24-hour linear pixel scale.
// The zero value is unusable; construct via NewTimeAxis.
type TimeAxis struct {
	pixelsPerHour float64
}

// NewTimeAxis returns a TimeAxis with the given scale. Non-positive values
// fall back to DefaultPixelsPerHour.
func NewTimeAxis(pixelsPerHour float64) TimeAxis {
	if pixelsPerHour <= 0 {
		pixelsPerHour = DefaultPixelsPerHour
	}
	return TimeAxis{pixelsPerHour: pixelsPerHour}
}

// PixelsPerHour reports the configured scale.
func (a TimeAxis) PixelsPerHour() float64 {
	return a.pixelsPerHour
}

// AxisHeight returns the total height of the 24-hour axis.
func (a TimeAxis) AxisHeight() float64 {
	return 24 * a.pixelsPerHour
}

// Geometry is the derived position of one event within a day's axis.
// It is recomputed on every layout pass and is not part of event identity.
type Geometry struct {
	// Top is the pixel offset of the event's start from midnight.
	Top float64 `json:"top"`
	// Height is the pixel height of the event block.
	Height float64 `json:"height"`
	// Clipped is set when the block's natural bottom edge fell past the
	// 24-hour axis (midnight-crossing or multi-day events) and the height
	// was cut to fit. Callers must surface this rather than ignore it.
	Clipped bool `json:"clipped,omitempty"`
}

// Offset returns the pixel offset of the instant's time-of-day from
// midnight: (hours + minutes/60) * pixelsPerHour.
func (a TimeAxis) Offset(t time.Time) float64 {
	h := float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
	return h * a.pixelsPerHour
}

// Height returns the pixel height for the wall-clock span start..end.
// The difference is taken on the clock, not on calendar days.
func (a TimeAxis) Height(start, end time.Time) float64 {
	return end.Sub(start).Hours() * a.pixelsPerHour
}

// Span computes the full geometry of an event on the axis, clipping the
// bottom edge to the end of the 24-hour scale when the raw span would run
// past it. For valid same-day events, Top + Height == Offset(end).
func (a TimeAxis) Span(start, end time.Time) Geometry {
	g := Geometry{
		Top:    a.Offset(start),
		Height: a.Height(start, end),
	}
	if bottom := g.Top + g.Height; bottom > a.AxisHeight() {
		g.Height = a.AxisHeight() - g.Top
		g.Clipped = true
	}
	return g
}
