package model

import "time"

// SourceLocal marks events created through the TimeBox API and stored
// in the local database, as opposed to read-only subscription sources.
const SourceLocal = "local"

// Event is a single timed calendar entry. Instances are immutable once
// they reach the layout engine; the fetch/merge layer owns their
// construction.
//
// Start and End are local wall-clock instants in the configured display
// timezone. Category is an open set: the UI maps a handful of known names
// ("work", "personal", "health", "study") to styles and renders everything
// else neutrally, but the value itself is always preserved.
type Event struct {
	ID       string
	Title    string
	Start    time.Time
	End      time.Time
	Category string

	// Source identifies where the event came from: SourceLocal for events
	// created via the API, otherwise the configured subscription source ID.
	Source string
}

// Valid reports whether the event carries a well-formed interval.
// The snapshot layer rejects invalid events before they reach layout.
func (e Event) Valid() bool {
	return !e.Start.IsZero() && !e.End.IsZero() && e.Start.Before(e.End)
}

// Duration returns the wall-clock length of the event.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// FormatTimeRange returns "3:00 PM - 4:15 PM" style display text.
func (e Event) FormatTimeRange() string {
	return e.Start.Format("3:04 PM") + " - " + e.End.Format("3:04 PM")
}
