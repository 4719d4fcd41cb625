package layout

import (
	"time"

	"timebox/internal/model"
)

// DayKey identifies one calendar day independent of time-of-day and
// location. It is comparable and used as the bucket key for event lookup.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// DayKeyOf returns the DayKey for the given instant.
func DayKeyOf(t time.Time) DayKey {
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// Date materializes the key as midnight in the given location.
func (k DayKey) Date(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// String renders the key as YYYY-MM-DD, the cell key format used in
// layout models and API responses.
func (k DayKey) String() string {
	return k.Date(time.UTC).Format("2006-01-02")
}

// DayIndex buckets an event snapshot by the calendar day of each event's
// start, so per-cell lookup is proportional to that day's event count
// rather than the whole collection.
//
// An index is an immutable snapshot: BuildIndex returns a fresh value and
// nothing mutates it afterward. When the event collection changes, the
// caller rebuilds and swaps the whole index (replace-on-update), so a
// layout pass always sees a consistent view.
type DayIndex struct {
	buckets map[DayKey][]model.Event
	total   int
}

// BuildIndex constructs a DayIndex from the given events. Relative input
// order is preserved within each day bucket; events are never reordered
// or filtered here (validation happens upstream at the snapshot boundary).
func BuildIndex(events []model.Event) *DayIndex {
	ix := &DayIndex{
		buckets: make(map[DayKey][]model.Event, len(events)),
		total:   len(events),
	}
	for _, ev := range events {
		k := DayKeyOf(ev.Start)
		ix.buckets[k] = append(ix.buckets[k], ev)
	}
	return ix
}

// Lookup returns the events whose start falls on the given day, in
// original input order. The returned slice must be treated as read-only.
func (ix *DayIndex) Lookup(k DayKey) []model.Event {
	if ix == nil {
		return nil
	}
	return ix.buckets[k]
}

// LookupDate is Lookup keyed by an instant's calendar day.
func (ix *DayIndex) LookupDate(t time.Time) []model.Event {
	return ix.Lookup(DayKeyOf(t))
}

// Len reports the total number of indexed events.
func (ix *DayIndex) Len() int {
	if ix == nil {
		return 0
	}
	return ix.total
}

// Days reports how many distinct days carry at least one event.
func (ix *DayIndex) Days() int {
	if ix == nil {
		return 0
	}
	return len(ix.buckets)
}
