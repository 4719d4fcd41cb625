// Package snapshot assembles the immutable event collection one layout
// pass operates on. It is the validation boundary: serialized events
// from the store, the API and remote subscriptions are parsed and
// checked here, and anything malformed is excluded and reported instead
// of reaching the layout core.
package snapshot

import (
	"fmt"
	"time"

	"timebox/internal/model"
)

// Reason classifies why an event was excluded from layout.
type Reason string

const (
	// ReasonMalformedInterval: start >= end. Rendering it would produce a
	// zero- or negative-height block, so the event is dropped instead.
	ReasonMalformedInterval Reason = "malformed_interval"
	// ReasonUnparseableTimestamp: a start/end string that did not parse.
	// Never silently substituted with "now" or the epoch.
	ReasonUnparseableTimestamp Reason = "unparseable_timestamp"
)

// Exclusion records one event dropped at the boundary.
type Exclusion struct {
	ID     string `json:"id,omitempty"`
	Title  string `json:"title,omitempty"`
	Source string `json:"source,omitempty"`
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Diagnostics accumulates exclusions for one snapshot build. A single
// malformed event must never prevent the rest of the calendar from
// rendering, so nothing here is fatal; callers surface the counts.
type Diagnostics struct {
	Excluded []Exclusion `json:"excluded,omitempty"`
}

func (d *Diagnostics) add(ex Exclusion) {
	d.Excluded = append(d.Excluded, ex)
}

// ExcludedCount reports how many events were dropped.
func (d Diagnostics) ExcludedCount() int {
	return len(d.Excluded)
}

// Snapshot is the validated, immutable event collection for one render
// pass. Rebuilt from scratch on every source change; never patched in
// place.
type Snapshot struct {
	Events      []model.Event
	Diagnostics Diagnostics
	BuiltAt     time.Time
}

// EventDTO is the boundary shape for events arriving with serialized
// timestamps (API requests, persisted rows in transit).
type EventDTO struct {
	ID       string `json:"id,omitempty"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
}

// timestampLayouts are the accepted serialized forms, tried in order:
// RFC3339 and the timezone-naive ISO form the original API speaks
// ("2025-10-29T08:00:00"), with and without seconds.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp parses a serialized instant. Naive forms are anchored
// in loc (nil means time.Local).
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}

// FromDTO converts a boundary DTO into a model.Event, reporting parse
// and interval failures via the returned Exclusion instead of an error:
// the caller decides whether a dropped event aborts anything (it never
// does for layout).
func FromDTO(dto EventDTO, source string, loc *time.Location) (model.Event, *Exclusion) {
	start, err := ParseTimestamp(dto.Start, loc)
	if err != nil {
		return model.Event{}, &Exclusion{
			ID: dto.ID, Title: dto.Title, Source: source,
			Reason: ReasonUnparseableTimestamp, Detail: "start: " + err.Error(),
		}
	}
	end, err := ParseTimestamp(dto.End, loc)
	if err != nil {
		return model.Event{}, &Exclusion{
			ID: dto.ID, Title: dto.Title, Source: source,
			Reason: ReasonUnparseableTimestamp, Detail: "end: " + err.Error(),
		}
	}

	ev := model.Event{
		ID:       dto.ID,
		Title:    dto.Title,
		Start:    start,
		End:      end,
		Category: dto.Category,
		Source:   source,
	}
	if !ev.Valid() {
		return model.Event{}, &Exclusion{
			ID: dto.ID, Title: dto.Title, Source: source,
			Reason: ReasonMalformedInterval,
			Detail: fmt.Sprintf("start %s is not before end %s", dto.Start, dto.End),
		}
	}
	return ev, nil
}

// Build merges already-typed event batches (store rows, expanded ICS
// occurrences, CalDAV events) into one validated snapshot. Relative
// order within and across batches is preserved; invalid intervals are
// excluded and recorded.
func Build(now time.Time, batches ...[]model.Event) Snapshot {
	snap := Snapshot{BuiltAt: now}
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	snap.Events = make([]model.Event, 0, total)

	for _, batch := range batches {
		for _, ev := range batch {
			if !ev.Valid() {
				snap.Diagnostics.add(Exclusion{
					ID: ev.ID, Title: ev.Title, Source: ev.Source,
					Reason: ReasonMalformedInterval,
					Detail: fmt.Sprintf("start %s is not before end %s",
						ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339)),
				})
				continue
			}
			snap.Events = append(snap.Events, ev)
		}
	}
	return snap
}
