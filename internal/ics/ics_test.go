package ics

import (
	"strings"
	"testing"
	"time"

	"timebox/internal/model"
)

const sampleFeed = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
UID:single-1
SUMMARY:Dentist
DTSTART:20240315T093000Z
DTEND:20240315T101500Z
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
SUMMARY:Team sync
DTSTART:20240304T100000Z
DTEND:20240304T110000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20240318T100000Z
END:VEVENT
END:VCALENDAR
`

func testSource() Source {
	return Source{ID: "team", URL: "https://cal.example.com/feed.ics", Category: "work"}
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(testSource(), []byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("parsed %d events, want 2", len(events))
	}

	byUID := map[string]ParsedEvent{}
	for _, ev := range events {
		byUID[ev.UID] = ev
	}

	single := byUID["single-1"]
	if single.Summary != "Dentist" {
		t.Errorf("Summary = %q", single.Summary)
	}
	if single.RawRRule != "" {
		t.Errorf("single event has RRULE %q", single.RawRRule)
	}
	if single.AllDay {
		t.Error("timed event flagged all-day")
	}

	weekly := byUID["weekly-1"]
	if weekly.RawRRule == "" {
		t.Error("recurring event lost its RRULE")
	}
	if len(weekly.ExDates) != 1 {
		t.Errorf("ExDates = %d, want 1", len(weekly.ExDates))
	}
}

func TestParseICSEmptyBody(t *testing.T) {
	if _, err := ParseICS(testSource(), nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestExpandEvents(t *testing.T) {
	parsed, err := ParseICS(testSource(), []byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}

	cfg := ExpandConfig{
		DisplayLocation: time.UTC,
		RangeStart:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:        time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	res, err := ExpandEvents(parsed, cfg)
	if err != nil {
		t.Fatalf("ExpandEvents: %v", err)
	}

	// 1 single + (4 weekly - 1 exdate) = 4.
	if len(res.Events) != 4 {
		t.Fatalf("expanded %d events, want 4", len(res.Events))
	}
	if len(res.TruncatedUIDs) != 0 {
		t.Errorf("TruncatedUIDs = %v, want none", res.TruncatedUIDs)
	}

	excluded := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)
	for _, ev := range res.Events {
		if ev.Category != "work" {
			t.Errorf("event %s category = %q, want source category", ev.ID, ev.Category)
		}
		if ev.Source != "team" {
			t.Errorf("event %s source = %q, want team", ev.ID, ev.Source)
		}
		if !ev.Valid() {
			t.Errorf("event %s has invalid interval %v..%v", ev.ID, ev.Start, ev.End)
		}
		if ev.Start.Equal(excluded) {
			t.Errorf("EXDATE instance %v was not removed", excluded)
		}
	}
}

func TestExpandInvalidRange(t *testing.T) {
	_, err := ExpandEvents(nil, ExpandConfig{
		RangeStart: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Error("expected error for inverted range")
	}
}

func TestExportRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	events := []model.Event{
		{
			ID:       "e1",
			Title:    "Dentist",
			Start:    time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
			End:      time.Date(2024, 3, 15, 10, 15, 0, 0, time.UTC),
			Category: "health",
			Source:   model.SourceLocal,
		},
	}

	out := Export(events, now)
	for _, want := range []string{"BEGIN:VCALENDAR", "BEGIN:VEVENT", "SUMMARY:Dentist", "Category: health", "UID:e1"} {
		if !strings.Contains(out, want) {
			t.Errorf("export missing %q:\n%s", want, out)
		}
	}

	// The export must parse back as a valid feed.
	parsed, err := ParseICS(Source{ID: "export", URL: "https://example.com/x.ics"}, []byte(out))
	if err != nil {
		t.Fatalf("re-parse of export failed: %v", err)
	}
	if len(parsed) != 1 || parsed[0].Summary != "Dentist" {
		t.Errorf("re-parse = %+v", parsed)
	}
}

func TestRedactURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com/private.ics?token=abc": "https://example.com/...(redacted)",
		"https://example.com":                       "https://example.com/...(redacted)",
		"garbage":                                   "ics://...(redacted)",
	}
	for in, want := range cases {
		if got := redactURL(in); got != want {
			t.Errorf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
