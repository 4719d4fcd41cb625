package snapshot

import (
	"testing"
	"time"

	"timebox/internal/model"
)

func TestParseTimestamp(t *testing.T) {
	loc := time.UTC

	cases := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-03-15T09:30:00", time.Date(2024, 3, 15, 9, 30, 0, 0, loc), true},
		{"2024-03-15T09:30", time.Date(2024, 3, 15, 9, 30, 0, 0, loc), true},
		{"2024-03-15T09:30:00Z", time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), true},
		{"not-a-time", time.Time{}, false},
		{"", time.Time{}, false},
		{"2024-03-15", time.Time{}, false},
	}

	for _, tc := range cases {
		got, err := ParseTimestamp(tc.in, loc)
		if tc.ok != (err == nil) {
			t.Errorf("ParseTimestamp(%q) err = %v, want ok=%v", tc.in, err, tc.ok)
			continue
		}
		if tc.ok && !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestFromDTO(t *testing.T) {
	loc := time.UTC

	t.Run("valid", func(t *testing.T) {
		ev, ex := FromDTO(EventDTO{
			ID: "e1", Title: "standup",
			Start: "2024-03-15T09:30:00", End: "2024-03-15T10:15:00",
			Category: "work",
		}, model.SourceLocal, loc)
		if ex != nil {
			t.Fatalf("unexpected exclusion: %+v", ex)
		}
		if ev.Duration() != 45*time.Minute {
			t.Errorf("duration = %v, want 45m", ev.Duration())
		}
		if ev.Source != model.SourceLocal {
			t.Errorf("source = %q", ev.Source)
		}
	})

	t.Run("unparseable start", func(t *testing.T) {
		_, ex := FromDTO(EventDTO{Title: "x", Start: "yesterday", End: "2024-03-15T10:00:00"}, "local", loc)
		if ex == nil || ex.Reason != ReasonUnparseableTimestamp {
			t.Fatalf("exclusion = %+v, want unparseable_timestamp", ex)
		}
	})

	t.Run("inverted interval", func(t *testing.T) {
		_, ex := FromDTO(EventDTO{
			Title: "x", Start: "2024-03-15T11:00:00", End: "2024-03-15T10:00:00",
		}, "local", loc)
		if ex == nil || ex.Reason != ReasonMalformedInterval {
			t.Fatalf("exclusion = %+v, want malformed_interval", ex)
		}
	})

	t.Run("zero length interval", func(t *testing.T) {
		_, ex := FromDTO(EventDTO{
			Title: "x", Start: "2024-03-15T10:00:00", End: "2024-03-15T10:00:00",
		}, "local", loc)
		if ex == nil || ex.Reason != ReasonMalformedInterval {
			t.Fatalf("exclusion = %+v, want malformed_interval", ex)
		}
	})

	t.Run("unknown category preserved", func(t *testing.T) {
		ev, ex := FromDTO(EventDTO{
			Title: "x", Start: "2024-03-15T09:00:00", End: "2024-03-15T10:00:00",
			Category: "quantum-chess",
		}, "local", loc)
		if ex != nil {
			t.Fatalf("unexpected exclusion: %+v", ex)
		}
		if ev.Category != "quantum-chess" {
			t.Errorf("category = %q, want the unknown value preserved", ev.Category)
		}
	})
}

func TestBuildMergesAndExcludes(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	d := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	good := func(id string) model.Event {
		return model.Event{ID: id, Title: id, Start: d, End: d.Add(time.Hour), Source: "local"}
	}
	bad := model.Event{ID: "bad", Title: "bad", Start: d.Add(time.Hour), End: d, Source: "feed"}

	snap := Build(now,
		[]model.Event{good("a"), bad},
		[]model.Event{good("b")},
	)

	if len(snap.Events) != 2 {
		t.Fatalf("snapshot has %d events, want 2", len(snap.Events))
	}
	// Batch order then input order.
	if snap.Events[0].ID != "a" || snap.Events[1].ID != "b" {
		t.Errorf("order = %s, %s; want a, b", snap.Events[0].ID, snap.Events[1].ID)
	}
	if snap.Diagnostics.ExcludedCount() != 1 {
		t.Fatalf("excluded = %d, want 1", snap.Diagnostics.ExcludedCount())
	}
	ex := snap.Diagnostics.Excluded[0]
	if ex.ID != "bad" || ex.Reason != ReasonMalformedInterval {
		t.Errorf("exclusion = %+v", ex)
	}
	if !snap.BuiltAt.Equal(now) {
		t.Errorf("BuiltAt = %v, want %v", snap.BuiltAt, now)
	}
}

func TestBuildEmpty(t *testing.T) {
	snap := Build(time.Now())
	if len(snap.Events) != 0 || snap.Diagnostics.ExcludedCount() != 0 {
		t.Errorf("empty build = %d events, %d excluded", len(snap.Events), snap.Diagnostics.ExcludedCount())
	}
}
