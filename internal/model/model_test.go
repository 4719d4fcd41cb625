package model

import (
	"testing"
	"time"
)

func TestValid(t *testing.T) {
	start := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		event Event
		want  bool
	}{
		{"ordered interval", Event{Start: start, End: start.Add(time.Hour)}, true},
		{"zero length", Event{Start: start, End: start}, false},
		{"inverted", Event{Start: start, End: start.Add(-time.Hour)}, false},
		{"missing start", Event{End: start}, false},
		{"missing end", Event{Start: start}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.event.Valid(); got != tc.want {
				t.Errorf("Valid() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFormatTimeRange(t *testing.T) {
	ev := Event{
		Start: time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 15, 16, 15, 0, 0, time.UTC),
	}
	if got := ev.FormatTimeRange(); got != "3:00 PM - 4:15 PM" {
		t.Errorf("FormatTimeRange() = %q", got)
	}
}

func TestDuration(t *testing.T) {
	ev := Event{
		Start: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 15, 10, 15, 0, 0, time.UTC),
	}
	if got := ev.Duration(); got != 45*time.Minute {
		t.Errorf("Duration() = %v", got)
	}
}
