package layout

import (
	"math"
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2024, time.March, 15, hour, min, 0, 0, time.UTC)
}

func TestOffsetAndHeight(t *testing.T) {
	axis := NewTimeAxis(60)

	start := at(9, 30)
	end := at(10, 15)

	if got := axis.Offset(start); got != 570 {
		t.Errorf("Offset(09:30) = %v, want 570", got)
	}
	if got := axis.Height(start, end); got != 45 {
		t.Errorf("Height(09:30, 10:15) = %v, want 45", got)
	}
}

func TestOffsetPlusHeightEqualsEndOffset(t *testing.T) {
	axis := NewTimeAxis(60)

	cases := []struct {
		name       string
		start, end time.Time
	}{
		{"morning", at(9, 30), at(10, 15)},
		{"midnight start", at(0, 0), at(1, 0)},
		{"late evening", at(22, 45), at(23, 59)},
		{"one minute", at(12, 0), at(12, 1)},
		{"full day", at(0, 0), at(23, 59)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := axis.Span(tc.start, tc.end)
			if g.Clipped {
				t.Fatalf("unexpected clipping for %v..%v", tc.start, tc.end)
			}
			if got, want := g.Top+g.Height, axis.Offset(tc.end); math.Abs(got-want) > 1e-9 {
				t.Errorf("Top+Height = %v, want Offset(end) = %v", got, want)
			}
		})
	}
}

func TestSpanClipsAtAxisBottom(t *testing.T) {
	axis := NewTimeAxis(60)

	// Crosses midnight: 23:00 -> 01:00 next day.
	start := at(23, 0)
	end := start.Add(2 * time.Hour)

	g := axis.Span(start, end)
	if !g.Clipped {
		t.Fatal("expected Clipped for a midnight-crossing event")
	}
	if g.Top != 23*60 {
		t.Errorf("Top = %v, want %v", g.Top, 23*60)
	}
	if got, want := g.Top+g.Height, axis.AxisHeight(); got != want {
		t.Errorf("clipped bottom = %v, want axis height %v", got, want)
	}
}

func TestNewTimeAxisDefault(t *testing.T) {
	for _, bad := range []float64{0, -10} {
		if got := NewTimeAxis(bad).PixelsPerHour(); got != DefaultPixelsPerHour {
			t.Errorf("NewTimeAxis(%v).PixelsPerHour() = %v, want %v", bad, got, DefaultPixelsPerHour)
		}
	}
	if got := NewTimeAxis(30).AxisHeight(); got != 720 {
		t.Errorf("AxisHeight at 30px/h = %v, want 720", got)
	}
}
