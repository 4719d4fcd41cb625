package layout

import (
	"strconv"
	"time"
)

// ViewMode selects which calendar view is active.
type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

// ParseViewMode maps a string onto a ViewMode, defaulting to week for
// anything unrecognized.
func ParseViewMode(s string) ViewMode {
	switch ViewMode(s) {
	case ViewDay, ViewWeek, ViewMonth:
		return ViewMode(s)
	default:
		return ViewWeek
	}
}

// HourSlot is one row of the day/week hour column.
type HourSlot struct {
	Hour  int    `json:"hour"`
	Label string `json:"label"`
}

// DayHours returns the fixed 24-slot hour column (0..23) with 12-hour
// clock labels. Independent of any event data.
func DayHours() []HourSlot {
	slots := make([]HourSlot, 24)
	for h := 0; h < 24; h++ {
		slots[h] = HourSlot{Hour: h, Label: HourLabel(h)}
	}
	return slots
}

// HourLabel formats an hour-of-day as "12 AM", "1 AM" ... "12 PM", "11 PM".
func HourLabel(h int) string {
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return strconv.Itoa(h) + " AM"
	case h == 12:
		return "12 PM"
	default:
		return strconv.Itoa(h-12) + " PM"
	}
}

// Cell is one day within a rendered grid.
type Cell struct {
	Date time.Time `json:"date"`
	Key  DayKey    `json:"-"`

	// InPeriod reports whether the day belongs to the displayed period:
	// the selected month for month/mini grids, always true for day/week.
	InPeriod bool `json:"in_period"`
	// IsToday flags the current date.
	IsToday bool `json:"is_today"`
	// IsSelected flags the selected date; only the mini-calendar sets it.
	IsSelected bool `json:"is_selected,omitempty"`
}

// StartOfWeek returns midnight of the Monday on or before t (ISO week).
func StartOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	// time.Weekday has Sunday == 0; shift so Monday == 0.
	shift := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -shift)
}

// DayGridDate returns the single cell backing the day view.
func DayGridDate(selected, today time.Time) Cell {
	return newCell(startOfDay(selected), today, true)
}

// WeekGrid returns the 7 consecutive days starting at the Monday on or
// before selected. Pure in (selected, today); never mutates its inputs.
func WeekGrid(selected, today time.Time) []Cell {
	start := StartOfWeek(selected)
	cells := make([]Cell, 7)
	for i := 0; i < 7; i++ {
		cells[i] = newCell(start.AddDate(0, 0, i), today, true)
	}
	return cells
}

// MonthGrid returns the Monday-aligned window covering the whole of
// selected's month: from the Monday on/before the 1st through the Sunday
// ending the week of the last day. Always a multiple of 7 cells (35 or
// 42), so months spanning six calendar weeks are fully covered.
func MonthGrid(selected, today time.Time) []Cell {
	first := time.Date(selected.Year(), selected.Month(), 1, 0, 0, 0, 0, selected.Location())
	last := first.AddDate(0, 1, -1)

	start := StartOfWeek(first)
	end := StartOfWeek(last).AddDate(0, 0, 6)

	n := int(end.Sub(start).Hours()/24) + 1
	// AddDate over a DST boundary can skew the hour count; round up to a
	// whole week to stay safe.
	if n%7 != 0 {
		n += 7 - n%7
	}

	cells := make([]Cell, 0, n)
	for i := 0; i < n; i++ {
		day := start.AddDate(0, 0, i)
		cells = append(cells, newCell(day, today, day.Month() == selected.Month()))
	}
	return cells
}

// MiniGrid returns the sidebar mini-calendar window: the same month
// window as MonthGrid with IsSelected set on the selected day.
func MiniGrid(selected, today time.Time) []Cell {
	cells := MonthGrid(selected, today)
	sel := DayKeyOf(selected)
	for i := range cells {
		cells[i].IsSelected = cells[i].Key == sel
	}
	return cells
}

// WeekRows partitions a month or mini grid into rows of 7 cells.
func WeekRows(cells []Cell) [][]Cell {
	rows := make([][]Cell, 0, (len(cells)+6)/7)
	for i := 0; i < len(cells); i += 7 {
		end := i + 7
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, cells[i:end])
	}
	return rows
}

func newCell(day, today time.Time, inPeriod bool) Cell {
	k := DayKeyOf(day)
	return Cell{
		Date:     day,
		Key:      k,
		InPeriod: inPeriod,
		IsToday:  k == DayKeyOf(today),
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
