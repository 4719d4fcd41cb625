// Package insights analyzes a schedule for conflicts, free gaps and
// category distribution. The layout core never consumes this; it is a
// sibling feature served on its own endpoint.
package insights

import (
	"fmt"
	"sort"
	"time"

	"timebox/internal/model"
)

const (
	// Work hours scanned for free gaps.
	workDayStartHour = 8
	workDayEndHour   = 18

	// Gaps shorter than this are noise, not schedulable time.
	minGapMinutes = 30

	// How far ahead gaps are reported, and how many at most.
	gapHorizonDays  = 7
	maxReportedGaps = 5
)

// EventRef is the compact event reference used in conflict pairs.
type EventRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Start string `json:"start"`
}

// Conflict is one pair of overlapping events.
type Conflict struct {
	Event1 EventRef `json:"event1"`
	Event2 EventRef `json:"event2"`
}

// Gap is a free slot within work hours on one day.
type Gap struct {
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Report is the full insights payload served by GET /api/insights.
type Report struct {
	TotalEvents       int            `json:"total_events"`
	Conflicts         []Conflict     `json:"conflicts"`
	UpcomingGaps      []Gap          `json:"upcoming_gaps"`
	CategoryBreakdown map[string]int `json:"category_breakdown,omitempty"`
	Insights          []string       `json:"insights"`
}

// Analyze builds a Report over the given events. now anchors the 7-day
// gap horizon. The input is not mutated.
func Analyze(events []model.Event, now time.Time) Report {
	if len(events) == 0 {
		return Report{
			Conflicts:    []Conflict{},
			UpcomingGaps: []Gap{},
			Insights:     []string{"Your calendar is empty. Start planning!"},
		}
	}

	conflicts := detectConflicts(events)

	var gaps []Gap
	for i := 0; i < gapHorizonDays; i++ {
		day := now.AddDate(0, 0, i)
		gaps = append(gaps, findGaps(events, day)...)
	}
	if len(gaps) > maxReportedGaps {
		gaps = gaps[:maxReportedGaps]
	}

	breakdown := map[string]int{}
	for _, ev := range events {
		breakdown[ev.Category]++
	}

	var lines []string
	if len(conflicts) > 0 {
		lines = append(lines, fmt.Sprintf("You have %d scheduling conflicts that need attention", len(conflicts)))
	}
	large := 0
	for _, g := range gaps {
		if g.DurationMinutes >= 120 {
			large++
		}
	}
	if large > 0 {
		lines = append(lines, fmt.Sprintf("You have %d blocks of 2+ hours free time this week", large))
	}
	if cat, n, ok := mostCommonCategory(breakdown); ok {
		lines = append(lines, fmt.Sprintf("Most scheduled: %s (%d events)", cat, n))
	}
	if len(lines) == 0 {
		lines = []string{"Your schedule looks good!"}
	}

	return Report{
		TotalEvents:       len(events),
		Conflicts:         conflicts,
		UpcomingGaps:      gaps,
		CategoryBreakdown: breakdown,
		Insights:          lines,
	}
}

// detectConflicts reports every overlapping pair, scanning events in
// start order so pairs come out chronologically.
func detectConflicts(events []model.Event) []Conflict {
	sorted := make([]model.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	conflicts := []Conflict{}
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			a, b := sorted[i], sorted[j]
			if a.Start.Before(b.End) && b.Start.Before(a.End) {
				conflicts = append(conflicts, Conflict{
					Event1: refOf(a),
					Event2: refOf(b),
				})
			}
		}
	}
	return conflicts
}

// findGaps scans one day's work hours (08:00-18:00) for free slots of at
// least minGapMinutes between events starting that day.
func findGaps(events []model.Event, day time.Time) []Gap {
	y, m, d := day.Date()
	dayStart := time.Date(y, m, d, workDayStartHour, 0, 0, 0, day.Location())
	dayEnd := time.Date(y, m, d, workDayEndHour, 0, 0, 0, day.Location())
	dateStr := dayStart.Format("2006-01-02")

	var dayEvents []model.Event
	for _, ev := range events {
		ey, em, ed := ev.Start.Date()
		if ey == y && em == m && ed == d {
			dayEvents = append(dayEvents, ev)
		}
	}

	if len(dayEvents) == 0 {
		return []Gap{{
			Date:            dateStr,
			Start:           dayStart.Format(time.RFC3339),
			End:             dayEnd.Format(time.RFC3339),
			DurationMinutes: int(dayEnd.Sub(dayStart).Minutes()),
		}}
	}

	sort.SliceStable(dayEvents, func(i, j int) bool {
		return dayEvents[i].Start.Before(dayEvents[j].Start)
	})

	var gaps []Gap
	current := dayStart
	for _, ev := range dayEvents {
		if current.Before(ev.Start) {
			mins := int(ev.Start.Sub(current).Minutes())
			if mins >= minGapMinutes {
				gaps = append(gaps, Gap{
					Date:            dateStr,
					Start:           current.Format(time.RFC3339),
					End:             ev.Start.Format(time.RFC3339),
					DurationMinutes: mins,
				})
			}
		}
		if ev.End.After(current) {
			current = ev.End
		}
	}

	if current.Before(dayEnd) {
		mins := int(dayEnd.Sub(current).Minutes())
		if mins >= minGapMinutes {
			gaps = append(gaps, Gap{
				Date:            dateStr,
				Start:           current.Format(time.RFC3339),
				End:             dayEnd.Format(time.RFC3339),
				DurationMinutes: mins,
			})
		}
	}

	return gaps
}

func refOf(ev model.Event) EventRef {
	return EventRef{ID: ev.ID, Title: ev.Title, Start: ev.Start.Format(time.RFC3339)}
}

func mostCommonCategory(breakdown map[string]int) (string, int, bool) {
	best, bestN := "", 0
	for cat, n := range breakdown {
		if n > bestN || (n == bestN && best != "" && cat < best) {
			best, bestN = cat, n
		}
	}
	return best, bestN, bestN > 0
}
