package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"timebox/internal/model"
)

// Export serializes the given events as a VCALENDAR payload, the shape
// served by GET /api/export/ics. The category travels in the DESCRIPTION
// ("Category: work") so round-tripping through other calendar apps keeps
// the tag visible.
func Export(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//TimeBox//timebox//EN")

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Category != "" {
			ve.SetDescription("Category: " + ev.Category)
		}
	}

	return cal.Serialize()
}
