// Package caldav provides a read-only CalDAV event source. Events pulled
// from a CalDAV server are merged into the snapshot alongside ICS
// subscriptions; TimeBox never writes back.
package caldav

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"

	appLog "timebox/internal/log"
	"timebox/internal/model"
)

// SourceID tags events pulled over CalDAV in the merged snapshot.
const SourceID = "caldav"

// Client is a basic-auth CalDAV client bound to one server.
type Client struct {
	baseURL  string
	username string
	password string
	category string

	// connectOnce guards client/connectErr: FetchEvents may be called
	// from overlapping cron refreshes.
	connectOnce sync.Once
	client      *caldav.Client
	connectErr  error
}

// NewClient creates a CalDAV client. category is the TimeBox category
// applied to every event from this source.
func NewClient(baseURL, username, password, category string) *Client {
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
		category: category,
	}
}

// IsConfigured reports whether the client has credentials.
func (c *Client) IsConfigured() bool {
	return c.baseURL != "" && c.username != "" && c.password != ""
}

func (c *Client) connect() (*caldav.Client, error) {
	c.connectOnce.Do(func() {
		httpClient := &http.Client{
			Transport: &basicAuthTransport{username: c.username, password: c.password},
			Timeout:   30 * time.Second,
		}

		client, err := caldav.NewClient(httpClient, c.baseURL)
		if err != nil {
			c.connectErr = fmt.Errorf("connect to CalDAV: %w", err)
			return
		}
		c.client = client
	})

	return c.client, c.connectErr
}

// basicAuthTransport adds Basic Auth to every request.
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// FetchEvents queries every calendar on the server for VEVENTs in
// [from, to] and converts them to the shared event model in loc.
// Calendars or objects that fail are logged and skipped.
func (c *Client) FetchEvents(ctx context.Context, from, to time.Time, loc *time.Location) ([]model.Event, error) {
	if loc == nil {
		loc = time.Local
	}

	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	var events []model.Event
	for _, cal := range cals {
		objects, err := client.QueryCalendar(ctx, cal.Path, query)
		if err != nil {
			appLog.Error("caldav query failed", err, "calendar", cal.Path)
			continue
		}
		for i := range objects {
			evs := eventsFromObject(&objects[i], c.category, loc)
			events = append(events, evs...)
		}
	}

	appLog.Info("caldav fetch completed", "calendars", len(cals), "event_count", len(events))
	return events, nil
}

// eventsFromObject converts the VEVENTs of one calendar object into
// model events. Components without usable times are skipped.
func eventsFromObject(obj *caldav.CalendarObject, category string, loc *time.Location) []model.Event {
	if obj.Data == nil {
		return nil
	}

	var out []model.Event
	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}

		var ev model.Event
		ev.Category = category
		ev.Source = SourceID

		if prop := comp.Props.Get(ical.PropUID); prop != nil {
			ev.ID = SourceID + ":" + prop.Value
		}
		if prop := comp.Props.Get(ical.PropSummary); prop != nil {
			ev.Title = prop.Value
		}
		if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
			if t, err := prop.DateTime(loc); err == nil {
				ev.Start = t.In(loc)
			}
		}
		if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
			if t, err := prop.DateTime(loc); err == nil {
				ev.End = t.In(loc)
			}
		}

		if ev.Start.IsZero() || ev.End.IsZero() {
			continue
		}
		out = append(out, ev)
	}
	return out
}
