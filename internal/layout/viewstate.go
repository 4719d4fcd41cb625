package layout

import (
	"time"

	"timebox/internal/model"
)

// ViewState is the minimal UI state the layout engine renders from:
// selected date, active view, selected event and sidebar visibility.
//
// It is a value type owned by a single coordinator (the web server).
// Every transition returns a new value and is total: no transition is
// invalid from any state. Nothing here is persisted; state resets to
// NewViewState on process start.
type ViewState struct {
	SelectedDate  time.Time
	View          ViewMode
	SelectedEvent *model.Event
	SidebarOpen   bool
}

// NewViewState returns the initial state: now selected, week view,
// sidebar open, no event selected.
func NewViewState(now time.Time) ViewState {
	return ViewState{
		SelectedDate: now,
		View:         ViewWeek,
		SidebarOpen:  true,
	}
}

// WithView switches the active view. The selected date is untouched.
func (s ViewState) WithView(mode ViewMode) ViewState {
	s.View = mode
	return s
}

// WithDate picks a date (month-grid and mini-calendar day clicks).
// The active view is untouched.
func (s ViewState) WithDate(date time.Time) ViewState {
	s.SelectedDate = date
	return s
}

// WithSelectedEvent selects an event for the sidebar detail panel and
// opens the sidebar. The selected date never changes here. A nil event
// clears the selection without touching sidebar visibility.
func (s ViewState) WithSelectedEvent(ev *model.Event) ViewState {
	s.SelectedEvent = ev
	if ev != nil {
		s.SidebarOpen = true
	}
	return s
}

// WithToday jumps the selection to the current date.
func (s ViewState) WithToday(now time.Time) ViewState {
	s.SelectedDate = now
	return s
}

// Step advances the selected date by n periods of the active view:
// n days in day view, n weeks in week view, n months in month view.
// Use n = -1 / +1 for the previous/next navigation buttons.
func (s ViewState) Step(n int) ViewState {
	switch s.View {
	case ViewDay:
		s.SelectedDate = s.SelectedDate.AddDate(0, 0, n)
	case ViewMonth:
		s.SelectedDate = s.SelectedDate.AddDate(0, n, 0)
	default: // week
		s.SelectedDate = s.SelectedDate.AddDate(0, 0, 7*n)
	}
	return s
}

// WithSidebar opens or closes the sidebar.
func (s ViewState) WithSidebar(open bool) ViewState {
	s.SidebarOpen = open
	return s
}
