package layout

import (
	"time"

	"timebox/internal/model"
)

// DefaultVisibleEventCap is how many event badges a month cell shows
// before collapsing the rest into a "+N more" overflow count.
const DefaultVisibleEventCap = 3

// Engine is the composition root of the layout core: it combines the
// grid builders, the day index and the time axis into one renderable
// model per (snapshot, view state) pair.
//
// Engines are stateless and safe for concurrent use; every Render call
// recomputes from scratch over the immutable inputs it is handed.
type Engine struct {
	axis       TimeAxis
	visibleCap int
}

// NewEngine constructs an Engine. A non-positive visibleCap falls back
// to DefaultVisibleEventCap.
func NewEngine(axis TimeAxis, visibleCap int) *Engine {
	if visibleCap <= 0 {
		visibleCap = DefaultVisibleEventCap
	}
	return &Engine{axis: axis, visibleCap: visibleCap}
}

// PlacedEvent pairs an event with its computed axis geometry for one
// day column of the day/week views.
type PlacedEvent struct {
	Event    model.Event `json:"event"`
	Geometry Geometry    `json:"geometry"`
}

// CellLayout is one grid cell plus the per-view event presentation:
// full placed geometry for day/week cells, a capped badge list plus
// overflow count for month cells, a bare indicator for mini cells.
type CellLayout struct {
	Cell

	// CellKey is the YYYY-MM-DD key callers use to address this cell.
	CellKey string `json:"key"`

	// Placed carries (event, geometry) pairs; day/week views only.
	Placed []PlacedEvent `json:"placed,omitempty"`

	// VisibleEvents and OverflowCount implement the month view's
	// "3 badges + N more" contract. OverflowCount is zero when every
	// event fits.
	VisibleEvents []model.Event `json:"visible_events,omitempty"`
	OverflowCount int           `json:"overflow_count,omitempty"`

	// EventCount is the full number of events on this day.
	EventCount int `json:"event_count"`

	// HasEvents drives the mini-calendar day indicator dot.
	HasEvents bool `json:"has_events,omitempty"`
}

// LayoutModel is the immutable output of one render pass.
type LayoutModel struct {
	View         ViewMode  `json:"view"`
	SelectedDate time.Time `json:"selected_date"`
	Today        time.Time `json:"today"`

	// PixelsPerHour is the axis scale the geometry below was computed
	// with; renderers must size their hour gridlines from it.
	PixelsPerHour float64 `json:"pixels_per_hour"`

	// Hours is the fixed hour column; present for day and week views.
	Hours []HourSlot `json:"hours,omitempty"`

	// Cells is the ordered cell sequence of the active view: one cell in
	// day view, 7 in week view, 35 or 42 in month view.
	Cells []CellLayout `json:"cells"`

	// Weeks partitions Cells into rows of 7; month view only.
	Weeks [][]CellLayout `json:"weeks,omitempty"`

	// Mini is the sidebar mini-calendar window, always present.
	Mini []CellLayout `json:"mini"`

	// ClippedEvents counts events whose geometry ran past the 24-hour
	// axis and was clipped (midnight-crossing events).
	ClippedEvents int `json:"clipped_events,omitempty"`
}

// Render builds the layout model for the given validated snapshot and
// view state. today is injected rather than read from the clock so that
// identical inputs always yield identical models.
func (e *Engine) Render(events []model.Event, state ViewState, today time.Time) LayoutModel {
	ix := BuildIndex(events)

	m := LayoutModel{
		View:          state.View,
		SelectedDate:  state.SelectedDate,
		Today:         today,
		PixelsPerHour: e.axis.PixelsPerHour(),
	}

	switch state.View {
	case ViewDay:
		m.Hours = DayHours()
		cell := e.placedCell(DayGridDate(state.SelectedDate, today), ix, &m.ClippedEvents)
		m.Cells = []CellLayout{cell}

	case ViewMonth:
		for _, c := range MonthGrid(state.SelectedDate, today) {
			m.Cells = append(m.Cells, e.badgeCell(c, ix))
		}
		m.Weeks = weekRowLayouts(m.Cells)

	default: // week
		m.Hours = DayHours()
		for _, c := range WeekGrid(state.SelectedDate, today) {
			m.Cells = append(m.Cells, e.placedCell(c, ix, &m.ClippedEvents))
		}
	}

	for _, c := range MiniGrid(state.SelectedDate, today) {
		m.Mini = append(m.Mini, e.miniCell(c, ix))
	}

	return m
}

// placedCell lays out one day column: every event on the cell's day gets
// its axis geometry, input order preserved.
func (e *Engine) placedCell(c Cell, ix *DayIndex, clipped *int) CellLayout {
	events := ix.Lookup(c.Key)
	out := CellLayout{
		Cell:       c,
		CellKey:    c.Key.String(),
		EventCount: len(events),
		HasEvents:  len(events) > 0,
	}
	for _, ev := range events {
		g := e.axis.Span(ev.Start, ev.End)
		if g.Clipped {
			*clipped++
		}
		out.Placed = append(out.Placed, PlacedEvent{Event: ev, Geometry: g})
	}
	return out
}

// badgeCell lays out one month cell: the first visibleCap events become
// badges, the remainder collapses into OverflowCount.
func (e *Engine) badgeCell(c Cell, ix *DayIndex) CellLayout {
	events := ix.Lookup(c.Key)
	out := CellLayout{
		Cell:       c,
		CellKey:    c.Key.String(),
		EventCount: len(events),
		HasEvents:  len(events) > 0,
	}
	if len(events) > e.visibleCap {
		out.VisibleEvents = events[:e.visibleCap]
		out.OverflowCount = len(events) - e.visibleCap
	} else {
		out.VisibleEvents = events
	}
	return out
}

// miniCell carries only the indicator state the mini-calendar needs.
func (e *Engine) miniCell(c Cell, ix *DayIndex) CellLayout {
	n := len(ix.Lookup(c.Key))
	return CellLayout{
		Cell:       c,
		CellKey:    c.Key.String(),
		EventCount: n,
		HasEvents:  n > 0,
	}
}

func weekRowLayouts(cells []CellLayout) [][]CellLayout {
	rows := make([][]CellLayout, 0, (len(cells)+6)/7)
	for i := 0; i < len(cells); i += 7 {
		end := i + 7
		if end > len(cells) {
			end = len(cells)
		}
		rows = append(rows, cells[i:end])
	}
	return rows
}
