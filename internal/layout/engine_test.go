package layout

import (
	"testing"
	"time"

	"timebox/internal/model"
)

func newTestEngine() *Engine {
	return NewEngine(NewTimeAxis(60), 3)
}

func TestRenderWeekGeometry(t *testing.T) {
	e := newTestEngine()

	friday := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		ev("a", friday.Add(9*time.Hour+30*time.Minute), 45*time.Minute),
	}

	state := NewViewState(friday)
	m := e.Render(events, state, friday)

	if m.View != ViewWeek {
		t.Fatalf("View = %v, want week", m.View)
	}
	if len(m.Cells) != 7 {
		t.Fatalf("week render has %d cells, want 7", len(m.Cells))
	}
	if len(m.Hours) != 24 {
		t.Fatalf("week render has %d hour slots, want 24", len(m.Hours))
	}

	var found *PlacedEvent
	for i := range m.Cells {
		c := m.Cells[i]
		if c.CellKey == "2024-03-15" {
			if len(c.Placed) != 1 {
				t.Fatalf("friday cell has %d placed events, want 1", len(c.Placed))
			}
			found = &c.Placed[0]
		} else if len(c.Placed) != 0 {
			t.Errorf("cell %s has %d placed events, want 0", c.CellKey, len(c.Placed))
		}
	}
	if found == nil {
		t.Fatal("no cell keyed 2024-03-15 in the week render")
	}
	if found.Geometry.Top != 570 || found.Geometry.Height != 45 {
		t.Errorf("geometry = (%v, %v), want (570, 45)", found.Geometry.Top, found.Geometry.Height)
	}
}

func TestRenderCarriesAxisScale(t *testing.T) {
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	events := []model.Event{
		ev("a", day.Add(9*time.Hour+30*time.Minute), 45*time.Minute),
	}

	// Renderers size their hour gridlines from the model; block geometry
	// and the advertised scale must come from the same axis.
	e := NewEngine(NewTimeAxis(48), 3)
	m := e.Render(events, NewViewState(day).WithView(ViewDay), day)

	if m.PixelsPerHour != 48 {
		t.Errorf("PixelsPerHour = %v, want 48", m.PixelsPerHour)
	}
	if got := m.Cells[0].Placed[0].Geometry; got.Top != 9.5*48 || got.Height != 0.75*48 {
		t.Errorf("geometry = (%v, %v), want (456, 36)", got.Top, got.Height)
	}
}

func TestRenderDayView(t *testing.T) {
	e := newTestEngine()
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []model.Event{
		ev("a", day.Add(9*time.Hour), time.Hour),
		// On a different day; must not appear.
		ev("b", day.AddDate(0, 0, 1).Add(9*time.Hour), time.Hour),
	}

	m := e.Render(events, NewViewState(day).WithView(ViewDay), day)

	if len(m.Cells) != 1 {
		t.Fatalf("day render has %d cells, want 1", len(m.Cells))
	}
	if got := len(m.Cells[0].Placed); got != 1 {
		t.Errorf("day cell has %d placed events, want 1", got)
	}
	if len(m.Hours) != 24 {
		t.Errorf("day render has %d hour slots, want 24", len(m.Hours))
	}
}

func TestRenderMonthOverflow(t *testing.T) {
	e := newTestEngine()
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	// 5 events on one day: 3 visible badges + overflow 2.
	events := make([]model.Event, 0, 5)
	ids := []string{"a", "b", "c", "d", "e"}
	for i, id := range ids {
		events = append(events, ev(id, day.Add(time.Duration(9+i)*time.Hour), time.Hour))
	}

	m := e.Render(events, NewViewState(day).WithView(ViewMonth), day)

	if len(m.Weeks) == 0 {
		t.Fatal("month render has no week rows")
	}
	if len(m.Hours) != 0 {
		t.Error("month render must not carry the hour column")
	}

	var cell *CellLayout
	for i := range m.Cells {
		if m.Cells[i].CellKey == "2024-03-15" {
			cell = &m.Cells[i]
		}
		if len(m.Cells[i].Placed) != 0 {
			t.Errorf("month cell %s carries placed geometry", m.Cells[i].CellKey)
		}
	}
	if cell == nil {
		t.Fatal("2024-03-15 missing from month render")
	}

	if len(cell.VisibleEvents) != 3 {
		t.Errorf("visible events = %d, want 3", len(cell.VisibleEvents))
	}
	if cell.OverflowCount != 2 {
		t.Errorf("OverflowCount = %d, want 2", cell.OverflowCount)
	}
	if cell.EventCount != 5 {
		t.Errorf("EventCount = %d, want 5", cell.EventCount)
	}
	for i, want := range []string{"a", "b", "c"} {
		if cell.VisibleEvents[i].ID != want {
			t.Errorf("visible[%d] = %q, want %q (input order)", i, cell.VisibleEvents[i].ID, want)
		}
	}
}

func TestRenderMiniCalendar(t *testing.T) {
	e := newTestEngine()
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []model.Event{ev("a", day.Add(9*time.Hour), time.Hour)}
	m := e.Render(events, NewViewState(day), day)

	if len(m.Mini)%7 != 0 || len(m.Mini) == 0 {
		t.Fatalf("mini grid has %d cells, want a non-empty multiple of 7", len(m.Mini))
	}

	marked := 0
	for _, c := range m.Mini {
		if c.HasEvents {
			marked++
			if c.CellKey != "2024-03-15" {
				t.Errorf("HasEvents set on %s", c.CellKey)
			}
		}
		if c.IsSelected && c.CellKey != "2024-03-15" {
			t.Errorf("IsSelected set on %s", c.CellKey)
		}
	}
	if marked != 1 {
		t.Errorf("%d mini cells marked HasEvents, want 1", marked)
	}
}

func TestRenderCountsClippedEvents(t *testing.T) {
	e := newTestEngine()
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	events := []model.Event{
		ev("late", day.Add(23*time.Hour), 3*time.Hour), // crosses midnight
		ev("fine", day.Add(9*time.Hour), time.Hour),
	}

	m := e.Render(events, NewViewState(day).WithView(ViewDay), day)
	if m.ClippedEvents != 1 {
		t.Errorf("ClippedEvents = %d, want 1", m.ClippedEvents)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	e := newTestEngine()
	day := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	events := []model.Event{ev("a", day.Add(9*time.Hour), time.Hour)}
	state := NewViewState(day).WithView(ViewMonth)

	m1 := e.Render(events, state, day)
	m2 := e.Render(events, state, day)

	if len(m1.Cells) != len(m2.Cells) {
		t.Fatalf("repeat renders differ in size: %d vs %d", len(m1.Cells), len(m2.Cells))
	}
	for i := range m1.Cells {
		a, b := m1.Cells[i], m2.Cells[i]
		if a.CellKey != b.CellKey || a.EventCount != b.EventCount || a.OverflowCount != b.OverflowCount {
			t.Errorf("cell %d differs between identical renders", i)
		}
	}
}
