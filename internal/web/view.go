package web

import (
	"html/template"
	"net/http"
	"time"

	appLog "timebox/internal/log"
	"timebox/internal/layout"
	"timebox/internal/model"
)

// categoryClass maps an event category to a CSS class. Unknown
// categories keep their label but render with the default style.
func categoryClass(category string) string {
	switch category {
	case "work", "personal", "health", "study":
		return "cat-" + category
	default:
		return "cat-default"
	}
}

// calendarPage is the template context for /calendar.
type calendarPage struct {
	Title    string
	Model    layout.LayoutModel
	Excluded int
}

var pageFuncs = template.FuncMap{
	"catClass": categoryClass,
	"timeRange": func(ev model.Event) string {
		return ev.FormatTimeRange()
	},
	"dayNum": func(t time.Time) int {
		return t.Day()
	},
	"fmtDate": func(t time.Time) string {
		return t.Format("Monday, January 2, 2006")
	},
}

var calendarTemplate = template.Must(template.New("calendar").Funcs(pageFuncs).Parse(calendarHTML))

const calendarHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; background: #fff; color: #111; }
  header { padding: 12px 16px; border-bottom: 1px solid #ddd; }
  header h1 { font-size: 18px; margin: 0 0 4px; }
  header .date { color: #555; font-size: 14px; }
  .grid { display: flex; }
  .axis { width: 56px; flex: none; }
  .axis .slot { height: var(--hour-height); font-size: 11px; color: #777; text-align: right; padding-right: 6px; box-sizing: border-box; }
  .col { flex: 1; position: relative; border-left: 1px solid #eee; }
  .col .slot { height: var(--hour-height); border-bottom: 1px solid #f3f3f3; box-sizing: border-box; }
  .col h2 { font-size: 12px; text-align: center; margin: 4px 0; }
  .block { position: absolute; left: 2px; right: 2px; border-radius: 4px; padding: 2px 4px; font-size: 11px; overflow: hidden; box-sizing: border-box; }
  .clipped { border-bottom: 2px dashed #999; }
  table.month { width: 100%; border-collapse: collapse; table-layout: fixed; }
  table.month td { border: 1px solid #eee; vertical-align: top; height: 92px; padding: 2px 4px; font-size: 12px; }
  td.outside { background: #fafafa; color: #aaa; }
  td.today .day-num { background: #2563eb; color: #fff; border-radius: 50%; padding: 1px 5px; }
  .badge { display: block; border-radius: 3px; margin-top: 2px; padding: 0 3px; font-size: 10px; white-space: nowrap; overflow: hidden; text-overflow: ellipsis; }
  .more { font-size: 10px; color: #666; margin-top: 2px; }
  .cat-work { background: #dbeafe; }
  .cat-personal { background: #dcfce7; }
  .cat-health { background: #fee2e2; }
  .cat-study { background: #f3e8ff; }
  .cat-default { background: #e5e7eb; }
</style>
</head>
<body data-ready="true" data-view="{{.Model.View}}">
<header>
  <h1>{{.Title}}</h1>
  <div class="date">{{fmtDate .Model.SelectedDate}} &mdash; {{.Model.View}} view{{if .Excluded}} &middot; {{.Excluded}} excluded{{end}}</div>
</header>

{{if eq .Model.View "month"}}
<table class="month">
  {{range .Model.Weeks}}
  <tr>
    {{range .}}
    <td class="{{if not .InPeriod}}outside {{end}}{{if .IsToday}}today{{end}}">
      <span class="day-num">{{dayNum .Date}}</span>
      {{range .VisibleEvents}}
      <span class="badge {{catClass .Category}}">{{.Title}}</span>
      {{end}}
      {{if .OverflowCount}}<div class="more">+{{.OverflowCount}} more</div>{{end}}
    </td>
    {{end}}
  </tr>
  {{end}}
</table>
{{else}}
<div class="grid" style="--hour-height: {{printf "%.0f" .Model.PixelsPerHour}}px">
  <div class="axis">
    <div class="slot"></div>
    {{range .Model.Hours}}<div class="slot">{{.Label}}</div>{{end}}
  </div>
  {{range .Model.Cells}}
  <div class="col">
    <h2>{{.Cell.Date.Format "Mon 02"}}</h2>
    {{range $hour := $.Model.Hours}}<div class="slot"></div>{{end}}
    {{range .Placed}}
    <div class="block {{catClass .Event.Category}}{{if .Geometry.Clipped}} clipped{{end}}"
         style="top: {{printf "%.1f" .Geometry.Top}}px; height: {{printf "%.1f" .Geometry.Height}}px">
      <strong>{{.Event.Title}}</strong><br>{{timeRange .Event}}
    </div>
    {{end}}
  </div>
  {{end}}
</div>
{{end}}
</body>
</html>
`

// handleCalendarPage serves the server-rendered calendar view. The
// capture pipeline waits on body[data-ready="true"] before snapshotting.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	state, err := s.stateForRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.currentSnapshot(r.Context())
	if err != nil {
		appLog.Error("snapshot build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	page := calendarPage{
		Title:    "TimeBox",
		Model:    s.engine.Render(snap.Events, state, time.Now().In(s.loc)),
		Excluded: snap.Diagnostics.ExcludedCount(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := calendarTemplate.Execute(w, page); err != nil {
		appLog.Error("calendar template render failed", err)
	}
}
