// Package web serves the TimeBox HTTP API and the server-rendered
// calendar page. It owns the ViewState and the current event snapshot:
// both are single-writer (this server), replaced whole on change, never
// patched in place.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"timebox/internal/caldav"
	"timebox/internal/config"
	"timebox/internal/ics"
	"timebox/internal/insights"
	"timebox/internal/layout"
	appLog "timebox/internal/log"
	"timebox/internal/model"
	"timebox/internal/snapshot"
	"timebox/internal/store"
)

// Server provides the HTTP API for events, layout, insights and export.
type Server struct {
	cfg    *config.Config
	loc    *time.Location
	engine *layout.Engine
	store  *store.Store
	debug  bool
	mux    *http.ServeMux

	fetcher    *ics.Fetcher
	icsSources []ics.Source
	caldavCli  *caldav.Client

	// remoteMu guards the last fetched remote (ICS/CalDAV) events.
	// Refreshed by the cron loop and on demand; read during snapshot
	// assembly.
	remoteMu     sync.RWMutex
	remoteEvents []model.Event

	// stateMu guards the current ViewState. Transitions go through
	// applyState only, producing a whole new value each time.
	stateMu sync.RWMutex
	state   layout.ViewState

	// snapMu guards the cached snapshot. A nil cache means the next
	// layout request rebuilds from the store + remote events.
	snapMu    sync.RWMutex
	snapCache *snapshot.Snapshot

	// previewPath is where the capture pipeline drops the last PNG.
	previewPath string
}

// NewServer constructs a Server over an opened store.
func NewServer(cfg *config.Config, st *store.Store, debug bool) *Server {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		loc = time.Local
	}

	s := &Server{
		cfg:         cfg,
		loc:         loc,
		engine:      layout.NewEngine(layout.NewTimeAxis(cfg.PixelsPerHour), cfg.VisibleEventCap),
		store:       st,
		debug:       debug,
		mux:         http.NewServeMux(),
		fetcher:     ics.NewFetcher(cacheDir(debug)),
		state:       layout.NewViewState(time.Now().In(loc)),
		previewPath: PreviewPath(debug),
	}

	for _, csrc := range cfg.ICS {
		if csrc.URL == "" {
			continue
		}
		id := csrc.ID
		if id == "" {
			if csrc.Name != "" {
				id = csrc.Name
			} else {
				id = csrc.URL
			}
		}
		s.icsSources = append(s.icsSources, ics.Source{ID: id, URL: csrc.URL, Category: csrc.Category})
	}

	if cfg.CalDAV != nil {
		s.caldavCli = caldav.NewClient(cfg.CalDAV.URL, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Category)
	}

	s.registerRoutes()
	return s
}

// Handler returns the http.Handler for this server, with basic auth
// wrapped around everything except /health when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// PreviewPath returns where capture output lives, matching the capture
// pipeline in cmd/timebox.
func PreviewPath(debug bool) string {
	if debug {
		return "./cache/preview.png"
	}
	return "/var/lib/timebox/preview.png"
}

func cacheDir(debug bool) string {
	if debug {
		return "./cache/ics-cache"
	}
	return "/var/lib/timebox/ics-cache"
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password counts as disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="TimeBox", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/events", s.handleEvents)
	s.mux.HandleFunc("/api/events/", s.handleEventByID)
	s.mux.HandleFunc("/api/layout", s.handleLayout)
	s.mux.HandleFunc("/api/state", s.handleState)
	s.mux.HandleFunc("/api/insights", s.handleInsights)
	s.mux.HandleFunc("/api/export/ics", s.handleExportICS)
	s.mux.HandleFunc("/calendar", s.handleCalendarPage)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

// StartServer starts an HTTP server bound to cfg.Listen. The server
// shuts down gracefully when ctx is canceled.
func StartServer(ctx context.Context, s *Server) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen, "debug", s.debug)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// RefreshRemote refetches all subscription sources (ICS feeds, CalDAV)
// and invalidates the snapshot cache. Called by the cron loop and once
// at startup. Individual source failures degrade to cached or absent
// data; they never abort the refresh.
func (s *Server) RefreshRemote(ctx context.Context) {
	now := time.Now().In(s.loc)
	rangeStart := now.AddDate(0, 0, -s.cfg.HorizonDays)
	rangeEnd := now.AddDate(0, 0, s.cfg.HorizonDays)

	var remote []model.Event

	if len(s.icsSources) > 0 {
		results, errs := s.fetcher.FetchAll(ctx, s.icsSources)
		if len(errs) > 0 {
			appLog.Warn("one or more ICS fetches failed", "error_count", len(errs))
		}

		parsed := make([]ics.ParsedEvent, 0)
		for _, res := range results {
			events, err := ics.ParseICS(res.Source, res.Body)
			if err != nil {
				appLog.Error("ics parse failed for source", err, "id", res.Source.ID)
				continue
			}
			parsed = append(parsed, events...)
		}

		expanded, err := ics.ExpandEvents(parsed, ics.ExpandConfig{
			DisplayLocation: s.loc,
			RangeStart:      rangeStart,
			RangeEnd:        rangeEnd,
		})
		if err != nil {
			appLog.Error("ics expand failed", err)
		} else {
			remote = append(remote, expanded.Events...)
		}
	}

	if s.caldavCli != nil && s.caldavCli.IsConfigured() {
		events, err := s.caldavCli.FetchEvents(ctx, rangeStart, rangeEnd, s.loc)
		if err != nil {
			appLog.Error("caldav fetch failed", err)
		} else {
			remote = append(remote, events...)
		}
	}

	s.remoteMu.Lock()
	s.remoteEvents = remote
	s.remoteMu.Unlock()

	s.invalidateSnapshot()
	appLog.Info("remote sources refreshed", "event_count", len(remote))
}

// currentSnapshot returns the cached snapshot, rebuilding it from the
// store and the last remote fetch when stale or invalidated.
func (s *Server) currentSnapshot(ctx context.Context) (snapshot.Snapshot, error) {
	const snapshotTTL = 30 * time.Second

	s.snapMu.RLock()
	cached := s.snapCache
	s.snapMu.RUnlock()
	if cached != nil && time.Since(cached.BuiltAt) < snapshotTTL {
		return *cached, nil
	}

	local, err := s.store.List(ctx)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	s.remoteMu.RLock()
	remote := s.remoteEvents
	s.remoteMu.RUnlock()

	snap := snapshot.Build(time.Now().In(s.loc), local, remote)
	if n := snap.Diagnostics.ExcludedCount(); n > 0 {
		appLog.Warn("events excluded from snapshot", "excluded", n)
	}

	s.snapMu.Lock()
	s.snapCache = &snap
	s.snapMu.Unlock()

	return snap, nil
}

func (s *Server) invalidateSnapshot() {
	s.snapMu.Lock()
	s.snapCache = nil
	s.snapMu.Unlock()
}

// currentState returns the ViewState under the read lock.
func (s *Server) currentState() layout.ViewState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// applyState replaces the ViewState with the result of fn.
func (s *Server) applyState(fn func(layout.ViewState) layout.ViewState) layout.ViewState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.state = fn(s.state)
	return s.state
}

// eventDTO is the JSON shape for events in API responses.
type eventDTO struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Start    string `json:"start"`
	End      string `json:"end"`
	Category string `json:"category"`
	Source   string `json:"source,omitempty"`
}

func toDTO(ev model.Event) eventDTO {
	return eventDTO{
		ID:       ev.ID,
		Title:    ev.Title,
		Start:    ev.Start.Format(time.RFC3339),
		End:      ev.End.Format(time.RFC3339),
		Category: ev.Category,
		Source:   ev.Source,
	}
}

// handleEvents serves the event collection:
//
//	GET    /api/events  -> {"events": [...]}
//	POST   /api/events  -> create one event
//	DELETE /api/events  -> clear all events
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListEvents(w, r)
	case http.MethodPost:
		s.handleCreateEvent(w, r)
	case http.MethodDelete:
		s.handleClearEvents(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	snap, err := s.currentSnapshot(r.Context())
	if err != nil {
		appLog.Error("snapshot build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	dtos := make([]eventDTO, 0, len(snap.Events))
	for _, ev := range snap.Events {
		dtos = append(dtos, toDTO(ev))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events":      dtos,
		"excluded":    snap.Diagnostics.ExcludedCount(),
		"diagnostics": snap.Diagnostics.Excluded,
	})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var dto snapshot.EventDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if dto.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	ev, excl := snapshot.FromDTO(dto, model.SourceLocal, s.loc)
	if excl != nil {
		appLog.Warn("event rejected", "reason", string(excl.Reason), "detail", excl.Detail)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "event rejected",
			"reason": excl.Reason,
			"detail": excl.Detail,
		})
		return
	}

	created, err := s.store.Create(r.Context(), ev)
	if err != nil {
		appLog.Error("event create failed", err)
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	// The next layout request rebuilds from a fresh snapshot.
	s.invalidateSnapshot()

	appLog.Info("event created", "id", created.ID, "title", created.Title)
	writeJSON(w, http.StatusCreated, map[string]any{
		"event":   toDTO(created),
		"message": "Event created successfully",
	})
}

func (s *Server) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		appLog.Error("event clear failed", err)
		writeError(w, http.StatusInternalServerError, "failed to clear events")
		return
	}
	s.invalidateSnapshot()
	writeJSON(w, http.StatusOK, map[string]string{"message": "All events cleared"})
}

// handleEventByID serves DELETE /api/events/{id}.
func (s *Server) handleEventByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/events/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "invalid event id")
		return
	}

	ok, err := s.store.Delete(r.Context(), id)
	if err != nil {
		appLog.Error("event delete failed", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "Event not found")
		return
	}

	s.invalidateSnapshot()
	writeJSON(w, http.StatusOK, map[string]string{"message": "Event deleted successfully"})
}

// handleLayout serves GET /api/layout?view=week&date=2024-03-15.
// Omitted parameters fall back to the current ViewState.
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
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

	m := s.engine.Render(snap.Events, state, time.Now().In(s.loc))
	writeJSON(w, http.StatusOK, map[string]any{
		"layout":   m,
		"excluded": snap.Diagnostics.ExcludedCount(),
	})
}

// stateForRequest overlays view/date query parameters onto the current
// ViewState without mutating it.
func (s *Server) stateForRequest(r *http.Request) (layout.ViewState, error) {
	state := s.currentState()

	q := r.URL.Query()
	if v := q.Get("view"); v != "" {
		state = state.WithView(layout.ParseViewMode(v))
	}
	if d := q.Get("date"); d != "" {
		day, err := time.ParseInLocation("2006-01-02", d, s.loc)
		if err != nil {
			return state, errors.New("invalid date; want YYYY-MM-DD")
		}
		state = state.WithDate(day)
	}
	return state, nil
}

// stateRequest is the POST /api/state body.
type stateRequest struct {
	Action string `json:"action"` // view | pick | select | today | step | sidebar
	View   string `json:"view,omitempty"`
	Date   string `json:"date,omitempty"`
	Event  string `json:"event,omitempty"`
	N      int    `json:"n,omitempty"`
	Open   *bool  `json:"open,omitempty"`
}

// stateDTO is the JSON shape of the current ViewState.
type stateDTO struct {
	SelectedDate  string    `json:"selected_date"`
	View          string    `json:"view"`
	SelectedEvent *eventDTO `json:"selected_event,omitempty"`
	SidebarOpen   bool      `json:"sidebar_open"`
}

func toStateDTO(st layout.ViewState) stateDTO {
	out := stateDTO{
		SelectedDate: st.SelectedDate.Format("2006-01-02"),
		View:         string(st.View),
		SidebarOpen:  st.SidebarOpen,
	}
	if st.SelectedEvent != nil {
		dto := toDTO(*st.SelectedEvent)
		out.SelectedEvent = &dto
	}
	return out
}

// handleState reads (GET) or transitions (POST) the server-held
// ViewState. Every transition is one of the pure ViewState operations.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toStateDTO(s.currentState()))

	case http.MethodPost:
		var req stateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		next, err := s.transition(r.Context(), req)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, toStateDTO(next))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) transition(ctx context.Context, req stateRequest) (layout.ViewState, error) {
	switch req.Action {
	case "view":
		mode := layout.ParseViewMode(req.View)
		return s.applyState(func(st layout.ViewState) layout.ViewState {
			return st.WithView(mode)
		}), nil

	case "pick":
		day, err := time.ParseInLocation("2006-01-02", req.Date, s.loc)
		if err != nil {
			return layout.ViewState{}, errors.New("invalid date; want YYYY-MM-DD")
		}
		return s.applyState(func(st layout.ViewState) layout.ViewState {
			return st.WithDate(day)
		}), nil

	case "select":
		if req.Event == "" {
			return s.applyState(func(st layout.ViewState) layout.ViewState {
				return st.WithSelectedEvent(nil)
			}), nil
		}
		ev, found, err := s.store.Get(ctx, req.Event)
		if err != nil {
			return layout.ViewState{}, err
		}
		if !found {
			// Subscription events are not in the store; look in the snapshot.
			snap, serr := s.currentSnapshot(ctx)
			if serr != nil {
				return layout.ViewState{}, serr
			}
			for _, cand := range snap.Events {
				if cand.ID == req.Event {
					ev, found = cand, true
					break
				}
			}
		}
		if !found {
			return layout.ViewState{}, errors.New("event not found")
		}
		return s.applyState(func(st layout.ViewState) layout.ViewState {
			return st.WithSelectedEvent(&ev)
		}), nil

	case "today":
		now := time.Now().In(s.loc)
		return s.applyState(func(st layout.ViewState) layout.ViewState {
			return st.WithToday(now)
		}), nil

	case "step":
		n := req.N
		if n == 0 {
			n = 1
		}
		return s.applyState(func(st layout.ViewState) layout.ViewState {
			return st.Step(n)
		}), nil

	case "sidebar":
		open := true
		if req.Open != nil {
			open = *req.Open
		}
		return s.applyState(func(st layout.ViewState) layout.ViewState {
			return st.WithSidebar(open)
		}), nil

	default:
		return layout.ViewState{}, errors.New("unknown action")
	}
}

// handleInsights serves GET /api/insights over the current snapshot.
func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snap, err := s.currentSnapshot(r.Context())
	if err != nil {
		appLog.Error("snapshot build failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	report := insights.Analyze(snap.Events, time.Now().In(s.loc))
	writeJSON(w, http.StatusOK, report)
}

// handleExportICS serves GET /api/export/ics as a calendar attachment.
// Only locally created events are exported; subscription events already
// live in their upstream calendars.
func (s *Server) handleExportICS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	local, err := s.store.List(r.Context())
	if err != nil {
		appLog.Error("event list failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load events")
		return
	}

	body := ics.Export(local, time.Now().In(s.loc))
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timebox_calendar.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handlePreview serves the last rendered PNG preview from disk.
// http.ServeFile maps missing files to 404 on its own.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.previewPath)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
