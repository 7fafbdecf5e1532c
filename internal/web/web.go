package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"agendacal/internal/config"
	"agendacal/internal/directory"
	"agendacal/internal/events"
	"agendacal/internal/geocode"
	"agendacal/internal/ics"
	"agendacal/internal/layout"
	appLog "agendacal/internal/log"
	"agendacal/internal/metrics"
	"agendacal/internal/model"
	"agendacal/internal/week"
)

// Deps are the engine parts the HTTP API reads from and writes to.
type Deps struct {
	Resolver  *week.Resolver
	Repo      *events.Repository
	Grid      layout.Grid
	Directory directory.Directory
	Geocoder  geocode.Searcher
	// Location places exported events; nil means time.Local.
	Location *time.Location
	Now      func() time.Time
	// Metrics may be nil; /metrics then answers 404.
	Metrics *metrics.Metrics
}

// Server exposes the weekly agenda over HTTP for a renderer.
type Server struct {
	cfg  *config.Config
	deps Deps
	mux  *http.ServeMux
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Location == nil {
		deps.Location = time.Local
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials disable auth rather than lock everyone out.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
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
			w.Header().Set("WWW-Authenticate", `Basic realm="agendacal", charset="UTF-8"`)
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
	s.handle("GET /health", s.handleHealth)
	s.handle("GET /api/week", s.handleWeek)
	s.handle("GET /api/events", s.handleEvents)
	s.handle("POST /api/events", s.handleAddEvent)
	s.handle("GET /api/week.ics", s.handleWeekICS)
	s.handle("GET /api/addresses", s.handleAddresses)
	s.handle("GET /api/contacts", s.handleContacts)
	s.handle("POST /api/appointments", s.handleAppointment)
	s.handle("GET /api/palette", s.handlePalette)
	s.mux.Handle("GET /metrics", s.deps.Metrics.Handler())
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, s.deps.Metrics.Instrument(pattern, h))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// resolveWeek reads the week from ?week=, ?date= or ?label=, in that order.
// None of them means the current week.
func (s *Server) resolveWeek(r *http.Request) (model.Week, error) {
	q := r.URL.Query()
	key := strings.TrimSpace(q.Get("week"))
	if key == "" {
		key = strings.TrimSpace(q.Get("date"))
	}
	if key == "" {
		key = strings.TrimSpace(q.Get("label"))
	}
	return s.deps.Resolver.ResolveAny(key)
}

type weekResponse struct {
	Week     model.Week `json:"week"`
	Previous string     `json:"previous"`
	Next     string     `json:"next"`
}

// handleWeek returns the resolved week plus the IDs of its neighbours.
//
// GET /api/week?date=2025-04-16
// GET /api/week?label=14/04 - 20/04
func (s *Server) handleWeek(w http.ResponseWriter, r *http.Request) {
	wk, err := s.resolveWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	gen := s.deps.Resolver.Generator()
	writeJSON(w, http.StatusOK, weekResponse{
		Week:     wk,
		Previous: gen.Previous(wk).ID,
		Next:     gen.Next(wk).ID,
	})
}

// eventsResponse is the JSON response shape for GET /api/events.
type eventsResponse struct {
	Week       model.Week     `json:"week"`
	Query      string         `json:"query,omitempty"`
	Events     []model.Event  `json:"events"`
	Blocks     []layout.Block `json:"blocks"`
	HourMarks  []string       `json:"hour_marks"`
	GridHeight float64        `json:"grid_height"`
}

// handleEvents returns the filtered, ordered events of a week together with
// their grid geometry.
//
// GET /api/events?week=2025-04-14&q=chantier
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	wk, err := s.resolveWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	term := r.URL.Query().Get("q")
	evs := events.FilterSort(s.deps.Repo.Events(wk.ID), term, wk)

	appLog.Debug("api events request", "week", wk.ID, "query", term, "count", len(evs))

	writeJSON(w, http.StatusOK, eventsResponse{
		Week:       wk,
		Query:      term,
		Events:     evs,
		Blocks:     s.deps.Grid.Place(evs),
		HourMarks:  s.deps.Grid.HourMarks(),
		GridHeight: s.deps.Grid.Height(),
	})
}

// handleAddEvent appends a user event to a week. Missing id, tone and color
// are filled in; the rest must already form a valid event.
//
// POST /api/events?week=2025-04-14
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	wk, err := s.resolveWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var ev model.Event
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Tone == "" {
		ev.Tone = model.ToneNeutral
	}
	if ev.Color == "" {
		ev.Color = model.ColorGray
	}
	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.deps.Repo.Add(wk.ID, ev)
	s.deps.Metrics.UserEventAdded()
	appLog.Info("user event added", "week", wk.ID, "event_id", ev.ID, "day", ev.Day)
	writeJSON(w, http.StatusCreated, ev)
}

// handleWeekICS exports the (optionally filtered) week as text/calendar.
func (s *Server) handleWeekICS(w http.ResponseWriter, r *http.Request) {
	wk, err := s.resolveWeek(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	evs := events.FilterSort(s.deps.Repo.Events(wk.ID), r.URL.Query().Get("q"), wk)
	body := ics.Export(wk, evs, s.deps.Location, s.deps.Now())

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="week-`+wk.ID+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

// handleAddresses proxies the geocoder. Short queries and lookup failures
// both answer an empty list.
//
// GET /api/addresses?q=12 rue des
func (s *Server) handleAddresses(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if utf8.RuneCountInString(q) < s.cfg.Wizard.MinQueryLength {
		writeJSON(w, http.StatusOK, []geocode.Candidate{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(s.cfg.Geocoder.TimeoutSeconds)*time.Second)
	defer cancel()

	res := geocode.SafeSearch(ctx, s.deps.Geocoder, geocode.Query{
		Text:    q,
		Country: s.cfg.Geocoder.Country,
		Limit:   s.cfg.Geocoder.Limit,
	})
	s.deps.Metrics.AddressLookup(len(res))
	writeJSON(w, http.StatusOK, res)
}

// handleContacts searches the directory.
//
// GET /api/contacts?type=client&q=dupont
func (s *Server) handleContacts(w http.ResponseWriter, r *http.Request) {
	ct := directory.ContactType(r.URL.Query().Get("type"))
	if !ct.Valid() {
		writeError(w, http.StatusBadRequest, "unknown contact type")
		return
	}
	if s.deps.Directory == nil {
		writeJSON(w, http.StatusOK, []directory.Contact{})
		return
	}
	writeJSON(w, http.StatusOK, s.deps.Directory.SearchContacts(ct, r.URL.Query().Get("q")))
}

type paletteEntry struct {
	Color model.Color      `json:"color"`
	Style model.ColorStyle `json:"style"`
}

func (s *Server) handlePalette(w http.ResponseWriter, _ *http.Request) {
	out := make([]paletteEntry, 0, len(model.Colors))
	for _, c := range model.Colors {
		out = append(out, paletteEntry{Color: c, Style: model.Palette(c)})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

type errResp struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResp{Error: msg})
}

// ListenAndServe serves s on cfg.Listen until ctx is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
