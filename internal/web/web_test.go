package web

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendacal/internal/config"
	"agendacal/internal/directory"
	"agendacal/internal/events"
	"agendacal/internal/geocode"
	"agendacal/internal/layout"
	"agendacal/internal/metrics"
	"agendacal/internal/model"
	"agendacal/internal/preset"
	"agendacal/internal/week"
	"agendacal/internal/wizard"
)

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *events.Repository) {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	gen := week.NewGenerator("fr")
	cat := preset.Default(gen)
	now := func() time.Time { return time.Date(2025, time.April, 16, 10, 0, 0, 0, time.UTC) }
	repo := events.NewRepository(cat)
	geo := geocode.Static{Candidates: []geocode.Candidate{
		{DisplayName: "12 rue des Lilas, Lyon", Lat: 45.75, Lon: 4.85},
		{DisplayName: "12 rue de la Paix, Paris", Lat: 48.87, Lon: 2.33},
	}}

	s := NewServer(cfg, Deps{
		Resolver:  week.NewResolver(gen, cat).WithClock(now),
		Repo:      repo,
		Grid:      layout.DefaultGrid(),
		Directory: directory.Sample(),
		Geocoder:  geo,
		Location:  time.UTC,
		Now:       now,
		Metrics:   metrics.MustNewMetrics(prometheus.NewRegistry()),
	})
	return s, repo
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestWeekByLabelAndDate(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/week?"+url.Values{"label": {"14/04 - 20/04"}}.Encode(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[weekResponse](t, rec)
	assert.Equal(t, "2025-04-14", got.Week.ID)
	assert.Equal(t, "2025-04-07", got.Previous)
	assert.Equal(t, "2025-04-21", got.Next)
	require.Len(t, got.Week.Days, 7)
	assert.Equal(t, "Lundi 14/04", got.Week.Days[0].Label)

	rec = do(t, s.Handler(), http.MethodGet, "/api/week?date=2025-04-23", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-04-21", decode[weekResponse](t, rec).Week.ID)

	rec = do(t, s.Handler(), http.MethodGet, "/api/week", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-04-14", decode[weekResponse](t, rec).Week.ID)

	rec = do(t, s.Handler(), http.MethodGet, "/api/week?label=garbage", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventsFilteredAndPlaced(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/events?week=2025-04-14", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[eventsResponse](t, rec)
	require.Len(t, got.Events, 6)
	require.Len(t, got.Blocks, 6)
	assert.Equal(t, "p1-1", got.Events[0].ID)
	assert.Equal(t, "p1-6", got.Events[5].ID)
	assert.Equal(t, 72.0, got.Blocks[0].Top)
	assert.Equal(t, 72.0, got.Blocks[0].Height)
	assert.True(t, got.Blocks[1].Compact)
	assert.Len(t, got.HourMarks, 13)
	assert.Equal(t, 864.0, got.GridHeight)

	rec = do(t, s.Handler(), http.MethodGet, "/api/events?week=2025-04-14&q=R%C3%89UNION", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[eventsResponse](t, rec)
	require.Len(t, got.Events, 1)
	assert.Equal(t, "Réunion d'équipe", got.Events[0].Title)

	rec = do(t, s.Handler(), http.MethodGet, "/api/events?week=2030-01-07", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[eventsResponse](t, rec).Events)
}

func TestAddEvent(t *testing.T) {
	s, repo := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/events?week=2025-04-14", map[string]any{
		"title": "Rappel fournisseur", "day": "wed", "start": "07:30", "end": "08:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ev := decode[model.Event](t, rec)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, model.ToneNeutral, ev.Tone)
	assert.Equal(t, model.ColorGray, ev.Color)

	all := repo.Events("2025-04-14")
	require.Len(t, all, 7)
	assert.Equal(t, ev.ID, all[6].ID)

	rec = do(t, s.Handler(), http.MethodPost, "/api/events?week=2025-04-14", map[string]any{
		"title": "À l'envers", "day": "wed", "start": "10:00", "end": "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.Handler(), http.MethodPost, "/api/events", map[string]any{"unexpected": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, repo.Events("2025-04-14"), 7)
}

func TestWeekICS(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := do(t, s.Handler(), http.MethodGet, "/api/week.ics?week=2025-04-21", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))
	body := rec.Body.String()
	assert.Equal(t, 5, strings.Count(body, "BEGIN:VEVENT"))
	assert.Contains(t, body, "SUMMARY:Formation sécurité")
}

func TestAddresses(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/addresses?q=12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]geocode.Candidate](t, rec))

	rec = do(t, s.Handler(), http.MethodGet, "/api/addresses?q=lilas", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[[]geocode.Candidate](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "12 rue des Lilas, Lyon", got[0].DisplayName)
}

func TestContactsAndPalette(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/contacts?type=client&q=dupont", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	contacts := decode[[]directory.Contact](t, rec)
	require.NotEmpty(t, contacts)
	assert.Equal(t, "c-dupont", contacts[0].ID)

	rec = do(t, s.Handler(), http.MethodGet, "/api/contacts?type=ami", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/api/palette", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]paletteEntry](t, rec), len(model.Colors))
}

func TestAppointmentForClient(t *testing.T) {
	s, repo := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/appointments", appointmentRequest{
		Directory:       "annuaire",
		ContactType:     directory.ContactClient,
		ContactID:       "c-dupont",
		ProjectID:       "p-dupont-cuisine",
		EventType:       "visite",
		StartDate:       "2025-04-17",
		StartTime:       "14:00",
		EndDate:         "2025-04-17",
		EndTime:         "15:30",
		Collaborators:   []string{"u-alice"},
		Location:        "adresse-client",
		ClientAddressID: "a-dupont-home",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var sub struct {
		WeekID string      `json:"week_id"`
		Event  model.Event `json:"event"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.Equal(t, "2025-04-14", sub.WeekID)
	assert.Equal(t, "Visite - Jean Dupont", sub.Event.Title)
	assert.Equal(t, model.Thu, sub.Event.Day)
	assert.Equal(t, model.ToneSuccess, sub.Event.Tone)
	assert.Equal(t, model.ColorOrange, sub.Event.Color)
	assert.Equal(t, "12 rue des Lilas, 69003 Lyon", sub.Event.Location)
	assert.Equal(t, []string{"users"}, sub.Event.Icons)

	assert.Len(t, repo.UserEvents("2025-04-14"), 1)
}

func TestAppointmentMissingFields(t *testing.T) {
	s, repo := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodPost, "/api/appointments", appointmentRequest{
		Directory:   "annuaire",
		ContactType: directory.ContactClient,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	got := decode[errResp](t, rec)
	assert.Equal(t, []string{"contact_search", "project", "event_type"}, got.Missing)

	rec = do(t, s.Handler(), http.MethodPost, "/api/appointments", appointmentRequest{
		Directory: "hors-annuaire",
		Title:     "Pause",
		StartDate: "2025-04-17",
		StartTime: "12:00",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NotEmpty(t, decode[errResp](t, rec).Missing)

	rec = do(t, s.Handler(), http.MethodPost, "/api/appointments", appointmentRequest{
		Directory:   "annuaire",
		ContactType: directory.ContactClient,
		ContactID:   "c-leroy",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, repo.UserWeeks())
}

func TestWizardOptionsFollowConfig(t *testing.T) {
	s, _ := newTestServer(t, nil)
	opts := s.wizardOptions()
	assert.Equal(t, 500*time.Millisecond, opts.Debounce)
	assert.Equal(t, 3, opts.MinQueryLength)
	assert.Equal(t, 5*time.Second, opts.LookupTimeout)
	assert.Equal(t, "fr", opts.Country)

	cfg := config.DefaultConfig()
	cfg.Wizard.DebounceMS = 250
	cfg.Wizard.MinQueryLength = 4
	cfg.Geocoder.Limit = 8
	s, _ = newTestServer(t, cfg)
	opts = s.wizardOptions()
	assert.Equal(t, 250*time.Millisecond, opts.Debounce)
	assert.Equal(t, 4, opts.MinQueryLength)
	assert.Equal(t, 8, opts.Limit)
}

func TestFillStep2ReportsSetterErrors(t *testing.T) {
	s, repo := newTestServer(t, nil)
	req := appointmentRequest{StartDate: "2025-04-17", StartTime: "09:00", Recurring: true}

	wz := wizard.New(directory.Sample(), nil, repo, s.wizardOptions())
	assert.ErrorIs(t, fillStep2(wz, req), wizard.ErrWrongStep)

	require.NoError(t, wz.Cancel())
	assert.ErrorIs(t, fillStep2(wz, req), wizard.ErrClosed)
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "agenda", Password: "s3cret"}
	s, _ := newTestServer(t, cfg)
	h := s.Handler()

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodGet, "/api/palette", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/palette", nil)
	req.SetBasicAuth("agenda", "s3cret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, nil)
	h := s.Handler()

	do(t, h, http.MethodGet, "/api/palette", nil)
	do(t, h, http.MethodGet, "/api/week?label=garbage", nil)
	do(t, h, http.MethodGet, "/api/addresses?q=lilas", nil)

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `agendacal_http_requests_total{code="200",route="GET /api/palette"} 1`)
	assert.Contains(t, body, `agendacal_http_requests_total{code="400",route="GET /api/week"} 1`)
	assert.Contains(t, body, `agendacal_geocode_lookups_total{result="hit"} 1`)
}
