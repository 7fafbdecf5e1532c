package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agendacal/internal/model"
	"agendacal/internal/week"
)

const feedBody = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//agendacal//test//FR
BEGIN:VEVENT
UID:standup
DTSTAMP:20250401T000000Z
DTSTART:20250407T090000Z
DTEND:20250407T091500Z
RRULE:FREQ=WEEKLY;BYDAY=MO,WE
EXDATE:20250416T090000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:standup
DTSTAMP:20250401T000000Z
RECURRENCE-ID:20250414T090000Z
DTSTART:20250414T100000Z
DTEND:20250414T101500Z
SUMMARY:Standup décalé
END:VEVENT
BEGIN:VEVENT
UID:audit
DTSTAMP:20250401T000000Z
DTSTART:20250417T140000Z
DTEND:20250417T160000Z
SUMMARY:Audit qualité
LOCATION:Siège
CLASS:PRIVATE
END:VEVENT
BEGIN:VEVENT
UID:holiday
DTSTAMP:20250401T000000Z
DTSTART;VALUE=DATE:20250421
DTEND;VALUE=DATE:20250422
SUMMARY:Lundi de Pâques
END:VEVENT
END:VCALENDAR
`

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

var testFeed = Feed{ID: "team", Name: "Équipe", Color: model.ColorTeal}

func TestParseICS(t *testing.T) {
	evs, err := ParseICS(testFeed, crlf(feedBody))
	require.NoError(t, err)
	require.Len(t, evs, 4)

	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO,WE", evs[0].RawRRule)
	assert.Len(t, evs[0].ExDates, 1)
	assert.True(t, evs[1].IsOverride)
	assert.True(t, evs[2].Private)
	assert.True(t, evs[3].AllDay)

	_, err = ParseICS(testFeed, nil)
	assert.Error(t, err)
}

func newSource(t *testing.T) *Source {
	t.Helper()
	src := NewSource(NewFetcher(t.TempDir(), time.Second), []Feed{testFeed}, week.NewGenerator("fr"), time.UTC)
	require.NoError(t, src.Load(testFeed, crlf(feedBody)))
	return src
}

func TestSourceBaselineAppliesOverridesAndExdates(t *testing.T) {
	evs := newSource(t).Baseline("2025-04-14")
	require.Len(t, evs, 2)

	byTitle := map[string]model.Event{}
	for _, ev := range evs {
		byTitle[ev.Title] = ev
		assert.NoError(t, ev.Validate())
	}

	moved := byTitle["Standup décalé"]
	assert.Equal(t, model.Mon, moved.Day)
	assert.Equal(t, "10:00", moved.Start)
	assert.Equal(t, "10:15", moved.End)
	assert.True(t, moved.HasIcon(recurringIcon))

	audit := byTitle["Audit qualité"]
	assert.Equal(t, model.Thu, audit.Day)
	assert.Equal(t, "Siège", audit.Location)
	assert.Equal(t, model.ColorTeal, audit.Color)
	assert.True(t, audit.HasIcon("private"))
}

const movedInBody = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//agendacal//test//FR
BEGIN:VEVENT
UID:weekly
DTSTAMP:20250401T000000Z
DTSTART:20250404T090000Z
DTEND:20250404T093000Z
RRULE:FREQ=WEEKLY;BYDAY=FR
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:weekly
DTSTAMP:20250401T000000Z
RECURRENCE-ID:20250411T090000Z
DTSTART:20250414T100000Z
DTEND:20250414T103000Z
SUMMARY:Standup avancé
END:VEVENT
BEGIN:VEVENT
UID:weekly
DTSTAMP:20250401T000000Z
RECURRENCE-ID:20250412T090000Z
DTSTART:20250415T100000Z
DTEND:20250415T103000Z
SUMMARY:Instance inconnue
END:VEVENT
END:VCALENDAR
`

func TestExpandOverrideMovedIntoWindow(t *testing.T) {
	evs, err := ParseICS(testFeed, crlf(movedInBody))
	require.NoError(t, err)

	win := Window{
		Start:    time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, time.April, 21, 0, 0, 0, 0, time.UTC),
		Location: time.UTC,
	}
	occs, err := Expand(evs, win)
	require.NoError(t, err)
	require.Len(t, occs, 2)

	assert.Equal(t, "Standup avancé", occs[0].Event.Summary)
	assert.Equal(t, time.Date(2025, time.April, 14, 10, 0, 0, 0, time.UTC), occs[0].Start)
	assert.True(t, occs[0].Recurring)
	assert.Equal(t, "Standup", occs[1].Event.Summary)
	assert.Equal(t, time.Date(2025, time.April, 18, 9, 0, 0, 0, time.UTC), occs[1].Start)

	// The original week no longer holds the moved instance.
	win.Start, win.End = win.Start.AddDate(0, 0, -7), win.End.AddDate(0, 0, -7)
	occs, err = Expand(evs, win)
	require.NoError(t, err)
	assert.Empty(t, occs)
}

func TestSourceBaselineOrdersUnconfiguredFeeds(t *testing.T) {
	src := NewSource(NewFetcher(t.TempDir(), time.Second), nil, week.NewGenerator("fr"), time.UTC)
	body := func(title string) []byte {
		return crlf("BEGIN:VCALENDAR\nVERSION:2.0\nPRODID:-//agendacal//test//FR\nBEGIN:VEVENT\n" +
			"UID:" + title + "\nDTSTAMP:20250401T000000Z\nDTSTART:20250415T090000Z\n" +
			"DTEND:20250415T100000Z\nSUMMARY:" + title + "\nEND:VEVENT\nEND:VCALENDAR\n")
	}
	for _, id := range []string{"zeta", "alpha", "mu"} {
		require.NoError(t, src.Load(Feed{ID: id}, body(id)))
	}

	for range 5 {
		evs := src.Baseline("2025-04-14")
		require.Len(t, evs, 3)
		assert.Equal(t, []string{"alpha", "mu", "zeta"}, []string{evs[0].Title, evs[1].Title, evs[2].Title})
	}
}

func TestSourceBaselineDropsAllDay(t *testing.T) {
	evs := newSource(t).Baseline("2025-04-21")
	require.Len(t, evs, 2)
	for _, ev := range evs {
		assert.Equal(t, "Standup", ev.Title)
	}
	assert.Equal(t, model.Mon, evs[0].Day)
	assert.Equal(t, "09:00", evs[0].Start)
}

func TestSourceUnknownWeek(t *testing.T) {
	src := newSource(t)
	assert.Empty(t, src.Baseline("2019-01-07"))
	assert.Empty(t, src.Baseline("not-a-week"))
}

func TestToEventsCutsAtMidnight(t *testing.T) {
	occ := Occurrence{
		Event: ParsedEvent{UID: "night", Summary: "Astreinte"},
		Start: time.Date(2025, time.April, 18, 22, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.April, 19, 6, 0, 0, 0, time.UTC),
	}
	evs := ToEvents([]Occurrence{occ})
	require.Len(t, evs, 1)
	assert.Equal(t, model.Fri, evs[0].Day)
	assert.Equal(t, "23:59", evs[0].End)
	assert.Equal(t, model.ColorGray, evs[0].Color)
}

func TestExportRoundTrip(t *testing.T) {
	w := week.Generate(time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC))
	evs := []model.Event{
		{ID: "a1", Title: "Visite chantier", Day: model.Tue, Start: "14:00", End: "16:30", Location: "Lyon", Icons: []string{"recurring"}},
		{ID: "a2", Title: "Appel", Day: model.Fri, Start: "08:30", End: "09:00", Icons: []string{"private"}},
		{ID: "bad", Title: "Hors semaine", Day: "xyz", Start: "08:30", End: "09:00"},
	}
	out := Export(w, evs, time.UTC, time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC))

	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "FREQ=WEEKLY")
	assert.Contains(t, out, "CLASS:PRIVATE")

	parsed, err := ParseICS(Feed{ID: "export"}, []byte(out))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, time.Date(2025, time.April, 15, 14, 0, 0, 0, time.UTC), parsed[0].Start.UTC())
	assert.Equal(t, time.Date(2025, time.April, 15, 16, 30, 0, 0, time.UTC), parsed[0].End.UTC())
	assert.Equal(t, "FREQ=WEEKLY", parsed[0].RawRRule)
	assert.True(t, parsed[1].Private)
}

func TestFetcherConditionalGetAndFallback(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch hits.Add(1) {
		case 1:
			w.Header().Set("ETag", `"v1"`)
			_, _ = w.Write(crlf(feedBody))
		case 2:
			assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
			w.WriteHeader(http.StatusNotModified)
		default:
			http.Error(w, "down", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), time.Second)
	feed := Feed{ID: "remote", URL: srv.URL + "/cal.ics?token=secret"}

	first, err := f.FetchOne(context.Background(), feed)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := f.FetchOne(context.Background(), feed)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)

	third, err := f.FetchOne(context.Background(), feed)
	require.NoError(t, err)
	assert.True(t, third.FromCache)
}

func TestFetcherLocalFileAndErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.ics")
	require.NoError(t, os.WriteFile(path, crlf(feedBody), 0o600))

	f := NewFetcher(t.TempDir(), time.Second)
	results, errs := f.FetchAll(context.Background(), []Feed{
		{ID: "file", URL: "file://" + path},
		{ID: "missing", URL: filepath.Join(t.TempDir(), "nope.ics")},
		{ID: "empty"},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "file", results[0].Feed.ID)
	assert.Len(t, errs, 2)
}

func TestSourceRefreshKeepsGoodFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.ics")
	require.NoError(t, os.WriteFile(path, crlf(feedBody), 0o600))

	feeds := []Feed{{ID: "team", URL: path}, {ID: "gone", URL: path + ".missing"}}
	src := NewSource(NewFetcher(t.TempDir(), time.Second), feeds, week.NewGenerator("fr"), time.UTC)

	err := src.Refresh(context.Background())
	assert.Error(t, err)
	assert.False(t, src.RefreshedAt().IsZero())
	assert.Len(t, src.Baseline("2025-04-14"), 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/cal.ics?token=abc"))
	assert.Equal(t, "ics://...(redacted)", redactURL("no-scheme"))
}
