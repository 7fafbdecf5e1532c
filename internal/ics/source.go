package ics

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	appLog "agendacal/internal/log"
	"agendacal/internal/model"
	"agendacal/internal/week"
)

// Source serves baseline events from ICS feeds. Feeds are read on Refresh;
// Baseline only expands what is already in memory.
type Source struct {
	fetcher *Fetcher
	feeds   []Feed
	gen     week.Generator
	loc     *time.Location

	mu          sync.RWMutex
	parsed      map[string][]ParsedEvent // by feed ID
	refreshedAt time.Time
}

// NewSource builds a Source. loc is the wall clock events are placed in;
// nil means time.Local.
func NewSource(fetcher *Fetcher, feeds []Feed, gen week.Generator, loc *time.Location) *Source {
	if loc == nil {
		loc = time.Local
	}
	return &Source{
		fetcher: fetcher,
		feeds:   feeds,
		gen:     gen,
		loc:     loc,
		parsed:  make(map[string][]ParsedEvent),
	}
}

// Refresh fetches and parses every feed. Feeds that fail keep their
// previous content; the returned error joins the individual failures.
func (s *Source) Refresh(ctx context.Context) error {
	if len(s.feeds) == 0 {
		return nil
	}
	results, errs := s.fetcher.FetchAll(ctx, s.feeds)

	for _, res := range results {
		if err := s.Load(res.Feed, res.Body); err != nil {
			errs = append(errs, err)
		}
	}

	s.mu.Lock()
	s.refreshedAt = time.Now()
	s.mu.Unlock()

	appLog.Info("ics baseline refreshed", "feeds", len(s.feeds), "ok", len(results), "errors", len(errs))
	return errors.Join(errs...)
}

// Load parses body as the current content of feed.
func (s *Source) Load(feed Feed, body []byte) error {
	evs, err := ParseICS(feed, body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.parsed[feed.ID] = evs
	s.mu.Unlock()
	return nil
}

// RefreshedAt reports when Refresh last completed.
func (s *Source) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}

// Baseline implements events.BaselineSource. Feeds contribute in their
// configured order.
func (s *Source) Baseline(weekID string) []model.Event {
	w, err := s.gen.FromID(weekID)
	if err != nil {
		return nil
	}

	start := w.Start()
	win := Window{
		Start:    time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc),
		End:      time.Date(start.Year(), start.Month(), start.Day()+7, 0, 0, 0, 0, s.loc),
		Location: s.loc,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Event
	for _, feed := range s.orderedFeeds() {
		occs, err := Expand(s.parsed[feed], win)
		if err != nil {
			appLog.Error("ics expand failed", err, "feed", feed, "week", weekID)
			continue
		}
		out = append(out, ToEvents(occs)...)
	}
	return out
}

func (s *Source) orderedFeeds() []string {
	ids := make([]string, 0, len(s.parsed))
	seen := make(map[string]bool, len(s.feeds))
	for _, f := range s.feeds {
		if _, ok := s.parsed[f.ID]; ok && !seen[f.ID] {
			ids = append(ids, f.ID)
			seen[f.ID] = true
		}
	}
	extra := make([]string, 0, len(s.parsed)-len(ids))
	for id := range s.parsed {
		if !seen[id] {
			extra = append(extra, id)
		}
	}
	sort.Strings(extra)
	return append(ids, extra...)
}
