package wizard

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"agendacal/internal/debounce"
	"agendacal/internal/geocode"
	appLog "agendacal/internal/log"
)

// addressSearch drives the debounced "other address" lookup. Results are
// written from the debounce timer goroutine, hence the mutex.
type addressSearch struct {
	deb     *debounce.Debouncer
	geo     geocode.Searcher
	country string
	limit   int
	minLen  int
	timeout time.Duration
	notify  func([]geocode.Candidate)

	mu      sync.Mutex
	query   string
	results []geocode.Candidate
}

// Type records a keystroke. Any pending lookup is canceled and the result
// list cleared; a new lookup is scheduled when the query is long enough.
func (a *addressSearch) Type(q string) {
	a.mu.Lock()
	a.query = q
	a.results = nil
	a.mu.Unlock()

	if utf8.RuneCountInString(strings.TrimSpace(q)) < a.minLen {
		a.deb.Cancel()
		a.publish(nil)
		return
	}

	a.deb.Schedule(context.Background(), func(ctx context.Context) {
		lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		appLog.Debug("address lookup", "query", q)
		res := geocode.SafeSearch(lookupCtx, a.geo, geocode.Query{
			Text:    strings.TrimSpace(q),
			Country: a.country,
			Limit:   a.limit,
		})

		a.mu.Lock()
		if ctx.Err() != nil || a.query != q {
			// Superseded: the newer keystroke already cleared the list.
			a.mu.Unlock()
			return
		}
		a.results = res
		a.mu.Unlock()
		a.publish(res)
	})
}

// Reset cancels any pending lookup and forgets query and results.
func (a *addressSearch) Reset() {
	a.deb.Cancel()
	a.mu.Lock()
	a.query = ""
	a.results = nil
	a.mu.Unlock()
}

// Results returns a copy of the current candidates.
func (a *addressSearch) Results() []geocode.Candidate {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]geocode.Candidate, len(a.results))
	copy(out, a.results)
	return out
}

func (a *addressSearch) publish(res []geocode.Candidate) {
	if a.notify != nil {
		a.notify(res)
	}
}
