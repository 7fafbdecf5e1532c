package events

import (
	"sync"

	"agendacal/internal/model"
)

// BaselineSource supplies the pre-associated events of a week. Unknown weeks
// yield an empty slice.
type BaselineSource interface {
	Baseline(weekID string) []model.Event
}

// Sources concatenates several baseline sources in order.
type Sources []BaselineSource

func (s Sources) Baseline(weekID string) []model.Event {
	var out []model.Event
	for _, src := range s {
		if src == nil {
			continue
		}
		out = append(out, src.Baseline(weekID)...)
	}
	return out
}

// Repository answers "what events exist for week W": baseline events
// followed by user-created ones. User events are only ever appended.
type Repository struct {
	baseline BaselineSource

	mu   sync.RWMutex
	user map[string][]model.Event
}

// NewRepository builds a Repository over baseline, which may be nil.
func NewRepository(baseline BaselineSource) *Repository {
	return &Repository{
		baseline: baseline,
		user:     make(map[string][]model.Event),
	}
}

// Events returns baseline then user events for weekID. Entries are not
// deduplicated across the two partitions.
func (r *Repository) Events(weekID string) []model.Event {
	var base []model.Event
	if r.baseline != nil {
		base = r.baseline.Baseline(weekID)
	}

	r.mu.RLock()
	user := r.user[weekID]
	out := make([]model.Event, 0, len(base)+len(user))
	out = append(out, base...)
	out = append(out, user...)
	r.mu.RUnlock()

	return out
}

// Add appends ev to the user partition of weekID.
func (r *Repository) Add(weekID string, ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.user[weekID] = append(r.user[weekID], ev)
}

// UserEvents returns a copy of the user partition of weekID.
func (r *Repository) UserEvents(weekID string) []model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Event, len(r.user[weekID]))
	copy(out, r.user[weekID])
	return out
}

// UserWeeks lists week IDs that have user events.
func (r *Repository) UserWeeks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.user))
	for id, evs := range r.user {
		if len(evs) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
