package events

import (
	"sort"
	"strings"

	"agendacal/internal/model"
)

// Filter keeps events whose title contains term, case-insensitively. An
// empty term returns evs unchanged.
func Filter(evs []model.Event, term string) []model.Event {
	if term == "" {
		return evs
	}
	needle := strings.ToLower(term)
	out := make([]model.Event, 0, len(evs))
	for _, ev := range evs {
		if strings.Contains(strings.ToLower(ev.Title), needle) {
			out = append(out, ev)
		}
	}
	return out
}

// Sort returns a copy of evs ordered by day position in w, then by start
// time. Ties keep their input order. Days absent from w sort last.
func Sort(evs []model.Event, w model.Week) []model.Event {
	out := make([]model.Event, len(evs))
	copy(out, evs)

	pos := func(id model.DayID) int {
		if i := w.DayIndex(id); i >= 0 {
			return i
		}
		return len(w.Days)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := pos(out[i].Day), pos(out[j].Day)
		if pi != pj {
			return pi < pj
		}
		return model.ClockMinutes(out[i].Start) < model.ClockMinutes(out[j].Start)
	})
	return out
}

// FilterSort applies Filter then Sort.
func FilterSort(evs []model.Event, term string, w model.Week) []model.Event {
	return Sort(Filter(evs, term), w)
}

// ByDay groups evs by day ID, preserving order within each day.
func ByDay(evs []model.Event) map[model.DayID][]model.Event {
	out := make(map[model.DayID][]model.Event)
	for _, ev := range evs {
		out[ev.Day] = append(out[ev.Day], ev)
	}
	return out
}
