package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "agendacal/internal/log"
)

const defaultMaxOccurrencesPerEvent = 500

// Window bounds an expansion: occurrences starting in [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
	// Location is the wall clock occurrences are reported in. Nil means
	// time.Local.
	Location *time.Location
	// MaxPerEvent caps a single recurring event; zero uses a default.
	MaxPerEvent int
}

// Occurrence is one concrete instance of a ParsedEvent.
type Occurrence struct {
	Event     ParsedEvent
	Start     time.Time
	End       time.Time
	Recurring bool
}

// Expand turns parsed events into occurrences inside win, applying RRULE,
// EXDATE and RECURRENCE-ID overrides.
func Expand(events []ParsedEvent, win Window) ([]Occurrence, error) {
	if win.End.Before(win.Start) {
		return nil, errors.New("ics: window end before start")
	}
	if win.Location == nil {
		win.Location = time.Local
	}
	if win.MaxPerEvent <= 0 {
		win.MaxPerEvent = defaultMaxOccurrencesPerEvent
	}

	base := make([]ParsedEvent, 0, len(events))
	overrides := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride {
			overrides[ev.UID] = append(overrides[ev.UID], ev)
			continue
		}
		base = append(base, ev)
	}

	out := make([]Occurrence, 0)
	for _, ev := range base {
		if ev.RawRRule == "" {
			out = append(out, expandSingle(ev, overrides[ev.UID], win)...)
			continue
		}
		out = append(out, expandRecurring(ev, overrides[ev.UID], win)...)
	}
	return out, nil
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, win Window) []Occurrence {
	start, end, src := ev.Start, ev.End, ev
	if o, ok := findOverride(overrides, ev.Start); ok {
		start, end, src = o.Start, o.End, o
	}
	if !inWindow(start, win) {
		return nil
	}
	return []Occurrence{{Event: src, Start: start.In(win.Location), End: end.In(win.Location)}}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, win Window) []Occurrence {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	loc := ev.Start.Location()
	times := set.Between(win.Start.In(loc), win.End.In(loc), true)
	if len(times) > win.MaxPerEvent {
		appLog.Warn("ics: occurrences truncated", "uid", ev.UID, "cap", win.MaxPerEvent)
		times = times[:win.MaxPerEvent]
	}

	out := make([]Occurrence, 0, len(times))
	seen := make(map[int64]bool, len(times))
	for _, t := range times {
		seen[t.Unix()] = true
		start, end, src := t, t.Add(dur), ev
		if ev.AllDay {
			start = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
			end = start.AddDate(0, 0, 1)
		}
		if o, ok := findOverride(overrides, t); ok {
			start, end, src = o.Start, o.End, o
		}
		if !inWindow(start, win) {
			continue
		}
		out = append(out, Occurrence{Event: src, Start: start.In(win.Location), End: end.In(win.Location), Recurring: true})
	}

	// Instances whose original slot lies outside the window but which an
	// override moved into it.
	for _, o := range overrides {
		if o.Recurrence == nil || seen[o.Recurrence.Unix()] || !inWindow(o.Start, win) {
			continue
		}
		rid := o.Recurrence.In(loc)
		if len(set.Between(rid, rid, true)) == 0 {
			appLog.Debug("ics: override of unknown instance ignored", "uid", ev.UID, "recurrence_id", rid)
			continue
		}
		seen[rid.Unix()] = true
		out = append(out, Occurrence{Event: o, Start: o.Start.In(win.Location), End: o.End.In(win.Location), Recurring: true})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedEvent{}, false
}

func inWindow(t time.Time, win Window) bool {
	return !t.Before(win.Start) && t.Before(win.End)
}
