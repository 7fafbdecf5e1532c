package ics

import (
	"time"

	"agendacal/internal/model"
)

// recurringIcon matches the icon the appointment wizard uses.
const recurringIcon = "recurring"

const untitled = "(sans titre)"

// ToEvents converts timed occurrences into agenda events. All-day
// occurrences have no place on an hour grid and are dropped; an occurrence
// running past midnight is cut at 23:59.
func ToEvents(occs []Occurrence) []model.Event {
	out := make([]model.Event, 0, len(occs))
	for _, o := range occs {
		if o.Event.AllDay {
			continue
		}
		startMin := o.Start.Hour()*60 + o.Start.Minute()
		endMin := o.End.Hour()*60 + o.End.Minute()
		if !sameDate(o.Start, o.End) {
			endMin = 23*60 + 59
		}
		if endMin <= startMin {
			// Zero-length events still get a one-minute slot.
			endMin = min(startMin+1, 23*60+59)
			if endMin <= startMin {
				continue
			}
		}

		title := o.Event.Summary
		if title == "" {
			title = untitled
		}

		ev := model.Event{
			ID:       o.Event.UID + "@" + o.Start.Format("20060102T1504"),
			Title:    title,
			Day:      model.DayIDOf(o.Start.Weekday()),
			Start:    model.FormatClock(startMin),
			End:      model.FormatClock(endMin),
			Tone:     model.ToneNeutral,
			Color:    o.Event.Feed.color(),
			Location: o.Event.Location,
		}
		if o.Recurring {
			ev.Icons = append(ev.Icons, recurringIcon)
		}
		if o.Event.Private {
			ev.Icons = append(ev.Icons, "private")
		}
		out = append(out, ev)
	}
	return out
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
