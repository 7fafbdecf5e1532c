package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"agendacal/internal/model"
)

const productID = "-//agendacal//week export//FR"

// Export renders the events of w as a VCALENDAR. Event times are wall-clock
// times in loc. Recurring events carry a weekly RRULE.
func Export(w model.Week, evs []model.Event, loc *time.Location, now time.Time) string {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	weekly := (&rrule.ROption{Freq: rrule.WEEKLY}).RRuleString()

	for _, ev := range evs {
		idx := w.DayIndex(ev.Day)
		if idx < 0 {
			continue
		}
		d := w.Days[idx].Date
		startMin := model.ClockMinutes(ev.Start)
		endMin := model.ClockMinutes(ev.End)
		start := time.Date(d.Year(), d.Month(), d.Day(), 0, startMin, 0, 0, loc)
		end := time.Date(d.Year(), d.Month(), d.Day(), 0, endMin, 0, 0, loc)

		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetSummary(ev.Title)
		ve.SetStartAt(start)
		ve.SetEndAt(end)
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.HasIcon(recurringIcon) {
			ve.AddProperty(ical.ComponentPropertyRrule, weekly)
		}
		if ev.HasIcon("private") {
			ve.SetProperty(ical.ComponentProperty("CLASS"), "PRIVATE")
		}
	}

	return cal.Serialize()
}
