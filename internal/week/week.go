package week

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"agendacal/internal/model"
)

const (
	idLayout    = "2006-01-02"
	labelLayout = "02/01"
	labelSep    = " - "
)

var ErrBadLabel = errors.New("week: malformed range label")

var dayNames = map[string][7]string{
	"fr": {"Lundi", "Mardi", "Mercredi", "Jeudi", "Vendredi", "Samedi", "Dimanche"},
	"en": {"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"},
}

// Generator builds Weeks with weekday labels in a given locale.
type Generator struct {
	names [7]string
}

// NewGenerator returns a Generator for locale ("fr" or "en"). Unknown
// locales use French names.
func NewGenerator(locale string) Generator {
	names, ok := dayNames[strings.ToLower(locale)]
	if !ok {
		names = dayNames["fr"]
	}
	return Generator{names: names}
}

// Generate returns the Monday-anchored week containing the calendar date of t.
func Generate(t time.Time) model.Week {
	return NewGenerator("fr").Generate(t)
}

// Generate returns the Monday-anchored week containing the calendar date of t.
// Only the date in t's own location is used; no zone conversion happens.
func (g Generator) Generate(t time.Time) model.Week {
	monday := Monday(t)

	days := make([]model.Day, 7)
	for i := range days {
		d := monday.AddDate(0, 0, i)
		days[i] = model.Day{
			ID:    model.DayIDs[i],
			Label: g.names[i] + " " + d.Format(labelLayout),
			Date:  d,
		}
	}

	return model.Week{
		ID:         monday.Format(idLayout),
		RangeLabel: FormatRange(monday),
		Days:       days,
	}
}

// Monday returns the Monday (as a UTC midnight date) on or before the
// calendar date of t.
func Monday(t time.Time) time.Time {
	wd := int(t.Weekday())
	shift := 1
	if t.Weekday() == time.Sunday {
		shift = -6
	}
	diff := t.Day() - wd + shift
	return time.Date(t.Year(), t.Month(), diff, 0, 0, 0, 0, time.UTC)
}

// FormatRange renders "dd/mm - dd/mm" for the week starting at monday.
func FormatRange(monday time.Time) string {
	return monday.Format(labelLayout) + labelSep + monday.AddDate(0, 0, 6).Format(labelLayout)
}

// FromID rebuilds a week from its ID.
func (g Generator) FromID(id string) (model.Week, error) {
	t, err := time.Parse(idLayout, id)
	if err != nil {
		return model.Week{}, fmt.Errorf("week: bad id %q: %w", id, err)
	}
	return g.Generate(t), nil
}

// Next returns the week following w.
func (g Generator) Next(w model.Week) model.Week {
	return g.Generate(w.Start().AddDate(0, 0, 7))
}

// Previous returns the week preceding w.
func (g Generator) Previous(w model.Week) model.Week {
	return g.Generate(w.Start().AddDate(0, 0, -7))
}

// ParseRangeLabel parses the first date of a "dd/mm - dd/mm" label. Labels
// carry no year: among the years around ref, those where the label spans a
// Monday to the following Sunday win, and the one closest to ref is chosen.
// When no year yields such a span the closest year is used.
func ParseRangeLabel(label string, ref time.Time) (time.Time, error) {
	first, last, ok := strings.Cut(strings.TrimSpace(label), labelSep)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}
	day, month, err := parseDayMonth(first)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}
	lastDay, lastMonth, err := parseDayMonth(last)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadLabel, label)
	}

	var nearest, nearestSpan time.Time
	var nearestDist, spanDist time.Duration = -1, -1
	for _, y := range []int{ref.Year() - 1, ref.Year(), ref.Year() + 1} {
		cand := time.Date(y, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		if cand.Day() != day {
			// 29/02 outside a leap year.
			continue
		}
		dist := cand.Sub(ref)
		if dist < 0 {
			dist = -dist
		}
		if nearestDist < 0 || dist < nearestDist {
			nearest, nearestDist = cand, dist
		}
		end := cand.AddDate(0, 0, 6)
		if cand.Weekday() == time.Monday && end.Day() == lastDay && int(end.Month()) == lastMonth {
			if spanDist < 0 || dist < spanDist {
				nearestSpan, spanDist = cand, dist
			}
		}
	}
	switch {
	case spanDist >= 0:
		return nearestSpan, nil
	case nearestDist >= 0:
		return nearest, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadLabel, label)
}

func parseDayMonth(s string) (int, int, error) {
	if len(s) != 5 || s[2] != '/' {
		return 0, 0, ErrBadLabel
	}
	d, err := strconv.Atoi(s[:2])
	if err != nil || d < 1 || d > 31 {
		return 0, 0, ErrBadLabel
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 1 || m > 12 {
		return 0, 0, ErrBadLabel
	}
	return d, m, nil
}
