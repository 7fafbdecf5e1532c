package model

import (
	"errors"
	"fmt"
	"time"
)

// DayID is one of the seven canonical weekday tokens.
type DayID string

const (
	Mon DayID = "mon"
	Tue DayID = "tue"
	Wed DayID = "wed"
	Thu DayID = "thu"
	Fri DayID = "fri"
	Sat DayID = "sat"
	Sun DayID = "sun"
)

// DayIDs lists the weekday tokens Monday first.
var DayIDs = [7]DayID{Mon, Tue, Wed, Thu, Fri, Sat, Sun}

// DayIDOf returns the token for a weekday.
func DayIDOf(wd time.Weekday) DayID {
	if wd == time.Sunday {
		return Sun
	}
	return DayIDs[int(wd)-1]
}

// Valid reports whether d is one of the seven canonical tokens.
func (d DayID) Valid() bool {
	for _, id := range DayIDs {
		if id == d {
			return true
		}
	}
	return false
}

// Day is a single column of a Week.
type Day struct {
	ID    DayID     `json:"id"`
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
}

// Week is a Monday-anchored run of seven Days.
type Week struct {
	// ID is the ISO date (YYYY-MM-DD) of the Monday.
	ID         string `json:"id"`
	RangeLabel string `json:"range_label"`
	Days       []Day  `json:"days"`
}

// Start returns the Monday date.
func (w Week) Start() time.Time {
	if len(w.Days) == 0 {
		return time.Time{}
	}
	return w.Days[0].Date
}

// End returns the first instant after Sunday.
func (w Week) End() time.Time {
	if len(w.Days) == 0 {
		return time.Time{}
	}
	return w.Days[len(w.Days)-1].Date.AddDate(0, 0, 1)
}

// DayIndex returns the position of id within w.Days, or -1.
func (w Week) DayIndex(id DayID) int {
	for i, d := range w.Days {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Contains reports whether the calendar date of t falls inside w.
func (w Week) Contains(t time.Time) bool {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(w.Start()) && d.Before(w.End())
}

// Tone is the semantic status of an event.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneDanger  Tone = "danger"
	ToneNeutral Tone = "neutral"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneSuccess, ToneDanger, ToneNeutral:
		return true
	}
	return false
}

// Event is an immutable block on the agenda.
type Event struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Day      DayID    `json:"day"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Tone     Tone     `json:"tone"`
	Color    Color    `json:"color"`
	Location string   `json:"location,omitempty"`
	Icons    []string `json:"icons,omitempty"`
}

var ErrInvalidEvent = errors.New("invalid event")

// Validate checks the structural invariants of e.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidEvent)
	}
	if e.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidEvent)
	}
	if !e.Day.Valid() {
		return fmt.Errorf("%w: unknown day %q", ErrInvalidEvent, e.Day)
	}
	if e.Tone != "" && !e.Tone.Valid() {
		return fmt.Errorf("%w: unknown tone %q", ErrInvalidEvent, e.Tone)
	}
	if e.Color != "" && !e.Color.Valid() {
		return fmt.Errorf("%w: unknown color %q", ErrInvalidEvent, e.Color)
	}
	start, err := ParseClock(e.Start)
	if err != nil {
		return fmt.Errorf("%w: start: %w", ErrInvalidEvent, err)
	}
	end, err := ParseClock(e.End)
	if err != nil {
		return fmt.Errorf("%w: end: %w", ErrInvalidEvent, err)
	}
	if end <= start {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidEvent, e.End, e.Start)
	}
	return nil
}

// HasIcon reports whether name is among e.Icons.
func (e Event) HasIcon(name string) bool {
	for _, ic := range e.Icons {
		if ic == name {
			return true
		}
	}
	return false
}
