// Package layout maps event times onto a fixed-hour vertical grid.
//
// Times are not validated here: an end before its start yields a negative
// raw height, and times outside [StartHour, EndHour] yield offsets outside
// the grid. Clipping is left to whoever paints the blocks.
package layout

import (
	"agendacal/internal/model"
)

const (
	DefaultStartHour        = 8
	DefaultEndHour          = 20
	DefaultHourHeight       = 72.0
	DefaultMinBlockHeight   = 24.0
	DefaultCompactThreshold = 48.0
)

// Grid describes the displayed hour window and its pixel scale.
type Grid struct {
	StartHour        int     `json:"start_hour"`
	EndHour          int     `json:"end_hour"`
	HourHeight       float64 `json:"hour_height"`
	MinBlockHeight   float64 `json:"min_block_height"`
	CompactThreshold float64 `json:"compact_threshold"`
}

// DefaultGrid returns an 08:00-20:00 grid at 72px per hour.
func DefaultGrid() Grid {
	return Grid{
		StartHour:        DefaultStartHour,
		EndHour:          DefaultEndHour,
		HourHeight:       DefaultHourHeight,
		MinBlockHeight:   DefaultMinBlockHeight,
		CompactThreshold: DefaultCompactThreshold,
	}
}

// Block is the geometry of one event.
type Block struct {
	Event   model.Event      `json:"event"`
	Style   model.ColorStyle `json:"style"`
	Top     float64          `json:"top"`
	Height  float64          `json:"height"`
	Compact bool             `json:"compact"`
	// ShowTime and ShowDetails are false in compact mode; details are the
	// location line and attendee avatars.
	ShowTime    bool `json:"show_time"`
	ShowDetails bool `json:"show_details"`
}

// OffsetTop returns the distance from the top of the grid to ev's start.
func (g Grid) OffsetTop(ev model.Event) float64 {
	mins := model.ClockMinutes(ev.Start) - g.StartHour*60
	return float64(mins) / 60 * g.HourHeight
}

// RawHeight is the unclamped pixel height of ev.
func (g Grid) RawHeight(ev model.Event) float64 {
	mins := model.ClockMinutes(ev.End) - model.ClockMinutes(ev.Start)
	return float64(mins) / 60 * g.HourHeight
}

// RenderedHeight floors RawHeight to MinBlockHeight.
func (g Grid) RenderedHeight(ev model.Event) float64 {
	return max(g.MinBlockHeight, g.RawHeight(ev))
}

// IsCompact reports whether ev renders with reduced detail.
func (g Grid) IsCompact(ev model.Event) bool {
	return g.RenderedHeight(ev) < g.CompactThreshold
}

// Place computes a Block per event, in input order.
func (g Grid) Place(evs []model.Event) []Block {
	out := make([]Block, 0, len(evs))
	for _, ev := range evs {
		compact := g.IsCompact(ev)
		out = append(out, Block{
			Event:       ev,
			Style:       model.Palette(ev.Color),
			Top:         g.OffsetTop(ev),
			Height:      g.RenderedHeight(ev),
			Compact:     compact,
			ShowTime:    !compact,
			ShowDetails: !compact,
		})
	}
	return out
}

// Height is the total pixel height of the grid.
func (g Grid) Height() float64 {
	return float64(g.EndHour-g.StartHour) * g.HourHeight
}

// HourMarks returns the "HH:00" labels from StartHour to EndHour inclusive.
func (g Grid) HourMarks() []string {
	if g.EndHour < g.StartHour {
		return nil
	}
	out := make([]string, 0, g.EndHour-g.StartHour+1)
	for h := g.StartHour; h <= g.EndHour; h++ {
		out = append(out, model.FormatClock(h*60))
	}
	return out
}
