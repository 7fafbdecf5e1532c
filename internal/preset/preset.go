// Package preset holds hand-authored weeks and their baseline events.
package preset

import (
	"time"

	"agendacal/internal/model"
	"agendacal/internal/week"
)

// Preset is a week with hand-authored baseline events.
type Preset struct {
	Week   model.Week
	Events []model.Event
}

// Catalog indexes presets by range label and by week ID. It is read-only
// once built.
type Catalog struct {
	byLabel map[string]Preset
	byID    map[string]Preset
}

// NewCatalog builds a Catalog. A later preset with the same label replaces an
// earlier one.
func NewCatalog(presets ...Preset) *Catalog {
	c := &Catalog{
		byLabel: make(map[string]Preset, len(presets)),
		byID:    make(map[string]Preset, len(presets)),
	}
	for _, p := range presets {
		c.byLabel[p.Week.RangeLabel] = p
		c.byID[p.Week.ID] = p
	}
	return c
}

// Lookup returns the preset week whose label matches exactly.
func (c *Catalog) Lookup(label string) (model.Week, bool) {
	p, ok := c.byLabel[label]
	if !ok {
		return model.Week{}, false
	}
	return p.Week, true
}

// Baseline returns a copy of the preset events for weekID.
func (c *Catalog) Baseline(weekID string) []model.Event {
	p, ok := c.byID[weekID]
	if !ok {
		return nil
	}
	out := make([]model.Event, len(p.Events))
	copy(out, p.Events)
	return out
}

// Len reports how many presets are held.
func (c *Catalog) Len() int {
	return len(c.byID)
}

// Default returns the two reference weeks of April 2025.
func Default(gen week.Generator) *Catalog {
	first := gen.Generate(time.Date(2025, time.April, 14, 0, 0, 0, 0, time.UTC))
	second := gen.Generate(time.Date(2025, time.April, 21, 0, 0, 0, 0, time.UTC))

	return NewCatalog(
		Preset{
			Week: first,
			Events: []model.Event{
				{ID: "p1-1", Title: "Réunion d'équipe", Day: model.Mon, Start: "09:00", End: "10:00", Tone: model.ToneNeutral, Color: model.ColorBlue, Location: "Salle A", Icons: []string{"users"}},
				{ID: "p1-2", Title: "Appel client Dupont", Day: model.Mon, Start: "11:30", End: "11:45", Tone: model.ToneSuccess, Color: model.ColorGreen, Icons: []string{"phone"}},
				{ID: "p1-3", Title: "Visite chantier Lyon", Day: model.Tue, Start: "14:00", End: "16:30", Tone: model.ToneNeutral, Color: model.ColorOrange, Location: "12 rue de la République, Lyon"},
				{ID: "p1-4", Title: "Revue projet Alpha", Day: model.Wed, Start: "10:00", End: "11:00", Tone: model.ToneDanger, Color: model.ColorRed},
				{ID: "p1-5", Title: "Démo produit", Day: model.Thu, Start: "15:00", End: "16:00", Tone: model.ToneSuccess, Color: model.ColorPurple, Icons: []string{"video"}},
				{ID: "p1-6", Title: "Point hebdo", Day: model.Fri, Start: "08:30", End: "09:00", Tone: model.ToneNeutral, Color: model.ColorTeal},
			},
		},
		Preset{
			Week: second,
			Events: []model.Event{
				{ID: "p2-1", Title: "Réunion d'équipe", Day: model.Mon, Start: "09:00", End: "10:00", Tone: model.ToneNeutral, Color: model.ColorBlue, Location: "Salle A", Icons: []string{"users"}},
				{ID: "p2-2", Title: "Signature contrat Martin", Day: model.Tue, Start: "10:30", End: "11:30", Tone: model.ToneSuccess, Color: model.ColorGreen},
				{ID: "p2-3", Title: "Relance impayés", Day: model.Wed, Start: "16:00", End: "16:20", Tone: model.ToneDanger, Color: model.ColorRed, Icons: []string{"phone"}},
				{ID: "p2-4", Title: "Formation sécurité", Day: model.Thu, Start: "13:30", End: "17:00", Tone: model.ToneNeutral, Color: model.ColorGray, Location: "Centre de formation"},
				{ID: "p2-5", Title: "Point hebdo", Day: model.Fri, Start: "08:30", End: "09:00", Tone: model.ToneNeutral, Color: model.ColorTeal},
			},
		},
	)
}
