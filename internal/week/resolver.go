package week

import (
	"time"

	"agendacal/internal/model"
)

// PresetLookup finds a hand-authored week by its exact range label.
type PresetLookup interface {
	Lookup(label string) (model.Week, bool)
}

// Resolver turns range labels into Weeks: presets first, generation second.
type Resolver struct {
	gen     Generator
	presets PresetLookup
	now     func() time.Time
}

// NewResolver builds a Resolver. presets may be nil.
func NewResolver(gen Generator, presets PresetLookup) *Resolver {
	return &Resolver{gen: gen, presets: presets, now: time.Now}
}

// WithClock overrides the reference clock used to pick a label's year.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Generator returns the generator used for non-preset weeks.
func (r *Resolver) Generator() Generator {
	return r.gen
}

// Resolve returns the preset whose label equals label, or else a freshly
// generated week starting at the label's first date.
func (r *Resolver) Resolve(label string) (model.Week, error) {
	if r.presets != nil {
		if w, ok := r.presets.Lookup(label); ok {
			return w, nil
		}
	}
	start, err := ParseRangeLabel(label, r.now())
	if err != nil {
		return model.Week{}, err
	}
	return r.gen.Generate(start), nil
}

// ResolveAny accepts either a week ID / ISO date or a range label.
func (r *Resolver) ResolveAny(key string) (model.Week, error) {
	if key == "" {
		return r.gen.Generate(r.now()), nil
	}
	if t, err := time.Parse(idLayout, key); err == nil {
		w := r.gen.Generate(t)
		if r.presets != nil {
			if p, ok := r.presets.Lookup(w.RangeLabel); ok && p.ID == w.ID {
				return p, nil
			}
		}
		return w, nil
	}
	return r.Resolve(key)
}
