// Package wizard implements the two-step appointment creation workflow.
//
// A Wizard is driven from a single goroutine (the UI loop). The only
// concurrent part is the debounced address lookup, whose results are
// guarded internally.
package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"agendacal/internal/debounce"
	"agendacal/internal/directory"
	"agendacal/internal/geocode"
	appLog "agendacal/internal/log"
	"agendacal/internal/model"
	"agendacal/internal/week"
)

// Appender receives submitted events.
type Appender interface {
	Add(weekID string, ev model.Event)
}

// Options tunes a Wizard. Zero values take the defaults.
type Options struct {
	Debounce       time.Duration
	MinQueryLength int
	LookupTimeout  time.Duration
	Country        string
	Limit          int

	Generator week.Generator
	AfterFunc debounce.AfterFunc
	NewID     func() string
	// OnAddressResults is called whenever the address candidate list
	// changes, possibly from another goroutine.
	OnAddressResults func([]geocode.Candidate)
}

// DefaultOptions mirrors the reference behaviour: 500 ms debounce, lookups
// from three characters, 5 s request timeout.
func DefaultOptions() Options {
	return Options{
		Debounce:       500 * time.Millisecond,
		MinQueryLength: 3,
		LookupTimeout:  geocode.DefaultTimeout,
		Country:        "fr",
		Limit:          geocode.DefaultLimit,
		Generator:      week.NewGenerator("fr"),
		NewID:          uuid.NewString,
	}
}

// Submission is what a successful Submit produced.
type Submission struct {
	WeekID string      `json:"week_id"`
	Event  model.Event `json:"event"`
	Step1  Step1       `json:"-"`
	Draft  Step2Form   `json:"draft"`
}

// Wizard collects the data for one new appointment.
type Wizard struct {
	dir  directory.Directory
	repo Appender
	gen  week.Generator
	id   func() string

	state       State
	form1       Step1Form
	form2       Step2Form
	seededTitle string
	address     *addressSearch
}

// New opens a wizard at Step 1. dir and geo may be nil.
func New(dir directory.Directory, geo geocode.Searcher, repo Appender, opts Options) *Wizard {
	def := DefaultOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = def.Debounce
	}
	if opts.MinQueryLength <= 0 {
		opts.MinQueryLength = def.MinQueryLength
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = def.LookupTimeout
	}
	if opts.Limit <= 0 {
		opts.Limit = def.Limit
	}
	if opts.NewID == nil {
		opts.NewID = def.NewID
	}
	if opts.Generator == (week.Generator{}) {
		opts.Generator = def.Generator
	}

	deb := debounce.New(opts.Debounce)
	if opts.AfterFunc != nil {
		deb.WithAfterFunc(opts.AfterFunc)
	}

	return &Wizard{
		dir:   dir,
		repo:  repo,
		gen:   opts.Generator,
		id:    opts.NewID,
		state: StateDirectory,
		address: &addressSearch{
			deb:     deb,
			geo:     geo,
			country: opts.Country,
			limit:   opts.Limit,
			minLen:  opts.MinQueryLength,
			timeout: opts.LookupTimeout,
			notify:  opts.OnAddressResults,
		},
	}
}

// State returns the current workflow state.
func (w *Wizard) State() State {
	return w.state
}

// Step1Form returns a copy of the Step-1 input.
func (w *Wizard) Step1Form() Step1Form {
	return w.form1
}

// Draft returns a copy of the Step-2 input.
func (w *Wizard) Draft() Step2Form {
	d := w.form2
	d.Collaborators = append([]string(nil), w.form2.Collaborators...)
	return d
}

func (w *Wizard) require(s State) error {
	if w.state.Terminal() {
		return ErrClosed
	}
	if w.state != s {
		return fmt.Errorf("%w: in %s", ErrWrongStep, w.state)
	}
	return nil
}

// --- Step 1 -------------------------------------------------------------

// SetDirectory chooses between a directory-linked or free appointment and
// clears every dependent selection.
func (w *Wizard) SetDirectory(d DirectoryType) error {
	if err := w.require(StateDirectory); err != nil {
		return err
	}
	if !d.Valid() {
		return fmt.Errorf("%w: directory type %q", ErrInvalid, d)
	}
	if d != w.form1.Directory {
		w.form1 = Step1Form{Directory: d}
	}
	return nil
}

// SetContactType picks the directory category and clears the contact,
// project and event type chosen under the previous category.
func (w *Wizard) SetContactType(ct directory.ContactType) error {
	if err := w.require(StateDirectory); err != nil {
		return err
	}
	if w.form1.Directory != DirectoryInside {
		return fmt.Errorf("%w: contact type needs the directory", ErrWrongStep)
	}
	if !ct.Valid() {
		return fmt.Errorf("%w: contact type %q", ErrInvalid, ct)
	}
	if ct != w.form1.ContactType {
		w.form1 = Step1Form{Directory: DirectoryInside, ContactType: ct}
	}
	return nil
}

// SearchContacts records query and returns matching contacts of the chosen
// type.
func (w *Wizard) SearchContacts(query string) ([]directory.Contact, error) {
	if err := w.require(StateDirectory); err != nil {
		return nil, err
	}
	if w.form1.ContactType == "" {
		return nil, fmt.Errorf("%w: choose a contact type first", ErrWrongStep)
	}
	w.form1.ContactQuery = query
	if w.dir == nil {
		return []directory.Contact{}, nil
	}
	return w.dir.SearchContacts(w.form1.ContactType, query), nil
}

// SelectContact links the directory entry id. Choosing another contact
// drops the project selection.
func (w *Wizard) SelectContact(id string) error {
	if err := w.require(StateDirectory); err != nil {
		return err
	}
	if w.form1.ContactType == "" || w.dir == nil {
		return fmt.Errorf("%w: no contact search available", ErrWrongStep)
	}
	c, ok := w.dir.Contact(id)
	if !ok || c.Type != w.form1.ContactType {
		return fmt.Errorf("%w: contact %q", ErrInvalid, id)
	}
	if w.form1.Contact == nil || w.form1.Contact.ID != c.ID {
		w.form1.Project = nil
	}
	w.form1.Contact = &c
	return nil
}

// Projects lists projects of the selected client.
func (w *Wizard) Projects() []directory.Project {
	if w.dir == nil || w.form1.Contact == nil {
		return nil
	}
	return w.dir.Projects(w.form1.Contact.ID)
}

// SelectProject picks one of the selected client's projects.
func (w *Wizard) SelectProject(id string) error {
	if err := w.require(StateDirectory); err != nil {
		return err
	}
	if !w.revealed(FieldProject) {
		return fmt.Errorf("%w: project needs a selected client", ErrWrongStep)
	}
	for _, p := range w.Projects() {
		if p.ID == id {
			w.form1.Project = &p
			return nil
		}
	}
	return fmt.Errorf("%w: project %q", ErrInvalid, id)
}

// SetEventType picks the appointment kind.
func (w *Wizard) SetEventType(et EventType) error {
	if err := w.require(StateDirectory); err != nil {
		return err
	}
	if !w.revealed(FieldEventType) {
		return fmt.Errorf("%w: event type is not shown", ErrWrongStep)
	}
	if !et.Valid() {
		return fmt.Errorf("%w: event type %q", ErrInvalid, et)
	}
	w.form1.EventType = et
	return nil
}

// VisibleFields lists the Step-1 inputs currently revealed.
func (w *Wizard) VisibleFields() []Field {
	return w.form1.VisibleFields()
}

func (w *Wizard) revealed(f Field) bool {
	for _, v := range w.form1.VisibleFields() {
		if v == f {
			return true
		}
	}
	return false
}

// CanAdvance reports whether Next would succeed.
func (w *Wizard) CanAdvance() bool {
	if w.state != StateDirectory {
		return false
	}
	_, ok := w.form1.Resolve()
	return ok
}

// Next moves to Step 2 and seeds the title from the event type and the
// linked or searched name.
func (w *Wizard) Next() error {
	if err := w.require(StateDirectory); err != nil {
		return err
	}
	s1, ok := w.form1.Resolve()
	if !ok {
		return fmt.Errorf("%w: %v", ErrNotReady, w.form1.Missing())
	}

	seed := seedTitle(s1)
	if w.form2.Title == "" || w.form2.Title == w.seededTitle {
		w.form2.Title = seed
	}
	w.seededTitle = seed
	if _, linked := s1.(ClientContact); !linked && w.form2.Location == LocationClient {
		w.form2.Location = LocationUnset
		w.form2.ClientAddress = ""
	}

	w.state = StateSchedule
	return nil
}

func seedTitle(s Step1) string {
	et, name := s.Seed()
	parts := make([]string, 0, 2)
	if et != "" {
		parts = append(parts, et.Label())
	}
	if n := strings.TrimSpace(name); n != "" {
		parts = append(parts, n)
	}
	return strings.Join(parts, " - ")
}

// --- Step 2 -------------------------------------------------------------

// Back returns to Step 1, keeping both steps' input.
func (w *Wizard) Back() error {
	if err := w.require(StateSchedule); err != nil {
		return err
	}
	w.address.Reset()
	w.state = StateDirectory
	return nil
}

func (w *Wizard) edit(fn func(f *Step2Form) error) error {
	if err := w.require(StateSchedule); err != nil {
		return err
	}
	return fn(&w.form2)
}

func (w *Wizard) SetTitle(title string) error {
	return w.edit(func(f *Step2Form) error {
		f.Title = strings.TrimSpace(title)
		return nil
	})
}

// SetStart sets the start date (YYYY-MM-DD) and time (HH:MM). The end is
// left untouched.
func (w *Wizard) SetStart(date, clock string) error {
	return w.edit(func(f *Step2Form) error {
		f.StartDate, f.StartTime = date, clock
		return nil
	})
}

// SetEnd sets the end date and time.
func (w *Wizard) SetEnd(date, clock string) error {
	return w.edit(func(f *Step2Form) error {
		f.EndDate, f.EndTime = date, clock
		return nil
	})
}

func (w *Wizard) SetRecurring(on bool) error {
	return w.edit(func(f *Step2Form) error {
		f.Recurring = on
		return nil
	})
}

func (w *Wizard) SetPrivate(on bool) error {
	return w.edit(func(f *Step2Form) error {
		f.Private = on
		return nil
	})
}

func (w *Wizard) SetVideoLink(on bool) error {
	return w.edit(func(f *Step2Form) error {
		f.VideoLink = on
		return nil
	})
}

func (w *Wizard) SetNotes(notes, internal string) error {
	return w.edit(func(f *Step2Form) error {
		f.Notes, f.InternalNotes = notes, internal
		return nil
	})
}

// ToggleCollaborator adds or removes a collaborator from the selection.
func (w *Wizard) ToggleCollaborator(id string) error {
	return w.edit(func(f *Step2Form) error {
		if w.dir != nil && !knownCollaborator(w.dir.Collaborators(), id) {
			return fmt.Errorf("%w: collaborator %q", ErrInvalid, id)
		}
		if f.hasCollaborator(id) {
			kept := f.Collaborators[:0]
			for _, c := range f.Collaborators {
				if c != id {
					kept = append(kept, c)
				}
			}
			f.Collaborators = kept
			return nil
		}
		f.Collaborators = append(f.Collaborators, id)
		return nil
	})
}

func knownCollaborator(all []directory.Collaborator, id string) bool {
	for _, c := range all {
		if c.ID == id {
			return true
		}
	}
	return false
}

// SetLocationType switches the location sub-form. Leaving "other address"
// cancels any pending lookup.
func (w *Wizard) SetLocationType(lt LocationType) error {
	return w.edit(func(f *Step2Form) error {
		if !lt.Valid() {
			return fmt.Errorf("%w: location type %q", ErrInvalid, lt)
		}
		if lt == LocationClient && w.form1.Contact == nil {
			return fmt.Errorf("%w: no linked contact for a client address", ErrWrongStep)
		}
		if f.Location == LocationOther && lt != LocationOther {
			w.address.Reset()
			f.OtherAddress, f.OtherChoice = "", nil
		}
		if lt != LocationClient {
			f.ClientAddress = ""
		}
		f.Location = lt
		return nil
	})
}

// ClientAddresses lists the addresses of the linked contact.
func (w *Wizard) ClientAddresses() []directory.Address {
	if w.dir == nil || w.form1.Contact == nil {
		return nil
	}
	return w.dir.Addresses(w.form1.Contact.ID)
}

// SelectClientAddress picks one of the linked contact's addresses.
func (w *Wizard) SelectClientAddress(id string) error {
	return w.edit(func(f *Step2Form) error {
		if f.Location != LocationClient {
			return fmt.Errorf("%w: location is not a client address", ErrWrongStep)
		}
		for _, a := range w.ClientAddresses() {
			if a.ID == id {
				f.ClientAddress = a.Label
				return nil
			}
		}
		return fmt.Errorf("%w: address %q", ErrInvalid, id)
	})
}

// TypeOtherAddress records a keystroke in the free-text address field.
func (w *Wizard) TypeOtherAddress(q string) error {
	return w.edit(func(f *Step2Form) error {
		if f.Location != LocationOther {
			return fmt.Errorf("%w: location is not another address", ErrWrongStep)
		}
		f.OtherAddress = q
		f.OtherChoice = nil
		w.address.Type(q)
		return nil
	})
}

// AddressResults returns the current lookup candidates.
func (w *Wizard) AddressResults() []geocode.Candidate {
	return w.address.Results()
}

// ChooseAddress picks candidate i of the current results.
func (w *Wizard) ChooseAddress(i int) error {
	return w.edit(func(f *Step2Form) error {
		res := w.address.Results()
		if i < 0 || i >= len(res) {
			return fmt.Errorf("%w: candidate %d", ErrInvalid, i)
		}
		c := res[i]
		f.OtherChoice = &c
		f.OtherAddress = c.DisplayName
		return nil
	})
}

// Missing lists what blocks leaving the current step.
func (w *Wizard) Missing() []string {
	switch w.state {
	case StateDirectory:
		fields := w.form1.Missing()
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = string(f)
		}
		return out
	case StateSchedule:
		return w.form2.Missing()
	default:
		return nil
	}
}

// CanSubmit reports whether Submit would succeed.
func (w *Wizard) CanSubmit() bool {
	return w.state == StateSchedule && len(w.form2.Missing()) == 0
}

// Submit turns the draft into an event, hands it to the repository and
// closes the wizard.
func (w *Wizard) Submit() (Submission, error) {
	if err := w.require(StateSchedule); err != nil {
		return Submission{}, err
	}
	if missing := w.form2.Missing(); len(missing) > 0 {
		return Submission{}, fmt.Errorf("%w: %v", ErrNotReady, missing)
	}
	s1, ok := w.form1.Resolve()
	if !ok {
		return Submission{}, fmt.Errorf("%w: step 1 incomplete", ErrNotReady)
	}

	startDate, _ := time.Parse(dateLayout, w.form2.StartDate)
	wk := w.gen.Generate(startDate)
	ev := w.buildEvent(s1, startDate)

	sub := Submission{WeekID: wk.ID, Event: ev, Step1: s1, Draft: w.Draft()}
	if w.repo != nil {
		w.repo.Add(wk.ID, ev)
	}
	appLog.Info("appointment created", "week", wk.ID, "event_id", ev.ID, "day", ev.Day, "start", ev.Start)

	w.discard()
	w.state = StateSubmitted
	return sub, nil
}

func (w *Wizard) buildEvent(s1 Step1, startDate time.Time) model.Event {
	f := w.form2
	et, _ := s1.Seed()

	tone := model.ToneNeutral
	if _, ok := s1.(ClientContact); ok {
		tone = model.ToneSuccess
	}

	var icons []string
	if f.Recurring {
		icons = append(icons, IconRecurring)
	}
	if f.Private {
		icons = append(icons, IconPrivate)
	}
	if f.VideoLink {
		icons = append(icons, IconVideo)
	}
	if len(f.Collaborators) > 0 {
		icons = append(icons, IconUsers)
	}

	return model.Event{
		ID:       w.id(),
		Title:    f.Title,
		Day:      model.DayIDOf(startDate.Weekday()),
		Start:    f.StartTime,
		End:      f.EndTime,
		Tone:     tone,
		Color:    et.Color(),
		Location: w.location(),
		Icons:    icons,
	}
}

func (w *Wizard) location() string {
	f := w.form2
	switch f.Location {
	case LocationOffice:
		return "Bureau"
	case LocationClient:
		return f.ClientAddress
	case LocationOther:
		if f.OtherChoice != nil {
			return f.OtherChoice.DisplayName
		}
		return strings.TrimSpace(f.OtherAddress)
	default:
		return ""
	}
}

// Cancel abandons the wizard from either step, discarding all input.
func (w *Wizard) Cancel() error {
	if w.state.Terminal() {
		return ErrClosed
	}
	w.discard()
	w.state = StateCancelled
	return nil
}

func (w *Wizard) discard() {
	w.address.Reset()
	w.form1 = Step1Form{}
	w.form2 = Step2Form{}
	w.seededTitle = ""
}
