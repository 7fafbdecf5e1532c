package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"agendacal/internal/directory"
	"agendacal/internal/wizard"
)

// appointmentRequest carries both wizard steps in one body. Fields left
// empty are simply not set, so the wizard's own rules decide what is missing.
type appointmentRequest struct {
	Directory    wizard.DirectoryType  `json:"directory"`
	ContactType  directory.ContactType `json:"contact_type"`
	ContactQuery string                `json:"contact_query"`
	ContactID    string                `json:"contact_id"`
	ProjectID    string                `json:"project_id"`
	EventType    wizard.EventType      `json:"event_type"`

	Title           string              `json:"title"`
	StartDate       string              `json:"start_date"`
	StartTime       string              `json:"start_time"`
	EndDate         string              `json:"end_date"`
	EndTime         string              `json:"end_time"`
	Recurring       bool                `json:"recurring"`
	Private         bool                `json:"private"`
	VideoLink       bool                `json:"video_link"`
	Collaborators   []string            `json:"collaborators"`
	Location        wizard.LocationType `json:"location_type"`
	ClientAddressID string              `json:"client_address_id"`
	OtherAddress    string              `json:"other_address"`
	Notes           string              `json:"notes"`
	InternalNotes   string              `json:"internal_notes"`
}

// handleAppointment replays a complete form through a fresh wizard and
// submits it.
//
// POST /api/appointments
func (s *Server) handleAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	// Address lookups go through /api/addresses; the replayed wizard only
	// needs the free text.
	wz := wizard.New(s.deps.Directory, nil, s.deps.Repo, s.wizardOptions())
	defer func() {
		if !wz.State().Terminal() {
			_ = wz.Cancel()
		}
	}()

	if err := fillStep1(wz, req); err != nil {
		writeWizardError(w, wz, err)
		return
	}
	if err := wz.Next(); err != nil {
		writeWizardError(w, wz, err)
		return
	}
	if err := fillStep2(wz, req); err != nil {
		writeWizardError(w, wz, err)
		return
	}

	sub, err := wz.Submit()
	if err != nil {
		writeWizardError(w, wz, err)
		return
	}
	s.deps.Metrics.AppointmentCreated(string(req.EventType))
	writeJSON(w, http.StatusCreated, sub)
}

// wizardOptions maps the wizard and geocoder settings onto wizard.Options.
func (s *Server) wizardOptions() wizard.Options {
	return wizard.Options{
		Debounce:       time.Duration(s.cfg.Wizard.DebounceMS) * time.Millisecond,
		MinQueryLength: s.cfg.Wizard.MinQueryLength,
		LookupTimeout:  time.Duration(s.cfg.Geocoder.TimeoutSeconds) * time.Second,
		Country:        s.cfg.Geocoder.Country,
		Limit:          s.cfg.Geocoder.Limit,
		Generator:      s.deps.Resolver.Generator(),
	}
}

func fillStep1(wz *wizard.Wizard, req appointmentRequest) error {
	if req.Directory == wizard.DirectoryUnset {
		return nil
	}
	if err := wz.SetDirectory(req.Directory); err != nil {
		return err
	}
	if req.ContactType != "" {
		if err := wz.SetContactType(req.ContactType); err != nil {
			return err
		}
	}
	if req.ContactQuery != "" {
		if _, err := wz.SearchContacts(req.ContactQuery); err != nil {
			return err
		}
	}
	if req.ContactID != "" {
		if err := wz.SelectContact(req.ContactID); err != nil {
			return err
		}
	}
	if req.ProjectID != "" {
		if err := wz.SelectProject(req.ProjectID); err != nil {
			return err
		}
	}
	if req.EventType != "" {
		return wz.SetEventType(req.EventType)
	}
	return nil
}

func fillStep2(wz *wizard.Wizard, req appointmentRequest) error {
	if req.Title != "" {
		if err := wz.SetTitle(req.Title); err != nil {
			return err
		}
	}
	if err := wz.SetStart(req.StartDate, req.StartTime); err != nil {
		return err
	}
	if err := wz.SetEnd(req.EndDate, req.EndTime); err != nil {
		return err
	}
	if err := wz.SetRecurring(req.Recurring); err != nil {
		return err
	}
	if err := wz.SetPrivate(req.Private); err != nil {
		return err
	}
	if err := wz.SetVideoLink(req.VideoLink); err != nil {
		return err
	}
	if err := wz.SetNotes(req.Notes, req.InternalNotes); err != nil {
		return err
	}
	for _, id := range req.Collaborators {
		if err := wz.ToggleCollaborator(id); err != nil {
			return err
		}
	}
	if err := wz.SetLocationType(req.Location); err != nil {
		return err
	}
	switch req.Location {
	case wizard.LocationClient:
		if req.ClientAddressID != "" {
			return wz.SelectClientAddress(req.ClientAddressID)
		}
	case wizard.LocationOther:
		return wz.TypeOtherAddress(req.OtherAddress)
	}
	return nil
}

func writeWizardError(w http.ResponseWriter, wz *wizard.Wizard, err error) {
	switch {
	case errors.Is(err, wizard.ErrNotReady):
		writeJSON(w, http.StatusUnprocessableEntity, errResp{Error: err.Error(), Missing: wz.Missing()})
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
