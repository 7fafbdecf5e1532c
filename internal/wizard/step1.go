package wizard

import (
	"agendacal/internal/directory"
)

// Step1Form is the raw, possibly incomplete, Step-1 input.
type Step1Form struct {
	Directory    DirectoryType         `json:"directory"`
	ContactType  directory.ContactType `json:"contact_type,omitempty"`
	ContactQuery string                `json:"contact_query,omitempty"`
	Contact      *directory.Contact    `json:"contact,omitempty"`
	Project      *directory.Project    `json:"project,omitempty"`
	EventType    EventType             `json:"event_type,omitempty"`
}

// Step1 is a completed Step-1 selection. Its concrete type is one of
// OutsideDirectory, ClientContact or OtherContact.
type Step1 interface {
	step1()
	// Seed returns the event type and the name used to pre-fill the title.
	Seed() (EventType, string)
}

// OutsideDirectory is an appointment not linked to the directory.
type OutsideDirectory struct {
	EventType EventType
}

// ClientContact links a client and one of its projects.
type ClientContact struct {
	Contact   directory.Contact
	Project   directory.Project
	EventType EventType
}

// OtherContact links a non-client directory entry. Contact is optional.
type OtherContact struct {
	ContactType directory.ContactType
	Contact     *directory.Contact
	Query       string
}

func (OutsideDirectory) step1() {}
func (ClientContact) step1() {}
func (OtherContact) step1() {}

func (s OutsideDirectory) Seed() (EventType, string) { return s.EventType, "" }
func (s ClientContact) Seed() (EventType, string) { return s.EventType, s.Contact.Name }

func (s OtherContact) Seed() (EventType, string) {
	if s.Contact != nil {
		return "", s.Contact.Name
	}
	return "", s.Query
}

// VisibleFields lists the inputs revealed by the current selections.
func (f Step1Form) VisibleFields() []Field {
	fields := []Field{FieldDirectory}
	switch f.Directory {
	case DirectoryOutside:
		fields = append(fields, FieldEventType)
	case DirectoryInside:
		fields = append(fields, FieldContactType)
		if f.ContactType != "" {
			fields = append(fields, FieldContactSearch)
		}
		if f.ContactType == directory.ContactClient && f.Contact != nil {
			fields = append(fields, FieldProject, FieldEventType)
		}
	}
	return fields
}

// Missing lists the requirements not yet met for leaving Step 1.
func (f Step1Form) Missing() []Field {
	switch f.Directory {
	case DirectoryOutside:
		return nil
	case DirectoryInside:
		if f.ContactType == "" {
			return []Field{FieldContactType}
		}
		if f.ContactType != directory.ContactClient {
			return nil
		}
		var missing []Field
		if f.Contact == nil {
			missing = append(missing, FieldContactSearch)
		}
		if f.Project == nil {
			missing = append(missing, FieldProject)
		}
		if f.EventType == "" {
			missing = append(missing, FieldEventType)
		}
		return missing
	default:
		return []Field{FieldDirectory}
	}
}

// Resolve turns a complete form into its Step1 variant.
func (f Step1Form) Resolve() (Step1, bool) {
	if len(f.Missing()) > 0 {
		return nil, false
	}
	switch {
	case f.Directory == DirectoryOutside:
		return OutsideDirectory{EventType: f.EventType}, true
	case f.ContactType == directory.ContactClient:
		return ClientContact{Contact: *f.Contact, Project: *f.Project, EventType: f.EventType}, true
	default:
		return OtherContact{ContactType: f.ContactType, Contact: f.Contact, Query: f.ContactQuery}, true
	}
}
