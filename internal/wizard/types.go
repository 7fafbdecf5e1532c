package wizard

import (
	"errors"

	"agendacal/internal/model"
)

// State is the wizard's position in its workflow.
type State string

const (
	StateDirectory State = "step1_directory"
	StateSchedule  State = "step2_schedule"
	StateSubmitted State = "submitted"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSubmitted || s == StateCancelled
}

// DirectoryType says whether the appointment is linked to the directory.
type DirectoryType string

const (
	DirectoryUnset   DirectoryType = ""
	DirectoryOutside DirectoryType = "hors-annuaire"
	DirectoryInside  DirectoryType = "annuaire"
)

func (d DirectoryType) Valid() bool {
	return d == DirectoryOutside || d == DirectoryInside
}

// EventType is the kind of appointment.
type EventType string

const (
	EventMeeting     EventType = "reunion"
	EventCall        EventType = "appel"
	EventVisit       EventType = "visite"
	EventAppointment EventType = "rendez-vous"
	EventTraining    EventType = "formation"
)

var eventTypes = map[EventType]struct {
	label string
	color model.Color
}{
	EventMeeting:     {"Réunion", model.ColorBlue},
	EventCall:        {"Appel", model.ColorGreen},
	EventVisit:       {"Visite", model.ColorOrange},
	EventAppointment: {"Rendez-vous", model.ColorPurple},
	EventTraining:    {"Formation", model.ColorTeal},
}

func (e EventType) Valid() bool {
	_, ok := eventTypes[e]
	return ok
}

// Label is the display name used to seed the title.
func (e EventType) Label() string {
	return eventTypes[e].label
}

// Color is the agenda color for this type; unset types are gray.
func (e EventType) Color() model.Color {
	if t, ok := eventTypes[e]; ok {
		return t.color
	}
	return model.ColorGray
}

// LocationType selects where the appointment takes place.
type LocationType string

const (
	LocationUnset  LocationType = ""
	LocationOffice LocationType = "bureau"
	LocationClient LocationType = "adresse-client"
	LocationOther  LocationType = "autre-adresse"
)

func (l LocationType) Valid() bool {
	switch l {
	case LocationUnset, LocationOffice, LocationClient, LocationOther:
		return true
	}
	return false
}

// Field names a Step-1 input.
type Field string

const (
	FieldDirectory     Field = "directory"
	FieldEventType     Field = "event_type"
	FieldContactType   Field = "contact_type"
	FieldContactSearch Field = "contact_search"
	FieldProject       Field = "project"
)

// Icons attached to submitted events.
const (
	IconRecurring = "recurring"
	IconPrivate   = "private"
	IconVideo     = "video"
	IconUsers     = "users"
)

var (
	ErrWrongStep = errors.New("wizard: operation not allowed in current step")
	ErrClosed    = errors.New("wizard: already submitted or cancelled")
	ErrNotReady  = errors.New("wizard: required fields missing")
	ErrInvalid   = errors.New("wizard: invalid value")
)
