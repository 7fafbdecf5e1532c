package wizard

import (
	"time"

	"agendacal/internal/geocode"
	"agendacal/internal/model"
)

const dateLayout = "2006-01-02"

// Step2Form holds the schedule details. The four date/time fields are
// independent; changing the start never moves the end.
type Step2Form struct {
	Title         string             `json:"title"`
	StartDate     string             `json:"start_date"`
	StartTime     string             `json:"start_time"`
	EndDate       string             `json:"end_date"`
	EndTime       string             `json:"end_time"`
	Recurring     bool               `json:"recurring"`
	Collaborators []string           `json:"collaborators,omitempty"`
	Private       bool               `json:"private"`
	Location      LocationType       `json:"location_type,omitempty"`
	ClientAddress string             `json:"client_address,omitempty"`
	OtherAddress  string             `json:"other_address,omitempty"`
	OtherChoice   *geocode.Candidate `json:"other_choice,omitempty"`
	VideoLink     bool               `json:"video_link"`
	Notes         string             `json:"notes,omitempty"`
	InternalNotes string             `json:"internal_notes,omitempty"`
}

// Problems reported by Step2Form.Missing besides empty fields.
const (
	ProblemEndBeforeStart = "end_before_start"
	ProblemSpansDays      = "spans_days"
)

// Missing lists blocking problems: empty or unreadable required fields, then
// range problems once every field reads.
func (f Step2Form) Missing() []string {
	var missing []string
	if f.Title == "" {
		missing = append(missing, "title")
	}
	startDate, errSD := time.Parse(dateLayout, f.StartDate)
	if errSD != nil {
		missing = append(missing, "start_date")
	}
	start, errST := model.ParseClock(f.StartTime)
	if errST != nil {
		missing = append(missing, "start_time")
	}
	endDate, errED := time.Parse(dateLayout, f.EndDate)
	if errED != nil {
		missing = append(missing, "end_date")
	}
	end, errET := model.ParseClock(f.EndTime)
	if errET != nil {
		missing = append(missing, "end_time")
	}
	if errSD != nil || errST != nil || errED != nil || errET != nil {
		return missing
	}

	if !endDate.Equal(startDate) {
		missing = append(missing, ProblemSpansDays)
	} else if end <= start {
		missing = append(missing, ProblemEndBeforeStart)
	}
	return missing
}

func (f Step2Form) hasCollaborator(id string) bool {
	for _, c := range f.Collaborators {
		if c == id {
			return true
		}
	}
	return false
}
