package participant

import "fmt"

// Role distinguishes the two sides of a therapy session.
type Role string

const (
	RolePatient      Role = "patient"
	RolePractitioner Role = "practitioner"
)

// Participant is someone allowed to join session rooms.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// NotesURL is where the participant lands after leaving a session. Patients
// and practitioners each have their own notes page for the appointment.
func (p Participant) NotesURL(sessionID string) string {
	switch p.Role {
	case RolePractitioner:
		return fmt.Sprintf("/practitioner/notes/%s", sessionID)
	default:
		return fmt.Sprintf("/patient/notes/%s", sessionID)
	}
}

// Seed provides development participants for a local server.
func Seed() []Participant {
	return []Participant{
		{ID: "dr-okafor", Name: "Dr. Ada Okafor", Role: RolePractitioner},
		{ID: "dr-lindqvist", Name: "Dr. Sven Lindqvist", Role: RolePractitioner},
		{ID: "patient-jordan", Name: "Jordan Reyes", Role: RolePatient},
		{ID: "patient-sam", Name: "Sam Whitfield", Role: RolePatient},
	}
}
