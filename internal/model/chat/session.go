package chat

import "time"

// Session correlates the two participants of one therapy appointment. Its ID
// doubles as the room identifier handed to the transport.
type Session struct {
	ID             string    `json:"id"`
	PatientID      string    `json:"patientId,omitempty"`
	PractitionerID string    `json:"practitionerId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Booked reports whether a patient has taken the appointment.
func (s Session) Booked() bool {
	return s.PatientID != ""
}

// Phase is the call lifecycle as reported by the transport.
type Phase int

const (
	AwaitingLocalMedia Phase = iota
	AwaitingPeer
	Connected
)

func (p Phase) String() string {
	switch p {
	case AwaitingLocalMedia:
		return "awaiting_local_media"
	case AwaitingPeer:
		return "awaiting_peer"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}
