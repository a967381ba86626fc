package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/connect-therapy/session-chat/internal/model/chat"
	"github.com/connect-therapy/session-chat/internal/model/participant"
)

var (
	ErrPractitionerRequired = errors.New("practitioner id is required")
	ErrUnknownParticipant   = errors.New("participant not found")
	ErrWrongRole            = errors.New("participant has the wrong role")
	ErrSessionNotFound      = errors.New("session not found")
	ErrNotBooked            = errors.New("session has not been booked")
	ErrNotParticipant       = errors.New("participant is not part of this session")
)

// Access is what a participant gets when entering a session room.
type Access struct {
	Session     chat.Session            `json:"session"`
	Participant participant.Participant `json:"participant"`
	LeaveURL    string                  `json:"leaveUrl"`
}

// Service keeps the session registry in memory.
type Service struct {
	mu           sync.RWMutex
	sessions     map[string]chat.Session
	participants participant.Store
}

// NewService bootstraps the in-memory session registry.
func NewService(participants participant.Store) *Service {
	return &Service{
		sessions:     make(map[string]chat.Session),
		participants: participants,
	}
}

// CreateSession provisions a session for a practitioner. patientID may be
// empty for an appointment nobody has booked yet.
func (s *Service) CreateSession(_ context.Context, practitionerID, patientID string) (chat.Session, error) {
	if practitionerID == "" {
		return chat.Session{}, ErrPractitionerRequired
	}
	if err := s.checkRole(practitionerID, participant.RolePractitioner); err != nil {
		return chat.Session{}, err
	}
	if patientID != "" {
		if err := s.checkRole(patientID, participant.RolePatient); err != nil {
			return chat.Session{}, err
		}
	}

	session := chat.Session{
		ID:             uuid.NewString(),
		PatientID:      patientID,
		PractitionerID: practitionerID,
		CreatedAt:      time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

func (s *Service) checkRole(id string, role participant.Role) error {
	p, ok := s.participants.FindByID(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParticipant, id)
	}
	if p.Role != role {
		return fmt.Errorf("%w: %s is not a %s", ErrWrongRole, id, role)
	}
	return nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Authorize admits only the session's patient or practitioner, and only once
// a patient has booked it.
func (s *Service) Authorize(ctx context.Context, sessionID, participantID string) (Access, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return Access{}, err
	}
	if !session.Booked() {
		return Access{}, ErrNotBooked
	}
	if participantID != session.PatientID && participantID != session.PractitionerID {
		return Access{}, ErrNotParticipant
	}

	p, ok := s.participants.FindByID(participantID)
	if !ok {
		return Access{}, fmt.Errorf("%w: %s", ErrUnknownParticipant, participantID)
	}

	return Access{
		Session:     session,
		Participant: p,
		LeaveURL:    p.NotesURL(session.ID),
	}, nil
}
